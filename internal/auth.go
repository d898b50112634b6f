package internal

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

func hashPassword(password string, cost int) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", invalid("password: the length must be no more than 72 bytes")
	}
	return string(h), err
}

func checkPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// POST /auth/signup
func Signup(st Store, bcryptCost int) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req signupRequest
		if err := bindJSON(c, &req); err != nil {
			fail(c, err)
			return
		}
		req.Email = strings.ToLower(strings.TrimSpace(req.Email))
		req.Name = strings.TrimSpace(req.Name)
		if err := req.Validate(); err != nil {
			fail(c, err)
			return
		}

		hash, err := hashPassword(req.Password, bcryptCost)
		if err != nil {
			fail(c, err)
			return
		}

		u, err := st.CreateUser(c.Request.Context(), NewUser{
			Name:         req.Name,
			Email:        req.Email,
			PhoneNumber:  req.PhoneNumber,
			Document:     req.Document,
			BirthDate:    req.BirthDate,
			Position:     req.Position,
			PasswordHash: hash,
		})
		if err != nil {
			fail(c, err)
			return
		}

		st.LogAction(c.Request.Context(), &u.ID, "signup", "user registered")
		c.JSON(http.StatusCreated, u)
	}
}

// POST /auth/login
func Login(st Store, codec *TokenCodec) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		if err := bindJSON(c, &req); err != nil {
			fail(c, err)
			return
		}
		req.Email = strings.ToLower(strings.TrimSpace(req.Email))
		if err := req.Validate(); err != nil {
			fail(c, err)
			return
		}

		u, err := st.UserByEmail(c.Request.Context(), req.Email)
		if err != nil && KindOf(err) != KindNotFound {
			fail(c, err)
			return
		}
		if err != nil || !checkPassword(u.PasswordHash, req.Password) {
			fail(c, unauthenticated("invalid email or password"))
			return
		}

		tok, err := codec.Issue(u.Email)
		if err != nil {
			fail(c, fmt.Errorf("sign token: %w", err))
			return
		}

		st.LogAction(c.Request.Context(), &u.ID, "login", "success")
		c.JSON(http.StatusOK, TokenOut{AccessToken: tok, TokenType: "bearer", Role: u.Role()})
	}
}

// GET /auth/me
func Me() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, currentUser(c))
	}
}
