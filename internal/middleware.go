package internal

import (
	"github.com/gin-gonic/gin"
)

const userKey = "user"

// CurrentUser resolves the caller's account for routes that cannot run
// anonymously, independently of how the gateway classified the path. The
// token comes from the Authorization header or, failing that, from the
// identity the gateway attached.
func CurrentUser(st Store, codec *TokenCodec) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c.GetHeader("Authorization"))
		if raw == "" {
			if id, ok := IdentityFrom(c); ok {
				raw = id.Token
			}
		}
		if raw == "" {
			fail(c, unauthenticated("not authenticated"))
			return
		}

		claims, err := codec.Decode(raw)
		if err != nil {
			fail(c, unauthenticated("invalid token"))
			return
		}
		if claims.Subject == "" {
			fail(c, unauthenticated("invalid token payload"))
			return
		}

		u, err := st.UserByEmail(c.Request.Context(), claims.Subject)
		if err != nil {
			fail(c, err)
			return
		}

		c.Set(userKey, &u)
		c.Next()
	}
}

func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		u := currentUser(c)
		if u == nil || !u.Admin {
			fail(c, forbidden("admin access required"))
			return
		}
		c.Next()
	}
}

func currentUser(c *gin.Context) *User {
	v, ok := c.Get(userKey)
	if !ok {
		return nil
	}
	u, _ := v.(*User)
	return u
}

func uid(c *gin.Context) int {
	return currentUser(c).ID
}
