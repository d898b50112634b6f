package internal

import (
	"errors"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100

	// bcrypt only hashes the first 72 bytes and rejects anything longer.
	maxPasswordBytes = 72
)

// validationError flattens ozzo errors into one detail string.
func validationError(err error) error {
	if err == nil {
		return nil
	}
	if errs, ok := err.(validation.Errors); ok {
		parts := make([]string, 0, len(errs))
		for field, fe := range errs {
			parts = append(parts, field+": "+fe.Error())
		}
		sort.Strings(parts)
		return invalid(strings.Join(parts, "; "))
	}
	return invalid(err.Error())
}

type signupRequest struct {
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	PhoneNumber *string   `json:"phone_number"`
	Document    *string   `json:"document"`
	Password    string    `json:"password"`
	BirthDate   *Date     `json:"birth_date"`
	Position    *Position `json:"position"`
}

func (r signupRequest) Validate() error {
	return validationError(validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(6, 0), validation.By(passwordBytes)),
		validation.Field(&r.Position, validation.In(Goalkeeper, Defender, Midfielder, Forward)),
	))
}

func passwordBytes(value interface{}) error {
	if s, _ := value.(string); len(s) > maxPasswordBytes {
		return errors.New("the length must be no more than 72 bytes")
	}
	return nil
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r loginRequest) Validate() error {
	return validationError(validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	))
}

type createChampionshipRequest struct {
	Name          string `json:"name"`
	NumberPlayers int    `json:"number_players"`
}

func (r createChampionshipRequest) Validate() error {
	return validationError(validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.NumberPlayers, validation.Required, validation.Min(1)),
	))
}

type scheduleRequest struct {
	Date     *string `json:"date"`
	Location *string `json:"location"`
}

type scoreRequest struct {
	HomeScore *wholeNumber `json:"home_score"`
	AwayScore *wholeNumber `json:"away_score"`
}

// wholeNumber is an integer that also accepts integral JSON numbers written
// with a fraction or exponent, such as 2.0 or 1e1.
type wholeNumber int

func (n *wholeNumber) UnmarshalJSON(b []byte) error {
	f, err := strconv.ParseFloat(string(b), 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return invalid("score must be a whole number")
	}
	*n = wholeNumber(f)
	return nil
}

func (r scoreRequest) Validate() error {
	return validationError(validation.ValidateStruct(&r,
		validation.Field(&r.HomeScore, validation.NotNil, validation.Min(0)),
		validation.Field(&r.AwayScore, validation.NotNil, validation.Min(0)),
	))
}

var scheduleLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02T15:04"}

// parseScheduleDate accepts RFC 3339 or a local ISO 8601 datetime (read as UTC).
func parseScheduleDate(v string) (time.Time, error) {
	for _, layout := range scheduleLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, nil
		}
	}
	return time.Time{}, invalid("date must be an ISO 8601 datetime")
}

// bindJSON decodes the body; any decode failure, including a string where a
// number is expected, is a validation error.
func bindJSON(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		return invalid("invalid request body: " + err.Error())
	}
	return nil
}

func paramID(c *gin.Context, name string) (int, error) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		return 0, invalid(name + " must be a positive integer")
	}
	return id, nil
}

func pagination(c *gin.Context) (Pagination, error) {
	p := Pagination{Page: 1, PageSize: defaultPageSize}
	if v := c.Query("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return Pagination{}, invalid("page must be an integer >= 1")
		}
		p.Page = n
	}
	if v := c.Query("page_size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxPageSize {
			return Pagination{}, invalid("page_size must be an integer between 1 and 100")
		}
		p.PageSize = n
	}
	return p, nil
}
