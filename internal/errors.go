package internal

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindUnauthenticated
	KindForbidden
	KindNotFound
	KindConflict
)

// Status maps a kind onto the HTTP status the API answers with.
func (k Kind) Status() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Error is a domain failure with a client-facing detail.
type Error struct {
	Kind   Kind
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Detail + ": " + e.Err.Error()
	}
	return e.Detail
}

func (e *Error) Unwrap() error { return e.Err }

func invalid(detail string) *Error         { return &Error{Kind: KindValidation, Detail: detail} }
func unauthenticated(detail string) *Error { return &Error{Kind: KindUnauthenticated, Detail: detail} }
func forbidden(detail string) *Error       { return &Error{Kind: KindForbidden, Detail: detail} }
func notFound(detail string) *Error        { return &Error{Kind: KindNotFound, Detail: detail} }
func conflict(detail string) *Error        { return &Error{Kind: KindConflict, Detail: detail} }

func internalErr(err error, detail string) *Error {
	return &Error{Kind: KindInternal, Detail: detail, Err: err}
}

// KindOf reports the kind of err; anything that is not an *Error is internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// fail writes err as {"detail": ...} and stops the handler chain.
func fail(c *gin.Context, err error) {
	var e *Error
	if !errors.As(err, &e) {
		e = internalErr(err, "internal error")
	}
	if e.Kind == KindInternal {
		reqLog(c).WithError(err).Error(e.Detail)
	}
	c.AbortWithStatusJSON(e.Kind.Status(), gin.H{"detail": e.Detail})
}
