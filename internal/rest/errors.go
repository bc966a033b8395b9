package rest

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// ValidationError reports user-fixable input problems with per-field detail.
type ValidationError struct {
	Msg    string
	Fields map[string]string
	Err    error
}

func (e ValidationError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	if len(e.Fields) > 0 {
		parts := make([]string, 0, len(e.Fields))
		for f, m := range e.Fields {
			parts = append(parts, fmt.Sprintf("%s: %s", f, m))
		}
		return strings.Join(parts, "; ")
	}
	return "validation error"
}

func (e ValidationError) Unwrap() error { return e.Err }

// NotAddressableError means the verb/resource combination is not permitted.
// Allowed carries the verbs that are.
type NotAddressableError struct {
	Verb    string
	Allowed []string
}

func (e NotAddressableError) Error() string {
	if e.Verb == "" {
		return "method not allowed"
	}
	return fmt.Sprintf("%s not allowed", e.Verb)
}

// GoneError means an addressed item does not exist or was deleted mid-flight.
type GoneError struct {
	Resource string
	Err      error
}

func (e GoneError) Error() string {
	if e.Resource == "" {
		return "gone"
	}
	return fmt.Sprintf("%s gone", e.Resource)
}

func (e GoneError) Unwrap() error { return e.Err }

// NotFoundError is a routing-level miss, distinct from Gone.
type NotFoundError struct {
	Resource string
	Err      error
}

func (e NotFoundError) Error() string {
	if e.Resource == "" {
		return "not found"
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

func (e NotFoundError) Unwrap() error { return e.Err }

// UnknownError wraps anything the dispatcher cannot classify. Its string
// form is reported; its internals are not.
type UnknownError struct {
	Err error
}

func (e UnknownError) Error() string {
	if e.Err == nil {
		return "unknown error"
	}
	return e.Err.Error()
}

func (e UnknownError) Unwrap() error { return e.Err }

func IsValidation(err error) bool {
	var target ValidationError
	return errors.As(err, &target)
}

func IsNotAddressable(err error) bool {
	var target NotAddressableError
	return errors.As(err, &target)
}

func IsGone(err error) bool {
	var target GoneError
	return errors.As(err, &target)
}

func IsNotFound(err error) bool {
	var target NotFoundError
	return errors.As(err, &target)
}

// RespondError maps toolkit errors to HTTP responses.
func RespondError(c *gin.Context, err error) {
	switch {
	case IsValidation(err):
		var ve ValidationError
		errors.As(err, &ve)
		c.JSON(http.StatusBadRequest, gin.H{
			"type":    "validation",
			"message": "Invalid operation requested",
			"errors":  ve.Fields,
		})
	case IsNotAddressable(err):
		var na NotAddressableError
		errors.As(err, &na)
		c.Header("Allow", strings.Join(na.Allowed, ", "))
		c.JSON(http.StatusMethodNotAllowed, gin.H{
			"type":    "not_allowed",
			"message": err.Error(),
			"allowed": na.Allowed,
		})
	case IsGone(err):
		c.Status(http.StatusGone)
	case IsNotFound(err):
		c.Status(http.StatusNotFound)
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"type":    "unknown",
			"message": fmt.Sprintf("Exception type %T", err),
			"error":   err.Error(),
		})
	}
}
