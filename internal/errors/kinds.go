package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Kind classifies a domain failure independently of transport.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindForbidden
	KindUnauthenticated
	KindConflict
	KindInvalidTransition
	KindValidation
	KindSelfOperation
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindConflict:
		return "conflict"
	case KindInvalidTransition:
		return "invalid_transition"
	case KindValidation:
		return "validation"
	case KindSelfOperation:
		return "self_operation"
	case KindUnavailable:
		return "unavailable"
	default:
		return "internal"
	}
}

// Error is returned by the service layer. Handlers turn it into a response with Respond.
type Error struct {
	Kind    Kind
	Message string
	Details interface{}
}

func (e *Error) Error() string {
	return e.Message
}

// Is matches an *Error of the same Kind. A target without a message matches
// any error of its Kind, so errors.Is(err, New(KindConflict, "")) tests the class.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t.Kind != e.Kind {
		return false
	}
	return t.Message == "" || t.Message == e.Message
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func NewWithDetails(kind Kind, message string, details interface{}) *Error {
	return &Error{Kind: kind, Message: message, Details: details}
}

func NotFoundf(format string, args ...interface{}) *Error {
	return New(KindNotFound, fmt.Sprintf(format, args...))
}

func Forbiddenf(format string, args ...interface{}) *Error {
	return New(KindForbidden, fmt.Sprintf(format, args...))
}

func Conflictf(format string, args ...interface{}) *Error {
	return New(KindConflict, fmt.Sprintf(format, args...))
}

func Validationf(format string, args ...interface{}) *Error {
	return New(KindValidation, fmt.Sprintf(format, args...))
}

// TransitionError reports a task status change outside the transition table.
type TransitionError struct {
	From string
	To   string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot move task from %s to %s", e.From, e.To)
}

// KindOf reports the Kind of err. Unclassified errors are KindInternal.
func KindOf(err error) Kind {
	var te *TransitionError
	if stderrors.As(err, &te) {
		return KindInvalidTransition
	}
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Respond writes the HTTP response for a service error.
func Respond(c *gin.Context, err error) {
	_ = c.Error(err)

	var te *TransitionError
	if stderrors.As(err, &te) {
		RespondWithError(c, http.StatusConflict, NewAPIErrorWithDetails(
			ErrCodeInvalidTransition, te.Error(), gin.H{"from": te.From, "to": te.To},
		))
		return
	}

	var e *Error
	if !stderrors.As(err, &e) {
		InternalError(c, "")
		return
	}

	switch e.Kind {
	case KindNotFound:
		RespondWithError(c, http.StatusNotFound, NewAPIErrorWithDetails(ErrCodeNotFound, e.Message, e.Details))
	case KindForbidden:
		RespondWithError(c, http.StatusForbidden, NewAPIErrorWithDetails(ErrCodeForbidden, e.Message, e.Details))
	case KindUnauthenticated:
		RespondWithError(c, http.StatusUnauthorized, NewAPIErrorWithDetails(ErrCodeUnauthorized, e.Message, e.Details))
	case KindConflict:
		RespondWithError(c, http.StatusConflict, NewAPIErrorWithDetails(ErrCodeConflict, e.Message, e.Details))
	case KindValidation:
		RespondWithError(c, http.StatusBadRequest, NewAPIErrorWithDetails(ErrCodeInvalidInput, e.Message, e.Details))
	case KindSelfOperation:
		RespondWithError(c, http.StatusBadRequest, NewAPIErrorWithDetails(ErrCodeSelfOperation, e.Message, e.Details))
	case KindUnavailable:
		ServiceUnavailable(c, e.Message)
	default:
		InternalError(c, "")
	}
}
