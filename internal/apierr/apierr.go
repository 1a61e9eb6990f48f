// Package apierr defines the error taxonomy shared by the REST client,
// the attempt repository and the attempt session.
package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Kind classifies a failure by how the caller should react to it.
type Kind string

const (
	KindAuthRequired   Kind = "AUTH_REQUIRED"
	KindValidation     Kind = "VALIDATION_ERROR"
	KindNotFound       Kind = "NOT_FOUND"
	KindConflict       Kind = "CONFLICT"
	KindNetworkFailure Kind = "NETWORK_FAILURE"
	KindServerError    Kind = "SERVER_ERROR"
)

// Sentinels for errors.Is matching on kind.
var (
	ErrAuthRequired   = &Error{Kind: KindAuthRequired}
	ErrValidation     = &Error{Kind: KindValidation}
	ErrNotFound       = &Error{Kind: KindNotFound}
	ErrConflict       = &Error{Kind: KindConflict}
	ErrNetworkFailure = &Error{Kind: KindNetworkFailure}
	ErrServerError    = &Error{Kind: KindServerError}
)

// Error is a normalized API failure.
type Error struct {
	Kind    Kind
	Status  int
	Code    string
	Message string
	Fields  map[string]string
	Err     error
}

// New creates an Error of the given kind with a message.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Wrap creates an Error of the given kind around a cause.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Status != 0 {
		fmt.Fprintf(&b, " (%d)", e.Status)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if len(e.Fields) > 0 {
		keys := make([]string, 0, len(e.Fields))
		for k := range e.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "; %s: %s", k, e.Fields[k])
		}
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports kind equality against the bare kind sentinels, so that
// errors.Is(err, ErrConflict) matches any Conflict error. Errors carrying a
// message or code only match themselves.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Message != "" || t.Code != "" || t.Status != 0 {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of err, or ServerError for unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindServerError
}

// KindForStatus maps an HTTP status code to a Kind.
func KindForStatus(status int) Kind {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return KindAuthRequired
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return KindValidation
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusConflict:
		return KindConflict
	default:
		return KindServerError
	}
}

// UserMessage is the text shown in the error banner.
func UserMessage(err error) string {
	switch KindOf(err) {
	case KindAuthRequired:
		return "Please log in to continue."
	case KindValidation:
		var e *Error
		if errors.As(err, &e) && e.Message != "" {
			return e.Message
		}
		return "The request was invalid."
	case KindNotFound:
		return "The requested test or attempt does not exist."
	case KindConflict:
		return "This attempt has already been submitted."
	case KindNetworkFailure:
		return "Network error. Check your connection and try again."
	default:
		return "Something went wrong on the server. Please try again."
	}
}
