// Package apperr defines the closed set of domain errors surfaced by the API.
// Each variant carries the HTTP status it is translated to at the boundary.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindValidation Kind = iota + 1
	KindDuplicateUsername
	KindAuthenticationFailed
	KindRegistrationFailed
	KindUpdateFailed
	KindNoUsers
	KindNotFound
	KindUnauthenticated
	KindForbidden
	KindStoreUnavailable
)

var kindNames = map[Kind]string{
	KindValidation:           "validation",
	KindDuplicateUsername:    "duplicate_username",
	KindAuthenticationFailed: "authentication_failed",
	KindRegistrationFailed:   "registration_failed",
	KindUpdateFailed:         "update_failed",
	KindNoUsers:              "no_users",
	KindNotFound:             "not_found",
	KindUnauthenticated:      "unauthenticated",
	KindForbidden:            "forbidden",
	KindStoreUnavailable:     "store_unavailable",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Status maps a kind to its client-visible HTTP status.
func (k Kind) Status() int {
	switch k {
	case KindNotFound:
		return http.StatusNotFound
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindStoreUnavailable:
		return http.StatusInternalServerError
	case KindValidation, KindDuplicateUsername, KindAuthenticationFailed,
		KindRegistrationFailed, KindUpdateFailed, KindNoUsers:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Error is a tagged domain error. Message is safe to show to clients;
// Err holds the underlying cause for logs only.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Status() int { return e.Kind.Status() }

// Is matches any *Error of the same kind, so callers can write
// errors.Is(err, apperr.ErrForbidden).
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// Kind-only sentinels for errors.Is comparisons.
var (
	ErrValidation           = &Error{Kind: KindValidation}
	ErrDuplicateUsername    = &Error{Kind: KindDuplicateUsername}
	ErrAuthenticationFailed = &Error{Kind: KindAuthenticationFailed}
	ErrRegistrationFailed   = &Error{Kind: KindRegistrationFailed}
	ErrUpdateFailed         = &Error{Kind: KindUpdateFailed}
	ErrNoUsers              = &Error{Kind: KindNoUsers}
	ErrNotFound             = &Error{Kind: KindNotFound}
	ErrUnauthenticated      = &Error{Kind: KindUnauthenticated}
	ErrForbidden            = &Error{Kind: KindForbidden}
	ErrStoreUnavailable     = &Error{Kind: KindStoreUnavailable}
)

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

func Validation(msg string) *Error { return New(KindValidation, msg) }

func DuplicateUsername(username string) *Error {
	return New(KindDuplicateUsername, fmt.Sprintf("Username %s is taken.", username))
}

// AuthenticationFailed deliberately carries no detail about which credential was wrong.
func AuthenticationFailed() *Error { return New(KindAuthenticationFailed, "Invalid credentials.") }

func NotFound(msg string) *Error { return New(KindNotFound, msg) }

func Unauthenticated(msg string) *Error { return New(KindUnauthenticated, msg) }

func Forbidden() *Error { return New(KindForbidden, "Unauthorized") }

func StoreUnavailable(err error) *Error {
	return Wrap(KindStoreUnavailable, "internal server error", err)
}

// From returns err as an *Error, classifying anything unknown as a store failure.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return StoreUnavailable(err)
}
