package service

import (
	"errors"
	"fmt"
)

// Kind classifies a service error for the HTTP boundary.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindConflict
	KindNotFound
	KindUnauthenticated
	KindExpired
	KindRevoked
	KindAccountInactive
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindExpired:
		return "expired"
	case KindRevoked:
		return "revoked"
	case KindAccountInactive:
		return "account_inactive"
	default:
		return "internal"
	}
}

// Error is the error type returned by every service operation. Message is
// safe to show to clients; Err carries the underlying cause for logs.
type Error struct {
	Kind    Kind
	Field   string
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

// KindOf returns the kind of err, KindInternal for foreign errors.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}

func validationErr(field, msg string) *Error {
	return &Error{Kind: KindValidation, Field: field, Message: msg}
}

func conflictErr(msg string, cause error) *Error {
	return &Error{Kind: KindConflict, Message: msg, Err: cause}
}

func notFoundErr(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

func internalErr(op string, cause error) *Error {
	return &Error{Kind: KindInternal, Message: op, Err: cause}
}

// Gate rejections. Each stage of the access gate maps to exactly one.
var (
	ErrNoToken         = &Error{Kind: KindUnauthenticated, Message: "no token, authorization denied"}
	ErrInvalidToken    = &Error{Kind: KindUnauthenticated, Message: "invalid token"}
	ErrTokenExpired    = &Error{Kind: KindExpired, Message: "token expired"}
	ErrTokenRevoked    = &Error{Kind: KindRevoked, Message: "token revoked"}
	ErrAccountNotFound = &Error{Kind: KindUnauthenticated, Message: "account not found"}
	ErrAccountInactive = &Error{Kind: KindAccountInactive, Message: "account inactive"}
)
