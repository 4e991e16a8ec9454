package service

import (
	"errors"
	"fmt"
)

// Kind classifies an error for the transport layer
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindConflict
	KindValidation
	KindUnauthorized
	KindForbidden
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindValidation:
		return "validation"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	}
	return "internal"
}

// Error is a classified service error with a human-readable message.
// Code refines the kind, e.g. a Conflict is either "already_exists" or "not_found".
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on kind, and on code when the target sets one
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Code == "" || t.Code == e.Code
}

var (
	ErrNotFound     = &Error{Kind: KindNotFound, Message: "not found"}
	ErrConflict     = &Error{Kind: KindConflict, Message: "conflict"}
	ErrValidation   = &Error{Kind: KindValidation, Message: "invalid input"}
	ErrUnauthorized = &Error{Kind: KindUnauthorized, Message: "authentication required"}
	ErrForbidden    = &Error{Kind: KindForbidden, Message: "permission denied"}

	// ErrAlreadyExists is a duplicate add of a unique relation
	ErrAlreadyExists = &Error{Kind: KindConflict, Code: "already_exists", Message: "already exists"}
	// ErrRelationNotFound is a remove of a relation that was never added.
	// It is a Conflict, distinct from ErrNotFound for a missing target.
	ErrRelationNotFound = &Error{Kind: KindConflict, Code: "not_found", Message: "not found"}
)

// NotFound builds a NotFound error for a missing entity
func NotFound(msg string) error {
	return &Error{Kind: KindNotFound, Code: "not_found", Message: msg}
}

// Validation builds a Validation error
func Validation(code, msg string) error {
	return &Error{Kind: KindValidation, Code: code, Message: msg}
}

// Forbidden builds a Forbidden error
func Forbidden(msg string) error {
	return &Error{Kind: KindForbidden, Code: "forbidden", Message: msg}
}

// Unauthorized builds an Unauthorized error
func Unauthorized(msg string) error {
	return &Error{Kind: KindUnauthorized, Code: "unauthorized", Message: msg}
}

func alreadyExists(msg string) error {
	return &Error{Kind: KindConflict, Code: ErrAlreadyExists.Code, Message: msg}
}

func relationNotFound(msg string) error {
	return &Error{Kind: KindConflict, Code: ErrRelationNotFound.Code, Message: msg}
}

// KindOf returns the kind of err, KindInternal for unclassified errors
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
