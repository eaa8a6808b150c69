// Package errx provides application error kinds that map cleanly to HTTP status codes.
// Kinds cover both generic failures (NotFound, Invalid) and the auth lifecycle
// (Unauthorized, RefreshRequired, AdminRequired, InvalidCredential). Storage-facing
// kinds (NotFound, AlreadyExists) can carry an entity tag so "credential not found"
// and "account not found" stay distinguishable without per-entity error types.

package errx

import (
	"errors"
	"fmt"
	"strings"
)

type Kind uint8

const (
	Unknown Kind = iota
	NotFound
	AlreadyExists
	Invalid
	Unauthorized
	RefreshRequired
	AdminRequired
	InvalidCredential
	Unavailable
	Internal
)

type Error struct {
	Op     string
	Kind   Kind
	Entity string // optional entity tag for NotFound/AlreadyExists
	Err    error
}

func E(op string, kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{
		Op:   op,
		Kind: kind,
		Err:  err,
	}
}

// Tag is E with an entity tag. The tag scopes NotFound and AlreadyExists to a
// record kind, so callers can tell which entity a translated storage failure
// refers to.
func Tag(op string, kind Kind, entity string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{
		Op:     op,
		Kind:   kind,
		Entity: entity,
		Err:    err,
	}
}

// String returns the string representation of the error kind.
func (k Kind) String() string {
	switch k {
	case Unknown:
		return "Unknown"
	case NotFound:
		return "NotFound"
	case AlreadyExists:
		return "AlreadyExists"
	case Invalid:
		return "Invalid"
	case Unauthorized:
		return "Unauthorized"
	case RefreshRequired:
		return "RefreshRequired"
	case AdminRequired:
		return "AdminRequired"
	case InvalidCredential:
		return "InvalidCredential"
	case Unavailable:
		return "Unavailable"
	case Internal:
		return "Internal"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

func (e *Error) Error() string {
	parts := make([]string, 0, 3)
	if e.Op != "" {
		parts = append(parts, e.Op)
	}
	if msg := entityMessage(e.Kind, e.Entity); msg != "" {
		parts = append(parts, msg)
	}
	if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}
	return strings.Join(parts, ": ")
}

// entityMessage renders the entity-scoped phrase for tagged errors.
func entityMessage(kind Kind, entity string) string {
	if entity == "" {
		return ""
	}
	switch kind {
	case NotFound:
		return entity + " not found"
	case AlreadyExists:
		return entity + " already exists"
	default:
		return ""
	}
}

func (e *Error) Unwrap() error { return e.Err }

func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

func OpOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Op
	}
	return ""
}

// EntityOf returns the first non-empty entity tag in the error chain, or ""
// when no error in the chain carries one. Layers that rewrap a tagged error
// with E keep the tag reachable.
func EntityOf(err error) string {
	var e *Error
	for errors.As(err, &e) {
		if e.Entity != "" {
			return e.Entity
		}
		err = e.Err
	}
	return ""
}

// Message returns a user-presentable message for the error: the entity-scoped
// phrase when one exists, otherwise a fixed per-kind phrase. Fixed phrases keep
// responses uniform; in particular every InvalidCredential failure reads the
// same regardless of which check rejected the login.
func Message(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return "internal server error"
	}
	if msg := entityMessage(e.Kind, EntityOf(err)); msg != "" {
		return msg
	}
	switch e.Kind {
	case NotFound:
		return "resource not found"
	case AlreadyExists:
		return "resource already exists"
	case Invalid:
		if e.Err != nil {
			return e.Err.Error()
		}
		return "invalid input"
	case Unauthorized:
		return "not authorized"
	case RefreshRequired:
		return "refresh token required"
	case AdminRequired:
		return "admin rights required"
	case InvalidCredential:
		return "invalid username or password"
	case Unavailable:
		return "service unavailable"
	default:
		return "internal server error"
	}
}
