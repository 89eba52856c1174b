package models

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures for callers and for the HTTP status mapping.
type ErrorKind string

const (
	KindValidation   ErrorKind = "validation"
	KindNotFound     ErrorKind = "not_found"
	KindConflict     ErrorKind = "conflict"
	KindInvalidState ErrorKind = "invalid_state"
	KindExpired      ErrorKind = "expired"
	KindUnauthorized ErrorKind = "unauthorized"
)

// Error carries a kind, a stable machine code and a human-readable message.
type Error struct {
	Kind    ErrorKind
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

// Is matches another *Error by kind, and by code when the target sets one.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Code == "" || t.Code == e.Code)
}

// WithMessage returns a copy of e carrying a more specific message.
func (e *Error) WithMessage(format string, args ...any) *Error {
	c := *e
	c.Message = fmt.Sprintf(format, args...)
	return &c
}

// Wrap returns a copy of e wrapping cause.
func (e *Error) Wrap(cause error) *Error {
	c := *e
	c.Err = cause
	return &c
}

// Kind sentinels match any error of that kind.
var (
	ErrValidation   = &Error{Kind: KindValidation, Message: "validation failed"}
	ErrNotFound     = &Error{Kind: KindNotFound, Message: "not found"}
	ErrConflict     = &Error{Kind: KindConflict, Message: "conflict"}
	ErrInvalidState = &Error{Kind: KindInvalidState, Code: "invalid_state", Message: "ticket is not in a valid state for this operation"}
	ErrExpired      = &Error{Kind: KindExpired, Code: "ticket_expired", Message: "ticket expired"}
	ErrUnauthorized = &Error{Kind: KindUnauthorized, Message: "unauthorized"}
)

var (
	ErrMissingFields       = &Error{Kind: KindValidation, Code: "missing_fields", Message: "please provide all fields"}
	ErrInvalidRange        = &Error{Kind: KindValidation, Code: "invalid_range", Message: "invalid ticket ranges"}
	ErrInvalidTicketNumber = &Error{Kind: KindValidation, Code: "invalid_ticket_number", Message: "invalid ticket number"}
	ErrUnknownTicketName   = &Error{Kind: KindValidation, Code: "unknown_ticket_type_name", Message: "unknown ticket type name"}
	ErrInvalidPrice        = &Error{Kind: KindValidation, Code: "invalid_price", Message: "price must be positive with at most two decimal places"}
	ErrInvalidExpiry       = &Error{Kind: KindValidation, Code: "invalid_expiry", Message: "expiry duration must be at least one day"}
	ErrInvalidDigits       = &Error{Kind: KindValidation, Code: "invalid_digits", Message: "digits must match the width of both range bounds"}

	ErrTicketTypeNotFound = &Error{Kind: KindNotFound, Code: "ticket_type_not_found", Message: "ticket type not found"}
	ErrTicketNotFound     = &Error{Kind: KindNotFound, Code: "ticket_not_found", Message: "ticket not found"}
	ErrShopNotFound       = &Error{Kind: KindNotFound, Code: "shop_not_found", Message: "shop not found"}
	ErrAllocationNotFound = &Error{Kind: KindNotFound, Code: "allocation_not_found", Message: "allocation not found"}

	ErrTicketTypeOverlap = &Error{Kind: KindConflict, Code: "ticket_type_overlap", Message: "ticket ranges overlap with existing type"}
	ErrRangeConflict     = &Error{Kind: KindConflict, Code: "range_conflict", Message: "ticket ranges overlap with existing allocation"}
	ErrDuplicateTicket   = &Error{Kind: KindConflict, Code: "duplicate_ticket", Message: "ticket number already exists"}
	ErrShopExists        = &Error{Kind: KindConflict, Code: "shop_exists", Message: "shop already exists"}

	ErrNotTicketHolder = &Error{Kind: KindUnauthorized, Code: "not_ticket_holder", Message: "ticket was sold to another customer"}
	ErrForbidden       = &Error{Kind: KindUnauthorized, Code: "forbidden", Message: "forbidden"}
)

// KindOf returns the kind of err, or "" when err is not an *Error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
