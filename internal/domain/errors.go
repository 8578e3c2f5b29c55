package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrConsentRequired    = errors.New("consent is required")
	ErrPricingUnavailable = errors.New("pricing not set for the selected dates")
	ErrConflict           = errors.New("conflict")
	// ErrCapacityExceeded is the ledger's signal that a conditional decrement lost a race.
	ErrCapacityExceeded = errors.New("capacity exceeded")
)

// ValidationError rejects a request before any ledger access.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string { return e.Field + ": " + e.Msg }

func Invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Msg: fmt.Sprintf(format, args...)}
}

// ConflictError names the nights that can no longer be sold.
type ConflictError struct {
	Dates  []string
	Reason string // missing|blocked|sold_out|unknown_capacity
}

func (e *ConflictError) Error() string { return "conflict: " + e.Detail() }

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

func (e *ConflictError) Detail() string {
	if len(e.Dates) == 0 {
		return "the selected dates are no longer available"
	}
	return fmt.Sprintf("dates %s are no longer available (%s)", strings.Join(e.Dates, ", "), e.Reason)
}
