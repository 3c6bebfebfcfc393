package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrOrderValueExceeded = errors.New("order value exceeded")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrValidation         = errors.New("validation failed")
	ErrDuplicate          = errors.New("duplicate idempotency key")
	ErrConflict           = errors.New("conflict")
)

type NotFoundError struct {
	Entity string
	ID     int64
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("%s %d not found", e.Entity, e.ID) }
func (e *NotFoundError) Unwrap() error { return ErrNotFound }

type InsufficientStockError struct {
	ProductID   int64
	ProductName string
	Requested   int
	Available   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested %d, available %d",
		e.ProductName, e.Requested, e.Available)
}
func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

type OrderValueExceededError struct {
	Total decimal.Decimal
	Limit decimal.Decimal
}

func (e *OrderValueExceededError) Error() string {
	return fmt.Sprintf("order value exceeded: total %s is above the limit of %s",
		e.Total.StringFixed(2), e.Limit.StringFixed(2))
}
func (e *OrderValueExceededError) Unwrap() error { return ErrOrderValueExceeded }

type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid status transition: %s -> %s", e.From, e.To)
}
func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string { return e.Field + ": " + e.Reason }
func (e *ValidationError) Unwrap() error { return ErrValidation }

// ConflictError reports a uniqueness clash with an existing record.
type ConflictError struct {
	Entity string
	Field  string
	Value  string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s with %s %q already exists", e.Entity, e.Field, e.Value)
}
func (e *ConflictError) Unwrap() error { return ErrConflict }
