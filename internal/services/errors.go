package services

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/xxwlkq/ecommerce-system/internal/repos"
)

var (
	ErrNotFound            = repos.ErrNotFound
	ErrDuplicate           = repos.ErrDuplicate
	ErrInvalidInput        = errors.New("invalid input")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrForbidden           = errors.New("forbidden")
	ErrInvalidState        = errors.New("invalid state")
	ErrEmptyCart           = errors.New("cart is empty")
	ErrNoAddress           = errors.New("no shipping address")
	ErrNotInCart           = errors.New("product not in cart")
	ErrBadCreds            = errors.New("invalid account or password")
)

// InputError names the offending field.
type InputError struct {
	Field  string
	Reason string
}

func (e *InputError) Error() string { return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason) }
func (e *InputError) Unwrap() error { return ErrInvalidInput }

func invalid(field, reason string) error { return &InputError{Field: field, Reason: reason} }

type InsufficientStockError struct {
	ProductID int64
	Name      string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s (requested %d, available %d)", e.Name, e.Requested, e.Available)
}
func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

type InsufficientBalanceError struct {
	Balance   decimal.Decimal
	Total     decimal.Decimal
	Shortfall decimal.Decimal
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: need %s more", e.Shortfall.StringFixed(2))
}
func (e *InsufficientBalanceError) Unwrap() error { return ErrInsufficientBalance }
