package shared

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// ErrValidation indicates bad or missing input.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound indicates an unknown product, customer or entry.
	ErrNotFound = errors.New("not found")
	// ErrInsufficientStock occurs when a sale asks for more than is on hand.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrInsufficientPayment occurs when cash received is below the sale subtotal.
	ErrInsufficientPayment = errors.New("insufficient payment")
	// ErrEmptySale occurs when a sale is finalized without line items.
	ErrEmptySale = errors.New("sale has no items")
	// ErrNoBalance occurs when a customer has no pending credit.
	ErrNoBalance = errors.New("no outstanding balance")
	// ErrOverpayment occurs when a payment exceeds what is owed.
	ErrOverpayment = errors.New("payment exceeds balance")
)

// ValidationError describes a rejected input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Invalid is shorthand for building a ValidationError.
func Invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// NotFoundError names the kind and key of a missing entity.
type NotFoundError struct {
	Kind string
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.Key)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// InsufficientStockError reports the cumulative quantity requested against stock on hand.
type InsufficientStockError struct {
	Product   string
	Requested decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: requested %s, available %s", e.Product, e.Requested.String(), e.Available.String())
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// InsufficientPaymentError reports the required versus tendered amount.
type InsufficientPaymentError struct {
	Required decimal.Decimal
	Given    decimal.Decimal
}

func (e *InsufficientPaymentError) Error() string {
	return fmt.Sprintf("cash %s is less than subtotal %s", e.Given.StringFixed(2), e.Required.StringFixed(2))
}

func (e *InsufficientPaymentError) Unwrap() error { return ErrInsufficientPayment }

// NoBalanceError is returned when a customer has entries but none pending.
type NoBalanceError struct {
	Customer string
}

func (e *NoBalanceError) Error() string {
	return fmt.Sprintf("%s has no outstanding balance", e.Customer)
}

func (e *NoBalanceError) Unwrap() error { return ErrNoBalance }

// OverpaymentError reports an amount above the payable limit. Limit is the
// account balance for account-wide payments or the entry amount for targeted ones.
type OverpaymentError struct {
	Customer string
	Amount   decimal.Decimal
	Limit    decimal.Decimal
}

func (e *OverpaymentError) Error() string {
	return fmt.Sprintf("payment %s exceeds %s owed by %s", e.Amount.StringFixed(2), e.Limit.StringFixed(2), e.Customer)
}

func (e *OverpaymentError) Unwrap() error { return ErrOverpayment }
