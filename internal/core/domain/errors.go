package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRequest rejects a malformed batch before any storage access.
	ErrInvalidRequest = errors.New("invalid sale request")

	// ErrTimeout reports a bounded lock wait that expired. Retryable.
	ErrTimeout = errors.New("sale timed out")
)

// ProductNotFoundError aborts a batch when a line item references an unknown
// product code.
type ProductNotFoundError struct {
	Code string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.Code)
}

// InsufficientStockError aborts a batch when a decrement would drive the
// quantity on hand below zero.
type InsufficientStockError struct {
	Code string
	Have int
	Want int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: have %d, want %d", e.Code, e.Have, e.Want)
}

// StorageError wraps an underlying read or write failure. Retryable.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
