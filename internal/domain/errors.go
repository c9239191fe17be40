package domain

import (
	"errors"
	"fmt"
)

// ErrDuplicateActivePayment is returned by the payment store when an
// accepted or confirmed payment already exists for the invoice. Detection
// happens atomically inside the store via a partial unique index, never by
// a check-then-insert in application code.
var ErrDuplicateActivePayment = errors.New("an accepted or confirmed payment already exists for this invoice")

// ValidationError marks client-fixable input problems (malformed amounts,
// empty transactions, bad query params). Never logged as a server error.
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

type NotFoundError struct {
	Code    string
	Message string
}

func (e *NotFoundError) Error() string {
	return e.Message
}

// ConflictError covers business-rule rejections: already-paid or expired
// invoices and duplicate active payments.
type ConflictError struct {
	Code    string
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

// PreconditionError is returned on underpayment and carries the amount the
// client would have needed to declare.
type PreconditionError struct {
	Code           string
	Message        string
	RequiredAmount int64
}

func (e *PreconditionError) Error() string {
	return e.Message
}

// UpstreamError wraps failures of the price upstream or the broadcaster.
// Transient distinguishes connectivity failures from protocol/format drift
// in the upstream response.
type UpstreamError struct {
	Op        string
	Transient bool
	Err       error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// PersistenceError marks store failures other than the expected duplicate
// conflict.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
