package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ValidationError rejects malformed input before any state is touched.
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

// NotFoundError reports a missing member or record.
type NotFoundError struct {
	Entity string
	ID     interface{}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %v not found", e.Entity, e.ID)
}

// ConflictError is a uniqueness violation; callers may retry with fresh input.
type ConflictError struct {
	Op  string
	Err error
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: conflict: %v", e.Op, e.Err)
}

func (e *ConflictError) Unwrap() error { return e.Err }

// TransactionError is a storage failure inside a multi-step write.
// The transaction has been rolled back.
type TransactionError struct {
	Op  string
	Err error
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("%s: transaction failed: %v", e.Op, e.Err)
}

func (e *TransactionError) Unwrap() error { return e.Err }

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountNotActive   = errors.New("account is not activated")
)

// classifyTxError turns an error returned from db.Transaction into a typed outcome.
// Typed errors raised inside the transaction pass through unchanged.
func classifyTxError(op string, err error) error {
	if err == nil {
		return nil
	}
	var (
		ve *ValidationError
		nf *NotFoundError
		ce *ConflictError
		te *TransactionError
	)
	switch {
	case errors.As(err, &ve), errors.As(err, &nf), errors.As(err, &ce), errors.As(err, &te):
		return err
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return &ConflictError{Op: op, Err: err}
	}
	return &TransactionError{Op: op, Err: err}
}

func isConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}
