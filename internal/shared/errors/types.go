package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"
)

// ErrorType classifies failures seen while processing a reminder.
type ErrorType int

const (
	// ErrorTypeUnknown is anything not covered below.
	ErrorTypeUnknown ErrorType = iota
	// ErrorTypeNotFound - a referenced task vanished.
	ErrorTypeNotFound
	// ErrorTypeConflict - idempotency key collision, recovered by re-reading.
	ErrorTypeConflict
	// ErrorTypeDelivery - the notifier reported failure.
	ErrorTypeDelivery
	// ErrorTypeStore - persistence layer unreachable or rejected the write.
	ErrorTypeStore
)

func (t ErrorType) String() string {
	switch t {
	case ErrorTypeNotFound:
		return "not_found"
	case ErrorTypeConflict:
		return "conflict"
	case ErrorTypeDelivery:
		return "delivery"
	case ErrorTypeStore:
		return "store"
	default:
		return "unknown"
	}
}

// NotFoundError reports a missing entity.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// ConflictError reports a uniqueness violation on an idempotency key.
type ConflictError struct {
	Key string
	Err error
}

func (e *ConflictError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("conflict on %s: %v", e.Key, e.Err)
	}
	return fmt.Sprintf("conflict on %s", e.Key)
}

func (e *ConflictError) Unwrap() error {
	return e.Err
}

// DeliveryError reports a failed notification attempt.
type DeliveryError struct {
	Err     error
	Message string
}

func (e *DeliveryError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("delivery failed: %v", e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// StoreError reports a persistence failure. Op names the store operation.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewNotFoundError builds a NotFoundError.
func NewNotFoundError(entity, id string) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: id}
}

// NewConflictError builds a ConflictError.
func NewConflictError(key string, err error) *ConflictError {
	return &ConflictError{Key: key, Err: err}
}

// NewDeliveryError builds a DeliveryError.
func NewDeliveryError(err error, message string) *DeliveryError {
	return &DeliveryError{Err: err, Message: message}
}

// NewStoreError wraps err as a StoreError unless it already is one.
func NewStoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	var storeErr *StoreError
	if errors.As(err, &storeErr) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// IsConflict reports whether err is a ConflictError.
func IsConflict(err error) bool {
	var target *ConflictError
	return errors.As(err, &target)
}

// IsDeliveryFailure reports whether err is a DeliveryError.
func IsDeliveryFailure(err error) bool {
	var target *DeliveryError
	return errors.As(err, &target)
}

// IsStoreFailure reports whether err is a StoreError.
func IsStoreFailure(err error) bool {
	var target *StoreError
	return errors.As(err, &target)
}

// GetErrorType classifies an error
func GetErrorType(err error) ErrorType {
	switch {
	case err == nil:
		return ErrorTypeUnknown
	case IsNotFound(err):
		return ErrorTypeNotFound
	case IsConflict(err):
		return ErrorTypeConflict
	case IsDeliveryFailure(err):
		return ErrorTypeDelivery
	case IsStoreFailure(err):
		return ErrorTypeStore
	default:
		return ErrorTypeUnknown
	}
}

// IsTransient reports whether err looks like a connectivity problem that a
// later run could get past.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno == syscall.ECONNREFUSED || errno == syscall.ECONNRESET || errno == syscall.EPIPE
	}

	lowerErr := strings.ToLower(err.Error())
	for _, pattern := range []string{"connection refused", "connection reset", "broken pipe", "timeout", "no route to host"} {
		if strings.Contains(lowerErr, pattern) {
			return true
		}
	}
	return false
}
