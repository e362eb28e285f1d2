package errors

import (
	"context"
	"errors"
	"fmt"
	"syscall"
	"testing"
)

func TestGetErrorType(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected ErrorType
	}{
		{name: "nil error", err: nil, expected: ErrorTypeUnknown},
		{name: "not found", err: NewNotFoundError("task", "t-1"), expected: ErrorTypeNotFound},
		{name: "wrapped not found", err: fmt.Errorf("lookup: %w", NewNotFoundError("task", "t-1")), expected: ErrorTypeNotFound},
		{name: "conflict", err: NewConflictError("t-1/1Hour", errors.New("23505")), expected: ErrorTypeConflict},
		{name: "delivery", err: NewDeliveryError(nil, "smtp down"), expected: ErrorTypeDelivery},
		{name: "store", err: NewStoreError("insert", errors.New("pool closed")), expected: ErrorTypeStore},
		{name: "plain", err: errors.New("boom"), expected: ErrorTypeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetErrorType(tt.err); got != tt.expected {
				t.Errorf("GetErrorType(%v) = %v, want %v", tt.err, got, tt.expected)
			}
		})
	}
}

func TestNewStoreErrorDoesNotDoubleWrap(t *testing.T) {
	inner := NewStoreError("select", errors.New("down"))
	outer := NewStoreError("insert", fmt.Errorf("retry: %w", inner))

	var storeErr *StoreError
	if !errors.As(outer, &storeErr) || storeErr.Op != "select" {
		t.Fatalf("expected original store error to be kept, got %v", outer)
	}
	if NewStoreError("noop", nil) != nil {
		t.Fatal("expected nil for nil error")
	}
}

func TestErrorMessages(t *testing.T) {
	if got := NewNotFoundError("task", "abc").Error(); got != "task abc not found" {
		t.Errorf("unexpected message %q", got)
	}
	if got := NewDeliveryError(errors.New("timeout"), "").Error(); got != "delivery failed: timeout" {
		t.Errorf("unexpected message %q", got)
	}
	if got := NewConflictError("k", nil).Error(); got != "conflict on k" {
		t.Errorf("unexpected message %q", got)
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{name: "nil", err: nil, expected: false},
		{name: "canceled", err: context.Canceled, expected: false},
		{name: "deadline", err: fmt.Errorf("query: %w", context.DeadlineExceeded), expected: true},
		{name: "econnrefused", err: fmt.Errorf("dial: %w", syscall.ECONNREFUSED), expected: true},
		{name: "string match", err: errors.New("read tcp: connection reset by peer"), expected: true},
		{name: "permanent", err: errors.New("syntax error at or near SELECT"), expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.expected {
				t.Errorf("IsTransient(%v) = %v, want %v", tt.err, got, tt.expected)
			}
		})
	}
}
