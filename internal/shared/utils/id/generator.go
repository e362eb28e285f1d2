package id

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/segmentio/ksuid"
)

// NewRunID generates a sortable identifier for one reminder processing run.
func NewRunID() string {
	return fmt.Sprintf("run-%s", ksuid.New().String())
}

// NewRecordID generates the primary key for a persisted reminder record.
// UUIDv7 keeps insertion order roughly aligned with key order.
func NewRecordID() string {
	v7, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return v7.String()
}

// NewCorrelationID generates a request correlation identifier.
func NewCorrelationID() string {
	return uuid.NewString()
}
