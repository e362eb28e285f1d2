package id

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestIDsRoundTripThroughContext(t *testing.T) {
	ctx := WithRunID(context.Background(), "run-1")
	ctx = WithCorrelationID(ctx, "corr-1")
	ctx = WithTrigger(ctx, "http")

	ids := IDsFromContext(ctx)
	if ids.RunID != "run-1" || ids.CorrelationID != "corr-1" || ids.Trigger != "http" {
		t.Fatalf("unexpected ids: %+v", ids)
	}
}

func TestEmptyValuesAreNotStored(t *testing.T) {
	base := context.Background()
	if WithRunID(base, "") != base {
		t.Fatal("expected empty run id to return original context")
	}
	if RunIDFromContext(nil) != "" { //nolint:staticcheck // nil context is tolerated
		t.Fatal("expected empty run id for nil context")
	}
}

func TestGenerators(t *testing.T) {
	if runID := NewRunID(); !strings.HasPrefix(runID, "run-") {
		t.Fatalf("expected run- prefix, got %q", runID)
	}
	if _, err := uuid.Parse(NewRecordID()); err != nil {
		t.Fatalf("record id is not a uuid: %v", err)
	}
	if NewCorrelationID() == NewCorrelationID() {
		t.Fatal("expected distinct correlation ids")
	}
}
