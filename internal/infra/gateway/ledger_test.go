package gateway

import (
	"context"
	"strings"
	"testing"

	"github.com/aionios/aionios/internal/domain"
)

func TestMemoryLedgerLifecycle(t *testing.T) {
	ledger := NewMemoryLedger()
	ctx := context.Background()

	id, err := ledger.Register(ctx, "title", "", "0xcreator", "0xrecipient", domain.ConditionTime, "")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if !strings.HasPrefix(id, "mock_") {
		t.Fatalf("unexpected ledger id %q", id)
	}

	ready, err := ledger.IsReadyToOpen(ctx, id)
	if err != nil || !ready {
		t.Fatalf("expected registered capsule to be known, got %v %v", ready, err)
	}

	status, err := ledger.Status(ctx, id)
	if err != nil || status != domain.StatusSealed {
		t.Fatalf("expected SEALED got %v %v", status, err)
	}

	ok, err := ledger.Open(ctx, id, "0xrecipient")
	if err != nil || !ok {
		t.Fatalf("open failed: %v %v", ok, err)
	}

	status, _ = ledger.Status(ctx, id)
	if status != domain.StatusOpened {
		t.Fatalf("expected OPENED got %s", status)
	}
}

func TestMemoryLedgerOpenUnknown(t *testing.T) {
	ledger := NewMemoryLedger()

	ok, err := ledger.Open(context.Background(), "mock_unknown", "0xanyone")
	if err != nil {
		t.Fatalf("open returned error: %v", err)
	}
	if ok {
		t.Fatalf("opening an unknown ledger id must not succeed")
	}
}
