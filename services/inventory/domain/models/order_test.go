package models

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func testLines() []OrderLine {
	return []OrderLine{{ItemID: uuid.New(), Quantity: decimal.NewFromInt(3), Unit: "pcs"}}
}

func TestNewOrderInitialStatus(t *testing.T) {
	orgID := uuid.New()

	sales, err := NewOrder(orgID, OrderSales, "SO-001", ChannelOwnStore, "", "", testLines())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sales.Status != StatusDraft {
		t.Fatalf("sales order starts %s, want %s", sales.Status, StatusDraft)
	}

	purchase, err := NewOrder(orgID, OrderPurchase, "PO-001", "", "SUP-1", "", testLines())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if purchase.Status != StatusDraft {
		t.Fatalf("purchase order starts %s, want %s", purchase.Status, StatusDraft)
	}

	assembly, err := NewOrder(orgID, OrderAssembly, "AO-001", "", "", "", testLines())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if assembly.Status != StatusPending {
		t.Fatalf("assembly order starts %s, want %s", assembly.Status, StatusPending)
	}
}

func TestNewOrderValidation(t *testing.T) {
	orgID := uuid.New()

	if _, err := NewOrder(orgID, OrderSales, "", ChannelOwnStore, "", "", testLines()); err == nil {
		t.Fatal("expected error for missing order_no")
	}
	if _, err := NewOrder(orgID, OrderSales, "SO-001", ChannelOwnStore, "", "", nil); err == nil {
		t.Fatal("expected error for empty lines")
	}
	if _, err := NewOrder(orgID, OrderSales, "SO-001", "marketplace", "", "", testLines()); err == nil {
		t.Fatal("expected error for unknown sales channel")
	}

	badLine := []OrderLine{{ItemID: uuid.New(), Quantity: decimal.Zero}}
	if _, err := NewOrder(orgID, OrderSales, "SO-001", ChannelOwnStore, "", "", badLine); err == nil {
		t.Fatal("expected error for non-positive line quantity")
	}

	// Channel is only enforced for sales orders.
	if _, err := NewOrder(orgID, OrderPurchase, "PO-001", "", "SUP-1", "", testLines()); err != nil {
		t.Fatalf("purchase order without channel: unexpected error: %v", err)
	}
}

func TestOrderTypeReferenceType(t *testing.T) {
	tests := []struct {
		typ  OrderType
		want ReferenceType
	}{
		{OrderSales, RefSalesOrder},
		{OrderAssembly, RefAssemblyOrder},
		{OrderPurchase, RefPurchaseOrder},
	}
	for _, tt := range tests {
		if got := tt.typ.ReferenceType(); got != tt.want {
			t.Errorf("%s.ReferenceType() = %s, want %s", tt.typ, got, tt.want)
		}
	}
}

func TestOrderStatusTerminal(t *testing.T) {
	for _, s := range []OrderStatus{StatusCompleted, StatusCancelled, StatusReceived} {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	for _, s := range []OrderStatus{StatusDraft, StatusSubmitted, StatusPendingPayment, StatusProcessing, StatusPending, StatusInProgress} {
		if s.Terminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}
