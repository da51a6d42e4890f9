package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func validDraft() MovementDraft {
	return MovementDraft{
		ItemID:        uuid.New(),
		Type:          MovementReceipt,
		Quantity:      decimal.NewFromInt(5),
		Unit:          "kg",
		ReferenceType: RefManual,
		ReferenceID:   uuid.New(),
	}
}

func TestMovementDraftValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*MovementDraft)
		wantErr bool
	}{
		{"valid receipt", func(d *MovementDraft) {}, false},
		{"missing item", func(d *MovementDraft) { d.ItemID = uuid.Nil }, true},
		{"zero quantity", func(d *MovementDraft) { d.Quantity = decimal.Zero }, true},
		{"missing unit", func(d *MovementDraft) { d.Unit = "" }, true},
		{"negative receipt", func(d *MovementDraft) { d.Quantity = decimal.NewFromInt(-5) }, true},
		{"positive issue", func(d *MovementDraft) {
			d.Type = MovementIssue
			d.Quantity = decimal.NewFromInt(5)
		}, true},
		{"negative issue", func(d *MovementDraft) {
			d.Type = MovementIssue
			d.Quantity = decimal.NewFromInt(-5)
		}, false},
		{"negative adjustment", func(d *MovementDraft) {
			d.Type = MovementAdjustment
			d.Quantity = decimal.NewFromInt(-3)
		}, false},
		{"positive adjustment", func(d *MovementDraft) {
			d.Type = MovementAdjustment
			d.Quantity = decimal.NewFromInt(3)
		}, false},
		{"expiry on non-receipt", func(d *MovementDraft) {
			d.Type = MovementAdjustment
			now := time.Now()
			d.ExpiryDate = &now
		}, true},
		{"unknown reference type", func(d *MovementDraft) { d.ReferenceType = "invoice" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := validDraft()
			tt.mutate(&d)
			err := d.Validate()
			if tt.wantErr && err == nil {
				t.Fatal("expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestNewMovementSyncStatus(t *testing.T) {
	draft := validDraft()
	controlled := &Item{ID: draft.ItemID, Unit: "kg", StockControl: true}
	uncontrolled := &Item{ID: draft.ItemID, Unit: "kg", StockControl: false}

	if got := NewMovement(draft, controlled, draft.Quantity, uuid.New()).SyncStatus; got != SyncPending {
		t.Fatalf("stock-controlled item: sync status = %s, want %s", got, SyncPending)
	}
	if got := NewMovement(draft, uncontrolled, draft.Quantity, uuid.New()).SyncStatus; got != SyncNotRequired {
		t.Fatalf("uncontrolled item: sync status = %s, want %s", got, SyncNotRequired)
	}
}

func TestMovementTypeDirection(t *testing.T) {
	tests := []struct {
		typ  MovementType
		want int
	}{
		{MovementReceipt, 1},
		{MovementReturn, 1},
		{MovementProductionProduce, 1},
		{MovementIssue, -1},
		{MovementWriteOff, -1},
		{MovementAdjustment, 0},
	}
	for _, tt := range tests {
		if got := tt.typ.Direction(); got != tt.want {
			t.Errorf("%s.Direction() = %d, want %d", tt.typ, got, tt.want)
		}
	}
}

func TestIsBatchReceipt(t *testing.T) {
	mv := &Movement{Type: MovementReceipt, BatchNumber: "LOT-1"}
	if !mv.IsBatchReceipt() {
		t.Fatal("receipt with batch number should be a batch receipt")
	}
	if (&Movement{Type: MovementReceipt}).IsBatchReceipt() {
		t.Fatal("receipt without batch number is not a batch receipt")
	}
	if (&Movement{Type: MovementIssue, BatchNumber: "LOT-1"}).IsBatchReceipt() {
		t.Fatal("issue is never a batch receipt")
	}
}
