package eshop

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestOrderTimeFallbacks(t *testing.T) {
	o := Order{CreatedAt: "2025-03-01T10:00:00Z"}
	created := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	if !o.Created().Equal(created) {
		t.Fatalf("Created = %v, want %v", o.Created(), created)
	}
	if !o.ReadyTime().Equal(created) || !o.PickedUp().Equal(created) {
		t.Fatalf("ReadyTime/PickedUp should fall back to created_at")
	}

	o.CreatedAtISO = "2025-03-01T09:00:00Z"
	o.ReadyAt = "2025-03-01T11:00:00Z"
	if o.Created().Hour() != 9 || o.ReadyTime().Hour() != 11 {
		t.Fatalf("Created=%v ReadyTime=%v", o.Created(), o.ReadyTime())
	}
}

func TestOrderCategoryAndQuantity(t *testing.T) {
	tests := []struct {
		order Order
		want  string
	}{
		{Order{IsMixedOrder: true}, "mixed"},
		{Order{HasCoffee: true, HasBeans: true}, "mixed"},
		{Order{HasCoffee: true}, "coffee"},
		{Order{IsBeansOnly: true}, "beans"},
		{Order{}, ""},
	}
	for _, tt := range tests {
		if got := tt.order.Category(); got != tt.want {
			t.Errorf("Category(%+v) = %q, want %q", tt.order, got, tt.want)
		}
	}

	o := Order{Items: []OrderItem{{Quantity: 2}, {Quantity: 0}}}
	if o.Quantity() != 3 {
		t.Fatalf("Quantity = %d, want 3", o.Quantity())
	}
	if (Order{ItemCount: 4}).Quantity() != 4 {
		t.Fatalf("Quantity should fall back to item_count")
	}
}

func TestSnapshotCloneIsDeep(t *testing.T) {
	snap := Snapshot{
		WaitingOrders: []Order{{ID: 1, Items: []OrderItem{{Name: "Latte"}}}},
		Defaulted:     []string{FieldReadyOrders},
	}
	dup := snap.Clone()
	dup.WaitingOrders[0].ID = 99
	dup.WaitingOrders[0].Items[0].Name = "Mocha"
	dup.Defaulted[0] = "x"

	if snap.WaitingOrders[0].ID != 1 || snap.WaitingOrders[0].Items[0].Name != "Latte" {
		t.Fatalf("Clone shared order data: %#v", snap.WaitingOrders)
	}
	if snap.Defaulted[0] != FieldReadyOrders {
		t.Fatalf("Clone shared Defaulted slice")
	}
}

func TestItemLineTotalAndOptions(t *testing.T) {
	it := OrderItem{Price: decimal.RequireFromString("18.5"), Quantity: 2, CupLevel: "Large", Weight: "250g"}
	if it.LineTotal().String() != "37" {
		t.Fatalf("LineTotal = %s, want 37", it.LineTotal())
	}
	it.TotalPrice = decimal.RequireFromString("35")
	if it.LineTotal().String() != "35" {
		t.Fatalf("LineTotal should prefer server total, got %s", it.LineTotal())
	}
	if got := it.Options(); len(got) != 2 || got[0] != "Large" || got[1] != "250g" {
		t.Fatalf("Options = %v", got)
	}
}
