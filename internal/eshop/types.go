package eshop

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/betweencoffee/baristaboard/internal/timefmt"
)

// Order status values as reported by the backend.
const (
	StatusWaiting   = "waiting"
	StatusPreparing = "preparing"
	StatusReady     = "ready"
	StatusCompleted = "completed"
)

// BadgeSummary holds the per-status order counts.
type BadgeSummary struct {
	Waiting   int `json:"waiting"`
	Preparing int `json:"preparing"`
	Ready     int `json:"ready"`
	Completed int `json:"completed"`
}

// Total returns the sum of all counts.
func (b BadgeSummary) Total() int {
	return b.Waiting + b.Preparing + b.Ready + b.Completed
}

// Snapshot is one consolidated read of the order queue.
type Snapshot struct {
	BadgeSummary    BadgeSummary `json:"badge_summary"`
	WaitingOrders   []Order      `json:"waiting_orders"`
	PreparingOrders []Order      `json:"preparing_orders"`
	ReadyOrders     []Order      `json:"ready_orders"`
	CompletedOrders []Order      `json:"completed_orders"`

	// ServerTime is the envelope timestamp, zero when absent.
	ServerTime time.Time `json:"-"`
	// Defaulted lists fields that were missing or malformed and got safe defaults.
	Defaulted []string `json:"-"`
}

// Clone returns a deep copy so callers never share slices with the owner.
func (s Snapshot) Clone() Snapshot {
	dup := s
	dup.WaitingOrders = cloneOrders(s.WaitingOrders)
	dup.PreparingOrders = cloneOrders(s.PreparingOrders)
	dup.ReadyOrders = cloneOrders(s.ReadyOrders)
	dup.CompletedOrders = cloneOrders(s.CompletedOrders)
	if s.Defaulted != nil {
		dup.Defaulted = append([]string(nil), s.Defaulted...)
	}
	return dup
}

// TotalOrders counts orders across all lists.
func (s Snapshot) TotalOrders() int {
	return len(s.WaitingOrders) + len(s.PreparingOrders) + len(s.ReadyOrders) + len(s.CompletedOrders)
}

// Order mirrors the serialized order payload.
type Order struct {
	ID            int64           `json:"id"`
	PickupCode    string          `json:"pickup_code"`
	Name          string          `json:"name"`
	Phone         string          `json:"phone"`
	Status        string          `json:"status"`
	StatusDisplay string          `json:"status_display"`
	PaymentStatus string          `json:"payment_status"`
	PaymentMethod string          `json:"payment_method"`
	IsPaid        bool            `json:"is_paid"`
	IsQuickOrder  bool            `json:"is_quick_order"`
	TotalPrice    decimal.Decimal `json:"total_price"`
	PickupTime    string          `json:"pickup_time"`

	CreatedAt                  string `json:"created_at"`
	CreatedAtISO               string `json:"created_at_iso"`
	UpdatedAt                  string `json:"updated_at"`
	ReadyAt                    string `json:"ready_at"`
	PickedUpAt                 string `json:"picked_up_at"`
	EstimatedReadyTime         string `json:"estimated_ready_time"`
	EstimatedCompletionTimeISO string `json:"estimated_completion_time_iso"`
	RemainingMinutes           int    `json:"remaining_minutes"`
	QueuePosition              int    `json:"queue_position"`
	Position                   int    `json:"position"`

	Items       []OrderItem `json:"items"`
	ItemCount   int         `json:"item_count"`
	CoffeeCount int         `json:"coffee_count"`
	BeanCount   int         `json:"bean_count"`

	HasCoffee    bool `json:"has_coffee"`
	HasBeans     bool `json:"has_beans"`
	IsBeansOnly  bool `json:"is_beans_only"`
	IsCoffeeOnly bool `json:"is_coffee_only"`
	IsMixedOrder bool `json:"is_mixed_order"`
}

// OrderItem is one display-only line of an order.
type OrderItem struct {
	Type          string          `json:"type"`
	Name          string          `json:"name"`
	Quantity      int             `json:"quantity"`
	Price         decimal.Decimal `json:"price"`
	TotalPrice    decimal.Decimal `json:"total_price"`
	Image         string          `json:"image"`
	CupLevel      string          `json:"cup_level"`
	MilkLevel     string          `json:"milk_level"`
	GrindingLevel string          `json:"grinding_level"`
	Weight        string          `json:"weight"`
}

// LineTotal returns the server total when present, else price × quantity.
func (i OrderItem) LineTotal() decimal.Decimal {
	if !i.TotalPrice.IsZero() {
		return i.TotalPrice
	}
	qty := i.Quantity
	if qty <= 0 {
		qty = 1
	}
	return i.Price.Mul(decimal.NewFromInt(int64(qty)))
}

// Options returns the non-empty descriptive attributes (size, milk, grind, weight).
func (i OrderItem) Options() []string {
	var out []string
	for _, v := range []string{i.CupLevel, i.MilkLevel, i.GrindingLevel, i.Weight} {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// Created returns the creation time, preferring the ISO field.
func (o Order) Created() time.Time {
	if t := timefmt.Parse(o.CreatedAtISO); !t.IsZero() {
		return t
	}
	return timefmt.Parse(o.CreatedAt)
}

// ReadyTime returns ready_at, falling back to creation time.
func (o Order) ReadyTime() time.Time {
	if t := timefmt.Parse(o.ReadyAt); !t.IsZero() {
		return t
	}
	return o.Created()
}

// PickedUp returns picked_up_at, falling back to creation time.
func (o Order) PickedUp() time.Time {
	if t := timefmt.Parse(o.PickedUpAt); !t.IsZero() {
		return t
	}
	return o.Created()
}

// EstimatedCompletion returns the estimate the countdown runs against.
func (o Order) EstimatedCompletion() time.Time {
	if t := timefmt.Parse(o.EstimatedCompletionTimeISO); !t.IsZero() {
		return t
	}
	return timefmt.Parse(o.EstimatedReadyTime)
}

// QueueRank returns the queue position, whichever field carries it.
func (o Order) QueueRank() int {
	if o.QueuePosition > 0 {
		return o.QueuePosition
	}
	return o.Position
}

// Category classifies the order as "coffee", "beans", "mixed" or "".
func (o Order) Category() string {
	switch {
	case o.IsMixedOrder || (o.HasCoffee && o.HasBeans):
		return "mixed"
	case o.IsCoffeeOnly || o.HasCoffee:
		return "coffee"
	case o.IsBeansOnly || o.HasBeans:
		return "beans"
	default:
		return ""
	}
}

// Quantity sums item quantities, falling back to item_count.
func (o Order) Quantity() int {
	total := 0
	for _, it := range o.Items {
		if it.Quantity > 0 {
			total += it.Quantity
		} else {
			total++
		}
	}
	if total == 0 {
		return o.ItemCount
	}
	return total
}

func cloneOrders(orders []Order) []Order {
	if orders == nil {
		return nil
	}
	dup := make([]Order, len(orders))
	for i, o := range orders {
		dup[i] = o
		if o.Items != nil {
			dup[i].Items = append([]OrderItem(nil), o.Items...)
		}
	}
	return dup
}
