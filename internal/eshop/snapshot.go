package eshop

import (
	"bytes"
	"fmt"
	"log"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/betweencoffee/baristaboard/internal/timefmt"
)

// Field names of the snapshot payload.
const (
	FieldBadgeSummary    = "badge_summary"
	FieldWaitingOrders   = "waiting_orders"
	FieldPreparingOrders = "preparing_orders"
	FieldReadyOrders     = "ready_orders"
	FieldCompletedOrders = "completed_orders"
)

// envelope is the wrapper every queue endpoint answers with.
type envelope struct {
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data"`
	Error     string          `json:"error"`
	Message   string          `json:"message"`
	Timestamp string          `json:"timestamp"`
}

func (e envelope) failureMessage() string {
	if e.Error != "" {
		return e.Error
	}
	if e.Message != "" {
		return e.Message
	}
	return "request was not successful"
}

// ParseSnapshot validates a snapshot payload field by field. Missing or
// malformed fields are replaced by safe defaults and recorded in
// Snapshot.Defaulted; the payload as a whole is never rejected unless it
// is not a JSON object at all.
func ParseSnapshot(data []byte) (Snapshot, error) {
	var snap Snapshot

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		trimmed = []byte("{}")
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}

	var ok bool
	if snap.BadgeSummary, ok = parseBadges(fields[FieldBadgeSummary]); !ok {
		snap.Defaulted = append(snap.Defaulted, FieldBadgeSummary)
	}
	lists := []struct {
		name string
		dst  *[]Order
	}{
		{FieldWaitingOrders, &snap.WaitingOrders},
		{FieldPreparingOrders, &snap.PreparingOrders},
		{FieldReadyOrders, &snap.ReadyOrders},
		{FieldCompletedOrders, &snap.CompletedOrders},
	}
	for _, l := range lists {
		orders, ok := parseOrders(l.name, fields[l.name])
		*l.dst = orders
		if !ok {
			snap.Defaulted = append(snap.Defaulted, l.name)
		}
	}
	return snap, nil
}

// parseBadges reads the counts leniently. ok is false when the object was
// missing or any count had to be defaulted.
func parseBadges(raw json.RawMessage) (BadgeSummary, bool) {
	var counts map[string]json.RawMessage
	if len(raw) == 0 || json.Unmarshal(raw, &counts) != nil || counts == nil {
		return BadgeSummary{}, false
	}
	ok := true
	read := func(name string) int {
		n, valid := parseCount(counts[name])
		if !valid {
			ok = false
		}
		return n
	}
	b := BadgeSummary{
		Waiting:   read(StatusWaiting),
		Preparing: read(StatusPreparing),
		Ready:     read(StatusReady),
		Completed: read(StatusCompleted),
	}
	return b, ok
}

func parseCount(raw json.RawMessage) (int, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, false
	}
	if f < 0 {
		return 0, false
	}
	return int(f), true
}

// parseOrders decodes an order list. Orders that fail to decode are
// dropped individually; ok is false when the list itself was unusable.
func parseOrders(field string, raw json.RawMessage) ([]Order, bool) {
	if len(raw) == 0 {
		return []Order{}, false
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil || items == nil {
		return []Order{}, false
	}
	orders := make([]Order, 0, len(items))
	for i, item := range items {
		var o Order
		if err := json.Unmarshal(item, &o); err != nil {
			log.Printf("snapshot: dropping %s[%d]: %v", field, i, err)
			continue
		}
		orders = append(orders, o)
	}
	return orders, true
}

// DecodeSnapshotResponse unwraps the consolidated endpoint's envelope.
func DecodeSnapshotResponse(body []byte) (Snapshot, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Snapshot{}, fmt.Errorf("decode response: %w", err)
	}
	if !env.Success {
		return Snapshot{}, &APIError{Path: SnapshotPath, Message: env.failureMessage()}
	}
	// Defaults fill in fields inside data; a reply without data is a failure.
	data := bytes.TrimSpace(env.Data)
	if len(data) == 0 || data[0] != '{' {
		return Snapshot{}, &APIError{Path: SnapshotPath, Message: "missing data"}
	}
	snap, err := ParseSnapshot(data)
	if err != nil {
		return Snapshot{}, err
	}
	snap.ServerTime = timefmt.Parse(env.Timestamp)
	return snap, nil
}

// OrderRef is an order identifier that may arrive as a number or a string.
type OrderRef string

// UnmarshalJSON accepts 42, "42" and null.
func (r *OrderRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*r = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*r = OrderRef(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("order ref: %w", err)
	}
	*r = OrderRef(n.String())
	return nil
}

// Int returns the numeric id, or 0 when the ref is not numeric.
func (r OrderRef) Int() int64 {
	n, err := strconv.ParseInt(string(r), 10, 64)
	if err != nil {
		return 0
	}
	return n
}
