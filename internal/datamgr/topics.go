package datamgr

import (
	"fmt"

	"github.com/betweencoffee/baristaboard/internal/eshop"
)

// Topic names one slice of the snapshot.
type Topic string

const (
	TopicBadgeSummary    Topic = eshop.FieldBadgeSummary
	TopicWaitingOrders   Topic = eshop.FieldWaitingOrders
	TopicPreparingOrders Topic = eshop.FieldPreparingOrders
	TopicReadyOrders     Topic = eshop.FieldReadyOrders
	TopicCompletedOrders Topic = eshop.FieldCompletedOrders
	TopicAllData         Topic = "all_data"
)

// Topics lists every topic in notification order.
var Topics = []Topic{
	TopicBadgeSummary,
	TopicWaitingOrders,
	TopicPreparingOrders,
	TopicReadyOrders,
	TopicCompletedOrders,
	TopicAllData,
}

// ParseTopic validates a topic name.
func ParseTopic(s string) (Topic, error) {
	for _, t := range Topics {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown topic %q", s)
}

// Update is what a listener receives: its topic and a private copy of the
// snapshot it was notified for.
type Update struct {
	Topic    Topic
	Snapshot eshop.Snapshot
	// Seq identifies the load that produced Snapshot. Every topic notified
	// for the same load sees the same Seq.
	Seq uint64
}

// Orders returns the order list the topic names. Badge and all-data
// updates return nil.
func (u Update) Orders() []eshop.Order {
	return ordersFor(u.Snapshot, u.Topic)
}

// OrdersFor returns another topic's list from the same snapshot. All-data
// listeners use it to pick their slice.
func (u Update) OrdersFor(topic Topic) []eshop.Order {
	return ordersFor(u.Snapshot, topic)
}

// Badges returns the aggregate counts.
func (u Update) Badges() eshop.BadgeSummary {
	return u.Snapshot.BadgeSummary
}

func ordersFor(s eshop.Snapshot, topic Topic) []eshop.Order {
	switch topic {
	case TopicWaitingOrders:
		return s.WaitingOrders
	case TopicPreparingOrders:
		return s.PreparingOrders
	case TopicReadyOrders:
		return s.ReadyOrders
	case TopicCompletedOrders:
		return s.CompletedOrders
	default:
		return nil
	}
}

// Listener is notified for every snapshot on the topics it registered
// for. Implementations must be comparable (pointer types are): the same
// listener registers at most once per topic.
type Listener interface {
	OnSnapshot(Update) error
}

// Func is a Listener backed by a function. Keep the pointer to register
// and unregister the same listener.
type Func struct {
	fn func(Update) error
}

// ListenFunc wraps fn.
func ListenFunc(fn func(Update) error) *Func {
	return &Func{fn: fn}
}

// OnSnapshot calls the wrapped function.
func (f *Func) OnSnapshot(u Update) error {
	return f.fn(u)
}
