package realtime

import (
	"fmt"
	"log"

	"github.com/betweencoffee/baristaboard/internal/toast"
)

// Notifier shows user-facing notifications.
type Notifier interface {
	Show(opts toast.Options) string
}

// Refresher receives "something changed" signals. Implementations
// debounce; the dispatcher forwards every signal as it arrives.
type Refresher interface {
	Refresh()
}

// RefreshFunc adapts a function to Refresher.
type RefreshFunc func()

// Refresh calls f.
func (f RefreshFunc) Refresh() { f() }

// Dispatcher maps staff channel frames to notifications and refresh
// signals. It never reads application state.
type Dispatcher struct {
	notify  Notifier
	refresh Refresher
	cue     func()
}

// NewDispatcher wires a dispatcher. cue may be nil.
func NewDispatcher(notify Notifier, refresh Refresher, cue func()) *Dispatcher {
	if cue == nil {
		cue = func() {}
	}
	return &Dispatcher{notify: notify, refresh: refresh, cue: cue}
}

// Handle processes one frame.
func (d *Dispatcher) Handle(frame Frame) {
	switch f := frame.(type) {
	case NewOrder:
		d.show(toast.Info, "New order", fmt.Sprintf("New order #%s", f.OrderID))
		d.cue()
		d.refresh.Refresh()

	case OrderReady:
		d.show(toast.Success, "Order ready",
			fmt.Sprintf("Order #%s ready (pickup code: %s)", f.OrderID, f.PickupCode))
		d.cue()
		d.refresh.Refresh()

	case OrderCollected:
		d.show(toast.Info, "Order collected", fmt.Sprintf("Order #%s collected", f.OrderID))
		d.refresh.Refresh()

	case QueueUpdate, OrderUpdate, PaymentUpdate:
		d.refresh.Refresh()

	case SystemMessage:
		if f.Message != "" {
			d.show(toast.ParseSeverity(f.MessageType), "System", f.Message)
		}

	case OrderStatusUpdate, QueuePositionUpdate, PaymentStatusUpdate, OrderReadyNotification:
		d.refresh.Refresh()

	case Ping, Pong, Heartbeat:

	case Unknown:
		log.Printf("realtime: unhandled frame type %q, refreshing", f.Type())
		d.refresh.Refresh()

	default:
		log.Printf("realtime: unexpected frame %T", frame)
		d.refresh.Refresh()
	}
}

func (d *Dispatcher) show(sev toast.Severity, title, message string) {
	if d.notify == nil {
		return
	}
	d.notify.Show(toast.Options{Title: title, Message: message, Severity: sev})
}
