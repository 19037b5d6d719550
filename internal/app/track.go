package app

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/betweencoffee/baristaboard/internal/config"
	"github.com/betweencoffee/baristaboard/internal/eshop"
	"github.com/betweencoffee/baristaboard/internal/events"
	"github.com/betweencoffee/baristaboard/internal/realtime"
	"github.com/betweencoffee/baristaboard/internal/timefmt"
)

// Track follows one order on the customer channel and writes every update
// to out. It returns nil when ctx is done and an error once the channel
// gives up reconnecting.
func Track(ctx context.Context, cfg config.Config, orderID string, out io.Writer) error {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return fmt.Errorf("order id is empty")
	}
	base, err := eshop.ParseBaseURL(cfg.BaseURL)
	if err != nil {
		return err
	}

	var mu sync.Mutex
	printf := func(format string, args ...any) {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintf(out, "[%s] "+format+"\n", append([]any{timefmt.Clock(time.Now())}, args...)...)
	}

	bus := events.NewBus(20)
	failed := make(chan int, 1)
	bus.Subscribe(events.KindConnected, func(ev events.Event) {
		if ev.(events.Connected).Reconnect {
			printf("reconnected")
			return
		}
		printf("connected, tracking order #%s", orderID)
	})
	bus.Subscribe(events.KindDisconnected, func(ev events.Event) {
		d := ev.(events.Disconnected)
		if d.WillReconnect {
			printf("connection lost (%d), reconnecting", d.Code)
		}
	})
	bus.Subscribe(events.KindReconnectFailed, func(ev events.Event) {
		select {
		case failed <- ev.(events.ReconnectFailed).Attempts:
		default:
		}
	})

	tr := realtime.New(realtime.Options{
		URL: realtime.Endpoint(base, realtime.OrderPath(orderID)),
		Bus: bus,
		Hello: func(now time.Time) realtime.Message {
			return realtime.NewHandshake(orderID, now)
		},
		OnFrame: func(f realtime.Frame) {
			if line := describeUpdate(f); line != "" {
				printf("%s", line)
			}
		},
	})
	defer tr.Close()

	if err := tr.Connect(ctx); err != nil {
		log.Printf("track: first connect failed, retrying: %v", err)
	}

	select {
	case <-ctx.Done():
		return nil
	case n := <-failed:
		return fmt.Errorf("gave up after %d reconnect attempts", n)
	}
}

// describeUpdate renders a customer frame for the terminal. Frames with
// nothing to show return "".
func describeUpdate(f realtime.Frame) string {
	switch f := f.(type) {
	case realtime.OrderStatusUpdate:
		status := f.StatusDisplay
		if status == "" {
			status = f.Status
		}
		if f.Message != "" {
			return fmt.Sprintf("status: %s (%s)", status, f.Message)
		}
		return "status: " + status
	case realtime.QueuePositionUpdate:
		if f.EstimatedTime != "" {
			return fmt.Sprintf("queue position: %d, estimated %s", f.Position, f.EstimatedTime)
		}
		return fmt.Sprintf("queue position: %d", f.Position)
	case realtime.PaymentStatusUpdate:
		return "payment: " + f.PaymentStatus
	case realtime.OrderReadyNotification:
		return "ready for pickup, code " + f.PickupCode
	case realtime.SystemMessage:
		return "notice: " + f.Message
	case realtime.Unknown:
		log.Printf("track: ignoring frame type %q", f.Type())
		return ""
	default:
		return ""
	}
}
