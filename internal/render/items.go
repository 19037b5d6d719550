package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/betweencoffee/baristaboard/internal/datamgr"
	"github.com/betweencoffee/baristaboard/internal/eshop"
	"github.com/betweencoffee/baristaboard/internal/state"
	"github.com/betweencoffee/baristaboard/internal/timefmt"
)

// emptyText is the empty-state message per topic.
var emptyText = map[datamgr.Topic]string{
	datamgr.TopicWaitingOrders:   "No orders waiting",
	datamgr.TopicPreparingOrders: "Nothing being prepared",
	datamgr.TopicReadyOrders:     "No orders ready for pickup",
	datamgr.TopicCompletedOrders: "No completed orders today",
}

func buildItem(topic datamgr.Topic, o eshop.Order, now time.Time) state.Item {
	item := state.Item{
		ID:         o.ID,
		PickupCode: o.PickupCode,
		Name:       o.Name,
		Phone:      o.Phone,
		Summary:    summary(o),
		Expedited:  o.IsQuickOrder,
	}
	switch topic {
	case datamgr.TopicWaitingOrders:
		parts := []string{}
		if r := o.QueueRank(); r > 0 {
			parts = append(parts, fmt.Sprintf("#%d in queue", r))
		}
		if e := timefmt.Elapsed(o.Created(), now); e != "" {
			parts = append(parts, "waiting "+e)
		}
		item.Status = strings.Join(parts, " · ")
	case datamgr.TopicPreparingOrders:
		item.Status = "preparing since " + timefmt.Clock(o.Created())
		if hasCountdown(o) {
			item.Countdown, _ = timefmt.Countdown(o.EstimatedCompletion(), now)
		}
	case datamgr.TopicReadyOrders:
		item.Status = "ready at " + timefmt.Clock(o.ReadyTime())
	case datamgr.TopicCompletedOrders:
		item.Status = "collected " + timefmt.Relative(o.PickedUp(), now)
	}
	return item
}

func hasCountdown(o eshop.Order) bool {
	return !o.EstimatedCompletion().IsZero()
}

// summary is the one-line description: quantity, category, payment and total.
func summary(o eshop.Order) string {
	parts := []string{}
	if q := o.Quantity(); q == 1 {
		parts = append(parts, "1 item")
	} else if q > 1 {
		parts = append(parts, fmt.Sprintf("%d items", q))
	}
	if c := o.Category(); c != "" {
		parts = append(parts, c)
	}
	if o.PaymentMethod != "" {
		parts = append(parts, o.PaymentMethod)
	}
	if !o.TotalPrice.IsZero() {
		parts = append(parts, "$"+o.TotalPrice.StringFixed(2))
	}
	return strings.Join(parts, " · ")
}
