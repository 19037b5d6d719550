package app

import (
	"context"
	"fmt"
	"time"

	"github.com/betweencoffee/baristaboard/internal/config"
	"github.com/betweencoffee/baristaboard/internal/datamgr"
	"github.com/betweencoffee/baristaboard/internal/eshop"
	"github.com/betweencoffee/baristaboard/internal/render"
)

// Summary is a one-shot view of the queue for the status command.
type Summary struct {
	BaseURL    string        `json:"base_url" yaml:"base_url"`
	FetchedAt  time.Time     `json:"fetched_at" yaml:"fetched_at"`
	ServerTime *time.Time    `json:"server_time,omitempty" yaml:"server_time,omitempty"`
	Counts     Counts        `json:"counts" yaml:"counts"`
	Lists      []ListSummary `json:"lists" yaml:"lists"`
	Defaulted  []string      `json:"defaulted,omitempty" yaml:"defaulted,omitempty"`
}

// Counts are the badge numbers.
type Counts struct {
	Waiting   int `json:"waiting" yaml:"waiting"`
	Preparing int `json:"preparing" yaml:"preparing"`
	Ready     int `json:"ready" yaml:"ready"`
	Completed int `json:"completed" yaml:"completed"`
	Total     int `json:"total" yaml:"total"`
}

// ListSummary is one order list in display order.
type ListSummary struct {
	Topic  string      `json:"topic" yaml:"topic"`
	Title  string      `json:"title" yaml:"title"`
	Orders []OrderLine `json:"orders" yaml:"orders"`
}

// OrderLine is the short form of an order.
type OrderLine struct {
	ID         int64  `json:"id" yaml:"id"`
	PickupCode string `json:"pickup_code,omitempty" yaml:"pickup_code,omitempty"`
	Name       string `json:"name,omitempty" yaml:"name,omitempty"`
	Items      int    `json:"items" yaml:"items"`
	Total      string `json:"total" yaml:"total"`
	Expedited  bool   `json:"expedited,omitempty" yaml:"expedited,omitempty"`
}

// FetchSummary loads one snapshot and summarizes it.
func FetchSummary(ctx context.Context, cfg config.Config) (Summary, error) {
	client, err := eshop.NewClient(cfg.BaseURL, cfg.CSRFToken)
	if err != nil {
		return Summary{}, fmt.Errorf("init shop client: %w", err)
	}
	snap, err := client.FetchSnapshot(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("fetch snapshot: %w", err)
	}
	return Summarize(client.BaseURL().String(), snap, time.Now()), nil
}

// Summarize orders each list the way the dashboard shows it.
func Summarize(baseURL string, snap eshop.Snapshot, now time.Time) Summary {
	b := snap.BadgeSummary
	s := Summary{
		BaseURL:   baseURL,
		FetchedAt: now,
		Counts: Counts{
			Waiting:   b.Waiting,
			Preparing: b.Preparing,
			Ready:     b.Ready,
			Completed: b.Completed,
			Total:     b.Total(),
		},
		Defaulted: snap.Defaulted,
	}
	if !snap.ServerTime.IsZero() {
		t := snap.ServerTime
		s.ServerTime = &t
	}

	all := datamgr.Update{Topic: datamgr.TopicAllData, Snapshot: snap}
	for _, tab := range Tabs {
		ls := ListSummary{Topic: string(tab.Topic), Title: tab.Title, Orders: []OrderLine{}}
		for _, o := range render.Sort(tab.Topic, all.OrdersFor(tab.Topic)) {
			ls.Orders = append(ls.Orders, OrderLine{
				ID:         o.ID,
				PickupCode: o.PickupCode,
				Name:       o.Name,
				Items:      o.Quantity(),
				Total:      o.TotalPrice.StringFixed(2),
				Expedited:  o.IsQuickOrder,
			})
		}
		s.Lists = append(s.Lists, ls)
	}
	return s
}
