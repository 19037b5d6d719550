package render

import (
	"testing"

	"github.com/betweencoffee/baristaboard/internal/datamgr"
	"github.com/betweencoffee/baristaboard/internal/eshop"
)

func ids(orders []eshop.Order) []int64 {
	out := make([]int64, len(orders))
	for i, o := range orders {
		out[i] = o.ID
	}
	return out
}

func equalIDs(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestSort(t *testing.T) {
	tests := []struct {
		name   string
		topic  datamgr.Topic
		orders []eshop.Order
		want   []int64
	}{
		{
			name:  "preparing expedited then creation",
			topic: datamgr.TopicPreparingOrders,
			orders: []eshop.Order{
				{ID: 2, CreatedAtISO: "2026-10-16T10:05:00+08:00"},
				{ID: 3, CreatedAtISO: "2026-10-16T10:10:00+08:00", IsQuickOrder: true},
				{ID: 1, CreatedAtISO: "2026-10-16T10:00:00+08:00"},
			},
			want: []int64{3, 1, 2},
		},
		{
			name:  "waiting by queue position, unranked last",
			topic: datamgr.TopicWaitingOrders,
			orders: []eshop.Order{
				{ID: 1, QueuePosition: 0, CreatedAtISO: "2026-10-16T09:00:00+08:00"},
				{ID: 2, QueuePosition: 2, CreatedAtISO: "2026-10-16T10:00:00+08:00"},
				{ID: 3, Position: 1, CreatedAtISO: "2026-10-16T10:30:00+08:00"},
				{ID: 4, QueuePosition: 5, IsQuickOrder: true},
			},
			want: []int64{4, 3, 2, 1},
		},
		{
			name:  "ready by ready time, falling back to creation",
			topic: datamgr.TopicReadyOrders,
			orders: []eshop.Order{
				{ID: 1, ReadyAt: "2026-10-16T11:00:00+08:00"},
				{ID: 2, CreatedAtISO: "2026-10-16T10:40:00+08:00"},
				{ID: 3, ReadyAt: "2026-10-16T10:50:00+08:00"},
			},
			want: []int64{2, 3, 1},
		},
		{
			name:  "completed newest first",
			topic: datamgr.TopicCompletedOrders,
			orders: []eshop.Order{
				{ID: 1, PickedUpAt: "2026-10-16T09:00:00+08:00"},
				{ID: 2, PickedUpAt: "2026-10-16T12:00:00+08:00"},
				{ID: 3, PickedUpAt: "2026-10-16T10:00:00+08:00"},
			},
			want: []int64{2, 3, 1},
		},
		{
			name:  "stable for equal keys",
			topic: datamgr.TopicPreparingOrders,
			orders: []eshop.Order{
				{ID: 5}, {ID: 4}, {ID: 6},
			},
			want: []int64{5, 4, 6},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(Sort(tt.topic, tt.orders))
			if !equalIDs(got, tt.want) {
				t.Fatalf("Sort = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSort_DoesNotMutateInput(t *testing.T) {
	in := []eshop.Order{{ID: 2, IsQuickOrder: false}, {ID: 1, IsQuickOrder: true}}
	_ = Sort(datamgr.TopicPreparingOrders, in)
	if in[0].ID != 2 {
		t.Fatalf("input reordered: %v", ids(in))
	}
}
