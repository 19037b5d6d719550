package render

import (
	"cmp"
	"math"
	"slices"

	"github.com/betweencoffee/baristaboard/internal/datamgr"
	"github.com/betweencoffee/baristaboard/internal/eshop"
)

// Sort returns a sorted copy of orders for topic. The sort is stable:
//
//	waiting    expedited first, queue position, created ascending
//	preparing  expedited first, created ascending
//	ready      expedited first, ready-at ascending (created when unset)
//	completed  picked-up-at descending (created when unset)
func Sort(topic datamgr.Topic, orders []eshop.Order) []eshop.Order {
	out := slices.Clone(orders)
	slices.SortStableFunc(out, func(a, b eshop.Order) int {
		switch topic {
		case datamgr.TopicWaitingOrders:
			return firstNonZero(
				expedited(a, b),
				cmp.Compare(rank(a), rank(b)),
				a.Created().Compare(b.Created()),
			)
		case datamgr.TopicPreparingOrders:
			return firstNonZero(expedited(a, b), a.Created().Compare(b.Created()))
		case datamgr.TopicReadyOrders:
			return firstNonZero(expedited(a, b), a.ReadyTime().Compare(b.ReadyTime()))
		case datamgr.TopicCompletedOrders:
			return b.PickedUp().Compare(a.PickedUp())
		default:
			return 0
		}
	})
	return out
}

func expedited(a, b eshop.Order) int {
	switch {
	case a.IsQuickOrder == b.IsQuickOrder:
		return 0
	case a.IsQuickOrder:
		return -1
	default:
		return 1
	}
}

// rank puts orders without a queue position after those with one.
func rank(o eshop.Order) int {
	if r := o.QueueRank(); r > 0 {
		return r
	}
	return math.MaxInt
}

func firstNonZero(cmps ...int) int {
	for _, c := range cmps {
		if c != 0 {
			return c
		}
	}
	return 0
}
