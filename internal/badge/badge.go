// Package badge keeps the header counters in step with the order queue.
package badge

import (
	"sync"

	"github.com/betweencoffee/baristaboard/internal/datamgr"
	"github.com/betweencoffee/baristaboard/internal/state"
)

// Labels are the static captions shown next to each counter, in display order.
var Labels = [4]string{"Waiting", "Preparing", "Ready", "Completed"}

// Source registers snapshot listeners.
type Source interface {
	Register(topic datamgr.Topic, l datamgr.Listener, immediate bool) func()
}

// Painter receives new counts.
type Painter interface {
	PaintBadges(state.Badges)
}

// Indicator paints the four status counters. Counts are always shown, zero
// included, and the painter is only called when one of them changes.
type Indicator struct {
	painter Painter

	mu         sync.Mutex
	counts     state.Badges
	painted    bool
	unregister func()
}

// New returns an indicator painting into p.
func New(p Painter) *Indicator {
	return &Indicator{painter: p}
}

// Start subscribes to the badge summary topic.
func (i *Indicator) Start(src Source) {
	un := src.Register(datamgr.TopicBadgeSummary, i, true)
	i.mu.Lock()
	i.unregister = un
	i.mu.Unlock()
}

// OnSnapshot implements datamgr.Listener.
func (i *Indicator) OnSnapshot(u datamgr.Update) error {
	b := u.Badges()
	i.Set(state.Badges{
		Waiting:   b.Waiting,
		Preparing: b.Preparing,
		Ready:     b.Ready,
		Completed: b.Completed,
	})
	return nil
}

// Set applies counts and reports whether anything was painted.
func (i *Indicator) Set(b state.Badges) bool {
	i.mu.Lock()
	if i.painted && i.counts == b {
		i.mu.Unlock()
		return false
	}
	i.counts = b
	i.painted = true
	i.mu.Unlock()

	i.painter.PaintBadges(b)
	return true
}

// Counts returns the last applied counts.
func (i *Indicator) Counts() state.Badges {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.counts
}

// Close stops listening.
func (i *Indicator) Close() {
	i.mu.Lock()
	un := i.unregister
	i.unregister = nil
	i.mu.Unlock()
	if un != nil {
		un()
	}
}
