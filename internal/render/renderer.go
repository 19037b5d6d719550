package render

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/betweencoffee/baristaboard/internal/datamgr"
	"github.com/betweencoffee/baristaboard/internal/eshop"
	"github.com/betweencoffee/baristaboard/internal/state"
	"github.com/betweencoffee/baristaboard/internal/timefmt"
	"github.com/betweencoffee/baristaboard/internal/timers"
	"github.com/betweencoffee/baristaboard/internal/toast"
)

var (
	// ErrBusy is returned while an action for the same order is pending.
	ErrBusy = errors.New("an action for this order is already pending")
	// ErrNoAction is returned by Act on lists without a transition.
	ErrNoAction = errors.New("this list has no order action")
)

const (
	countdownTick     = time.Second
	missingRetryDelay = 300 * time.Millisecond
	refreshAfterAct   = 500 * time.Millisecond
	countdownPrefix   = "countdown-"
)

// Source is the part of the data manager a renderer needs.
type Source interface {
	Register(topic datamgr.Topic, l datamgr.Listener, immediate bool) func()
	Orders(topic datamgr.Topic) ([]eshop.Order, bool)
	RequestRefresh(src datamgr.Source)
}

// Surface is where regions are painted.
type Surface interface {
	HasRegion(name string) bool
	PaintRegion(name string, r state.Region)
}

// Notifier shows user-facing notifications.
type Notifier interface {
	Show(opts toast.Options) string
}

// Config selects what a renderer shows.
type Config struct {
	Topic datamgr.Topic
	// Region defaults to the topic name.
	Region string
	// Action is the transition offered on this list; zero for none.
	Action eshop.Action
	Now    func() time.Time
}

// Deps are the collaborators of a renderer.
type Deps struct {
	Source   Source
	Surface  Surface
	Actor    eshop.Actor
	Notifier Notifier
}

// Renderer paints one topic's orders into one region.
type Renderer struct {
	cfg    Config
	deps   Deps
	timers *timers.Registry

	mu             sync.Mutex
	active         bool
	cache          []eshop.Order
	cached         bool
	orders         []eshop.Order
	lastSeq        uint64
	pending        map[int64]bool
	missingRetried bool
	unregister     []func()
	closed         bool
}

// New creates an inactive renderer. Start registers it with the source.
func New(cfg Config, deps Deps) *Renderer {
	if cfg.Region == "" {
		cfg.Region = string(cfg.Topic)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Renderer{
		cfg:     cfg,
		deps:    deps,
		timers:  timers.NewRegistry(),
		pending: make(map[int64]bool),
	}
}

// Topic returns the topic this renderer shows.
func (r *Renderer) Topic() datamgr.Topic { return r.cfg.Topic }

// Region returns the surface region name.
func (r *Renderer) Region() string { return r.cfg.Region }

// Action returns the list's transition, zero for none.
func (r *Renderer) Action() eshop.Action { return r.cfg.Action }

// Start subscribes to the renderer's topic and the all-data fallback.
func (r *Renderer) Start(active bool) {
	r.mu.Lock()
	r.active = active
	r.mu.Unlock()

	for _, topic := range []datamgr.Topic{r.cfg.Topic, datamgr.TopicAllData} {
		if un := r.deps.Source.Register(topic, r, true); un != nil {
			r.mu.Lock()
			r.unregister = append(r.unregister, un)
			r.mu.Unlock()
		}
	}
}

// OnSnapshot implements datamgr.Listener. The topic and the all-data
// notification of the same load render once.
func (r *Renderer) OnSnapshot(u datamgr.Update) error {
	r.mu.Lock()
	if u.Seq != 0 && u.Seq <= r.lastSeq {
		r.mu.Unlock()
		return nil
	}
	r.lastSeq = u.Seq
	r.mu.Unlock()

	r.Render(u.OrdersFor(r.cfg.Topic))
	return nil
}

// Render shows orders. Rendering the same orders twice paints the same
// region. While inactive the orders are cached instead.
func (r *Renderer) Render(orders []eshop.Order) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	clear(r.pending)
	if !r.active {
		r.cache = slices.Clone(orders)
		r.cached = true
		return
	}
	r.paintLocked(orders)
}

// Activate marks the renderer's tab as shown. Cached orders are painted
// once and dropped; without a cache the manager's current data is used,
// and without that a refresh is requested.
func (r *Renderer) Activate() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.active = true
	if r.cached {
		orders := r.cache
		r.cache = nil
		r.cached = false
		r.paintLocked(orders)
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()

	if orders, ok := r.deps.Source.Orders(r.cfg.Topic); ok {
		r.mu.Lock()
		if !r.closed && r.active {
			r.paintLocked(orders)
		}
		r.mu.Unlock()
		return
	}
	r.deps.Source.RequestRefresh(datamgr.SourceTab)
}

// Deactivate hides the tab. Countdown timers stop until the next paint.
func (r *Renderer) Deactivate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active = false
	r.cancelCountdownsLocked(nil)
}

// Active reports whether the tab is shown.
func (r *Renderer) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// HasCache reports whether orders are waiting for activation.
func (r *Renderer) HasCache() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cached
}

// Countdowns returns how many countdown timers are running.
func (r *Renderer) Countdowns() int {
	n := 0
	for _, k := range r.timers.Keys() {
		if strings.HasPrefix(k, countdownPrefix) {
			n++
		}
	}
	return n
}

func (r *Renderer) paintLocked(orders []eshop.Order) {
	r.orders = Sort(r.cfg.Topic, orders)

	if !r.deps.Surface.HasRegion(r.cfg.Region) {
		if r.missingRetried {
			log.Printf("render: region %q still missing, skipping paint", r.cfg.Region)
			return
		}
		r.missingRetried = true
		log.Printf("render: region %q missing, retrying in %v", r.cfg.Region, missingRetryDelay)
		r.timers.After("missing-region", missingRetryDelay, func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			if !r.closed && r.active {
				r.paintLocked(r.orders)
			}
		})
		return
	}
	r.missingRetried = false

	now := r.cfg.Now()
	r.syncCountdownsLocked(now)
	r.deps.Surface.PaintRegion(r.cfg.Region, r.regionLocked(now))
}

func (r *Renderer) regionLocked(now time.Time) state.Region {
	region := state.Region{
		Topic:     string(r.cfg.Topic),
		Empty:     len(r.orders) == 0,
		EmptyText: emptyText[r.cfg.Topic],
	}
	for _, o := range r.orders {
		item := buildItem(r.cfg.Topic, o, now)
		item.Pending = r.pending[o.ID]
		region.Items = append(region.Items, item)
	}
	return region
}

// syncCountdownsLocked keeps one ticker per preparing order whose estimate
// is still ahead and cancels the rest.
func (r *Renderer) syncCountdownsLocked(now time.Time) {
	keep := make(map[string]bool)
	if r.cfg.Topic == datamgr.TopicPreparingOrders {
		for _, o := range r.orders {
			if !hasCountdown(o) {
				continue
			}
			if _, done := timefmt.Countdown(o.EstimatedCompletion(), now); done {
				continue
			}
			key := countdownKey(o.ID)
			keep[key] = true
			if !r.timers.Has(key) {
				id := o.ID
				r.timers.Every(key, countdownTick, func() { r.tick(id) })
			}
		}
	}
	r.cancelCountdownsLocked(keep)
}

func (r *Renderer) cancelCountdownsLocked(keep map[string]bool) {
	for _, k := range r.timers.Keys() {
		if strings.HasPrefix(k, countdownPrefix) && !keep[k] {
			r.timers.Cancel(k)
		}
	}
}

func (r *Renderer) tick(id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || !r.active {
		return
	}
	now := r.cfg.Now()
	for _, o := range r.orders {
		if o.ID != id {
			continue
		}
		if _, done := timefmt.Countdown(o.EstimatedCompletion(), now); done {
			r.timers.Cancel(countdownKey(id))
		}
		if r.deps.Surface.HasRegion(r.cfg.Region) {
			r.deps.Surface.PaintRegion(r.cfg.Region, r.regionLocked(now))
		}
		return
	}
	r.timers.Cancel(countdownKey(id))
}

func countdownKey(id int64) string {
	return countdownPrefix + strconv.FormatInt(id, 10)
}

// Act requests the list's transition for orderID. The order stays dimmed
// until the next snapshot; exactly one notification reports the outcome.
func (r *Renderer) Act(ctx context.Context, orderID int64) error {
	if r.cfg.Action == 0 || r.deps.Actor == nil {
		return ErrNoAction
	}

	r.mu.Lock()
	if r.pending[orderID] {
		r.mu.Unlock()
		return ErrBusy
	}
	r.pending[orderID] = true
	r.repaintLocked()
	r.mu.Unlock()

	res, err := r.deps.Actor.Act(ctx, r.cfg.Action, orderID)
	if err != nil {
		r.mu.Lock()
		delete(r.pending, orderID)
		r.repaintLocked()
		r.mu.Unlock()
		r.show(toast.Error, "Could not "+r.cfg.Action.String(), actionErrorText(err))
		return err
	}

	msg := res.Message
	if msg == "" {
		msg = fmt.Sprintf("Order #%d: %s done", orderID, r.cfg.Action)
	}
	r.show(toast.Success, "Order updated", msg)
	r.timers.After("refresh-after-action", refreshAfterAct, func() {
		r.deps.Source.RequestRefresh(datamgr.SourceManual)
	})
	return nil
}

// Pending reports whether an action for orderID awaits the next snapshot.
func (r *Renderer) Pending(orderID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pending[orderID]
}

func (r *Renderer) repaintLocked() {
	if r.closed || !r.active || !r.deps.Surface.HasRegion(r.cfg.Region) {
		return
	}
	r.deps.Surface.PaintRegion(r.cfg.Region, r.regionLocked(r.cfg.Now()))
}

func (r *Renderer) show(sev toast.Severity, title, msg string) {
	if r.deps.Notifier == nil {
		return
	}
	r.deps.Notifier.Show(toast.Options{Title: title, Message: msg, Severity: sev})
}

func actionErrorText(err error) string {
	var actionErr *eshop.ActionError
	if errors.As(err, &actionErr) && actionErr.Message != "" {
		return actionErr.Message
	}
	var apiErr *eshop.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}

// Close unregisters from the source and stops every timer.
func (r *Renderer) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	unregister := r.unregister
	r.unregister = nil
	r.mu.Unlock()

	for _, un := range unregister {
		un()
	}
	r.timers.Close()
}
