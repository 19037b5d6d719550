package datamgr

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/betweencoffee/baristaboard/internal/eshop"
	"github.com/betweencoffee/baristaboard/internal/events"
	"github.com/betweencoffee/baristaboard/internal/timers"
)

// ErrLoadInFlight is returned by a non-forced LoadSnapshot while another
// load is running.
var ErrLoadInFlight = errors.New("snapshot load already in flight")

const (
	DefaultInterval    = 10 * time.Second
	DefaultMaxInterval = 60 * time.Second
	DefaultMaxRetries  = 3
	// DefaultFreshness is how old a snapshot may be and still count as
	// fresh.
	DefaultFreshness = 5 * time.Minute

	retryBase   = time.Second
	retryCap    = 30 * time.Second
	retryJitter = 0.2
)

// RetryDelay returns min(1s*2^retry, 30s) with ±20% jitter. rnd returns a
// value in [0, 1); nil uses math/rand.
func RetryDelay(retry int, rnd func() float64) time.Duration {
	if retry < 0 {
		retry = 0
	}
	if rnd == nil {
		rnd = rand.Float64
	}
	d := math.Min(float64(retryBase)*math.Pow(2, float64(retry)), float64(retryCap))
	return time.Duration(d * (1 + (rnd()*2-1)*retryJitter))
}

// Options configure a Manager. Zero values use the defaults.
type Options struct {
	Fetcher     eshop.SnapshotFetcher
	Bus         *events.Bus
	Interval    time.Duration
	MaxInterval time.Duration
	MaxRetries  int
	// RetryDelay overrides the package RetryDelay.
	RetryDelay func(retry int) time.Duration
	// Windows overrides the per-source debounce windows.
	Windows map[Source]time.Duration
}

// Stats summarizes the manager for status reports.
type Stats struct {
	Waiting    int
	Preparing  int
	Ready      int
	Completed  int
	Total      int
	LastUpdate time.Time
	ErrorCount int
	Loading    bool
	Listeners  int
	Interval   time.Duration
	HasData    bool
}

type registration struct {
	listener Listener
}

// Manager owns the current snapshot and fans it out to listeners.
type Manager struct {
	opts   Options
	timers *timers.Registry
	now    func() time.Time

	requests   chan request
	debouncers map[Source]*timers.Debouncer

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu         sync.Mutex
	snapshot   eshop.Snapshot
	hasData    bool
	lastUpdate time.Time
	loading    bool
	loadSeq    uint64
	appliedSeq uint64
	errorCount int
	interval   time.Duration
	hidden     bool
	started    bool
	closed     bool
	listeners  map[Topic][]registration
	immediate  int
}

// New creates a manager. Start begins loading.
func New(opts Options) *Manager {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.MaxInterval <= 0 {
		opts.MaxInterval = DefaultMaxInterval
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = DefaultMaxRetries
	}
	if opts.RetryDelay == nil {
		opts.RetryDelay = func(retry int) time.Duration { return RetryDelay(retry, nil) }
	}
	windows := DefaultWindows()
	for src, d := range opts.Windows {
		windows[src] = d
	}
	opts.Windows = windows

	debouncers := make(map[Source]*timers.Debouncer)
	for src, d := range windows {
		if d > 0 {
			debouncers[src] = timers.NewDebouncer(d)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		opts:       opts,
		timers:     timers.NewRegistry(),
		now:        time.Now,
		requests:   make(chan request, 16),
		debouncers: debouncers,
		ctx:        ctx,
		cancel:     cancel,
		interval:   opts.Interval,
		listeners:  make(map[Topic][]registration),
	}
}

// Start launches the load loop, requests the first snapshot and arms the
// automatic refresh. Calling it again is a no-op.
func (m *Manager) Start() {
	m.mu.Lock()
	if m.started || m.closed {
		m.mu.Unlock()
		return
	}
	m.started = true
	m.wg.Add(1)
	m.mu.Unlock()

	go m.loop()
	m.enqueue(request{source: SourceManual, force: true})
	m.scheduleAuto()
}

func (m *Manager) loop() {
	defer m.wg.Done()
	for {
		select {
		case <-m.ctx.Done():
			return
		case req := <-m.requests:
			if req.source == SourceTimer && m.skipTimer() {
				continue
			}
			err := m.LoadSnapshot(m.ctx, req.force, req.retry)
			if err != nil && !errors.Is(err, ErrLoadInFlight) && !errors.Is(err, context.Canceled) {
				log.Printf("datamgr: %s load failed: %v", req.source, err)
			}
		}
	}
}

func (m *Manager) skipTimer() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hidden || m.loading
}

// LoadSnapshot fetches, validates and publishes one snapshot. A non-forced
// call while another load runs returns ErrLoadInFlight without fetching.
// Failures below the retry budget schedule a retry.
func (m *Manager) LoadSnapshot(ctx context.Context, force bool, retry int) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return context.Canceled
	}
	if m.loading && !force {
		m.mu.Unlock()
		return ErrLoadInFlight
	}
	m.loading = true
	m.loadSeq++
	seq := m.loadSeq
	m.mu.Unlock()

	snap, err := m.opts.Fetcher.FetchSnapshot(ctx)

	m.mu.Lock()
	if seq == m.loadSeq {
		m.loading = false
	}
	if err != nil {
		if ctx.Err() != nil {
			m.mu.Unlock()
			return ctx.Err()
		}
		m.errorCount++
		m.mu.Unlock()
		m.onFailure(err, force, retry)
		return fmt.Errorf("load snapshot: %w", err)
	}
	if seq < m.appliedSeq {
		m.mu.Unlock()
		return nil
	}
	m.appliedSeq = seq
	m.snapshot = snap
	m.hasData = true
	m.lastUpdate = m.now()
	m.errorCount = 0
	m.interval = m.opts.Interval
	if len(snap.Defaulted) > 0 {
		log.Printf("datamgr: snapshot defaulted fields %v", snap.Defaulted)
	}
	m.mu.Unlock()

	m.timers.Cancel("retry")
	m.notifyAll(snap, seq)
	m.opts.Bus.Publish(events.DataUpdated{Base: events.Stamp(), Orders: snap.TotalOrders()})
	return nil
}

func (m *Manager) onFailure(err error, force bool, retry int) {
	m.opts.Bus.Publish(events.DataError{Base: events.Stamp(), Err: err, Retry: retry})

	if retry >= m.opts.MaxRetries {
		log.Printf("datamgr: giving up after %d retries: %v", retry, err)
		m.opts.Bus.Publish(events.MaxRetriesReached{Base: events.Stamp(), Err: err})
		return
	}
	delay := m.opts.RetryDelay(retry)
	log.Printf("datamgr: load failed (%v), retry %d in %v", err, retry+1, delay)
	m.timers.After("retry", delay, func() {
		m.enqueue(request{source: SourceRetry, force: force, retry: retry + 1})
	})
}

// notifyAll walks the topics in order. Each listener gets its own copy.
func (m *Manager) notifyAll(snap eshop.Snapshot, seq uint64) {
	for _, topic := range Topics {
		for _, reg := range m.registered(topic) {
			m.deliver(Update{Topic: topic, Snapshot: snap.Clone(), Seq: seq}, reg.listener)
		}
	}
}

func (m *Manager) registered(topic Topic) []registration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]registration(nil), m.listeners[topic]...)
}

func (m *Manager) deliver(u Update, l Listener) {
	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("listener panicked: %v", r)
			}
		}()
		err = l.OnSnapshot(u)
	}()
	if err != nil {
		log.Printf("datamgr: %s listener failed: %v", u.Topic, err)
		m.opts.Bus.Publish(events.ListenerError{Base: events.Stamp(), Topic: string(u.Topic), Err: err})
	}
}

// Register adds l to topic. Registering the same listener twice keeps one
// entry. With immediate set and a snapshot already loaded, l is invoked
// once asynchronously with the current data. The returned function
// removes the registration.
func (m *Manager) Register(topic Topic, l Listener, immediate bool) func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	unregister := func() { m.Unregister(topic, l) }
	if m.closed {
		return unregister
	}
	if m.indexLocked(topic, l) < 0 {
		m.listeners[topic] = append(m.listeners[topic], registration{listener: l})
	}
	if immediate && m.hasData {
		m.immediate++
		u := Update{Topic: topic, Snapshot: m.snapshot.Clone(), Seq: m.appliedSeq}
		m.timers.After(fmt.Sprintf("immediate-%d", m.immediate), 0, func() {
			m.mu.Lock()
			still := m.indexLocked(topic, l) >= 0
			m.mu.Unlock()
			if still {
				m.deliver(u, l)
			}
		})
	}
	return unregister
}

// Unregister removes l from topic.
func (m *Manager) Unregister(topic Topic, l Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i := m.indexLocked(topic, l); i >= 0 {
		regs := m.listeners[topic]
		m.listeners[topic] = append(regs[:i:i], regs[i+1:]...)
	}
}

func (m *Manager) indexLocked(topic Topic, l Listener) int {
	for i, reg := range m.listeners[topic] {
		if reg.listener == l {
			return i
		}
	}
	return -1
}

// Current returns a copy of the latest snapshot.
func (m *Manager) Current() (eshop.Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.hasData {
		return eshop.Snapshot{}, false
	}
	return m.snapshot.Clone(), true
}

// Orders returns a copy of one topic's order list from the latest
// snapshot.
func (m *Manager) Orders(topic Topic) ([]eshop.Order, bool) {
	snap, ok := m.Current()
	if !ok {
		return nil, false
	}
	return ordersFor(snap, topic), true
}

// IsFresh reports whether a snapshot newer than maxAge is held. A
// non-positive maxAge uses DefaultFreshness.
func (m *Manager) IsFresh(maxAge time.Duration) bool {
	if maxAge <= 0 {
		maxAge = DefaultFreshness
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hasData && m.now().Sub(m.lastUpdate) < maxAge
}

// Stats returns counts and bookkeeping for status reports.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	listeners := 0
	for _, regs := range m.listeners {
		listeners += len(regs)
	}
	s := Stats{
		LastUpdate: m.lastUpdate,
		ErrorCount: m.errorCount,
		Loading:    m.loading,
		Listeners:  listeners,
		Interval:   m.interval,
		HasData:    m.hasData,
	}
	if m.hasData {
		s.Waiting = len(m.snapshot.WaitingOrders)
		s.Preparing = len(m.snapshot.PreparingOrders)
		s.Ready = len(m.snapshot.ReadyOrders)
		s.Completed = len(m.snapshot.CompletedOrders)
		s.Total = m.snapshot.TotalOrders()
	}
	return s
}

// ResetErrors clears the error count and restores the baseline interval.
func (m *Manager) ResetErrors() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount = 0
	m.interval = m.opts.Interval
}

// SetHidden pauses the automatic refresh while hidden. Becoming visible
// requests a refresh.
func (m *Manager) SetHidden(hidden bool) {
	m.mu.Lock()
	was := m.hidden
	m.hidden = hidden
	m.mu.Unlock()
	if was && !hidden {
		m.RequestRefresh(SourceVisible)
	}
}

// NotifyOnline reacts to the network coming back.
func (m *Manager) NotifyOnline() {
	m.RequestRefresh(SourceOnline)
}

// ForceRefresh requests an immediate forced load.
func (m *Manager) ForceRefresh() {
	m.RequestRefresh(SourceManual)
}

// Close stops the loop, cancels every timer and drops all listeners.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.listeners = make(map[Topic][]registration)
	m.mu.Unlock()

	for _, d := range m.debouncers {
		d.Cancel()
	}
	m.timers.Close()
	m.cancel()
	m.wg.Wait()
}

// scheduleAuto arms the next automatic refresh. The interval doubles up to
// the maximum while loads keep failing.
func (m *Manager) scheduleAuto() {
	m.mu.Lock()
	if m.errorCount > 2 {
		m.interval = min(m.interval*2, m.opts.MaxInterval)
	}
	interval := m.interval
	m.mu.Unlock()

	m.timers.After("auto", interval, func() {
		m.enqueue(request{source: SourceTimer})
		m.scheduleAuto()
	})
}
