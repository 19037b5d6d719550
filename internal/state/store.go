package state

import (
	"fmt"
	"sync"
	"time"
)

// Item is one painted order row.
type Item struct {
	ID         int64
	PickupCode string
	Name       string
	Phone      string
	Summary    string
	Status     string
	Countdown  string
	Expedited  bool
	Pending    bool
}

// Region is the painted content of one list.
type Region struct {
	Topic     string
	Items     []Item
	Empty     bool
	EmptyText string
}

// Badges are the aggregate counters shown in the header.
type Badges struct {
	Waiting   int
	Preparing int
	Ready     int
	Completed int
}

// Connection is the passive realtime indicator.
type Connection struct {
	State     string
	Score     int
	Label     string
	QueueSize int
	Attempts  int
}

// Snapshot is a point-in-time copy of everything the UI draws.
type Snapshot struct {
	Regions             map[string]Region
	Badges              Badges
	HasBadges           bool
	Connection          Connection
	LastUpdated         time.Time
	LastError           error
	ConsecutiveFailures int
	MaxRetriesReached   bool
	Paints              int
}

// IsOffline returns true when the backend has been unreachable for multiple loads.
func (s Snapshot) IsOffline() bool {
	return s.ConsecutiveFailures >= 2
}

// Store coordinates concurrent painting by the renderers and reading by the UI.
type Store struct {
	mu       sync.RWMutex
	snapshot Snapshot
	declared map[string]bool
	onChange func()
}

// NewStore returns a store that accepts paints for the named regions.
func NewStore(regions ...string) *Store {
	s := &Store{declared: make(map[string]bool, len(regions))}
	for _, r := range regions {
		s.declared[r] = true
	}
	s.snapshot.Regions = make(map[string]Region, len(regions))
	return s
}

// Declare adds a region after construction.
func (s *Store) Declare(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.declared == nil {
		s.declared = make(map[string]bool)
	}
	s.declared[name] = true
}

// OnChange sets a callback run after every paint, outside the lock.
func (s *Store) OnChange(fn func()) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// HasRegion reports whether name was declared.
func (s *Store) HasRegion(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.declared[name]
}

// PaintRegion replaces a region's content. Paints to undeclared regions
// are ignored.
func (s *Store) PaintRegion(name string, r Region) {
	s.mu.Lock()
	if !s.declared[name] {
		s.mu.Unlock()
		return
	}
	if s.snapshot.Regions == nil {
		s.snapshot.Regions = make(map[string]Region)
	}
	r.Items = cloneItems(r.Items)
	s.snapshot.Regions[name] = r
	s.snapshot.Paints++
	fn := s.onChange
	s.mu.Unlock()
	notify(fn)
}

// PaintBadges replaces the header counters.
func (s *Store) PaintBadges(b Badges) {
	s.mu.Lock()
	s.snapshot.Badges = b
	s.snapshot.HasBadges = true
	s.snapshot.Paints++
	fn := s.onChange
	s.mu.Unlock()
	notify(fn)
}

// SetConnection replaces the realtime indicator.
func (s *Store) SetConnection(c Connection) {
	s.mu.Lock()
	s.snapshot.Connection = c
	fn := s.onChange
	s.mu.Unlock()
	notify(fn)
}

// RecordLoad notes the outcome of a snapshot load. When err is non-nil the
// painted data is kept but the error is recorded for visibility.
func (s *Store) RecordLoad(err error) {
	s.mu.Lock()
	if err != nil {
		s.snapshot.LastError = err
		s.snapshot.ConsecutiveFailures++
	} else {
		s.snapshot.LastError = nil
		s.snapshot.ConsecutiveFailures = 0
		s.snapshot.MaxRetriesReached = false
	}
	s.snapshot.LastUpdated = time.Now()
	fn := s.onChange
	s.mu.Unlock()
	notify(fn)
}

// MarkMaxRetries flags that automatic retries stopped.
func (s *Store) MarkMaxRetries() {
	s.mu.Lock()
	s.snapshot.MaxRetriesReached = true
	fn := s.onChange
	s.mu.Unlock()
	notify(fn)
}

// Region returns a copy of one painted region.
func (s *Store) Region(name string) (Region, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.snapshot.Regions[name]
	if !ok {
		return Region{}, false
	}
	r.Items = cloneItems(r.Items)
	return r, true
}

// Snapshot returns a copy of the current snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snapshot
	snap.Regions = make(map[string]Region, len(s.snapshot.Regions))
	for name, r := range s.snapshot.Regions {
		r.Items = cloneItems(r.Items)
		snap.Regions[name] = r
	}
	if s.snapshot.LastError != nil {
		snap.LastError = fmt.Errorf("%w", s.snapshot.LastError)
	}
	return snap
}

func notify(fn func()) {
	if fn != nil {
		fn()
	}
}

func cloneItems(items []Item) []Item {
	if len(items) == 0 {
		return nil
	}
	dup := make([]Item, len(items))
	copy(dup, items)
	return dup
}
