package timers

import (
	"sync"
	"time"
)

// Registry owns every timer a component starts, keyed by name. Scheduling
// under an existing key replaces the old timer. Close cancels everything
// and makes later scheduling a no-op.
type Registry struct {
	mu      sync.Mutex
	handles map[string]*handle
	closed  bool
}

type handle struct {
	timer *time.Timer
	stop  chan struct{}
}

func (h *handle) cancel() {
	if h.timer != nil {
		h.timer.Stop()
	}
	if h.stop != nil {
		close(h.stop)
	}
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{handles: make(map[string]*handle)}
}

// After runs fn once after d. The handle removes itself before fn runs.
func (r *Registry) After(key string, d time.Duration, fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.dropLocked(key)

	h := &handle{}
	h.timer = time.AfterFunc(d, func() {
		r.mu.Lock()
		if r.handles[key] != h {
			r.mu.Unlock()
			return
		}
		delete(r.handles, key)
		r.mu.Unlock()
		fn()
	})
	r.handles[key] = h
}

// Every runs fn every d until the key is cancelled. fn runs on a dedicated
// goroutine, never concurrently with itself.
func (r *Registry) Every(key string, d time.Duration, fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.dropLocked(key)

	h := &handle{stop: make(chan struct{})}
	r.handles[key] = h
	go func() {
		ticker := time.NewTicker(d)
		defer ticker.Stop()
		for {
			select {
			case <-h.stop:
				return
			case <-ticker.C:
				select {
				case <-h.stop:
					return
				default:
				}
				fn()
			}
		}
	}()
}

// Cancel stops the timer under key. Unknown keys are ignored.
func (r *Registry) Cancel(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dropLocked(key)
}

// Has reports whether key is scheduled.
func (r *Registry) Has(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.handles[key]
	return ok
}

// Keys returns the scheduled keys in no particular order.
func (r *Registry) Keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := make([]string, 0, len(r.handles))
	for k := range r.handles {
		keys = append(keys, k)
	}
	return keys
}

// Len returns the number of live timers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handles)
}

// CancelAll stops every timer but keeps the registry usable.
func (r *Registry) CancelAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key := range r.handles {
		r.dropLocked(key)
	}
}

// Close stops every timer and rejects further scheduling.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key := range r.handles {
		r.dropLocked(key)
	}
	r.closed = true
}

func (r *Registry) dropLocked(key string) {
	if h, ok := r.handles[key]; ok {
		h.cancel()
		delete(r.handles, key)
	}
}
