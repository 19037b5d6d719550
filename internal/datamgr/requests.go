package datamgr

import (
	"log"
	"time"
)

// Source names a producer of refresh requests.
type Source string

const (
	SourceRealtime Source = "realtime"
	SourceTab      Source = "tab"
	SourceVisible  Source = "visible"
	SourceOnline   Source = "online"
	SourceManual   Source = "manual"
	SourceTimer    Source = "timer"
	SourceRetry    Source = "retry"
)

// DefaultWindows returns the debounce window per source. Sources with a
// zero window go straight to the load loop.
func DefaultWindows() map[Source]time.Duration {
	return map[Source]time.Duration{
		SourceRealtime: 300 * time.Millisecond,
		SourceTab:      500 * time.Millisecond,
		SourceVisible:  time.Second,
		SourceOnline:   0,
		SourceManual:   0,
		SourceTimer:    0,
	}
}

// forced sources bypass the in-flight guard.
func (s Source) forced() bool {
	return s == SourceOnline || s == SourceManual
}

type request struct {
	source Source
	force  bool
	retry  int
}

// RequestRefresh asks for a load on behalf of src. Requests from the same
// source within its window collapse into one.
func (m *Manager) RequestRefresh(src Source) {
	req := request{source: src, force: src.forced()}
	if d, ok := m.debouncers[src]; ok {
		d.Trigger(func() { m.enqueue(req) })
		return
	}
	m.enqueue(req)
}

func (m *Manager) enqueue(req request) {
	m.mu.Lock()
	closed := m.closed
	m.mu.Unlock()
	if closed {
		return
	}
	select {
	case m.requests <- req:
	default:
		log.Printf("datamgr: request queue full, dropping %s refresh", req.source)
	}
}
