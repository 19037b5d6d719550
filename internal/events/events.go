// Package events defines the closed set of cross-component signals and the
// bus that carries them between the data manager, the realtime transport
// and the dashboard.
package events

import "time"

// Kind names an event type.
type Kind string

const (
	KindDataUpdated       Kind = "data_updated"
	KindDataError         Kind = "data_error"
	KindMaxRetriesReached Kind = "max_retries_reached"
	KindListenerError     Kind = "listener_error"
	KindConnected         Kind = "websocket_connected"
	KindDisconnected      Kind = "websocket_disconnected"
	KindReconnectFailed   Kind = "websocket_reconnect_failed"
	KindQueueUpdated      Kind = "websocket_queue_updated"
	KindQueueProcessed    Kind = "websocket_queue_processed"
)

// Event is implemented only by the types in this package.
type Event interface {
	Kind() Kind
	At() time.Time
	isEvent()
}

// Base carries the timestamp shared by every event.
type Base struct {
	Time time.Time `json:"time"`
}

// At returns when the event happened.
func (b Base) At() time.Time { return b.Time }

func (Base) isEvent() {}

// Stamp returns a Base for now.
func Stamp() Base { return Base{Time: time.Now()} }

// DataUpdated follows every successful snapshot load.
type DataUpdated struct {
	Base
	Orders int `json:"orders"`
}

// DataError follows a failed snapshot load.
type DataError struct {
	Base
	Err   error `json:"-"`
	Retry int   `json:"retry"`
}

// MaxRetriesReached is terminal for one load cycle; a manual refresh
// starts a new one.
type MaxRetriesReached struct {
	Base
	Err error `json:"-"`
}

// ListenerError reports a subscriber that failed while being notified.
type ListenerError struct {
	Base
	Topic string `json:"topic"`
	Err   error  `json:"-"`
}

// Connected follows every successful transport open.
type Connected struct {
	Base
	Reconnect bool `json:"reconnect"`
}

// Disconnected follows every transport close.
type Disconnected struct {
	Base
	Code          int    `json:"code"`
	Reason        string `json:"reason"`
	WillReconnect bool   `json:"will_reconnect"`
}

// ReconnectFailed means the transport gave up and needs a manual retry.
type ReconnectFailed struct {
	Base
	Attempts int `json:"attempts"`
}

// QueueUpdated reports the outbound queue size after an enqueue.
type QueueUpdated struct {
	Base
	Size int `json:"size"`
}

// QueueProcessed reports the result of draining the outbound queue.
type QueueProcessed struct {
	Base
	Sent    int `json:"sent"`
	Dropped int `json:"dropped"`
	Left    int `json:"left"`
}

func (DataUpdated) Kind() Kind       { return KindDataUpdated }
func (DataError) Kind() Kind         { return KindDataError }
func (MaxRetriesReached) Kind() Kind { return KindMaxRetriesReached }
func (ListenerError) Kind() Kind     { return KindListenerError }
func (Connected) Kind() Kind         { return KindConnected }
func (Disconnected) Kind() Kind      { return KindDisconnected }
func (ReconnectFailed) Kind() Kind   { return KindReconnectFailed }
func (QueueUpdated) Kind() Kind      { return KindQueueUpdated }
func (QueueProcessed) Kind() Kind    { return KindQueueProcessed }
