package realtime

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/betweencoffee/baristaboard/internal/events"
	"github.com/betweencoffee/baristaboard/internal/timers"
)

// State is the transport's connection state.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	// StateFailed is terminal until Reconnect is called.
	StateFailed State = "failed"
)

const (
	DefaultHeartbeat       = 25 * time.Second
	DefaultHiddenHeartbeat = 60 * time.Second
	DefaultPongTimeout     = 5 * time.Second

	manualReconnectDelay = 500 * time.Millisecond
	writeWait            = 10 * time.Second
	sendBuffer           = 128
)

// Endpoint paths.
const StaffPath = "/ws/queue/"

// OrderPath is the customer tracking channel for one order.
func OrderPath(orderID string) string {
	return "/ws/order/" + url.PathEscape(orderID) + "/"
}

// ErrClosed is returned by Connect after Close.
var ErrClosed = errors.New("realtime transport closed")

// Endpoint turns an http(s) base URL and a path into a ws(s) URL.
func Endpoint(base *url.URL, path string) string {
	u := *base
	switch strings.ToLower(u.Scheme) {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + path
	u.RawQuery = ""
	return u.String()
}

// Options configure a Transport. Zero durations use the defaults.
type Options struct {
	URL    string
	Header http.Header
	// Hello builds the frame sent right after every open.
	Hello func(now time.Time) Message
	// OnFrame receives every business frame. Heartbeat frames are handled
	// by the transport itself.
	OnFrame func(Frame)
	Bus     *events.Bus
	Dialer  *websocket.Dialer

	Heartbeat       time.Duration
	HiddenHeartbeat time.Duration
	PongTimeout     time.Duration
	// Delay overrides ReconnectDelay.
	Delay func(attempt int) time.Duration
}

// Status is a point-in-time copy of the transport's state.
type Status struct {
	URL       string
	State     State
	Attempts  int
	Quality   Quality
	QueueSize int
	LastPong  time.Time
	Hidden    bool
	Heartbeat time.Duration
}

// Transport owns one persistent duplex connection.
type Transport struct {
	opts   Options
	dialer *websocket.Dialer
	timers *timers.Registry
	now    func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	state    State
	attempts int
	quality  Quality
	queue    outbox
	lastPong time.Time
	pingSent time.Time
	hidden   bool
	manual   bool
	started  bool
	closed   bool
	session  *session
}

// New creates a disconnected transport.
func New(opts Options) *Transport {
	if opts.Heartbeat <= 0 {
		opts.Heartbeat = DefaultHeartbeat
	}
	if opts.HiddenHeartbeat <= 0 {
		opts.HiddenHeartbeat = DefaultHiddenHeartbeat
	}
	if opts.PongTimeout <= 0 {
		opts.PongTimeout = DefaultPongTimeout
	}
	if opts.Delay == nil {
		opts.Delay = func(attempt int) time.Duration { return ReconnectDelay(attempt, nil) }
	}
	dialer := opts.Dialer
	if dialer == nil {
		dialer = &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: writeWait,
		}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Transport{
		opts:    opts,
		dialer:  dialer,
		timers:  timers.NewRegistry(),
		now:     time.Now,
		ctx:     ctx,
		cancel:  cancel,
		state:   StateDisconnected,
		quality: newQuality(),
	}
}

// Connect opens the connection. It is a no-op while connecting or
// connected. A failed dial schedules a reconnect and returns the error.
func (t *Transport) Connect(ctx context.Context) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrClosed
	}
	if t.state == StateConnecting || t.state == StateConnected {
		t.mu.Unlock()
		return nil
	}
	t.state = StateConnecting
	t.manual = false
	t.started = true
	t.timers.Cancel("reconnect")
	t.mu.Unlock()

	conn, _, err := t.dialer.DialContext(ctx, t.opts.URL, t.opts.Header)
	if err != nil {
		log.Printf("realtime: dial %s failed: %v", t.opts.URL, err)
		t.afterDialFailure()
		return fmt.Errorf("dial %s: %w", t.opts.URL, err)
	}
	t.attach(conn)
	return nil
}

func (t *Transport) afterDialFailure() {
	t.mu.Lock()
	if t.closed || t.manual {
		t.state = StateDisconnected
		t.mu.Unlock()
		return
	}
	if t.attempts > 0 {
		t.quality.recordReconnect(false)
	}
	failed := t.scheduleReconnectLocked()
	attempts := t.attempts
	t.mu.Unlock()

	if failed {
		t.opts.Bus.Publish(events.ReconnectFailed{Base: events.Stamp(), Attempts: attempts})
	}
}

// scheduleReconnectLocked arms the reconnect timer, or moves to the failed
// state once the attempt budget is spent. It reports the latter.
func (t *Transport) scheduleReconnectLocked() bool {
	if t.attempts >= MaxReconnectAttempts {
		t.state = StateFailed
		log.Printf("realtime: giving up after %d reconnect attempts", t.attempts)
		return true
	}
	t.attempts++
	t.state = StateDisconnected
	delay := t.opts.Delay(t.attempts)
	log.Printf("realtime: reconnect attempt %d in %v", t.attempts, delay)
	t.timers.After("reconnect", delay, func() {
		_ = t.Connect(t.ctx)
	})
	return false
}

func (t *Transport) attach(conn *websocket.Conn) {
	s := newSession(conn)

	t.mu.Lock()
	if t.closed || t.manual {
		t.state = StateDisconnected
		t.mu.Unlock()
		_ = conn.Close()
		return
	}
	reconnect := t.attempts > 0
	if reconnect {
		t.quality.recordReconnect(true)
	}
	t.attempts = 0
	t.state = StateConnected
	t.session = s
	t.lastPong = time.Time{}
	t.pingSent = time.Time{}
	t.wg.Add(1)
	t.mu.Unlock()

	log.Printf("realtime: connected to %s", t.opts.URL)
	go t.run(s)

	if t.opts.Hello != nil {
		t.Send(t.opts.Hello(t.now()))
	}
	t.flushOutbox()
	t.opts.Bus.Publish(events.Connected{Base: events.Stamp(), Reconnect: reconnect})
}

func (t *Transport) run(s *session) {
	defer t.wg.Done()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		t.readLoop(s)
	}()
	go func() {
		defer wg.Done()
		t.writeLoop(s)
	}()
	wg.Wait()

	code, reason := s.closeInfo()
	t.detach(s, code, reason)
}

// detach runs when a session ends on its own. Sessions ended by
// Disconnect were already detached.
func (t *Transport) detach(s *session, code int, reason string) {
	t.mu.Lock()
	if t.session != s {
		t.mu.Unlock()
		return
	}
	t.session = nil

	normal := code == websocket.CloseNormalClosure
	willReconnect := false
	failed := false
	switch {
	case t.closed || t.manual || normal:
		t.state = StateDisconnected
	default:
		t.quality.recordDisconnect()
		failed = t.scheduleReconnectLocked()
		willReconnect = !failed
	}
	attempts := t.attempts
	t.mu.Unlock()

	log.Printf("realtime: disconnected (code %d %s)", code, reason)
	t.opts.Bus.Publish(events.Disconnected{Base: events.Stamp(), Code: code, Reason: reason, WillReconnect: willReconnect})
	if failed {
		t.opts.Bus.Publish(events.ReconnectFailed{Base: events.Stamp(), Attempts: attempts})
	}
}

func (t *Transport) readLoop(s *session) {
	defer s.stop()
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			var ce *websocket.CloseError
			if errors.As(err, &ce) {
				s.setClose(ce.Code, ce.Text)
			} else {
				s.setClose(websocket.CloseAbnormalClosure, err.Error())
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("realtime: read error: %v", err)
			}
			return
		}
		s.touch()
		t.handleMessage(data)
	}
}

func (t *Transport) writeLoop(s *session) {
	defer s.stop()

	heartbeat := time.NewTimer(t.heartbeatInterval())
	defer heartbeat.Stop()
	var pongDeadline <-chan time.Time

	for {
		select {
		case <-s.done:
			return

		case <-s.quit:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = s.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			s.setClose(websocket.CloseNormalClosure, "client disconnect")
			return

		case data := <-s.send:
			if err := s.write(data); err != nil {
				log.Printf("realtime: write error: %v", err)
				return
			}

		case <-s.retick:
			heartbeat.Reset(t.heartbeatInterval())

		case <-s.activity:
			pongDeadline = nil

		case <-heartbeat.C:
			sent := t.now()
			data, err := json.Marshal(NewPing(sent))
			if err != nil {
				log.Printf("realtime: encode ping: %v", err)
				return
			}
			t.mu.Lock()
			t.pingSent = sent
			t.mu.Unlock()
			if err := s.write(data); err != nil {
				log.Printf("realtime: ping error: %v", err)
				return
			}
			if pongDeadline == nil {
				pongDeadline = time.After(t.opts.PongTimeout)
			}
			heartbeat.Reset(t.heartbeatInterval())

		case <-pongDeadline:
			log.Printf("realtime: no pong within %v, dropping connection", t.opts.PongTimeout)
			s.setClose(websocket.CloseAbnormalClosure, "heartbeat timeout")
			return
		}
	}
}

func (t *Transport) handleMessage(data []byte) {
	frame, err := Decode(data)
	if err != nil {
		log.Printf("realtime: dropping frame: %v", err)
		return
	}

	switch f := frame.(type) {
	case Ping:
		t.Send(NewPong(f, t.now()))
	case Pong:
		t.recordPong(f)
	case Heartbeat:
		t.Send(NewHeartbeatAck(t.now()))
	default:
		if t.opts.OnFrame != nil {
			t.opts.OnFrame(frame)
		}
	}
}

func (t *Transport) recordPong(p Pong) {
	now := t.now()
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastPong = now
	// Servers that do not echo client_time are timed against our last ping.
	switch {
	case p.ClientTime > 0:
		t.quality.recordLatency(now.Sub(time.UnixMilli(p.ClientTime)))
	case !t.pingSent.IsZero():
		t.quality.recordLatency(now.Sub(t.pingSent))
	}
	t.pingSent = time.Time{}
}

// Send transmits msg when connected. Otherwise msg is queued for the next
// open and Send returns false.
func (t *Transport) Send(msg Message) bool {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("realtime: encode %s: %v", msg.MessageType(), err)
		return false
	}

	t.mu.Lock()
	if s := t.session; s != nil && t.state == StateConnected {
		select {
		case s.send <- data:
			t.mu.Unlock()
			return true
		default:
		}
	}
	t.queue.push(data, t.now())
	size := t.queue.len()
	t.mu.Unlock()

	t.opts.Bus.Publish(events.QueueUpdated{Base: events.Stamp(), Size: size})
	return false
}

// flushOutbox hands queued messages to the live session in FIFO order.
// Messages that do not fit are retried after a growing delay.
func (t *Transport) flushOutbox() {
	t.mu.Lock()
	s := t.session
	if s == nil || t.queue.len() == 0 {
		t.mu.Unlock()
		return
	}
	entries, expired := t.queue.take(t.now())
	sent := 0
	var retry []outboxEntry
	for i, e := range entries {
		e.attempts++
		select {
		case s.send <- e.payload:
			sent++
			continue
		default:
		}
		retry = append(append(retry, e), entries[i+1:]...)
		break
	}
	t.queue.requeue(retry)
	left := t.queue.len()
	if len(retry) > 0 {
		t.timers.After("flush", outboxRetryDelay*time.Duration(retry[0].attempts), t.flushOutbox)
	}
	t.mu.Unlock()

	t.opts.Bus.Publish(events.QueueProcessed{Base: events.Stamp(), Sent: sent, Dropped: expired, Left: left})
}

// Disconnect closes the connection normally. No reconnect follows.
func (t *Transport) Disconnect() {
	t.mu.Lock()
	t.manual = true
	t.timers.Cancel("reconnect")
	t.timers.Cancel("flush")
	s := t.session
	t.session = nil
	wasOpen := s != nil
	t.state = StateDisconnected
	t.mu.Unlock()

	if !wasOpen {
		return
	}
	s.close()
	t.opts.Bus.Publish(events.Disconnected{
		Base:   events.Stamp(),
		Code:   websocket.CloseNormalClosure,
		Reason: "client disconnect",
	})
}

// Reconnect resets the attempt counter, drops any current connection and
// connects again shortly after. It also leaves the failed state.
func (t *Transport) Reconnect() {
	t.Disconnect()
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.attempts = 0
	t.manual = false
	t.timers.After("reconnect", manualReconnectDelay, func() {
		_ = t.Connect(t.ctx)
	})
	t.mu.Unlock()
}

// SetHidden switches between the foreground and background heartbeat.
// Becoming visible while not connected reconnects.
func (t *Transport) SetHidden(hidden bool) {
	t.mu.Lock()
	changed := t.hidden != hidden
	t.hidden = hidden
	s := t.session
	revive := changed && !hidden && !t.closed && t.started &&
		(t.state == StateFailed || (t.state == StateDisconnected && !t.manual))
	t.mu.Unlock()

	if changed && s != nil {
		select {
		case s.retick <- struct{}{}:
		default:
		}
	}
	if revive {
		t.Reconnect()
	}
}

// Status returns a copy of the transport state.
func (t *Transport) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Status{
		URL:       t.opts.URL,
		State:     t.state,
		Attempts:  t.attempts,
		Quality:   t.quality.clone(),
		QueueSize: t.queue.len(),
		LastPong:  t.lastPong,
		Hidden:    t.hidden,
		Heartbeat: t.heartbeatIntervalLocked(),
	}
}

// Close disconnects, cancels every timer and waits for the connection
// goroutines to exit.
func (t *Transport) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	t.mu.Unlock()

	t.Disconnect()
	t.timers.Close()
	t.cancel()
	t.wg.Wait()
}

func (t *Transport) heartbeatInterval() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.heartbeatIntervalLocked()
}

func (t *Transport) heartbeatIntervalLocked() time.Duration {
	if t.hidden {
		return t.opts.HiddenHeartbeat
	}
	return t.opts.Heartbeat
}

// session is one open connection. Only writeLoop writes to conn.
type session struct {
	conn     *websocket.Conn
	send     chan []byte
	activity chan struct{}
	retick   chan struct{}
	quit     chan struct{}
	done     chan struct{}

	stopOnce sync.Once
	quitOnce sync.Once

	mu     sync.Mutex
	code   int
	reason string
}

func newSession(conn *websocket.Conn) *session {
	return &session{
		conn:     conn,
		send:     make(chan []byte, sendBuffer),
		activity: make(chan struct{}, 1),
		retick:   make(chan struct{}, 1),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (s *session) write(data []byte) error {
	if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

func (s *session) touch() {
	select {
	case s.activity <- struct{}{}:
	default:
	}
}

// close asks writeLoop to send a normal close frame.
func (s *session) close() {
	s.quitOnce.Do(func() { close(s.quit) })
}

func (s *session) stop() {
	s.stopOnce.Do(func() {
		close(s.done)
		_ = s.conn.Close()
	})
}

// setClose records why the session ended. The first call wins.
func (s *session) setClose(code int, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.code == 0 {
		s.code = code
		s.reason = reason
	}
}

func (s *session) closeInfo() (int, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.code == 0 {
		return websocket.CloseAbnormalClosure, ""
	}
	return s.code, s.reason
}
