package realtime

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/betweencoffee/baristaboard/internal/events"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

// startServer runs handler for every accepted connection and returns the
// ws:// URL plus a counter of accepted connections.
func startServer(t *testing.T, handler func(n int32, conn *websocket.Conn)) (string, *atomic.Int32) {
	t.Helper()
	var count atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		handler(count.Add(1), conn)
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http"), &count
}

func readType(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Errorf("server read: %v", err)
		return nil
	}
	var msg map[string]any
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Errorf("server decode %s: %v", data, err)
	}
	return msg
}

func collect(bus *events.Bus, kind events.Kind) <-chan events.Event {
	ch := make(chan events.Event, 32)
	bus.Subscribe(kind, func(ev events.Event) {
		select {
		case ch <- ev:
		default:
		}
	})
	return ch
}

func waitEvent(t *testing.T, ch <-chan events.Event) events.Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func waitState(t *testing.T, tr *Transport, want State) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if tr.Status().State == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("state = %s, want %s", tr.Status().State, want)
}

func newTestTransport(t *testing.T, opts Options) *Transport {
	t.Helper()
	if opts.Bus == nil {
		opts.Bus = events.NewBus(50)
	}
	if opts.Delay == nil {
		opts.Delay = func(int) time.Duration { return 10 * time.Millisecond }
	}
	tr := New(opts)
	t.Cleanup(tr.Close)
	return tr
}

func TestTransport_HelloThenQueuedMessages(t *testing.T) {
	got := make(chan []string, 1)
	wsURL, _ := startServer(t, func(_ int32, conn *websocket.Conn) {
		var types []string
		for i := 0; i < 3; i++ {
			msg := readType(t, conn)
			types = append(types, fmt.Sprint(msg["type"]))
			if i == 0 && msg["user_type"] != "staff" {
				t.Errorf("connect frame = %v", msg)
			}
		}
		got <- types
		_, _, _ = conn.ReadMessage()
	})

	bus := events.NewBus(50)
	queued := collect(bus, events.KindQueueUpdated)
	tr := newTestTransport(t, Options{
		URL:   wsURL,
		Bus:   bus,
		Hello: func(now time.Time) Message { return NewConnect("staff-1", now) },
	})

	if tr.Send(NewHeartbeatAck(time.Now())) {
		t.Fatal("Send while disconnected reported success")
	}
	if ev := waitEvent(t, queued).(events.QueueUpdated); ev.Size != 1 {
		t.Fatalf("queue size = %d, want 1", ev.Size)
	}

	if err := tr.Connect(context.Background()); err != nil {
		t.Fatalf("Connect returned error: %v", err)
	}
	if !tr.Send(NewPing(time.Now())) {
		t.Fatal("Send while connected reported failure")
	}

	select {
	case types := <-got:
		want := []string{"connect", "heartbeat_ack", "ping"}
		for i := range want {
			if types[i] != want[i] {
				t.Fatalf("server saw %v, want %v", types, want)
			}
		}
	case <-time.After(3 * time.Second):
		t.Fatal("server did not receive messages")
	}
	if size := tr.Status().QueueSize; size != 0 {
		t.Fatalf("queue size after connect = %d", size)
	}
}

func TestTransport_ConnectIsIdempotent(t *testing.T) {
	wsURL, count := startServer(t, func(_ int32, conn *websocket.Conn) {
		_, _, _ = conn.ReadMessage()
	})
	tr := newTestTransport(t, Options{URL: wsURL})

	for i := 0; i < 3; i++ {
		if err := tr.Connect(context.Background()); err != nil {
			t.Fatalf("Connect returned error: %v", err)
		}
	}
	time.Sleep(50 * time.Millisecond)
	if n := count.Load(); n != 1 {
		t.Fatalf("connections = %d, want 1", n)
	}
}

func TestTransport_AnswersPingAndRecordsLatency(t *testing.T) {
	pong := make(chan map[string]any, 1)
	wsURL, _ := startServer(t, func(_ int32, conn *websocket.Conn) {
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping","client_time":123}`))
		pong <- readType(t, conn)
		clientTime := time.Now().Add(-40 * time.Millisecond).UnixMilli()
		data, _ := json.Marshal(map[string]any{"type": "pong", "client_time": clientTime})
		_ = conn.WriteMessage(websocket.TextMessage, data)
		_, _, _ = conn.ReadMessage()
	})
	tr := newTestTransport(t, Options{URL: wsURL})
	if err := tr.Connect(context.Background()); err != nil {
		t.Fatalf("Connect returned error: %v", err)
	}

	select {
	case msg := <-pong:
		if msg["type"] != "pong" || msg["client_time"] != float64(123) {
			t.Fatalf("reply = %v, want pong echoing client_time", msg)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no pong reply")
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if st := tr.Status(); len(st.Quality.Latencies) == 1 {
			if st.Quality.Latencies[0] < 40*time.Millisecond {
				t.Fatalf("latency = %v, want at least 40ms", st.Quality.Latencies[0])
			}
			if st.LastPong.IsZero() {
				t.Fatal("LastPong not recorded")
			}
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("latency sample not recorded")
}

func TestTransport_ForwardsBusinessFrames(t *testing.T) {
	wsURL, _ := startServer(t, func(_ int32, conn *websocket.Conn) {
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`garbage`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"order_ready","order_id":42,"pickup_code":"A1"}`))
		_, _, _ = conn.ReadMessage()
	})
	frames := make(chan Frame, 4)
	tr := newTestTransport(t, Options{URL: wsURL, OnFrame: func(f Frame) { frames <- f }})
	if err := tr.Connect(context.Background()); err != nil {
		t.Fatalf("Connect returned error: %v", err)
	}

	select {
	case f := <-frames:
		if ready, ok := f.(OrderReady); !ok || ready.OrderID != "42" {
			t.Fatalf("frame = %#v, want order_ready 42", f)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("frame not forwarded")
	}
	if st := tr.Status().State; st != StateConnected {
		t.Fatalf("state after malformed frame = %s, want connected", st)
	}
}

func TestTransport_ReconnectsAfterAbnormalClose(t *testing.T) {
	wsURL, count := startServer(t, func(n int32, conn *websocket.Conn) {
		if n == 1 {
			return
		}
		_, _, _ = conn.ReadMessage()
	})
	bus := events.NewBus(50)
	connected := collect(bus, events.KindConnected)
	disconnected := collect(bus, events.KindDisconnected)
	tr := newTestTransport(t, Options{URL: wsURL, Bus: bus})

	if err := tr.Connect(context.Background()); err != nil {
		t.Fatalf("Connect returned error: %v", err)
	}
	if ev := waitEvent(t, connected).(events.Connected); ev.Reconnect {
		t.Fatal("first connect flagged as reconnect")
	}
	if ev := waitEvent(t, disconnected).(events.Disconnected); !ev.WillReconnect {
		t.Fatalf("disconnect = %+v, want reconnect", ev)
	}
	if ev := waitEvent(t, connected).(events.Connected); !ev.Reconnect {
		t.Fatal("second connect not flagged as reconnect")
	}
	if n := count.Load(); n != 2 {
		t.Fatalf("connections = %d, want 2", n)
	}
	st := tr.Status()
	if st.Attempts != 0 || st.Quality.Disconnects != 1 || st.Quality.ReconnectSuccess != 1 {
		t.Fatalf("status = %+v", st)
	}
}

func TestTransport_NormalCloseDoesNotReconnect(t *testing.T) {
	wsURL, count := startServer(t, func(_ int32, conn *websocket.Conn) {
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
		time.Sleep(100 * time.Millisecond)
	})
	bus := events.NewBus(50)
	disconnected := collect(bus, events.KindDisconnected)
	tr := newTestTransport(t, Options{URL: wsURL, Bus: bus})

	if err := tr.Connect(context.Background()); err != nil {
		t.Fatalf("Connect returned error: %v", err)
	}
	ev := waitEvent(t, disconnected).(events.Disconnected)
	if ev.Code != websocket.CloseNormalClosure || ev.WillReconnect {
		t.Fatalf("disconnect = %+v, want normal close without reconnect", ev)
	}
	time.Sleep(100 * time.Millisecond)
	if n := count.Load(); n != 1 {
		t.Fatalf("connections = %d, want 1", n)
	}
	if st := tr.Status().State; st != StateDisconnected {
		t.Fatalf("state = %s", st)
	}
}

func TestTransport_DisconnectSendsNormalClose(t *testing.T) {
	closeCode := make(chan int, 1)
	wsURL, count := startServer(t, func(_ int32, conn *websocket.Conn) {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				code := 0
				if ce, ok := err.(*websocket.CloseError); ok {
					code = ce.Code
				}
				closeCode <- code
				return
			}
		}
	})
	tr := newTestTransport(t, Options{URL: wsURL})
	if err := tr.Connect(context.Background()); err != nil {
		t.Fatalf("Connect returned error: %v", err)
	}
	tr.Disconnect()

	select {
	case code := <-closeCode:
		if code != websocket.CloseNormalClosure {
			t.Fatalf("close code = %d, want 1000", code)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("server did not see close")
	}
	time.Sleep(100 * time.Millisecond)
	if n := count.Load(); n != 1 {
		t.Fatalf("connections = %d, want 1", n)
	}
}

func TestTransport_TimesPongWithoutClientTime(t *testing.T) {
	wsURL, _ := startServer(t, func(_ int32, conn *websocket.Conn) {
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var msg map[string]any
			if json.Unmarshal(data, &msg) != nil || msg["type"] != "ping" {
				continue
			}
			time.Sleep(30 * time.Millisecond)
			reply := fmt.Sprintf(`{"type":"pong","timestamp":%q}`, time.Now().Format(time.RFC3339))
			if err := conn.WriteMessage(websocket.TextMessage, []byte(reply)); err != nil {
				return
			}
		}
	})
	tr := newTestTransport(t, Options{URL: wsURL, Heartbeat: 50 * time.Millisecond})
	if err := tr.Connect(context.Background()); err != nil {
		t.Fatalf("Connect returned error: %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if st := tr.Status(); len(st.Quality.Latencies) > 0 {
			if got := st.Quality.Latencies[0]; got < 30*time.Millisecond || got > 2*time.Second {
				t.Fatalf("latency = %v, want the ping round trip", got)
			}
			if st.LastPong.IsZero() {
				t.Fatal("LastPong not recorded")
			}
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("no latency sample recorded, status = %+v", tr.Status())
}

// gatedServer refuses the websocket upgrade until open is set.
func gatedServer(t *testing.T) (string, *atomic.Bool) {
	t.Helper()
	var open atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !open.Load() {
			http.NotFound(w, r)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http"), &open
}

func TestTransport_GivesUpAfterMaxAttempts(t *testing.T) {
	wsURL, open := gatedServer(t)

	bus := events.NewBus(50)
	failed := collect(bus, events.KindReconnectFailed)
	tr := newTestTransport(t, Options{URL: wsURL, Bus: bus, Delay: func(int) time.Duration { return time.Millisecond }})

	if err := tr.Connect(context.Background()); err == nil {
		t.Fatal("Connect to a refusing server succeeded")
	}
	ev := waitEvent(t, failed).(events.ReconnectFailed)
	if ev.Attempts != MaxReconnectAttempts {
		t.Fatalf("attempts = %d, want %d", ev.Attempts, MaxReconnectAttempts)
	}
	waitState(t, tr, StateFailed)
	if q := tr.Status().Quality; q.ReconnectFailures != MaxReconnectAttempts {
		t.Fatalf("reconnect failures = %d", q.ReconnectFailures)
	}

	// Failed is terminal: nothing retries on its own.
	open.Store(true)
	time.Sleep(50 * time.Millisecond)
	if st := tr.Status().State; st != StateFailed {
		t.Fatalf("state = %s without Reconnect, want failed", st)
	}

	tr.Reconnect()
	waitState(t, tr, StateConnected)
	if n := tr.Status().Attempts; n != 0 {
		t.Fatalf("attempts after reconnect = %d, want 0", n)
	}
}

func TestTransport_SetHiddenSwitchesHeartbeat(t *testing.T) {
	pings := make(chan struct{}, 8)
	wsURL, _ := startServer(t, func(_ int32, conn *websocket.Conn) {
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var msg map[string]any
			if json.Unmarshal(data, &msg) == nil && msg["type"] == "ping" {
				select {
				case pings <- struct{}{}:
				default:
				}
			}
		}
	})
	tr := newTestTransport(t, Options{
		URL:             wsURL,
		Heartbeat:       time.Hour,
		HiddenHeartbeat: 20 * time.Millisecond,
	})
	if got := tr.Status().Heartbeat; got != time.Hour {
		t.Fatalf("heartbeat = %v, want 1h", got)
	}
	if err := tr.Connect(context.Background()); err != nil {
		t.Fatalf("Connect returned error: %v", err)
	}

	tr.SetHidden(true)
	st := tr.Status()
	if !st.Hidden || st.Heartbeat != 20*time.Millisecond {
		t.Fatalf("status = hidden %v heartbeat %v, want hidden heartbeat", st.Hidden, st.Heartbeat)
	}
	select {
	case <-pings:
	case <-time.After(3 * time.Second):
		t.Fatal("no ping on the hidden heartbeat")
	}

	tr.SetHidden(false)
	if got := tr.Status().Heartbeat; got != time.Hour {
		t.Fatalf("heartbeat after visible = %v, want 1h", got)
	}
	if st := tr.Status().State; st != StateConnected {
		t.Fatalf("state = %s, want connected", st)
	}
}

func TestTransport_BecomingVisibleRevivesFailed(t *testing.T) {
	wsURL, open := gatedServer(t)
	tr := newTestTransport(t, Options{URL: wsURL, Delay: func(int) time.Duration { return time.Millisecond }})

	_ = tr.Connect(context.Background())
	waitState(t, tr, StateFailed)

	tr.SetHidden(true)
	open.Store(true)
	time.Sleep(50 * time.Millisecond)
	if st := tr.Status().State; st != StateFailed {
		t.Fatalf("state = %s while hidden, want failed", st)
	}

	tr.SetHidden(false)
	waitState(t, tr, StateConnected)
}

func TestTransport_HeartbeatTimeout(t *testing.T) {
	wsURL, _ := startServer(t, func(_ int32, conn *websocket.Conn) {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	bus := events.NewBus(50)
	disconnected := collect(bus, events.KindDisconnected)
	tr := newTestTransport(t, Options{
		URL:         wsURL,
		Bus:         bus,
		Heartbeat:   20 * time.Millisecond,
		PongTimeout: 30 * time.Millisecond,
		Delay:       func(int) time.Duration { return time.Hour },
	})
	if err := tr.Connect(context.Background()); err != nil {
		t.Fatalf("Connect returned error: %v", err)
	}
	ev := waitEvent(t, disconnected).(events.Disconnected)
	if ev.Reason != "heartbeat timeout" || !ev.WillReconnect {
		t.Fatalf("disconnect = %+v, want heartbeat timeout", ev)
	}
}

func TestTransport_ClosedRejectsConnect(t *testing.T) {
	tr := New(Options{URL: "ws://127.0.0.1:1/"})
	tr.Close()
	if err := tr.Connect(context.Background()); err != ErrClosed {
		t.Fatalf("Connect after Close = %v, want ErrClosed", err)
	}
}

func TestEndpoint(t *testing.T) {
	tests := []struct {
		base, path, want string
	}{
		{"http://127.0.0.1:8000", StaffPath, "ws://127.0.0.1:8000/ws/queue/"},
		{"https://shop.example/", OrderPath("42"), "wss://shop.example/ws/order/42/"},
	}
	for _, tt := range tests {
		u, err := url.Parse(tt.base)
		if err != nil {
			t.Fatal(err)
		}
		if got := Endpoint(u, tt.path); got != tt.want {
			t.Errorf("Endpoint(%s, %s) = %s, want %s", tt.base, tt.path, got, tt.want)
		}
	}
}
