package app

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"github.com/betweencoffee/baristaboard/internal/config"
	"github.com/betweencoffee/baristaboard/internal/datamgr"
	"github.com/betweencoffee/baristaboard/internal/eshop"
	"github.com/betweencoffee/baristaboard/internal/prefs"
	"github.com/betweencoffee/baristaboard/internal/realtime"
	"github.com/betweencoffee/baristaboard/internal/toast"
)

const unifiedData = `{"success":true,"timestamp":"2026-10-16T10:00:00Z","data":{
	"badge_summary":{"waiting":1,"preparing":0,"ready":0,"completed":0},
	"waiting_orders":[{"id":7,"pickup_code":"B2","name":"Mia","total_price":"38.00"}],
	"preparing_orders":[],"ready_orders":[],"completed_orders":[]}}`

var upgrader = websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

// syncBuffer is a bytes.Buffer safe for one writer goroutine and a polling reader.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// shopServer serves the unified snapshot, order transitions and the staff
// channel. It returns the hello frame the client sent.
type shopServer struct {
	*httptest.Server
	hello   chan map[string]any
	acted   atomic.Int32
	fetches atomic.Int32
	send    chan string
}

func newShopServer(t *testing.T) *shopServer {
	t.Helper()
	s := &shopServer{hello: make(chan map[string]any, 4), send: make(chan string, 4)}
	mux := http.NewServeMux()
	mux.HandleFunc(eshop.SnapshotPath, func(w http.ResponseWriter, r *http.Request) {
		s.fetches.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, unifiedData)
	})
	mux.HandleFunc("/eshop/queue/start/7/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method", http.StatusMethodNotAllowed)
			return
		}
		s.acted.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"success":true,"message":"Order #7 is being prepared"}`)
	})
	mux.HandleFunc(realtime.StaffPath, func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var msg map[string]any
		_ = json.Unmarshal(data, &msg)
		s.hello <- msg
		_ = conn.SetReadDeadline(time.Time{})
		go func() {
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()
		for frame := range s.send {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
				return
			}
		}
	})
	s.Server = httptest.NewServer(mux)
	t.Cleanup(func() {
		close(s.send)
		s.Close()
	})
	return s
}

func startApp(t *testing.T, srv *shopServer, bell io.Writer) *App {
	t.Helper()
	p := prefs.Defaults()
	a, err := New(config.Config{BaseURL: srv.URL, StaffID: "barista-1"}, p, Tuning{
		Bell:        bell,
		StatusEvery: 20 * time.Millisecond,
		Transport:   realtime.Options{Delay: func(int) time.Duration { return 10 * time.Millisecond }},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(a.Close)
	a.Start(context.Background())
	return a
}

func TestApp_LoadsSnapshotIntoEveryList(t *testing.T) {
	srv := newShopServer(t)
	a := startApp(t, srv, io.Discard)

	eventually(t, "badge counters", func() bool {
		return a.Store().Snapshot().HasBadges
	})
	snap := a.Store().Snapshot()
	if snap.Badges.Waiting != 1 || snap.Badges.Preparing != 0 {
		t.Fatalf("badges = %+v, want 1 waiting", snap.Badges)
	}

	eventually(t, "waiting list", func() bool {
		r, ok := a.Store().Region(string(datamgr.TopicWaitingOrders))
		return ok && len(r.Items) == 1
	})
	waiting, _ := a.Store().Region(string(datamgr.TopicWaitingOrders))
	if waiting.Items[0].ID != 7 || waiting.Items[0].PickupCode != "B2" {
		t.Fatalf("waiting items = %+v, want order 7", waiting.Items)
	}

	// Inactive lists paint once they are shown.
	for _, topic := range []datamgr.Topic{datamgr.TopicPreparingOrders, datamgr.TopicReadyOrders, datamgr.TopicCompletedOrders} {
		if err := a.Activate(topic); err != nil {
			t.Fatalf("Activate(%s): %v", topic, err)
		}
		eventually(t, string(topic)+" empty state", func() bool {
			r, ok := a.Store().Region(string(topic))
			return ok && r.Empty && len(r.Items) == 0
		})
	}
	if got := a.ActiveTopic(); got != datamgr.TopicCompletedOrders {
		t.Fatalf("active = %s, want completed_orders", got)
	}
}

func TestApp_RealtimeHelloAndNewOrder(t *testing.T) {
	srv := newShopServer(t)
	bell := &syncBuffer{}
	a := startApp(t, srv, bell)

	var hello map[string]any
	select {
	case hello = <-srv.hello:
	case <-time.After(3 * time.Second):
		t.Fatal("server never received the hello frame")
	}
	if hello["type"] != "connect" || hello["user_type"] != "staff" || hello["user_id"] != "barista-1" {
		t.Fatalf("hello = %v, want staff connect for barista-1", hello)
	}

	eventually(t, "connected indicator", func() bool {
		return a.Store().Snapshot().Connection.State == string(realtime.StateConnected)
	})

	before := srv.fetches.Load()
	srv.send <- `{"type":"new_order","order_id":8,"customer_name":"Leo","items_count":2}`

	eventually(t, "new order toast", func() bool {
		for _, tt := range a.Toasts().Visible() {
			if tt.Title == "New order" && strings.Contains(tt.Message, "#8") {
				return true
			}
		}
		return false
	})
	eventually(t, "sound cue", func() bool { return strings.Contains(bell.String(), "\a") })
	eventually(t, "refresh after new order", func() bool { return srv.fetches.Load() > before })
}

func TestApp_SoundOff(t *testing.T) {
	srv := newShopServer(t)
	bell := &syncBuffer{}
	a := startApp(t, srv, bell)
	a.SetSound(false)
	a.cue()
	if bell.String() != "" {
		t.Fatalf("bell = %q, want silence", bell.String())
	}
	a.SetSound(true)
	a.cue()
	if bell.String() != "\a" {
		t.Fatalf("bell = %q, want one cue", bell.String())
	}
}

func TestApp_ActShowsOutcome(t *testing.T) {
	srv := newShopServer(t)
	a := startApp(t, srv, io.Discard)

	if err := a.Act(context.Background(), datamgr.TopicWaitingOrders, 7); err != nil {
		t.Fatalf("Act: %v", err)
	}
	if srv.acted.Load() != 1 {
		t.Fatalf("transition requests = %d, want 1", srv.acted.Load())
	}
	found := false
	for _, tt := range a.Toasts().Visible() {
		if tt.Severity == toast.Success {
			found = true
		}
	}
	if !found {
		t.Fatal("expected a success toast after the transition")
	}
	if got := a.ActionFor(datamgr.TopicWaitingOrders); got != eshop.ActionStartPreparing {
		t.Fatalf("ActionFor(waiting) = %v", got)
	}
}

func TestApp_UnknownTopic(t *testing.T) {
	srv := newShopServer(t)
	a := startApp(t, srv, io.Discard)

	if err := a.Activate(datamgr.TopicBadgeSummary); !errors.Is(err, ErrUnknownTopic) {
		t.Fatalf("Activate(badge) err = %v, want ErrUnknownTopic", err)
	}
	if err := a.Act(context.Background(), datamgr.TopicAllData, 1); !errors.Is(err, ErrUnknownTopic) {
		t.Fatalf("Act(all_data) err = %v, want ErrUnknownTopic", err)
	}
	if a.ActionFor(datamgr.TopicCompletedOrders) != 0 {
		t.Fatal("completed orders have no action")
	}
}

func TestStartTopic(t *testing.T) {
	tests := []struct {
		in   string
		want datamgr.Topic
	}{
		{"ready_orders", datamgr.TopicReadyOrders},
		{"badge_summary", datamgr.TopicWaitingOrders},
		{"nonsense", datamgr.TopicWaitingOrders},
		{"", datamgr.TopicWaitingOrders},
	}
	for _, tt := range tests {
		if got := startTopic(tt.in); got != tt.want {
			t.Fatalf("startTopic(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestSummarize(t *testing.T) {
	snap := eshop.Snapshot{
		BadgeSummary: eshop.BadgeSummary{Waiting: 1, Ready: 1},
		WaitingOrders: []eshop.Order{{
			ID: 7, PickupCode: "B2", Name: "Mia", IsQuickOrder: true,
			TotalPrice: decimal.RequireFromString("38"),
			Items:      []eshop.OrderItem{{Name: "Latte", Quantity: 2}},
		}},
		ReadyOrders: []eshop.Order{{ID: 3, TotalPrice: decimal.RequireFromString("4.5")}},
		Defaulted:   []string{"completed_orders"},
	}
	now := time.Date(2026, 10, 16, 10, 0, 0, 0, time.UTC)
	s := Summarize("http://shop.test", snap, now)

	if s.Counts.Total != 2 || s.Counts.Waiting != 1 {
		t.Fatalf("counts = %+v", s.Counts)
	}
	if s.ServerTime != nil {
		t.Fatal("zero server time should stay nil")
	}
	if len(s.Lists) != len(Tabs) {
		t.Fatalf("lists = %d, want %d", len(s.Lists), len(Tabs))
	}
	w := s.Lists[0]
	if w.Title != "Waiting" || len(w.Orders) != 1 {
		t.Fatalf("waiting list = %+v", w)
	}
	want := OrderLine{ID: 7, PickupCode: "B2", Name: "Mia", Items: 2, Total: "38.00", Expedited: true}
	if w.Orders[0] != want {
		t.Fatalf("order line = %+v, want %+v", w.Orders[0], want)
	}
	if s.Lists[1].Orders == nil || len(s.Lists[1].Orders) != 0 {
		t.Fatal("empty lists should be non-nil and empty")
	}
	if s.Lists[2].Orders[0].Total != "4.50" {
		t.Fatalf("ready total = %q", s.Lists[2].Orders[0].Total)
	}
	if len(s.Defaulted) != 1 {
		t.Fatalf("defaulted = %v", s.Defaulted)
	}
}

func TestFetchSummary(t *testing.T) {
	srv := newShopServer(t)
	s, err := FetchSummary(context.Background(), config.Config{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("FetchSummary: %v", err)
	}
	if s.Counts.Waiting != 1 || s.Lists[0].Orders[0].ID != 7 {
		t.Fatalf("summary = %+v", s)
	}
	if s.ServerTime == nil {
		t.Fatal("server time from the envelope should be set")
	}
}

func TestReportLines(t *testing.T) {
	at := time.Date(2026, 10, 16, 10, 0, 0, 0, time.UTC)
	r := Report{
		Connection: realtime.Status{
			State:     realtime.StateConnected,
			Quality:   realtime.Quality{Score: 90, Latencies: []time.Duration{40 * time.Millisecond, 60 * time.Millisecond}, Disconnects: 1},
			QueueSize: 2,
			Heartbeat: 30 * time.Second,
		},
		Data: datamgr.Stats{Waiting: 3, Ready: 1, HasData: true, LastUpdate: at.Add(-5 * time.Second), Interval: 30 * time.Second},
		At:   at,
	}
	lines := r.Lines()
	joined := strings.Join(lines, "\n")
	for _, want := range []string{
		"Realtime: connected (good, score 90)",
		"Latency: 50ms avg over 2 pings",
		"Disconnects: 1, reconnects ok 0, failed 0",
		"Outbound queue: 2, heartbeat every 30s",
		"Orders: 3 waiting, 0 preparing, 1 ready, 0 completed",
	} {
		if !strings.Contains(joined, want) {
			t.Fatalf("report missing %q:\n%s", want, joined)
		}
	}
	if strings.Contains(joined, "Reconnect attempt") {
		t.Fatal("no reconnect line without attempts")
	}

	r.Connection.Quality.Latencies = nil
	r.Connection.Attempts = 2
	r.Data = datamgr.Stats{ErrorCount: 4}
	joined = strings.Join(r.Lines(), "\n")
	for _, want := range []string{"Latency: no samples yet", "Reconnect attempt 2 of", "No data loaded yet, errors 4"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("report missing %q:\n%s", want, joined)
		}
	}
}

func decodeFrame(t *testing.T, raw string) realtime.Frame {
	t.Helper()
	f, err := realtime.Decode([]byte(raw))
	if err != nil {
		t.Fatalf("Decode(%s): %v", raw, err)
	}
	return f
}

func TestDescribeUpdate(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{`{"type":"order_status_update","order_id":4,"status":"preparing","status_display":"Preparing","message":"On it"}`, "status: Preparing (On it)"},
		{`{"type":"order_status_update","order_id":4,"status":"ready"}`, "status: ready"},
		{`{"type":"queue_position_update","order_id":4,"position":2,"estimated_time":"5 min"}`, "queue position: 2, estimated 5 min"},
		{`{"type":"queue_position_update","order_id":4,"position":1}`, "queue position: 1"},
		{`{"type":"payment_status_update","order_id":4,"payment_status":"paid"}`, "payment: paid"},
		{`{"type":"order_ready_notification","order_id":4,"pickup_code":"K9"}`, "ready for pickup, code K9"},
		{`{"type":"system_message","message":"Closing at 6"}`, "notice: Closing at 6"},
		{`{"type":"mystery"}`, ""},
	}
	for _, tt := range tests {
		if got := describeUpdate(decodeFrame(t, tt.raw)); got != tt.want {
			t.Fatalf("describeUpdate(%s) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestTrack_PrintsCustomerUpdates(t *testing.T) {
	handshake := make(chan map[string]any, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != realtime.OrderPath("42") {
			http.NotFound(w, r)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var msg map[string]any
		_ = json.Unmarshal(data, &msg)
		handshake <- msg
		for _, frame := range []string{
			`{"type":"order_status_update","order_id":42,"status":"preparing","status_display":"Preparing"}`,
			`{"type":"order_ready_notification","order_id":42,"pickup_code":"K9"}`,
		} {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
				return
			}
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	out := &syncBuffer{}
	done := make(chan error, 1)
	go func() { done <- Track(ctx, config.Config{BaseURL: srv.URL}, " 42 ", out) }()

	select {
	case msg := <-handshake:
		if msg["type"] != "handshake" || msg["order_id"] != "42" || msg["user_type"] != "customer" {
			t.Fatalf("handshake = %v", msg)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("server never received the handshake")
	}

	eventually(t, "tracked updates", func() bool {
		s := out.String()
		return strings.Contains(s, "connected, tracking order #42") &&
			strings.Contains(s, "status: Preparing") &&
			strings.Contains(s, "ready for pickup, code K9")
	})

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Track returned %v after cancel, want nil", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Track did not return after cancel")
	}
}

func TestTrack_RejectsEmptyOrderID(t *testing.T) {
	if err := Track(context.Background(), config.Config{}, "  ", io.Discard); err == nil {
		t.Fatal("expected an error for an empty order id")
	}
}
