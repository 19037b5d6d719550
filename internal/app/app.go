package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"

	"github.com/betweencoffee/baristaboard/internal/badge"
	"github.com/betweencoffee/baristaboard/internal/config"
	"github.com/betweencoffee/baristaboard/internal/datamgr"
	"github.com/betweencoffee/baristaboard/internal/eshop"
	"github.com/betweencoffee/baristaboard/internal/events"
	"github.com/betweencoffee/baristaboard/internal/prefs"
	"github.com/betweencoffee/baristaboard/internal/realtime"
	"github.com/betweencoffee/baristaboard/internal/render"
	"github.com/betweencoffee/baristaboard/internal/state"
	"github.com/betweencoffee/baristaboard/internal/toast"
)

// ErrUnknownTopic is returned for tabs that have no renderer.
var ErrUnknownTopic = errors.New("unknown order list")

// Tabs are the order lists in display order, each with its transition.
var Tabs = []struct {
	Topic  datamgr.Topic
	Title  string
	Action eshop.Action
}{
	{datamgr.TopicWaitingOrders, "Waiting", eshop.ActionStartPreparing},
	{datamgr.TopicPreparingOrders, "Preparing", eshop.ActionMarkReady},
	{datamgr.TopicReadyOrders, "Ready", eshop.ActionMarkCollected},
	{datamgr.TopicCompletedOrders, "Completed", 0},
}

// Tuning adjusts the orchestrator. Zero values use production settings.
type Tuning struct {
	// Bell receives the sound cue. Nil uses stderr.
	Bell io.Writer
	// Manager and Transport override the sync layer settings; Fetcher and
	// Bus are always filled in by New.
	Manager   datamgr.Options
	Transport realtime.Options
	// StatusEvery is how often the connection indicator is refreshed.
	StatusEvery time.Duration
}

// App owns every sync-layer component for one dashboard session.
type App struct {
	cfg  config.Config
	opts Tuning

	client     *eshop.Client
	bus        *events.Bus
	toasts     *toast.Manager
	store      *state.Store
	manager    *datamgr.Manager
	badges     *badge.Indicator
	renderers  []*render.Renderer
	transport  *realtime.Transport
	dispatcher *realtime.Dispatcher

	mu          sync.Mutex
	sound       bool
	active      datamgr.Topic
	retryToast  string
	unsubscribe []events.UnsubscribeFunc
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	started     bool
	closed      bool
}

// New builds the component graph without starting it.
func New(cfg config.Config, p prefs.Prefs, opts Tuning) (*App, error) {
	client, err := eshop.NewClient(cfg.BaseURL, cfg.CSRFToken)
	if err != nil {
		return nil, fmt.Errorf("init shop client: %w", err)
	}
	if opts.Bell == nil {
		opts.Bell = os.Stderr
	}

	a := &App{cfg: cfg, opts: opts, client: client, sound: p.Sound}

	a.bus = events.NewBus(100)
	a.toasts = toast.NewManager()

	regions := make([]string, 0, len(Tabs))
	for _, tab := range Tabs {
		regions = append(regions, string(tab.Topic))
	}
	a.store = state.NewStore(regions...)

	mopts := opts.Manager
	mopts.Fetcher = client
	mopts.Bus = a.bus
	a.manager = datamgr.New(mopts)

	a.badges = badge.New(a.store)

	a.active = startTopic(p.StartTab)
	for _, tab := range Tabs {
		a.renderers = append(a.renderers, render.New(
			render.Config{Topic: tab.Topic, Action: tab.Action},
			render.Deps{Source: a.manager, Surface: a.store, Actor: client, Notifier: a.toasts},
		))
	}

	topts := opts.Transport
	topts.URL = realtime.Endpoint(client.BaseURL(), realtime.StaffPath)
	topts.Bus = a.bus
	topts.Hello = func(now time.Time) realtime.Message {
		return realtime.NewConnect(cfg.StaffID, now)
	}
	topts.OnFrame = a.handleFrame
	a.transport = realtime.New(topts)

	a.dispatcher = realtime.NewDispatcher(a.toasts, realtime.RefreshFunc(func() {
		a.manager.RequestRefresh(datamgr.SourceRealtime)
	}), a.cue)

	a.subscribe()
	return a, nil
}

func startTopic(name string) datamgr.Topic {
	topic, err := datamgr.ParseTopic(name)
	if err != nil {
		return datamgr.TopicWaitingOrders
	}
	for _, tab := range Tabs {
		if tab.Topic == topic {
			return topic
		}
	}
	return datamgr.TopicWaitingOrders
}

func (a *App) handleFrame(f realtime.Frame) {
	a.dispatcher.Handle(f)
}

func (a *App) subscribe() {
	on := func(kind events.Kind, h events.Handler) {
		a.unsubscribe = append(a.unsubscribe, a.bus.Subscribe(kind, h))
	}

	on(events.KindDataUpdated, func(events.Event) {
		a.store.RecordLoad(nil)
		a.mu.Lock()
		id := a.retryToast
		a.retryToast = ""
		a.mu.Unlock()
		if id != "" {
			a.toasts.Hide(id)
		}
	})
	on(events.KindDataError, func(ev events.Event) {
		a.store.RecordLoad(ev.(events.DataError).Err)
	})
	on(events.KindMaxRetriesReached, func(ev events.Event) {
		a.store.MarkMaxRetries()
		id := a.toasts.Show(toast.Options{
			Title:    "Orders could not be loaded",
			Message:  "The server did not respond after several attempts. Press r to retry.",
			Severity: toast.Error,
			Duration: toast.Sticky(),
		})
		a.mu.Lock()
		a.retryToast = id
		a.mu.Unlock()
	})
	on(events.KindListenerError, func(ev events.Event) {
		le := ev.(events.ListenerError)
		log.Printf("app: %s listener error: %v", le.Topic, le.Err)
	})
	on(events.KindConnected, func(events.Event) {
		a.syncConnection()
		a.manager.NotifyOnline()
	})
	on(events.KindDisconnected, func(ev events.Event) {
		d := ev.(events.Disconnected)
		log.Printf("app: realtime disconnected (%d %s), reconnect=%v", d.Code, d.Reason, d.WillReconnect)
		a.syncConnection()
	})
	on(events.KindReconnectFailed, func(ev events.Event) {
		a.syncConnection()
		a.toasts.Show(toast.Options{
			Title:    "Live updates paused",
			Message:  fmt.Sprintf("Could not reconnect after %d attempts. Press c to try again.", ev.(events.ReconnectFailed).Attempts),
			Severity: toast.Warning,
		})
	})
	on(events.KindQueueUpdated, func(events.Event) { a.syncConnection() })
	on(events.KindQueueProcessed, func(events.Event) { a.syncConnection() })
}

// Start begins loading and connects the realtime channel. A failed first
// connect is logged; the transport keeps retrying on its own.
func (a *App) Start(ctx context.Context) {
	a.mu.Lock()
	if a.started || a.closed {
		a.mu.Unlock()
		return
	}
	a.started = true
	ctx, a.cancel = context.WithCancel(ctx)
	active := a.active
	a.mu.Unlock()

	a.badges.Start(a.manager)
	for _, r := range a.renderers {
		r.Start(r.Topic() == active)
	}
	a.manager.Start()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.transport.Connect(ctx); err != nil {
			log.Printf("app: realtime connect failed: %v", err)
		}
		a.syncConnection()
	}()

	every := a.opts.StatusEvery
	if every <= 0 {
		every = defaultStatusInterval
	}
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		runPoller(ctx, every, a.syncConnection)
	}()

	if a.cfg.Path != "" {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			err := config.Watch(ctx, a.cfg.Path, 0, func(c config.Config) {
				log.Printf("app: config reloaded, updating anti-forgery token")
				a.client.SetCSRFToken(c.CSRFToken)
			})
			if err != nil {
				log.Printf("app: config watch stopped: %v", err)
			}
		}()
	}
}

func (a *App) syncConnection() {
	st := a.transport.Status()
	a.store.SetConnection(state.Connection{
		State:     string(st.State),
		Score:     st.Quality.Score,
		Label:     st.Quality.Label(),
		QueueSize: st.QueueSize,
		Attempts:  st.Attempts,
	})
}

func (a *App) cue() {
	a.mu.Lock()
	on := a.sound
	a.mu.Unlock()
	if on {
		_, _ = io.WriteString(a.opts.Bell, "\a")
	}
}

// SetSound turns the audible cue on or off.
func (a *App) SetSound(on bool) {
	a.mu.Lock()
	a.sound = on
	a.mu.Unlock()
}

// Sound reports whether the audible cue is on.
func (a *App) Sound() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sound
}

// Store is the view store the UI draws.
func (a *App) Store() *state.Store { return a.store }

// Toasts is the notification facility.
func (a *App) Toasts() *toast.Manager { return a.toasts }

// Bus carries sync-layer events.
func (a *App) Bus() *events.Bus { return a.bus }

// Refresh starts a fresh load cycle, clearing the error backoff.
func (a *App) Refresh() {
	a.manager.ResetErrors()
	a.manager.ForceRefresh()
}

// Reconnect restarts the realtime channel, also after it gave up.
func (a *App) Reconnect() {
	a.transport.Reconnect()
}

// ForceSync asks the backend to rebuild its queue state, then reloads.
func (a *App) ForceSync(ctx context.Context) error {
	res, err := a.client.ForceSync(ctx)
	if err != nil {
		a.toasts.Show(toast.Options{Title: "Force sync failed", Message: err.Error(), Severity: toast.Error})
		return err
	}
	msg := res.Message
	if msg == "" {
		msg = "Queue state rebuilt"
	}
	a.toasts.Show(toast.Options{Title: "Force sync", Message: msg, Severity: toast.Success})
	a.Refresh()
	return nil
}

// Activate shows topic's tab and hides the others.
func (a *App) Activate(topic datamgr.Topic) error {
	if a.renderer(topic) == nil {
		return fmt.Errorf("%w: %s", ErrUnknownTopic, topic)
	}
	a.mu.Lock()
	a.active = topic
	a.mu.Unlock()
	for _, r := range a.renderers {
		if r.Topic() != topic {
			r.Deactivate()
		}
	}
	a.renderer(topic).Activate()
	return nil
}

// ActiveTopic returns the shown tab.
func (a *App) ActiveTopic() datamgr.Topic {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.active
}

// SetHidden tells the sync layer whether the dashboard is in view.
func (a *App) SetHidden(hidden bool) {
	a.manager.SetHidden(hidden)
	a.transport.SetHidden(hidden)
}

// Act applies topic's transition to orderID.
func (a *App) Act(ctx context.Context, topic datamgr.Topic, orderID int64) error {
	r := a.renderer(topic)
	if r == nil {
		return fmt.Errorf("%w: %s", ErrUnknownTopic, topic)
	}
	return r.Act(ctx, orderID)
}

// ActionFor returns the transition offered on topic, zero for none.
func (a *App) ActionFor(topic datamgr.Topic) eshop.Action {
	if r := a.renderer(topic); r != nil {
		return r.Action()
	}
	return 0
}

// OrderDetails fetches one order's full record.
func (a *App) OrderDetails(ctx context.Context, orderID int64) (eshop.Order, error) {
	return a.client.OrderDetails(ctx, orderID)
}

func (a *App) renderer(topic datamgr.Topic) *render.Renderer {
	for _, r := range a.renderers {
		if r.Topic() == topic {
			return r
		}
	}
	return nil
}

// Close tears everything down in reverse order of construction.
func (a *App) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	cancel := a.cancel
	unsubscribe := a.unsubscribe
	a.unsubscribe = nil
	a.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	a.transport.Close()
	for _, r := range a.renderers {
		r.Close()
	}
	a.badges.Close()
	a.manager.Close()
	for _, un := range unsubscribe {
		un()
	}
	a.toasts.Close()
	a.wg.Wait()
}
