package ui

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/betweencoffee/baristaboard/internal/datamgr"
	"github.com/betweencoffee/baristaboard/internal/eshop"
	"github.com/betweencoffee/baristaboard/internal/prefs"
	"github.com/betweencoffee/baristaboard/internal/render"
	"github.com/betweencoffee/baristaboard/internal/state"
	"github.com/betweencoffee/baristaboard/internal/toast"
)

// Dashboard is the sync layer the UI drives.
type Dashboard interface {
	Store() *state.Store
	Toasts() *toast.Manager

	Refresh()
	Reconnect()
	ForceSync(ctx context.Context) error
	ShowStatusReport()

	Activate(topic datamgr.Topic) error
	ActiveTopic() datamgr.Topic
	SetHidden(hidden bool)

	Act(ctx context.Context, topic datamgr.Topic, orderID int64) error
	ActionFor(topic datamgr.Topic) eshop.Action
	OrderDetails(ctx context.Context, orderID int64) (eshop.Order, error)

	SetSound(on bool)
	Sound() bool
}

type tab struct {
	topic datamgr.Topic
	title string
}

var tabs = []tab{
	{datamgr.TopicWaitingOrders, "Waiting"},
	{datamgr.TopicPreparingOrders, "Preparing"},
	{datamgr.TopicReadyOrders, "Ready"},
	{datamgr.TopicCompletedOrders, "Completed"},
}

// Options configures the UI.
type Options struct {
	Context   context.Context
	Dashboard Dashboard
	Prefs     prefs.Prefs
	PrefsPath string
	PollTick  time.Duration
}

// selection remembers the highlighted order of one list by ID, so the
// cursor follows an order when the list is repainted around it.
type selection struct {
	row int
	id  int64
}

// detailState is the order details pane.
type detailState struct {
	id       int64
	loading  bool
	order    eshop.Order
	err      error
	viewport viewport.Model
}

// Model is the root application state for Bubble Tea.
type Model struct {
	ctx       context.Context
	dash      Dashboard
	keys      keyMap
	prefs     prefs.Prefs
	prefsPath string
	pollTick  time.Duration

	theme  Theme
	width  int
	height int
	ready  bool
	tab    int
	hidden bool

	snapshot    state.Snapshot
	toasts      []toast.Toast
	selections  map[datamgr.Topic]*selection
	detail      *detailState
	showHelp    bool
	lastUpdated time.Time
}

// New creates the model. The dashboard's active list becomes the first tab shown.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	pollTick := opts.PollTick
	if pollTick <= 0 {
		pollTick = DefaultUIInterval
	}
	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}

	m := Model{
		ctx:        ctx,
		dash:       opts.Dashboard,
		keys:       DefaultKeyMap(),
		prefs:      opts.Prefs,
		prefsPath:  prefsPath,
		pollTick:   pollTick,
		theme:      GetTheme(opts.Prefs.Theme),
		selections: make(map[datamgr.Topic]*selection, len(tabs)),
	}
	for _, t := range tabs {
		m.selections[t.topic] = &selection{}
	}
	if m.dash != nil {
		m.tab = tabIndex(m.dash.ActiveTopic())
	}
	return m
}

func tabIndex(topic datamgr.Topic) int {
	for i, t := range tabs {
		if t.topic == topic {
			return i
		}
	}
	return 0
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{tickCmd(m.pollTick)}
	if m.dash != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.dash))
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.resizeDetail()
		return m, nil

	case tea.FocusMsg:
		m.setHidden(false)
		return m, nil

	case tea.BlurMsg:
		m.setHidden(true)
		return m, nil

	case tickMsg:
		var cmd tea.Cmd
		if m.dash != nil {
			cmd = fetchSnapshotCmd(m.dash)
		}
		return m, tea.Batch(cmd, tickCmd(m.pollTick))

	case snapshotMsg:
		m.snapshot = msg.snapshot
		m.toasts = msg.toasts
		m.lastUpdated = time.Now()
		m.syncSelections()
		return m, nil

	case actionDoneMsg:
		// Outcome toasts come from the renderer; only unexpected errors land here.
		if msg.err != nil && !errors.Is(msg.err, render.ErrBusy) {
			log.Printf("ui: act on order %d in %s: %v", msg.id, msg.topic, msg.err)
		}
		return m, nil

	case detailMsg:
		if m.detail == nil || m.detail.id != msg.id {
			return m, nil
		}
		m.detail.loading = false
		m.detail.order = msg.order
		m.detail.err = msg.err
		m.refreshDetail()
		return m, nil
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}
	return m.renderMain()
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		m.showHelp = false
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil
	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.prefs.Theme = m.theme.Name
		m.savePrefs()
		return m, nil
	case key.Matches(msg, m.keys.Sound):
		on := !m.dash.Sound()
		m.dash.SetSound(on)
		m.prefs.Sound = on
		m.savePrefs()
		return m, nil
	case key.Matches(msg, m.keys.Refresh):
		m.dash.Refresh()
		return m, nil
	case key.Matches(msg, m.keys.Reconnect):
		m.dash.Reconnect()
		return m, nil
	case key.Matches(msg, m.keys.Status):
		m.dash.ShowStatusReport()
		return m, fetchSnapshotCmd(m.dash)
	case key.Matches(msg, m.keys.ForceSync):
		return m, forceSyncCmd(m.ctx, m.dash)
	case key.Matches(msg, m.keys.Dismiss):
		m.dash.Toasts().ClearAll()
		m.toasts = nil
		return m, nil
	}

	if m.detail != nil {
		return m.handleDetailKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.NextTab):
		return m.switchTab((m.tab + 1) % len(tabs))
	case key.Matches(msg, m.keys.PrevTab):
		return m.switchTab((m.tab + len(tabs) - 1) % len(tabs))
	case key.Matches(msg, m.keys.Waiting):
		return m.switchTab(0)
	case key.Matches(msg, m.keys.Preparing):
		return m.switchTab(1)
	case key.Matches(msg, m.keys.Ready):
		return m.switchTab(2)
	case key.Matches(msg, m.keys.Completed):
		return m.switchTab(3)
	case key.Matches(msg, m.keys.Up):
		m.moveSelection(-1)
	case key.Matches(msg, m.keys.Down):
		m.moveSelection(1)
	case key.Matches(msg, m.keys.Top):
		m.moveSelection(-len(m.items()))
	case key.Matches(msg, m.keys.Bottom):
		m.moveSelection(len(m.items()))
	case key.Matches(msg, m.keys.Act):
		return m, m.actCmd()
	case key.Matches(msg, m.keys.Details):
		return m.openDetail()
	}
	return m, nil
}

func (m Model) handleDetailKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Close) || key.Matches(msg, m.keys.Details) {
		m.detail = nil
		return m, nil
	}
	var cmd tea.Cmd
	m.detail.viewport, cmd = m.detail.viewport.Update(msg)
	return m, cmd
}

func (m Model) switchTab(i int) (tea.Model, tea.Cmd) {
	if i == m.tab {
		return m, nil
	}
	topic := tabs[i].topic
	if err := m.dash.Activate(topic); err != nil {
		log.Printf("ui: activate %s: %v", topic, err)
		return m, nil
	}
	m.tab = i
	m.prefs.StartTab = string(topic)
	m.savePrefs()
	return m, fetchSnapshotCmd(m.dash)
}

func (m *Model) setHidden(hidden bool) {
	if m.hidden == hidden || m.dash == nil {
		return
	}
	m.hidden = hidden
	m.dash.SetHidden(hidden)
}

func (m Model) savePrefs() {
	if m.prefsPath == "" {
		return
	}
	if err := prefs.Save(m.prefsPath, m.prefs); err != nil {
		log.Printf("ui: save prefs: %v", err)
	}
}

func (m Model) activeTopic() datamgr.Topic {
	return tabs[m.tab].topic
}

// items returns the painted rows of the active list.
func (m Model) items() []state.Item {
	return m.snapshot.Regions[string(m.activeTopic())].Items
}

// selected returns the highlighted row of the active list.
func (m Model) selected() (state.Item, bool) {
	items := m.items()
	sel := m.selections[m.activeTopic()]
	if sel == nil || len(items) == 0 || sel.row >= len(items) {
		return state.Item{}, false
	}
	return items[sel.row], true
}

func (m *Model) moveSelection(delta int) {
	items := m.items()
	sel := m.selections[m.activeTopic()]
	if sel == nil || len(items) == 0 {
		return
	}
	sel.row = clamp(sel.row+delta, 0, len(items)-1)
	sel.id = items[sel.row].ID
}

// syncSelections keeps each list's cursor on the same order after a repaint,
// clamping when that order left the list.
func (m *Model) syncSelections() {
	for _, t := range tabs {
		sel := m.selections[t.topic]
		items := m.snapshot.Regions[string(t.topic)].Items
		if len(items) == 0 {
			sel.row, sel.id = 0, 0
			continue
		}
		found := false
		if sel.id != 0 {
			for i, item := range items {
				if item.ID == sel.id {
					sel.row = i
					found = true
					break
				}
			}
		}
		if !found {
			sel.row = clamp(sel.row, 0, len(items)-1)
			sel.id = items[sel.row].ID
		}
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func (m Model) actCmd() tea.Cmd {
	item, ok := m.selected()
	if !ok || item.Pending {
		return nil
	}
	topic := m.activeTopic()
	if m.dash.ActionFor(topic) == 0 {
		return nil
	}
	return actCmd(m.ctx, m.dash, topic, item.ID)
}

func (m Model) openDetail() (tea.Model, tea.Cmd) {
	item, ok := m.selected()
	if !ok {
		return m, nil
	}
	m.detail = &detailState{id: item.ID, loading: true, viewport: viewport.New(0, 0)}
	m.resizeDetail()
	m.refreshDetail()
	return m, detailCmd(m.ctx, m.dash, item.ID)
}

// Run starts the program and blocks until the user quits or ctx is done.
func Run(opts Options) error {
	m := New(opts)
	p := tea.NewProgram(m,
		tea.WithAltScreen(),
		tea.WithReportFocus(),
		tea.WithContext(m.ctx),
	)
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && m.ctx.Err() != nil {
		return nil
	}
	return err
}

// Messages

type tickMsg time.Time

type snapshotMsg struct {
	snapshot state.Snapshot
	toasts   []toast.Toast
}

type actionDoneMsg struct {
	topic datamgr.Topic
	id    int64
	err   error
}

type detailMsg struct {
	id    int64
	order eshop.Order
	err   error
}

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetchSnapshotCmd(d Dashboard) tea.Cmd {
	return func() tea.Msg {
		return snapshotMsg{snapshot: d.Store().Snapshot(), toasts: d.Toasts().Visible()}
	}
}

func actCmd(ctx context.Context, d Dashboard, topic datamgr.Topic, id int64) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, ActionTimeout)
		defer cancel()
		return actionDoneMsg{topic: topic, id: id, err: d.Act(ctx, topic, id)}
	}
}

func detailCmd(ctx context.Context, d Dashboard, id int64) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, DetailTimeout)
		defer cancel()
		order, err := d.OrderDetails(ctx, id)
		return detailMsg{id: id, order: order, err: err}
	}
}

func forceSyncCmd(ctx context.Context, d Dashboard) tea.Cmd {
	return func() tea.Msg {
		if err := d.ForceSync(ctx); err != nil {
			log.Printf("ui: force sync: %v", err)
		}
		return nil
	}
}
