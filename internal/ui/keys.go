package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines all keyboard bindings for the dashboard.
type keyMap struct {
	// Lists
	NextTab   key.Binding
	PrevTab   key.Binding
	Waiting   key.Binding
	Preparing key.Binding
	Ready     key.Binding
	Completed key.Binding

	// Navigation
	Up     key.Binding
	Down   key.Binding
	Top    key.Binding
	Bottom key.Binding

	// Orders
	Act     key.Binding
	Details key.Binding
	Close   key.Binding

	// Sync
	Refresh   key.Binding
	Reconnect key.Binding
	Status    key.Binding
	ForceSync key.Binding
	Dismiss   key.Binding

	// General
	Sound      key.Binding
	CycleTheme key.Binding
	Help       key.Binding
	Quit       key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() keyMap {
	return keyMap{
		NextTab:   key.NewBinding(key.WithKeys("tab", "l", "right"), key.WithHelp("tab/l", "Next list")),
		PrevTab:   key.NewBinding(key.WithKeys("shift+tab", "h", "left"), key.WithHelp("S-tab/h", "Previous list")),
		Waiting:   key.NewBinding(key.WithKeys("1"), key.WithHelp("1", "Waiting")),
		Preparing: key.NewBinding(key.WithKeys("2"), key.WithHelp("2", "Preparing")),
		Ready:     key.NewBinding(key.WithKeys("3"), key.WithHelp("3", "Ready")),
		Completed: key.NewBinding(key.WithKeys("4"), key.WithHelp("4", "Completed")),

		Up:     key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/↑", "Move up")),
		Down:   key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/↓", "Move down")),
		Top:    key.NewBinding(key.WithKeys("g", "home"), key.WithHelp("g", "First order")),
		Bottom: key.NewBinding(key.WithKeys("G", "end"), key.WithHelp("G", "Last order")),

		Act:     key.NewBinding(key.WithKeys("enter", "a"), key.WithHelp("enter/a", "Advance order")),
		Details: key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "Order details")),
		Close:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "Close details")),

		Refresh:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "Refresh now")),
		Reconnect: key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "Reconnect realtime")),
		Status:    key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "Connection details")),
		ForceSync: key.NewBinding(key.WithKeys("S"), key.WithHelp("S", "Force queue sync")),
		Dismiss:   key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "Dismiss notifications")),

		Sound:      key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "Toggle sound")),
		CycleTheme: key.NewBinding(key.WithKeys("T"), key.WithHelp("T", "Cycle theme")),
		Help:       key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "Toggle help")),
		Quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "Quit")),
	}
}

// ShortHelp returns the bindings shown in the footer.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.NextTab, k.Act, k.Details, k.Refresh, k.Status, k.Help, k.Quit}
}

// FullHelp returns the bindings shown in the help overlay, one group per column.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.NextTab, k.PrevTab, k.Waiting, k.Preparing, k.Ready, k.Completed},
		{k.Up, k.Down, k.Top, k.Bottom, k.Act, k.Details, k.Close},
		{k.Refresh, k.Reconnect, k.Status, k.ForceSync, k.Dismiss},
		{k.Sound, k.CycleTheme, k.Help, k.Quit},
	}
}
