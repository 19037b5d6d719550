// Package ui is the Bubble Tea front end of the order dashboard.
//
// # Architecture
//
// The UI never talks to the backend directly. It drives a Dashboard (the
// sync layer assembled by package app) and draws what the renderers
// painted into the shared state.Store:
//
//	tick (250ms) → Store().Snapshot() + Toasts().Visible() → View()
//	key press    → Dashboard call (Activate, Act, Refresh, ...)
//
// Blocking calls (order transitions, order details, force sync) run as
// tea.Cmds so Update never waits on the network.
//
// # Layout
//
//   - header.go: logo, realtime indicator, badge counters, tab bar, footer
//   - orders.go: the active order list and the bordered box helper
//   - detail.go: the order details pane (bubbles viewport)
//   - toasts.go: the notification column
//   - help.go:   key reference overlay built from keys.go
//
// Focus reporting is enabled, so leaving the terminal window marks the
// dashboard hidden and the sync layer backs off its polling.
package ui
