package ui

import "time"

// Terminal width thresholds for responsive layouts.
const (
	// LayoutCompactWidth is the width below which secondary columns are dropped.
	LayoutCompactWidth = 100

	// LayoutSplitWidth is the minimum width for a side-by-side detail pane.
	LayoutSplitWidth = 140
)

// Display limits.
const (
	// MaxToastLines caps the lines one notification may occupy.
	MaxToastLines = 6

	// ToastWidth is the notification box width, border included.
	ToastWidth = 44

	// nameWidth is the customer name column width.
	nameWidth = 18
)

// Timing constants.
const (
	// DefaultUIInterval is how often the view store is re-read.
	DefaultUIInterval = 250 * time.Millisecond

	// ActionTimeout bounds one transition request.
	ActionTimeout = 15 * time.Second

	// DetailTimeout bounds one order details request.
	DetailTimeout = 10 * time.Second
)
