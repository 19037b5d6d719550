// Package state holds the view store shared by the renderers and the
// terminal UI.
//
// # Overview
//
// The renderers, the badge indicator and the orchestrator paint into one
// Store; the bubbletea program reads Snapshots from it on its own tick.
// The store plays the part of the page: each list is a named Region that
// must be declared before it can be painted, mirroring how a renderer
// expects its container to exist.
//
//	Producers:                       Consumer (UI):
//	┌─────────────────────┐         ┌──────────────────┐
//	│ render.Renderer ×4  │─Paint──→│                  │
//	│ badge.Indicator     │─Paint──→│ store.Snapshot() │
//	│ app (connection,    │─Set────→│       ↓          │
//	│      load outcome)  │         │    draw view     │
//	└─────────────────────┘         └──────────────────┘
//
// # Update Semantics
//
// RecordLoad keeps painted data when a load fails and only records the
// error, so the UI always shows the last good lists next to a stale
// indicator:
//
//	store.RecordLoad(err)
//	→ regions unchanged
//	→ LastError = err, ConsecutiveFailures++
//
// # Copying
//
// PaintRegion and Snapshot copy item slices, so neither the painter nor
// the UI can mutate what the other sees.
package state
