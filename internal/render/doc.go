// Package render turns one order list of the snapshot into a painted
// region of the view store.
//
// A Renderer listens on its own topic and on all_data, and renders once
// per load. Hidden tabs cache instead of painting; Activate paints the
// cache, the manager's current data, or asks for a refresh, in that order.
// Preparing orders with an estimate get a one-second countdown that stops
// at completion. Act runs the list's transition and marks the row pending
// until the next snapshot shows the outcome.
package render
