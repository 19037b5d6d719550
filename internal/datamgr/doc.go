// Package datamgr is the single owner of the dashboard's order snapshot.
//
// Every producer of "something changed" (the realtime channel, tab
// switches, focus changes, the refresh timer, staff pressing refresh)
// calls RequestRefresh with its Source. Each source is debounced on its
// own window and feeds one request channel; one loop goroutine drains it
// and performs the loads, so bursts from several producers end in a
// single fetch.
//
// After a successful load the manager notifies listeners topic by topic
// in the order of Topics. Failures retry with exponential backoff up to a
// bounded count, then publish events.MaxRetriesReached.
package datamgr
