// Package app is the composition root of the order dashboard.
//
// # Overview
//
// New builds every sync-layer component for one session and wires them
// together; Start brings them up and Close tears them down in reverse.
// The package also hosts the two one-shot commands, FetchSummary (status)
// and Track (follow one order on the customer channel).
//
// # Construction Order
//
//	eshop.Client   HTTP client for the queue API
//	events.Bus     sync-layer events, 100 entries of history
//	toast.Manager  notifications
//	state.Store    one region per order list
//	datamgr        snapshot owner, fed by the client
//	badge          header counters
//	render ×4      one renderer per list, each with its transition
//	realtime       staff channel on /ws/queue/, connect frame as hello
//	dispatcher     frames → toasts, sound cue, realtime refresh
//
// # Event Wiring
//
//	DataUpdated        → store.RecordLoad(nil), hide the retry toast
//	DataError          → store.RecordLoad(err)
//	MaxRetriesReached  → sticky error toast, "press r"
//	Connected          → connection indicator, online refresh
//	Disconnected       → connection indicator
//	ReconnectFailed    → warning toast, "press c"
//	Queue{Updated,Processed} → connection indicator
//
// Pongs publish nothing, so a poller refreshes the connection indicator
// every two seconds as well.
//
// # Startup
//
// Start never blocks on the network: the first realtime dial runs in the
// background and a failure only logs, since the transport reconnects on
// its own and the data manager keeps polling regardless.
//
// When the config was read from a file, Start watches it and pushes a new
// anti-forgery token into the client on every change.
package app
