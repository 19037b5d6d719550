// Package realtime keeps the dashboard's WebSocket channel to the backend
// alive: heartbeats, backoff reconnection, an offline outbox and a
// connection quality score.
//
// Inbound frames decode into a closed union of value types. The transport
// answers heartbeat frames itself and hands everything else to a
// Dispatcher, which turns order events into notifications and refresh
// signals for the data manager.
package realtime
