package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/betweencoffee/baristaboard/internal/datamgr"
	"github.com/betweencoffee/baristaboard/internal/realtime"
	"github.com/betweencoffee/baristaboard/internal/timefmt"
	"github.com/betweencoffee/baristaboard/internal/toast"
)

const reportDuration = 10 * time.Second

// Report is the connection details view.
type Report struct {
	Connection realtime.Status
	Data       datamgr.Stats
	Toasts     toast.Status
	At         time.Time
}

// StatusReport gathers the current connection and data details.
func (a *App) StatusReport() Report {
	return Report{
		Connection: a.transport.Status(),
		Data:       a.manager.Stats(),
		Toasts:     a.toasts.Status(),
		At:         time.Now(),
	}
}

// ShowStatusReport shows the report as a notification.
func (a *App) ShowStatusReport() {
	r := a.StatusReport()
	a.toasts.Show(toast.Options{
		Title:    "Connection details",
		Message:  strings.Join(r.Lines(), "\n"),
		Severity: toast.Info,
		Duration: toast.For(reportDuration),
	})
}

// Lines renders the report one fact per line.
func (r Report) Lines() []string {
	c := r.Connection
	q := c.Quality
	lines := []string{
		fmt.Sprintf("Realtime: %s (%s, score %d)", c.State, q.Label(), q.Score),
	}
	if len(q.Latencies) == 0 {
		lines = append(lines, "Latency: no samples yet")
	} else {
		lines = append(lines, fmt.Sprintf("Latency: %v avg over %d pings",
			q.AverageLatency().Round(time.Millisecond), len(q.Latencies)))
	}
	lines = append(lines,
		fmt.Sprintf("Disconnects: %d, reconnects ok %d, failed %d",
			q.Disconnects, q.ReconnectSuccess, q.ReconnectFailures),
		fmt.Sprintf("Outbound queue: %d, heartbeat every %v", c.QueueSize, c.Heartbeat),
	)
	if !c.LastPong.IsZero() {
		lines = append(lines, "Last pong: "+timefmt.Clock12(c.LastPong))
	}
	if c.Attempts > 0 {
		lines = append(lines, fmt.Sprintf("Reconnect attempt %d of %d", c.Attempts, realtime.MaxReconnectAttempts))
	}

	d := r.Data
	lines = append(lines, fmt.Sprintf("Orders: %d waiting, %d preparing, %d ready, %d completed",
		d.Waiting, d.Preparing, d.Ready, d.Completed))
	if d.HasData {
		lines = append(lines, fmt.Sprintf("Last load: %s, errors %d, refresh every %v",
			timefmt.Relative(d.LastUpdate, r.At), d.ErrorCount, d.Interval))
	} else {
		lines = append(lines, fmt.Sprintf("No data loaded yet, errors %d", d.ErrorCount))
	}
	return lines
}
