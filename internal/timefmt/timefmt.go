// Package timefmt formats backend timestamps for display in the shop's
// local zone (Asia/Hong_Kong). All functions are pure; callers pass "now".
package timefmt

import (
	"fmt"
	"strings"
	"time"
)

// Zone is the display location for every timestamp shown on the dashboard.
var Zone = loadZone()

const (
	dateTimeLayout = "2006/01/02 15:04:05"
	clockLayout    = "15:04"
	clock12Layout  = "3:04:05 PM"
	backendLayout  = "2006-01-02 15:04:05"
	isoLocalLayout = "2006-01-02T15:04:05.999999"
)

func loadZone() *time.Location {
	loc, err := time.LoadLocation("Asia/Hong_Kong")
	if err != nil {
		return time.FixedZone("HKT", 8*60*60)
	}
	return loc
}

// Parse accepts the timestamp shapes the backend emits. Values without an
// offset are read in Zone. The zero time is returned when nothing matches.
func Parse(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	for _, layout := range []string{isoLocalLayout, backendLayout} {
		if t, err := time.ParseInLocation(layout, value, Zone); err == nil {
			return t
		}
	}
	return time.Time{}
}

// DateTime renders a full date and time.
func DateTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.In(Zone).Format(dateTimeLayout)
}

// Clock renders HH:MM.
func Clock(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.In(Zone).Format(clockLayout)
}

// Clock12 renders a 12-hour clock with seconds, e.g. "3:04:05 PM".
func Clock12(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.In(Zone).Format(clock12Layout)
}

// Relative describes how long ago t was.
func Relative(t, now time.Time) string {
	if t.IsZero() {
		return "just now"
	}
	minutes := int(now.Sub(t) / time.Minute)
	switch {
	case minutes < 1:
		return "just now"
	case minutes < 60:
		return fmt.Sprintf("%d min ago", minutes)
	case minutes < 24*60:
		return fmt.Sprintf("%d h ago", minutes/60)
	default:
		return fmt.Sprintf("%d d ago", minutes/(24*60))
	}
}

// Countdown renders the remaining time until target. Once target is
// reached the completed form is returned; done reports that case.
func Countdown(target, now time.Time) (text string, done bool) {
	if target.IsZero() {
		return "time not set", true
	}
	remaining := target.Sub(now)
	if remaining <= 0 {
		return CompletedText(target), true
	}
	secs := int(remaining.Round(time.Second) / time.Second)
	if secs < 60 {
		return fmt.Sprintf("Estimated: %ds", secs), false
	}
	return fmt.Sprintf("Estimated: %dm %02ds", secs/60, secs%60), false
}

// CompletedText is the label shown once an estimate has passed.
func CompletedText(target time.Time) string {
	if target.IsZero() {
		return "time not set"
	}
	return "Completed: " + Clock12(target)
}

// Elapsed renders a compact duration such as "7m" or "1h 05m".
func Elapsed(from, now time.Time) string {
	if from.IsZero() {
		return ""
	}
	d := now.Sub(from)
	if d < 0 {
		d = 0
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d/time.Minute))
	}
	return fmt.Sprintf("%dh %02dm", int(d/time.Hour), int(d%time.Hour/time.Minute))
}
