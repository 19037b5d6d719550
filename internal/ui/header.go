package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/betweencoffee/baristaboard/internal/badge"
)

// renderHeader renders the top bar: logo, realtime indicator, badge
// counters and the load state.
func (m Model) renderHeader() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	parts := []string{
		bg.Render("baristaboard", styles.Logo),
		m.connectionIndicator(styles, bg),
	}
	if m.snapshot.HasBadges {
		b := m.snapshot.Badges
		counts := [4]int{b.Waiting, b.Preparing, b.Ready, b.Completed}
		for i, label := range badge.Labels {
			style := styles.Text
			if counts[i] > 0 && i == 0 {
				style = styles.WarningText.Bold(true)
			}
			parts = append(parts,
				bg.Render(label+":", styles.MutedText)+bg.Spaces(1)+
					bg.Render(fmt.Sprintf("%d", counts[i]), style))
		}
	}
	if status := m.loadStatus(styles, bg); status != "" {
		parts = append(parts, status)
	}

	return styles.Header.Width(m.width).Render(bg.Join(parts, "  "))
}

// connectionIndicator is the passive realtime status: a dot colored by
// state, then the quality label and score once connected.
func (m Model) connectionIndicator(styles Styles, bg BgStyle) string {
	c := m.snapshot.Connection
	switch c.State {
	case "connected":
		style := styles.SuccessText
		switch {
		case c.Score < 40:
			style = styles.DangerText
		case c.Score < 70:
			style = styles.WarningText
		}
		return bg.Render("● Live", style) + bg.Spaces(1) +
			bg.Render(fmt.Sprintf("%s %d", c.Label, c.Score), styles.FaintText)
	case "connecting":
		text := "● Connecting"
		if c.Attempts > 0 {
			text = fmt.Sprintf("● Reconnecting (%d)", c.Attempts)
		}
		return bg.Render(text, styles.WarningText)
	case "failed":
		return bg.Render("● Realtime off", styles.DangerText)
	default:
		text := "● Polling"
		if c.QueueSize > 0 {
			text = fmt.Sprintf("● Polling, %d queued", c.QueueSize)
		}
		return bg.Render(text, styles.MutedText)
	}
}

// loadStatus describes the last snapshot load, empty when healthy.
func (m Model) loadStatus(styles Styles, bg BgStyle) string {
	s := m.snapshot
	switch {
	case s.MaxRetriesReached:
		return bg.Render("Updates paused, press r", styles.DangerText)
	case s.IsOffline():
		since := "never"
		if !s.LastUpdated.IsZero() {
			since = s.LastUpdated.Format("15:04:05")
		}
		return bg.Render("OFFLINE", styles.DangerText) + bg.Spaces(1) +
			bg.Render("last try "+since, styles.MutedText)
	case s.LastError != nil:
		return bg.Render("Refresh failed, retrying", styles.WarningText)
	}
	return ""
}

// renderTabs renders the list selector with per-list counts.
func (m Model) renderTabs() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	b := m.snapshot.Badges
	counts := [4]int{b.Waiting, b.Preparing, b.Ready, b.Completed}

	parts := make([]string, 0, len(tabs))
	for i, t := range tabs {
		label := fmt.Sprintf("%d %s", i+1, t.title)
		if m.snapshot.HasBadges {
			label += fmt.Sprintf(" (%d)", counts[i])
		}
		if i == m.tab {
			parts = append(parts, styles.ListStyle(string(t.topic)).Bold(true).Render(label))
			continue
		}
		parts = append(parts, bg.Render(" "+label+" ", styles.MutedText))
	}
	return styles.Header.Width(m.width).Render(bg.Join(parts, " "))
}

// renderFooter renders the short key help plus sound and theme state.
func (m Model) renderFooter() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	segments := make([]string, 0, 10)
	for _, binding := range m.keys.ShortHelp() {
		h := binding.Help()
		if binding.Help().Key == m.keys.Act.Help().Key {
			action := m.dash.ActionFor(m.activeTopic())
			if action == 0 {
				continue
			}
			h.Desc = capitalize(action.String())
		}
		segments = append(segments, bg.Render(h.Key, styles.AccentText)+bg.Render(":", styles.FaintText)+bg.Render(h.Desc, styles.MutedText))
	}
	sound := "off"
	if m.dash.Sound() {
		sound = "on"
	}
	segments = append(segments,
		bg.Render("b", styles.AccentText)+bg.Render(":", styles.FaintText)+bg.Render("sound "+sound, styles.FaintText),
		bg.Render("T", styles.AccentText)+bg.Render(":", styles.FaintText)+bg.Render(m.theme.Name, styles.FaintText),
	)
	return styles.Footer.Width(m.width).Render(bg.Join(segments, "  "))
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// renderMain stacks header, tabs, content and footer.
func (m Model) renderMain() string {
	contentHeight := m.height - 3
	if contentHeight < 1 {
		contentHeight = 1
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		m.renderTabs(),
		m.renderContent(m.width, contentHeight),
		m.renderFooter(),
	)
}
