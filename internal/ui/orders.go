package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/truncate"

	"github.com/betweencoffee/baristaboard/internal/state"
)

// renderContent lays out the order list, the detail pane and the
// notification column.
func (m Model) renderContent(width, height int) string {
	toastCol := ""
	if len(m.toasts) > 0 && width >= LayoutCompactWidth {
		toastCol = m.renderToasts(ToastWidth, height)
		width -= ToastWidth
	}

	var main string
	switch {
	case m.detail != nil && width >= LayoutSplitWidth-ToastWidth:
		listWidth := width * 45 / 100
		main = lipgloss.JoinHorizontal(lipgloss.Top,
			m.renderList(listWidth, height),
			m.renderDetail(width-listWidth, height),
		)
	case m.detail != nil:
		main = m.renderDetail(width, height)
	default:
		if len(m.toasts) > 0 && toastCol == "" {
			stack := m.renderToasts(width, height/2)
			stackHeight := lipgloss.Height(stack)
			return lipgloss.JoinVertical(lipgloss.Left, stack, m.renderList(width, height-stackHeight))
		}
		main = m.renderList(width, height)
	}

	if toastCol == "" {
		return main
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, main, toastCol)
}

// renderList renders the active list inside a titled box.
func (m Model) renderList(width, height int) string {
	styles := m.theme.Styles().WithBackground(m.theme.Panel)
	t := tabs[m.tab]
	inner := width - 2
	innerHeight := height - 2

	region, painted := m.snapshot.Regions[string(t.topic)]
	var body string
	switch {
	case !painted:
		body = placeCenter(inner, innerHeight, styles.MutedText.Render("Loading orders..."), m.theme.Panel)
	case region.Empty || len(region.Items) == 0:
		text := region.EmptyText
		if text == "" {
			text = "No orders"
		}
		body = placeCenter(inner, innerHeight, styles.MutedText.Render(text), m.theme.Panel)
	default:
		body = m.renderRows(region.Items, inner, innerHeight)
	}
	return m.renderTitledBox(t.title, body, width, height, m.detail == nil)
}

func placeCenter(width, height int, s, bgColor string) string {
	if width <= 0 || height <= 0 {
		return ""
	}
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, s,
		lipgloss.WithWhitespaceBackground(lipgloss.Color(bgColor)))
}

// renderRows renders up to height rows, scrolled so the selection is visible.
// Each order takes two lines.
func (m Model) renderRows(items []state.Item, width, height int) string {
	perPage := height / 2
	if perPage < 1 {
		perPage = 1
	}
	row := 0
	if sel := m.selections[m.activeTopic()]; sel != nil {
		row = sel.row
	}
	start := 0
	if row >= perPage {
		start = row - perPage + 1
	}
	end := start + perPage
	if end > len(items) {
		end = len(items)
	}

	lines := make([]string, 0, 2*(end-start))
	for i := start; i < end; i++ {
		first, second := m.formatItem(items[i], width, i == row)
		lines = append(lines, first, second)
	}
	return strings.Join(lines, "\n")
}

// formatItem renders one order as a title line and a detail line.
func (m Model) formatItem(item state.Item, width int, selected bool) (string, string) {
	compact := width < LayoutCompactWidth-ToastWidth

	marker := "  "
	if selected {
		marker = "▸ "
	}
	code := item.PickupCode
	if code == "" {
		code = "—"
	}
	flag := "  "
	if item.Expedited {
		flag = "⚡"
	}
	name := fitName(item.Name, nameWidth)

	titleParts := []string{marker + flag + " " + runewidth.FillRight(code, 6), name}
	if item.Countdown != "" {
		titleParts = append(titleParts, item.Countdown)
	}
	if item.Pending {
		titleParts = append(titleParts, "updating...")
	}
	title := strings.Join(titleParts, "  ")

	detailParts := []string{}
	if item.Summary != "" && !compact {
		detailParts = append(detailParts, item.Summary)
	}
	if item.Status != "" {
		detailParts = append(detailParts, item.Status)
	}
	detail := "       " + strings.Join(detailParts, " · ")

	title = truncate.StringWithTail(title, uint(max(width, 0)), "…")
	detail = truncate.StringWithTail(detail, uint(max(width, 0)), "…")

	styles := m.theme.Styles()
	line := lipgloss.NewStyle().Width(width).Background(lipgloss.Color(m.theme.Panel))
	titleStyle := styles.Text.Inherit(line)
	detailStyle := styles.MutedText.Inherit(line)
	switch {
	case item.Pending:
		titleStyle = styles.FaintText.Inherit(line)
		detailStyle = titleStyle
	case selected:
		titleStyle = styles.Selected.Bold(true).Width(width)
		detailStyle = styles.Selected.Width(width)
	case item.Expedited:
		titleStyle = styles.WarningText.Inherit(line)
	}
	return titleStyle.Render(title), detailStyle.Render(detail)
}

// fitName truncates or pads a customer name to exactly width cells.
func fitName(name string, width int) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "Guest"
	}
	if runewidth.StringWidth(name) > width {
		name = runewidth.Truncate(name, width, "…")
	}
	return runewidth.FillRight(name, width)
}

// renderTitledBox draws a border with the title set into the top edge.
func (m Model) renderTitledBox(title, content string, width, height int, focused bool) string {
	if width < 4 || height < 2 {
		return ""
	}
	borderColor := m.theme.Border
	if focused {
		borderColor = m.theme.BorderFocus
	}
	bg := NewBgStyle(m.theme.Panel)
	border := lipgloss.NewStyle().Foreground(lipgloss.Color(borderColor))
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(m.theme.Text))

	inner := width - 2
	label := " " + title + " "
	labelWidth := runewidth.StringWidth(label)
	if labelWidth > inner {
		label = runewidth.Truncate(label, inner, "")
		labelWidth = runewidth.StringWidth(label)
	}
	left := (inner - labelWidth) / 2
	right := inner - labelWidth - left

	top := bg.Render("┌"+strings.Repeat("─", left), border) +
		bg.Render(label, titleStyle) +
		bg.Render(strings.Repeat("─", right)+"┐", border)
	bottom := bg.Render("└"+strings.Repeat("─", inner)+"┘", border)

	body := lipgloss.NewStyle().Width(inner).Background(lipgloss.Color(m.theme.Panel))
	lines := strings.Split(content, "\n")
	out := make([]string, 0, height)
	out = append(out, top)
	for i := 0; i < height-2; i++ {
		line := ""
		if i < len(lines) {
			line = lines[i]
		}
		out = append(out, bg.Render("│", border)+body.Render(line)+bg.Render("│", border))
	}
	out = append(out, bottom)
	return strings.Join(out, "\n")
}
