package ui

import (
	"fmt"
	"strings"

	"github.com/muesli/reflow/wordwrap"

	"github.com/betweencoffee/baristaboard/internal/eshop"
	"github.com/betweencoffee/baristaboard/internal/timefmt"
)

// detailWidth is the pane width for the current layout, border excluded.
func (m Model) detailWidth() int {
	width := m.width
	if len(m.toasts) > 0 && width >= LayoutCompactWidth {
		width -= ToastWidth
	}
	if width >= LayoutSplitWidth-ToastWidth {
		width -= width * 45 / 100
	}
	return max(width-2, 1)
}

func (m *Model) resizeDetail() {
	if m.detail == nil {
		return
	}
	m.detail.viewport.Width = m.detailWidth()
	m.detail.viewport.Height = max(m.height-5, 1)
	m.refreshDetail()
}

func (m *Model) refreshDetail() {
	if m.detail == nil {
		return
	}
	d := m.detail
	switch {
	case d.loading:
		d.viewport.SetContent(fmt.Sprintf("Loading order #%d...", d.id))
	case d.err != nil:
		d.viewport.SetContent(wordwrap.String("Could not load order: "+d.err.Error(), d.viewport.Width))
	default:
		d.viewport.SetContent(orderDetails(d.order, d.viewport.Width))
	}
	d.viewport.GotoTop()
}

func (m Model) renderDetail(width, height int) string {
	title := "Order"
	if m.detail != nil {
		title = fmt.Sprintf("Order #%d", m.detail.id)
		if code := m.detail.order.PickupCode; code != "" {
			title += " · " + code
		}
	}
	body := ""
	if m.detail != nil {
		vp := m.detail.viewport
		vp.Width = width - 2
		vp.Height = height - 2
		body = vp.View()
	}
	return m.renderTitledBox(title, body, width, height, true)
}

// orderDetails formats the full record of one order.
func orderDetails(o eshop.Order, width int) string {
	var b strings.Builder
	field := func(label, value string) {
		if strings.TrimSpace(value) == "" {
			return
		}
		fmt.Fprintf(&b, "%-10s %s\n", label, value)
	}

	name := o.Name
	if name == "" {
		name = "Guest"
	}
	field("Customer", name)
	field("Phone", o.Phone)
	status := o.StatusDisplay
	if status == "" {
		status = o.Status
	}
	if o.IsQuickOrder {
		status += " (expedited)"
	}
	field("Status", status)

	payment := o.PaymentStatus
	if o.PaymentMethod != "" {
		payment = strings.TrimSpace(payment + " via " + o.PaymentMethod)
	}
	field("Payment", payment)
	field("Total", "$"+o.TotalPrice.StringFixed(2))
	field("Pickup", o.PickupTime)
	if t := o.Created(); !t.IsZero() {
		field("Created", timefmt.DateTime(t))
	}
	if t := o.EstimatedCompletion(); !t.IsZero() {
		field("Estimate", timefmt.Clock(t))
	}
	if t := o.ReadyTime(); !t.IsZero() {
		field("Ready", timefmt.Clock(t))
	}
	if t := o.PickedUp(); !t.IsZero() {
		field("Collected", timefmt.Clock(t))
	}

	if len(o.Items) > 0 {
		b.WriteString("\nItems\n")
		for _, it := range o.Items {
			qty := it.Quantity
			if qty <= 0 {
				qty = 1
			}
			line := fmt.Sprintf("%d × %s  $%s", qty, it.Name, it.LineTotal().StringFixed(2))
			b.WriteString(wordwrap.String(line, width))
			b.WriteString("\n")
			if opts := it.Options(); len(opts) > 0 {
				b.WriteString("    " + strings.Join(opts, ", ") + "\n")
			}
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
