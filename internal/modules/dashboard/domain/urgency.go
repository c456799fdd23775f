package domain

// Color is the per-table urgency shown on the dashboard.
type Color string

const (
	ColorRed     Color = "red"
	ColorYellow  Color = "yellow"
	ColorAmber   Color = "amber"
	ColorNeutral Color = "neutral"
)

// Icon is a per-table signal badge.
type Icon string

const (
	IconBell Icon = "bell"
	IconCard Icon = "card"
)

// Urgency applies the fixed priority: server-call volume, then bill, then open requests.
func Urgency(serverCalls int, billRequested bool, unresolved int) Color {
	switch {
	case serverCalls >= 2:
		return ColorRed
	case serverCalls == 1 || billRequested:
		return ColorYellow
	case unresolved > 0:
		return ColorAmber
	default:
		return ColorNeutral
	}
}

// Icons lists the badges for a table in display order.
func Icons(serverCalls int, billRequested bool) []Icon {
	icons := make([]Icon, 0, 2)
	if serverCalls > 0 {
		icons = append(icons, IconBell)
	}
	if billRequested {
		icons = append(icons, IconCard)
	}
	return icons
}
