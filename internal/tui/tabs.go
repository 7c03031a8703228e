package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/1broseidon/webdesk/internal/ipc"
)

// Tab identifies a TUI tab.
type Tab int

const (
	TabWindows Tab = iota
	TabIcons
	tabCount // sentinel for iteration
)

func (t Tab) String() string {
	switch t {
	case TabWindows:
		return "Windows"
	case TabIcons:
		return "Icons"
	default:
		return "?"
	}
}

var (
	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 2)

	inactiveTabStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("250")).
				Background(lipgloss.Color("236")).
				Padding(0, 2)

	tabBarStyle = lipgloss.NewStyle().
			MarginBottom(1)

	tabGap = lipgloss.NewStyle().
		Background(lipgloss.Color("235")).
		SetString(" ")

	previewStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62"))

	dimStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// renderTabBar renders the tab bar with the given active tab and width.
func renderTabBar(active Tab, width int) string {
	var tabs []string
	for i := Tab(0); i < tabCount; i++ {
		label := fmt.Sprintf("%d:%s", i+1, i)
		if i == active {
			tabs = append(tabs, activeTabStyle.Render(label))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(label))
		}
	}

	row := lipgloss.JoinHorizontal(lipgloss.Top, intersperse(tabs, tabGap.Render())...)
	return tabBarStyle.Width(width).Render(row)
}

// intersperse inserts sep between each element of items.
func intersperse(items []string, sep string) []string {
	if len(items) <= 1 {
		return items
	}
	result := make([]string, 0, len(items)*2-1)
	for i, item := range items {
		if i > 0 {
			result = append(result, sep)
		}
		result = append(result, item)
	}
	return result
}

// renderStatusBar renders the daemon connection and desktop summary line.
func renderStatusBar(status *ipc.StatusData, live bool, width int) string {
	var text string
	if status != nil {
		dot := lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Render("●")
		parts := []string{
			dot + " daemon connected",
			fmt.Sprintf("%s %gx%g", status.ViewportSource, status.Viewport.Width, status.Viewport.Height),
			fmt.Sprintf("windows:%d", status.Windows),
			fmt.Sprintf("icons:%d", status.Icons),
		}
		if status.Compact {
			parts = append(parts, "compact")
		}
		if !live {
			parts = append(parts, "(no live updates)")
		}
		text = strings.Join(parts, "  ")
	} else {
		dot := lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Render("●")
		text = dot + " daemon not running"
	}

	style := lipgloss.NewStyle().
		Width(width).
		Background(lipgloss.Color("235")).
		Foreground(lipgloss.Color("250")).
		Padding(0, 1)
	return style.Render(text)
}

// renderHelpBar renders the bottom keybinding bar for the active tab.
func renderHelpBar(active Tab, width int) string {
	var help string
	switch active {
	case TabWindows:
		help = "enter: focus  m: minimize  x: maximize  r: restore  c: close  t: tile  o: open"
	case TabIcons:
		help = "n: new icon  d: remove  a: arrange"
	}
	help += "  tab: switch  g: refresh  q: quit"
	style := lipgloss.NewStyle().
		Width(width).
		Foreground(lipgloss.Color("241")).
		Padding(0, 1)
	return style.Render(help)
}
