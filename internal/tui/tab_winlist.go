package tui

import (
	"fmt"
	"slices"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/1broseidon/webdesk/internal/windows"
)

// windowItem implements list.Item for the window list.
type windowItem struct {
	win     windows.Window
	topmost bool
}

func (i windowItem) Title() string {
	prefix := "  "
	if i.topmost {
		prefix = "* "
	}
	name := i.win.Title
	if name == "" {
		name = i.win.ID
	}
	return prefix + name
}

func (i windowItem) Description() string {
	g := i.win.Geometry
	return fmt.Sprintf("%s  z=%d  %s  %sx%s @ %g,%g",
		i.win.ID, i.win.ZIndex, i.win.State(), g.Width, g.Height, g.X, g.Y)
}

func (i windowItem) FilterValue() string { return i.win.ID + " " + i.win.Title }

// WindowsTab lists open windows, topmost first.
type WindowsTab struct {
	list   list.Model
	width  int
	height int
}

func NewWindowsTab() WindowsTab {
	delegate := list.NewDefaultDelegate()
	delegate.SetSpacing(0)

	l := list.New(nil, delegate, 0, 0)
	l.Title = "Windows"
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.DisableQuitKeybindings()

	return WindowsTab{list: l}
}

// buildWindowItems turns the back-to-front window list into list items,
// front first.
func buildWindowItems(ws []windows.Window, topmost string) []list.Item {
	front := slices.Clone(ws)
	slices.Reverse(front)

	items := make([]list.Item, 0, len(front))
	for _, w := range front {
		items = append(items, windowItem{win: w, topmost: w.ID == topmost})
	}
	return items
}

// SetWindows replaces the list contents, keeping the selection on the
// same window when it still exists.
func (wt *WindowsTab) SetWindows(ws []windows.Window, topmost string) {
	prev := wt.SelectedID()
	items := buildWindowItems(ws, topmost)
	wt.list.SetItems(items)
	for i, it := range items {
		if it.(windowItem).win.ID == prev {
			wt.list.Select(i)
			return
		}
	}
}

// SelectedID is the id of the highlighted window, or "".
func (wt WindowsTab) SelectedID() string {
	item, ok := wt.list.SelectedItem().(windowItem)
	if !ok {
		return ""
	}
	return item.win.ID
}

// Update implements tea.Model.
func (wt WindowsTab) Update(msg tea.Msg) (WindowsTab, tea.Cmd) {
	if msg, ok := msg.(tea.WindowSizeMsg); ok {
		wt.width = msg.Width
		wt.height = msg.Height
		wt.list.SetSize(msg.Width, msg.Height)
		return wt, nil
	}
	var cmd tea.Cmd
	wt.list, cmd = wt.list.Update(msg)
	return wt, cmd
}

// View implements tea.Model.
func (wt WindowsTab) View() string {
	if len(wt.list.Items()) == 0 {
		return dimStyle.Width(wt.width).Height(wt.height).Render("No open windows\nPress o to open one")
	}
	return wt.list.View()
}
