package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/1broseidon/webdesk/internal/icons"
)

// iconItem implements list.Item for the icon list.
type iconItem struct {
	icon icons.Icon
}

func (i iconItem) Title() string {
	if i.icon.Label != "" {
		return i.icon.Label
	}
	return i.icon.ID
}

func (i iconItem) Description() string {
	return fmt.Sprintf("%s  %s  @ %g,%g", i.icon.ID, i.icon.Kind, i.icon.Position.X, i.icon.Position.Y)
}

func (i iconItem) FilterValue() string { return i.icon.ID + " " + i.icon.Label }

// IconsTab lists desktop icons in layout order.
type IconsTab struct {
	list   list.Model
	width  int
	height int
}

func NewIconsTab() IconsTab {
	delegate := list.NewDefaultDelegate()
	delegate.SetSpacing(0)

	l := list.New(nil, delegate, 0, 0)
	l.Title = "Icons"
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.DisableQuitKeybindings()

	return IconsTab{list: l}
}

func (it *IconsTab) SetIcons(ics []icons.Icon) {
	items := make([]list.Item, 0, len(ics))
	for _, ic := range ics {
		items = append(items, iconItem{icon: ic})
	}
	it.list.SetItems(items)
}

// SelectedID is the id of the highlighted icon, or "".
func (it IconsTab) SelectedID() string {
	item, ok := it.list.SelectedItem().(iconItem)
	if !ok {
		return ""
	}
	return item.icon.ID
}

// Update implements tea.Model.
func (it IconsTab) Update(msg tea.Msg) (IconsTab, tea.Cmd) {
	if msg, ok := msg.(tea.WindowSizeMsg); ok {
		it.width = msg.Width
		it.height = msg.Height
		it.list.SetSize(msg.Width, msg.Height)
		return it, nil
	}
	var cmd tea.Cmd
	it.list, cmd = it.list.Update(msg)
	return it, cmd
}

// View implements tea.Model.
func (it IconsTab) View() string {
	if len(it.list.Items()) == 0 {
		return dimStyle.Width(it.width).Height(it.height).Render("No icons\nPress n to add one")
	}
	return it.list.View()
}
