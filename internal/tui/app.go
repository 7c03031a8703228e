package tui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/1broseidon/webdesk/internal/desktop"
	"github.com/1broseidon/webdesk/internal/icons"
	"github.com/1broseidon/webdesk/internal/ipc"
	"github.com/1broseidon/webdesk/internal/windows"
)

// refreshDelay coalesces bursts of desktop events, such as a drag, into
// one snapshot fetch.
const refreshDelay = 100 * time.Millisecond

// snapshotMsg carries a fresh copy of daemon state.
type snapshotMsg struct {
	status  *ipc.StatusData
	windows *ipc.WindowsData
	icons   *ipc.IconsData
	err     error
}

// eventMsg wraps a desktop event from the subscription.
type eventMsg struct {
	event desktop.Event
}

// subscribeEndedMsg reports that live updates stopped.
type subscribeEndedMsg struct {
	err error
}

type refreshMsg struct{}

// statusMsg is sent after a daemon action completes.
type statusMsg struct {
	text string
	err  error
}

// clearStatusMsg clears the status message after a delay.
type clearStatusMsg struct{}

// model is the root bubbletea model for the TUI.
type model struct {
	desk Desk

	activeTab  Tab
	windowsTab WindowsTab
	iconsTab   IconsTab
	form       formOverlay

	status  *ipc.StatusData
	windows []windows.Window
	icons   []icons.Icon
	live    bool

	refreshPending bool
	statusText     string
	statusErr      bool

	width  int
	height int
}

func newModel(desk Desk) model {
	return model{
		desk:       desk,
		activeTab:  TabWindows,
		windowsTab: NewWindowsTab(),
		iconsTab:   NewIconsTab(),
		live:       true,
	}
}

func fetchSnapshot(desk Desk) tea.Cmd {
	return func() tea.Msg {
		var msg snapshotMsg
		if msg.status, msg.err = desk.GetStatus(); msg.err != nil {
			return msg
		}
		if msg.windows, msg.err = desk.ListWindows(); msg.err != nil {
			return msg
		}
		msg.icons, msg.err = desk.ListIcons()
		return msg
	}
}

// action runs fn against the daemon and reports text on success.
func action(text string, fn func() error) tea.Cmd {
	return func() tea.Msg {
		if err := fn(); err != nil {
			return statusMsg{err: err}
		}
		return statusMsg{text: text}
	}
}

func clearStatusAfter() tea.Cmd {
	return tea.Tick(3*time.Second, func(time.Time) tea.Msg {
		return clearStatusMsg{}
	})
}

// contentSize returns the width of the list pane and the height shared
// by both panes.
func (m model) contentSize() (listWidth, height int) {
	// status bar (1) + tab bar (2 with margin) + help bar (1)
	height = max(m.height-4, 1)
	listWidth = max(m.width*2/5, 24)
	return listWidth, height
}

// Init implements tea.Model.
func (m model) Init() tea.Cmd {
	return fetchSnapshot(m.desk)
}

// Update implements tea.Model.
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		listWidth, h := m.contentSize()
		sub := tea.WindowSizeMsg{Width: listWidth, Height: h}
		m.windowsTab, _ = m.windowsTab.Update(sub)
		m.iconsTab, _ = m.iconsTab.Update(sub)
		return m, nil

	case snapshotMsg:
		if msg.err != nil {
			m.status = nil
			m.statusText = msg.err.Error()
			m.statusErr = true
			return m, nil
		}
		m.status = msg.status
		m.windows = msg.windows.Windows
		m.icons = msg.icons.Icons
		m.windowsTab.SetWindows(msg.windows.Windows, msg.windows.Topmost)
		m.iconsTab.SetIcons(msg.icons.Icons)
		return m, nil

	case eventMsg:
		if m.refreshPending {
			return m, nil
		}
		m.refreshPending = true
		return m, tea.Tick(refreshDelay, func(time.Time) tea.Msg { return refreshMsg{} })

	case refreshMsg:
		m.refreshPending = false
		return m, fetchSnapshot(m.desk)

	case subscribeEndedMsg:
		m.live = false
		if msg.err != nil {
			m.statusText = "live updates stopped: " + msg.err.Error()
			m.statusErr = true
		}
		return m, nil

	case statusMsg:
		if msg.err != nil {
			m.statusText = msg.err.Error()
			m.statusErr = true
		} else {
			m.statusText = msg.text
			m.statusErr = false
		}
		// Without a subscription nothing else triggers a refresh.
		return m, tea.Batch(clearStatusAfter(), fetchSnapshot(m.desk))

	case clearStatusMsg:
		m.statusText = ""
		m.statusErr = false
		return m, nil
	}

	if m.form.Active() {
		return m.updateForm(msg)
	}

	if km, ok := msg.(tea.KeyMsg); ok {
		if next, cmd, handled := m.handleKey(km); handled {
			return next, cmd
		}
	}

	var cmd tea.Cmd
	switch m.activeTab {
	case TabWindows:
		m.windowsTab, cmd = m.windowsTab.Update(msg)
	case TabIcons:
		m.iconsTab, cmd = m.iconsTab.Update(msg)
	}
	return m, cmd
}

func (m model) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if km, ok := msg.(tea.KeyMsg); ok {
		switch km.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "esc":
			m.form = formOverlay{}
			return m, nil
		}
	}

	form, cmd, done := m.form.Update(msg)
	if !done {
		m.form = form
		return m, cmd
	}
	m.form = formOverlay{}
	if !form.Completed() {
		return m, nil
	}
	return m, m.submitForm(form)
}

func (m model) submitForm(f formOverlay) tea.Cmd {
	desk := m.desk
	v := f.vals
	switch f.kind {
	case formOpenWindow:
		p := v.openWindowPayload()
		return action("opened "+p.ID, func() error {
			res, err := desk.OpenWindow(p)
			if err == nil && !res.Changed {
				return fmt.Errorf("window %q is already open", p.ID)
			}
			return err
		})
	case formAddIcon:
		kind, ref, label := icons.Kind(v.kind), v.ref, v.label
		id := icons.IconID(kind, ref)
		return action("added "+id, func() error {
			res, err := desk.AddIcon(kind, ref, label, id)
			if err == nil && !res.Changed {
				return fmt.Errorf("icon %q already exists", id)
			}
			return err
		})
	}
	return nil
}

// handleKey processes global and per-tab keys. handled is false when the
// key should reach the active list.
func (m model) handleKey(km tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	switch km.String() {
	case "ctrl+c", "q":
		return m, tea.Quit, true
	case "tab":
		m.activeTab = (m.activeTab + 1) % tabCount
		return m, nil, true
	case "shift+tab":
		m.activeTab = (m.activeTab - 1 + tabCount) % tabCount
		return m, nil, true
	case "1":
		m.activeTab = TabWindows
		return m, nil, true
	case "2":
		m.activeTab = TabIcons
		return m, nil, true
	case "g":
		return m, fetchSnapshot(m.desk), true
	}

	switch m.activeTab {
	case TabWindows:
		return m.handleWindowKey(km.String())
	case TabIcons:
		return m.handleIconKey(km.String())
	}
	return m, nil, false
}

func (m model) handleWindowKey(key string) (tea.Model, tea.Cmd, bool) {
	desk := m.desk
	if key == "o" {
		m.form = newOpenWindowForm()
		return m, m.form.form.Init(), true
	}
	if key == "t" {
		return m, action("tiled", func() error {
			_, err := desk.TileWindows(nil)
			return err
		}), true
	}

	id := m.windowsTab.SelectedID()
	if id == "" {
		return m, nil, false
	}
	var (
		op   func(string) (*ipc.WindowResult, error)
		verb string
	)
	switch key {
	case "enter":
		op, verb = desk.FocusWindow, "focused"
	case "m":
		op, verb = desk.MinimizeWindow, "minimized"
	case "x":
		op, verb = desk.MaximizeWindow, "maximized"
	case "r":
		op, verb = desk.RestoreWindow, "restored"
	case "c":
		op, verb = desk.CloseWindow, "closed"
	default:
		return m, nil, false
	}
	return m, action(verb+" "+id, func() error {
		_, err := op(id)
		return err
	}), true
}

func (m model) handleIconKey(key string) (tea.Model, tea.Cmd, bool) {
	desk := m.desk
	switch key {
	case "n":
		m.form = newAddIconForm()
		return m, m.form.form.Init(), true
	case "a":
		return m, action("arranged", func() error {
			_, err := desk.ArrangeIcons()
			return err
		}), true
	case "d":
		id := m.iconsTab.SelectedID()
		if id == "" {
			return m, nil, true
		}
		return m, action("removed "+id, func() error {
			_, err := desk.RemoveIcon(id)
			return err
		}), true
	}
	return m, nil, false
}

// View implements tea.Model.
func (m model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	statusBar := renderStatusBar(m.status, m.live, m.width)
	tabBar := renderTabBar(m.activeTab, m.width)
	helpBar := renderHelpBar(m.activeTab, m.width)
	if m.statusText != "" {
		style := dimStyle
		if m.statusErr {
			style = errStyle
		}
		helpBar = lipgloss.NewStyle().Width(m.width).Padding(0, 1).Render(style.Render(m.statusText))
	}

	listWidth, height := m.contentSize()
	var left string
	if m.form.Active() {
		left = lipgloss.NewStyle().Width(listWidth).Height(height).Render(m.form.View())
	} else {
		switch m.activeTab {
		case TabWindows:
			left = m.windowsTab.View()
		case TabIcons:
			left = m.iconsTab.View()
		}
		left = lipgloss.NewStyle().Width(listWidth).Height(height).Render(left)
	}

	// Border takes two columns and two rows.
	pw := max(m.width-listWidth-2, 1)
	ph := max(height-2, 1)
	var preview string
	if m.status != nil {
		preview = renderDesktop(m.status.Viewport, m.windows, m.icons, pw, ph)
	}
	right := previewStyle.Width(pw).Height(ph).Render(preview)

	return lipgloss.JoinVertical(lipgloss.Left,
		statusBar,
		tabBar,
		lipgloss.JoinHorizontal(lipgloss.Top, left, right),
		helpBar,
	)
}
