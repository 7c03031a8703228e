package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/1broseidon/webdesk/internal/desktop"
	"github.com/1broseidon/webdesk/internal/geom"
	"github.com/1broseidon/webdesk/internal/icons"
	"github.com/1broseidon/webdesk/internal/ipc"
	"github.com/1broseidon/webdesk/internal/windows"
)

type fakeDesk struct {
	calls   []string
	opened  []ipc.OpenWindowPayload
	down    bool
	windows []windows.Window
	icons   []icons.Icon
}

func (f *fakeDesk) record(call string) { f.calls = append(f.calls, call) }

func (f *fakeDesk) GetStatus() (*ipc.StatusData, error) {
	if f.down {
		return nil, errors.New("failed to connect to daemon")
	}
	return &ipc.StatusData{
		Status:         desktop.Status{Windows: len(f.windows), Icons: len(f.icons), Viewport: geom.Size{Width: 1024, Height: 768}},
		ViewportSource: "static",
		DaemonRunning:  true,
	}, nil
}

func (f *fakeDesk) ListWindows() (*ipc.WindowsData, error) {
	return &ipc.WindowsData{Windows: f.windows, Topmost: "b"}, nil
}

func (f *fakeDesk) ListIcons() (*ipc.IconsData, error) {
	return &ipc.IconsData{Icons: f.icons}, nil
}

func (f *fakeDesk) OpenWindow(p ipc.OpenWindowPayload) (*ipc.WindowResult, error) {
	f.opened = append(f.opened, p)
	return &ipc.WindowResult{Changed: true}, nil
}

func (f *fakeDesk) op(name, id string) (*ipc.WindowResult, error) {
	f.record(name + " " + id)
	return &ipc.WindowResult{Changed: true}, nil
}

func (f *fakeDesk) CloseWindow(id string) (*ipc.WindowResult, error)    { return f.op("close", id) }
func (f *fakeDesk) FocusWindow(id string) (*ipc.WindowResult, error)    { return f.op("focus", id) }
func (f *fakeDesk) MinimizeWindow(id string) (*ipc.WindowResult, error) { return f.op("minimize", id) }
func (f *fakeDesk) MaximizeWindow(id string) (*ipc.WindowResult, error) { return f.op("maximize", id) }
func (f *fakeDesk) RestoreWindow(id string) (*ipc.WindowResult, error)  { return f.op("restore", id) }

func (f *fakeDesk) TileWindows(gap *float64) (int, error) {
	f.record("tile")
	return len(f.windows), nil
}

func (f *fakeDesk) AddIcon(kind icons.Kind, ref, label, id string) (*ipc.IconResult, error) {
	f.record("add " + id)
	return &ipc.IconResult{Changed: true}, nil
}

func (f *fakeDesk) RemoveIcon(id string) (*ipc.IconResult, error) {
	f.record("remove " + id)
	return &ipc.IconResult{Changed: true}, nil
}

func (f *fakeDesk) ArrangeIcons() (*ipc.IconsData, error) {
	f.record("arrange")
	return f.ListIcons()
}

func (f *fakeDesk) Subscribe(ctx context.Context, fn func(desktop.Event)) error {
	<-ctx.Done()
	return nil
}

func newFakeDesk() *fakeDesk {
	return &fakeDesk{
		windows: []windows.Window{
			{ID: "a", Title: "Alpha", ZIndex: 1, Visible: true,
				Geometry: windows.Geometry{X: 10, Y: 10, Width: windows.Px(300), Height: windows.Px(200)}},
			{ID: "b", Title: "Beta", ZIndex: 2, Visible: true,
				Geometry: windows.Geometry{X: 100, Y: 100, Width: windows.Px(300), Height: windows.Px(200)}},
		},
		icons: []icons.Icon{
			{ID: "app-terminal", Kind: icons.KindApplication, Label: "Terminal", Position: geom.Point{X: 20, Y: 20}},
		},
	}
}

func keyRune(r rune) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}} }

// loaded returns a sized model with the fake's snapshot applied.
func loaded(t *testing.T, desk *fakeDesk) model {
	t.Helper()
	m := newModel(desk)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	m = next.(model)
	next, _ = m.Update(m.Init()())
	return next.(model)
}

func TestSnapshotPopulatesTabs(t *testing.T) {
	m := loaded(t, newFakeDesk())

	if m.status == nil || m.status.Windows != 2 {
		t.Fatalf("status not applied: %+v", m.status)
	}
	// Topmost first.
	if got := m.windowsTab.SelectedID(); got != "b" {
		t.Fatalf("expected topmost window selected, got %q", got)
	}
	if got := m.iconsTab.SelectedID(); got != "app-terminal" {
		t.Fatalf("expected icon selected, got %q", got)
	}

	view := m.View()
	for _, want := range []string{"daemon connected", "Beta", "Windows"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestSnapshotErrorShowsDisconnected(t *testing.T) {
	desk := newFakeDesk()
	desk.down = true
	m := loaded(t, desk)

	if m.status != nil {
		t.Fatal("status should be cleared on error")
	}
	if !strings.Contains(m.View(), "daemon not running") {
		t.Fatal("expected disconnected status bar")
	}
}

func TestWindowKeysCallDaemon(t *testing.T) {
	desk := newFakeDesk()
	m := loaded(t, desk)

	for _, tc := range []struct {
		key  tea.KeyMsg
		want string
	}{
		{keyRune('m'), "minimize b"},
		{keyRune('x'), "maximize b"},
		{keyRune('r'), "restore b"},
		{keyRune('c'), "close b"},
		{tea.KeyMsg{Type: tea.KeyEnter}, "focus b"},
		{keyRune('t'), "tile"},
	} {
		desk.calls = nil
		_, cmd := m.Update(tc.key)
		if cmd == nil {
			t.Fatalf("%s: expected a command", tc.want)
		}
		msg, ok := cmd().(statusMsg)
		if !ok || msg.err != nil {
			t.Fatalf("%s: unexpected result %+v", tc.want, msg)
		}
		if len(desk.calls) != 1 || desk.calls[0] != tc.want {
			t.Fatalf("expected call %q, got %v", tc.want, desk.calls)
		}
	}
}

func TestIconKeysCallDaemon(t *testing.T) {
	desk := newFakeDesk()
	m := loaded(t, desk)

	next, _ := m.Update(keyRune('2'))
	m = next.(model)
	if m.activeTab != TabIcons {
		t.Fatalf("expected icons tab, got %v", m.activeTab)
	}

	_, cmd := m.Update(keyRune('d'))
	cmd()
	_, cmd = m.Update(keyRune('a'))
	cmd()
	if strings.Join(desk.calls, ",") != "remove app-terminal,arrange" {
		t.Fatalf("unexpected calls %v", desk.calls)
	}
}

func TestTabCycles(t *testing.T) {
	m := loaded(t, newFakeDesk())
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	next, _ = next.Update(tea.KeyMsg{Type: tea.KeyTab})
	if next.(model).activeTab != TabWindows {
		t.Fatalf("expected to wrap to windows tab")
	}
}

func TestEventsAreCoalesced(t *testing.T) {
	m := loaded(t, newFakeDesk())

	next, cmd := m.Update(eventMsg{})
	if cmd == nil {
		t.Fatal("first event should schedule a refresh")
	}
	m = next.(model)
	if _, cmd := m.Update(eventMsg{}); cmd != nil {
		t.Fatal("events during a pending refresh should be dropped")
	}

	next, cmd = m.Update(refreshMsg{})
	if next.(model).refreshPending || cmd == nil {
		t.Fatal("refresh should clear the pending flag and fetch")
	}
	if _, ok := cmd().(snapshotMsg); !ok {
		t.Fatal("refresh should fetch a snapshot")
	}
}

func TestSubscribeEndedMarksNotLive(t *testing.T) {
	m := loaded(t, newFakeDesk())
	next, _ := m.Update(subscribeEndedMsg{err: errors.New("event stream ended")})
	m = next.(model)
	if m.live {
		t.Fatal("expected live=false")
	}
	if !strings.Contains(m.View(), "no live updates") {
		t.Fatal("status bar should mention missing live updates")
	}
}

func TestOpenWindowFormSubmit(t *testing.T) {
	desk := newFakeDesk()
	m := loaded(t, desk)

	v := &formValues{id: " notes ", title: "Notes", width: "640", height: ""}
	cmd := m.submitForm(formOverlay{kind: formOpenWindow, vals: v})
	if msg := cmd().(statusMsg); msg.err != nil {
		t.Fatalf("submit: %v", msg.err)
	}
	if len(desk.opened) != 1 {
		t.Fatalf("expected one open, got %d", len(desk.opened))
	}
	got := desk.opened[0]
	if got.ID != "notes" || got.Width != 640 || got.Height != 0 {
		t.Fatalf("unexpected payload %+v", got)
	}
}

func TestAddIconFormSubmitDerivesID(t *testing.T) {
	desk := newFakeDesk()
	m := loaded(t, desk)

	v := &formValues{kind: string(icons.KindFolder), ref: "docs"}
	cmd := m.submitForm(formOverlay{kind: formAddIcon, vals: v})
	cmd()
	want := "add " + icons.IconID(icons.KindFolder, "docs")
	if len(desk.calls) != 1 || desk.calls[0] != want {
		t.Fatalf("expected %q, got %v", want, desk.calls)
	}
}

func TestFormValidation(t *testing.T) {
	if optionalSize("") != nil || optionalSize("300") != nil {
		t.Fatal("blank and positive sizes are valid")
	}
	if optionalSize("-1") == nil || optionalSize("wide") == nil {
		t.Fatal("negative and non-numeric sizes are invalid")
	}
	if required("  ") == nil {
		t.Fatal("blank is not valid for required fields")
	}
}

func TestOpenFormCapturesKeys(t *testing.T) {
	desk := newFakeDesk()
	m := loaded(t, desk)

	next, _ := m.Update(keyRune('o'))
	m = next.(model)
	if !m.form.Active() {
		t.Fatal("o should open the form")
	}
	// q types into the form rather than quitting.
	next, _ = m.Update(keyRune('q'))
	m = next.(model)
	if !m.form.Active() {
		t.Fatal("form should still be active")
	}
	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if next.(model).form.Active() {
		t.Fatal("esc should close the form")
	}
}
