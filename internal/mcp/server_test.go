package mcp

import (
	"context"
	"errors"
	"strings"
	"testing"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/webdesk/internal/desktop"
	"github.com/1broseidon/webdesk/internal/geom"
	"github.com/1broseidon/webdesk/internal/icons"
	"github.com/1broseidon/webdesk/internal/ipc"
	"github.com/1broseidon/webdesk/internal/windows"
)

// fakeDesk records calls and serves canned windows and icons.
type fakeDesk struct {
	windows map[string]windows.Window
	icons   map[string]icons.Icon
	patches []windows.GeometryPatch
	tileGap *float64
	opened  []ipc.OpenWindowPayload
	failAll error
}

func newFakeDesk() *fakeDesk {
	return &fakeDesk{
		windows: map[string]windows.Window{},
		icons:   map[string]icons.Icon{},
	}
}

func (f *fakeDesk) result(id string, changed bool) (*ipc.WindowResult, error) {
	if f.failAll != nil {
		return nil, f.failAll
	}
	w, ok := f.windows[id]
	if !ok {
		return &ipc.WindowResult{}, nil
	}
	return &ipc.WindowResult{Changed: changed, Window: &w}, nil
}

func (f *fakeDesk) GetStatus() (*ipc.StatusData, error) {
	if f.failAll != nil {
		return nil, f.failAll
	}
	return &ipc.StatusData{
		Status:         desktop.Status{Windows: len(f.windows), Icons: len(f.icons), Viewport: geom.Size{Width: 1024, Height: 768}},
		ViewportSource: "static",
		DaemonRunning:  true,
	}, nil
}

func (f *fakeDesk) ListWindows() (*ipc.WindowsData, error) {
	data := &ipc.WindowsData{}
	for _, w := range f.windows {
		data.Windows = append(data.Windows, w)
		if data.Topmost == "" || w.ZIndex > f.windows[data.Topmost].ZIndex {
			data.Topmost = w.ID
		}
	}
	return data, nil
}

func (f *fakeDesk) OpenWindow(p ipc.OpenWindowPayload) (*ipc.WindowResult, error) {
	f.opened = append(f.opened, p)
	if _, ok := f.windows[p.ID]; ok {
		return f.result(p.ID, false)
	}
	f.windows[p.ID] = windows.Window{
		ID:       p.ID,
		Title:    p.Title,
		Geometry: windows.Geometry{X: 262, Y: 110, Width: windows.Px(500), Height: windows.Px(500)},
		ZIndex:   len(f.windows) + 1,
		Visible:  true,
	}
	return f.result(p.ID, true)
}

func (f *fakeDesk) CloseWindow(id string) (*ipc.WindowResult, error) {
	if _, ok := f.windows[id]; !ok {
		return &ipc.WindowResult{}, nil
	}
	delete(f.windows, id)
	return &ipc.WindowResult{Changed: true}, nil
}

func (f *fakeDesk) FocusWindow(id string) (*ipc.WindowResult, error) { return f.result(id, true) }

func (f *fakeDesk) MinimizeWindow(id string) (*ipc.WindowResult, error) {
	if w, ok := f.windows[id]; ok {
		w.Minimized = true
		f.windows[id] = w
	}
	return f.result(id, true)
}

func (f *fakeDesk) MaximizeWindow(id string) (*ipc.WindowResult, error) {
	if w, ok := f.windows[id]; ok {
		w.Maximized = true
		w.Geometry = windows.Geometry{Width: windows.Full(), Height: windows.Full()}
		f.windows[id] = w
	}
	return f.result(id, true)
}

func (f *fakeDesk) RestoreWindow(id string) (*ipc.WindowResult, error) { return f.result(id, true) }

func (f *fakeDesk) SetGeometry(id string, patch windows.GeometryPatch) (*ipc.WindowResult, error) {
	f.patches = append(f.patches, patch)
	return f.result(id, true)
}

func (f *fakeDesk) SnapWindow(id, region string) (*ipc.WindowResult, error) {
	if region == "diagonal" {
		return nil, errors.New(`daemon error: unknown region "diagonal"`)
	}
	return f.result(id, true)
}

func (f *fakeDesk) TileWindows(gap *float64) (int, error) {
	f.tileGap = gap
	return len(f.windows), nil
}

func (f *fakeDesk) ListIcons() (*ipc.IconsData, error) {
	data := &ipc.IconsData{Grid: icons.GridSpec{CellSize: 100}}
	for _, ic := range f.icons {
		data.Icons = append(data.Icons, ic)
	}
	return data, nil
}

func (f *fakeDesk) AddIcon(kind icons.Kind, ref, label, id string) (*ipc.IconResult, error) {
	if _, ok := f.icons[id]; ok {
		ic := f.icons[id]
		return &ipc.IconResult{Icon: &ic}, nil
	}
	ic := icons.Icon{ID: id, Kind: kind, Ref: ref, Label: label, Position: geom.Point{X: 20, Y: 20}}
	f.icons[id] = ic
	return &ipc.IconResult{Changed: true, Icon: &ic}, nil
}

func (f *fakeDesk) RemoveIcon(id string) (*ipc.IconResult, error) {
	if _, ok := f.icons[id]; !ok {
		return &ipc.IconResult{}, nil
	}
	delete(f.icons, id)
	return &ipc.IconResult{Changed: true}, nil
}

func (f *fakeDesk) MoveIcon(id string, x, y float64) (*ipc.IconResult, error) {
	ic, ok := f.icons[id]
	if !ok {
		return &ipc.IconResult{}, nil
	}
	ic.Position = geom.Point{X: x, Y: y}
	f.icons[id] = ic
	return &ipc.IconResult{Changed: true, Icon: &ic}, nil
}

func (f *fakeDesk) ArrangeIcons() (*ipc.IconsData, error) { return f.ListIcons() }

func (f *fakeDesk) SetViewport(width, height float64) (bool, error) {
	return width != 1024 || height != 768, nil
}

func newTestServer(desk Desk) *Server {
	s := NewServer(desk, nil)
	s.newID = func() string { return "win-fixed" }
	return s
}

func TestOpenWindowGeneratesID(t *testing.T) {
	desk := newFakeDesk()
	s := newTestServer(desk)

	_, out, err := s.handleOpenWindow(context.Background(), nil, OpenWindowInput{Title: "Notes"})
	if err != nil {
		t.Fatalf("open_window: %v", err)
	}
	if !out.Changed || out.Window == nil {
		t.Fatalf("expected a new window, got %+v", out)
	}
	if out.Window.ID != "win-fixed" {
		t.Fatalf("expected generated id, got %q", out.Window.ID)
	}
	if out.Window.Width != "500" || out.Window.State != "normal" {
		t.Fatalf("unexpected window info %+v", out.Window)
	}
}

func TestDefaultIDsAreUnique(t *testing.T) {
	s := NewServer(newFakeDesk(), nil)
	a, b := s.newID(), s.newID()
	if a == b || !strings.HasPrefix(a, "win-") {
		t.Fatalf("ids %q and %q", a, b)
	}
}

func TestWindowToolsReportMissingWindow(t *testing.T) {
	s := newTestServer(newFakeDesk())
	ctx := context.Background()

	if _, _, err := s.handleFocusWindow(ctx, nil, WindowInput{ID: "ghost"}); err == nil {
		t.Fatal("focus_window on a missing window should fail")
	}
	if _, _, err := s.handleCloseWindow(ctx, nil, WindowInput{ID: "ghost"}); err == nil {
		t.Fatal("close_window on a missing window should fail")
	}
}

func TestMaximizeReportsFullDimensions(t *testing.T) {
	desk := newFakeDesk()
	s := newTestServer(desk)
	ctx := context.Background()

	if _, _, err := s.handleOpenWindow(ctx, nil, OpenWindowInput{ID: "a"}); err != nil {
		t.Fatal(err)
	}
	_, out, err := s.handleMaximizeWindow(ctx, nil, WindowInput{ID: "a"})
	if err != nil {
		t.Fatal(err)
	}
	if out.Window.State != "maximized" || out.Window.Width != "100%" {
		t.Fatalf("unexpected window info %+v", out.Window)
	}
}

func TestMoveWindowBuildsPatch(t *testing.T) {
	desk := newFakeDesk()
	s := newTestServer(desk)
	ctx := context.Background()

	if _, _, err := s.handleOpenWindow(ctx, nil, OpenWindowInput{ID: "a"}); err != nil {
		t.Fatal(err)
	}

	x, w := 40.0, 300.0
	if _, _, err := s.handleMoveWindow(ctx, nil, MoveWindowInput{ID: "a", X: &x, Width: &w}); err != nil {
		t.Fatalf("move_window: %v", err)
	}
	if len(desk.patches) != 1 {
		t.Fatalf("expected one patch, got %d", len(desk.patches))
	}
	p := desk.patches[0]
	if p.X == nil || *p.X != 40 || p.Y != nil || p.Height != nil {
		t.Fatalf("unexpected patch %+v", p)
	}
	if px, ok := p.Width.Pixels(); !ok || px != 300 {
		t.Fatalf("unexpected width %v", p.Width)
	}

	bad := -1.0
	if _, _, err := s.handleMoveWindow(ctx, nil, MoveWindowInput{ID: "a", Height: &bad}); err == nil {
		t.Fatal("negative height should be rejected")
	}
}

func TestSnapWindowPassesDaemonError(t *testing.T) {
	desk := newFakeDesk()
	s := newTestServer(desk)
	ctx := context.Background()
	if _, _, err := s.handleOpenWindow(ctx, nil, OpenWindowInput{ID: "a"}); err != nil {
		t.Fatal(err)
	}

	if _, _, err := s.handleSnapWindow(ctx, nil, SnapWindowInput{ID: "a", Region: "diagonal"}); err == nil {
		t.Fatal("expected error for unknown region")
	}
	if _, out, err := s.handleSnapWindow(ctx, nil, SnapWindowInput{ID: "a", Region: "left-half"}); err != nil || !out.Changed {
		t.Fatalf("snap left-half: %+v, %v", out, err)
	}
}

func TestTileWindowsGap(t *testing.T) {
	desk := newFakeDesk()
	s := newTestServer(desk)
	ctx := context.Background()

	if _, _, err := s.handleTileWindows(ctx, nil, TileWindowsInput{}); err != nil {
		t.Fatal(err)
	}
	if desk.tileGap != nil {
		t.Fatalf("expected configured gap, got %v", *desk.tileGap)
	}

	gap := 8.0
	if _, _, err := s.handleTileWindows(ctx, nil, TileWindowsInput{Gap: &gap}); err != nil {
		t.Fatal(err)
	}
	if desk.tileGap == nil || *desk.tileGap != 8 {
		t.Fatalf("gap not forwarded: %v", desk.tileGap)
	}

	neg := -2.0
	if _, _, err := s.handleTileWindows(ctx, nil, TileWindowsInput{Gap: &neg}); err == nil {
		t.Fatal("negative gap should be rejected")
	}
}

func TestAddIconValidatesAndDerivesID(t *testing.T) {
	desk := newFakeDesk()
	s := newTestServer(desk)
	ctx := context.Background()

	if _, _, err := s.handleAddIcon(ctx, nil, AddIconInput{Kind: "widget", Ref: "x"}); err == nil {
		t.Fatal("unknown kind should be rejected")
	}
	if _, _, err := s.handleAddIcon(ctx, nil, AddIconInput{Kind: "folder"}); err == nil {
		t.Fatal("missing ref should be rejected")
	}

	_, out, err := s.handleAddIcon(ctx, nil, AddIconInput{Kind: "application", Ref: "terminal", Label: "Terminal"})
	if err != nil {
		t.Fatalf("add_icon: %v", err)
	}
	if out.Icon == nil || out.Icon.ID != icons.IconID(icons.KindApplication, "terminal") {
		t.Fatalf("unexpected icon %+v", out.Icon)
	}
	if out.Icon.X != 20 || out.Icon.Y != 20 {
		t.Fatalf("unexpected position %+v", out.Icon)
	}
}

func TestIconTools(t *testing.T) {
	desk := newFakeDesk()
	s := newTestServer(desk)
	ctx := context.Background()

	if _, _, err := s.handleAddIcon(ctx, nil, AddIconInput{Kind: "file", Ref: "notes.txt", ID: "notes"}); err != nil {
		t.Fatal(err)
	}
	_, moved, err := s.handleMoveIcon(ctx, nil, MoveIconInput{ID: "notes", X: 120, Y: 20})
	if err != nil {
		t.Fatal(err)
	}
	if moved.Icon.X != 120 {
		t.Fatalf("unexpected move result %+v", moved.Icon)
	}

	_, list, err := s.handleListIcons(ctx, nil, ListIconsInput{})
	if err != nil {
		t.Fatal(err)
	}
	if len(list.Icons) != 1 || list.CellSize != 100 {
		t.Fatalf("unexpected list %+v", list)
	}

	if _, _, err := s.handleMoveIcon(ctx, nil, MoveIconInput{ID: "ghost"}); err == nil {
		t.Fatal("move_icon on a missing icon should fail")
	}
	if _, _, err := s.handleRemoveIcon(ctx, nil, IconInput{ID: "notes"}); err != nil {
		t.Fatal(err)
	}
	if _, _, err := s.handleRemoveIcon(ctx, nil, IconInput{ID: "notes"}); err == nil {
		t.Fatal("second remove should fail")
	}
}

func TestSetViewportValidates(t *testing.T) {
	s := newTestServer(newFakeDesk())
	ctx := context.Background()

	if _, _, err := s.handleSetViewport(ctx, nil, SetViewportInput{Width: 0, Height: 600}); err == nil {
		t.Fatal("zero width should be rejected")
	}
	_, out, err := s.handleSetViewport(ctx, nil, SetViewportInput{Width: 800, Height: 600})
	if err != nil || !out.Changed {
		t.Fatalf("set_viewport: %+v, %v", out, err)
	}
}

func TestStatusPassesDaemonError(t *testing.T) {
	desk := newFakeDesk()
	desk.failAll = errors.New("failed to connect to daemon")
	s := newTestServer(desk)

	if _, _, err := s.handleStatus(context.Background(), nil, StatusInput{}); err == nil {
		t.Fatal("expected connection error")
	}
}

func TestToolsOverInMemoryTransport(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := newTestServer(newFakeDesk())
	clientTransport, serverTransport := mcpsdk.NewInMemoryTransports()

	serverSession, err := s.mcpServer.Connect(ctx, serverTransport, nil)
	if err != nil {
		t.Fatalf("server connect: %v", err)
	}
	defer serverSession.Close()

	client := mcpsdk.NewClient(&mcpsdk.Implementation{Name: "test", Version: "0"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	defer session.Close()

	tools, err := session.ListTools(ctx, nil)
	if err != nil {
		t.Fatalf("list tools: %v", err)
	}
	names := map[string]bool{}
	for _, tool := range tools.Tools {
		names[tool.Name] = true
	}
	for _, want := range []string{"desktop_status", "open_window", "snap_window", "tile_windows", "add_icon", "move_icon", "set_viewport"} {
		if !names[want] {
			t.Errorf("tool %q not registered", want)
		}
	}

	res, err := session.CallTool(ctx, &mcpsdk.CallToolParams{
		Name:      "open_window",
		Arguments: map[string]any{"id": "calc", "title": "Calculator"},
	})
	if err != nil {
		t.Fatalf("call open_window: %v", err)
	}
	if res.IsError {
		t.Fatalf("open_window returned a tool error: %+v", res.Content)
	}

	res, err = session.CallTool(ctx, &mcpsdk.CallToolParams{
		Name:      "close_window",
		Arguments: map[string]any{"id": "ghost"},
	})
	if err != nil {
		t.Fatalf("call close_window: %v", err)
	}
	if !res.IsError {
		t.Fatal("closing a missing window should be a tool error")
	}
}
