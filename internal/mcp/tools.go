package mcp

import (
	"context"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/webdesk/internal/icons"
	"github.com/1broseidon/webdesk/internal/ipc"
	"github.com/1broseidon/webdesk/internal/windows"
)

func windowInfo(w windows.Window) WindowInfo {
	return WindowInfo{
		ID:      w.ID,
		Title:   w.Title,
		X:       w.Geometry.X,
		Y:       w.Geometry.Y,
		Width:   w.Geometry.Width.String(),
		Height:  w.Geometry.Height.String(),
		ZIndex:  w.ZIndex,
		State:   string(w.State()),
		Visible: w.Visible,
	}
}

func iconInfo(ic icons.Icon) IconInfo {
	return IconInfo{
		ID:    ic.ID,
		Kind:  string(ic.Kind),
		Label: ic.Label,
		Ref:   ic.Ref,
		X:     ic.Position.X,
		Y:     ic.Position.Y,
	}
}

// windowOutput converts a daemon result. A missing window is an error so
// the caller learns about a mistyped id.
func windowOutput(id string, res *ipc.WindowResult, err error) (*mcpsdk.CallToolResult, WindowOutput, error) {
	if err != nil {
		return nil, WindowOutput{}, err
	}
	if res.Window == nil {
		return nil, WindowOutput{}, fmt.Errorf("window %q not found", id)
	}
	info := windowInfo(*res.Window)
	return nil, WindowOutput{Changed: res.Changed, Window: &info}, nil
}

func iconOutput(id string, res *ipc.IconResult, err error) (*mcpsdk.CallToolResult, IconOutput, error) {
	if err != nil {
		return nil, IconOutput{}, err
	}
	if res.Icon == nil {
		return nil, IconOutput{}, fmt.Errorf("icon %q not found", id)
	}
	info := iconInfo(*res.Icon)
	return nil, IconOutput{Changed: res.Changed, Icon: &info}, nil
}

func (s *Server) handleStatus(_ context.Context, _ *mcpsdk.CallToolRequest, _ StatusInput) (*mcpsdk.CallToolResult, StatusOutput, error) {
	st, err := s.desk.GetStatus()
	if err != nil {
		return nil, StatusOutput{}, err
	}
	return nil, *st, nil
}

func (s *Server) handleListWindows(_ context.Context, _ *mcpsdk.CallToolRequest, _ ListWindowsInput) (*mcpsdk.CallToolResult, ListWindowsOutput, error) {
	data, err := s.desk.ListWindows()
	if err != nil {
		return nil, ListWindowsOutput{}, err
	}
	out := ListWindowsOutput{
		Windows: make([]WindowInfo, 0, len(data.Windows)),
		Topmost: data.Topmost,
	}
	for _, w := range data.Windows {
		out.Windows = append(out.Windows, windowInfo(w))
	}
	return nil, out, nil
}

func (s *Server) handleOpenWindow(_ context.Context, _ *mcpsdk.CallToolRequest, args OpenWindowInput) (*mcpsdk.CallToolResult, WindowOutput, error) {
	id := args.ID
	if id == "" {
		id = s.newID()
	}
	res, err := s.desk.OpenWindow(ipc.OpenWindowPayload{
		ID:     id,
		Title:  args.Title,
		Icon:   args.Icon,
		Width:  args.Width,
		Height: args.Height,
	})
	if err == nil && res.Changed {
		s.logger.Info("mcp: window opened", "id", id)
	}
	return windowOutput(id, res, err)
}

func (s *Server) handleCloseWindow(_ context.Context, _ *mcpsdk.CallToolRequest, args WindowInput) (*mcpsdk.CallToolResult, WindowOutput, error) {
	res, err := s.desk.CloseWindow(args.ID)
	if err != nil {
		return nil, WindowOutput{}, err
	}
	if !res.Changed {
		return nil, WindowOutput{}, fmt.Errorf("window %q not found", args.ID)
	}
	return nil, WindowOutput{Changed: true}, nil
}

func (s *Server) handleFocusWindow(_ context.Context, _ *mcpsdk.CallToolRequest, args WindowInput) (*mcpsdk.CallToolResult, WindowOutput, error) {
	res, err := s.desk.FocusWindow(args.ID)
	return windowOutput(args.ID, res, err)
}

func (s *Server) handleMinimizeWindow(_ context.Context, _ *mcpsdk.CallToolRequest, args WindowInput) (*mcpsdk.CallToolResult, WindowOutput, error) {
	res, err := s.desk.MinimizeWindow(args.ID)
	return windowOutput(args.ID, res, err)
}

func (s *Server) handleMaximizeWindow(_ context.Context, _ *mcpsdk.CallToolRequest, args WindowInput) (*mcpsdk.CallToolResult, WindowOutput, error) {
	res, err := s.desk.MaximizeWindow(args.ID)
	return windowOutput(args.ID, res, err)
}

func (s *Server) handleRestoreWindow(_ context.Context, _ *mcpsdk.CallToolRequest, args WindowInput) (*mcpsdk.CallToolResult, WindowOutput, error) {
	res, err := s.desk.RestoreWindow(args.ID)
	return windowOutput(args.ID, res, err)
}

func (s *Server) handleMoveWindow(_ context.Context, _ *mcpsdk.CallToolRequest, args MoveWindowInput) (*mcpsdk.CallToolResult, WindowOutput, error) {
	patch := windows.GeometryPatch{X: args.X, Y: args.Y}
	if args.Width != nil {
		if *args.Width <= 0 {
			return nil, WindowOutput{}, fmt.Errorf("width must be > 0")
		}
		w := windows.Px(*args.Width)
		patch.Width = &w
	}
	if args.Height != nil {
		if *args.Height <= 0 {
			return nil, WindowOutput{}, fmt.Errorf("height must be > 0")
		}
		h := windows.Px(*args.Height)
		patch.Height = &h
	}
	res, err := s.desk.SetGeometry(args.ID, patch)
	return windowOutput(args.ID, res, err)
}

func (s *Server) handleSnapWindow(_ context.Context, _ *mcpsdk.CallToolRequest, args SnapWindowInput) (*mcpsdk.CallToolResult, WindowOutput, error) {
	res, err := s.desk.SnapWindow(args.ID, args.Region)
	return windowOutput(args.ID, res, err)
}

func (s *Server) handleTileWindows(_ context.Context, _ *mcpsdk.CallToolRequest, args TileWindowsInput) (*mcpsdk.CallToolResult, TileWindowsOutput, error) {
	if args.Gap != nil && *args.Gap < 0 {
		return nil, TileWindowsOutput{}, fmt.Errorf("gap must be >= 0")
	}
	n, err := s.desk.TileWindows(args.Gap)
	if err != nil {
		return nil, TileWindowsOutput{}, err
	}
	return nil, TileWindowsOutput{Tiled: n}, nil
}

func listIconsOutput(data *ipc.IconsData) ListIconsOutput {
	out := ListIconsOutput{
		Icons:    make([]IconInfo, 0, len(data.Icons)),
		Compact:  data.Compact,
		CellSize: data.Grid.CellSize,
	}
	for _, ic := range data.Icons {
		out.Icons = append(out.Icons, iconInfo(ic))
	}
	return out
}

func (s *Server) handleListIcons(_ context.Context, _ *mcpsdk.CallToolRequest, _ ListIconsInput) (*mcpsdk.CallToolResult, ListIconsOutput, error) {
	data, err := s.desk.ListIcons()
	if err != nil {
		return nil, ListIconsOutput{}, err
	}
	return nil, listIconsOutput(data), nil
}

func (s *Server) handleAddIcon(_ context.Context, _ *mcpsdk.CallToolRequest, args AddIconInput) (*mcpsdk.CallToolResult, IconOutput, error) {
	kind, ok := icons.ParseKind(args.Kind)
	if !ok {
		return nil, IconOutput{}, fmt.Errorf("kind must be one of application, file or folder")
	}
	if args.Ref == "" {
		return nil, IconOutput{}, fmt.Errorf("ref is required")
	}
	id := args.ID
	if id == "" {
		id = icons.IconID(kind, args.Ref)
	}
	res, err := s.desk.AddIcon(kind, args.Ref, args.Label, id)
	return iconOutput(id, res, err)
}

func (s *Server) handleRemoveIcon(_ context.Context, _ *mcpsdk.CallToolRequest, args IconInput) (*mcpsdk.CallToolResult, IconOutput, error) {
	res, err := s.desk.RemoveIcon(args.ID)
	if err != nil {
		return nil, IconOutput{}, err
	}
	if !res.Changed {
		return nil, IconOutput{}, fmt.Errorf("icon %q not found", args.ID)
	}
	return nil, IconOutput{Changed: true}, nil
}

func (s *Server) handleMoveIcon(_ context.Context, _ *mcpsdk.CallToolRequest, args MoveIconInput) (*mcpsdk.CallToolResult, IconOutput, error) {
	res, err := s.desk.MoveIcon(args.ID, args.X, args.Y)
	return iconOutput(args.ID, res, err)
}

func (s *Server) handleArrangeIcons(_ context.Context, _ *mcpsdk.CallToolRequest, _ ListIconsInput) (*mcpsdk.CallToolResult, ListIconsOutput, error) {
	data, err := s.desk.ArrangeIcons()
	if err != nil {
		return nil, ListIconsOutput{}, err
	}
	return nil, listIconsOutput(data), nil
}

func (s *Server) handleSetViewport(_ context.Context, _ *mcpsdk.CallToolRequest, args SetViewportInput) (*mcpsdk.CallToolResult, SetViewportOutput, error) {
	if args.Width <= 0 || args.Height <= 0 {
		return nil, SetViewportOutput{}, fmt.Errorf("width and height must be > 0")
	}
	changed, err := s.desk.SetViewport(args.Width, args.Height)
	if err != nil {
		return nil, SetViewportOutput{}, err
	}
	return nil, SetViewportOutput{Changed: changed}, nil
}
