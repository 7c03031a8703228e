// Package mcp exposes the running desktop to MCP clients as a set of
// tools, driven through the daemon's IPC socket.
package mcp

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/webdesk/internal/icons"
	"github.com/1broseidon/webdesk/internal/ipc"
	"github.com/1broseidon/webdesk/internal/windows"
)

const (
	ServerName    = "webdesk"
	ServerVersion = "0.1.0"
)

// Desk is the part of the daemon client the tools use. *ipc.Client
// implements it.
type Desk interface {
	GetStatus() (*ipc.StatusData, error)
	ListWindows() (*ipc.WindowsData, error)
	OpenWindow(p ipc.OpenWindowPayload) (*ipc.WindowResult, error)
	CloseWindow(id string) (*ipc.WindowResult, error)
	FocusWindow(id string) (*ipc.WindowResult, error)
	MinimizeWindow(id string) (*ipc.WindowResult, error)
	MaximizeWindow(id string) (*ipc.WindowResult, error)
	RestoreWindow(id string) (*ipc.WindowResult, error)
	SetGeometry(id string, patch windows.GeometryPatch) (*ipc.WindowResult, error)
	SnapWindow(id, region string) (*ipc.WindowResult, error)
	TileWindows(gap *float64) (int, error)
	ListIcons() (*ipc.IconsData, error)
	AddIcon(kind icons.Kind, ref, label, id string) (*ipc.IconResult, error)
	RemoveIcon(id string) (*ipc.IconResult, error)
	MoveIcon(id string, x, y float64) (*ipc.IconResult, error)
	ArrangeIcons() (*ipc.IconsData, error)
	SetViewport(width, height float64) (bool, error)
}

// Server is the MCP server for desktop control.
type Server struct {
	mcpServer *mcpsdk.Server
	desk      Desk
	logger    *slog.Logger
	newID     func() string
}

// NewServer creates an MCP server that forwards to desk.
func NewServer(desk Desk, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Server{
		desk:   desk,
		logger: logger,
		newID:  func() string { return "win-" + uuid.NewString()[:8] },
	}

	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    ServerName,
			Version: ServerVersion,
		},
		nil,
	)

	s.registerTools()
	return s
}

// Run starts the MCP server on stdio transport, blocking until done.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "desktop_status",
		Description: "Summarize the desktop: number of windows and icons, the topmost window, the viewport size and whether the compact grid is active.",
	}, s.handleStatus)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_windows",
		Description: "List every open window with its geometry, stacking order (z_index) and state (normal, minimized or maximized).",
	}, s.handleListWindows)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "open_window",
		Description: "Open a window centered in the viewport and stacked above all others. Opening an id that is already open changes nothing.",
	}, s.handleOpenWindow)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "close_window",
		Description: "Close a window.",
	}, s.handleCloseWindow)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "focus_window",
		Description: "Bring a window to the front of the stacking order.",
	}, s.handleFocusWindow)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "minimize_window",
		Description: "Hide a window to the taskbar, remembering its geometry for restore.",
	}, s.handleMinimizeWindow)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "maximize_window",
		Description: "Fill the viewport above the taskbar with a window, remembering its geometry for restore.",
	}, s.handleMaximizeWindow)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "restore_window",
		Description: "Return a minimized or maximized window to its remembered geometry, clamped to the current viewport.",
	}, s.handleRestoreWindow)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "move_window",
		Description: "Set any of a window's x, y, width and height. Omitted fields are left as they are.",
	}, s.handleMoveWindow)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "snap_window",
		Description: "Move a window into a region of the usable area such as left-half or top-right.",
	}, s.handleSnapWindow)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "tile_windows",
		Description: "Arrange every visible, non-minimized window in a grid over the usable area.",
	}, s.handleTileWindows)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_icons",
		Description: "List desktop icons with their grid positions.",
	}, s.handleListIcons)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "add_icon",
		Description: "Place a new desktop icon for an application, file or folder in the nearest free grid cell.",
	}, s.handleAddIcon)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "remove_icon",
		Description: "Remove a desktop icon and forget its saved position.",
	}, s.handleRemoveIcon)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "move_icon",
		Description: "Drop an icon at a position. It lands on the nearest free grid cell and the position is saved.",
	}, s.handleMoveIcon)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "arrange_icons",
		Description: "Lay every icon out again in its default grid slot, in order.",
	}, s.handleArrangeIcons)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "set_viewport",
		Description: "Report a new viewport size. Windows and icons are re-fitted shortly after. Fails when the daemon follows an X11 display.",
	}, s.handleSetViewport)
}
