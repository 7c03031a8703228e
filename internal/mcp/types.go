package mcp

import "github.com/1broseidon/webdesk/internal/ipc"

// StatusInput is the input for the desktop_status tool.
type StatusInput struct{}

// ListWindowsInput is the input for the list_windows tool.
type ListWindowsInput struct{}

// OpenWindowInput is the input for the open_window tool.
type OpenWindowInput struct {
	ID     string  `json:"id,omitempty" jsonschema:"Window id. A random id is generated when omitted."`
	Title  string  `json:"title,omitempty" jsonschema:"Title bar text"`
	Icon   string  `json:"icon,omitempty" jsonschema:"Icon reference shown in the title bar and taskbar"`
	Width  float64 `json:"width,omitempty" jsonschema:"Initial width in pixels (default from config)"`
	Height float64 `json:"height,omitempty" jsonschema:"Initial height in pixels (default from config)"`
}

// WindowInput addresses a single window.
type WindowInput struct {
	ID string `json:"id" jsonschema:"required,Window id"`
}

// MoveWindowInput is the input for the move_window tool. Unset fields keep
// their current value.
type MoveWindowInput struct {
	ID     string   `json:"id" jsonschema:"required,Window id"`
	X      *float64 `json:"x,omitempty" jsonschema:"Left edge in pixels"`
	Y      *float64 `json:"y,omitempty" jsonschema:"Top edge in pixels"`
	Width  *float64 `json:"width,omitempty" jsonschema:"Width in pixels"`
	Height *float64 `json:"height,omitempty" jsonschema:"Height in pixels"`
}

// SnapWindowInput is the input for the snap_window tool.
type SnapWindowInput struct {
	ID     string `json:"id" jsonschema:"required,Window id"`
	Region string `json:"region" jsonschema:"required,Target region: full, left-half, right-half, top-half, bottom-half, top-left, top-right, bottom-left or bottom-right"`
}

// TileWindowsInput is the input for the tile_windows tool.
type TileWindowsInput struct {
	Gap *float64 `json:"gap,omitempty" jsonschema:"Gap between windows in pixels (default from config)"`
}

// WindowOutput reports the outcome of a window operation.
type WindowOutput struct {
	Changed bool        `json:"changed"`
	Window  *WindowInfo `json:"window,omitempty"`
}

// WindowInfo is the flattened view of a window given to tool callers.
type WindowInfo struct {
	ID      string  `json:"id"`
	Title   string  `json:"title,omitempty"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Width   string  `json:"width"`
	Height  string  `json:"height"`
	ZIndex  int     `json:"z_index"`
	State   string  `json:"state"`
	Visible bool    `json:"visible"`
}

// ListWindowsOutput is the output for the list_windows tool.
type ListWindowsOutput struct {
	Windows []WindowInfo `json:"windows"`
	Topmost string       `json:"topmost,omitempty"`
}

// TileWindowsOutput is the output for the tile_windows tool.
type TileWindowsOutput struct {
	Tiled int `json:"tiled"`
}

// ListIconsInput is the input for the list_icons tool.
type ListIconsInput struct{}

// AddIconInput is the input for the add_icon tool.
type AddIconInput struct {
	Kind  string `json:"kind" jsonschema:"required,One of application, file or folder"`
	Ref   string `json:"ref" jsonschema:"required,Application name, file name or folder path the icon opens"`
	Label string `json:"label,omitempty" jsonschema:"Caption under the icon"`
	ID    string `json:"id,omitempty" jsonschema:"Icon id (default derived from kind and ref)"`
}

// IconInput addresses a single icon.
type IconInput struct {
	ID string `json:"id" jsonschema:"required,Icon id such as app-terminal"`
}

// MoveIconInput is the input for the move_icon tool.
type MoveIconInput struct {
	ID string  `json:"id" jsonschema:"required,Icon id"`
	X  float64 `json:"x" jsonschema:"required,Target left edge in pixels; snapped to the grid"`
	Y  float64 `json:"y" jsonschema:"required,Target top edge in pixels; snapped to the grid"`
}

// IconOutput reports the outcome of an icon operation.
type IconOutput struct {
	Changed bool      `json:"changed"`
	Icon    *IconInfo `json:"icon,omitempty"`
}

// IconInfo is the flattened view of an icon given to tool callers.
type IconInfo struct {
	ID    string  `json:"id"`
	Kind  string  `json:"kind"`
	Label string  `json:"label,omitempty"`
	Ref   string  `json:"ref,omitempty"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
}

// ListIconsOutput is the output for the list_icons tool.
type ListIconsOutput struct {
	Icons    []IconInfo `json:"icons"`
	Compact  bool       `json:"compact"`
	CellSize float64    `json:"cell_size"`
}

// SetViewportInput is the input for the set_viewport tool.
type SetViewportInput struct {
	Width  float64 `json:"width" jsonschema:"required,Viewport width in pixels"`
	Height float64 `json:"height" jsonschema:"required,Viewport height in pixels"`
}

// SetViewportOutput is the output for the set_viewport tool.
type SetViewportOutput struct {
	Changed bool `json:"changed"`
}

// StatusOutput is the output for the desktop_status tool.
type StatusOutput = ipc.StatusData
