package ipc

import (
	"encoding/json"
	"fmt"

	"github.com/1broseidon/webdesk/internal/desktop"
	"github.com/1broseidon/webdesk/internal/geom"
	"github.com/1broseidon/webdesk/internal/icons"
	"github.com/1broseidon/webdesk/internal/windows"
)

// CommandType represents different IPC command types
type CommandType string

const (
	CommandReload      CommandType = "RELOAD"
	CommandGetStatus   CommandType = "GET_STATUS"
	CommandSubscribe   CommandType = "SUBSCRIBE"
	CommandSetViewport CommandType = "SET_VIEWPORT"

	CommandListWindows    CommandType = "LIST_WINDOWS"
	CommandOpenWindow     CommandType = "OPEN_WINDOW"
	CommandCloseWindow    CommandType = "CLOSE_WINDOW"
	CommandMinimizeWindow CommandType = "MINIMIZE_WINDOW"
	CommandMaximizeWindow CommandType = "MAXIMIZE_WINDOW"
	CommandRestoreWindow  CommandType = "RESTORE_WINDOW"
	CommandFocusWindow    CommandType = "FOCUS_WINDOW"
	CommandSetGeometry    CommandType = "SET_GEOMETRY"
	CommandSetVisible     CommandType = "SET_VISIBLE"
	CommandNormalizeZ     CommandType = "NORMALIZE_Z"
	CommandTileWindows    CommandType = "TILE_WINDOWS"
	CommandSnapWindow     CommandType = "SNAP_WINDOW"

	CommandListIcons    CommandType = "LIST_ICONS"
	CommandAddIcon      CommandType = "ADD_ICON"
	CommandRemoveIcon   CommandType = "REMOVE_ICON"
	CommandArrangeIcons CommandType = "ARRANGE_ICONS"
	CommandMoveIcon     CommandType = "MOVE_ICON"
	CommandPointer      CommandType = "POINTER"
	CommandClickIcon    CommandType = "CLICK_ICON"
)

const (
	StatusOK    = "OK"
	StatusError = "ERROR"
)

// Request represents an IPC request from client to server
type Request struct {
	Command CommandType     `json:"command"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Response represents an IPC response from server to client
type Response struct {
	Status string          `json:"status"` // "OK" or "ERROR"
	Data   json.RawMessage `json:"data,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// StatusData represents the data returned by GET_STATUS
type StatusData struct {
	desktop.Status
	ViewportSource string `json:"viewport_source"`
	DaemonRunning  bool   `json:"daemon_running"`
}

// WindowIDPayload addresses a single window.
type WindowIDPayload struct {
	ID string `json:"id"`
}

// OpenWindowPayload is the payload of OPEN_WINDOW. Zero sizes take the
// registry defaults.
type OpenWindowPayload struct {
	ID      string          `json:"id"`
	Title   string          `json:"title,omitempty"`
	Icon    string          `json:"icon,omitempty"`
	Content json.RawMessage `json:"content,omitempty"`
	Width   float64         `json:"width,omitempty"`
	Height  float64         `json:"height,omitempty"`
}

// SetGeometryPayload merges the set geometry fields into a window.
type SetGeometryPayload struct {
	ID string `json:"id"`
	windows.GeometryPatch
}

type SetVisiblePayload struct {
	ID      string `json:"id"`
	Visible bool   `json:"visible"`
}

type SnapWindowPayload struct {
	ID     string `json:"id"`
	Region string `json:"region"`
}

// TileWindowsPayload overrides the configured tile gap when Gap is set.
type TileWindowsPayload struct {
	Gap *float64 `json:"gap,omitempty"`
}

// WindowResult reports whether a window operation changed anything, and
// the window afterwards when it still exists.
type WindowResult struct {
	Changed bool            `json:"changed"`
	Window  *windows.Window `json:"window,omitempty"`
}

type WindowsData struct {
	Windows []windows.Window `json:"windows"`
	Topmost string           `json:"topmost,omitempty"`
}

// CountResult carries the number of windows an arrangement touched.
type CountResult struct {
	Count int `json:"count"`
}

type AddIconPayload struct {
	ID    string     `json:"id,omitempty"`
	Kind  icons.Kind `json:"kind"`
	Ref   string     `json:"ref"`
	Label string     `json:"label,omitempty"`
}

type IconIDPayload struct {
	ID string `json:"id"`
}

type MoveIconPayload struct {
	ID string  `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
}

type IconResult struct {
	Changed bool        `json:"changed"`
	Icon    *icons.Icon `json:"icon,omitempty"`
}

type IconsData struct {
	Icons   []icons.Icon   `json:"icons"`
	Grid    icons.GridSpec `json:"grid"`
	Compact bool           `json:"compact"`
}

// PointerPhase is the stage of a pointer interaction.
type PointerPhase string

const (
	PointerDown PointerPhase = "down"
	PointerMove PointerPhase = "move"
	PointerUp   PointerPhase = "up"
)

// PointerPayload forwards a host pointer event. ID is only read on down.
type PointerPayload struct {
	Phase PointerPhase `json:"phase"`
	ID    string       `json:"id,omitempty"`
	X     float64      `json:"x"`
	Y     float64      `json:"y"`
}

type PointerResult struct {
	Accepted bool        `json:"accepted"`
	Dragging bool        `json:"dragging"`
	Dropped  bool        `json:"dropped"`
	Position *geom.Point `json:"position,omitempty"`
}

type ClickResult struct {
	Honoured bool `json:"honoured"`
}

type ViewportPayload struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type ViewportResult struct {
	Changed bool `json:"changed"`
}

// NewOKResponse creates a successful response with optional data
func NewOKResponse(data interface{}) (*Response, error) {
	var dataBytes json.RawMessage
	if data != nil {
		bytes, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal response data: %w", err)
		}
		dataBytes = bytes
	}

	return &Response{
		Status: StatusOK,
		Data:   dataBytes,
	}, nil
}

// NewErrorResponse creates an error response with a message
func NewErrorResponse(errMsg string) *Response {
	return &Response{
		Status: StatusError,
		Error:  errMsg,
	}
}

// ParseRequest parses a request from JSON bytes
func ParseRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}
	return &req, nil
}

// Marshal converts a response to JSON bytes
func (r *Response) Marshal() ([]byte, error) {
	return json.Marshal(r)
}
