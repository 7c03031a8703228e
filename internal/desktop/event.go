package desktop

import (
	"github.com/1broseidon/webdesk/internal/geom"
	"github.com/1broseidon/webdesk/internal/icons"
	"github.com/1broseidon/webdesk/internal/windows"
)

// EventKind says which part of the desktop changed.
type EventKind string

const (
	KindWindow   EventKind = "window"
	KindIcon     EventKind = "icon"
	KindViewport EventKind = "viewport"
)

// Event is a change notification. Exactly one payload is set.
type Event struct {
	Kind     EventKind      `json:"kind"`
	Window   *windows.Event `json:"window,omitempty"`
	Icon     *icons.Event   `json:"icon,omitempty"`
	Viewport *geom.Size     `json:"viewport,omitempty"`
}

// Status is a point-in-time summary of the desktop.
type Status struct {
	Windows       int       `json:"windows"`
	Icons         int       `json:"icons"`
	Topmost       string    `json:"topmost,omitempty"`
	Viewport      geom.Size `json:"viewport"`
	Compact       bool      `json:"compact"`
	UptimeSeconds int64     `json:"uptime_seconds"`
}
