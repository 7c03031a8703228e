// Package windows is the authoritative registry of open desktop windows:
// their lifecycle state machine, viewport-aware geometry and stacking
// order.
//
// A Registry is not safe for concurrent use. The desktop event loop is its
// only caller and serializes every operation.
package windows

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/1broseidon/webdesk/internal/geom"
)

// fullSentinel is how a full-viewport dimension is spelled on the wire.
const fullSentinel = "100%"

// Dimension is a window width or height: either a pixel count or the
// full-viewport sentinel used while a window is maximized.
type Dimension struct {
	px   float64
	full bool
}

// Px returns a numeric Dimension.
func Px(v float64) Dimension { return Dimension{px: v} }

// Full returns the full-viewport sentinel.
func Full() Dimension { return Dimension{full: true} }

// IsFull reports whether d is the full-viewport sentinel.
func (d Dimension) IsFull() bool { return d.full }

// Pixels returns the numeric value and false for the sentinel.
func (d Dimension) Pixels() (float64, bool) {
	if d.full {
		return 0, false
	}
	return d.px, true
}

// Resolve returns the pixel extent of d inside a container of size extent.
func (d Dimension) Resolve(extent float64) float64 {
	if d.full {
		return extent
	}
	return d.px
}

func (d Dimension) String() string {
	if d.full {
		return fullSentinel
	}
	return strconv.FormatFloat(d.px, 'f', -1, 64)
}

// MarshalJSON encodes numbers as JSON numbers and the sentinel as "100%".
func (d Dimension) MarshalJSON() ([]byte, error) {
	if d.full {
		return json.Marshal(fullSentinel)
	}
	return json.Marshal(d.px)
}

// UnmarshalJSON accepts a JSON number or the string "100%".
func (d *Dimension) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s != fullSentinel {
			return fmt.Errorf("invalid dimension %q", s)
		}
		*d = Full()
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("invalid dimension %s: %w", data, err)
	}
	*d = Px(v)
	return nil
}

// Geometry is a window's placement.
type Geometry struct {
	X      float64   `json:"x"`
	Y      float64   `json:"y"`
	Width  Dimension `json:"width"`
	Height Dimension `json:"height"`
}

// numericSize returns the pixel size, or false if either side is the
// full-viewport sentinel.
func (g Geometry) numericSize() (geom.Size, bool) {
	w, okW := g.Width.Pixels()
	h, okH := g.Height.Pixels()
	if !okW || !okH {
		return geom.Size{}, false
	}
	return geom.Size{Width: w, Height: h}, true
}

// GeometryPatch carries the fields of a partial geometry update. Nil
// fields are left untouched.
type GeometryPatch struct {
	X      *float64   `json:"x,omitempty"`
	Y      *float64   `json:"y,omitempty"`
	Width  *Dimension `json:"width,omitempty"`
	Height *Dimension `json:"height,omitempty"`
}

// State is the lifecycle state derived from a window's flags.
type State string

const (
	StateNormal    State = "normal"
	StateMinimized State = "minimized"
	StateMaximized State = "maximized"
)

// Window is one open application instance.
type Window struct {
	ID       string   `json:"id"`
	Title    string   `json:"title,omitempty"`
	Icon     string   `json:"icon,omitempty"`
	Content  any      `json:"content,omitempty"`
	Geometry Geometry `json:"geometry"`
	ZIndex   int      `json:"z_index"`

	Visible   bool `json:"visible"`
	Minimized bool `json:"minimized"`
	Maximized bool `json:"maximized"`

	PreviousSize     *geom.Size  `json:"previous_size,omitempty"`
	PreviousPosition *geom.Point `json:"previous_position,omitempty"`

	openSeq  uint64
	focusSeq uint64
}

// State derives the lifecycle state. Minimized wins when both flags are
// set since nothing structurally prevents it.
func (w Window) State() State {
	switch {
	case w.Minimized:
		return StateMinimized
	case w.Maximized:
		return StateMaximized
	default:
		return StateNormal
	}
}

// OnScreen reports whether the window takes part in z-order arbitration.
func (w Window) OnScreen() bool {
	return w.Visible && !w.Minimized
}

func (w *Window) clone() Window {
	c := *w
	if w.PreviousSize != nil {
		s := *w.PreviousSize
		c.PreviousSize = &s
	}
	if w.PreviousPosition != nil {
		p := *w.PreviousPosition
		c.PreviousPosition = &p
	}
	return c
}

// OpenOptions are the caller-supplied parameters of Open.
type OpenOptions struct {
	Content any
	Width   float64
	Height  float64
	Icon    string
	Title   string
}

// EventType names a registry change.
type EventType string

const (
	EventOpened  EventType = "window_opened"
	EventClosed  EventType = "window_closed"
	EventChanged EventType = "window_changed"
	EventFocused EventType = "window_focused"
)

// Event is emitted after every registry mutation.
type Event struct {
	Type   EventType `json:"type"`
	ID     string    `json:"id"`
	Window *Window   `json:"window,omitempty"`
}
