// Package viewport describes the drawing area the desktop is laid out in
// and the oracles that report it.
package viewport

import (
	"sync"

	"github.com/1broseidon/webdesk/internal/events"
	"github.com/1broseidon/webdesk/internal/geom"
)

const (
	// TaskbarHeight is the strip at the bottom of the viewport reserved for
	// the taskbar and excluded from window placement.
	TaskbarHeight = 48
	// CompactBreakpoint is the width below which the device is treated as
	// a narrow (compact) layout class.
	CompactBreakpoint = 768
)

// Oracle reports the current viewport and notifies on resize.
type Oracle interface {
	Viewport() geom.Size
	OnResize(fn func(geom.Size)) events.Subscription
}

// IsCompact reports whether size falls in the compact layout class for
// the given breakpoint. A non-positive breakpoint uses CompactBreakpoint.
func IsCompact(size geom.Size, breakpoint float64) bool {
	if breakpoint <= 0 {
		breakpoint = CompactBreakpoint
	}
	return size.Width < breakpoint
}

// Available returns the area usable for placement once the bottom
// reservation is removed. Heights never go negative.
func Available(size geom.Size, reservation float64) geom.Size {
	h := size.Height - reservation
	if h < 0 {
		h = 0
	}
	return geom.Size{Width: size.Width, Height: h}
}

// Static is an Oracle whose size is pushed in by the host, either from
// configuration or from resize reports sent over IPC.
type Static struct {
	mu   sync.RWMutex
	size geom.Size
	bus  events.Bus[geom.Size]
}

// NewStatic creates a Static oracle with an initial size.
func NewStatic(width, height float64) *Static {
	return &Static{size: geom.Size{Width: width, Height: height}}
}

// Viewport implements Oracle.
func (s *Static) Viewport() geom.Size {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.size
}

// OnResize implements Oracle.
func (s *Static) OnResize(fn func(geom.Size)) events.Subscription {
	return s.bus.Subscribe(fn)
}

// Set updates the size and notifies subscribers when it changed.
func (s *Static) Set(size geom.Size) bool {
	s.mu.Lock()
	if s.size == size {
		s.mu.Unlock()
		return false
	}
	s.size = size
	s.mu.Unlock()

	s.bus.Emit(size)
	return true
}
