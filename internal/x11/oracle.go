package x11

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/1broseidon/webdesk/internal/events"
	"github.com/1broseidon/webdesk/internal/geom"
)

// Measurer reports the usable area of a display.
type Measurer interface {
	UsableArea() (Rect, error)
}

// Oracle is a viewport oracle backed by a live display. It only changes
// when Refresh is called.
type Oracle struct {
	measure Measurer
	logger  *slog.Logger

	mu   sync.RWMutex
	size geom.Size
	bus  events.Bus[geom.Size]
}

// NewOracle takes an initial measurement from m.
func NewOracle(m Measurer, logger *slog.Logger) (*Oracle, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	o := &Oracle{measure: m, logger: logger}
	area, err := m.UsableArea()
	if err != nil {
		return nil, fmt.Errorf("failed to measure display: %w", err)
	}
	if area.Empty() {
		return nil, fmt.Errorf("display reports an empty usable area")
	}
	o.size = sizeOf(area)
	return o, nil
}

func sizeOf(r Rect) geom.Size {
	return geom.Size{Width: float64(r.Width), Height: float64(r.Height)}
}

// Viewport implements viewport.Oracle.
func (o *Oracle) Viewport() geom.Size {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.size
}

// OnResize implements viewport.Oracle.
func (o *Oracle) OnResize(fn func(geom.Size)) events.Subscription {
	return o.bus.Subscribe(fn)
}

// Refresh re-measures the display and notifies subscribers when the
// usable size changed. Empty measurements are ignored.
func (o *Oracle) Refresh() (bool, error) {
	area, err := o.measure.UsableArea()
	if err != nil {
		return false, err
	}
	if area.Empty() {
		o.logger.Debug("ignoring empty display measurement")
		return false, nil
	}

	size := sizeOf(area)
	o.mu.Lock()
	if size == o.size {
		o.mu.Unlock()
		return false, nil
	}
	o.size = size
	o.mu.Unlock()

	o.logger.Info("display viewport changed", "width", size.Width, "height", size.Height)
	o.bus.Emit(size)
	return true, nil
}
