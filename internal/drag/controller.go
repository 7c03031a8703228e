// Package drag turns raw pointer events on desktop icons into either a
// click or a drag-and-drop, and suppresses the click that follows a drag.
package drag

import (
	"log/slog"
	"sync"
	"time"

	"github.com/1broseidon/webdesk/internal/geom"
)

const (
	// DefaultThreshold is the displacement in pixels beyond which a press
	// becomes a drag.
	DefaultThreshold = 5
	// DefaultSuppression is how long the click following a drag is
	// ignored.
	DefaultSuppression = 150 * time.Millisecond
	// DefaultResizeDebounce delays grid recomputation after viewport
	// resizes.
	DefaultResizeDebounce = 200 * time.Millisecond
)

// Placer is the grid engine as seen by the controller.
type Placer interface {
	Position(id string) (geom.Point, bool)
	MoveLive(id string, p geom.Point) bool
	Drop(id string, p geom.Point) (geom.Point, bool)
}

// Config configures a Controller.
type Config struct {
	Threshold   float64
	Suppression time.Duration
	Scheduler   Scheduler
	Logger      *slog.Logger
}

// Controller tracks one pointer interaction at a time.
type Controller struct {
	placer      Placer
	threshold   float64
	suppression time.Duration
	sched       Scheduler
	logger      *slog.Logger

	mu           sync.Mutex
	id           string
	anchor       geom.Point
	start        geom.Point
	live         geom.Point
	hasDragged   bool
	preventClick bool
	suppress     Timer
	gen          uint64
}

// NewController creates a controller that moves icons through placer.
func NewController(placer Placer, cfg Config) *Controller {
	threshold := cfg.Threshold
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	suppression := cfg.Suppression
	if suppression <= 0 {
		suppression = DefaultSuppression
	}
	sched := cfg.Scheduler
	if sched == nil {
		sched = TimeScheduler{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Controller{
		placer:      placer,
		threshold:   threshold,
		suppression: suppression,
		sched:       sched,
		logger:      logger,
	}
}

// SetTuning updates the threshold and suppression window for the next
// interaction.
func (c *Controller) SetTuning(threshold float64, suppression time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if threshold > 0 {
		c.threshold = threshold
	}
	if suppression > 0 {
		c.suppression = suppression
	}
}

// PointerDown starts an interaction on icon id at pointer position p.
// The icon's current position becomes the drag anchor. Unknown icons are
// ignored.
func (c *Controller) PointerDown(id string, p geom.Point) bool {
	anchor, ok := c.placer.Position(id)
	if !ok {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.id = id
	c.anchor = anchor
	c.start = p
	c.live = anchor
	c.hasDragged = false
	return true
}

// PointerMove reports whether the active interaction is a drag. Once the
// pointer has moved past the threshold the icon follows it, unsnapped.
func (c *Controller) PointerMove(p geom.Point) bool {
	c.mu.Lock()
	id, dragging := c.track(p)
	live := c.live
	c.mu.Unlock()

	if id == "" || !dragging {
		return false
	}
	c.placer.MoveLive(id, live)
	return true
}

// track updates the drag state for pointer position p. Callers hold mu.
func (c *Controller) track(p geom.Point) (string, bool) {
	if c.id == "" {
		return "", false
	}
	if !c.hasDragged && p.Distance(c.start) > c.threshold {
		c.hasDragged = true
		c.preventClick = true
		c.logger.Debug("drag started", "id", c.id)
	}
	if c.hasDragged {
		c.live = c.anchor.Add(p.Sub(c.start))
	}
	return c.id, c.hasDragged
}

// PointerUp ends the interaction. A drag is settled on the nearest free
// grid cell, which is persisted and returned, and the following click is
// suppressed for the configured window. A press that never crossed the
// threshold places nothing.
func (c *Controller) PointerUp(p geom.Point) (geom.Point, bool) {
	c.mu.Lock()
	id, dragging := c.track(p)
	live := c.live
	c.id = ""
	if dragging {
		c.armSuppression()
	}
	c.mu.Unlock()

	if !dragging {
		return geom.Point{}, false
	}
	final, ok := c.placer.Drop(id, live)
	if ok {
		c.logger.Debug("icon dropped", "id", id, "x", final.X, "y", final.Y)
	}
	return final, ok
}

// armSuppression schedules the reset of the drag flags. Callers hold mu.
func (c *Controller) armSuppression() {
	if c.suppress != nil {
		c.suppress.Stop()
	}
	c.gen++
	gen := c.gen
	c.suppress = c.sched.AfterFunc(c.suppression, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if gen != c.gen {
			return
		}
		c.preventClick = false
		c.hasDragged = false
		c.suppress = nil
	})
}

// Click reports whether a click on id should be honoured. It is false
// while the post-drag suppression window is open.
func (c *Controller) Click(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.preventClick {
		c.logger.Debug("click suppressed after drag", "id", id)
		return false
	}
	return true
}

// Active returns the icon under an ongoing interaction.
func (c *Controller) Active() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.id, c.id != ""
}

// Dragging reports whether the current or just-finished interaction
// crossed the threshold.
func (c *Controller) Dragging() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hasDragged
}

// Stop cancels a pending suppression timer.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.suppress != nil {
		c.suppress.Stop()
		c.suppress = nil
	}
	c.gen++
	c.preventClick = false
	c.hasDragged = false
}
