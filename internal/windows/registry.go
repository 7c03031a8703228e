package windows

import (
	"github.com/1broseidon/webdesk/internal/events"
	"github.com/1broseidon/webdesk/internal/geom"
	"github.com/1broseidon/webdesk/internal/viewport"
)

const (
	// DefaultMaxZ caps z-index values.
	DefaultMaxZ = 1000

	DefaultOpenWidth  = 100
	DefaultOpenHeight = 300

	// Restore falls back to this size (centered) when no snapshot exists,
	// and Maximize stores it when the window has no numeric size.
	DefaultRestoreWidth  = 500
	DefaultRestoreHeight = 500
	DefaultRestoreX      = 100
	DefaultRestoreY      = 100

	// NoTaskbar disables the taskbar reservation. A zero TaskbarHeight
	// takes the default instead.
	NoTaskbar = -1
)

// Options tunes the registry. Zero fields take their defaults. The
// restore position is only defaulted together with an unset restore size.
type Options struct {
	MaxZ            int
	TaskbarHeight   float64
	OpenSize        geom.Size
	RestoreSize     geom.Size
	RestorePosition geom.Point
	TieBreak        TieBreak
}

// DefaultOptions returns the stock registry tuning.
func DefaultOptions() Options {
	return Options{
		MaxZ:            DefaultMaxZ,
		TaskbarHeight:   viewport.TaskbarHeight,
		OpenSize:        geom.Size{Width: DefaultOpenWidth, Height: DefaultOpenHeight},
		RestoreSize:     geom.Size{Width: DefaultRestoreWidth, Height: DefaultRestoreHeight},
		RestorePosition: geom.Point{X: DefaultRestoreX, Y: DefaultRestoreY},
		TieBreak:        TieBreakRecent,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.MaxZ <= 0 {
		o.MaxZ = d.MaxZ
	}
	if o.TaskbarHeight == 0 {
		o.TaskbarHeight = d.TaskbarHeight
	}
	if o.OpenSize.Width <= 0 {
		o.OpenSize.Width = d.OpenSize.Width
	}
	if o.OpenSize.Height <= 0 {
		o.OpenSize.Height = d.OpenSize.Height
	}
	if o.RestoreSize.Width <= 0 || o.RestoreSize.Height <= 0 {
		o.RestoreSize = d.RestoreSize
		if o.RestorePosition == (geom.Point{}) {
			o.RestorePosition = d.RestorePosition
		}
	}
	if o.TieBreak == "" {
		o.TieBreak = d.TieBreak
	}
	return o
}

// Registry owns the window records. Every operation is total: an unknown
// id is a silent no-op and nothing returns an error. Mutators report
// whether they changed anything.
type Registry struct {
	oracle  viewport.Oracle
	opts    Options
	windows map[string]*Window
	seq     uint64
	bus     events.Bus[Event]
}

// NewRegistry creates an empty registry laid out against oracle.
func NewRegistry(oracle viewport.Oracle, opts Options) *Registry {
	return &Registry{
		oracle:  oracle,
		opts:    opts.withDefaults(),
		windows: make(map[string]*Window),
	}
}

// Options returns the effective tuning.
func (r *Registry) Options() Options { return r.opts }

// SetOptions replaces the tuning, e.g. after a config reload. Existing
// windows keep their geometry.
func (r *Registry) SetOptions(opts Options) {
	r.opts = opts.withDefaults()
}

// Subscribe registers fn for change notifications.
func (r *Registry) Subscribe(fn func(Event)) events.Subscription {
	return r.bus.Subscribe(fn)
}

func (r *Registry) emit(t EventType, w *Window) {
	ev := Event{Type: t, ID: w.ID}
	if t != EventClosed {
		c := w.clone()
		ev.Window = &c
	}
	r.bus.Emit(ev)
}

// available returns the placement area: the viewport minus the taskbar.
func (r *Registry) available() geom.Size {
	return viewport.Available(r.oracle.Viewport(), max(r.opts.TaskbarHeight, 0))
}

// clampPosition keeps a window of the given size inside the available
// area without altering the size.
func (r *Registry) clampPosition(p geom.Point, size geom.Size) geom.Point {
	avail := r.available()
	return geom.Point{
		X: geom.Clamp(p.X, 0, avail.Width-size.Width),
		Y: geom.Clamp(p.Y, 0, avail.Height-size.Height),
	}
}

func (r *Registry) centered(size geom.Size) geom.Point {
	avail := r.available()
	return r.clampPosition(geom.Point{
		X: (avail.Width - size.Width) / 2,
		Y: (avail.Height - size.Height) / 2,
	}, size)
}

// Open creates a window centered in the viewport and stacked above every
// existing window. Re-using an id is a no-op.
func (r *Registry) Open(id string, o OpenOptions) bool {
	if id == "" {
		return false
	}
	if _, exists := r.windows[id]; exists {
		return false
	}

	size := geom.Size{Width: o.Width, Height: o.Height}
	if size.Width <= 0 {
		size.Width = r.opts.OpenSize.Width
	}
	if size.Height <= 0 {
		size.Height = r.opts.OpenSize.Height
	}
	pos := r.centered(size)

	r.seq++
	w := &Window{
		ID:      id,
		Title:   o.Title,
		Icon:    o.Icon,
		Content: o.Content,
		Geometry: Geometry{
			X:      pos.X,
			Y:      pos.Y,
			Width:  Px(size.Width),
			Height: Px(size.Height),
		},
		ZIndex:   r.nextZ(),
		Visible:  true,
		openSeq:  r.seq,
		focusSeq: r.seq,
	}
	r.windows[id] = w
	r.emit(EventOpened, w)
	return true
}

// Close removes the window and releases its content.
func (r *Registry) Close(id string) bool {
	w, ok := r.windows[id]
	if !ok {
		return false
	}
	delete(r.windows, id)
	w.Content = nil
	r.emit(EventClosed, w)
	return true
}

// SetGeometry merges the non-nil fields of patch into the geometry.
func (r *Registry) SetGeometry(id string, patch GeometryPatch) bool {
	w, ok := r.windows[id]
	if !ok {
		return false
	}
	if patch.X != nil {
		w.Geometry.X = *patch.X
	}
	if patch.Y != nil {
		w.Geometry.Y = *patch.Y
	}
	if patch.Width != nil {
		w.Geometry.Width = *patch.Width
	}
	if patch.Height != nil {
		w.Geometry.Height = *patch.Height
	}
	r.emit(EventChanged, w)
	return true
}

// SetVisible toggles the visibility flag only.
func (r *Registry) SetVisible(id string, visible bool) bool {
	w, ok := r.windows[id]
	if !ok {
		return false
	}
	w.Visible = visible
	r.emit(EventChanged, w)
	return true
}

// Minimize snapshots the normal geometry and hides the window. A window
// minimized while maximized keeps the snapshot taken by Maximize.
func (r *Registry) Minimize(id string) bool {
	w, ok := r.windows[id]
	if !ok {
		return false
	}
	if size, numeric := w.Geometry.numericSize(); numeric {
		w.PreviousSize = &size
		w.PreviousPosition = &geom.Point{X: w.Geometry.X, Y: w.Geometry.Y}
	}
	w.Minimized = true
	w.Visible = false
	r.emit(EventChanged, w)
	return true
}

// Maximize snapshots the current geometry, always overwriting any earlier
// snapshot, and expands the window to the full viewport. A window that
// has no numeric size keeps its snapshot, or gets the restore fallback
// when it has none.
func (r *Registry) Maximize(id string) bool {
	w, ok := r.windows[id]
	if !ok {
		return false
	}
	if size, numeric := w.Geometry.numericSize(); numeric {
		w.PreviousSize = &size
		w.PreviousPosition = &geom.Point{X: w.Geometry.X, Y: w.Geometry.Y}
	} else if w.PreviousSize == nil || w.PreviousPosition == nil {
		size := r.opts.RestoreSize
		pos := r.opts.RestorePosition
		w.PreviousSize = &size
		w.PreviousPosition = &pos
	}
	w.Geometry = Geometry{X: 0, Y: 0, Width: Full(), Height: Full()}
	w.Maximized = true
	r.emit(EventChanged, w)
	return true
}

// Restore returns the window to normal state using its snapshot, fitted
// into the current viewport. Without a snapshot the window gets the
// restore fallback size, centered.
func (r *Registry) Restore(id string) bool {
	w, ok := r.windows[id]
	if !ok {
		return false
	}

	size := r.opts.RestoreSize
	if w.PreviousSize != nil {
		size = *w.PreviousSize
	}
	avail := r.available()
	if avail.Width > 0 && size.Width > avail.Width {
		size.Width = avail.Width
	}
	if avail.Height > 0 && size.Height > avail.Height {
		size.Height = avail.Height
	}

	var pos geom.Point
	if w.PreviousPosition != nil {
		pos = r.clampPosition(*w.PreviousPosition, size)
	} else {
		pos = r.centered(size)
	}

	w.Geometry = Geometry{
		X:      pos.X,
		Y:      pos.Y,
		Width:  Px(size.Width),
		Height: Px(size.Height),
	}
	w.PreviousSize = nil
	w.PreviousPosition = nil
	w.Minimized = false
	w.Maximized = false
	w.Visible = true
	r.emit(EventChanged, w)
	return true
}

// Relayout re-clamps every normal window into the current viewport after
// a resize. Sizes never change.
func (r *Registry) Relayout() int {
	moved := 0
	for _, w := range r.stackingOrder() {
		if w.Maximized {
			continue
		}
		size, numeric := w.Geometry.numericSize()
		if !numeric {
			continue
		}
		pos := r.clampPosition(geom.Point{X: w.Geometry.X, Y: w.Geometry.Y}, size)
		if pos.X == w.Geometry.X && pos.Y == w.Geometry.Y {
			continue
		}
		w.Geometry.X = pos.X
		w.Geometry.Y = pos.Y
		moved++
		r.emit(EventChanged, w)
	}
	return moved
}

// Get returns a copy of the window with the given id.
func (r *Registry) Get(id string) (Window, bool) {
	w, ok := r.windows[id]
	if !ok {
		return Window{}, false
	}
	return w.clone(), true
}

// Has reports whether id is open.
func (r *Registry) Has(id string) bool {
	_, ok := r.windows[id]
	return ok
}

// Len returns the number of open windows.
func (r *Registry) Len() int { return len(r.windows) }

// List returns copies of all windows, back to front.
func (r *Registry) List() []Window {
	ordered := r.stackingOrder()
	out := make([]Window, len(ordered))
	for i, w := range ordered {
		out[i] = w.clone()
	}
	return out
}
