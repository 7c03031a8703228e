package icons

import (
	"log/slog"

	"github.com/1broseidon/webdesk/internal/events"
	"github.com/1broseidon/webdesk/internal/geom"
	"github.com/1broseidon/webdesk/internal/kvstore"
)

// Kind is what a desktop icon launches.
type Kind string

const (
	KindApplication Kind = "application"
	KindFile        Kind = "file"
	KindFolder      Kind = "folder"
)

// ParseKind validates an icon kind name.
func ParseKind(s string) (Kind, bool) {
	switch Kind(s) {
	case KindApplication, KindFile, KindFolder:
		return Kind(s), true
	}
	return "", false
}

// IconID derives a stable icon id from the application or file-system
// entry the icon points at.
func IconID(kind Kind, ref string) string {
	switch kind {
	case KindApplication:
		return "app-" + ref
	case KindFolder:
		return "folder-" + ref
	default:
		return "file-" + ref
	}
}

// Icon is one desktop shortcut.
type Icon struct {
	ID       string     `json:"id"`
	Kind     Kind       `json:"kind"`
	Label    string     `json:"label,omitempty"`
	Ref      string     `json:"ref,omitempty"`
	Position geom.Point `json:"position"`
}

// EventType names an engine change.
type EventType string

const (
	EventAdded    EventType = "icon_added"
	EventRemoved  EventType = "icon_removed"
	EventMoved    EventType = "icon_moved"
	EventArranged EventType = "icons_arranged"
)

// Event is emitted after every engine mutation. Live is set for
// unsnapped drag previews.
type Event struct {
	Type EventType `json:"type"`
	ID   string    `json:"id,omitempty"`
	Icon *Icon     `json:"icon,omitempty"`
	Live bool      `json:"live,omitempty"`
}

// EngineConfig configures an Engine.
type EngineConfig struct {
	Viewport geom.Size
	Specs    Specs
	Store    *PositionStore
	Logger   *slog.Logger
}

// Engine owns the icons on the desktop and their positions. It is not
// safe for concurrent use.
type Engine struct {
	specs  Specs
	grid   Grid
	store  *PositionStore
	logger *slog.Logger

	order []string
	icons map[string]*Icon
	bus   events.Bus[Event]
}

// NewEngine creates an empty engine. Without a Store, positions live in
// memory only.
func NewEngine(cfg EngineConfig) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	store := cfg.Store
	if store == nil {
		store = NewPositionStore(kvstore.NewMemory(), logger)
	}
	return &Engine{
		specs:  cfg.Specs,
		grid:   GridFor(cfg.Viewport, cfg.Specs),
		store:  store,
		logger: logger,
		icons:  make(map[string]*Icon),
	}
}

// Subscribe registers fn for change notifications.
func (e *Engine) Subscribe(fn func(Event)) events.Subscription {
	return e.bus.Subscribe(fn)
}

func (e *Engine) emit(t EventType, ic *Icon, live bool) {
	ev := Event{Type: t, Live: live}
	if ic != nil {
		ev.ID = ic.ID
		if t != EventRemoved {
			c := *ic
			ev.Icon = &c
		}
	}
	e.bus.Emit(ev)
}

// Grid returns the active grid.
func (e *Engine) Grid() Grid { return e.grid }

// positions returns every icon position keyed by id.
func (e *Engine) positions() map[string]geom.Point {
	out := make(map[string]geom.Point, len(e.icons))
	for id, ic := range e.icons {
		out[id] = ic.Position
	}
	return out
}

// initialPosition is where the icon at index lands during a layout pass:
// its saved position re-snapped to the current grid, or its default slot.
func (e *Engine) initialPosition(id string, index int) geom.Point {
	if p, ok := e.store.Lookup(id); ok {
		return e.grid.Snap(p)
	}
	return e.grid.DefaultPosition(index)
}

// Add places a new icon. Re-using an id is a no-op.
func (e *Engine) Add(ic Icon) bool {
	if ic.ID == "" {
		return false
	}
	if _, exists := e.icons[ic.ID]; exists {
		return false
	}
	if ic.Kind == "" {
		ic.Kind = KindApplication
	}

	taken := e.positions()
	want := e.initialPosition(ic.ID, len(e.order))
	ic.Position = e.grid.FindNearestAvailable(want, ic.ID, taken)

	e.order = append(e.order, ic.ID)
	e.icons[ic.ID] = &ic
	e.emit(EventAdded, &ic, false)
	return true
}

// Remove deletes an icon and its saved position.
func (e *Engine) Remove(id string) bool {
	ic, ok := e.icons[id]
	if !ok {
		return false
	}
	delete(e.icons, id)
	for i, v := range e.order {
		if v == id {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}
	if err := e.store.Forget(id); err != nil {
		e.logger.Warn("failed to forget icon position", "id", id, "error", err)
	}
	e.emit(EventRemoved, ic, false)
	return true
}

// Icons returns copies of every icon in insertion order.
func (e *Engine) Icons() []Icon {
	out := make([]Icon, 0, len(e.order))
	for _, id := range e.order {
		out = append(out, *e.icons[id])
	}
	return out
}

// Get returns a copy of the icon with the given id.
func (e *Engine) Get(id string) (Icon, bool) {
	ic, ok := e.icons[id]
	if !ok {
		return Icon{}, false
	}
	return *ic, true
}

// Position returns the current position of id.
func (e *Engine) Position(id string) (geom.Point, bool) {
	ic, ok := e.icons[id]
	if !ok {
		return geom.Point{}, false
	}
	return ic.Position, true
}

// Len returns the number of icons.
func (e *Engine) Len() int { return len(e.order) }

// Arrange runs a full layout pass in insertion order, resolving
// collisions against icons already placed in the same pass. Nothing is
// persisted.
func (e *Engine) Arrange() {
	placed := make(map[string]geom.Point, len(e.order))
	for i, id := range e.order {
		ic := e.icons[id]
		ic.Position = e.grid.FindNearestAvailable(e.initialPosition(id, i), id, placed)
		placed[id] = ic.Position
	}
	e.emit(EventArranged, nil, false)
}

// MoveLive moves an icon to an unsnapped position while it is being
// dragged. Nothing is persisted.
func (e *Engine) MoveLive(id string, p geom.Point) bool {
	ic, ok := e.icons[id]
	if !ok {
		return false
	}
	ic.Position = p
	e.emit(EventMoved, ic, true)
	return true
}

// Drop settles an icon at the free grid cell nearest p and saves it. A
// failed save is logged; the icon still moves.
func (e *Engine) Drop(id string, p geom.Point) (geom.Point, bool) {
	ic, ok := e.icons[id]
	if !ok {
		return geom.Point{}, false
	}
	target := e.grid.FindNearestAvailable(p, id, e.positions())
	saved, err := e.store.Save(e.grid, id, target)
	if err != nil {
		e.logger.Warn("failed to save icon position", "id", id, "error", err)
	}
	target = saved
	ic.Position = target
	e.emit(EventMoved, ic, false)
	return target, true
}

// SetViewport switches the grid to a new viewport and re-runs the layout
// pass. It reports false when the size did not change.
func (e *Engine) SetViewport(size geom.Size) bool {
	if size == e.grid.Viewport {
		return false
	}
	e.grid = GridFor(size, e.specs)
	e.Arrange()
	return true
}

// SetSpecs replaces the grid constants, e.g. after a config reload, and
// re-runs the layout pass.
func (e *Engine) SetSpecs(specs Specs) {
	e.specs = specs
	e.grid = GridFor(e.grid.Viewport, specs)
	e.Arrange()
}
