// Package desktop composes the window registry, the icon grid engine and
// the drag controller behind a single event loop. Every mutation runs on
// that loop, one at a time, in submission order.
package desktop

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/1broseidon/webdesk/internal/drag"
	"github.com/1broseidon/webdesk/internal/events"
	"github.com/1broseidon/webdesk/internal/geom"
	"github.com/1broseidon/webdesk/internal/icons"
	"github.com/1broseidon/webdesk/internal/kvstore"
	"github.com/1broseidon/webdesk/internal/viewport"
	"github.com/1broseidon/webdesk/internal/windows"
)

var (
	// ErrStopped is returned by Do once the event loop has exited.
	ErrStopped = errors.New("desktop event loop stopped")
	// ErrViewportReadOnly is returned by SetViewport when the oracle is
	// driven by the display server rather than by clients.
	ErrViewportReadOnly = errors.New("viewport is managed by the display server")
)

// Tuning is the part of the configuration that can change at runtime.
type Tuning struct {
	Windows        windows.Options
	Grid           icons.Specs
	DragThreshold  float64
	Suppression    time.Duration
	ResizeDebounce time.Duration
	TileGap        float64
}

// Config wires a Desktop to its collaborators.
type Config struct {
	Tuning
	Oracle    viewport.Oracle
	Store     kvstore.Store
	Icons     []icons.Icon
	Scheduler drag.Scheduler
	Logger    *slog.Logger
}

// Settable is an oracle whose size clients may push.
type Settable interface {
	Set(size geom.Size) bool
}

type op struct {
	fn    func()
	reply chan error
}

// Desktop is the running shell state.
type Desktop struct {
	oracle   viewport.Oracle
	registry *windows.Registry
	icons    *icons.Engine
	drag     *drag.Controller
	resize   *drag.Debouncer
	logger   *slog.Logger
	tileGap  float64

	ops     chan op
	done    chan struct{}
	bus     events.Bus[Event]
	subs    []events.Subscription
	started time.Time
}

// New builds a Desktop. Icons listed in cfg are placed immediately. Call
// Run to start processing.
func New(cfg Config) *Desktop {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	store := cfg.Store
	if store == nil {
		store = kvstore.NewMemory()
	}
	base := cfg.Scheduler
	if base == nil {
		base = drag.TimeScheduler{}
	}

	d := &Desktop{
		oracle:  cfg.Oracle,
		logger:  logger,
		tileGap: cfg.TileGap,
		ops:     make(chan op, 64),
		done:    make(chan struct{}),
		started: time.Now(),
	}
	sched := loopScheduler{base: base, d: d}

	d.registry = windows.NewRegistry(cfg.Oracle, cfg.Windows)
	d.icons = icons.NewEngine(icons.EngineConfig{
		Viewport: cfg.Oracle.Viewport(),
		Specs:    cfg.Grid,
		Store:    icons.NewPositionStore(store, logger),
		Logger:   logger,
	})
	d.drag = drag.NewController(d.icons, drag.Config{
		Threshold:   cfg.DragThreshold,
		Suppression: cfg.Suppression,
		Scheduler:   sched,
		Logger:      logger,
	})
	debounce := cfg.ResizeDebounce
	if debounce <= 0 {
		debounce = drag.DefaultResizeDebounce
	}
	d.resize = drag.NewDebouncer(sched, debounce)

	for _, ic := range cfg.Icons {
		d.icons.Add(ic)
	}

	d.subs = append(d.subs,
		d.registry.Subscribe(func(e windows.Event) {
			d.bus.Emit(Event{Kind: KindWindow, Window: &e})
		}),
		d.icons.Subscribe(func(e icons.Event) {
			d.bus.Emit(Event{Kind: KindIcon, Icon: &e})
		}),
		cfg.Oracle.OnResize(func(geom.Size) {
			d.resize.Trigger(d.applyViewport)
		}),
	)
	return d
}

// Run processes submitted operations until ctx is cancelled.
func (d *Desktop) Run(ctx context.Context) error {
	d.logger.Info("desktop loop started",
		"viewport_width", d.oracle.Viewport().Width,
		"viewport_height", d.oracle.Viewport().Height,
		"icons", d.icons.Len(),
	)
	defer d.shutdown()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("desktop loop stopped")
			return nil
		case o := <-d.ops:
			err := d.run(o.fn)
			if o.reply != nil {
				o.reply <- err
			}
		}
	}
}

func (d *Desktop) shutdown() {
	close(d.done)
	for _, s := range d.subs {
		s.Cancel()
	}
	d.resize.Stop()
	d.drag.Stop()
}

// run executes fn, turning a panic into an error so one bad request
// cannot take the loop down.
func (d *Desktop) run(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("desktop operation panic recovered", "error", r)
			err = fmt.Errorf("desktop operation panicked: %v", r)
		}
	}()
	fn()
	return nil
}

// Do runs fn on the event loop and waits for it to finish. fn may use
// the loop-only accessors but must not call Do itself.
func (d *Desktop) Do(ctx context.Context, fn func()) error {
	reply := make(chan error, 1)
	select {
	case d.ops <- op{fn: fn, reply: reply}:
	case <-d.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-reply:
		return err
	case <-d.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Query runs fn on d's event loop and returns its result.
func Query[T any](ctx context.Context, d *Desktop, fn func() T) (T, error) {
	var out T
	err := d.Do(ctx, func() { out = fn() })
	return out, err
}

// post queues fn without waiting. It is how timer callbacks re-enter the
// loop.
func (d *Desktop) post(fn func()) {
	select {
	case d.ops <- op{fn: fn}:
	case <-d.done:
	}
}

// Subscribe registers fn for every window, icon and viewport change. fn
// runs on the event loop and must not block or call Do.
func (d *Desktop) Subscribe(fn func(Event)) events.Subscription {
	return d.bus.Subscribe(fn)
}

// Windows returns the registry. Loop only.
func (d *Desktop) Windows() *windows.Registry { return d.registry }

// Icons returns the grid engine. Loop only.
func (d *Desktop) Icons() *icons.Engine { return d.icons }

// Drag returns the pointer controller. Loop only.
func (d *Desktop) Drag() *drag.Controller { return d.drag }

// Oracle returns the viewport oracle.
func (d *Desktop) Oracle() viewport.Oracle { return d.oracle }

// SetViewport pushes a new size into a client-driven oracle. The layout
// catches up after the resize debounce.
func (d *Desktop) SetViewport(size geom.Size) (bool, error) {
	s, ok := d.oracle.(Settable)
	if !ok {
		return false, ErrViewportReadOnly
	}
	if size.Width <= 0 || size.Height <= 0 {
		return false, fmt.Errorf("invalid viewport %.0fx%.0f", size.Width, size.Height)
	}
	return s.Set(size), nil
}

// applyViewport re-fits windows and icons to the current viewport. Loop
// only.
func (d *Desktop) applyViewport() {
	size := d.oracle.Viewport()
	moved := d.registry.Relayout()
	d.icons.SetViewport(size)
	d.logger.Debug("viewport applied",
		"width", size.Width,
		"height", size.Height,
		"windows_moved", moved,
		"compact", d.icons.Grid().Compact,
	)
	d.bus.Emit(Event{Kind: KindViewport, Viewport: &size})
}

// Retune applies a new runtime tuning and adds any configured icons that
// are not on the desktop yet. Loop only.
func (d *Desktop) Retune(t Tuning, configured []icons.Icon) {
	d.registry.SetOptions(t.Windows)
	d.icons.SetSpecs(t.Grid)
	d.drag.SetTuning(t.DragThreshold, t.Suppression)
	d.tileGap = t.TileGap
	for _, ic := range configured {
		d.icons.Add(ic)
	}
	d.logger.Info("desktop retuned", "icons", d.icons.Len())
}

// TileGap is the configured spacing between tiled windows. Loop only.
func (d *Desktop) TileGap() float64 { return d.tileGap }

// Status summarizes the desktop. Loop only.
func (d *Desktop) Status() Status {
	size := d.oracle.Viewport()
	st := Status{
		Windows:       d.registry.Len(),
		Icons:         d.icons.Len(),
		Viewport:      size,
		Compact:       d.icons.Grid().Compact,
		UptimeSeconds: int64(time.Since(d.started).Seconds()),
	}
	if top, ok := d.registry.Topmost(); ok {
		st.Topmost = top.ID
	}
	return st
}

// loopScheduler delivers timer callbacks on the event loop.
type loopScheduler struct {
	base drag.Scheduler
	d    *Desktop
}

func (s loopScheduler) AfterFunc(delay time.Duration, fn func()) drag.Timer {
	return s.base.AfterFunc(delay, func() { s.d.post(fn) })
}
