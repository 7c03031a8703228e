package desktop

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/1broseidon/webdesk/internal/drag"
	"github.com/1broseidon/webdesk/internal/events"
	"github.com/1broseidon/webdesk/internal/geom"
	"github.com/1broseidon/webdesk/internal/icons"
	"github.com/1broseidon/webdesk/internal/kvstore"
	"github.com/1broseidon/webdesk/internal/viewport"
	"github.com/1broseidon/webdesk/internal/windows"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type manualScheduler struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*manualTimer
}

type manualTimer struct {
	mu      sync.Mutex
	at      time.Duration
	fn      func()
	stopped bool
	fired   bool
}

func (t *manualTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

func (s *manualScheduler) AfterFunc(d time.Duration, fn func()) drag.Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &manualTimer{at: s.now + d, fn: fn}
	s.timers = append(s.timers, t)
	return t
}

func (s *manualScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	s.now += d
	var due []*manualTimer
	for _, t := range s.timers {
		t.mu.Lock()
		if !t.stopped && !t.fired && t.at <= s.now {
			t.fired = true
			due = append(due, t)
		}
		t.mu.Unlock()
	}
	s.mu.Unlock()

	for _, t := range due {
		t.fn()
	}
}

// fixedOracle cannot be resized by clients.
type fixedOracle struct{ size geom.Size }

func (o fixedOracle) Viewport() geom.Size { return o.size }

func (o fixedOracle) OnResize(func(geom.Size)) events.Subscription { return events.Subscription{} }

func startDesktop(t *testing.T, cfg Config) *Desktop {
	t.Helper()
	d := New(cfg)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("Run returned %v", err)
		}
	})
	return d
}

func sync0(t *testing.T, d *Desktop) {
	t.Helper()
	if err := d.Do(context.Background(), func() {}); err != nil {
		t.Fatalf("Do: %v", err)
	}
}

func TestNew_ZeroTuningUsesStockLayout(t *testing.T) {
	d := startDesktop(t, Config{
		Oracle: viewport.NewStatic(1024, 768),
		Icons:  []icons.Icon{{ID: "a"}},
	})
	ctx := context.Background()

	w, err := Query(ctx, d, func() windows.Window {
		d.Windows().Open("Calc", windows.OpenOptions{Width: 500, Height: 500})
		w, _ := d.Windows().Get("Calc")
		return w
	})
	if err != nil {
		t.Fatal(err)
	}
	if w.Geometry.X != 262 || w.Geometry.Y != 110 {
		t.Fatalf("expected Calc at (262,110), got (%v,%v)", w.Geometry.X, w.Geometry.Y)
	}

	pos, _ := Query(ctx, d, func() geom.Point { p, _ := d.Icons().Position("a"); return p })
	if pos != (geom.Point{X: 20, Y: 20}) {
		t.Fatalf("expected icon a at (20,20), got %v", pos)
	}
}

func TestDo_SerializesOperations(t *testing.T) {
	d := startDesktop(t, Config{Oracle: viewport.NewStatic(1024, 768)})
	ctx := context.Background()

	var wg sync.WaitGroup
	for _, id := range []string{"a", "b", "c", "d"} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if err := d.Do(ctx, func() { d.Windows().Open(id, windows.OpenOptions{}) }); err != nil {
				t.Errorf("Do(%s): %v", id, err)
			}
		}(id)
	}
	wg.Wait()

	n, err := Query(ctx, d, func() int { return d.Windows().Len() })
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if n != 4 {
		t.Fatalf("expected 4 windows, got %d", n)
	}

	zs, _ := Query(ctx, d, func() map[int]bool {
		out := map[int]bool{}
		for _, w := range d.Windows().List() {
			out[w.ZIndex] = true
		}
		return out
	})
	if len(zs) != 4 {
		t.Fatalf("expected distinct z-indices for serialized opens, got %v", zs)
	}
}

func TestDo_AfterStopReturnsErrStopped(t *testing.T) {
	d := New(Config{Oracle: viewport.NewStatic(1024, 768)})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()
	cancel()
	<-done

	err := d.Do(context.Background(), func() {})
	if !errors.Is(err, ErrStopped) {
		t.Fatalf("expected ErrStopped, got %v", err)
	}
}

func TestDo_RecoversPanics(t *testing.T) {
	d := startDesktop(t, Config{Oracle: viewport.NewStatic(1024, 768)})

	if err := d.Do(context.Background(), func() { panic("boom") }); err == nil {
		t.Fatal("expected error from panicking operation")
	}
	sync0(t, d)
}

func TestSubscribe_ForwardsWindowAndIconEvents(t *testing.T) {
	d := startDesktop(t, Config{Oracle: viewport.NewStatic(1024, 768)})
	ctx := context.Background()

	var (
		mu    sync.Mutex
		kinds []EventKind
	)
	sub := d.Subscribe(func(e Event) {
		mu.Lock()
		kinds = append(kinds, e.Kind)
		mu.Unlock()
	})
	defer sub.Cancel()

	_ = d.Do(ctx, func() {
		d.Windows().Open("W", windows.OpenOptions{})
		d.Icons().Add(icons.Icon{ID: "app-terminal"})
	})

	mu.Lock()
	defer mu.Unlock()
	if len(kinds) != 2 || kinds[0] != KindWindow || kinds[1] != KindIcon {
		t.Fatalf("unexpected events %v", kinds)
	}
}

func TestSetViewport_DebouncedRelayout(t *testing.T) {
	sched := &manualScheduler{}
	oracle := viewport.NewStatic(1280, 1024)
	d := startDesktop(t, Config{
		Oracle:    oracle,
		Scheduler: sched,
		Icons:     []icons.Icon{{ID: "a"}, {ID: "b"}},
	})
	ctx := context.Background()

	x, y := 800.0, 600.0
	_ = d.Do(ctx, func() {
		d.Windows().Open("W", windows.OpenOptions{Width: 400, Height: 300})
		d.Windows().SetGeometry("W", windows.GeometryPatch{X: &x, Y: &y})
	})

	viewportEvents := 0
	sub := d.Subscribe(func(e Event) {
		if e.Kind == KindViewport {
			viewportEvents++
		}
	})
	defer sub.Cancel()

	if changed, err := d.SetViewport(geom.Size{Width: 900, Height: 700}); err != nil || !changed {
		t.Fatalf("SetViewport = %v, %v", changed, err)
	}
	if changed, _ := d.SetViewport(geom.Size{Width: 600, Height: 800}); !changed {
		t.Fatal("expected second resize to apply")
	}

	sched.Advance(100 * time.Millisecond)
	sync0(t, d)
	w, _ := Query(ctx, d, func() windows.Window { w, _ := d.Windows().Get("W"); return w })
	if w.Geometry.X != 800 {
		t.Fatal("relayout ran before the debounce elapsed")
	}

	sched.Advance(200 * time.Millisecond)
	sync0(t, d)

	w, _ = Query(ctx, d, func() windows.Window { w, _ := d.Windows().Get("W"); return w })
	// available 600x752: x <= 200, y <= 452
	if w.Geometry.X != 200 || w.Geometry.Y != 452 {
		t.Fatalf("expected window clamped to (200,452), got (%v,%v)", w.Geometry.X, w.Geometry.Y)
	}
	grid, _ := Query(ctx, d, func() icons.Grid { return d.Icons().Grid() })
	if !grid.Compact {
		t.Fatal("expected compact grid after narrowing")
	}
	pos, _ := Query(ctx, d, func() geom.Point { p, _ := d.Icons().Position("b"); return p })
	if pos != (geom.Point{X: 80, Y: 8}) {
		t.Fatalf("expected icon b at (80,8), got %v", pos)
	}
	if viewportEvents != 1 {
		t.Fatalf("expected one viewport event, got %d", viewportEvents)
	}
}

func TestSetViewport_ReadOnlyOracle(t *testing.T) {
	d := startDesktop(t, Config{Oracle: fixedOracle{size: geom.Size{Width: 1024, Height: 768}}})
	if _, err := d.SetViewport(geom.Size{Width: 800, Height: 600}); !errors.Is(err, ErrViewportReadOnly) {
		t.Fatalf("expected ErrViewportReadOnly, got %v", err)
	}
}

func TestDragThroughLoop(t *testing.T) {
	sched := &manualScheduler{}
	kv := kvstore.NewMemory()
	d := startDesktop(t, Config{
		Oracle:    viewport.NewStatic(1024, 768),
		Store:     kv,
		Scheduler: sched,
		Icons:     []icons.Icon{{ID: "a"}, {ID: "b"}},
	})
	ctx := context.Background()

	final, err := Query(ctx, d, func() geom.Point {
		d.Drag().PointerDown("b", geom.Point{X: 130, Y: 30})
		d.Drag().PointerMove(geom.Point{X: 140, Y: 130})
		p, _ := d.Drag().PointerUp(geom.Point{X: 150, Y: 335})
		return p
	})
	if err != nil {
		t.Fatal(err)
	}
	if final != (geom.Point{X: 120, Y: 320}) {
		t.Fatalf("expected drop at (120,320), got %v", final)
	}
	if kv.Len() != 1 {
		t.Fatalf("expected one persisted position, got %d", kv.Len())
	}

	click, _ := Query(ctx, d, func() bool { return d.Drag().Click("b") })
	if click {
		t.Fatal("click right after drag should be suppressed")
	}

	sched.Advance(drag.DefaultSuppression)
	sync0(t, d)
	click, _ = Query(ctx, d, func() bool { return d.Drag().Click("b") })
	if !click {
		t.Fatal("click should be honoured after suppression")
	}
}

func TestStatus(t *testing.T) {
	d := startDesktop(t, Config{
		Oracle: viewport.NewStatic(1024, 768),
		Icons:  []icons.Icon{{ID: "a"}},
	})
	ctx := context.Background()

	st, err := Query(ctx, d, func() Status {
		d.Windows().Open("a", windows.OpenOptions{})
		d.Windows().Open("b", windows.OpenOptions{})
		return d.Status()
	})
	if err != nil {
		t.Fatal(err)
	}
	if st.Windows != 2 || st.Icons != 1 || st.Topmost != "b" || st.Compact {
		t.Fatalf("unexpected status %+v", st)
	}
}

func TestRetune(t *testing.T) {
	d := startDesktop(t, Config{Oracle: viewport.NewStatic(1024, 768)})
	ctx := context.Background()

	tuning := Tuning{Windows: windows.DefaultOptions(), Grid: icons.DefaultSpecs()}
	tuning.Windows.MaxZ = 1
	n, _ := Query(ctx, d, func() int {
		d.Retune(tuning, []icons.Icon{{ID: "app-mail"}})
		d.Windows().Open("x", windows.OpenOptions{})
		d.Windows().Open("y", windows.OpenOptions{})
		return d.Icons().Len()
	})
	if n != 1 {
		t.Fatalf("expected configured icon to be added, got %d icons", n)
	}
	y, _ := Query(ctx, d, func() windows.Window { w, _ := d.Windows().Get("y"); return w })
	if y.ZIndex != 1 {
		t.Fatalf("expected z capped at 1, got %d", y.ZIndex)
	}
}
