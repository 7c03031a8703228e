package windows

import (
	"github.com/1broseidon/webdesk/internal/geom"
	"github.com/1broseidon/webdesk/internal/tiling"
)

func (r *Registry) availableRect() geom.Rect {
	avail := r.available()
	return geom.Rect{Width: avail.Width, Height: avail.Height}
}

func (r *Registry) place(w *Window, rect geom.Rect) {
	w.Geometry = Geometry{
		X:      rect.X,
		Y:      rect.Y,
		Width:  Px(rect.Width),
		Height: Px(rect.Height),
	}
	w.Maximized = false
	w.PreviousSize = nil
	w.PreviousPosition = nil
}

// Tile arranges every on-screen window in a grid over the available
// area, in stacking order. It returns the number of windows placed.
func (r *Registry) Tile(gap float64) (int, error) {
	var targets []*Window
	for _, w := range r.stackingOrder() {
		if w.OnScreen() {
			targets = append(targets, w)
		}
	}
	if len(targets) == 0 {
		return 0, nil
	}

	rects, err := tiling.CalculatePositions(len(targets), r.availableRect(), gap)
	if err != nil {
		return 0, err
	}
	for i, w := range targets {
		r.place(w, rects[i])
		r.emit(EventChanged, w)
	}
	return len(targets), nil
}

// Snap moves a window into a region of the available area, such as the
// left half. A minimized window stays minimized and restores into the
// region. Unknown ids are a no-op.
func (r *Registry) Snap(id string, region tiling.Region) bool {
	w, ok := r.windows[id]
	if !ok {
		return false
	}
	rect := tiling.ApplyRegion(r.availableRect(), region)
	if w.Minimized {
		size := rect.Size()
		pos := rect.Origin()
		w.Maximized = false
		w.PreviousSize = &size
		w.PreviousPosition = &pos
		r.emit(EventChanged, w)
		return true
	}
	r.place(w, rect)
	r.emit(EventChanged, w)
	return true
}
