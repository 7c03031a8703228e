package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
)

// Rect is an integer rectangle in root-window coordinates.
type Rect struct {
	X, Y          int
	Width, Height int
}

// Empty reports whether r covers no pixels.
func (r Rect) Empty() bool { return r.Width <= 0 || r.Height <= 0 }

// Contains reports whether the pixel at x,y lies inside r.
func (r Rect) Contains(x, y int) bool {
	return x >= r.X && x < r.X+r.Width && y >= r.Y && y < r.Y+r.Height
}

// Intersect returns the overlap of r and o, or the zero Rect.
func (r Rect) Intersect(o Rect) Rect {
	x1 := max(r.X, o.X)
	y1 := max(r.Y, o.Y)
	x2 := min(r.X+r.Width, o.X+o.Width)
	y2 := min(r.Y+r.Height, o.Y+o.Height)
	if x2 <= x1 || y2 <= y1 {
		return Rect{}
	}
	return Rect{X: x1, Y: y1, Width: x2 - x1, Height: y2 - y1}
}

// Monitor is one active RandR output.
type Monitor struct {
	ID     int
	Name   string
	Bounds Rect
}

// Monitors lists the active outputs using XRandR.
func (c *Connection) Monitors() ([]Monitor, error) {
	if err := randr.Init(c.XUtil.Conn()); err != nil {
		return nil, fmt.Errorf("randr init failed: %w", err)
	}

	resources, err := randr.GetScreenResources(c.XUtil.Conn(), c.Root).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get screen resources: %w", err)
	}

	var monitors []Monitor
	for i, crtc := range resources.Crtcs {
		info, err := randr.GetCrtcInfo(c.XUtil.Conn(), crtc, resources.ConfigTimestamp).Reply()
		if err != nil {
			continue
		}
		// Disabled CRTCs report no size or no outputs.
		if info.Width == 0 || info.Height == 0 || len(info.Outputs) == 0 {
			continue
		}

		name := fmt.Sprintf("Monitor%d", i)
		if out, err := randr.GetOutputInfo(c.XUtil.Conn(), info.Outputs[0], resources.ConfigTimestamp).Reply(); err == nil {
			name = string(out.Name)
		}

		monitors = append(monitors, Monitor{
			ID:   i,
			Name: name,
			Bounds: Rect{
				X:      int(info.X),
				Y:      int(info.Y),
				Width:  int(info.Width),
				Height: int(info.Height),
			},
		})
	}
	return monitors, nil
}

// ActiveMonitor picks the monitor holding the focused window, then the
// one under the pointer, then the first one.
func (c *Connection) ActiveMonitor() (Monitor, error) {
	monitors, err := c.Monitors()
	if err != nil {
		return Monitor{}, err
	}
	if len(monitors) == 0 {
		return Monitor{}, fmt.Errorf("no monitors found")
	}

	if x, y, ok := c.activeWindowCenter(); ok {
		if m, ok := monitorAt(monitors, x, y); ok {
			return m, nil
		}
	}
	if ptr, err := xproto.QueryPointer(c.XUtil.Conn(), c.Root).Reply(); err == nil {
		if m, ok := monitorAt(monitors, int(ptr.RootX), int(ptr.RootY)); ok {
			return m, nil
		}
	}
	return monitors[0], nil
}

func monitorAt(monitors []Monitor, x, y int) (Monitor, bool) {
	for _, m := range monitors {
		if m.Bounds.Contains(x, y) {
			return m, true
		}
	}
	return Monitor{}, false
}

func (c *Connection) activeWindowCenter() (int, int, bool) {
	win, err := ewmh.ActiveWindowGet(c.XUtil)
	if err != nil || win == 0 {
		return 0, 0, false
	}
	g, err := xproto.GetGeometry(c.XUtil.Conn(), xproto.Drawable(win)).Reply()
	if err != nil {
		return 0, 0, false
	}
	tr, err := xproto.TranslateCoordinates(c.XUtil.Conn(), win, c.Root, 0, 0).Reply()
	if err != nil {
		return 0, 0, false
	}
	return int(tr.DstX) + int(g.Width)/2, int(tr.DstY) + int(g.Height)/2, true
}

// UsableArea is the active monitor minus panels and docks. Dock struts are
// preferred; the EWMH work area of the current desktop is the fallback.
func (c *Connection) UsableArea() (Rect, error) {
	mon, err := c.ActiveMonitor()
	if err != nil {
		return Rect{}, err
	}
	if area, ok := c.strutArea(mon.Bounds); ok {
		return area, nil
	}
	if wa, ok := c.workarea(); ok {
		return clipToWorkarea(mon.Bounds, wa), nil
	}
	return mon.Bounds, nil
}

func (c *Connection) workarea() (Rect, bool) {
	areas, err := ewmh.WorkareaGet(c.XUtil)
	if err != nil || len(areas) == 0 {
		return Rect{}, false
	}
	idx := 0
	if cur, err := ewmh.CurrentDesktopGet(c.XUtil); err == nil && int(cur) < len(areas) {
		idx = int(cur)
	}
	wa := areas[idx]
	return Rect{X: int(wa.X), Y: int(wa.Y), Width: int(wa.Width), Height: int(wa.Height)}, true
}

func (c *Connection) strutArea(mon Rect) (Rect, bool) {
	rootGeom, err := xproto.GetGeometry(c.XUtil.Conn(), xproto.Drawable(c.Root)).Reply()
	if err != nil {
		return Rect{}, false
	}
	root := Rect{Width: int(rootGeom.Width), Height: int(rootGeom.Height)}

	clients, err := ewmh.ClientListGet(c.XUtil)
	if err != nil {
		return Rect{}, false
	}

	var struts []ewmh.WmStrutPartial
	for _, win := range clients {
		types, err := ewmh.WmWindowTypeGet(c.XUtil, win)
		if err != nil || !isDock(types) {
			continue
		}
		if sp, err := ewmh.WmStrutPartialGet(c.XUtil, win); err == nil {
			struts = append(struts, *sp)
			continue
		}
		// Some docks only set _NET_WM_STRUT.
		if s, err := ewmh.WmStrutGet(c.XUtil, win); err == nil {
			struts = append(struts, fullSpan(s, root))
		}
	}
	return insetByStruts(mon, root, struts)
}

func isDock(types []string) bool {
	for _, t := range types {
		if t == "_NET_WM_WINDOW_TYPE_DOCK" {
			return true
		}
	}
	return false
}

// fullSpan widens a plain strut to cover the whole root edge.
func fullSpan(s *ewmh.WmStrut, root Rect) ewmh.WmStrutPartial {
	return ewmh.WmStrutPartial{
		Left:       s.Left,
		Right:      s.Right,
		Top:        s.Top,
		Bottom:     s.Bottom,
		LeftEndY:   uint(root.Height - 1),
		RightEndY:  uint(root.Height - 1),
		TopEndX:    uint(root.Width - 1),
		BottomEndX: uint(root.Width - 1),
	}
}

// insetByStruts shrinks mon by the parts of each strut that overlap it.
// It reports false when no strut touches the monitor.
func insetByStruts(mon Rect, root Rect, struts []ewmh.WmStrutPartial) (Rect, bool) {
	var left, right, top, bottom int
	for _, sp := range struts {
		if sp.Top > 0 {
			band := Rect{X: int(sp.TopStartX), Y: 0, Width: int(sp.TopEndX) - int(sp.TopStartX) + 1, Height: int(sp.Top)}
			top = max(top, mon.Intersect(band).Height)
		}
		if sp.Bottom > 0 {
			band := Rect{X: int(sp.BottomStartX), Y: root.Height - int(sp.Bottom), Width: int(sp.BottomEndX) - int(sp.BottomStartX) + 1, Height: int(sp.Bottom)}
			bottom = max(bottom, mon.Intersect(band).Height)
		}
		if sp.Left > 0 {
			band := Rect{X: 0, Y: int(sp.LeftStartY), Width: int(sp.Left), Height: int(sp.LeftEndY) - int(sp.LeftStartY) + 1}
			left = max(left, mon.Intersect(band).Width)
		}
		if sp.Right > 0 {
			band := Rect{X: root.Width - int(sp.Right), Y: int(sp.RightStartY), Width: int(sp.Right), Height: int(sp.RightEndY) - int(sp.RightStartY) + 1}
			right = max(right, mon.Intersect(band).Width)
		}
	}
	if left == 0 && right == 0 && top == 0 && bottom == 0 {
		return mon, false
	}

	out := Rect{
		X:      mon.X + left,
		Y:      mon.Y + top,
		Width:  max(mon.Width-left-right, 1),
		Height: max(mon.Height-top-bottom, 1),
	}
	return out, true
}

// clipToWorkarea narrows mon to the work area when they overlap.
func clipToWorkarea(mon, wa Rect) Rect {
	if isect := mon.Intersect(wa); !isect.Empty() {
		return isect
	}
	return mon
}
