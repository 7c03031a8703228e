package tui

import (
	"math"
	"sort"
	"strings"

	"github.com/1broseidon/webdesk/internal/geom"
	"github.com/1broseidon/webdesk/internal/icons"
	"github.com/1broseidon/webdesk/internal/viewport"
	"github.com/1broseidon/webdesk/internal/windows"
)

// canvas is a fixed grid of terminal cells.
type canvas struct {
	w, h  int
	cells [][]rune
}

func newCanvas(w, h int) *canvas {
	c := &canvas{w: w, h: h, cells: make([][]rune, h)}
	for y := range c.cells {
		c.cells[y] = []rune(strings.Repeat(" ", w))
	}
	return c
}

func (c *canvas) set(x, y int, r rune) {
	if x < 0 || y < 0 || x >= c.w || y >= c.h {
		return
	}
	c.cells[y][x] = r
}

func (c *canvas) text(x, y int, s string, maxLen int) {
	for i, r := range []rune(s) {
		if i >= maxLen {
			return
		}
		c.set(x+i, y, r)
	}
}

// box draws an outlined rectangle with inclusive corners and clears its
// interior.
func (c *canvas) box(x0, y0, x1, y1 int, label string) {
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			switch {
			case (y == y0 || y == y1) && (x == x0 || x == x1):
				c.set(x, y, '+')
			case y == y0 || y == y1:
				c.set(x, y, '-')
			case x == x0 || x == x1:
				c.set(x, y, '|')
			default:
				c.set(x, y, ' ')
			}
		}
	}
	if x1-x0 > 2 {
		c.text(x0+1, y0, label, x1-x0-1)
	}
}

func (c *canvas) String() string {
	lines := make([]string, c.h)
	for y, row := range c.cells {
		lines[y] = string(row)
	}
	return strings.Join(lines, "\n")
}

var kindGlyph = map[icons.Kind]rune{
	icons.KindApplication: '@',
	icons.KindFile:        '~',
	icons.KindFolder:      '#',
}

// windowRect resolves a window's geometry against the area above the
// taskbar. Full dimensions take the whole area.
func windowRect(w windows.Window, avail geom.Size) geom.Rect {
	return geom.Rect{
		X:      w.Geometry.X,
		Y:      w.Geometry.Y,
		Width:  w.Geometry.Width.Resolve(avail.Width),
		Height: w.Geometry.Height.Resolve(avail.Height),
	}
}

// renderDesktop draws a cols×rows miniature of the desktop: icons first,
// then on-screen windows from the bottom of the stack up, then the
// taskbar.
func renderDesktop(size geom.Size, ws []windows.Window, ics []icons.Icon, cols, rows int) string {
	if cols <= 0 || rows <= 0 {
		return ""
	}
	c := newCanvas(cols, rows)
	if size.Width <= 0 || size.Height <= 0 {
		return c.String()
	}
	col := func(x float64) int { return int(math.Floor(x * float64(cols) / size.Width)) }
	row := func(y float64) int { return int(math.Floor(y * float64(rows) / size.Height)) }

	for _, ic := range ics {
		glyph, ok := kindGlyph[ic.Kind]
		if !ok {
			glyph = '*'
		}
		c.set(col(ic.Position.X), row(ic.Position.Y), glyph)
	}

	stack := make([]windows.Window, 0, len(ws))
	for _, w := range ws {
		if w.Visible && !w.Minimized {
			stack = append(stack, w)
		}
	}
	sort.SliceStable(stack, func(i, j int) bool { return stack[i].ZIndex < stack[j].ZIndex })

	avail := viewport.Available(size, viewport.TaskbarHeight)
	for _, w := range stack {
		r := windowRect(w, avail)
		x0, y0 := col(r.X), row(r.Y)
		x1 := max(col(r.X+r.Width)-1, x0+1)
		y1 := max(row(r.Y+r.Height)-1, y0+1)
		label := w.Title
		if label == "" {
			label = w.ID
		}
		c.box(x0, y0, x1, y1, label)
	}

	for y := row(avail.Height); y < rows; y++ {
		for x := 0; x < cols; x++ {
			c.set(x, y, '=')
		}
	}
	return c.String()
}
