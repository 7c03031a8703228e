// Package icons places desktop icons on a device-dependent grid, resolves
// collisions between them and persists the positions users drag them to.
package icons

import (
	"math"

	"github.com/1broseidon/webdesk/internal/geom"
	"github.com/1broseidon/webdesk/internal/viewport"
)

// DefaultSearchRadius is how many Chebyshev rings FindNearestAvailable
// walks before accepting an overlap.
const DefaultSearchRadius = 10

// GridSpec holds the constants of one device class.
type GridSpec struct {
	CellSize    float64 `yaml:"cell_size" json:"cell_size"`
	IconWidth   float64 `yaml:"icon_width" json:"icon_width"`
	IconHeight  float64 `yaml:"icon_height" json:"icon_height"`
	Origin      float64 `yaml:"origin" json:"origin"`
	Reservation float64 `yaml:"reservation" json:"reservation"`
}

var (
	// NormalGrid is used at or above the compact breakpoint.
	NormalGrid = GridSpec{CellSize: 100, IconWidth: 80, IconHeight: 100, Origin: 20, Reservation: 56}
	// CompactGrid is used below the compact breakpoint.
	CompactGrid = GridSpec{CellSize: 72, IconWidth: 64, IconHeight: 88, Origin: 8, Reservation: 120}
)

// Specs selects between the two device classes.
type Specs struct {
	Normal       GridSpec
	Compact      GridSpec
	Breakpoint   float64
	SearchRadius int
}

// DefaultSpecs returns the stock grid constants.
func DefaultSpecs() Specs {
	return Specs{
		Normal:       NormalGrid,
		Compact:      CompactGrid,
		Breakpoint:   viewport.CompactBreakpoint,
		SearchRadius: DefaultSearchRadius,
	}
}

// Grid is a GridSpec bound to a concrete viewport.
type Grid struct {
	Spec         GridSpec
	Viewport     geom.Size
	Compact      bool
	SearchRadius int
}

// GridFor picks the device class for size.
func GridFor(size geom.Size, specs Specs) Grid {
	g := Grid{
		Spec:         specs.Normal,
		Viewport:     size,
		SearchRadius: specs.SearchRadius,
	}
	stock := NormalGrid
	if viewport.IsCompact(size, specs.Breakpoint) {
		g.Spec = specs.Compact
		g.Compact = true
		stock = CompactGrid
	}
	g.Spec = g.Spec.withDefaults(stock)
	if g.SearchRadius <= 0 {
		g.SearchRadius = DefaultSearchRadius
	}
	return g
}

// withDefaults returns stock for an unset spec. Otherwise only the sizes,
// which must be positive, are filled in; a zero origin or reservation is
// kept as given.
func (s GridSpec) withDefaults(stock GridSpec) GridSpec {
	if s == (GridSpec{}) {
		return stock
	}
	if s.CellSize <= 0 {
		s.CellSize = stock.CellSize
	}
	if s.IconWidth <= 0 {
		s.IconWidth = stock.IconWidth
	}
	if s.IconHeight <= 0 {
		s.IconHeight = stock.IconHeight
	}
	return s
}

// Origin is the top-left anchor of the grid.
func (g Grid) Origin() geom.Point {
	return geom.Point{X: g.Spec.Origin, Y: g.Spec.Origin}
}

// PerRow is the number of icons that fit on one row, never less than one.
func (g Grid) PerRow() int {
	n := int(math.Floor((g.Viewport.Width - 2*g.Spec.Origin) / g.Spec.CellSize))
	if n < 1 {
		return 1
	}
	return n
}

// DefaultPosition is the row-major slot for the icon at index.
func (g Grid) DefaultPosition(index int) geom.Point {
	if index < 0 {
		index = 0
	}
	perRow := g.PerRow()
	row, col := index/perRow, index%perRow
	return geom.Point{
		X: g.Spec.Origin + float64(col)*g.Spec.CellSize,
		Y: g.Spec.Origin + float64(row)*g.Spec.CellSize,
	}
}

// Bounds is the inclusive range an icon's top-left corner may occupy.
type Bounds struct {
	Min geom.Point
	Max geom.Point
}

// Contains reports whether p lies inside b.
func (b Bounds) Contains(p geom.Point) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X && p.Y >= b.Min.Y && p.Y <= b.Max.Y
}

// Clamp bounds each axis independently. On a viewport too small for a
// single icon the minimum wins.
func (b Bounds) Clamp(p geom.Point) geom.Point {
	return geom.Point{
		X: geom.Clamp(p.X, b.Min.X, b.Max.X),
		Y: geom.Clamp(p.Y, b.Min.Y, b.Max.Y),
	}
}

// Bounds returns the placement range: from the origin to the viewport
// edge minus the icon footprint, with the bottom reservation removed.
func (g Grid) Bounds() Bounds {
	avail := viewport.Available(g.Viewport, g.Spec.Reservation)
	return Bounds{
		Min: g.Origin(),
		Max: geom.Point{
			X: avail.Width - g.Spec.IconWidth,
			Y: avail.Height - g.Spec.IconHeight,
		},
	}
}

// Snap moves p to the nearest grid intersection, then clamps it into
// Bounds.
func (g Grid) Snap(p geom.Point) geom.Point {
	cell := g.Spec.CellSize
	o := g.Spec.Origin
	snapped := geom.Point{
		X: o + geom.RoundHalfUp((p.X-o)/cell)*cell,
		Y: o + geom.RoundHalfUp((p.Y-o)/cell)*cell,
	}
	return g.Bounds().Clamp(snapped)
}
