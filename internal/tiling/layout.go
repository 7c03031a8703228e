package tiling

import (
	"fmt"
	"math"
	"strings"

	"github.com/1broseidon/webdesk/internal/geom"
)

// CalculateGrid determines the grid dimensions for the given number of windows
func CalculateGrid(numWindows int) (rows, cols int) {
	if numWindows <= 0 {
		return 0, 0
	}

	// Columns first (ceiling of square root), then enough rows to fit.
	cols = int(math.Ceil(math.Sqrt(float64(numWindows))))
	rows = int(math.Ceil(float64(numWindows) / float64(cols)))

	return rows, cols
}

// CalculatePositions computes window rects for a grid layout with gaps.
// The last row stretches its windows to fill the full width when it is
// not complete.
func CalculatePositions(numWindows int, area geom.Rect, gap float64) ([]geom.Rect, error) {
	if numWindows <= 0 {
		return nil, nil
	}
	if gap < 0 {
		gap = 0
	}

	rows, cols := CalculateGrid(numWindows)

	// Gaps: one before each column/row and one after the last.
	cellWidth := (area.Width - float64(cols+1)*gap) / float64(cols)
	cellHeight := (area.Height - float64(rows+1)*gap) / float64(rows)
	if cellWidth <= 0 || cellHeight <= 0 {
		return nil, fmt.Errorf(
			"insufficient space for %d windows: area=%.0fx%.0f rows=%d cols=%d gap=%.0f",
			numWindows, area.Width, area.Height, rows, cols, gap,
		)
	}

	lastRow := rows - 1
	inLastRow := numWindows - lastRow*cols
	lastRowWidth := cellWidth
	if inLastRow < cols {
		lastRowWidth = (area.Width - float64(inLastRow+1)*gap) / float64(inLastRow)
	}

	positions := make([]geom.Rect, numWindows)
	for i := 0; i < numWindows; i++ {
		row := i / cols
		col := i % cols

		w := cellWidth
		if row == lastRow {
			w = lastRowWidth
		}

		positions[i] = geom.Rect{
			X:      area.X + gap + float64(col)*(w+gap),
			Y:      area.Y + gap + float64(row)*(cellHeight+gap),
			Width:  w,
			Height: cellHeight,
		}
	}

	return positions, nil
}

// Region names a snap target inside the usable area.
type Region string

const (
	RegionFull        Region = "full"
	RegionLeftHalf    Region = "left-half"
	RegionRightHalf   Region = "right-half"
	RegionTopHalf     Region = "top-half"
	RegionBottomHalf  Region = "bottom-half"
	RegionTopLeft     Region = "top-left"
	RegionTopRight    Region = "top-right"
	RegionBottomLeft  Region = "bottom-left"
	RegionBottomRight Region = "bottom-right"
)

// Regions lists every supported snap region.
func Regions() []Region {
	return []Region{
		RegionFull,
		RegionLeftHalf, RegionRightHalf, RegionTopHalf, RegionBottomHalf,
		RegionTopLeft, RegionTopRight, RegionBottomLeft, RegionBottomRight,
	}
}

// ParseRegion validates a region name.
func ParseRegion(s string) (Region, error) {
	name := Region(strings.ToLower(strings.TrimSpace(s)))
	for _, r := range Regions() {
		if r == name {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown snap region %q", s)
}

// ApplyRegion returns the sub-rectangle of area covered by region.
func ApplyRegion(area geom.Rect, region Region) geom.Rect {
	halfW := area.Width / 2
	halfH := area.Height / 2
	adjusted := area

	switch region {
	case RegionLeftHalf:
		adjusted.Width = halfW
	case RegionRightHalf:
		adjusted.X += halfW
		adjusted.Width = halfW
	case RegionTopHalf:
		adjusted.Height = halfH
	case RegionBottomHalf:
		adjusted.Y += halfH
		adjusted.Height = halfH
	case RegionTopLeft:
		adjusted.Width, adjusted.Height = halfW, halfH
	case RegionTopRight:
		adjusted.X += halfW
		adjusted.Width, adjusted.Height = halfW, halfH
	case RegionBottomLeft:
		adjusted.Y += halfH
		adjusted.Width, adjusted.Height = halfW, halfH
	case RegionBottomRight:
		adjusted.X += halfW
		adjusted.Y += halfH
		adjusted.Width, adjusted.Height = halfW, halfH
	}

	if adjusted.Width < 1 {
		adjusted.Width = 1
	}
	if adjusted.Height < 1 {
		adjusted.Height = 1
	}
	return adjusted
}
