package icons

import "github.com/1broseidon/webdesk/internal/geom"

// IsOccupied reports whether any icon other than excludeID sits within
// half a cell of p.
func (g Grid) IsOccupied(p geom.Point, excludeID string, positions map[string]geom.Point) bool {
	limit := g.Spec.CellSize / 2
	for id, q := range positions {
		if id == excludeID {
			continue
		}
		if p.Distance(q) < limit {
			return true
		}
	}
	return false
}

// FindNearestAvailable snaps p and, if that cell is taken, walks
// Chebyshev rings of increasing radius around it, visiting only each
// ring's perimeter row by row. The first free in-bounds cell wins. When
// every ring up to SearchRadius is full the snapped point is returned and
// the overlap is accepted.
func (g Grid) FindNearestAvailable(p geom.Point, excludeID string, positions map[string]geom.Point) geom.Point {
	snapped := g.Snap(p)
	if !g.IsOccupied(snapped, excludeID, positions) {
		return snapped
	}

	bounds := g.Bounds()
	cell := g.Spec.CellSize
	for r := 1; r <= g.SearchRadius; r++ {
		for dy := -r; dy <= r; dy++ {
			for dx := -r; dx <= r; dx++ {
				if max(abs(dx), abs(dy)) != r {
					continue
				}
				candidate := geom.Point{
					X: snapped.X + float64(dx)*cell,
					Y: snapped.Y + float64(dy)*cell,
				}
				if !bounds.Contains(candidate) {
					continue
				}
				if !g.IsOccupied(candidate, excludeID, positions) {
					return candidate
				}
			}
		}
	}
	return snapped
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
