package icons

import (
	"testing"

	"github.com/1broseidon/webdesk/internal/geom"
)

func normalGrid() Grid {
	return GridFor(geom.Size{Width: 1024, Height: 768}, DefaultSpecs())
}

func TestGridFor_SelectsDeviceClass(t *testing.T) {
	tests := []struct {
		name        string
		size        geom.Size
		wantCompact bool
		wantCell    float64
	}{
		{name: "desktop", size: geom.Size{Width: 1024, Height: 768}, wantCell: 100},
		{name: "breakpoint is normal", size: geom.Size{Width: 768, Height: 1024}, wantCell: 100},
		{name: "phone", size: geom.Size{Width: 390, Height: 844}, wantCompact: true, wantCell: 72},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := GridFor(tt.size, DefaultSpecs())
			if g.Compact != tt.wantCompact {
				t.Fatalf("Compact = %v, want %v", g.Compact, tt.wantCompact)
			}
			if g.Spec.CellSize != tt.wantCell {
				t.Fatalf("CellSize = %v, want %v", g.Spec.CellSize, tt.wantCell)
			}
		})
	}
}

func TestDefaultPosition(t *testing.T) {
	g := normalGrid()
	if got := g.PerRow(); got != 9 {
		t.Fatalf("PerRow = %d, want 9", got)
	}

	tests := []struct {
		index int
		want  geom.Point
	}{
		{index: 0, want: geom.Point{X: 20, Y: 20}},
		{index: 1, want: geom.Point{X: 120, Y: 20}},
		{index: 8, want: geom.Point{X: 820, Y: 20}},
		{index: 9, want: geom.Point{X: 20, Y: 120}},
		{index: 19, want: geom.Point{X: 120, Y: 220}},
	}
	for _, tt := range tests {
		if got := g.DefaultPosition(tt.index); got != tt.want {
			t.Errorf("DefaultPosition(%d) = %v, want %v", tt.index, got, tt.want)
		}
	}
}

func TestDefaultPosition_Compact(t *testing.T) {
	g := GridFor(geom.Size{Width: 600, Height: 800}, DefaultSpecs())
	// floor((600-16)/72) = 8
	if got := g.DefaultPosition(8); got != (geom.Point{X: 8, Y: 80}) {
		t.Fatalf("DefaultPosition(8) = %v, want (8,80)", got)
	}
}

func TestPerRow_NeverZero(t *testing.T) {
	g := GridFor(geom.Size{Width: 50, Height: 400}, DefaultSpecs())
	if got := g.PerRow(); got != 1 {
		t.Fatalf("PerRow = %d, want 1", got)
	}
	if got := g.DefaultPosition(2); got != (geom.Point{X: 8, Y: 152}) {
		t.Fatalf("DefaultPosition(2) = %v, want (8,152)", got)
	}
}

func TestSnap(t *testing.T) {
	g := normalGrid()
	tests := []struct {
		name string
		in   geom.Point
		want geom.Point
	}{
		{name: "on grid", in: geom.Point{X: 120, Y: 220}, want: geom.Point{X: 120, Y: 220}},
		{name: "nearest cell", in: geom.Point{X: 173, Y: 71}, want: geom.Point{X: 220, Y: 120}},
		{name: "half rounds up", in: geom.Point{X: 70, Y: 70}, want: geom.Point{X: 120, Y: 120}},
		{name: "clamped to origin", in: geom.Point{X: -50, Y: -50}, want: geom.Point{X: 20, Y: 20}},
		// max x = 1024-80, max y = 768-56-100
		{name: "clamped to far edge", in: geom.Point{X: 2000, Y: 2000}, want: geom.Point{X: 944, Y: 612}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := g.Snap(tt.in); got != tt.want {
				t.Fatalf("Snap(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestBounds_Clamp(t *testing.T) {
	b := Bounds{Min: geom.Point{X: 20, Y: 20}, Max: geom.Point{X: 10, Y: 100}}
	if got := b.Clamp(geom.Point{X: 50, Y: 50}); got != (geom.Point{X: 20, Y: 50}) {
		t.Fatalf("Clamp = %v, want (20,50)", got)
	}
}

func TestGridFor_ZeroSpecsTakeStockConstants(t *testing.T) {
	g := GridFor(geom.Size{Width: 1024, Height: 768}, Specs{})
	if g.Spec != NormalGrid {
		t.Fatalf("Spec = %+v, want %+v", g.Spec, NormalGrid)
	}
	if got := g.DefaultPosition(1); got != (geom.Point{X: 120, Y: 20}) {
		t.Fatalf("DefaultPosition(1) = %v, want (120,20)", got)
	}

	compact := GridFor(geom.Size{Width: 390, Height: 844}, Specs{})
	if compact.Spec != CompactGrid {
		t.Fatalf("compact Spec = %+v, want %+v", compact.Spec, CompactGrid)
	}
}

func TestGridFor_PartialSpecKeepsZeroOrigin(t *testing.T) {
	specs := DefaultSpecs()
	specs.Normal = GridSpec{CellSize: 50}
	g := GridFor(geom.Size{Width: 1024, Height: 768}, specs)
	want := GridSpec{CellSize: 50, IconWidth: NormalGrid.IconWidth, IconHeight: NormalGrid.IconHeight}
	if g.Spec != want {
		t.Fatalf("Spec = %+v, want %+v", g.Spec, want)
	}
}
