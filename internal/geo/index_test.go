package geo

import (
	"math"
	"testing"

	"github.com/bognix/dymek-api/pkg/util"
)

func TestIsWithinRadius(t *testing.T) {
	// Zero distance from itself.
	if !IsWithinRadius(52.2297, 21.0122, 52.2297, 21.0122, 0) {
		t.Error("point should be within zero radius of itself")
	}

	// Warsaw Old Town to Palace of Culture is roughly 2.3 km.
	if !IsWithinRadius(52.2497, 21.0122, 52.2297, 21.0122, 3000) {
		t.Error("expected points within 3 km")
	}
	if IsWithinRadius(52.2497, 21.0122, 52.2297, 21.0122, 1000) {
		t.Error("expected points further than 1 km apart")
	}
}

func TestHaversineMeters(t *testing.T) {
	// One degree of latitude is about 111 km.
	d := HaversineMeters(52.0, 21.0, 53.0, 21.0)
	if math.Abs(d-111000) > 1500 {
		t.Errorf("one degree of latitude = %v m, want ~111000", d)
	}

	if d := HaversineMeters(52.2297, 21.0122, 52.2297, 21.0122); d != 0 {
		t.Errorf("distance to self = %v, want 0", d)
	}
}

func TestCoveringCellsIncludesNeighborhood(t *testing.T) {
	index := NewIndex(5, true, 0)

	cells, err := index.CoveringCells(52.2297, 21.0122, 10)
	if err != nil {
		t.Fatalf("CoveringCells: %v", err)
	}

	// Even a tiny radius keeps the full 3x3 neighborhood so a circle on a
	// cell boundary loses nothing.
	want := AllNeighbors(Encode(52.2297, 21.0122, 5))
	got := map[string]bool{}
	for _, cell := range cells {
		got[cell] = true
	}
	for _, cell := range want {
		if !got[cell] {
			t.Errorf("cell %q missing from covering set", cell)
		}
	}
}

// Superset property: every point within the radius must land in a covering
// cell. False positives are fine, false negatives are a bug.
func TestCoveringCellsSuperset(t *testing.T) {
	index := NewIndex(5, true, 0)
	centerLat, centerLon := 52.2297, 21.0122
	radius := 25000.0

	cells, err := index.CoveringCells(centerLat, centerLon, radius)
	if err != nil {
		t.Fatalf("CoveringCells: %v", err)
	}
	covered := map[string]bool{}
	for _, cell := range cells {
		covered[cell] = true
	}

	for dLat := -0.4; dLat <= 0.4; dLat += 0.02 {
		for dLon := -0.6; dLon <= 0.6; dLon += 0.03 {
			lat := centerLat + dLat
			lon := centerLon + dLon
			if !IsWithinRadius(lat, lon, centerLat, centerLon, radius) {
				continue
			}
			cell := Encode(lat, lon, 5)
			if !covered[cell] {
				t.Fatalf("point (%v, %v) within radius but its cell %q is not covered", lat, lon, cell)
			}
		}
	}
}

func TestCoveringCellsCapsFanOut(t *testing.T) {
	index := NewIndex(5, true, 64)

	// A country-scale radius would enumerate thousands of cells; reject it
	// instead of walking them all.
	if _, err := index.CoveringCells(52.2297, 21.0122, 500000); !util.IsValidation(err) {
		t.Errorf("oversized radius: got %v, want validation error", err)
	}

	// A neighborhood-scale radius stays within the cap.
	if _, err := index.CoveringCells(52.2297, 21.0122, 5000); err != nil {
		t.Errorf("5 km radius: %v", err)
	}
}

func TestCoveringCellsRejectsBadInput(t *testing.T) {
	index := NewIndex(5, true, 0)

	if _, err := index.CoveringCells(91, 0, 100); !util.IsValidation(err) {
		t.Errorf("out-of-range latitude: got %v, want validation error", err)
	}
	if _, err := index.CoveringCells(52, 21, -1); !util.IsValidation(err) {
		t.Errorf("negative radius: got %v, want validation error", err)
	}
	if _, err := index.CoveringCells(52, 21, math.NaN()); !util.IsValidation(err) {
		t.Errorf("NaN radius: got %v, want validation error", err)
	}
}

func TestIndexCellPrecision(t *testing.T) {
	index := NewIndex(0, false, 0)
	if index.CellPrecision() != DefaultCellPrecision {
		t.Errorf("default precision = %d, want %d", index.CellPrecision(), DefaultCellPrecision)
	}

	cell, err := index.Cell(52.2297, 21.0122)
	if err != nil {
		t.Fatalf("Cell: %v", err)
	}
	if cell != "u3qcn" {
		t.Errorf("Cell = %q, want u3qcn", cell)
	}

	full, err := index.FullHash(52.2297, 21.0122)
	if err != nil {
		t.Fatalf("FullHash: %v", err)
	}
	if len(full) != MaxPrecision {
		t.Errorf("FullHash length = %d, want %d", len(full), MaxPrecision)
	}
	if index.CellOf(full) != cell {
		t.Errorf("CellOf(%q) = %q, want %q", full, index.CellOf(full), cell)
	}
}
