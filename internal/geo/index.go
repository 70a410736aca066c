package geo

import (
	"math"
	"sort"

	"github.com/bognix/dymek-api/pkg/util"
)

// earthRadiusMeters is the WGS84 semi-major axis.
const earthRadiusMeters = 6378137.0

// DefaultCellPrecision is the partition granularity for stored records.
// Five characters gives cells of roughly 5 km, the neighborhood scale this
// service queries at; finer precision increases radius-query fan-out,
// coarser degrades selectivity.
const DefaultCellPrecision = 5

// DefaultMaxCoveringCells bounds the fan-out of a single radius query. At
// the default precision that allows radii of roughly 100 km; beyond it the
// query is rejected rather than enumerated.
const DefaultMaxCoveringCells = 512

// Index maps coordinates onto hash-range partitions and computes the cell
// sets radius queries have to visit.
type Index struct {
	precision         int
	fallbackNeighbors bool
	maxCells          int
}

// NewIndex builds an index at the given cell precision. When
// fallbackNeighbors is set, covering-cell searches always include the full
// 3x3 neighborhood of the center cell, so a query circle straddling a grid
// boundary never loses a cell. maxCells caps covering-cell enumeration;
// zero or negative applies DefaultMaxCoveringCells.
func NewIndex(precision int, fallbackNeighbors bool, maxCells int) *Index {
	if precision <= 0 {
		precision = DefaultCellPrecision
	}
	if precision > MaxPrecision {
		precision = MaxPrecision
	}
	if maxCells <= 0 {
		maxCells = DefaultMaxCoveringCells
	}
	return &Index{precision: precision, fallbackNeighbors: fallbackNeighbors, maxCells: maxCells}
}

// CellPrecision returns the partition hash length.
func (ix *Index) CellPrecision() int {
	return ix.precision
}

// Cell returns the partition cell for a coordinate pair.
func (ix *Index) Cell(lat, lon float64) (string, error) {
	if err := Validate(lat, lon); err != nil {
		return "", err
	}
	return Encode(lat, lon, ix.precision), nil
}

// FullHash returns the full-precision geohash stored with each record.
func (ix *Index) FullHash(lat, lon float64) (string, error) {
	if err := Validate(lat, lon); err != nil {
		return "", err
	}
	return Encode(lat, lon, MaxPrecision), nil
}

// CellOf truncates a stored full-precision hash down to the partition cell.
func (ix *Index) CellOf(hash string) string {
	if len(hash) <= ix.precision {
		return hash
	}
	return hash[:ix.precision]
}

// CoveringCells computes the set of partition cells whose bounding boxes may
// intersect the query circle, expanding outward from the center cell until a
// whole ring falls outside the radius. The result is a superset of the cells
// containing matching points, never a subset; the caller applies
// IsWithinRadius as the exact filter. Cells are returned sorted for
// deterministic fan-out.
func (ix *Index) CoveringCells(lat, lon, radiusMeters float64) ([]string, error) {
	if err := Validate(lat, lon); err != nil {
		return nil, err
	}
	if math.IsNaN(radiusMeters) || math.IsInf(radiusMeters, 0) || radiusMeters < 0 {
		return nil, util.NewValidationError("radius must be a finite non-negative number", map[string]any{
			"radiusMeters": radiusMeters,
		})
	}

	center := Encode(lat, lon, ix.precision)
	included := map[string]bool{center: true}
	rejected := map[string]bool{}

	frontier := []string{center}
	if ix.fallbackNeighbors {
		frontier = AllNeighbors(center)
		for _, h := range frontier {
			included[h] = true
		}
	}

	for len(frontier) > 0 {
		var next []string
		for _, h := range frontier {
			for _, n := range AllNeighbors(h)[1:] {
				if included[n] || rejected[n] {
					continue
				}
				if cellWithinRadius(n, lat, lon, radiusMeters) {
					included[n] = true
					if len(included) > ix.maxCells {
						return nil, util.NewValidationError("radius too large for this cell precision", map[string]any{
							"radiusMeters": radiusMeters,
							"maxCells":     ix.maxCells,
						})
					}
					next = append(next, n)
				} else {
					rejected[n] = true
				}
			}
		}
		frontier = next
	}

	cells := make([]string, 0, len(included))
	for h := range included {
		cells = append(cells, h)
	}
	sort.Strings(cells)
	return cells, nil
}

// cellWithinRadius reports whether any point of the cell's bounding box lies
// within radiusMeters of the center. The nearest box point is found by
// clamping; both longitude edges are also probed so cells reached across the
// antimeridian are not lost.
func cellWithinRadius(hash string, lat, lon, radiusMeters float64) bool {
	b := BoundsOf(hash)
	nearestLat := clamp(lat, b.MinLat, b.MaxLat)
	candidates := [][2]float64{
		{nearestLat, clamp(lon, b.MinLon, b.MaxLon)},
		{nearestLat, b.MinLon},
		{nearestLat, b.MaxLon},
	}
	for _, c := range candidates {
		if HaversineMeters(lat, lon, c[0], c[1]) <= radiusMeters {
			return true
		}
	}
	return false
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// HaversineMeters returns the great-circle distance between two points.
func HaversineMeters(lat1, lon1, lat2, lon2 float64) float64 {
	rLat1 := degreesToRadians(lat1)
	rLat2 := degreesToRadians(lat2)
	dLat := degreesToRadians(lat2 - lat1)
	dLon := degreesToRadians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rLat1)*math.Cos(rLat2)*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c
}

// IsWithinRadius is the exact distance check applied after cell
// pre-selection.
func IsWithinRadius(lat, lon, centerLat, centerLon, radiusMeters float64) bool {
	return HaversineMeters(lat, lon, centerLat, centerLon) <= radiusMeters
}

func degreesToRadians(d float64) float64 {
	return d * math.Pi / 180.0
}
