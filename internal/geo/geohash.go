// Package geo implements geohash encoding and covering-cell search for
// radius queries over reported markers. Cell selection is a coarse filter:
// it may return cells containing no matching point, but a point within the
// query radius is always inside one of the returned cells.
package geo

import (
	"math"
	"strings"

	"github.com/bognix/dymek-api/pkg/util"
)

const (
	// base32 is the geohash alphabet; 'a', 'i', 'l' and 'o' are excluded.
	base32 = "0123456789bcdefghjkmnpqrstuvwxyz"

	// MaxPrecision is the finest geohash length stored with each record.
	MaxPrecision = 12
)

// Lookup tables for neighbor calculation, indexed by hash length parity
// (index 0 for even-length hashes, 1 for odd). The last character of an
// odd-length hash encodes longitude bits first, which flips the tables.
var (
	neighborTable = map[byte][2]string{
		'n': {"p0r21436x8zb9dcf5h7kjnmqesgutwvy", "bc01fg45238967deuvhjyznpkmstqrwx"},
		's': {"14365h7k9dcfesgujnmqp0r2twvyx8zb", "238967debc01fg45kmstqrwxuvhjyznp"},
		'e': {"bc01fg45238967deuvhjyznpkmstqrwx", "p0r21436x8zb9dcf5h7kjnmqesgutwvy"},
		'w': {"238967debc01fg45kmstqrwxuvhjyznp", "14365h7k9dcfesgujnmqp0r2twvyx8zb"},
	}
	borderTable = map[byte][2]string{
		'n': {"prxz", "bcfguvyz"},
		's': {"028b", "0145hjnp"},
		'e': {"bcfguvyz", "prxz"},
		'w': {"0145hjnp", "028b"},
	}
)

// Validate rejects coordinates that are NaN, infinite or out of range.
// Invalid input always fails fast; coordinates are never clamped.
func Validate(lat, lon float64) error {
	if math.IsNaN(lat) || math.IsInf(lat, 0) || math.IsNaN(lon) || math.IsInf(lon, 0) {
		return util.NewValidationError("latitude and longitude must be finite numbers", map[string]any{
			"latitude": lat, "longitude": lon,
		})
	}
	if lat < -90 || lat > 90 {
		return util.NewValidationError("latitude out of range [-90, 90]", map[string]any{"latitude": lat})
	}
	if lon < -180 || lon > 180 {
		return util.NewValidationError("longitude out of range [-180, 180]", map[string]any{"longitude": lon})
	}
	return nil
}

// Encode converts a coordinate pair to a geohash of the given precision by
// interleaving longitude and latitude range bisections, longitude first,
// emitting one base32 character per five bits.
func Encode(lat, lon float64, precision int) string {
	if precision <= 0 {
		precision = 5
	}
	if precision > MaxPrecision {
		precision = MaxPrecision
	}

	minLat, maxLat := -90.0, 90.0
	minLon, maxLon := -180.0, 180.0

	var hash strings.Builder
	isEven := true
	bit := 0
	ch := 0

	for hash.Len() < precision {
		if isEven {
			mid := (minLon + maxLon) / 2
			if lon >= mid {
				ch |= 1 << (4 - bit)
				minLon = mid
			} else {
				maxLon = mid
			}
		} else {
			mid := (minLat + maxLat) / 2
			if lat >= mid {
				ch |= 1 << (4 - bit)
				minLat = mid
			} else {
				maxLat = mid
			}
		}
		isEven = !isEven
		bit++
		if bit == 5 {
			hash.WriteByte(base32[ch])
			bit = 0
			ch = 0
		}
	}

	return hash.String()
}

// Bounds is the bounding box of a geohash cell.
type Bounds struct {
	MinLat, MaxLat float64
	MinLon, MaxLon float64
}

// Center returns the midpoint of the box.
func (b Bounds) Center() (lat, lon float64) {
	return (b.MinLat + b.MaxLat) / 2, (b.MinLon + b.MaxLon) / 2
}

// BoundsOf replays the binary subdivision of a hash and returns the cell's
// bounding box. Unknown characters are skipped.
func BoundsOf(hash string) Bounds {
	b := Bounds{MinLat: -90, MaxLat: 90, MinLon: -180, MaxLon: 180}
	isEven := true

	for i := 0; i < len(hash); i++ {
		cd := strings.IndexByte(base32, hash[i])
		if cd < 0 {
			continue
		}
		for j := 4; j >= 0; j-- {
			bit := (cd >> j) & 1
			if isEven {
				mid := (b.MinLon + b.MaxLon) / 2
				if bit == 1 {
					b.MinLon = mid
				} else {
					b.MaxLon = mid
				}
			} else {
				mid := (b.MinLat + b.MaxLat) / 2
				if bit == 1 {
					b.MinLat = mid
				} else {
					b.MaxLat = mid
				}
			}
			isEven = !isEven
		}
	}
	return b
}

// Decode returns the center of the cell encoded by hash.
func Decode(hash string) (lat, lon float64) {
	return BoundsOf(hash).Center()
}

// Neighbor returns the adjacent cell in direction 'n', 's', 'e' or 'w',
// recursing into the parent hash when the last character sits on the border
// of its parent cell.
func Neighbor(hash string, direction byte) string {
	if len(hash) == 0 {
		return ""
	}

	hash = strings.ToLower(hash)
	lastChar := hash[len(hash)-1]
	parent := hash[:len(hash)-1]
	parity := len(hash) % 2

	if strings.IndexByte(borderTable[direction][parity], lastChar) >= 0 && len(parent) > 0 {
		parent = Neighbor(parent, direction)
	}

	idx := strings.IndexByte(neighborTable[direction][parity], lastChar)
	if idx < 0 {
		return hash
	}
	return parent + string(base32[idx])
}

// AllNeighbors returns the cell itself plus its 8 surrounding cells.
func AllNeighbors(hash string) []string {
	north := Neighbor(hash, 'n')
	south := Neighbor(hash, 's')
	return []string{
		hash,
		north,
		south,
		Neighbor(hash, 'e'),
		Neighbor(hash, 'w'),
		Neighbor(north, 'e'),
		Neighbor(north, 'w'),
		Neighbor(south, 'e'),
		Neighbor(south, 'w'),
	}
}
