package geo

import (
	"math"
	"testing"
)

func TestEncode(t *testing.T) {
	tests := []struct {
		name      string
		lat       float64
		lon       float64
		precision int
		want      string
	}{
		{
			name:      "Warsaw",
			lat:       52.2297,
			lon:       21.0122,
			precision: 5,
			want:      "u3qcn",
		},
		{
			name:      "San Francisco",
			lat:       37.7749,
			lon:       -122.4194,
			precision: 6,
			want:      "9q8yyk",
		},
		{
			name:      "London",
			lat:       51.5074,
			lon:       -0.1278,
			precision: 6,
			want:      "gcpvj0",
		},
		{
			name:      "default precision",
			lat:       52.2297,
			lon:       21.0122,
			precision: 0,
			want:      "u3qcn",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Encode(tt.lat, tt.lon, tt.precision)
			if got != tt.want {
				t.Errorf("Encode() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEncodeDeterministic(t *testing.T) {
	for i := 0; i < 10; i++ {
		if got := Encode(52.2297, 21.0122, 7); got != Encode(52.2297, 21.0122, 7) {
			t.Fatalf("Encode not deterministic, got %v", got)
		}
	}
}

func TestDecodeRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		lat  float64
		lon  float64
	}{
		{"Warsaw", 52.2297, 21.0122},
		{"Sydney", -33.8688, 151.2093},
		{"equator prime meridian", 0, 0},
		{"near date line", 64.0, 179.9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash := Encode(tt.lat, tt.lon, 9)
			lat, lon := Decode(hash)
			if math.Abs(lat-tt.lat) > 0.001 || math.Abs(lon-tt.lon) > 0.001 {
				t.Errorf("Decode(%q) = (%v, %v), want ~(%v, %v)", hash, lat, lon, tt.lat, tt.lon)
			}
		})
	}
}

// Neighbors must tile the grid: the bounding box of a neighbor shares an edge
// with the center cell and re-encoding its center yields the neighbor hash.
func TestNeighborAdjacency(t *testing.T) {
	hashes := []string{"u3qcn", "9q8yyk", "gcpvj0", "u3qc"}

	for _, hash := range hashes {
		b := BoundsOf(hash)

		north := Neighbor(hash, 'n')
		if nb := BoundsOf(north); math.Abs(nb.MinLat-b.MaxLat) > 1e-9 {
			t.Errorf("north of %q = %q: MinLat %v, want %v", hash, north, nb.MinLat, b.MaxLat)
		}
		south := Neighbor(hash, 's')
		if sb := BoundsOf(south); math.Abs(sb.MaxLat-b.MinLat) > 1e-9 {
			t.Errorf("south of %q = %q: MaxLat %v, want %v", hash, south, sb.MaxLat, b.MinLat)
		}
		east := Neighbor(hash, 'e')
		if eb := BoundsOf(east); math.Abs(eb.MinLon-b.MaxLon) > 1e-9 {
			t.Errorf("east of %q = %q: MinLon %v, want %v", hash, east, eb.MinLon, b.MaxLon)
		}
		west := Neighbor(hash, 'w')
		if wb := BoundsOf(west); math.Abs(wb.MaxLon-b.MinLon) > 1e-9 {
			t.Errorf("west of %q = %q: MaxLon %v, want %v", hash, west, wb.MaxLon, b.MinLon)
		}

		for _, n := range []string{north, south, east, west} {
			lat, lon := Decode(n)
			if got := Encode(lat, lon, len(hash)); got != n {
				t.Errorf("re-encoding center of %q gives %q", n, got)
			}
		}
	}
}

func TestAllNeighborsDistinct(t *testing.T) {
	cells := AllNeighbors("u3qcn")
	if len(cells) != 9 {
		t.Fatalf("AllNeighbors returned %d cells, want 9", len(cells))
	}
	seen := map[string]bool{}
	for _, cell := range cells {
		if seen[cell] {
			t.Errorf("duplicate cell %q", cell)
		}
		seen[cell] = true
	}
	if !seen["u3qcn"] {
		t.Error("center cell missing from AllNeighbors")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		lat     float64
		lon     float64
		wantErr bool
	}{
		{"valid", 52.2297, 21.0122, false},
		{"boundary", 90, 180, false},
		{"negative boundary", -90, -180, false},
		{"lat too large", 90.01, 0, true},
		{"lat too small", -90.01, 0, true},
		{"lon too large", 0, 180.01, true},
		{"lon too small", 0, -180.01, true},
		{"lat NaN", math.NaN(), 0, true},
		{"lon NaN", 0, math.NaN(), true},
		{"lat Inf", math.Inf(1), 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.lat, tt.lon)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate(%v, %v) error = %v, wantErr %v", tt.lat, tt.lon, err, tt.wantErr)
			}
		})
	}
}
