package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bognix/dymek-api/internal/domain"
	"github.com/bognix/dymek-api/internal/geo"
	"github.com/bognix/dymek-api/internal/store"
	"github.com/bognix/dymek-api/pkg/util"
)

// failingPartitionStore fails fetches for one cell, as a backend partition
// outage would.
type failingPartitionStore struct {
	*store.MemoryStore
	failCell string
}

func (s *failingPartitionStore) QueryByPartition(ctx context.Context, partition string, f store.Filters) ([]store.Record, error) {
	if partition == s.failCell {
		return nil, util.NewStoreUnavailable(errors.New("partition unavailable"))
	}
	return s.MemoryStore.QueryByPartition(ctx, partition, f)
}

func newMarkerRepo() (MarkerRepository, *store.MemoryStore) {
	records := store.NewMemoryStore()
	index := geo.NewIndex(5, true, 0)
	return NewMarkerRepository(records, index), records
}

func TestCreateAndGetMarker(t *testing.T) {
	repo, _ := newMarkerRepo()
	ctx := context.Background()

	created, err := repo.Create(ctx, MarkerCreateInput{
		Latitude:  "52.2297",
		Longitude: "21.0122",
		Type:      domain.MarkerTypeIllegalParking,
		UserID:    "u1",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID == "" {
		t.Error("created marker has no id")
	}
	if created.Status != domain.StatusNew {
		t.Errorf("status = %v, want NEW", created.Status)
	}
	if created.GeoHash == "" {
		t.Error("created marker has no geohash")
	}

	got, err := repo.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Latitude != 52.2297 || got.Longitude != 21.0122 {
		t.Errorf("coordinates = (%v, %v), want (52.2297, 21.0122)", got.Latitude, got.Longitude)
	}
	if got.Type != domain.MarkerTypeIllegalParking {
		t.Errorf("type = %v, want ILLEGAL_PARKING", got.Type)
	}
	if got.UserID != "u1" {
		t.Errorf("userId = %v, want u1", got.UserID)
	}
	if got.Status != domain.StatusNew {
		t.Errorf("status = %v, want NEW", got.Status)
	}
}

func TestGetMarkerNotFound(t *testing.T) {
	repo, _ := newMarkerRepo()

	_, err := repo.Get(context.Background(), "nope")
	if !util.IsNotFound(err) {
		t.Errorf("got %v, want not found error", err)
	}
}

func TestCreateMarkerValidation(t *testing.T) {
	repo, records := newMarkerRepo()
	ctx := context.Background()

	tests := []struct {
		name  string
		input MarkerCreateInput
	}{
		{
			name:  "missing type",
			input: MarkerCreateInput{Latitude: "52.1", Longitude: "21.1", UserID: "u1"},
		},
		{
			name:  "unsupported type",
			input: MarkerCreateInput{Latitude: "52.1", Longitude: "21.1", Type: "POTHOLE", UserID: "u1"},
		},
		{
			name:  "missing user",
			input: MarkerCreateInput{Latitude: "52.1", Longitude: "21.1", Type: domain.MarkerTypeDogPoop},
		},
		{
			name:  "missing coordinates",
			input: MarkerCreateInput{Type: domain.MarkerTypeDogPoop, UserID: "u1"},
		},
		{
			name:  "non numeric latitude",
			input: MarkerCreateInput{Latitude: "abc", Longitude: "21.1", Type: domain.MarkerTypeDogPoop, UserID: "u1"},
		},
		{
			name:  "latitude out of range",
			input: MarkerCreateInput{Latitude: "95", Longitude: "21.1", Type: domain.MarkerTypeDogPoop, UserID: "u1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := repo.Create(ctx, tt.input); !util.IsValidation(err) {
				t.Errorf("got %v, want validation error", err)
			}
		})
	}

	// No partial writes on validation failure.
	all, err := records.ScanAll(ctx, store.Filters{})
	if err != nil {
		t.Fatalf("ScanAll: %v", err)
	}
	if len(all) != 0 {
		t.Errorf("store holds %d records after failed creates, want 0", len(all))
	}
}

func TestQueryRequiresFilter(t *testing.T) {
	repo, _ := newMarkerRepo()
	ctx := context.Background()

	mustCreateMarker(t, repo, "52.2297", "21.0122", domain.MarkerTypeDogPoop, "u1")

	if _, err := repo.Query(ctx, MarkerFilter{}, false); !util.IsValidation(err) {
		t.Errorf("unfiltered external query: got %v, want validation error", err)
	}

	markers, err := repo.Query(ctx, MarkerFilter{}, true)
	if err != nil {
		t.Fatalf("internal query: %v", err)
	}
	if len(markers) != 1 {
		t.Errorf("internal query returned %d markers, want 1", len(markers))
	}
}

func TestQueryByRadius(t *testing.T) {
	repo, _ := newMarkerRepo()
	ctx := context.Background()

	warsaw := mustCreateMarker(t, repo, "52.2297", "21.0122", domain.MarkerTypeIllegalParking, "u1")
	mustCreateMarker(t, repo, "50.0647", "19.9450", domain.MarkerTypeIllegalParking, "u2") // Krakow

	markers, err := repo.Query(ctx, MarkerFilter{
		Location: &LocationFilter{Latitude: 52.2297, Longitude: 21.0122, RadiusMeters: 100},
	}, false)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(markers) != 1 {
		t.Fatalf("radius query returned %d markers, want 1", len(markers))
	}
	if markers[0].ID != warsaw.ID {
		t.Errorf("radius query returned %v, want %v", markers[0].ID, warsaw.ID)
	}
}

// A single failed cell fetch fails the whole radius query; a partial result
// would silently under-report.
func TestQueryByRadiusFailsWhenCellFetchFails(t *testing.T) {
	records := &failingPartitionStore{
		MemoryStore: store.NewMemoryStore(),
		failCell:    geo.Neighbor("u3qcn", 'n'),
	}
	index := geo.NewIndex(5, true, 0)
	repo := NewMarkerRepository(records, index)
	ctx := context.Background()

	mustCreateMarker(t, repo, "52.2297", "21.0122", domain.MarkerTypeDogPoop, "u1")

	markers, err := repo.Query(ctx, MarkerFilter{
		Location: &LocationFilter{Latitude: 52.2297, Longitude: 21.0122, RadiusMeters: 100},
	}, false)
	if !util.HasCode(err, util.CodeStoreUnavailable) {
		t.Fatalf("got %v, want store unavailable error", err)
	}
	if markers != nil {
		t.Errorf("partial result returned alongside the error: %v", markers)
	}
}

// Range keys must sort lexicographically in creation order; a variable-width
// timestamp format would put a record at .1s after one at .11s.
func TestMarkerRangeKeyOrdersByCreationTime(t *testing.T) {
	index := geo.NewIndex(5, true, 0)
	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	pairs := []struct {
		name           string
		earlier, later time.Duration
	}{
		{"trailing zero fraction", 100 * time.Millisecond, 110 * time.Millisecond},
		{"whole second vs fraction", 0, 100 * time.Millisecond},
		{"fraction vs next whole second", 900 * time.Millisecond, time.Second},
	}
	for _, p := range pairs {
		t.Run(p.name, func(t *testing.T) {
			earlier := markerKey(index, &domain.Marker{GeoHash: "u3qcnhhhhhhh", CreatedAt: base.Add(p.earlier)})
			later := markerKey(index, &domain.Marker{GeoHash: "u3qcnhhhhhhh", CreatedAt: base.Add(p.later)})
			if len(earlier.Range) != len(later.Range) {
				t.Errorf("range keys differ in width: %q vs %q", earlier.Range, later.Range)
			}
			if earlier.Range >= later.Range {
				t.Errorf("range keys out of order: %q should sort before %q", earlier.Range, later.Range)
			}
		})
	}
}

func TestQueryByRadiusAppliesSecondaryFilters(t *testing.T) {
	repo, _ := newMarkerRepo()
	ctx := context.Background()

	mustCreateMarker(t, repo, "52.2297", "21.0122", domain.MarkerTypeIllegalParking, "u1")
	mustCreateMarker(t, repo, "52.2298", "21.0123", domain.MarkerTypeDogPoop, "u1")
	mustCreateMarker(t, repo, "52.2299", "21.0124", domain.MarkerTypeIllegalParking, "u2")

	location := &LocationFilter{Latitude: 52.2297, Longitude: 21.0122, RadiusMeters: 500}

	markers, err := repo.Query(ctx, MarkerFilter{
		Location: location,
		UserID:   "u1",
		Types:    []domain.MarkerType{domain.MarkerTypeIllegalParking},
	}, false)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(markers) != 1 {
		t.Fatalf("filtered radius query returned %d markers, want 1", len(markers))
	}
	if markers[0].UserID != "u1" || markers[0].Type != domain.MarkerTypeIllegalParking {
		t.Errorf("wrong marker survived the filters: %+v", markers[0])
	}
}

func TestQueryByUser(t *testing.T) {
	repo, _ := newMarkerRepo()
	ctx := context.Background()

	first := mustCreateMarker(t, repo, "52.2297", "21.0122", domain.MarkerTypeDogPoop, "u1")
	second := mustCreateMarker(t, repo, "52.2298", "21.0123", domain.MarkerTypeChimneySmoke, "u1")
	mustCreateMarker(t, repo, "52.2299", "21.0124", domain.MarkerTypeDogPoop, "u2")

	markers, err := repo.Query(ctx, MarkerFilter{UserID: "u1"}, false)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(markers) != 2 {
		t.Fatalf("owner query returned %d markers, want 2", len(markers))
	}
	// Same cell, so ordering follows createdAt ascending.
	if markers[0].ID != first.ID || markers[1].ID != second.ID {
		t.Errorf("owner query out of order: got %v then %v", markers[0].ID, markers[1].ID)
	}

	typed, err := repo.Query(ctx, MarkerFilter{
		UserID: "u1",
		Types:  []domain.MarkerType{domain.MarkerTypeChimneySmoke},
	}, false)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(typed) != 1 || typed[0].ID != second.ID {
		t.Errorf("type-filtered owner query returned %+v, want only %v", typed, second.ID)
	}
}

func TestQueryRejectsUnsupportedType(t *testing.T) {
	repo, _ := newMarkerRepo()

	_, err := repo.Query(context.Background(), MarkerFilter{
		Types: []domain.MarkerType{"POTHOLE"},
	}, false)
	if !util.IsValidation(err) {
		t.Errorf("got %v, want validation error", err)
	}
}

func mustCreateMarker(t *testing.T, repo MarkerRepository, lat, lon string, markerType domain.MarkerType, userID string) *domain.Marker {
	t.Helper()
	marker, err := repo.Create(context.Background(), MarkerCreateInput{
		Latitude:  lat,
		Longitude: lon,
		Type:      markerType,
		UserID:    userID,
	})
	if err != nil {
		t.Fatalf("Create(%s, %s): %v", lat, lon, err)
	}
	return marker
}
