package repository

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/bognix/dymek-api/internal/domain"
	"github.com/bognix/dymek-api/internal/geo"
	"github.com/bognix/dymek-api/internal/store"
	"github.com/bognix/dymek-api/pkg/util"
)

// LocationFilter restricts a query to a geographic radius.
type LocationFilter struct {
	Latitude     float64
	Longitude    float64
	RadiusMeters float64
}

// MarkerFilter captures marker query dimensions. At least one dimension must
// be set unless the caller is internal.
type MarkerFilter struct {
	UserID   string
	Types    []domain.MarkerType
	ReportID string
	Location *LocationFilter
}

func (f MarkerFilter) empty() bool {
	return f.UserID == "" && len(f.Types) == 0 && f.ReportID == "" && f.Location == nil
}

// MarkerCreateInput is the marker creation payload. Coordinates arrive as
// strings and are validated here, not silently coerced.
type MarkerCreateInput struct {
	Latitude  string
	Longitude string
	Type      domain.MarkerType
	UserID    string
}

// MarkerRepository is the marker store: point inserts plus point, radius and
// filter queries over the geo-partitioned record store.
type MarkerRepository interface {
	Create(ctx context.Context, input MarkerCreateInput) (*domain.Marker, error)
	Get(ctx context.Context, id string) (*domain.Marker, error)
	Query(ctx context.Context, filter MarkerFilter, internal bool) ([]domain.Marker, error)

	// SetStatus persists a status change as an isolated single-attribute
	// update; callers go through the transition service, not this method.
	SetStatus(ctx context.Context, marker *domain.Marker, status domain.Status, expectedVersion *int64) error

	// SetReportID stamps report membership on a marker. Called by the report
	// store when aggregating markers into a report.
	SetReportID(ctx context.Context, marker *domain.Marker, reportID string) error
}

type markerRepository struct {
	records store.RecordStore
	index   *geo.Index
}

// NewMarkerRepository instantiates the marker store.
func NewMarkerRepository(records store.RecordStore, index *geo.Index) MarkerRepository {
	return &markerRepository{records: records, index: index}
}

func (r *markerRepository) Create(ctx context.Context, input MarkerCreateInput) (*domain.Marker, error) {
	if input.Type == "" {
		return nil, util.NewValidationError("you can not create a marker without a type", nil)
	}
	if !input.Type.IsValid() {
		return nil, util.NewValidationError("not supported type", map[string]any{"type": input.Type})
	}
	if input.UserID == "" {
		return nil, util.NewValidationError("you can not post markers as not identified user", nil)
	}
	lat, lon, err := parseCoordinates(input.Latitude, input.Longitude)
	if err != nil {
		return nil, err
	}

	fullHash, err := r.index.FullHash(lat, lon)
	if err != nil {
		return nil, err
	}

	marker := &domain.Marker{
		ID:        uuid.NewString(),
		Latitude:  lat,
		Longitude: lon,
		Type:      input.Type,
		UserID:    input.UserID,
		Status:    domain.StatusNew,
		CreatedAt: time.Now().UTC(),
		GeoHash:   fullHash,
	}

	item, err := json.Marshal(marker)
	if err != nil {
		return nil, util.NewInternalError(err)
	}
	if err := r.records.Put(ctx, markerKey(r.index, marker), item); err != nil {
		return nil, err
	}
	return marker, nil
}

func (r *markerRepository) Get(ctx context.Context, id string) (*domain.Marker, error) {
	records, err := r.records.QueryByAttribute(ctx, "id", id, store.Filters{})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, util.NewNotFound("marker", map[string]any{"id": id})
	}
	return decodeMarker(records[0])
}

func (r *markerRepository) Query(ctx context.Context, filter MarkerFilter, internal bool) ([]domain.Marker, error) {
	if filter.empty() && !internal {
		return nil, util.NewValidationError("you need to provide at least one filter", nil)
	}
	for _, t := range filter.Types {
		if !t.IsValid() {
			return nil, util.NewValidationError("one of passed types is not supported", map[string]any{"type": t})
		}
	}

	if filter.Location != nil {
		return r.queryByRadius(ctx, filter)
	}
	if filter.ReportID != "" {
		return r.queryByAttribute(ctx, "reportId", filter.ReportID, filter)
	}
	if filter.UserID != "" {
		return r.queryByAttribute(ctx, "userId", filter.UserID, filter)
	}

	// Type-only queries and unrestricted internal enumeration both walk the
	// whole table; the former already passed the filter guard.
	records, err := r.records.ScanAll(ctx, store.Filters{})
	if err != nil {
		return nil, err
	}
	markers, err := decodeMarkers(records)
	if err != nil {
		return nil, err
	}
	return applyMarkerFilters(markers, filter), nil
}

func (r *markerRepository) SetStatus(ctx context.Context, marker *domain.Marker, status domain.Status, expectedVersion *int64) error {
	return r.records.UpdateAttribute(ctx, markerKey(r.index, marker), "status", status, expectedVersion)
}

func (r *markerRepository) SetReportID(ctx context.Context, marker *domain.Marker, reportID string) error {
	return r.records.UpdateAttribute(ctx, markerKey(r.index, marker), "reportId", reportID, nil)
}

// queryByRadius fans fetches out over the covering cells, then narrows with
// the exact distance check before any secondary filters: geo narrows
// fastest. A single failed cell fetch fails the whole query rather than
// silently under-reporting.
func (r *markerRepository) queryByRadius(ctx context.Context, filter MarkerFilter) ([]domain.Marker, error) {
	loc := filter.Location
	cells, err := r.index.CoveringCells(loc.Latitude, loc.Longitude, loc.RadiusMeters)
	if err != nil {
		return nil, err
	}

	results := make([][]store.Record, len(cells))
	g, gctx := errgroup.WithContext(ctx)
	for i, cell := range cells {
		i, cell := i, cell
		g.Go(func() error {
			records, err := r.records.QueryByPartition(gctx, cell, store.Filters{})
			if err != nil {
				return err
			}
			results[i] = records
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var candidates []domain.Marker
	for _, records := range results {
		markers, err := decodeMarkers(records)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, markers...)
	}

	within := candidates[:0]
	for _, m := range candidates {
		if geo.IsWithinRadius(m.Latitude, m.Longitude, loc.Latitude, loc.Longitude, loc.RadiusMeters) {
			within = append(within, m)
		}
	}
	return applyMarkerFilters(within, filter), nil
}

func (r *markerRepository) queryByAttribute(ctx context.Context, name, value string, filter MarkerFilter) ([]domain.Marker, error) {
	records, err := r.records.QueryByAttribute(ctx, name, value, store.Filters{})
	if err != nil {
		return nil, err
	}
	markers, err := decodeMarkers(records)
	if err != nil {
		return nil, err
	}
	return applyMarkerFilters(markers, filter), nil
}

// applyMarkerFilters applies the in-memory secondary filters: owner first,
// then types.
func applyMarkerFilters(markers []domain.Marker, filter MarkerFilter) []domain.Marker {
	result := make([]domain.Marker, 0, len(markers))
	for _, m := range markers {
		if filter.UserID != "" && m.UserID != filter.UserID {
			continue
		}
		if len(filter.Types) > 0 && !containsType(filter.Types, m.Type) {
			continue
		}
		result = append(result, m)
	}
	return result
}

func containsType(types []domain.MarkerType, t domain.MarkerType) bool {
	for _, candidate := range types {
		if candidate == t {
			return true
		}
	}
	return false
}

func parseCoordinates(latitude, longitude string) (float64, float64, error) {
	if latitude == "" || longitude == "" {
		return 0, 0, util.NewValidationError("lat or long not set", nil)
	}
	lat, latErr := strconv.ParseFloat(latitude, 64)
	lon, lonErr := strconv.ParseFloat(longitude, 64)
	if latErr != nil || lonErr != nil {
		return 0, 0, util.NewValidationError("lat or long has invalid form", map[string]any{
			"latitude": latitude, "longitude": longitude,
		})
	}
	if err := geo.Validate(lat, lon); err != nil {
		return 0, 0, err
	}
	return lat, lon, nil
}

// rangeKeyLayout is fixed width: RFC3339Nano drops trailing fractional-second
// zeros, which would make lexicographic range-key order diverge from
// chronological order within a partition.
const rangeKeyLayout = "2006-01-02T15:04:05.000000000Z07:00"

func markerKey(index *geo.Index, marker *domain.Marker) store.Key {
	return store.Key{
		Partition: index.CellOf(marker.GeoHash),
		Range:     marker.CreatedAt.UTC().Format(rangeKeyLayout),
	}
}

func decodeMarker(record store.Record) (*domain.Marker, error) {
	var marker domain.Marker
	if err := json.Unmarshal(record.Item, &marker); err != nil {
		return nil, util.NewInternalError(err)
	}
	return &marker, nil
}

func decodeMarkers(records []store.Record) ([]domain.Marker, error) {
	markers := make([]domain.Marker, 0, len(records))
	for _, record := range records {
		marker, err := decodeMarker(record)
		if err != nil {
			return nil, err
		}
		markers = append(markers, *marker)
	}
	return markers, nil
}
