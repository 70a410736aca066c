package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/bognix/dymek-api/internal/domain"
	"github.com/bognix/dymek-api/internal/geo"
	"github.com/bognix/dymek-api/internal/store"
	"github.com/bognix/dymek-api/pkg/util"
)

// ReportFilter captures report query dimensions.
type ReportFilter struct {
	Types    []domain.MarkerType
	Location *LocationFilter
}

func (f ReportFilter) empty() bool {
	return len(f.Types) == 0 && f.Location == nil
}

// ReportCreateInput describes an aggregation of markers into a report. The
// coordinates are the centroid of the member markers.
type ReportCreateInput struct {
	Latitude  string
	Longitude string
	Type      domain.MarkerType
	MarkerIDs []string
}

// ReportRepository mirrors the marker store contract at report granularity
// and owns the markers-by-report relation.
type ReportRepository interface {
	Create(ctx context.Context, input ReportCreateInput) (*domain.Report, error)
	Get(ctx context.Context, id string) (*domain.Report, error)
	Query(ctx context.Context, filter ReportFilter, internal bool) ([]domain.Report, error)
	MarkersOf(ctx context.Context, reportID string) ([]domain.Marker, error)

	// SetStatus persists a status change as an isolated single-attribute
	// update; callers go through the transition service, not this method.
	SetStatus(ctx context.Context, report *domain.Report, status domain.Status, expectedVersion *int64) error
}

type reportRepository struct {
	records store.RecordStore
	markers MarkerRepository
	index   *geo.Index
}

// NewReportRepository instantiates the report store.
func NewReportRepository(records store.RecordStore, markers MarkerRepository, index *geo.Index) ReportRepository {
	return &reportRepository{records: records, markers: markers, index: index}
}

func (r *reportRepository) Create(ctx context.Context, input ReportCreateInput) (*domain.Report, error) {
	if input.Type == "" {
		return nil, util.NewValidationError("you can not create a report without a type", nil)
	}
	if !input.Type.IsValid() {
		return nil, util.NewValidationError("not supported type", map[string]any{"type": input.Type})
	}
	lat, lon, err := parseCoordinates(input.Latitude, input.Longitude)
	if err != nil {
		return nil, err
	}

	fullHash, err := r.index.FullHash(lat, lon)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	report := &domain.Report{
		ID:        uuid.NewString(),
		Status:    domain.StatusNew,
		Type:      input.Type,
		GeoJSON:   domain.NewGeoJSONPoint(lat, lon),
		Latitude:  lat,
		Longitude: lon,
		GeoHash:   fullHash,
		CreatedAt: now,
		UpdatedAt: now,
	}

	item, err := json.Marshal(report)
	if err != nil {
		return nil, util.NewInternalError(err)
	}
	if err := r.records.Put(ctx, reportKey(r.index, report), item); err != nil {
		return nil, err
	}

	// Stamp membership on the aggregated markers. The report write above is
	// durable on its own; a failed stamp surfaces without undoing it.
	for _, markerID := range input.MarkerIDs {
		marker, err := r.markers.Get(ctx, markerID)
		if err != nil {
			return nil, err
		}
		if err := r.markers.SetReportID(ctx, marker, report.ID); err != nil {
			return nil, err
		}
	}
	return report, nil
}

func (r *reportRepository) Get(ctx context.Context, id string) (*domain.Report, error) {
	records, err := r.records.QueryByAttribute(ctx, "id", id, store.Filters{})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, util.NewNotFound("report", map[string]any{"id": id})
	}
	return decodeReport(records[0])
}

func (r *reportRepository) Query(ctx context.Context, filter ReportFilter, internal bool) ([]domain.Report, error) {
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

	records, err := r.records.ScanAll(ctx, store.Filters{})
	if err != nil {
		return nil, err
	}
	reports, err := decodeReports(records)
	if err != nil {
		return nil, err
	}
	return applyReportFilters(reports, filter), nil
}

func (r *reportRepository) queryByRadius(ctx context.Context, filter ReportFilter) ([]domain.Report, error) {
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

	var candidates []domain.Report
	for _, records := range results {
		reports, err := decodeReports(records)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, reports...)
	}

	within := candidates[:0]
	for _, report := range candidates {
		if geo.IsWithinRadius(report.Latitude, report.Longitude, loc.Latitude, loc.Longitude, loc.RadiusMeters) {
			within = append(within, report)
		}
	}
	return applyReportFilters(within, filter), nil
}

func (r *reportRepository) MarkersOf(ctx context.Context, reportID string) ([]domain.Marker, error) {
	return r.markers.Query(ctx, MarkerFilter{ReportID: reportID}, false)
}

func (r *reportRepository) SetStatus(ctx context.Context, report *domain.Report, status domain.Status, expectedVersion *int64) error {
	return r.records.UpdateAttribute(ctx, reportKey(r.index, report), "status", status, expectedVersion)
}

func applyReportFilters(reports []domain.Report, filter ReportFilter) []domain.Report {
	result := make([]domain.Report, 0, len(reports))
	for _, report := range reports {
		if len(filter.Types) > 0 && !containsType(filter.Types, report.Type) {
			continue
		}
		result = append(result, report)
	}
	return result
}

func reportKey(index *geo.Index, report *domain.Report) store.Key {
	return store.Key{
		Partition: index.CellOf(report.GeoHash),
		Range:     report.CreatedAt.UTC().Format(rangeKeyLayout),
	}
}

func decodeReport(record store.Record) (*domain.Report, error) {
	var report domain.Report
	if err := json.Unmarshal(record.Item, &report); err != nil {
		return nil, util.NewInternalError(err)
	}
	return &report, nil
}

func decodeReports(records []store.Record) ([]domain.Report, error) {
	reports := make([]domain.Report, 0, len(records))
	for _, record := range records {
		report, err := decodeReport(record)
		if err != nil {
			return nil, err
		}
		reports = append(reports, *report)
	}
	return reports, nil
}
