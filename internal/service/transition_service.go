package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/bognix/dymek-api/internal/domain"
	"github.com/bognix/dymek-api/internal/events"
	"github.com/bognix/dymek-api/internal/repository"
	"github.com/bognix/dymek-api/pkg/util"
)

// allowedTransitions is the status workflow as data: restricting an edge
// later is a table change, not a rewrite. Today every status is reachable
// from every other; a transition to the current status is a no-op handled
// before this table is consulted.
var allowedTransitions = map[domain.Status][]domain.Status{
	domain.StatusNew:          {domain.StatusAcknowledged, domain.StatusRejected, domain.StatusResolved},
	domain.StatusAcknowledged: {domain.StatusNew, domain.StatusRejected, domain.StatusResolved},
	domain.StatusRejected:     {domain.StatusNew, domain.StatusAcknowledged, domain.StatusResolved},
	domain.StatusResolved:     {domain.StatusNew, domain.StatusAcknowledged, domain.StatusRejected},
}

func isAllowedTransition(current, next domain.Status) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// TransitionInput describes a requested status change. ExpectedVersion is
// optional optimistic concurrency control: when set, the write only applies
// if the record has not changed since it was read, otherwise the caller gets
// a conflict. When unset the write is last-write-wins.
type TransitionInput struct {
	ID              string
	NewStatus       domain.Status
	ExpectedVersion *int64
}

// TransitionService validates status transitions, persists them and emits
// the status-changed events that drive user notifications. The persisted
// status is the durable, authoritative effect; notification is downstream
// and best-effort.
type TransitionService struct {
	markers    repository.MarkerRepository
	reports    repository.ReportRepository
	dispatcher events.Dispatcher
}

// NewTransitionService constructs the service.
func NewTransitionService(markers repository.MarkerRepository, reports repository.ReportRepository, dispatcher events.Dispatcher) *TransitionService {
	return &TransitionService{markers: markers, reports: reports, dispatcher: dispatcher}
}

// TransitionMarker applies a status change to a marker.
func (s *TransitionService) TransitionMarker(ctx context.Context, input TransitionInput) (*domain.Marker, error) {
	if err := validateTransitionInput(input); err != nil {
		return nil, err
	}

	marker, err := s.markers.Get(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	if marker.Status == input.NewStatus {
		// Idempotent: no write, no notification.
		return marker, nil
	}
	if !isAllowedTransition(marker.Status, input.NewStatus) {
		return nil, util.NewValidationError("status transition not allowed", map[string]any{
			"from": marker.Status, "to": input.NewStatus,
		})
	}

	if err := s.markers.SetStatus(ctx, marker, input.NewStatus, input.ExpectedVersion); err != nil {
		return nil, err
	}

	oldStatus := marker.Status
	marker.Status = input.NewStatus
	marker.Version++

	s.publish(ctx, events.Event{
		Type:     events.EventMarkerStatusChanged,
		TargetID: marker.ID,
		UserID:   marker.UserID,
		Payload: events.StatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: marker.Status,
			Meta: map[string]any{
				"id":        marker.ID,
				"type":      marker.Type,
				"latitude":  marker.Latitude,
				"longitude": marker.Longitude,
				"createdAt": marker.CreatedAt,
				"oldStatus": oldStatus,
			},
		},
	})
	return marker, nil
}

// TransitionReport applies a status change to a report. The notification
// goes to the owners of the report's markers.
func (s *TransitionService) TransitionReport(ctx context.Context, input TransitionInput) (*domain.Report, error) {
	if err := validateTransitionInput(input); err != nil {
		return nil, err
	}

	report, err := s.reports.Get(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	if report.Status == input.NewStatus {
		return report, nil
	}
	if !isAllowedTransition(report.Status, input.NewStatus) {
		return nil, util.NewValidationError("status transition not allowed", map[string]any{
			"from": report.Status, "to": input.NewStatus,
		})
	}

	if err := s.reports.SetStatus(ctx, report, input.NewStatus, input.ExpectedVersion); err != nil {
		return nil, err
	}

	oldStatus := report.Status
	report.Status = input.NewStatus
	report.Version++

	markers, err := s.reports.MarkersOf(ctx, report.ID)
	if err != nil {
		// The status change is already durable; recipients just can not be
		// resolved right now.
		markers = nil
	}
	seen := map[string]bool{}
	for _, marker := range markers {
		if seen[marker.UserID] {
			continue
		}
		seen[marker.UserID] = true
		s.publish(ctx, events.Event{
			Type:     events.EventReportStatusChanged,
			TargetID: report.ID,
			UserID:   marker.UserID,
			Payload: events.StatusChangedPayload{
				OldStatus: oldStatus,
				NewStatus: report.Status,
				Meta: map[string]any{
					"id":        report.ID,
					"type":      report.Type,
					"geoJson":   report.GeoJSON,
					"createdAt": report.CreatedAt,
					"oldStatus": oldStatus,
				},
			},
		})
	}
	return report, nil
}

func validateTransitionInput(input TransitionInput) error {
	if input.ID == "" {
		return util.NewValidationError("pass ID in order to update status", nil)
	}
	if !input.NewStatus.IsValid() {
		return util.NewValidationError("status not supported", map[string]any{"status": input.NewStatus})
	}
	return nil
}

func (s *TransitionService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}
