package events

import (
	"time"

	"github.com/bognix/dymek-api/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventMarkerStatusChanged EventType = "marker_status_changed"
	EventReportStatusChanged EventType = "report_status_changed"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	TargetID  string    `json:"target_id"`
	UserID    string    `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// StatusChangedPayload carries the transition and the record metadata the
// notification includes.
type StatusChangedPayload struct {
	OldStatus domain.Status  `json:"old_status"`
	NewStatus domain.Status  `json:"new_status"`
	Meta      map[string]any `json:"meta,omitempty"`
}
