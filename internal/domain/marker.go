package domain

import "time"

// MarkerType enumerates the kinds of civic issues citizens can report.
type MarkerType string

const (
	MarkerTypeDogPoop        MarkerType = "DOG_POOP"
	MarkerTypeIllegalParking MarkerType = "ILLEGAL_PARKING"
	MarkerTypeChimneySmoke   MarkerType = "CHIMNEY_SMOKE"
)

// Status enumerates resolution lifecycle states shared by markers and reports.
type Status string

const (
	StatusNew          Status = "NEW"
	StatusAcknowledged Status = "ACKNOWLEDGED"
	StatusRejected     Status = "REJECTED"
	StatusResolved     Status = "RESOLVED"
)

// SupportedMarkerTypes is the closed set of reportable issue types.
var SupportedMarkerTypes = map[MarkerType]bool{
	MarkerTypeDogPoop:        true,
	MarkerTypeIllegalParking: true,
	MarkerTypeChimneySmoke:   true,
}

// SupportedStatuses is the closed set of lifecycle statuses.
var SupportedStatuses = map[Status]bool{
	StatusNew:          true,
	StatusAcknowledged: true,
	StatusRejected:     true,
	StatusResolved:     true,
}

// Marker is a single reported issue. Everything except Status and ReportID is
// immutable after creation; markers are never physically deleted.
type Marker struct {
	ID        string     `json:"id"`
	Latitude  float64    `json:"latitude"`
	Longitude float64    `json:"longitude"`
	Type      MarkerType `json:"type"`
	UserID    string     `json:"userId"`
	Status    Status     `json:"status"`
	CreatedAt time.Time  `json:"createdAt"`
	GeoHash   string     `json:"geoHash"`
	ReportID  *string    `json:"reportId,omitempty"`
	Version   int64      `json:"version"`
}

// IsValid reports whether t belongs to the supported marker type set.
func (t MarkerType) IsValid() bool {
	return SupportedMarkerTypes[t]
}

// IsValid reports whether s belongs to the supported status set.
func (s Status) IsValid() bool {
	return SupportedStatuses[s]
}
