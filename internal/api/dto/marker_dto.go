package dto

import (
	"strconv"

	"github.com/bognix/dymek-api/internal/domain"
)

// CreateMarkerRequest payload. Coordinates are accepted as JSON numbers or
// strings; validation happens in the marker store, not here.
type CreateMarkerRequest struct {
	Latitude  any               `json:"latitude"`
	Longitude any               `json:"longitude"`
	Type      domain.MarkerType `json:"type"`
	UserID    string            `json:"userId"`
}

// UpdateStatusRequest payload for marker and report status transitions.
type UpdateStatusRequest struct {
	Status          domain.Status `json:"status"`
	ExpectedVersion *int64        `json:"expectedVersion,omitempty"`
}

// CoordinateString renders a request coordinate for validation without
// coercing malformed values.
func CoordinateString(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case int:
		return strconv.Itoa(value)
	default:
		return ""
	}
}
