package dto

import "github.com/bognix/dymek-api/internal/domain"

// CreateReportRequest payload. The coordinates are the centroid of the
// aggregated markers.
type CreateReportRequest struct {
	Latitude  any               `json:"latitude"`
	Longitude any               `json:"longitude"`
	Type      domain.MarkerType `json:"type"`
	MarkerIDs []string          `json:"markerIds"`
}

// UpsertTokenRequest payload for registration-token updates.
type UpsertTokenRequest struct {
	RegistrationToken string `json:"registrationToken"`
}
