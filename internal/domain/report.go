package domain

import "time"

// GeoJSONPoint is a GeoJSON Point geometry. Coordinates are longitude first,
// matching the GeoJSON spec and the wire format of geo-indexed items.
type GeoJSONPoint struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
}

// NewGeoJSONPoint builds a Point for the given coordinate pair.
func NewGeoJSONPoint(lat, lon float64) GeoJSONPoint {
	return GeoJSONPoint{Type: "Point", Coordinates: [2]float64{lon, lat}}
}

// Report aggregates one or more markers under a single resolution status.
// Reports are geolocated by the centroid of their member markers and are
// never deleted.
type Report struct {
	ID        string       `json:"id"`
	Status    Status       `json:"status"`
	Type      MarkerType   `json:"type"`
	GeoJSON   GeoJSONPoint `json:"geoJson"`
	Latitude  float64      `json:"latitude"`
	Longitude float64      `json:"longitude"`
	GeoHash   string       `json:"geoHash"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
	Version   int64        `json:"version"`
}
