package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/bognix/dymek-api/internal/api/dto"
	"github.com/bognix/dymek-api/internal/domain"
	"github.com/bognix/dymek-api/internal/repository"
	"github.com/bognix/dymek-api/internal/service"
	apperrors "github.com/bognix/dymek-api/pkg/util"
)

// MarkersHandler exposes marker endpoints.
type MarkersHandler struct {
	markers     repository.MarkerRepository
	transitions *service.TransitionService
}

// NewMarkersHandler constructs handler.
func NewMarkersHandler(markers repository.MarkerRepository, transitions *service.TransitionService) *MarkersHandler {
	return &MarkersHandler{markers: markers, transitions: transitions}
}

// CreateMarker POST /markers.
func (h *MarkersHandler) CreateMarker(c *fiber.Ctx) error {
	var req dto.CreateMarkerRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	marker, err := h.markers.Create(c.UserContext(), repository.MarkerCreateInput{
		Latitude:  dto.CoordinateString(req.Latitude),
		Longitude: dto.CoordinateString(req.Longitude),
		Type:      req.Type,
		UserID:    req.UserID,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": marker})
}

// GetMarker GET /markers/:id.
func (h *MarkersHandler) GetMarker(c *fiber.Ctx) error {
	marker, err := h.markers.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": marker})
}

// ListMarkers GET /markers. External callers must pass at least one filter
// dimension; the unrestricted scan stays internal.
func (h *MarkersHandler) ListMarkers(c *fiber.Ctx) error {
	filter, err := parseMarkerFilter(c)
	if err != nil {
		return err
	}
	markers, err := h.markers.Query(c.UserContext(), filter, false)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": markers})
}

// UpdateMarkerStatus PATCH /markers/:id/status.
func (h *MarkersHandler) UpdateMarkerStatus(c *fiber.Ctx) error {
	var req dto.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	marker, err := h.transitions.TransitionMarker(c.UserContext(), service.TransitionInput{
		ID:              c.Params("id"),
		NewStatus:       req.Status,
		ExpectedVersion: req.ExpectedVersion,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": marker})
}

func parseMarkerFilter(c *fiber.Ctx) (repository.MarkerFilter, error) {
	filter := repository.MarkerFilter{
		UserID:   c.Query("userId"),
		ReportID: c.Query("reportId"),
		Types:    parseTypes(c.Query("types")),
	}
	location, err := parseLocation(c)
	if err != nil {
		return repository.MarkerFilter{}, err
	}
	filter.Location = location
	return filter, nil
}

func parseTypes(raw string) []domain.MarkerType {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	types := make([]domain.MarkerType, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			types = append(types, domain.MarkerType(trimmed))
		}
	}
	return types
}

func parseLocation(c *fiber.Ctx) (*repository.LocationFilter, error) {
	latRaw := c.Query("latitude")
	lonRaw := c.Query("longitude")
	radiusRaw := c.Query("radius")
	if latRaw == "" && lonRaw == "" && radiusRaw == "" {
		return nil, nil
	}
	if latRaw == "" || lonRaw == "" || radiusRaw == "" {
		return nil, apperrors.NewValidationError("location filter requires latitude, longitude and radius", nil)
	}

	lat, latErr := strconv.ParseFloat(latRaw, 64)
	lon, lonErr := strconv.ParseFloat(lonRaw, 64)
	radius, radiusErr := strconv.ParseFloat(radiusRaw, 64)
	if latErr != nil || lonErr != nil || radiusErr != nil {
		return nil, apperrors.NewValidationError("location filter has invalid form", nil)
	}
	return &repository.LocationFilter{
		Latitude:     lat,
		Longitude:    lon,
		RadiusMeters: radius,
	}, nil
}
