package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/bognix/dymek-api/internal/api/dto"
	"github.com/bognix/dymek-api/internal/repository"
	"github.com/bognix/dymek-api/internal/service"
	apperrors "github.com/bognix/dymek-api/pkg/util"
)

// ReportsHandler exposes report endpoints.
type ReportsHandler struct {
	reports     repository.ReportRepository
	transitions *service.TransitionService
}

// NewReportsHandler constructs handler.
func NewReportsHandler(reports repository.ReportRepository, transitions *service.TransitionService) *ReportsHandler {
	return &ReportsHandler{reports: reports, transitions: transitions}
}

// CreateReport POST /reports.
func (h *ReportsHandler) CreateReport(c *fiber.Ctx) error {
	var req dto.CreateReportRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	report, err := h.reports.Create(c.UserContext(), repository.ReportCreateInput{
		Latitude:  dto.CoordinateString(req.Latitude),
		Longitude: dto.CoordinateString(req.Longitude),
		Type:      req.Type,
		MarkerIDs: req.MarkerIDs,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": report})
}

// GetReport GET /reports/:id.
func (h *ReportsHandler) GetReport(c *fiber.Ctx) error {
	report, err := h.reports.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": report})
}

// ListReports GET /reports.
func (h *ReportsHandler) ListReports(c *fiber.Ctx) error {
	location, err := parseLocation(c)
	if err != nil {
		return err
	}
	filter := repository.ReportFilter{
		Types:    parseTypes(c.Query("types")),
		Location: location,
	}
	reports, err := h.reports.Query(c.UserContext(), filter, false)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": reports})
}

// ListReportMarkers GET /reports/:id/markers.
func (h *ReportsHandler) ListReportMarkers(c *fiber.Ctx) error {
	markers, err := h.reports.MarkersOf(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": markers})
}

// UpdateReportStatus PATCH /reports/:id/status.
func (h *ReportsHandler) UpdateReportStatus(c *fiber.Ctx) error {
	var req dto.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	report, err := h.transitions.TransitionReport(c.UserContext(), service.TransitionInput{
		ID:              c.Params("id"),
		NewStatus:       req.Status,
		ExpectedVersion: req.ExpectedVersion,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": report})
}
