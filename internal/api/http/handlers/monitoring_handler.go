package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/forgecomply/forgecomply360/internal/api/dto"
	"github.com/forgecomply/forgecomply360/internal/repository"
	"github.com/forgecomply/forgecomply360/internal/service"
)

// MonitoringHandler exposes continuous-monitoring checks.
type MonitoringHandler struct {
	monitoring *service.MonitoringService
}

// NewMonitoringHandler constructs handler.
func NewMonitoringHandler(monitoring *service.MonitoringService) *MonitoringHandler {
	return &MonitoringHandler{monitoring: monitoring}
}

func checkInput(req dto.CheckRequest) service.CheckInput {
	return service.CheckInput{
		SystemID:         req.SystemID,
		ImplementationID: req.ImplementationID,
		Name:             req.Name,
		Description:      req.Description,
		Frequency:        req.Frequency,
		NextRunAt:        req.NextRunAt.TimePtr(),
		Active:           req.Active,
	}
}

// List handles GET /monitoring.
func (h *MonitoringHandler) List(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	active, err := queryBool(c, "active")
	if err != nil {
		return err
	}
	q := parseListQuery(c)
	checks, total, err := h.monitoring.List(c.UserContext(), actor, repository.CheckFilter{
		SystemID:   queryPtr(c, "system_id"),
		Frequency:  queryPtr(c, "frequency"),
		LastResult: queryPtr(c, "last_result"),
		Active:     active,
		Search:     c.Query("search"),
		Page:       q.repoPage(),
	})
	if err != nil {
		return err
	}
	return respondList(c, q, checks, total)
}

// Get handles GET /monitoring/:id.
func (h *MonitoringHandler) Get(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	check, err := h.monitoring.Get(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return respondData(c, http.StatusOK, check)
}

// Create handles POST /monitoring.
func (h *MonitoringHandler) Create(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.CheckRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	check, err := h.monitoring.Create(c.UserContext(), actor, checkInput(req))
	if err != nil {
		return err
	}
	return respondData(c, http.StatusCreated, check)
}

// Update handles PATCH /monitoring/:id.
func (h *MonitoringHandler) Update(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.CheckRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	check, err := h.monitoring.Update(c.UserContext(), actor, c.Params("id"), checkInput(req))
	if err != nil {
		return err
	}
	return respondData(c, http.StatusOK, check)
}

// RecordResult handles POST /monitoring/:id/results.
func (h *MonitoringHandler) RecordResult(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.CheckResultRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	result, err := h.monitoring.RecordResult(c.UserContext(), actor, c.Params("id"), req.Result, req.Notes)
	if err != nil {
		return err
	}
	return respondData(c, http.StatusCreated, result)
}

// ListResults handles GET /monitoring/:id/results.
func (h *MonitoringHandler) ListResults(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	q := parseListQuery(c)
	results, total, err := h.monitoring.ListResults(c.UserContext(), actor, c.Params("id"), q.repoPage())
	if err != nil {
		return err
	}
	return respondList(c, q, results, total)
}

// Due handles GET /monitoring/due.
func (h *MonitoringHandler) Due(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	checks, err := h.monitoring.Due(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return respondData(c, http.StatusOK, checks)
}
