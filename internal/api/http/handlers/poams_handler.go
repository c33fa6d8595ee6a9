package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/forgecomply/forgecomply360/internal/api/dto"
	"github.com/forgecomply/forgecomply360/internal/repository"
	"github.com/forgecomply/forgecomply360/internal/service"
)

// POAMsHandler exposes plans of action and milestones.
type POAMsHandler struct {
	poams *service.POAMService
}

// NewPOAMsHandler constructs handler.
func NewPOAMsHandler(poams *service.POAMService) *POAMsHandler {
	return &POAMsHandler{poams: poams}
}

func poamInput(req dto.POAMRequest) service.POAMInput {
	return service.POAMInput{
		SystemID:            req.SystemID,
		ControlID:           req.ControlID,
		Title:               req.Title,
		Description:         req.Description,
		WeaknessSource:      req.WeaknessSource,
		RiskLevel:           req.RiskLevel,
		ScheduledCompletion: req.ScheduledCompletion.TimePtr(),
		AssignedTo:          req.AssignedTo,
	}
}

func poamFilter(c *fiber.Ctx, page repository.Page) (repository.POAMFilter, error) {
	filter := repository.POAMFilter{
		Status:    queryPtr(c, "status"),
		RiskLevel: queryPtr(c, "risk_level"),
		SystemID:  queryPtr(c, "system_id"),
		Search:    c.Query("search"),
		Page:      page,
	}
	overdue, err := queryBool(c, "overdue")
	if err != nil {
		return filter, err
	}
	filter.Overdue = overdue != nil && *overdue
	return filter, nil
}

// List handles GET /poams.
func (h *POAMsHandler) List(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	q := parseListQuery(c)
	filter, err := poamFilter(c, q.repoPage())
	if err != nil {
		return err
	}
	poams, total, err := h.poams.List(c.UserContext(), actor, filter)
	if err != nil {
		return err
	}
	return respondList(c, q, poams, total)
}

// Get handles GET /poams/:id.
func (h *POAMsHandler) Get(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	poam, err := h.poams.Get(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return respondData(c, http.StatusOK, poam)
}

// Create handles POST /poams.
func (h *POAMsHandler) Create(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.POAMRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	poam, err := h.poams.Create(c.UserContext(), actor, poamInput(req))
	if err != nil {
		return err
	}
	return respondData(c, http.StatusCreated, poam)
}

// Update handles PATCH /poams/:id.
func (h *POAMsHandler) Update(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.POAMRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	poam, err := h.poams.Update(c.UserContext(), actor, c.Params("id"), poamInput(req))
	if err != nil {
		return err
	}
	return respondData(c, http.StatusOK, poam)
}

// ChangeStatus handles POST /poams/:id/status.
func (h *POAMsHandler) ChangeStatus(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.POAMStatusRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	poam, err := h.poams.ChangeStatus(c.UserContext(), actor, c.Params("id"), req.Status)
	if err != nil {
		return err
	}
	return respondData(c, http.StatusOK, poam)
}

// Delete handles DELETE /poams/:id.
func (h *POAMsHandler) Delete(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	if err := h.poams.Delete(c.UserContext(), actor, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// AddMilestone handles POST /poams/:id/milestones.
func (h *POAMsHandler) AddMilestone(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.MilestoneRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	milestone, err := h.poams.AddMilestone(c.UserContext(), actor, c.Params("id"), service.MilestoneInput{
		Title:   req.Title,
		DueDate: req.DueDate.Time,
	})
	if err != nil {
		return err
	}
	return respondData(c, http.StatusCreated, milestone)
}

// CompleteMilestone handles POST /poams/:id/milestones/:milestoneId/complete.
func (h *POAMsHandler) CompleteMilestone(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	milestone, err := h.poams.CompleteMilestone(c.UserContext(), actor, c.Params("id"), c.Params("milestoneId"))
	if err != nil {
		return err
	}
	return respondData(c, http.StatusOK, milestone)
}

// Export handles GET /poams/export.csv.
func (h *POAMsHandler) Export(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	filter, err := poamFilter(c, repository.Page{})
	if err != nil {
		return err
	}
	header, rows, err := h.poams.Export(c.UserContext(), actor, filter)
	if err != nil {
		return err
	}
	return sendCSV(c, "poams", header, rows)
}
