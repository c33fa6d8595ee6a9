package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/forgecomply/forgecomply360/internal/api/dto"
	"github.com/forgecomply/forgecomply360/internal/repository"
	"github.com/forgecomply/forgecomply360/internal/service"
	"github.com/forgecomply/forgecomply360/pkg/inheritance"
)

// SystemsHandler exposes systems, their implementations and the inheritance tree.
type SystemsHandler struct {
	systems         *service.SystemService
	implementations *service.ImplementationService
}

// NewSystemsHandler constructs handler.
func NewSystemsHandler(systems *service.SystemService, implementations *service.ImplementationService) *SystemsHandler {
	return &SystemsHandler{systems: systems, implementations: implementations}
}

func systemInput(req dto.SystemRequest) service.SystemInput {
	return service.SystemInput{
		Name:                  req.Name,
		Acronym:               req.Acronym,
		Description:           req.Description,
		ImpactLevel:           req.ImpactLevel,
		Status:                req.Status,
		AuthorizationStatus:   req.AuthorizationStatus,
		ATODate:               req.ATODate.TimePtr(),
		ATOExpiry:             req.ATOExpiry.TimePtr(),
		CommonControlProvider: req.CommonControlProvider,
	}
}

// List handles GET /systems.
func (h *SystemsHandler) List(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	q := parseListQuery(c)
	systems, total, err := h.systems.List(c.UserContext(), actor, repository.SystemFilter{
		Status: queryPtr(c, "status"),
		Search: c.Query("search"),
		Page:   q.repoPage(),
	})
	if err != nil {
		return err
	}
	return respondList(c, q, systems, total)
}

// Get handles GET /systems/:id.
func (h *SystemsHandler) Get(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	system, err := h.systems.Get(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return respondData(c, http.StatusOK, system)
}

// Create handles POST /systems.
func (h *SystemsHandler) Create(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.SystemRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	system, err := h.systems.Create(c.UserContext(), actor, systemInput(req))
	if err != nil {
		return err
	}
	return respondData(c, http.StatusCreated, system)
}

// Update handles PATCH /systems/:id.
func (h *SystemsHandler) Update(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.SystemRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	system, err := h.systems.Update(c.UserContext(), actor, c.Params("id"), systemInput(req))
	if err != nil {
		return err
	}
	return respondData(c, http.StatusOK, system)
}

// Delete handles DELETE /systems/:id.
func (h *SystemsHandler) Delete(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	if err := h.systems.Delete(c.UserContext(), actor, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// Compliance handles GET /systems/:id/compliance.
func (h *SystemsHandler) Compliance(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	summary, err := h.systems.Compliance(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return respondData(c, http.StatusOK, summary)
}

// Inheritance handles GET /systems/inheritance.
func (h *SystemsHandler) Inheritance(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	layout, err := h.systems.InheritanceTree(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return respondData(c, http.StatusOK, layout)
}

// InheritanceSVG handles GET /systems/inheritance.svg.
func (h *SystemsHandler) InheritanceSVG(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	layout, err := h.systems.InheritanceTree(c.UserContext(), actor)
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, "image/svg+xml")
	return c.Send(inheritance.RenderSVG(layout))
}

// ListImplementations handles GET /systems/:id/implementations.
func (h *SystemsHandler) ListImplementations(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	q := parseListQuery(c)
	items, total, err := h.implementations.ListBySystem(c.UserContext(), actor, c.Params("id"), repository.ImplementationFilter{
		Status: queryPtr(c, "status"),
		Family: queryPtr(c, "family"),
		Search: c.Query("search"),
		Page:   q.repoPage(),
	})
	if err != nil {
		return err
	}
	return respondList(c, q, items, total)
}

func implementationInput(req dto.ImplementationRequest) service.ImplementationInput {
	return service.ImplementationInput{
		Status:                req.Status,
		Origination:           req.Origination,
		InheritedFromSystemID: req.InheritedFromSystemID,
		ResponsibleRole:       req.ResponsibleRole,
		Narrative:             req.Narrative,
	}
}

// UpsertImplementation handles PUT /systems/:id/implementations/:controlId.
func (h *SystemsHandler) UpsertImplementation(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.ImplementationRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	impl, err := h.implementations.Upsert(c.UserContext(), actor, c.Params("id"), c.Params("controlId"), implementationInput(req))
	if err != nil {
		return err
	}
	return respondData(c, http.StatusOK, impl)
}

// BulkImplementations handles POST /systems/:id/implementations/bulk.
func (h *SystemsHandler) BulkImplementations(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.BulkImplementationRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	result, err := h.implementations.Bulk(c.UserContext(), actor, c.Params("id"), req.ControlIDs, implementationInput(req.ImplementationRequest))
	if err != nil {
		return err
	}
	return respondData(c, http.StatusOK, result)
}
