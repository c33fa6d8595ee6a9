package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/forgecomply/forgecomply360/internal/api/dto"
	"github.com/forgecomply/forgecomply360/internal/repository"
	"github.com/forgecomply/forgecomply360/internal/service"
)

// PoliciesHandler exposes the policy library.
type PoliciesHandler struct {
	policies *service.PolicyService
}

// NewPoliciesHandler constructs handler.
func NewPoliciesHandler(policies *service.PolicyService) *PoliciesHandler {
	return &PoliciesHandler{policies: policies}
}

func policyInput(req dto.PolicyRequest) service.PolicyInput {
	return service.PolicyInput{
		Title:          req.Title,
		Category:       req.Category,
		Version:        req.Version,
		Content:        req.Content,
		OwnerID:        req.OwnerID,
		NextReviewDate: req.NextReviewDate.TimePtr(),
	}
}

// List handles GET /policies.
func (h *PoliciesHandler) List(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	q := parseListQuery(c)
	policies, total, err := h.policies.List(c.UserContext(), actor, repository.PolicyFilter{
		Status:   queryPtr(c, "status"),
		Category: queryPtr(c, "category"),
		Search:   c.Query("search"),
		Page:     q.repoPage(),
	})
	if err != nil {
		return err
	}
	return respondList(c, q, policies, total)
}

// Get handles GET /policies/:id.
func (h *PoliciesHandler) Get(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	policy, err := h.policies.Get(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return respondData(c, http.StatusOK, policy)
}

// Create handles POST /policies.
func (h *PoliciesHandler) Create(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.PolicyRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	policy, err := h.policies.Create(c.UserContext(), actor, policyInput(req))
	if err != nil {
		return err
	}
	return respondData(c, http.StatusCreated, policy)
}

// Update handles PATCH /policies/:id.
func (h *PoliciesHandler) Update(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.PolicyRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	policy, err := h.policies.Update(c.UserContext(), actor, c.Params("id"), policyInput(req))
	if err != nil {
		return err
	}
	return respondData(c, http.StatusOK, policy)
}

// Render handles GET /policies/:id/render.
func (h *PoliciesHandler) Render(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	html, err := h.policies.Render(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return respondData(c, http.StatusOK, fiber.Map{"html": html})
}

// Submit handles POST /policies/:id/submit.
func (h *PoliciesHandler) Submit(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.SubmitPolicyRequest
	if len(c.Body()) > 0 {
		if err := bind(c, &req); err != nil {
			return err
		}
	}
	approval, err := h.policies.Submit(c.UserContext(), actor, c.Params("id"), req.Justification)
	if err != nil {
		return err
	}
	return respondData(c, http.StatusCreated, approval)
}

// Retire handles POST /policies/:id/retire.
func (h *PoliciesHandler) Retire(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	policy, err := h.policies.Retire(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return respondData(c, http.StatusOK, policy)
}
