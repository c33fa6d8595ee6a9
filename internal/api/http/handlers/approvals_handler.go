package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/forgecomply/forgecomply360/internal/api/dto"
	"github.com/forgecomply/forgecomply360/internal/repository"
	"github.com/forgecomply/forgecomply360/internal/service"
)

// ApprovalsHandler exposes the approval workflow.
type ApprovalsHandler struct {
	approvals *service.ApprovalService
}

// NewApprovalsHandler constructs handler.
func NewApprovalsHandler(approvals *service.ApprovalService) *ApprovalsHandler {
	return &ApprovalsHandler{approvals: approvals}
}

// List handles GET /approvals.
func (h *ApprovalsHandler) List(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	q := parseListQuery(c)
	items, total, err := h.approvals.List(c.UserContext(), actor, repository.ApprovalFilter{
		Status:      queryPtr(c, "status"),
		RequestType: queryPtr(c, "request_type"),
		Page:        q.repoPage(),
	})
	if err != nil {
		return err
	}
	return respondList(c, q, items, total)
}

// Get handles GET /approvals/:id.
func (h *ApprovalsHandler) Get(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	approval, err := h.approvals.Get(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return respondData(c, http.StatusOK, approval)
}

// Create handles POST /approvals.
func (h *ApprovalsHandler) Create(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.ApprovalRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	approval, err := h.approvals.Create(c.UserContext(), actor, service.ApprovalInput{
		RequestType:   req.RequestType,
		TargetID:      req.TargetID,
		Justification: req.Justification,
	})
	if err != nil {
		return err
	}
	return respondData(c, http.StatusCreated, approval)
}

// Decide handles POST /approvals/:id/decision.
func (h *ApprovalsHandler) Decide(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.DecisionRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	approval, err := h.approvals.Decide(c.UserContext(), actor, c.Params("id"), service.Decision(req.Decision), req.Comment)
	if err != nil {
		return err
	}
	return respondData(c, http.StatusOK, approval)
}

// Withdraw handles POST /approvals/:id/withdraw.
func (h *ApprovalsHandler) Withdraw(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	approval, err := h.approvals.Withdraw(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return respondData(c, http.StatusOK, approval)
}
