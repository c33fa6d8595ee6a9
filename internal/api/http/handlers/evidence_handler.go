package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/forgecomply/forgecomply360/internal/api/dto"
	"github.com/forgecomply/forgecomply360/internal/repository"
	"github.com/forgecomply/forgecomply360/internal/service"
	apperrors "github.com/forgecomply/forgecomply360/pkg/util/errorutil"
)

// EvidenceHandler exposes evidence upload, download and linking.
type EvidenceHandler struct {
	evidence *service.EvidenceService
}

// NewEvidenceHandler constructs handler.
func NewEvidenceHandler(evidence *service.EvidenceService) *EvidenceHandler {
	return &EvidenceHandler{evidence: evidence}
}

// List handles GET /evidence.
func (h *EvidenceHandler) List(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	q := parseListQuery(c)
	items, total, err := h.evidence.List(c.UserContext(), actor, repository.EvidenceFilter{
		Status:           queryPtr(c, "status"),
		ImplementationID: queryPtr(c, "implementation_id"),
		Search:           c.Query("search"),
		Page:             q.repoPage(),
	})
	if err != nil {
		return err
	}
	return respondList(c, q, items, total)
}

// Get handles GET /evidence/:id.
func (h *EvidenceHandler) Get(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	ev, err := h.evidence.Get(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return respondData(c, http.StatusOK, ev)
}

// Upload handles multipart POST /evidence with a "file" part.
func (h *EvidenceHandler) Upload(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	header, err := c.FormFile("file")
	if err != nil {
		return apperrors.NewValidationError("file is required", nil)
	}
	collectedAt, err := formDate(c, "collected_at")
	if err != nil {
		return err
	}
	expiresAt, err := formDate(c, "expires_at")
	if err != nil {
		return err
	}
	file, err := header.Open()
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	defer file.Close()

	ev, err := h.evidence.Upload(c.UserContext(), actor, service.EvidenceUpload{
		Title:       c.FormValue("title"),
		Description: c.FormValue("description"),
		FileName:    header.Filename,
		MimeType:    header.Header.Get(fiber.HeaderContentType),
		CollectedAt: collectedAt,
		ExpiresAt:   expiresAt,
		Body:        file,
	})
	if err != nil {
		return err
	}
	return respondData(c, http.StatusCreated, ev)
}

// Update handles PATCH /evidence/:id.
func (h *EvidenceHandler) Update(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.EvidenceUpdateRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	ev, err := h.evidence.Update(c.UserContext(), actor, c.Params("id"), service.EvidenceUpdate{
		Title:       req.Title,
		Description: req.Description,
		ExpiresAt:   req.ExpiresAt.TimePtr(),
	})
	if err != nil {
		return err
	}
	return respondData(c, http.StatusOK, ev)
}

// Download handles GET /evidence/:id/download.
func (h *EvidenceHandler) Download(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	ev, body, err := h.evidence.Open(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, ev.MimeType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, strings.ReplaceAll(ev.FileName, `"`, "")))
	c.Set("X-Content-SHA256", ev.SHA256)
	return c.SendStream(body, int(ev.SizeBytes))
}

// Link handles POST /evidence/:id/links.
func (h *EvidenceHandler) Link(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.EvidenceLinkRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := h.evidence.Link(c.UserContext(), actor, c.Params("id"), req.ImplementationID); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// Unlink handles DELETE /evidence/:id/links/:implementationId.
func (h *EvidenceHandler) Unlink(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	if err := h.evidence.Unlink(c.UserContext(), actor, c.Params("id"), c.Params("implementationId")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// Archive handles POST /evidence/:id/archive.
func (h *EvidenceHandler) Archive(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	ev, err := h.evidence.Archive(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return respondData(c, http.StatusOK, ev)
}

func formDate(c *fiber.Ctx, key string) (*time.Time, error) {
	return parseDateValue(key, c.FormValue(key))
}
