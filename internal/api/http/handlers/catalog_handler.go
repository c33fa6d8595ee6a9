package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/forgecomply/forgecomply360/internal/repository"
	"github.com/forgecomply/forgecomply360/internal/service"
)

// CatalogHandler exposes frameworks and controls.
type CatalogHandler struct {
	catalog *service.CatalogService
}

// NewCatalogHandler constructs handler.
func NewCatalogHandler(catalog *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// ListFrameworks handles GET /frameworks.
func (h *CatalogHandler) ListFrameworks(c *fiber.Ctx) error {
	frameworks, err := h.catalog.ListFrameworks(c.UserContext())
	if err != nil {
		return err
	}
	return respondData(c, http.StatusOK, frameworks)
}

// ListControls handles GET /controls.
func (h *CatalogHandler) ListControls(c *fiber.Ctx) error {
	q := parseListQuery(c)
	controls, total, err := h.catalog.ListControls(c.UserContext(), repository.ControlFilter{
		FrameworkID: queryPtr(c, "framework_id"),
		Family:      queryPtr(c, "family"),
		Baseline:    queryPtr(c, "baseline"),
		Search:      c.Query("search"),
		Page:        q.repoPage(),
	})
	if err != nil {
		return err
	}
	return respondList(c, q, controls, total)
}

// GetControl handles GET /controls/:id.
func (h *CatalogHandler) GetControl(c *fiber.Ctx) error {
	control, err := h.catalog.GetControl(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return respondData(c, http.StatusOK, control)
}
