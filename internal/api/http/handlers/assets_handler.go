package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/forgecomply/forgecomply360/internal/api/dto"
	"github.com/forgecomply/forgecomply360/internal/repository"
	"github.com/forgecomply/forgecomply360/internal/service"
)

// AssetsHandler exposes the asset inventory.
type AssetsHandler struct {
	assets *service.AssetService
}

// NewAssetsHandler constructs handler.
func NewAssetsHandler(assets *service.AssetService) *AssetsHandler {
	return &AssetsHandler{assets: assets}
}

func assetInput(req dto.AssetRequest) service.AssetInput {
	return service.AssetInput{
		SystemID:        req.SystemID,
		Name:            req.Name,
		AssetType:       req.AssetType,
		Hostname:        req.Hostname,
		IPAddress:       req.IPAddress,
		OperatingSystem: req.OperatingSystem,
		Owner:           req.Owner,
		Environment:     req.Environment,
		Criticality:     req.Criticality,
		Status:          req.Status,
		LastSeenAt:      req.LastSeenAt.TimePtr(),
	}
}

func assetFilter(c *fiber.Ctx, page repository.Page) repository.AssetFilter {
	return repository.AssetFilter{
		AssetType:   queryPtr(c, "asset_type"),
		Environment: queryPtr(c, "environment"),
		Criticality: queryPtr(c, "criticality"),
		SystemID:    queryPtr(c, "system_id"),
		Status:      queryPtr(c, "status"),
		Search:      c.Query("search"),
		Page:        page,
	}
}

// List handles GET /assets.
func (h *AssetsHandler) List(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	q := parseListQuery(c)
	assets, total, err := h.assets.List(c.UserContext(), actor, assetFilter(c, q.repoPage()))
	if err != nil {
		return err
	}
	return respondList(c, q, assets, total)
}

// Get handles GET /assets/:id.
func (h *AssetsHandler) Get(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	asset, err := h.assets.Get(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return respondData(c, http.StatusOK, asset)
}

// Create handles POST /assets.
func (h *AssetsHandler) Create(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.AssetRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	asset, err := h.assets.Create(c.UserContext(), actor, assetInput(req))
	if err != nil {
		return err
	}
	return respondData(c, http.StatusCreated, asset)
}

// Update handles PATCH /assets/:id.
func (h *AssetsHandler) Update(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.AssetRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	asset, err := h.assets.Update(c.UserContext(), actor, c.Params("id"), assetInput(req))
	if err != nil {
		return err
	}
	return respondData(c, http.StatusOK, asset)
}

// Delete handles DELETE /assets/:id.
func (h *AssetsHandler) Delete(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	if err := h.assets.Delete(c.UserContext(), actor, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// Export handles GET /assets/export.csv.
func (h *AssetsHandler) Export(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	header, rows, err := h.assets.Export(c.UserContext(), actor, assetFilter(c, repository.Page{}))
	if err != nil {
		return err
	}
	return sendCSV(c, "assets", header, rows)
}
