package handlers

import (
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/forgecomply/forgecomply360/internal/repository"
	"github.com/forgecomply/forgecomply360/internal/service"
	"github.com/forgecomply/forgecomply360/pkg/timefmt"
)

// AuditHandler exposes the audit log.
type AuditHandler struct {
	audit *service.AuditService
}

// NewAuditHandler constructs handler.
func NewAuditHandler(audit *service.AuditService) *AuditHandler {
	return &AuditHandler{audit: audit}
}

func auditFilter(c *fiber.Ctx, page repository.Page) (repository.AuditFilter, error) {
	from, err := queryTime(c, "from")
	if err != nil {
		return repository.AuditFilter{}, err
	}
	to, err := queryTime(c, "to")
	if err != nil {
		return repository.AuditFilter{}, err
	}
	return repository.AuditFilter{
		Action:       queryPtr(c, "action"),
		ResourceType: queryPtr(c, "resource_type"),
		UserID:       queryPtr(c, "user_id"),
		From:         from,
		To:           to,
		Page:         page,
	}, nil
}

// List handles GET /audit-log.
func (h *AuditHandler) List(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	q := parseListQuery(c)
	filter, err := auditFilter(c, q.repoPage())
	if err != nil {
		return err
	}
	entries, total, err := h.audit.List(c.UserContext(), actor, filter)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	items := make([]service.ActivityItem, 0, len(entries))
	for _, e := range entries {
		items = append(items, service.ActivityItem{AuditLogEntry: e, RelativeTime: timefmt.Relative(e.CreatedAt, now)})
	}
	return respondList(c, q, items, total)
}

// Export handles GET /audit-log/export.csv.
func (h *AuditHandler) Export(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	filter, err := auditFilter(c, repository.Page{})
	if err != nil {
		return err
	}
	entries, err := h.audit.Export(c.UserContext(), actor, filter)
	if err != nil {
		return err
	}
	header := []string{"id", "created_at", "user_id", "action", "resource_type", "resource_id", "ip_address", "user_agent", "details"}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		userID := ""
		if e.UserID != nil {
			userID = *e.UserID
		}
		details := ""
		if len(e.Details) > 0 {
			raw, _ := json.Marshal(e.Details)
			details = string(raw)
		}
		rows = append(rows, []string{
			e.ID, e.CreatedAt.Format(time.RFC3339), userID, e.Action, e.ResourceType, e.ResourceID, e.IPAddress, e.UserAgent, details,
		})
	}
	return sendCSV(c, "audit-log", header, rows)
}
