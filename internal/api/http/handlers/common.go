package handlers

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/forgecomply/forgecomply360/internal/api/dto"
	"github.com/forgecomply/forgecomply360/internal/auth"
	"github.com/forgecomply/forgecomply360/internal/domain"
	"github.com/forgecomply/forgecomply360/internal/repository"
	"github.com/forgecomply/forgecomply360/pkg/csvexport"
	"github.com/forgecomply/forgecomply360/pkg/pagination"
	apperrors "github.com/forgecomply/forgecomply360/pkg/util/errorutil"
)

// bind decodes the JSON body into dst and runs tag validation.
func bind(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return apperrors.NewValidationError("invalid payload", map[string]any{"reason": err.Error()})
	}
	return dto.Validate(dst)
}

func actorFrom(c *fiber.Ctx) (domain.Actor, error) {
	principal, err := auth.MustPrincipal(c)
	if err != nil {
		return domain.Actor{}, err
	}
	return principal.Actor(c), nil
}

// listQuery holds normalized page and limit query values.
type listQuery struct {
	page  int
	limit int
}

func parseListQuery(c *fiber.Ctx) listQuery {
	page, limit := pagination.Normalize(c.QueryInt("page", 1), c.QueryInt("limit", pagination.DefaultLimit))
	return listQuery{page: page, limit: limit}
}

func (q listQuery) repoPage() repository.Page {
	return repository.Page{Limit: q.limit, Offset: (q.page - 1) * q.limit}
}

func respondList[T any](c *fiber.Ctx, q listQuery, items []T, total int) error {
	return c.JSON(dto.NewListResponse(items, pagination.New(q.page, q.limit, total)))
}

func respondData(c *fiber.Ctx, status int, data any) error {
	return c.Status(status).JSON(fiber.Map{"data": data})
}

// queryPtr returns nil for an absent or blank query value.
func queryPtr(c *fiber.Ctx, key string) *string {
	v := strings.TrimSpace(c.Query(key))
	if v == "" {
		return nil
	}
	return &v
}

func queryTime(c *fiber.Ctx, key string) (*time.Time, error) {
	return parseDateValue(key, c.Query(key))
}

// parseDateValue accepts RFC 3339 or YYYY-MM-DD; blank yields nil.
func parseDateValue(key, raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, apperrors.NewValidationError("invalid "+key, map[string]any{key: raw})
}

func queryBool(c *fiber.Ctx, key string) (*bool, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid "+key, map[string]any{key: raw})
	}
	return &v, nil
}

// sendCSV streams rows as an attachment named name-YYYYMMDD.csv.
func sendCSV(c *fiber.Ctx, name string, header []string, rows [][]string) error {
	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s-%s.csv"`, name, time.Now().UTC().Format("20060102")))
	return csvexport.Write(c, header, rows)
}
