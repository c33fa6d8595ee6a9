package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/forgecomply/forgecomply360/internal/catalog"
	"github.com/forgecomply/forgecomply360/internal/domain"
	"github.com/forgecomply/forgecomply360/internal/repository"
	apperrors "github.com/forgecomply/forgecomply360/pkg/util/errorutil"
)

// CatalogService exposes frameworks and controls, which are shared by all orgs.
type CatalogService struct {
	controls repository.ControlRepository
	logger   *zap.Logger
	clock    Clock
}

// ImportResult reports what a catalog import touched.
type ImportResult struct {
	FrameworkID string `json:"framework_id"`
	Controls    int    `json:"controls"`
}

// NewCatalogService constructs the service.
func NewCatalogService(controls repository.ControlRepository, logger *zap.Logger, clock Clock) *CatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{controls: controls, logger: logger, clock: clockOr(clock)}
}

func (s *CatalogService) ListFrameworks(ctx context.Context) ([]domain.Framework, error) {
	frameworks, err := s.controls.ListFrameworks(ctx)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return frameworks, nil
}

func (s *CatalogService) ListControls(ctx context.Context, filter repository.ControlFilter) ([]domain.Control, int, error) {
	controls, total, err := s.controls.ListControls(ctx, filter)
	if err != nil {
		return nil, 0, apperrors.NewInternalError(err)
	}
	return controls, total, nil
}

func (s *CatalogService) GetControl(ctx context.Context, id string) (*domain.Control, error) {
	control, err := s.controls.GetControl(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "control", id)
	}
	return control, nil
}

// Import upserts the framework and each control keyed by (framework, ref).
// Re-importing the same document is idempotent.
func (s *CatalogService) Import(ctx context.Context, doc *catalog.Document) (*ImportResult, error) {
	if err := doc.Validate(); err != nil {
		return nil, apperrors.NewValidationError(err.Error(), nil)
	}
	now := s.clock()
	fw := &domain.Framework{
		ID:          newID(),
		Name:        doc.Framework.Name,
		Version:     doc.Framework.Version,
		Description: doc.Framework.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.controls.UpsertFramework(ctx, fw); err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	for _, spec := range doc.Controls {
		control := &domain.Control{
			ID:          newID(),
			FrameworkID: fw.ID,
			ControlRef:  spec.Ref,
			Family:      spec.Family,
			Title:       spec.Title,
			Description: spec.Description,
			Baseline:    domain.Baseline(spec.Baseline),
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := s.controls.UpsertControl(ctx, control); err != nil {
			return nil, apperrors.NewInternalError(err)
		}
	}
	s.logger.Info("catalog imported",
		zap.String("framework", fw.Name),
		zap.String("version", fw.Version),
		zap.Int("controls", len(doc.Controls)))
	return &ImportResult{FrameworkID: fw.ID, Controls: len(doc.Controls)}, nil
}
