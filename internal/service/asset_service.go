package service

import (
	"context"
	"net"
	"strings"
	"time"

	"github.com/forgecomply/forgecomply360/internal/domain"
	"github.com/forgecomply/forgecomply360/internal/repository"
	apperrors "github.com/forgecomply/forgecomply360/pkg/util/errorutil"
)

// AssetService maintains the asset inventory.
type AssetService struct {
	assets  repository.AssetRepository
	systems repository.SystemRepository
	audit   *AuditService
	clock   Clock
}

// AssetInput carries create and update fields; nil means unchanged.
type AssetInput struct {
	SystemID        *string
	Name            *string
	AssetType       *domain.AssetType
	Hostname        *string
	IPAddress       *string
	OperatingSystem *string
	Owner           *string
	Environment     *domain.Environment
	Criticality     *domain.RiskLevel
	Status          *domain.AssetStatus
	LastSeenAt      *time.Time
}

// NewAssetService constructs the service.
func NewAssetService(assets repository.AssetRepository, systems repository.SystemRepository, audit *AuditService, clock Clock) *AssetService {
	return &AssetService{assets: assets, systems: systems, audit: audit, clock: clockOr(clock)}
}

func (s *AssetService) List(ctx context.Context, actor domain.Actor, filter repository.AssetFilter) ([]domain.Asset, int, error) {
	assets, total, err := s.assets.List(ctx, actor.OrgID, filter)
	if err != nil {
		return nil, 0, apperrors.NewInternalError(err)
	}
	return assets, total, nil
}

func (s *AssetService) Get(ctx context.Context, actor domain.Actor, id string) (*domain.Asset, error) {
	asset, err := s.assets.GetByID(ctx, actor.OrgID, id)
	if err != nil {
		return nil, lookupErr(err, "asset", id)
	}
	return asset, nil
}

func (s *AssetService) Create(ctx context.Context, actor domain.Actor, input AssetInput) (*domain.Asset, error) {
	if input.Name == nil || strings.TrimSpace(*input.Name) == "" {
		return nil, apperrors.NewValidationError("name is required", nil)
	}
	if input.AssetType == nil {
		return nil, apperrors.NewValidationError("asset_type is required", nil)
	}
	now := s.clock()
	asset := &domain.Asset{
		ID:          newID(),
		OrgID:       actor.OrgID,
		Environment: domain.EnvProduction,
		Criticality: domain.RiskModerate,
		Status:      domain.AssetActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.apply(ctx, actor, asset, input); err != nil {
		return nil, err
	}
	if err := s.assets.Create(ctx, asset); err != nil {
		return nil, storeErr(err, "asset")
	}
	s.audit.Record(ctx, actor, "create", "asset", asset.ID, map[string]any{"name": asset.Name, "asset_type": asset.AssetType})
	return asset, nil
}

func (s *AssetService) Update(ctx context.Context, actor domain.Actor, id string, input AssetInput) (*domain.Asset, error) {
	asset, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(ctx, actor, asset, input); err != nil {
		return nil, err
	}
	asset.UpdatedAt = s.clock()
	if err := s.assets.Update(ctx, asset); err != nil {
		return nil, storeErr(err, "asset")
	}
	s.audit.Record(ctx, actor, "update", "asset", asset.ID, nil)
	return asset, nil
}

func (s *AssetService) Delete(ctx context.Context, actor domain.Actor, id string) error {
	if err := s.assets.Delete(ctx, actor.OrgID, id); err != nil {
		return lookupErr(err, "asset", id)
	}
	s.audit.Record(ctx, actor, "delete", "asset", id, nil)
	return nil
}

// Export returns the filtered inventory as CSV rows.
func (s *AssetService) Export(ctx context.Context, actor domain.Actor, filter repository.AssetFilter) ([]string, [][]string, error) {
	assets, err := s.assets.ListAll(ctx, actor.OrgID, filter)
	if err != nil {
		return nil, nil, apperrors.NewInternalError(err)
	}
	header := []string{"id", "name", "asset_type", "hostname", "ip_address", "operating_system", "owner", "environment", "criticality", "status", "system_id", "last_seen_at"}
	rows := make([][]string, 0, len(assets))
	for _, a := range assets {
		lastSeen := ""
		if a.LastSeenAt != nil {
			lastSeen = a.LastSeenAt.Format(time.RFC3339)
		}
		rows = append(rows, []string{
			a.ID, a.Name, string(a.AssetType), a.Hostname, a.IPAddress, a.OperatingSystem, a.Owner,
			string(a.Environment), string(a.Criticality), string(a.Status), deref(a.SystemID), lastSeen,
		})
	}
	s.audit.Record(ctx, actor, "export", "asset", "", map[string]any{"rows": len(rows)})
	return header, rows, nil
}

func (s *AssetService) apply(ctx context.Context, actor domain.Actor, asset *domain.Asset, input AssetInput) error {
	if input.SystemID != nil {
		asset.SystemID = emptyToNil(input.SystemID)
		if asset.SystemID != nil {
			if _, err := s.systems.GetByID(ctx, actor.OrgID, *asset.SystemID); err != nil {
				if apperrors.IsNotFound(err) {
					return apperrors.NewValidationError("system_id does not exist", map[string]any{"system_id": *asset.SystemID})
				}
				return apperrors.NewInternalError(err)
			}
		}
	}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return apperrors.NewValidationError("name cannot be empty", nil)
		}
		asset.Name = name
	}
	if input.AssetType != nil {
		if !input.AssetType.Valid() {
			return apperrors.NewValidationError("invalid asset_type", map[string]any{"asset_type": *input.AssetType})
		}
		asset.AssetType = *input.AssetType
	}
	if input.Hostname != nil {
		asset.Hostname = strings.TrimSpace(*input.Hostname)
	}
	if input.IPAddress != nil {
		ip := strings.TrimSpace(*input.IPAddress)
		if ip != "" && net.ParseIP(ip) == nil {
			return apperrors.NewValidationError("invalid ip_address", map[string]any{"ip_address": ip})
		}
		asset.IPAddress = ip
	}
	if input.OperatingSystem != nil {
		asset.OperatingSystem = strings.TrimSpace(*input.OperatingSystem)
	}
	if input.Owner != nil {
		asset.Owner = strings.TrimSpace(*input.Owner)
	}
	if input.Environment != nil {
		if !input.Environment.Valid() {
			return apperrors.NewValidationError("invalid environment", map[string]any{"environment": *input.Environment})
		}
		asset.Environment = *input.Environment
	}
	if input.Criticality != nil {
		if !input.Criticality.Valid() {
			return apperrors.NewValidationError("invalid criticality", map[string]any{"criticality": *input.Criticality})
		}
		asset.Criticality = *input.Criticality
	}
	if input.Status != nil {
		if !input.Status.Valid() {
			return apperrors.NewValidationError("invalid status", map[string]any{"status": *input.Status})
		}
		asset.Status = *input.Status
	}
	if input.LastSeenAt != nil {
		asset.LastSeenAt = timePtr(input.LastSeenAt.UTC())
	}
	return nil
}
