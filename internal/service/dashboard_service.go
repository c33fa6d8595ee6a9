package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/forgecomply/forgecomply360/internal/domain"
	"github.com/forgecomply/forgecomply360/internal/persistence"
	"github.com/forgecomply/forgecomply360/internal/repository"
	"github.com/forgecomply/forgecomply360/pkg/timefmt"
	apperrors "github.com/forgecomply/forgecomply360/pkg/util/errorutil"
)

const (
	recentActivityLimit = 10
	expiringWindow      = 30 * 24 * time.Hour
)

// Cache stores JSON snapshots. *persistence.Redis satisfies it.
type Cache interface {
	GetJSON(ctx context.Context, key string, dst any) error
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
}

// DashboardCounts is the cached part of the dashboard.
type DashboardCounts struct {
	Systems                 int            `json:"systems"`
	Controls                int            `json:"controls"`
	ImplementationsByStatus map[string]int `json:"implementations_by_status"`
	CompliancePercent       float64        `json:"compliance_percent"`
	POAMsByStatus           map[string]int `json:"poams_by_status"`
	OverduePOAMs            int            `json:"overdue_poams"`
	EvidenceExpiringSoon    int            `json:"evidence_expiring_soon"`
	PoliciesDueReview       int            `json:"policies_due_review"`
	PendingApprovals        int            `json:"pending_approvals"`
	FailingChecks           int            `json:"failing_checks"`
	GeneratedAt             time.Time      `json:"generated_at"`
}

// ActivityItem is an audit entry with a human readable age.
type ActivityItem struct {
	domain.AuditLogEntry
	RelativeTime string `json:"relative_time"`
}

// Dashboard is the org overview.
type Dashboard struct {
	DashboardCounts
	RecentActivity []ActivityItem `json:"recent_activity"`
}

// DashboardService aggregates org-wide posture.
type DashboardService struct {
	systems         repository.SystemRepository
	controls        repository.ControlRepository
	implementations repository.ImplementationRepository
	poams           repository.POAMRepository
	evidence        repository.EvidenceRepository
	policies        repository.PolicyRepository
	approvals       repository.ApprovalRepository
	checks          repository.MonitoringRepository
	audit           *AuditService
	cache           Cache
	cacheTTL        time.Duration
	logger          *zap.Logger
	clock           Clock
}

// DashboardDependencies bundles collaborators. A nil Cache disables caching.
type DashboardDependencies struct {
	SystemRepo         repository.SystemRepository
	ControlRepo        repository.ControlRepository
	ImplementationRepo repository.ImplementationRepository
	POAMRepo           repository.POAMRepository
	EvidenceRepo       repository.EvidenceRepository
	PolicyRepo         repository.PolicyRepository
	ApprovalRepo       repository.ApprovalRepository
	MonitoringRepo     repository.MonitoringRepository
	Audit              *AuditService
	Cache              Cache
	CacheTTL           time.Duration
	Logger             *zap.Logger
	Clock              Clock
}

// NewDashboardService constructs the service.
func NewDashboardService(deps DashboardDependencies) *DashboardService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		systems:         deps.SystemRepo,
		controls:        deps.ControlRepo,
		implementations: deps.ImplementationRepo,
		poams:           deps.POAMRepo,
		evidence:        deps.EvidenceRepo,
		policies:        deps.PolicyRepo,
		approvals:       deps.ApprovalRepo,
		checks:          deps.MonitoringRepo,
		audit:           deps.Audit,
		cache:           deps.Cache,
		cacheTTL:        deps.CacheTTL,
		logger:          logger,
		clock:           clockOr(deps.Clock),
	}
}

// Get returns the dashboard. Counts come from cache when fresh; activity is
// always read live so relative times stay accurate.
func (s *DashboardService) Get(ctx context.Context, actor domain.Actor) (*Dashboard, error) {
	counts, err := s.cachedCounts(ctx, actor.OrgID)
	if err != nil {
		return nil, err
	}
	entries, err := s.audit.Recent(ctx, actor.OrgID, recentActivityLimit)
	if err != nil {
		return nil, err
	}
	now := s.clock()
	activity := make([]ActivityItem, 0, len(entries))
	for _, e := range entries {
		activity = append(activity, ActivityItem{AuditLogEntry: e, RelativeTime: timefmt.Relative(e.CreatedAt, now)})
	}
	return &Dashboard{DashboardCounts: *counts, RecentActivity: activity}, nil
}

func (s *DashboardService) cachedCounts(ctx context.Context, orgID string) (*DashboardCounts, error) {
	key := "dashboard:" + orgID
	if s.cache != nil {
		var cached DashboardCounts
		err := s.cache.GetJSON(ctx, key, &cached)
		if err == nil {
			return &cached, nil
		}
		if !errors.Is(err, persistence.ErrCacheMiss) {
			s.logger.Warn("dashboard cache read failed", zap.Error(err))
		}
	}
	counts, err := s.counts(ctx, orgID)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, key, counts, s.cacheTTL); err != nil {
			s.logger.Warn("dashboard cache write failed", zap.Error(err))
		}
	}
	return counts, nil
}

func (s *DashboardService) counts(ctx context.Context, orgID string) (*DashboardCounts, error) {
	now := s.clock()
	out := &DashboardCounts{GeneratedAt: now}

	_, systems, err := s.systems.List(ctx, orgID, repository.SystemFilter{Page: repository.Page{Limit: 1}})
	if err != nil {
		return nil, err
	}
	out.Systems = systems

	if out.Controls, err = s.controls.CountControls(ctx); err != nil {
		return nil, err
	}

	implCounts, err := s.implementations.StatusCounts(ctx, orgID, nil)
	if err != nil {
		return nil, err
	}
	summary := summarize("", implCounts, out.Controls*out.Systems)
	out.ImplementationsByStatus = summary.ByStatus
	out.CompliancePercent = summary.PercentCompliance

	poamCounts, err := s.poams.StatusCounts(ctx, orgID)
	if err != nil {
		return nil, err
	}
	out.POAMsByStatus = map[string]int{}
	for _, c := range poamCounts {
		out.POAMsByStatus[c.Status] = c.Count
	}
	if out.OverduePOAMs, err = s.poams.CountOverdue(ctx, orgID, now); err != nil {
		return nil, err
	}
	if out.EvidenceExpiringSoon, err = s.evidence.CountExpiringBetween(ctx, orgID, now, now.Add(expiringWindow)); err != nil {
		return nil, err
	}
	if out.PoliciesDueReview, err = s.policies.CountReviewDue(ctx, orgID, now.Add(expiringWindow)); err != nil {
		return nil, err
	}
	if out.PendingApprovals, err = s.approvals.CountPending(ctx, orgID); err != nil {
		return nil, err
	}
	if out.FailingChecks, err = s.checks.CountFailing(ctx, orgID); err != nil {
		return nil, err
	}
	return out, nil
}
