package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/forgecomply/forgecomply360/internal/events"
	"github.com/forgecomply/forgecomply360/internal/repository"
)

// SweepRecorder counts items touched by a sweep.
type SweepRecorder interface {
	RecordSweep(kind string, n int)
}

// SweepResult summarizes one pass.
type SweepResult struct {
	EvidenceExpired int `json:"evidence_expired"`
	ChecksDue       int `json:"checks_due"`
	POAMsOverdue    int `json:"poams_overdue"`
}

// SweepService runs the periodic compliance sweep across all orgs.
type SweepService struct {
	evidence   repository.EvidenceRepository
	checks     repository.MonitoringRepository
	poams      repository.POAMRepository
	dispatcher events.Dispatcher
	metrics    SweepRecorder
	logger     *zap.Logger
	clock      Clock
}

// SweepDependencies bundles collaborators.
type SweepDependencies struct {
	EvidenceRepo   repository.EvidenceRepository
	MonitoringRepo repository.MonitoringRepository
	POAMRepo       repository.POAMRepository
	Dispatcher     events.Dispatcher
	Metrics        SweepRecorder
	Logger         *zap.Logger
	Clock          Clock
}

// NewSweepService constructs the service.
func NewSweepService(deps SweepDependencies) *SweepService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SweepService{
		evidence:   deps.EvidenceRepo,
		checks:     deps.MonitoringRepo,
		poams:      deps.POAMRepo,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     logger,
		clock:      clockOr(deps.Clock),
	}
}

// Run expires evidence, announces newly due checks and newly overdue POA&Ms.
// Each item is announced once; the flags reset when the item is rescheduled.
func (s *SweepService) Run(ctx context.Context) (SweepResult, error) {
	var result SweepResult
	now := s.clock()

	expired, err := s.evidence.ExpireDue(ctx, now)
	if err != nil {
		return result, err
	}
	for _, ev := range expired {
		expiresAt := now
		if ev.ExpiresAt != nil {
			expiresAt = *ev.ExpiresAt
		}
		publish(ctx, s.dispatcher, events.Event{
			Type:         events.EventEvidenceExpired,
			OrgID:        ev.OrgID,
			ResourceType: "evidence",
			ResourceID:   ev.ID,
			Payload:      events.EvidenceExpiredPayload{Title: ev.Title, ExpiresAt: expiresAt},
		})
	}
	result.EvidenceExpired = len(expired)

	due, err := s.checks.ListNewlyDue(ctx, now)
	if err != nil {
		return result, err
	}
	for _, check := range due {
		if err := s.checks.MarkDueNotified(ctx, check.ID); err != nil {
			s.logger.Warn("mark check due failed", zap.String("check_id", check.ID), zap.Error(err))
			continue
		}
		publish(ctx, s.dispatcher, events.Event{
			Type:         events.EventCheckDue,
			OrgID:        check.OrgID,
			ResourceType: "monitoring_check",
			ResourceID:   check.ID,
			Payload:      events.CheckDuePayload{Name: check.Name, Frequency: check.Frequency, NextRunAt: check.NextRunAt},
		})
		result.ChecksDue++
	}

	overdue, err := s.poams.ListNewlyOverdue(ctx, now)
	if err != nil {
		return result, err
	}
	for _, poam := range overdue {
		if err := s.poams.MarkOverdueNotified(ctx, poam.ID); err != nil {
			s.logger.Warn("mark poam overdue failed", zap.String("poam_id", poam.ID), zap.Error(err))
			continue
		}
		payload := events.POAMOverduePayload{Title: poam.Title, RiskLevel: poam.RiskLevel}
		if poam.ScheduledCompletion != nil {
			payload.ScheduledCompletion = *poam.ScheduledCompletion
		}
		publish(ctx, s.dispatcher, events.Event{
			Type:         events.EventPOAMOverdue,
			OrgID:        poam.OrgID,
			ResourceType: "poam",
			ResourceID:   poam.ID,
			Payload:      payload,
		})
		result.POAMsOverdue++
	}

	if s.metrics != nil {
		s.metrics.RecordSweep("evidence_expired", result.EvidenceExpired)
		s.metrics.RecordSweep("checks_due", result.ChecksDue)
		s.metrics.RecordSweep("poams_overdue", result.POAMsOverdue)
	}
	s.logger.Info("compliance sweep finished",
		zap.Int("evidence_expired", result.EvidenceExpired),
		zap.Int("checks_due", result.ChecksDue),
		zap.Int("poams_overdue", result.POAMsOverdue))
	return result, nil
}
