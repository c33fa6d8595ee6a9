package service

import (
	"context"
	"sort"
	"time"

	"github.com/forgecomply/forgecomply360/internal/domain"
	"github.com/forgecomply/forgecomply360/internal/repository"
	"github.com/forgecomply/forgecomply360/pkg/calendar"
	apperrors "github.com/forgecomply/forgecomply360/pkg/util/errorutil"
)

// CalendarEventKind identifies the source of a calendar entry.
type CalendarEventKind string

const (
	CalendarPOAMDue        CalendarEventKind = "poam_due"
	CalendarMilestoneDue   CalendarEventKind = "milestone_due"
	CalendarPolicyReview   CalendarEventKind = "policy_review"
	CalendarEvidenceExpiry CalendarEventKind = "evidence_expiry"
	CalendarCheckDue       CalendarEventKind = "check_due"
	CalendarATOExpiry      CalendarEventKind = "ato_expiry"
)

// CalendarEvent is one dated item shown in a day cell.
type CalendarEvent struct {
	Kind         CalendarEventKind `json:"kind"`
	Title        string            `json:"title"`
	ResourceType string            `json:"resource_type"`
	ResourceID   string            `json:"resource_id"`
	At           time.Time         `json:"at"`
}

// CalendarDay is a grid cell with its events.
type CalendarDay struct {
	calendar.Day
	Events []CalendarEvent `json:"events"`
}

// CalendarMonth is the full 42-cell grid.
type CalendarMonth struct {
	Year  int           `json:"year"`
	Month int           `json:"month"`
	Days  []CalendarDay `json:"days"`
}

// CalendarService collects compliance deadlines into a month grid.
type CalendarService struct {
	poams    repository.POAMRepository
	policies repository.PolicyRepository
	evidence repository.EvidenceRepository
	checks   repository.MonitoringRepository
	systems  repository.SystemRepository
	clock    Clock
}

// CalendarDependencies bundles collaborators.
type CalendarDependencies struct {
	POAMRepo       repository.POAMRepository
	PolicyRepo     repository.PolicyRepository
	EvidenceRepo   repository.EvidenceRepository
	MonitoringRepo repository.MonitoringRepository
	SystemRepo     repository.SystemRepository
	Clock          Clock
}

// NewCalendarService constructs the service.
func NewCalendarService(deps CalendarDependencies) *CalendarService {
	return &CalendarService{
		poams:    deps.POAMRepo,
		policies: deps.PolicyRepo,
		evidence: deps.EvidenceRepo,
		checks:   deps.MonitoringRepo,
		systems:  deps.SystemRepo,
		clock:    clockOr(deps.Clock),
	}
}

// Month returns the grid for year/month with weeks starting on Sunday. A zero
// year and month select the current month.
func (s *CalendarService) Month(ctx context.Context, actor domain.Actor, year, month int) (*CalendarMonth, error) {
	if year == 0 && month == 0 {
		now := s.clock()
		year, month = now.Year(), int(now.Month())
	}
	if month < 1 || month > 12 {
		return nil, apperrors.NewValidationError("month must be between 1 and 12", map[string]any{"month": month})
	}
	days, err := calendar.Days(year, time.Month(month), time.Sunday, s.clock())
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error(), nil)
	}
	from, to, err := calendar.Range(year, time.Month(month), time.Sunday)
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error(), nil)
	}

	collected, err := s.collect(ctx, actor.OrgID, from, to)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	byDay := make(map[string][]CalendarEvent)
	for _, ev := range collected {
		key := ev.At.UTC().Format(time.DateOnly)
		byDay[key] = append(byDay[key], ev)
	}

	out := &CalendarMonth{Year: year, Month: month, Days: make([]CalendarDay, len(days))}
	for i, d := range days {
		dayEvents := byDay[d.Key()]
		sort.SliceStable(dayEvents, func(a, b int) bool { return dayEvents[a].At.Before(dayEvents[b].At) })
		if dayEvents == nil {
			dayEvents = []CalendarEvent{}
		}
		out.Days[i] = CalendarDay{Day: d, Events: dayEvents}
	}
	return out, nil
}

func (s *CalendarService) collect(ctx context.Context, orgID string, from, to time.Time) ([]CalendarEvent, error) {
	var out []CalendarEvent

	poams, err := s.poams.ListScheduledBetween(ctx, orgID, from, to)
	if err != nil {
		return nil, err
	}
	for _, p := range poams {
		out = append(out, CalendarEvent{Kind: CalendarPOAMDue, Title: p.Title, ResourceType: "poam", ResourceID: p.ID, At: *p.ScheduledCompletion})
	}

	milestones, err := s.poams.ListMilestonesDueBetween(ctx, orgID, from, to)
	if err != nil {
		return nil, err
	}
	for _, m := range milestones {
		out = append(out, CalendarEvent{Kind: CalendarMilestoneDue, Title: m.POAMTitle + ": " + m.Title, ResourceType: "poam", ResourceID: m.POAMID, At: m.DueDate})
	}

	policies, err := s.policies.ListReviewBetween(ctx, orgID, from, to)
	if err != nil {
		return nil, err
	}
	for _, p := range policies {
		out = append(out, CalendarEvent{Kind: CalendarPolicyReview, Title: p.Title, ResourceType: "policy", ResourceID: p.ID, At: *p.NextReviewDate})
	}

	evidence, err := s.evidence.ListExpiringBetween(ctx, orgID, from, to)
	if err != nil {
		return nil, err
	}
	for _, e := range evidence {
		out = append(out, CalendarEvent{Kind: CalendarEvidenceExpiry, Title: e.Title, ResourceType: "evidence", ResourceID: e.ID, At: *e.ExpiresAt})
	}

	checks, err := s.checks.ListNextRunBetween(ctx, orgID, from, to)
	if err != nil {
		return nil, err
	}
	for _, c := range checks {
		out = append(out, CalendarEvent{Kind: CalendarCheckDue, Title: c.Name, ResourceType: "monitoring_check", ResourceID: c.ID, At: c.NextRunAt})
	}

	systems, err := s.systems.ListATOExpiringBetween(ctx, orgID, from, to)
	if err != nil {
		return nil, err
	}
	for _, sys := range systems {
		out = append(out, CalendarEvent{Kind: CalendarATOExpiry, Title: sys.Name, ResourceType: "system", ResourceID: sys.ID, At: *sys.ATOExpiry})
	}
	return out, nil
}
