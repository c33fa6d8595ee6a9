package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/forgecomply/forgecomply360/internal/domain"
)

// POAMFilter narrows POA&M listings.
type POAMFilter struct {
	Status    *string
	RiskLevel *string
	SystemID  *string
	// Overdue asks the service to fill OverdueAt with its current time.
	Overdue bool
	// OverdueAt, when set, keeps only open items scheduled before it.
	OverdueAt *time.Time
	Search    string
	Page      Page
}

// POAMRepository persists POA&Ms and their milestones.
type POAMRepository interface {
	Create(ctx context.Context, poam *domain.POAM) error
	Update(ctx context.Context, poam *domain.POAM) error
	Delete(ctx context.Context, orgID, id string) error
	GetByID(ctx context.Context, orgID, id string) (*domain.POAM, error)
	List(ctx context.Context, orgID string, filter POAMFilter) ([]domain.POAM, int, error)
	ListAll(ctx context.Context, orgID string, filter POAMFilter) ([]domain.POAM, error)
	StatusCounts(ctx context.Context, orgID string) ([]StatusCount, error)
	CountOverdue(ctx context.Context, orgID string, now time.Time) (int, error)
	ListNewlyOverdue(ctx context.Context, now time.Time) ([]domain.POAM, error)
	MarkOverdueNotified(ctx context.Context, id string) error
	ListScheduledBetween(ctx context.Context, orgID string, from, to time.Time) ([]domain.POAM, error)

	AddMilestone(ctx context.Context, m *domain.Milestone) error
	UpdateMilestone(ctx context.Context, m *domain.Milestone) error
	GetMilestone(ctx context.Context, poamID, id string) (*domain.Milestone, error)
	ListMilestones(ctx context.Context, poamID string) ([]domain.Milestone, error)
	ListMilestonesDueBetween(ctx context.Context, orgID string, from, to time.Time) ([]MilestoneDue, error)
}

// MilestoneDue is a milestone with its parent POA&M title for calendars.
type MilestoneDue struct {
	domain.Milestone
	POAMTitle string `db:"poam_title"`
}

type poamRepository struct {
	db queryer
}

// NewPOAMRepository builds the repository.
func NewPOAMRepository(db *sqlx.DB) POAMRepository {
	return &poamRepository{db: db}
}

const poamColumns = `id, org_id, system_id, control_id, title, description, weakness_source, risk_level, status,
        scheduled_completion, actual_completion, assigned_to, overdue_notified, created_at, updated_at`

var openPOAMStatuses = []string{
	string(domain.POAMStatusDraft),
	string(domain.POAMStatusOpen),
	string(domain.POAMStatusInProgress),
}

func (r *poamRepository) Create(ctx context.Context, poam *domain.POAM) error {
	_, err := r.db.NamedExecContext(ctx, `
        INSERT INTO poams (`+poamColumns+`)
        VALUES (:id, :org_id, :system_id, :control_id, :title, :description, :weakness_source, :risk_level, :status,
                :scheduled_completion, :actual_completion, :assigned_to, :overdue_notified, :created_at, :updated_at)`, poam)
	return err
}

func (r *poamRepository) Update(ctx context.Context, poam *domain.POAM) error {
	const query = `
        UPDATE poams SET control_id=?, title=?, description=?, weakness_source=?, risk_level=?, status=?,
            scheduled_completion=?, actual_completion=?, assigned_to=?, overdue_notified=?, updated_at=?
        WHERE id=? AND org_id=?`
	return execOne(ctx, r.db, query,
		poam.ControlID,
		poam.Title,
		poam.Description,
		poam.WeaknessSource,
		poam.RiskLevel,
		poam.Status,
		poam.ScheduledCompletion,
		poam.ActualCompletion,
		poam.AssignedTo,
		poam.OverdueNotified,
		poam.UpdatedAt,
		poam.ID,
		poam.OrgID,
	)
}

func (r *poamRepository) Delete(ctx context.Context, orgID, id string) error {
	return execOne(ctx, r.db, `DELETE FROM poams WHERE id=? AND org_id=?`, id, orgID)
}

func (r *poamRepository) GetByID(ctx context.Context, orgID, id string) (*domain.POAM, error) {
	var poam domain.POAM
	query := r.db.Rebind(`SELECT ` + poamColumns + ` FROM poams WHERE id=? AND org_id=?`)
	if err := r.db.GetContext(ctx, &poam, query, id, orgID); err != nil {
		return nil, err
	}
	return &poam, nil
}

func (r *poamRepository) where(orgID string, filter POAMFilter) *whereBuilder {
	where := newWhere("org_id = ?", orgID)
	where.eq("status", filter.Status)
	where.eq("risk_level", filter.RiskLevel)
	where.eq("system_id", filter.SystemID)
	if filter.OverdueAt != nil {
		where.add("scheduled_completion IS NOT NULL AND scheduled_completion < ?", *filter.OverdueAt)
		where.in("status", openPOAMStatuses)
	}
	where.search(filter.Search, "title", "description", "weakness_source")
	return where
}

func (r *poamRepository) List(ctx context.Context, orgID string, filter POAMFilter) ([]domain.POAM, int, error) {
	return selectPage[domain.POAM](ctx, r.db,
		`SELECT `+poamColumns+` FROM poams`,
		`SELECT COUNT(*) FROM poams`,
		"created_at DESC", r.where(orgID, filter), filter.Page)
}

// ListAll returns every matching POA&M without paging, for exports.
func (r *poamRepository) ListAll(ctx context.Context, orgID string, filter POAMFilter) ([]domain.POAM, error) {
	where := r.where(orgID, filter)
	poams := []domain.POAM{}
	query := r.db.Rebind(`SELECT ` + poamColumns + ` FROM poams` + where.sql() + ` ORDER BY created_at DESC`)
	err := r.db.SelectContext(ctx, &poams, query, where.args...)
	return poams, err
}

func (r *poamRepository) StatusCounts(ctx context.Context, orgID string) ([]StatusCount, error) {
	counts := []StatusCount{}
	query := r.db.Rebind(`SELECT status, COUNT(*) AS count FROM poams WHERE org_id=? GROUP BY status ORDER BY status`)
	err := r.db.SelectContext(ctx, &counts, query, orgID)
	return counts, err
}

func (r *poamRepository) CountOverdue(ctx context.Context, orgID string, now time.Time) (int, error) {
	where := r.where(orgID, POAMFilter{OverdueAt: &now})
	var n int
	err := r.db.GetContext(ctx, &n, r.db.Rebind(`SELECT COUNT(*) FROM poams`+where.sql()), where.args...)
	return n, err
}

// ListNewlyOverdue returns overdue POA&Ms across all orgs that have not been
// announced yet.
func (r *poamRepository) ListNewlyOverdue(ctx context.Context, now time.Time) ([]domain.POAM, error) {
	where := newWhere("overdue_notified = ?", false)
	where.add("scheduled_completion IS NOT NULL AND scheduled_completion < ?", now)
	where.in("status", openPOAMStatuses)
	poams := []domain.POAM{}
	query := r.db.Rebind(`SELECT ` + poamColumns + ` FROM poams` + where.sql() + ` ORDER BY scheduled_completion ASC`)
	err := r.db.SelectContext(ctx, &poams, query, where.args...)
	return poams, err
}

func (r *poamRepository) MarkOverdueNotified(ctx context.Context, id string) error {
	return execOne(ctx, r.db, `UPDATE poams SET overdue_notified=? WHERE id=?`, true, id)
}

func (r *poamRepository) ListScheduledBetween(ctx context.Context, orgID string, from, to time.Time) ([]domain.POAM, error) {
	poams := []domain.POAM{}
	query := r.db.Rebind(`SELECT ` + poamColumns + ` FROM poams
        WHERE org_id=? AND scheduled_completion IS NOT NULL AND scheduled_completion >= ? AND scheduled_completion < ?
        ORDER BY scheduled_completion ASC`)
	err := r.db.SelectContext(ctx, &poams, query, orgID, from, to)
	return poams, err
}

const milestoneColumns = `id, poam_id, title, due_date, status, completed_at, created_at, updated_at`

func (r *poamRepository) AddMilestone(ctx context.Context, m *domain.Milestone) error {
	_, err := r.db.NamedExecContext(ctx, `
        INSERT INTO poam_milestones (`+milestoneColumns+`)
        VALUES (:id, :poam_id, :title, :due_date, :status, :completed_at, :created_at, :updated_at)`, m)
	return err
}

func (r *poamRepository) UpdateMilestone(ctx context.Context, m *domain.Milestone) error {
	return execOne(ctx, r.db, `
        UPDATE poam_milestones SET title=?, due_date=?, status=?, completed_at=?, updated_at=?
        WHERE id=? AND poam_id=?`,
		m.Title, m.DueDate, m.Status, m.CompletedAt, m.UpdatedAt, m.ID, m.POAMID)
}

func (r *poamRepository) GetMilestone(ctx context.Context, poamID, id string) (*domain.Milestone, error) {
	var m domain.Milestone
	query := r.db.Rebind(`SELECT ` + milestoneColumns + ` FROM poam_milestones WHERE id=? AND poam_id=?`)
	if err := r.db.GetContext(ctx, &m, query, id, poamID); err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *poamRepository) ListMilestones(ctx context.Context, poamID string) ([]domain.Milestone, error) {
	milestones := []domain.Milestone{}
	query := r.db.Rebind(`SELECT ` + milestoneColumns + ` FROM poam_milestones WHERE poam_id=? ORDER BY due_date ASC`)
	err := r.db.SelectContext(ctx, &milestones, query, poamID)
	return milestones, err
}

func (r *poamRepository) ListMilestonesDueBetween(ctx context.Context, orgID string, from, to time.Time) ([]MilestoneDue, error) {
	items := []MilestoneDue{}
	query := r.db.Rebind(`
        SELECT m.id, m.poam_id, m.title, m.due_date, m.status, m.completed_at, m.created_at, m.updated_at,
               p.title AS poam_title
        FROM poam_milestones m JOIN poams p ON p.id = m.poam_id
        WHERE p.org_id=? AND m.due_date >= ? AND m.due_date < ?
        ORDER BY m.due_date ASC`)
	err := r.db.SelectContext(ctx, &items, query, orgID, from, to)
	return items, err
}
