package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/forgecomply/forgecomply360/internal/domain"
)

// CheckFilter narrows monitoring check listings.
type CheckFilter struct {
	SystemID   *string
	Frequency  *string
	LastResult *string
	Active     *bool
	Search     string
	Page       Page
}

// MonitoringRepository persists monitoring checks and their run history.
type MonitoringRepository interface {
	Create(ctx context.Context, check *domain.MonitoringCheck) error
	Update(ctx context.Context, check *domain.MonitoringCheck) error
	GetByID(ctx context.Context, orgID, id string) (*domain.MonitoringCheck, error)
	List(ctx context.Context, orgID string, filter CheckFilter) ([]domain.MonitoringCheck, int, error)
	ListDue(ctx context.Context, orgID string, now time.Time) ([]domain.MonitoringCheck, error)
	ListNewlyDue(ctx context.Context, now time.Time) ([]domain.MonitoringCheck, error)
	MarkDueNotified(ctx context.Context, id string) error
	ListNextRunBetween(ctx context.Context, orgID string, from, to time.Time) ([]domain.MonitoringCheck, error)
	CountFailing(ctx context.Context, orgID string) (int, error)
	AddResult(ctx context.Context, result *domain.CheckResult) error
	ListResults(ctx context.Context, checkID string, page Page) ([]domain.CheckResult, int, error)
}

type monitoringRepository struct {
	db *sqlx.DB
}

// NewMonitoringRepository builds the repository.
func NewMonitoringRepository(db *sqlx.DB) MonitoringRepository {
	return &monitoringRepository{db: db}
}

const checkColumns = `id, org_id, system_id, implementation_id, name, description, frequency, last_run_at,
        last_result, next_run_at, active, due_notified, created_at, updated_at`

func (r *monitoringRepository) Create(ctx context.Context, check *domain.MonitoringCheck) error {
	_, err := r.db.NamedExecContext(ctx, `
        INSERT INTO monitoring_checks (`+checkColumns+`)
        VALUES (:id, :org_id, :system_id, :implementation_id, :name, :description, :frequency, :last_run_at,
                :last_result, :next_run_at, :active, :due_notified, :created_at, :updated_at)`, check)
	return err
}

func (r *monitoringRepository) Update(ctx context.Context, check *domain.MonitoringCheck) error {
	const query = `
        UPDATE monitoring_checks SET system_id=?, implementation_id=?, name=?, description=?, frequency=?,
            last_run_at=?, last_result=?, next_run_at=?, active=?, due_notified=?, updated_at=?
        WHERE id=? AND org_id=?`
	return execOne(ctx, r.db, query,
		check.SystemID,
		check.ImplementationID,
		check.Name,
		check.Description,
		check.Frequency,
		check.LastRunAt,
		check.LastResult,
		check.NextRunAt,
		check.Active,
		check.DueNotified,
		check.UpdatedAt,
		check.ID,
		check.OrgID,
	)
}

func (r *monitoringRepository) GetByID(ctx context.Context, orgID, id string) (*domain.MonitoringCheck, error) {
	var check domain.MonitoringCheck
	query := r.db.Rebind(`SELECT ` + checkColumns + ` FROM monitoring_checks WHERE id=? AND org_id=?`)
	if err := r.db.GetContext(ctx, &check, query, id, orgID); err != nil {
		return nil, err
	}
	return &check, nil
}

func (r *monitoringRepository) List(ctx context.Context, orgID string, filter CheckFilter) ([]domain.MonitoringCheck, int, error) {
	where := newWhere("org_id = ?", orgID)
	where.eq("system_id", filter.SystemID)
	where.eq("frequency", filter.Frequency)
	where.eq("last_result", filter.LastResult)
	if filter.Active != nil {
		where.add("active = ?", *filter.Active)
	}
	where.search(filter.Search, "name", "description")
	return selectPage[domain.MonitoringCheck](ctx, r.db,
		`SELECT `+checkColumns+` FROM monitoring_checks`,
		`SELECT COUNT(*) FROM monitoring_checks`,
		"next_run_at ASC", where, filter.Page)
}

// ListDue returns active checks of one org whose next run is at or before now.
func (r *monitoringRepository) ListDue(ctx context.Context, orgID string, now time.Time) ([]domain.MonitoringCheck, error) {
	checks := []domain.MonitoringCheck{}
	query := r.db.Rebind(`SELECT ` + checkColumns + ` FROM monitoring_checks
        WHERE org_id=? AND active=? AND next_run_at <= ? ORDER BY next_run_at ASC`)
	err := r.db.SelectContext(ctx, &checks, query, orgID, true, now)
	return checks, err
}

// ListNewlyDue returns due checks across all orgs not yet announced.
func (r *monitoringRepository) ListNewlyDue(ctx context.Context, now time.Time) ([]domain.MonitoringCheck, error) {
	checks := []domain.MonitoringCheck{}
	query := r.db.Rebind(`SELECT ` + checkColumns + ` FROM monitoring_checks
        WHERE active=? AND due_notified=? AND next_run_at <= ? ORDER BY next_run_at ASC`)
	err := r.db.SelectContext(ctx, &checks, query, true, false, now)
	return checks, err
}

func (r *monitoringRepository) MarkDueNotified(ctx context.Context, id string) error {
	return execOne(ctx, r.db, `UPDATE monitoring_checks SET due_notified=? WHERE id=?`, true, id)
}

func (r *monitoringRepository) ListNextRunBetween(ctx context.Context, orgID string, from, to time.Time) ([]domain.MonitoringCheck, error) {
	checks := []domain.MonitoringCheck{}
	query := r.db.Rebind(`SELECT ` + checkColumns + ` FROM monitoring_checks
        WHERE org_id=? AND active=? AND next_run_at >= ? AND next_run_at < ? ORDER BY next_run_at ASC`)
	err := r.db.SelectContext(ctx, &checks, query, orgID, true, from, to)
	return checks, err
}

func (r *monitoringRepository) CountFailing(ctx context.Context, orgID string) (int, error) {
	var n int
	query := r.db.Rebind(`SELECT COUNT(*) FROM monitoring_checks WHERE org_id=? AND active=? AND last_result=?`)
	err := r.db.GetContext(ctx, &n, query, orgID, true, domain.CheckFail)
	return n, err
}

func (r *monitoringRepository) AddResult(ctx context.Context, result *domain.CheckResult) error {
	_, err := r.db.NamedExecContext(ctx, `
        INSERT INTO check_results (id, check_id, result, notes, run_by, run_at)
        VALUES (:id, :check_id, :result, :notes, :run_by, :run_at)`, result)
	return err
}

func (r *monitoringRepository) ListResults(ctx context.Context, checkID string, page Page) ([]domain.CheckResult, int, error) {
	return selectPage[domain.CheckResult](ctx, r.db,
		`SELECT id, check_id, result, notes, run_by, run_at FROM check_results`,
		`SELECT COUNT(*) FROM check_results`,
		"run_at DESC", newWhere("check_id = ?", checkID), page)
}
