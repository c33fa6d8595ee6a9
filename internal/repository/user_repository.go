package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/forgecomply/forgecomply360/internal/domain"
)

// UserFilter narrows user listings.
type UserFilter struct {
	Role   *string
	Status *string
	Search string
	Page   Page
}

// UserRepository defines persistence access for accounts.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	Update(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	List(ctx context.Context, orgID string, filter UserFilter) ([]domain.User, int, error)
	CountActiveOwners(ctx context.Context, orgID string) (int, error)
}

type userRepository struct {
	db *sqlx.DB
}

// NewUserRepository returns a SQL-backed implementation.
func NewUserRepository(db *sqlx.DB) UserRepository {
	return &userRepository{db: db}
}

const userColumns = `id, org_id, email, name, password_hash, role, status, failed_logins,
        locked_until, last_login_at, created_at, updated_at`

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (` + userColumns + `)
        VALUES (:id, :org_id, :email, :name, :password_hash, :role, :status, :failed_logins,
                :locked_until, :last_login_at, :created_at, :updated_at)`
	_, err := r.db.NamedExecContext(ctx, query, user)
	return err
}

func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	const query = `
        UPDATE users SET email=?, name=?, password_hash=?, role=?, status=?, failed_logins=?,
            locked_until=?, last_login_at=?, updated_at=?
        WHERE id=?`
	return execOne(ctx, r.db, query,
		user.Email,
		user.Name,
		user.PasswordHash,
		user.Role,
		user.Status,
		user.FailedLogins,
		user.LockedUntil,
		user.LastLoginAt,
		user.UpdatedAt,
		user.ID,
	)
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	var user domain.User
	query := r.db.Rebind(`SELECT ` + userColumns + ` FROM users WHERE id=?`)
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	query := r.db.Rebind(`SELECT ` + userColumns + ` FROM users WHERE LOWER(email)=LOWER(?)`)
	if err := r.db.GetContext(ctx, &user, query, email); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) List(ctx context.Context, orgID string, filter UserFilter) ([]domain.User, int, error) {
	where := newWhere("org_id = ?", orgID)
	where.eq("role", filter.Role)
	where.eq("status", filter.Status)
	where.search(filter.Search, "name", "email")
	return selectPage[domain.User](ctx, r.db,
		`SELECT `+userColumns+` FROM users`,
		`SELECT COUNT(*) FROM users`,
		"name ASC", where, filter.Page)
}

func (r *userRepository) CountActiveOwners(ctx context.Context, orgID string) (int, error) {
	var n int
	query := r.db.Rebind(`SELECT COUNT(*) FROM users WHERE org_id=? AND role=? AND status=?`)
	err := r.db.GetContext(ctx, &n, query, orgID, domain.RoleOwner, domain.UserStatusActive)
	return n, err
}
