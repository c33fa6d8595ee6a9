// Package testutil provisions throwaway SQLite databases and seed rows for
// package tests.
package testutil

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/forgecomply/forgecomply360/internal/auth"
	"github.com/forgecomply/forgecomply360/internal/config"
	"github.com/forgecomply/forgecomply360/internal/domain"
	"github.com/forgecomply/forgecomply360/internal/persistence"
	"github.com/forgecomply/forgecomply360/internal/repository"
)

// Password is the plaintext password of every seeded user.
const Password = "correct-horse-battery-9"

// NewDatabase opens a migrated SQLite database under t.TempDir.
func NewDatabase(t testing.TB) *persistence.Database {
	t.Helper()
	db, err := persistence.NewDatabase(context.Background(), config.DatabaseConfig{
		Driver: persistence.DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "forgecomply.db"),
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.NoError(t, persistence.RunMigrations(db, zap.NewNop()))
	return db
}

// FixedClock returns a clock frozen at now.
func FixedClock(now time.Time) func() time.Time {
	return func() time.Time { return now }
}

// Fixture holds an organization and one user per role.
type Fixture struct {
	DB    *persistence.Database
	Org   domain.Organization
	Users map[domain.Role]*domain.User
}

// Actor returns the actor for the seeded user with role.
func (f *Fixture) Actor(role domain.Role) domain.Actor {
	u := f.Users[role]
	return domain.Actor{UserID: u.ID, OrgID: u.OrgID, Role: u.Role}
}

// Seed creates an organization with one active user per role.
func Seed(t testing.TB, db *persistence.Database) *Fixture {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	org := domain.Organization{ID: uuid.NewString(), Name: "Acme Federal", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, repository.NewOrganizationRepository(db.Handle()).Create(ctx, &org))

	hash, err := auth.HashPassword(Password, bcrypt.MinCost)
	require.NoError(t, err)

	users := repository.NewUserRepository(db.Handle())
	f := &Fixture{DB: db, Org: org, Users: map[domain.Role]*domain.User{}}
	for _, role := range []domain.Role{domain.RoleViewer, domain.RoleAnalyst, domain.RoleManager, domain.RoleAdmin, domain.RoleOwner} {
		u := &domain.User{
			ID:           uuid.NewString(),
			OrgID:        org.ID,
			Email:        string(role) + "@" + org.ID[:8] + ".example.com",
			Name:         string(role),
			PasswordHash: hash,
			Role:         role,
			Status:       domain.UserStatusActive,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		require.NoError(t, users.Create(ctx, u))
		f.Users[role] = u
	}
	return f
}

// System inserts a system owned by the fixture's organization.
func (f *Fixture) System(t testing.TB, name string, provider bool) *domain.System {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Second)
	sys := &domain.System{
		ID:                    uuid.NewString(),
		OrgID:                 f.Org.ID,
		Name:                  name,
		ImpactLevel:           domain.ImpactModerate,
		Status:                domain.SystemStatusActive,
		AuthorizationStatus:   domain.AuthorizationInProgress,
		CommonControlProvider: provider,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	require.NoError(t, repository.NewSystemRepository(f.DB.Handle()).Create(context.Background(), sys))
	return sys
}

// Controls upserts a framework with one control per ref and returns them in order.
func (f *Fixture) Controls(t testing.TB, refs ...string) []domain.Control {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)
	repo := repository.NewControlRepository(f.DB.Handle())

	fw := &domain.Framework{ID: uuid.NewString(), Name: "NIST SP 800-53", Version: "rev5", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, repo.UpsertFramework(ctx, fw))

	controls := make([]domain.Control, 0, len(refs))
	for _, ref := range refs {
		c := &domain.Control{
			ID:          uuid.NewString(),
			FrameworkID: fw.ID,
			ControlRef:  ref,
			Family:      ref[:2],
			Title:       "Control " + ref,
			Baseline:    domain.BaselineLow,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		require.NoError(t, repo.UpsertControl(ctx, c))
		controls = append(controls, *c)
	}
	return controls
}
