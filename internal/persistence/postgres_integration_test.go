//go:build integration

package persistence_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/forgecomply/forgecomply360/internal/config"
	"github.com/forgecomply/forgecomply360/internal/domain"
	"github.com/forgecomply/forgecomply360/internal/persistence"
	"github.com/forgecomply/forgecomply360/internal/repository"
)

func startPostgres(t *testing.T) *persistence.Database {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("forgecomply_test"),
		tcpostgres.WithUsername("forgecomply"),
		tcpostgres.WithPassword("forgecomply"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := persistence.NewDatabase(ctx, config.DatabaseConfig{
		Driver: persistence.DriverPostgres,
		DSN:    dsn,
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(db.Close)
	return db
}

func TestPostgresMigrationsAndConstraints(t *testing.T) {
	db := startPostgres(t)
	ctx := context.Background()

	mg, err := persistence.NewMigrator(db, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, mg.Up())
	version, dirty, ok, err := mg.Version()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.False(t, dirty)
	assert.Equal(t, uint(1), version)

	now := time.Now().UTC().Truncate(time.Microsecond)
	org := domain.Organization{ID: uuid.NewString(), Name: "Acme", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, repository.NewOrganizationRepository(db.Handle()).Create(ctx, &org))

	users := repository.NewUserRepository(db.Handle())
	user := &domain.User{
		ID: uuid.NewString(), OrgID: org.ID, Email: "owner@acme.example.com", Name: "Owner",
		PasswordHash: "hash", Role: domain.RoleOwner, Status: domain.UserStatusActive,
		CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, users.Create(ctx, user))

	got, err := users.GetByEmail(ctx, "OWNER@acme.example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	dup := *user
	dup.ID = uuid.NewString()
	err = users.Create(ctx, &dup)
	require.Error(t, err)
	assert.True(t, persistence.IsUniqueViolation(err))

	orphan := *user
	orphan.ID, orphan.OrgID, orphan.Email = uuid.NewString(), uuid.NewString(), "orphan@acme.example.com"
	err = users.Create(ctx, &orphan)
	require.Error(t, err)
	assert.True(t, persistence.IsForeignKeyViolation(err))

	owners, err := users.CountActiveOwners(ctx, org.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, owners)

	require.NoError(t, mg.Down(1))
	_, _, ok, err = mg.Version()
	require.NoError(t, err)
	assert.False(t, ok)
}
