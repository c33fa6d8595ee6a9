package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_DSN", filepath.Join(t.TempDir(), "cli.db"))
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("APP_ENV", "test")
	t.Setenv("AUTH_BCRYPT_COST", "4")
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestMigrateCommands(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "migrate", "status")
	require.NoError(t, err)
	assert.Equal(t, "no migrations applied\n", out)

	_, err = run(t, "migrate", "up")
	require.NoError(t, err)

	out, err = run(t, "migrate", "status")
	require.NoError(t, err)
	assert.Equal(t, "version 1\n", out)

	_, err = run(t, "migrate", "down", "--steps", "0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--steps must be positive")

	_, err = run(t, "migrate", "down")
	require.NoError(t, err)
	out, err = run(t, "migrate", "status")
	require.NoError(t, err)
	assert.Equal(t, "no migrations applied\n", out)
}

func TestCatalogImportCommand(t *testing.T) {
	setupEnv(t)
	_, err := run(t, "migrate", "up")
	require.NoError(t, err)

	file := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
framework:
  name: NIST 800-53
  version: rev5
controls:
  - ref: ac-1
    title: Policy and Procedures
    baseline: LOW
  - ref: AC-2
    title: Account Management
    baseline: moderate
`), 0o600))

	out, err := run(t, "catalog", "import", file)
	require.NoError(t, err)
	assert.Contains(t, out, "imported 2 controls into NIST 800-53 rev5")

	_, err = run(t, "catalog", "import", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestCreateOwnerCommand(t *testing.T) {
	setupEnv(t)
	_, err := run(t, "migrate", "up")
	require.NoError(t, err)

	t.Setenv("FORGECOMPLY_OWNER_PASSWORD", "correct-horse-42")
	out, err := run(t, "user", "create-owner", "--org", "Acme", "--name", "Ada", "--email", "Ada@Example.com")
	require.NoError(t, err)
	assert.Contains(t, out, "created owner ada@example.com")

	_, err = run(t, "user", "create-owner", "--org", "Acme", "--name", "Ada", "--email", "ada@example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "email already registered")
}

func TestCreateOwnerRequiresFlags(t *testing.T) {
	setupEnv(t)
	_, err := run(t, "user", "create-owner", "--org", "Acme")
	require.Error(t, err)
}
