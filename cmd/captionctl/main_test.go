package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, dsn string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--backend", "sqlite", "--dsn", dsn}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestCommands_RequireMigratedSchema(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "ctl.db")

	_, err := run(t, dsn, "tiers", "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "migrate up")
}

func TestMigrate_UpAndStatus(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "ctl.db")

	out, err := run(t, dsn, "migrate", "up", "--to", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "Schema at version 2")

	out, err = run(t, dsn, "migrate", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "yes")
	assert.Contains(t, out, "no")

	_, err = run(t, dsn, "migrate", "up")
	require.NoError(t, err)

	out, err = run(t, dsn, "migrate", "status")
	require.NoError(t, err)
	assert.NotContains(t, out, " no ")
}

func TestTiersUsersInvites(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "ctl.db")
	_, err := run(t, dsn, "migrate", "up")
	require.NoError(t, err)

	out, err := run(t, dsn, "tiers", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Free")
	assert.Contains(t, out, "unlimited")

	out, err = run(t, dsn, "tiers", "create", "Team", "--limit", "500", "--description", "shared")
	require.NoError(t, err)
	assert.Contains(t, out, "Created tier")

	_, err = run(t, dsn, "tiers", "create", "Team", "--limit", "10")
	require.Error(t, err)

	out, err = run(t, dsn, "users", "create", "Ops@Example.com", "--admin", "--tier", "team")
	require.NoError(t, err)
	assert.Contains(t, out, "ops@example.com")

	_, err = run(t, dsn, "users", "create", "x@example.com", "--tier", "nope")
	require.Error(t, err)

	out, err = run(t, dsn, "users", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "ops@example.com")
	assert.Contains(t, out, "Team")

	out, err = run(t, dsn, "invites", "create", "friend@example.com", "--tier", "Pro", "--message", "hi")
	require.NoError(t, err)
	assert.Contains(t, out, "friend@example.com")
	assert.Contains(t, out, "/invite/accept?token=")

	out, err = run(t, dsn, "gc")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Removed 0 login tokens"))
}

func TestRoot_InvalidBackend(t *testing.T) {
	cmd := newRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--backend", "oracle", "gc"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown database backend")
}
