package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("LOG_LEVEL", "error")
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestScheduleCommand(t *testing.T) {
	out, err := run(t, "schedule", "--principal", "10000", "--apr", "10", "--term", "12")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 14, "header, 12 rows, total")
	assert.Contains(t, lines[0], "Balance")
	assert.Regexp(t, `^\s*1\s+879\.16\s+795\.83\s+83\.33\s+9204\.17`, lines[1])
	assert.Contains(t, lines[12], "0.00")
	assert.True(t, strings.HasPrefix(strings.TrimSpace(lines[13]), "Total"))
}

func TestScheduleCommandRejectsInvalidTerm(t *testing.T) {
	_, err := run(t, "schedule", "--principal", "10000", "--term", "0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "term")

	_, err = run(t, "schedule", "--principal", "lots", "--term", "12")
	assert.Error(t, err)
}

func TestCategorizeCommand(t *testing.T) {
	out, err := run(t, "categorize", "WINNERS", "Phoenix")
	require.NoError(t, err)
	assert.Equal(t, "Groceries (keyword \"winners\")\n", out)

	out, err = run(t, "categorize", "something unknown")
	require.NoError(t, err)
	assert.Equal(t, "no match\n", out)
}

func TestSeedDemoRequiresFlag(t *testing.T) {
	t.Setenv("ENABLE_DEMO_USER", "false")
	_, err := run(t, "seed-demo", "--db", filepath.Join(t.TempDir(), "demo.db"))
	assert.ErrorIs(t, err, errDemoDisabled)
}

func TestSeedDemoIsIdempotent(t *testing.T) {
	t.Setenv("ENABLE_DEMO_USER", "true")
	db := filepath.Join(t.TempDir(), "demo.db")

	out, err := run(t, "seed-demo", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "demo@fintrack.local")

	_, err = run(t, "seed-demo", "--db", db)
	require.NoError(t, err)
}

func TestMigrateCommands(t *testing.T) {
	db := filepath.Join(t.TempDir(), "schema.db")

	out, err := run(t, "migrate", "up", "--db", db)
	require.NoError(t, err)
	assert.Regexp(t, `^schema version [1-9]\d*\n$`, out)

	out, err = run(t, "migrate", "version", "--db", db)
	require.NoError(t, err)
	assert.Regexp(t, `^schema version [1-9]\d*\n$`, out)

	_, err = run(t, "migrate", "down", "--steps", "0", "--db", db)
	assert.Error(t, err)
}
