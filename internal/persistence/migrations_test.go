package persistence

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingExecer struct {
	statements []string
	failOn     int
}

func (r *recordingExecer) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	r.statements = append(r.statements, sql)
	if r.failOn > 0 && len(r.statements) == r.failOn {
		return pgconn.CommandTag{}, errors.New("syntax error")
	}
	return pgconn.NewCommandTag("CREATE TABLE"), nil
}

func writeMigrations(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.sql"), 0o700))
	return dir
}

func TestRunMigrationsAppliesSQLInOrder(t *testing.T) {
	dir := writeMigrations(t, map[string]string{
		"002_settings.sql": "two",
		"001_init.sql":     "one",
		"README.md":        "ignored",
	})
	db := &recordingExecer{}

	require.NoError(t, RunMigrations(context.Background(), db, dir, zap.NewNop()))
	assert.Equal(t, []string{"one", "two"}, db.statements)
}

func TestRunMigrationsStopsAtFirstFailure(t *testing.T) {
	dir := writeMigrations(t, map[string]string{"001_a.sql": "a", "002_b.sql": "b", "003_c.sql": "c"})
	db := &recordingExecer{failOn: 2}

	err := RunMigrations(context.Background(), db, dir, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "002_b.sql")
	assert.Len(t, db.statements, 2)
}

func TestRunMigrationsMissingDir(t *testing.T) {
	err := RunMigrations(context.Background(), &recordingExecer{}, filepath.Join(t.TempDir(), "nope"), zap.NewNop())
	assert.Error(t, err)
}

func TestRepositoryMigrationIsIdempotent(t *testing.T) {
	body, err := os.ReadFile(filepath.Join("..", "..", "migrations", "001_init.sql"))
	require.NoError(t, err)
	assert.Contains(t, string(body), "CREATE TABLE IF NOT EXISTS transactions")
	assert.NotContains(t, string(body), "DROP TABLE")
}
