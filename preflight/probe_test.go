package preflight

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/recoveryguard/devboot/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockLogger captures log calls for testing
type mockLogger struct {
	mu       sync.Mutex
	messages []string
}

func (m *mockLogger) add(msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
}

func (m *mockLogger) Debug(ctx context.Context, msg string, args ...interface{}) { m.add(msg) }
func (m *mockLogger) Info(ctx context.Context, msg string, args ...interface{})  { m.add(msg) }
func (m *mockLogger) Error(ctx context.Context, msg string, args ...interface{}) { m.add(msg) }

// createSQLite writes a sqlite database at path, optionally with a migration ledger.
func createSQLite(t *testing.T, path string, applied int) {
	t.Helper()

	db, err := sql.Open("sqlite3", sqliteDSN(path, "rwc"))
	require.NoError(t, err)
	defer func() {
		_ = db.Close()
	}()

	_, err = db.Exec("CREATE TABLE placeholder (id INTEGER PRIMARY KEY)")
	require.NoError(t, err)

	if applied < 0 {
		return
	}
	_, err = db.Exec(`CREATE TABLE django_migrations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		app VARCHAR(255) NOT NULL,
		name VARCHAR(255) NOT NULL,
		applied DATETIME NOT NULL
	)`)
	require.NoError(t, err)
	for i := 0; i < applied; i++ {
		_, err = db.Exec("INSERT INTO django_migrations (app, name, applied) VALUES (?, ?, ?)",
			"accounts", fmt.Sprintf("%04d_initial", i+1), time.Now())
		require.NoError(t, err)
	}
}

func TestNewProbe_AppliesDefaultTimeout(t *testing.T) {
	probe := NewProbe(Config{})

	assert.Equal(t, 5*time.Second, probe.config.Timeout)
}

func TestProbe_MissingSQLiteFileIsFine(t *testing.T) {
	baseDir := t.TempDir()
	target := Resolve(map[string]string{}, baseDir)
	probe := NewProbe(Config{Target: target})

	status, err := probe.Inspect(context.Background())

	require.NoError(t, err)
	assert.False(t, status.Exists)
	assert.False(t, status.Initialized)

	// The probe must not create the file
	_, statErr := os.Stat(target.Path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestProbe_FreshSQLiteDatabase(t *testing.T) {
	baseDir := t.TempDir()
	createSQLite(t, filepath.Join(baseDir, "db.sqlite3"), -1)
	probe := NewProbe(Config{Target: Resolve(map[string]string{}, baseDir)})

	status, err := probe.Inspect(context.Background())

	require.NoError(t, err)
	assert.True(t, status.Exists)
	assert.False(t, status.Initialized)
	assert.Equal(t, 0, status.AppliedMigrations)
}

func TestProbe_MigratedSQLiteDatabase(t *testing.T) {
	baseDir := t.TempDir()
	createSQLite(t, filepath.Join(baseDir, "db.sqlite3"), 3)
	probe := NewProbe(Config{Target: Resolve(map[string]string{}, baseDir)})

	status, err := probe.Inspect(context.Background())

	require.NoError(t, err)
	assert.True(t, status.Exists)
	assert.True(t, status.Initialized)
	assert.Equal(t, 3, status.AppliedMigrations)
}

func TestProbe_SQLitePathWithURICharacters(t *testing.T) {
	baseDir := filepath.Join(t.TempDir(), "proj?x#y")
	require.NoError(t, os.Mkdir(baseDir, 0o755))
	createSQLite(t, filepath.Join(baseDir, "db.sqlite3"), 1)
	probe := NewProbe(Config{Target: Resolve(map[string]string{}, baseDir)})

	status, err := probe.Inspect(context.Background())

	require.NoError(t, err)
	assert.True(t, status.Exists)
	assert.True(t, status.Initialized)
	assert.Equal(t, 1, status.AppliedMigrations)
}

func TestProbe_RejectsNonSQLiteFile(t *testing.T) {
	baseDir := t.TempDir()
	path := filepath.Join(baseDir, "db.sqlite3")
	require.NoError(t, os.WriteFile(path, []byte("this is definitely not a sqlite database file, just text padding it out"), 0o600))
	probe := NewProbe(Config{Target: Resolve(map[string]string{}, baseDir)})

	_, err := probe.Inspect(context.Background())

	assert.ErrorIs(t, err, ErrUnreachable)
}

func TestProbe_RejectsDirectory(t *testing.T) {
	baseDir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(baseDir, "db.sqlite3"), 0o755))
	probe := NewProbe(Config{Target: Resolve(map[string]string{}, baseDir)})

	_, err := probe.Inspect(context.Background())

	assert.ErrorIs(t, err, ErrUnreachable)
}

func TestProbe_CheckLogsAndCounts(t *testing.T) {
	baseDir := t.TempDir()
	createSQLite(t, filepath.Join(baseDir, "db.sqlite3"), 1)
	logger := &mockLogger{}
	project := "test-proj-preflight-ok"
	probe := NewProbe(Config{
		Target:    Resolve(map[string]string{}, baseDir),
		Logger:    logger,
		Collector: metrics.NewCollector(project),
	})

	before := testutil.ToFloat64(metrics.PreflightTotal.WithLabelValues(project, "sqlite3", "success"))
	err := probe.Check(context.Background())
	after := testutil.ToFloat64(metrics.PreflightTotal.WithLabelValues(project, "sqlite3", "success"))

	require.NoError(t, err)
	assert.Equal(t, before+1, after)
	assert.Contains(t, logger.messages, "database reachable")
}

func TestProbe_CheckCountsFailures(t *testing.T) {
	project := "test-proj-preflight-fail"
	probe := NewProbe(Config{
		Target: Target{
			Engine: EnginePostgres,
			Driver: "postgres",
			// Port 1 on loopback is never a postgres server
			DSN: "host='127.0.0.1' port='1' user='x' password='' dbname='x' sslmode='disable' connect_timeout='1'",
		},
		Timeout:   2 * time.Second,
		Collector: metrics.NewCollector(project),
	})

	before := testutil.ToFloat64(metrics.PreflightTotal.WithLabelValues(project, "postgresql", "failure"))
	err := probe.Check(context.Background())
	after := testutil.ToFloat64(metrics.PreflightTotal.WithLabelValues(project, "postgresql", "failure"))

	assert.ErrorIs(t, err, ErrUnreachable)
	assert.Equal(t, before+1, after)
}

func TestProbe_TargetAccessor(t *testing.T) {
	target := Target{Engine: EngineMySQL, Driver: "mysql"}

	assert.Equal(t, target, NewProbe(Config{Target: target}).Target())
}
