// Package preflight checks, before any migration runs, that the database the
// Django project is configured for can be reached.
//
// The target is resolved from DATABASE_ENGINE and friends exactly as the project's
// settings resolve it, so the probe talks to the same database migrate will.
package preflight

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/getpup/pupsourcing/es"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/recoveryguard/devboot/metrics"
)

// ErrUnreachable indicates the database could not be reached.
var ErrUnreachable = errors.New("database unreachable")

// appliedMigrationsQuery counts rows in Django's migration ledger.
const appliedMigrationsQuery = "SELECT COUNT(*) FROM django_migrations"

// Status is the outcome of a successful inspection.
type Status struct {
	// Exists is false when the sqlite file has not been created yet.
	Exists bool

	// Initialized is true when Django's migration ledger table exists.
	Initialized bool

	// AppliedMigrations is the number of rows in the ledger.
	AppliedMigrations int
}

// Config configures a Probe.
type Config struct {
	// Target is the database to check (required).
	Target Target

	// Timeout bounds the whole check (default: 5s).
	Timeout time.Duration

	// Logger is for observability (optional).
	Logger es.Logger

	// Collector records preflight outcomes (optional).
	Collector *metrics.Collector
}

// Probe checks that a Target is reachable.
type Probe struct {
	config Config
}

// NewProbe creates a Probe. Applies a default Timeout if zero.
func NewProbe(cfg Config) *Probe {
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &Probe{config: cfg}
}

// Target returns the database this probe checks.
func (p *Probe) Target() Target {
	return p.config.Target
}

// Check inspects the target, logs what it found, and records the outcome.
// It returns an error wrapping ErrUnreachable when the database cannot be used.
func (p *Probe) Check(ctx context.Context) error {
	target := p.config.Target
	status, err := p.Inspect(ctx)

	if p.config.Collector != nil {
		p.config.Collector.IncPreflight(string(target.Engine), err == nil)
	}

	if err != nil {
		return err
	}

	if p.config.Logger != nil {
		switch {
		case !status.Exists:
			p.config.Logger.Info(ctx, "database file does not exist yet, migrate will create it",
				"engine", target.Engine, "path", target.Path)
		case !status.Initialized:
			p.config.Logger.Info(ctx, "database reachable, no migrations applied yet",
				"engine", target.Engine, "database", target.Database)
		default:
			p.config.Logger.Info(ctx, "database reachable",
				"engine", target.Engine, "database", target.Database, "appliedMigrations", status.AppliedMigrations)
		}
	}

	return nil
}

// Inspect opens the target and reports its state without modifying it.
func (p *Probe) Inspect(ctx context.Context) (Status, error) {
	target := p.config.Target

	ctx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	if target.Engine == EngineSQLite {
		info, err := os.Stat(target.Path)
		if errors.Is(err, fs.ErrNotExist) {
			return Status{}, nil
		}
		if err != nil {
			return Status{}, fmt.Errorf("%w: %w", ErrUnreachable, err)
		}
		if info.IsDir() {
			return Status{}, fmt.Errorf("%w: %s is a directory", ErrUnreachable, target.Path)
		}
	}

	db, err := sql.Open(target.Driver, target.DSN)
	if err != nil {
		return Status{}, fmt.Errorf("%w: failed to open %s: %w", ErrUnreachable, target.Engine, err)
	}
	defer func() {
		_ = db.Close()
	}()

	if err := db.PingContext(ctx); err != nil {
		return Status{}, fmt.Errorf("%w: failed to ping %s: %w", ErrUnreachable, target.Engine, err)
	}

	status := Status{Exists: true}
	if target.Engine == EngineSQLite {
		// Ping does not read the file; this fails if it is not a sqlite database.
		var n int
		if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sqlite_master").Scan(&n); err != nil {
			return Status{}, fmt.Errorf("%w: %s is not a sqlite database: %w", ErrUnreachable, target.Path, err)
		}
	}

	if err := db.QueryRowContext(ctx, appliedMigrationsQuery).Scan(&status.AppliedMigrations); err != nil {
		// A missing ledger means a fresh database, which migrate handles.
		if p.config.Logger != nil {
			p.config.Logger.Debug(ctx, "migration ledger not readable", "engine", target.Engine, "error", err)
		}
		return status, nil
	}
	status.Initialized = true

	return status, nil
}
