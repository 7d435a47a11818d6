// Package journal keeps a SQLite record of every terminal request: what
// was loaded, whether it was delivered and displayed, or why it failed.
package journal

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/polarview/internal/monitoring"
	"github.com/banshee-data/polarview/internal/polar/l1decode"
	"github.com/banshee-data/polarview/internal/polar/pipeline"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Outcome values stored in the journal.
const (
	OutcomeDelivered = "delivered"
	OutcomeFailed    = "failed"
)

// Store is a journal backed by one SQLite file.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the journal at path and applies any
// pending migrations. Use ":memory:" only with a single connection.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal %s: %w", path, err)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	s := &Store{db: db}
	if err := s.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// MigrateUp runs all pending migrations up to the latest version.
func (s *Store) MigrateUp() error {
	m, err := s.newMigrate()
	if err != nil {
		return err
	}
	// m is not closed: that would close s.db.
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// MigrateDown rolls back the most recent migration.
func (s *Store) MigrateDown() error {
	m, err := s.newMigrate()
	if err != nil {
		return err
	}
	if err := m.Steps(-1); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration down failed: %w", err)
	}
	return nil
}

// MigrateVersion returns the current schema version and dirty state.
// Returns 0, false, nil if no migrations have been applied yet.
func (s *Store) MigrateVersion() (version uint, dirty bool, err error) {
	m, err := s.newMigrate()
	if err != nil {
		return 0, false, err
	}
	version, dirty, err = m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

func (s *Store) newMigrate() (*migrate.Migrate, error) {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to load embedded migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(s.db, &sqlite.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create sqlite driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	m.Log = migrateLogger{}
	return m, nil
}

type migrateLogger struct{}

func (migrateLogger) Printf(format string, v ...interface{}) {
	monitoring.Logf("[migrate] "+format, v...)
}

func (migrateLogger) Verbose() bool { return false }

// RecordResult stores a delivered request. Recording the same request
// again updates its displayed flag.
func (s *Store) RecordResult(ctx context.Context, res *pipeline.ProcessingResult, displayed bool) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO requests (
			request_id, seq, path, outcome, state, format, width, height, displayed,
			submitted_at, completed_at, s0_mean, s0_std, s1_mean, s1_std, s2_mean, s2_std
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(request_id) DO UPDATE SET displayed = excluded.displayed`,
		res.RequestID.String(), res.Seq, res.Path, OutcomeDelivered, pipeline.StateDelivered.String(),
		res.Format, res.Dim.Width, res.Dim.Height, displayed,
		res.SubmittedAt.UnixNano(), res.CompletedAt.UnixNano(),
		res.Stats.S0.Mean, res.Stats.S0.StdDev,
		res.Stats.S1.Mean, res.Stats.S1.StdDev,
		res.Stats.S2.Mean, res.Stats.S2.StdDev,
	)
	if err != nil {
		return fmt.Errorf("record result %d: %w", res.Seq, err)
	}
	return nil
}

// RecordFailure stores a failed request.
func (s *Store) RecordFailure(ctx context.Context, f *pipeline.Failure) error {
	kind := "internal"
	if k := l1decode.KindOf(f.Err); k != 0 {
		kind = k.String()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO requests (
			request_id, seq, path, outcome, state, error_kind, error, submitted_at, completed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(request_id) DO NOTHING`,
		f.Ticket.ID.String(), f.Ticket.Seq, f.Ticket.Path, OutcomeFailed, f.State.String(),
		kind, f.Err.Error(), f.Ticket.SubmittedAt.UnixNano(), f.At.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("record failure %d: %w", f.Ticket.Seq, err)
	}
	return nil
}

// Entry is one journal row.
type Entry struct {
	RequestID   string
	Seq         uint64
	Path        string
	Outcome     string
	State       string
	Format      string
	Width       uint32
	Height      uint32
	Displayed   bool
	ErrorKind   string
	Error       string
	SubmittedAt time.Time
	CompletedAt time.Time
	S0Mean      float64
	S0StdDev    float64
}

// Recent returns up to limit entries, most recently completed first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT request_id, seq, path, outcome, state,
		       COALESCE(format, ''), COALESCE(width, 0), COALESCE(height, 0), displayed,
		       COALESCE(error_kind, ''), COALESCE(error, ''),
		       submitted_at, completed_at,
		       COALESCE(s0_mean, 0), COALESCE(s0_std, 0)
		FROM requests
		ORDER BY completed_at DESC, seq DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var submitted, completed int64
		if err := rows.Scan(
			&e.RequestID, &e.Seq, &e.Path, &e.Outcome, &e.State,
			&e.Format, &e.Width, &e.Height, &e.Displayed,
			&e.ErrorKind, &e.Error,
			&submitted, &completed,
			&e.S0Mean, &e.S0StdDev,
		); err != nil {
			return nil, fmt.Errorf("scan journal row: %w", err)
		}
		e.SubmittedAt = time.Unix(0, submitted).UTC()
		e.CompletedAt = time.Unix(0, completed).UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

// Counts returns the number of entries per outcome.
func (s *Store) Counts(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT outcome, COUNT(*) FROM requests GROUP BY outcome`)
	if err != nil {
		return nil, fmt.Errorf("count journal: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var outcome string
		var n int
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, err
		}
		counts[outcome] = n
	}
	return counts, rows.Err()
}
