// Package runs persists the audit history of maintenance runs in SQLite.
// Every run leaves a row, even when it aborts, so the host keeps a durable
// record of what changed and when.
package runs

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the schema
// changes; existing databases with a different version are rejected.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database schema version doesn't match the
// expected version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// Record is one maintenance run as stored.
type Record struct {
	ID              string
	StartedAt       time.Time
	FinishedAt      time.Time
	DryRun          bool
	SecurityOnly    bool
	ChangedPackages int
	KernelChanged   bool
	RestartState    string
	Warnings        int
	FatalError      string
}

// Finished reports whether the run recorded a finish time.
func (r Record) Finished() bool {
	return !r.FinishedAt.IsZero()
}

// Store manages run-history persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the run database under dir.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure state dir: %w", err)
	}

	dbPath := filepath.Join(dir, "runs.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	err = s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s to reset)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// Begin inserts a new run row and returns its identifier.
func (s *Store) Begin(ctx context.Context, started time.Time, dryRun, securityOnly bool) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, dry_run, security_only) VALUES (?, ?, ?, ?)`,
		id,
		started.UTC().Format(time.RFC3339Nano),
		boolInt(dryRun),
		boolInt(securityOnly),
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	return id, nil
}

// Finish completes the run row with the final result fields.
func (s *Store) Finish(ctx context.Context, rec Record) error {
	if rec.ID == "" {
		return errors.New("finish run: empty id")
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET
            finished_at = ?,
            changed_packages = ?,
            kernel_changed = ?,
            restart_state = ?,
            warnings = ?,
            fatal_error = ?
        WHERE id = ?`,
		rec.FinishedAt.UTC().Format(time.RFC3339Nano),
		rec.ChangedPackages,
		boolInt(rec.KernelChanged),
		rec.RestartState,
		rec.Warnings,
		rec.FatalError,
		rec.ID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("finish run: unknown id %s", rec.ID)
	}
	return nil
}

// List returns the most recent runs, newest first. limit <= 0 returns all.
func (s *Store) List(ctx context.Context, limit int) ([]Record, error) {
	query := `SELECT id, started_at, finished_at, dry_run, security_only,
        changed_packages, kernel_changed, restart_state, warnings, fatal_error
        FROM runs ORDER BY started_at DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			rec           Record
			started       string
			finished      sql.NullString
			dryRun        int
			securityOnly  int
			kernelChanged int
		)
		if err := rows.Scan(&rec.ID, &started, &finished, &dryRun, &securityOnly,
			&rec.ChangedPackages, &kernelChanged, &rec.RestartState, &rec.Warnings, &rec.FatalError); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		rec.StartedAt, err = time.Parse(time.RFC3339Nano, started)
		if err != nil {
			return nil, fmt.Errorf("parse started_at: %w", err)
		}
		if finished.Valid && finished.String != "" {
			rec.FinishedAt, err = time.Parse(time.RFC3339Nano, finished.String)
			if err != nil {
				return nil, fmt.Errorf("parse finished_at: %w", err)
			}
		}
		rec.DryRun = dryRun != 0
		rec.SecurityOnly = securityOnly != 0
		rec.KernelChanged = kernelChanged != 0
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return records, nil
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
