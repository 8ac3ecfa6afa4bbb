package stores

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	// SQLite driver
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore records deployment history in a SQLite database alongside the
// project's djaploy directory.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// Open creates the store, opens the database with WAL mode, and runs any
// pending migrations.
func Open(ctx context.Context, path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &SQLiteStore{db: db, path: path}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// migrate applies the embedded schema migrations.
func (s *SQLiteStore) migrate() error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	driver, err := sqlite3.WithInstance(s.db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// CreateRun inserts a new run record in the running state.
func (s *SQLiteStore) CreateRun(ctx context.Context, run *Run) error {
	query := `
		INSERT INTO runs (
			id, kind, env, mode, release_tag, artifact_path, artifact_checksum,
			host_count, status, error, started_at, completed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		run.ID,
		run.Kind,
		run.Env,
		run.Mode,
		run.ReleaseTag,
		run.ArtifactPath,
		run.ArtifactChecksum,
		run.HostCount,
		run.Status,
		run.Error,
		run.StartedAt,
		run.CompletedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

// FinishRun records the terminal status of a run.
func (s *SQLiteStore) FinishRun(ctx context.Context, id string, status RunStatus, errMsg *string) error {
	query := `
		UPDATE runs
		SET status = ?, error = ?, completed_at = ?
		WHERE id = ?
	`

	now := time.Now()
	result, err := s.db.ExecContext(ctx, query, status, errMsg, &now, id)
	if err != nil {
		return fmt.Errorf("failed to update run status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("run not found: %s", id)
	}
	return nil
}

// GetRun retrieves a run by ID.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*Run, error) {
	query := `
		SELECT id, kind, env, mode, release_tag, artifact_path, artifact_checksum,
		       host_count, status, error, started_at, completed_at
		FROM runs
		WHERE id = ?
	`

	run := &Run{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&run.ID,
		&run.Kind,
		&run.Env,
		&run.Mode,
		&run.ReleaseTag,
		&run.ArtifactPath,
		&run.ArtifactChecksum,
		&run.HostCount,
		&run.Status,
		&run.Error,
		&run.StartedAt,
		&run.CompletedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// ListRuns lists the most recent runs, newest first. An empty env lists runs
// for every environment.
func (s *SQLiteStore) ListRuns(ctx context.Context, env string, limit int) ([]*Run, error) {
	query := `
		SELECT id, kind, env, mode, release_tag, artifact_path, artifact_checksum,
		       host_count, status, error, started_at, completed_at
		FROM runs
		WHERE (? = '' OR env = ?)
		ORDER BY started_at DESC
		LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, env, env, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	runs := []*Run{}
	for rows.Next() {
		run := &Run{}
		err := rows.Scan(
			&run.ID,
			&run.Kind,
			&run.Env,
			&run.Mode,
			&run.ReleaseTag,
			&run.ArtifactPath,
			&run.ArtifactChecksum,
			&run.HostCount,
			&run.Status,
			&run.Error,
			&run.StartedAt,
			&run.CompletedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return runs, nil
}

// LatestDeploy returns the most recent completed deploy for an environment,
// or nil when the environment has never been deployed.
func (s *SQLiteStore) LatestDeploy(ctx context.Context, env string) (*Run, error) {
	query := `
		SELECT id, kind, env, mode, release_tag, artifact_path, artifact_checksum,
		       host_count, status, error, started_at, completed_at
		FROM runs
		WHERE kind = ? AND env = ? AND status = ?
		ORDER BY started_at DESC
		LIMIT 1
	`

	run := &Run{}
	err := s.db.QueryRowContext(ctx, query, RunKindDeploy, env, RunStatusCompleted).Scan(
		&run.ID,
		&run.Kind,
		&run.Env,
		&run.Mode,
		&run.ReleaseTag,
		&run.ArtifactPath,
		&run.ArtifactChecksum,
		&run.HostCount,
		&run.Status,
		&run.Error,
		&run.StartedAt,
		&run.CompletedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest deploy: %w", err)
	}
	return run, nil
}

// HealthCheck verifies the database connection is healthy.
func (s *SQLiteStore) HealthCheck(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}
	return s.db.PingContext(ctx)
}
