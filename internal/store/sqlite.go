package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // pure Go driver

	"github.com/forPelevin/threadreel/internal/types"
)

// Fixed-width so lexical order in SQL matches time order.
const tsLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLite is the durable job store.
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite opens (creating if needed) the database at path and migrates it.
func OpenSQLite(path string) (*SQLite, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(8)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &SQLite{db: db, now: func() time.Time { return time.Now().UTC() }}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return s, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLite) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS jobs (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		source_ref TEXT NOT NULL DEFAULT '',
		title TEXT NOT NULL DEFAULT '',
		input_text TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL CHECK(status IN ('pending', 'processing', 'completed', 'error')),
		output_path TEXT NOT NULL DEFAULT '',
		duration_sec REAL NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_jobs_owner_created ON jobs(owner_id, created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLite) CreateJob(ctx context.Context, ownerID, sourceRef, title, inputText string) (string, error) {
	id := uuid.NewString()
	ts := s.now().Format(tsLayout)
	_, err := s.db.ExecContext(ctx, `
	INSERT INTO jobs (id, owner_id, source_ref, title, input_text, status, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, id, ownerID, sourceRef, title, inputText, types.StatusPending, ts, ts)
	if err != nil {
		return "", fmt.Errorf("insert job: %w", err)
	}
	return id, nil
}

// UpdateJob applies a status change in a single conditional statement so two
// writers cannot both move a job out of the same state.
func (s *SQLite) UpdateJob(ctx context.Context, id string, status types.JobStatus, outputPath string, durationSec float64) error {
	if err := checkUpdate(id, status, outputPath); err != nil {
		return err
	}
	from := sourcesFor(status)
	if len(from) == 0 {
		return fmt.Errorf("%w: nothing transitions to %s", ErrInvalidTransition, status)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(from)), ",")
	query := `UPDATE jobs SET status = ?, output_path = ?, duration_sec = ?, updated_at = ?
	WHERE id = ? AND status IN (` + placeholders + `)`
	args := []any{status, outputPath, durationSec, s.now().Format(tsLayout), id}
	for _, f := range from {
		args = append(args, f)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update job %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update job %s: %w", id, err)
	}
	if n == 1 {
		return nil
	}

	var cur types.JobStatus
	err = s.db.QueryRowContext(ctx, `SELECT status FROM jobs WHERE id = ?`, id).Scan(&cur)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("read job %s: %w", id, err)
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, cur, status)
}

const jobColumns = `id, owner_id, source_ref, title, input_text, status, output_path, duration_sec, created_at, updated_at`

func (s *SQLite) ListJobs(ctx context.Context, ownerID string) ([]types.RenderJob, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE owner_id = ? ORDER BY created_at DESC, id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []types.RenderJob
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

func (s *SQLite) GetJob(ctx context.Context, id, ownerID string) (types.RenderJob, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ? AND owner_id = ?`, id, ownerID)
	j, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.RenderJob{}, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	return j, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(r scanner) (types.RenderJob, error) {
	var (
		j                types.RenderJob
		created, updated string
	)
	if err := r.Scan(&j.ID, &j.OwnerID, &j.SourceRef, &j.Title, &j.InputText, &j.Status, &j.OutputPath, &j.DurationSec, &created, &updated); err != nil {
		return types.RenderJob{}, err
	}
	j.CreatedAt, _ = time.Parse(tsLayout, created)
	j.UpdatedAt, _ = time.Parse(tsLayout, updated)
	return j, nil
}
