// Package postgres provides the PostgreSQL-backed [progress.Store]
// implementation. Schema setup runs automatically on connect.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nmtri/docviet/internal/progress"
)

var _ progress.Store = (*Store)(nil)

const ddlProgressRecords = `
CREATE TABLE IF NOT EXISTS progress_records (
    id           BIGSERIAL    PRIMARY KEY,
    student      TEXT         NOT NULL,
    lesson_id    TEXT         NOT NULL DEFAULT '',
    lesson_title TEXT         NOT NULL DEFAULT '',
    activity     TEXT         NOT NULL,
    score        SMALLINT     NOT NULL DEFAULT 0,
    comment      TEXT         NOT NULL DEFAULT '',
    created_at   TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_progress_records_student_created
    ON progress_records (student, created_at DESC);
`

// Store is the PostgreSQL [progress.Store]. Obtain one via [New]. All
// methods are safe for concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// New establishes a connection pool to the database at dsn, verifies it with
// a ping, and ensures the progress_records table exists.
func New(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("progress store: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("progress store: ping: %w", err)
	}
	if _, err := pool.Exec(ctx, ddlProgressRecords); err != nil {
		pool.Close()
		return nil, fmt.Errorf("progress store: migrate: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Pool exposes the underlying pool for health checks.
func (s *Store) Pool() *pgxpool.Pool { return s.pool }

// Close releases the connection pool.
func (s *Store) Close() { s.pool.Close() }

// Add implements [progress.Store].
func (s *Store) Add(ctx context.Context, r progress.Record) (progress.Record, error) {
	if r.Student == "" {
		return progress.Record{}, progress.ErrNoStudent
	}

	const q = `
		INSERT INTO progress_records
		    (student, lesson_id, lesson_title, activity, score, comment)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	row := s.pool.QueryRow(ctx, q,
		r.Student, r.LessonID, r.LessonTitle, r.Activity, r.Score, r.Comment)
	if err := row.Scan(&r.ID, &r.CreatedAt); err != nil {
		return progress.Record{}, fmt.Errorf("progress store: add: %w", err)
	}
	return r, nil
}

// List implements [progress.Store].
func (s *Store) List(ctx context.Context, student string, limit int) ([]progress.Record, error) {
	if limit <= 0 {
		limit = progress.DefaultListLimit
	}

	const q = `
		SELECT id, student, lesson_id, lesson_title, activity, score, comment, created_at
		FROM   progress_records
		WHERE  student = $1
		ORDER  BY created_at DESC
		LIMIT  $2`

	rows, err := s.pool.Query(ctx, q, student, limit)
	if err != nil {
		return nil, fmt.Errorf("progress store: list: %w", err)
	}
	defer rows.Close()

	var out []progress.Record
	for rows.Next() {
		var r progress.Record
		if err := rows.Scan(&r.ID, &r.Student, &r.LessonID, &r.LessonTitle,
			&r.Activity, &r.Score, &r.Comment, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("progress store: scan: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("progress store: list: %w", err)
	}
	return out, nil
}
