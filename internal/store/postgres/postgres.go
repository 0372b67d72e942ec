// Package postgres stores results in PostgreSQL via pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/resultportal/internal/core"
)

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// PoolConfig sizes the connection pool.
type PoolConfig struct {
	URL             string
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Open parses the URL, applies pool limits, connects and pings.
func Open(ctx context.Context, cfg PoolConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.MinConns > 0 {
		poolConfig.MinConns = int32(cfg.MinConns)
	}
	if cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// DatabaseName returns the database path segment of a connection URL, for logging.
func DatabaseName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(u.Path, "/")
}

const schema = `
CREATE TABLE IF NOT EXISTS results (
	id           UUID PRIMARY KEY,
	roll_number  TEXT NOT NULL,
	course_code  TEXT NOT NULL,
	marks        INTEGER NOT NULL CHECK (marks BETWEEN 0 AND 100),
	student_name TEXT NOT NULL,
	course_name  TEXT,
	semester     TEXT,
	exam_type    TEXT,
	published    BOOLEAN NOT NULL DEFAULT FALSE,
	credits      INTEGER NOT NULL DEFAULT 0,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (roll_number, course_code)
);
CREATE INDEX IF NOT EXISTS results_roll_number_idx ON results (roll_number);
`

const selectColumns = `id, roll_number, course_code, marks, student_name,
	course_name, semester, exam_type, published, credits, created_at, updated_at`

// Store implements core.Repository on a results table.
type Store struct {
	db DBTX
}

var _ core.Repository = (*Store)(nil)

// New returns a Store using db, typically a *pgxpool.Pool.
func New(db DBTX) *Store {
	return &Store{db: db}
}

// EnsureSchema creates the results table and its indexes if missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// FindByKey returns the result stored for key.
func (s *Store) FindByKey(ctx context.Context, key core.Key) (core.ResultRecord, bool, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+selectColumns+` FROM results WHERE roll_number = $1 AND course_code = $2`,
		key.RollNumber, key.CourseCode)

	rec, err := scanResult(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.ResultRecord{}, false, nil
	}
	if err != nil {
		return core.ResultRecord{}, false, err
	}
	return rec, true, nil
}

// Upsert inserts rec, or updates the row with the same (roll_number, course_code).
// The stored id and created_at are kept on conflict.
func (s *Store) Upsert(ctx context.Context, rec core.ResultRecord) error {
	id := toPgUUID(rec.ID)
	if !id.Valid {
		id = pgtype.UUID{Bytes: uuid.New(), Valid: true}
	}

	_, err := s.db.Exec(ctx, `
		INSERT INTO results (id, roll_number, course_code, marks, student_name,
			course_name, semester, exam_type, published, credits)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (roll_number, course_code) DO UPDATE SET
			marks        = EXCLUDED.marks,
			student_name = EXCLUDED.student_name,
			course_name  = EXCLUDED.course_name,
			semester     = EXCLUDED.semester,
			exam_type    = EXCLUDED.exam_type,
			published    = EXCLUDED.published,
			credits      = EXCLUDED.credits,
			updated_at   = now()`,
		id, rec.RollNumber, rec.CourseCode, rec.Marks, rec.StudentName,
		toPgText(rec.CourseName), toPgText(rec.Semester), toPgText(rec.ExamType),
		rec.Published, rec.Credits,
	)
	return err
}

// FindByStudent returns every result of one student ordered by course code.
func (s *Store) FindByStudent(ctx context.Context, rollNumber string) ([]core.ResultRecord, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+selectColumns+` FROM results WHERE roll_number = $1 ORDER BY course_code`,
		rollNumber)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

// SetPublished flips the published flag of one result.
// Returns an error wrapping core.ErrNotFound when no row has the ID.
func (s *Store) SetPublished(ctx context.Context, id string, published bool) error {
	pgID := toPgUUID(id)
	if !pgID.Valid {
		return fmt.Errorf("%w: invalid id %q", core.ErrNotFound, id)
	}

	tag, err := s.db.Exec(ctx,
		`UPDATE results SET published = $2, updated_at = now() WHERE id = $1`,
		pgID, published)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", core.ErrNotFound, id)
	}
	return nil
}

// ListResults returns every stored result ordered by roll number then course.
func (s *Store) ListResults(ctx context.Context) ([]core.ResultRecord, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+selectColumns+` FROM results ORDER BY roll_number, course_code`)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

func collect(rows pgx.Rows) ([]core.ResultRecord, error) {
	defer rows.Close()

	var out []core.ResultRecord
	for rows.Next() {
		rec, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// scanResult scans one results row in selectColumns order.
func scanResult(row pgx.Row) (core.ResultRecord, error) {
	var (
		id         pgtype.UUID
		rec        core.ResultRecord
		courseName pgtype.Text
		semester   pgtype.Text
		examType   pgtype.Text
		createdAt  pgtype.Timestamptz
		updatedAt  pgtype.Timestamptz
	)

	err := row.Scan(
		&id, &rec.RollNumber, &rec.CourseCode, &rec.Marks, &rec.StudentName,
		&courseName, &semester, &examType, &rec.Published, &rec.Credits,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return core.ResultRecord{}, err
	}

	rec.ID = pgUUIDToString(id)
	rec.CourseName = courseName.String
	rec.Semester = semester.String
	rec.ExamType = examType.String
	rec.CreatedAt = createdAt.Time
	rec.UpdatedAt = updatedAt.Time
	return rec, nil
}

func toPgUUID(s string) pgtype.UUID {
	parsed, err := uuid.Parse(s)
	if err != nil {
		return pgtype.UUID{Valid: false}
	}
	return pgtype.UUID{Bytes: parsed, Valid: true}
}

func pgUUIDToString(u pgtype.UUID) string {
	if !u.Valid {
		return ""
	}
	return uuid.UUID(u.Bytes).String()
}

// toPgText stores empty strings as NULL.
func toPgText(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: s, Valid: true}
}
