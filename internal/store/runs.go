// Package store persists validation runs in PostgreSQL.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/JonMunkholm/genecheck/internal/core"
	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// DefaultListLimit is used when List is called with a non-positive limit.
const DefaultListLimit = 50

// MaxListLimit caps a single List call.
const MaxListLimit = 500

const createRunsTable = `CREATE TABLE IF NOT EXISTS validation_runs (
	id                UUID PRIMARY KEY,
	source_name       TEXT NOT NULL DEFAULT '',
	origin            TEXT NOT NULL DEFAULT '',
	ignore_duplicates BOOLEAN NOT NULL DEFAULT FALSE,
	status            TEXT NOT NULL,
	gene_fields       TEXT[] NOT NULL DEFAULT '{}',
	row_count         INTEGER NOT NULL DEFAULT 0,
	findings          JSONB NOT NULL DEFAULT '{}',
	error_code        TEXT NOT NULL DEFAULT '',
	error_message     TEXT NOT NULL DEFAULT '',
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const createRunsIndex = `CREATE INDEX IF NOT EXISTS validation_runs_created_at_idx ON validation_runs (created_at DESC)`

// runColumns in scan order.
var runColumns = []string{
	"id", "source_name", "origin", "ignore_duplicates", "status", "gene_fields",
	"row_count", "findings", "error_code", "error_message", "created_at",
}

const runsTable = "validation_runs"

// psql builds PostgreSQL statements with $n placeholders.
var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// RunStore records validation runs.
type RunStore struct {
	db DBTX
}

var (
	_ core.RunStore = (*RunStore)(nil)
	_ core.Purger   = (*RunStore)(nil)
)

// NewRunStore creates a store over db.
func NewRunStore(db DBTX) *RunStore {
	return &RunStore{db: db}
}

// Migrate creates the runs table and its index if they do not exist.
func (s *RunStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, createRunsTable); err != nil {
		return fmt.Errorf("create validation_runs: %w", err)
	}
	if _, err := s.db.Exec(ctx, createRunsIndex); err != nil {
		return fmt.Errorf("create validation_runs index: %w", err)
	}
	return nil
}

// Record inserts run.
func (s *RunStore) Record(ctx context.Context, run *core.Run) error {
	if run == nil {
		return errors.New("record run: nil run")
	}
	if run.ID == uuid.Nil {
		return errors.New("record run: missing id")
	}

	findings, err := json.Marshal(run.Findings)
	if err != nil {
		return fmt.Errorf("encode findings: %w", err)
	}
	genes := run.GeneFields
	if genes == nil {
		genes = []string{}
	}

	query, args, err := psql.Insert(runsTable).
		Columns(runColumns...).
		Values(
			run.ID,
			run.SourceName,
			run.Origin,
			run.IgnoreDuplicates,
			string(run.Status),
			genes,
			run.RowCount,
			findings,
			run.ErrorCode,
			run.ErrorMessage,
			run.CreatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := s.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}
	return nil
}

// Get returns the run with id, or core.ErrRunNotFound.
func (s *RunStore) Get(ctx context.Context, id uuid.UUID) (*core.Run, error) {
	query, args, err := psql.Select(runColumns...).
		From(runsTable).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	run, err := scanRun(s.db.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, core.ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}
	return run, nil
}

// List returns up to limit runs, newest first.
func (s *RunStore) List(ctx context.Context, limit int) ([]core.Run, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	query, args, err := psql.Select(runColumns...).
		From(runsTable).
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	runs := []core.Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// PurgeOlderThan deletes runs created more than days ago.
func (s *RunStore) PurgeOlderThan(ctx context.Context, days int) (int64, error) {
	query, args, err := psql.Delete(runsTable).
		Where("created_at < now() - make_interval(days => ?)", days).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build delete: %w", err)
	}

	tag, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("purge runs: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanRun(row pgx.Row) (*core.Run, error) {
	var (
		run      core.Run
		status   string
		findings []byte
	)
	err := row.Scan(
		&run.ID,
		&run.SourceName,
		&run.Origin,
		&run.IgnoreDuplicates,
		&status,
		&run.GeneFields,
		&run.RowCount,
		&findings,
		&run.ErrorCode,
		&run.ErrorMessage,
		&run.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	run.Status = core.RunStatus(status)
	if len(findings) > 0 {
		if err := json.Unmarshal(findings, &run.Findings); err != nil {
			return nil, fmt.Errorf("decode findings: %w", err)
		}
	}
	if run.GeneFields == nil {
		run.GeneFields = []string{}
	}
	return &run, nil
}
