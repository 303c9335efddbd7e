package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"

	"openkeywords/internal/domain"
	"openkeywords/internal/domain/model"
	"openkeywords/internal/domain/ports/repository"
)

var _ repository.JobArchive = (*JobArchive)(nil)

const undefinedTable = "42P01"

const schemaSQL = `
CREATE TABLE IF NOT EXISTS keyword_jobs (
  id                 UUID PRIMARY KEY,
  status             TEXT NOT NULL,
  request            JSONB NOT NULL,
  result             JSONB,
  keywords_generated INT NOT NULL DEFAULT 0,
  target_count       INT NOT NULL DEFAULT 0,
  error              TEXT NOT NULL DEFAULT '',
  created_at         TIMESTAMPTZ NOT NULL,
  updated_at         TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS keyword_jobs_created_at_idx ON keyword_jobs (created_at DESC);`

type querier interface {
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// JobArchive stores terminal job snapshots so they can be looked up after the
// in-memory registry evicts them.
type JobArchive struct {
	db querier
}

func NewJobArchive(db querier) *JobArchive {
	return &JobArchive{db: db}
}

// Migrate creates the archive table if it does not exist.
func (a *JobArchive) Migrate(ctx context.Context) error {
	_, err := a.db.Exec(ctx, schemaSQL)
	return err
}

func (a *JobArchive) Save(ctx context.Context, job *model.GenerationJob) error {
	if job == nil {
		return domain.ErrInvalidArgument
	}
	req, err := json.Marshal(job.Request)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	var res []byte
	if job.Result != nil {
		if res, err = json.Marshal(job.Result); err != nil {
			return fmt.Errorf("marshal result: %w", err)
		}
	}

	const q = `
INSERT INTO keyword_jobs (id, status, request, result, keywords_generated, target_count, error, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (id) DO UPDATE SET
  status = EXCLUDED.status,
  result = EXCLUDED.result,
  keywords_generated = EXCLUDED.keywords_generated,
  target_count = EXCLUDED.target_count,
  error = EXCLUDED.error,
  updated_at = EXCLUDED.updated_at;`

	exec := func() error {
		_, err := a.db.Exec(ctx, q, job.ID, string(job.Status), req, res,
			job.Progress.KeywordsGenerated, job.Progress.TargetCount, job.Error, job.CreatedAt, job.UpdatedAt)
		return err
	}
	err = exec()
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == undefinedTable {
		if err := a.Migrate(ctx); err != nil {
			return fmt.Errorf("create archive table: %w", err)
		}
		err = exec()
	}
	return err
}

func (a *JobArchive) Delete(ctx context.Context, id string) (bool, error) {
	tag, err := a.db.Exec(ctx, `DELETE FROM keyword_jobs WHERE id = $1;`, id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == undefinedTable {
			return false, nil
		}
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (a *JobArchive) FindByID(ctx context.Context, id string) (*model.GenerationJob, error) {
	const q = `
SELECT id, status, request, result, keywords_generated, target_count, error, created_at, updated_at
FROM keyword_jobs
WHERE id = $1;`

	var (
		job      model.GenerationJob
		status   string
		req, res []byte
	)
	err := a.db.QueryRow(ctx, q, id).Scan(&job.ID, &status, &req, &res,
		&job.Progress.KeywordsGenerated, &job.Progress.TargetCount, &job.Error, &job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.Is(err, pgx.ErrNoRows) || (errors.As(err, &pgErr) && pgErr.Code == undefinedTable) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	job.Status = model.JobStatus(status)
	if err := json.Unmarshal(req, &job.Request); err != nil {
		return nil, fmt.Errorf("unmarshal request: %w", err)
	}
	if len(res) > 0 {
		job.Result = &model.GenerationResult{}
		if err := json.Unmarshal(res, job.Result); err != nil {
			return nil, fmt.Errorf("unmarshal result: %w", err)
		}
	}
	return &job, nil
}
