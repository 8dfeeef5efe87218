// Package store provides persistence for enrichment jobs, review tasks, and
// cost records (PostgreSQL) and enriched documents (MongoDB).
package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jonathan/archive-enricher/internal/types"
)

// DB wraps a PostgreSQL connection pool
type DB struct {
	pool *pgxpool.Pool
}

// Connect establishes a connection pool to the database
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Close closes the connection pool
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// CreateJob inserts a new enrichment job row.
func (db *DB) CreateJob(ctx context.Context, job *types.EnrichmentJob) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO enrichment_jobs (id, source_batch_id, collection_id, status, total_documents, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		job.ID, job.SourceBatchID, job.CollectionID, job.Status, job.TotalDocuments, job.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}
	return nil
}

const jobColumns = `id, source_batch_id, COALESCE(collection_id, ''), status, total_documents,
	 processed_count, review_count, error_count, aggregate_cost_usd, created_at, completed_at`

func scanJob(row pgx.Row) (*types.EnrichmentJob, error) {
	var job types.EnrichmentJob
	err := row.Scan(&job.ID, &job.SourceBatchID, &job.CollectionID, &job.Status, &job.TotalDocuments,
		&job.ProcessedCount, &job.ReviewCount, &job.ErrorCount, &job.AggregateCostUSD,
		&job.CreatedAt, &job.CompletedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return &job, nil
}

// GetJob retrieves a job by ID. Returns nil when no job exists.
func (db *DB) GetJob(ctx context.Context, jobID uuid.UUID) (*types.EnrichmentJob, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM enrichment_jobs WHERE id = $1`, jobID)
	return scanJob(row)
}

// GetJobByBatchID retrieves a job by the upstream OCR batch id carried on
// queue messages. Returns nil when no job exists.
func (db *DB) GetJobByBatchID(ctx context.Context, batchID string) (*types.EnrichmentJob, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM enrichment_jobs WHERE source_batch_id = $1`, batchID)
	return scanJob(row)
}

// ListJobs retrieves recent jobs, newest first.
func (db *DB) ListJobs(ctx context.Context, limit int) ([]types.EnrichmentJob, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.pool.Query(ctx,
		`SELECT `+jobColumns+` FROM enrichment_jobs ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []types.EnrichmentJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, nil
}

// MarkDocumentProcessed folds one document's terminal outcome into its job
// in a single statement. Count increments apply only when counted is true
// (first processing of the document); the aggregate cost is always added
// because redelivered documents incur real spend. When the job's last
// document resolves, the statement also sets the terminal status and
// completion time.
func (db *DB) MarkDocumentProcessed(ctx context.Context, jobID uuid.UUID, outcome types.DocumentOutcome, costUSD float64, counted bool) (*types.EnrichmentJob, error) {
	var processedDelta, reviewDelta, errorDelta int
	if counted {
		processedDelta = 1
		switch outcome {
		case types.OutcomeReviewPending:
			reviewDelta = 1
		case types.OutcomeError:
			errorDelta = 1
		}
	}

	row := db.pool.QueryRow(ctx,
		`UPDATE enrichment_jobs SET
		   processed_count = processed_count + $2,
		   review_count = review_count + $3,
		   error_count = error_count + $4,
		   aggregate_cost_usd = aggregate_cost_usd + $5,
		   status = CASE WHEN processed_count + $2 >= total_documents THEN
		       CASE WHEN error_count + $4 > 0 THEN 'error'
		            WHEN review_count + $3 > 0 THEN 'review_pending'
		            ELSE 'completed' END
		     ELSE status END,
		   completed_at = CASE WHEN processed_count + $2 >= total_documents THEN NOW()
		     ELSE completed_at END
		 WHERE id = $1
		 RETURNING `+jobColumns,
		jobID, processedDelta, reviewDelta, errorDelta, costUSD)

	job, err := scanJob(row)
	if err != nil {
		return nil, fmt.Errorf("failed to mark document processed: %w", err)
	}
	if job == nil {
		return nil, fmt.Errorf("job not found: %s", jobID)
	}
	return job, nil
}

// CreateReviewTask inserts a review task, or refreshes the existing one for
// the same document so queue redelivery never creates duplicates.
func (db *DB) CreateReviewTask(ctx context.Context, task *types.ReviewTask) error {
	flagged, err := json.Marshal(task.FlaggedFields)
	if err != nil {
		return fmt.Errorf("failed to marshal flagged fields: %w", err)
	}

	_, err = db.pool.Exec(ctx,
		`INSERT INTO review_tasks (id, document_id, job_id, reason, flagged_fields, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (job_id, document_id) DO UPDATE
		   SET reason = $4, flagged_fields = $5, status = $6, updated_at = NOW()`,
		task.ID, task.DocumentID, task.JobID, task.Reason, flagged, task.Status,
		task.CreatedAt, task.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create review task: %w", err)
	}
	return nil
}

const reviewColumns = `id, document_id, job_id, reason, flagged_fields, status,
	 COALESCE(assignee, ''), COALESCE(notes, ''), corrections, created_at, updated_at`

func scanReviewTask(row pgx.Row) (*types.ReviewTask, error) {
	var task types.ReviewTask
	var flagged, corrections []byte
	err := row.Scan(&task.ID, &task.DocumentID, &task.JobID, &task.Reason, &flagged, &task.Status,
		&task.Assignee, &task.Notes, &corrections, &task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get review task: %w", err)
	}
	if len(flagged) > 0 {
		if err := json.Unmarshal(flagged, &task.FlaggedFields); err != nil {
			return nil, fmt.Errorf("failed to unmarshal flagged fields: %w", err)
		}
	}
	if len(corrections) > 0 {
		if err := json.Unmarshal(corrections, &task.Corrections); err != nil {
			return nil, fmt.Errorf("failed to unmarshal corrections: %w", err)
		}
	}
	return &task, nil
}

// GetReviewTask retrieves a review task by ID. Returns nil when none exists.
func (db *DB) GetReviewTask(ctx context.Context, taskID uuid.UUID) (*types.ReviewTask, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT `+reviewColumns+` FROM review_tasks WHERE id = $1`, taskID)
	return scanReviewTask(row)
}

// ReviewTaskFilters holds optional filters for listing review tasks. A zero
// JobID means all jobs.
type ReviewTaskFilters struct {
	Status types.ReviewTaskStatus
	JobID  uuid.UUID
	Limit  int
	Offset int
}

// ListReviewTasks retrieves review tasks, oldest first so reviewers drain
// the queue in arrival order.
func (db *DB) ListReviewTasks(ctx context.Context, filters ReviewTaskFilters) ([]types.ReviewTask, error) {
	if filters.Limit <= 0 {
		filters.Limit = 50
	}

	query := `SELECT ` + reviewColumns + ` FROM review_tasks WHERE 1=1`
	args := []any{}
	argNum := 1

	if filters.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argNum)
		args = append(args, filters.Status)
		argNum++
	}

	if filters.JobID != uuid.Nil {
		query += fmt.Sprintf(" AND job_id = $%d", argNum)
		args = append(args, filters.JobID)
		argNum++
	}

	query += fmt.Sprintf(" ORDER BY created_at ASC LIMIT $%d OFFSET $%d", argNum, argNum+1)
	args = append(args, filters.Limit, filters.Offset)

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list review tasks: %w", err)
	}
	defer rows.Close()

	var tasks []types.ReviewTask
	for rows.Next() {
		task, err := scanReviewTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	return tasks, nil
}

// UpdateReviewTaskFrom writes the task's mutable fields, guarded by the
// expected current status. Returns false when the task was concurrently
// moved out of that status, so callers can surface a conflict instead of
// silently overwriting another reviewer's transition.
func (db *DB) UpdateReviewTaskFrom(ctx context.Context, task *types.ReviewTask, from types.ReviewTaskStatus) (bool, error) {
	corrections, err := json.Marshal(task.Corrections)
	if err != nil {
		return false, fmt.Errorf("failed to marshal corrections: %w", err)
	}

	result, err := db.pool.Exec(ctx,
		`UPDATE review_tasks
		 SET status = $2, assignee = $3, notes = $4, corrections = $5, updated_at = NOW()
		 WHERE id = $1 AND status = $6`,
		task.ID, task.Status, task.Assignee, task.Notes, corrections, from,
	)
	if err != nil {
		return false, fmt.Errorf("failed to update review task: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// InsertCostRecord appends one billable call to the cost audit trail.
func (db *DB) InsertCostRecord(ctx context.Context, rec *types.CostRecord) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO cost_records (id, job_id, document_id, model, task, input_tokens, output_tokens, cost_usd, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rec.ID, rec.JobID, rec.DocumentID, rec.Model, rec.Task,
		rec.InputTokens, rec.OutputTokens, rec.CostUSD, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert cost record: %w", err)
	}
	return nil
}

// ListCostRecords retrieves a job's cost records in insertion order.
func (db *DB) ListCostRecords(ctx context.Context, jobID uuid.UUID) ([]types.CostRecord, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, job_id, document_id, model, task, input_tokens, output_tokens, cost_usd, created_at
		 FROM cost_records WHERE job_id = $1 ORDER BY created_at ASC`, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cost records: %w", err)
	}
	defer rows.Close()

	var records []types.CostRecord
	for rows.Next() {
		var rec types.CostRecord
		if err := rows.Scan(&rec.ID, &rec.JobID, &rec.DocumentID, &rec.Model, &rec.Task,
			&rec.InputTokens, &rec.OutputTokens, &rec.CostUSD, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan cost record: %w", err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// TotalCostForJob sums a job's recorded spend.
func (db *DB) TotalCostForJob(ctx context.Context, jobID uuid.UUID) (float64, error) {
	var total float64
	err := db.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(cost_usd), 0) FROM cost_records WHERE job_id = $1`, jobID,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to total job cost: %w", err)
	}
	return total, nil
}
