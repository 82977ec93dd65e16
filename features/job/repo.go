package job

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

var ErrNotFound = errors.New("job not found")

type Repository interface {
	Enqueue(ctx context.Context, jobType Type, payload json.RawMessage) (int64, error)
	ClaimNext(ctx context.Context, excluded []Type) (*Job, error)
	Finish(ctx context.Context, jobID int64, success bool, currentRetries int) error
	ResetStuck(ctx context.Context, olderThan time.Duration) (int64, error)
	Get(ctx context.Context, id int64) (*Job, error)
	ListFailed(ctx context.Context) ([]Job, error)
	Requeue(ctx context.Context, id int64) error
	CountByStatus(ctx context.Context) (map[Status]int, error)
}

type PostgresRepo struct {
	db           *sql.DB
	retryCeiling int
}

func NewPostgresRepo(db *sql.DB, retryCeiling int) *PostgresRepo {
	return &PostgresRepo{db: db, retryCeiling: retryCeiling}
}

func (r *PostgresRepo) Enqueue(ctx context.Context, jobType Type, payload json.RawMessage) (int64, error) {
	if len(payload) == 0 {
		payload = json.RawMessage(`{}`)
	}
	var id int64
	query := `INSERT INTO jobs (job_type, payload, status) VALUES ($1, $2, 'pending') RETURNING job_id`
	err := r.db.QueryRowContext(ctx, query, string(jobType), string(payload)).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("enqueue %s: %w", jobType, err)
	}
	return id, nil
}

// ClaimNext selects the oldest eligible pending job and marks it processing
// inside one transaction. FOR UPDATE SKIP LOCKED makes concurrent claimers
// skip the locked row instead of blocking on it, so each pending row is
// handed to at most one caller.
func (r *PostgresRepo) ClaimNext(ctx context.Context, excluded []Type) (*Job, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	ex := make([]string, len(excluded))
	for i, t := range excluded {
		ex[i] = string(t)
	}

	query := `
		SELECT job_id, job_type, payload, status, retries, created_at, updated_at
		FROM jobs
		WHERE status = 'pending' AND NOT (job_type = ANY($1))
		ORDER BY created_at
		LIMIT 1
		FOR UPDATE SKIP LOCKED`

	j := &Job{}
	var payload []byte
	err = tx.QueryRowContext(ctx, query, pq.Array(ex)).
		Scan(&j.ID, &j.Type, &payload, &j.Status, &j.Retries, &j.CreatedAt, &j.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	j.Payload = json.RawMessage(payload)

	update := `UPDATE jobs SET status = 'processing', updated_at = NOW() WHERE job_id = $1`
	if _, err := tx.ExecContext(ctx, update, j.ID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	j.Status = StatusProcessing
	return j, nil
}

// Finish records the outcome of one processing attempt. Success completes
// the job; failure increments retries, requeuing until the pre-increment
// count reaches the ceiling, then parking the job as failed for good.
func (r *PostgresRepo) Finish(ctx context.Context, jobID int64, success bool, currentRetries int) error {
	if success {
		query := `UPDATE jobs SET status = 'completed', updated_at = NOW() WHERE job_id = $1`
		_, err := r.db.ExecContext(ctx, query, jobID)
		return err
	}

	status := StatusPending
	if currentRetries >= r.retryCeiling {
		status = StatusFailed
	}
	query := `UPDATE jobs SET status = $1, retries = $2, updated_at = NOW() WHERE job_id = $3`
	_, err := r.db.ExecContext(ctx, query, string(status), currentRetries+1, jobID)
	return err
}

// ResetStuck requeues jobs stranded in processing, e.g. after a worker
// crash mid-handler. Retries are untouched so a crash does not consume an
// attempt.
func (r *PostgresRepo) ResetStuck(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	query := `UPDATE jobs SET status = 'pending', updated_at = NOW() WHERE status = 'processing' AND updated_at < $1`
	res, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *PostgresRepo) Get(ctx context.Context, id int64) (*Job, error) {
	j := &Job{}
	var payload []byte
	query := `SELECT job_id, job_type, payload, status, retries, created_at, updated_at FROM jobs WHERE job_id = $1`
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&j.ID, &j.Type, &payload, &j.Status, &j.Retries, &j.CreatedAt, &j.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	j.Payload = json.RawMessage(payload)
	return j, nil
}

func (r *PostgresRepo) ListFailed(ctx context.Context) ([]Job, error) {
	query := `SELECT job_id, job_type, payload, status, retries, created_at, updated_at FROM jobs WHERE status = 'failed' ORDER BY updated_at DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		var j Job
		var payload []byte
		if err := rows.Scan(&j.ID, &j.Type, &payload, &j.Status, &j.Retries, &j.CreatedAt, &j.UpdatedAt); err != nil {
			return nil, err
		}
		j.Payload = json.RawMessage(payload)
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// Requeue puts a failed job back in the queue with a fresh retry budget.
func (r *PostgresRepo) Requeue(ctx context.Context, id int64) error {
	query := `UPDATE jobs SET status = 'pending', retries = 0, updated_at = NOW() WHERE job_id = $1 AND status = 'failed'`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepo) CountByStatus(ctx context.Context) (map[Status]int, error) {
	query := `SELECT status, COUNT(*) FROM jobs GROUP BY status`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[Status]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[Status(status)] = count
	}
	return counts, rows.Err()
}
