package broadcast

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// SettingLastAutoBroadcast is the system_settings key holding the RFC3339
// timestamp of the last automatic broadcast.
const SettingLastAutoBroadcast = "last_auto_broadcast_at"

type Repository interface {
	ListTargetIDs(ctx context.Context, target Target) ([]int64, error)
	EnqueueAutoBroadcast(ctx context.Context, payload json.RawMessage, markerValue string) error
}

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

// targetClause maps a target to its WHERE clause. Targets form a closed
// set, so the clause is static SQL.
func targetClause(target Target) (string, error) {
	switch target {
	case TargetAll:
		return "", nil
	case TargetFree:
		return "WHERE subscription_end IS NULL OR subscription_end < NOW()", nil
	case TargetPremium:
		return "WHERE subscription_end > NOW()", nil
	case TargetInactive:
		return "WHERE last_seen < NOW() - INTERVAL '7 days'", nil
	case TargetEnglish, TargetRussian, TargetSpanish:
		return fmt.Sprintf("WHERE language = '%s'", target), nil
	}
	return "", fmt.Errorf("unknown broadcast target %q", target)
}

func (r *PostgresRepo) ListTargetIDs(ctx context.Context, target Target) ([]int64, error) {
	clause, err := targetClause(target)
	if err != nil {
		return nil, err
	}
	query := "SELECT id FROM telegram_users " + clause
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// EnqueueAutoBroadcast inserts the broadcast_message job and advances the
// cooldown marker in one transaction, so a crash between the two cannot
// leave the trigger re-firing or the cooldown burned without a job.
func (r *PostgresRepo) EnqueueAutoBroadcast(ctx context.Context, payload json.RawMessage, markerValue string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	insertJob := `INSERT INTO jobs (job_type, payload, status) VALUES ('broadcast_message', $1, 'pending')`
	if _, err := tx.ExecContext(ctx, insertJob, string(payload)); err != nil {
		return fmt.Errorf("enqueue auto broadcast: %w", err)
	}

	upsertMarker := `
		INSERT INTO system_settings (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`
	if _, err := tx.ExecContext(ctx, upsertMarker, SettingLastAutoBroadcast, markerValue); err != nil {
		return fmt.Errorf("update auto broadcast marker: %w", err)
	}

	return tx.Commit()
}
