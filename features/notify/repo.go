package notify

import (
	"context"
	"database/sql"
	"fmt"
)

type Repository interface {
	ListByEntity(ctx context.Context, entityKey string) ([]Record, error)
	ListByChat(ctx context.Context, chatID int64) ([]Record, error)
	Add(ctx context.Context, entityKey string, chatID, messageID int64) error
	Delete(ctx context.Context, id int64) error
}

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

const recordColumns = `id, entity_key, chat_id, message_id, sent_at`

func (r *PostgresRepo) ListByEntity(ctx context.Context, entityKey string) ([]Record, error) {
	query := `SELECT ` + recordColumns + ` FROM live_notifications WHERE entity_key = $1`
	return r.list(ctx, query, entityKey)
}

func (r *PostgresRepo) ListByChat(ctx context.Context, chatID int64) ([]Record, error) {
	query := `SELECT ` + recordColumns + ` FROM live_notifications WHERE chat_id = $1`
	return r.list(ctx, query, chatID)
}

func (r *PostgresRepo) list(ctx context.Context, query string, arg interface{}) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.EntityKey, &rec.ChatID, &rec.MessageID, &rec.SentAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *PostgresRepo) Add(ctx context.Context, entityKey string, chatID, messageID int64) error {
	query := `INSERT INTO live_notifications (entity_key, chat_id, message_id) VALUES ($1, $2, $3)`
	if _, err := r.db.ExecContext(ctx, query, entityKey, chatID, messageID); err != nil {
		return fmt.Errorf("record notification %s: %w", entityKey, err)
	}
	return nil
}

func (r *PostgresRepo) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM live_notifications WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}
