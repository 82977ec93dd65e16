package payment

import (
	"context"
	"database/sql"
	"fmt"
)

type Repository interface {
	Record(ctx context.Context, p *Payment) error
	ListByUser(ctx context.Context, userID int64) ([]Payment, error)
}

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Record(ctx context.Context, p *Payment) error {
	query := `
		INSERT INTO star_payments (user_id, telegram_payment_charge_id, amount, package_type, status, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`
	err := r.db.QueryRowContext(ctx, query, p.UserID, p.ChargeID, p.Amount,
		p.PackageType, p.Status, p.CompletedAt).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return fmt.Errorf("record payment for %d: %w", p.UserID, err)
	}
	return nil
}

func (r *PostgresRepo) ListByUser(ctx context.Context, userID int64) ([]Payment, error) {
	query := `
		SELECT id, user_id, telegram_payment_charge_id, amount, package_type, status, completed_at, created_at
		FROM star_payments
		WHERE user_id = $1
		ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []Payment
	for rows.Next() {
		var p Payment
		var completed sql.NullTime
		if err := rows.Scan(&p.ID, &p.UserID, &p.ChargeID, &p.Amount, &p.PackageType,
			&p.Status, &completed, &p.CreatedAt); err != nil {
			return nil, err
		}
		if completed.Valid {
			t := completed.Time
			p.CompletedAt = &t
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}
