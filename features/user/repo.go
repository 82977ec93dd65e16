package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var ErrNotFound = errors.New("user not found")

type Repository interface {
	Get(ctx context.Context, id int64) (*User, error)
	Create(ctx context.Context, u *User) error
	Touch(ctx context.Context, id int64, seen time.Time) error
	SetPoints(ctx context.Context, id int64, points int, seen time.Time) error
	AddPoints(ctx context.Context, id int64, delta int) error
	SetLanguage(ctx context.Context, id int64, lang string) error
	SetNotifications(ctx context.Context, id int64, enabled bool) error
	ExtendSubscription(ctx context.Context, id int64, d time.Duration) error
	CountReferrals(ctx context.Context, id int64) (int, error)
	ListNotifiable(ctx context.Context) ([]User, error)
}

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

const userColumns = `id, username, first_name, points, language, last_seen, referred_by_id, notifications_enabled, subscription_end`

func scanUser(row interface{ Scan(...interface{}) error }) (*User, error) {
	u := &User{}
	var username, firstName sql.NullString
	var referredBy sql.NullInt64
	var subEnd sql.NullTime
	err := row.Scan(&u.ID, &username, &firstName, &u.Points, &u.Language,
		&u.LastSeen, &referredBy, &u.NotificationsEnabled, &subEnd)
	if err != nil {
		return nil, err
	}
	u.Username = username.String
	u.FirstName = firstName.String
	if referredBy.Valid {
		u.ReferredByID = &referredBy.Int64
	}
	if subEnd.Valid {
		t := subEnd.Time
		u.SubscriptionEnd = &t
	}
	return u, nil
}

func (r *PostgresRepo) Get(ctx context.Context, id int64) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM telegram_users WHERE id = $1`
	u, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (r *PostgresRepo) Create(ctx context.Context, u *User) error {
	query := `
		INSERT INTO telegram_users (id, username, first_name, points, language, last_seen, referred_by_id, notifications_enabled)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	var referredBy sql.NullInt64
	if u.ReferredByID != nil {
		referredBy = sql.NullInt64{Int64: *u.ReferredByID, Valid: true}
	}
	_, err := r.db.ExecContext(ctx, query, u.ID, u.Username, u.FirstName,
		u.Points, u.Language, u.LastSeen, referredBy, u.NotificationsEnabled)
	if err != nil {
		return fmt.Errorf("create user %d: %w", u.ID, err)
	}
	return nil
}

func (r *PostgresRepo) Touch(ctx context.Context, id int64, seen time.Time) error {
	query := `UPDATE telegram_users SET last_seen = $1 WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, seen, id)
	return err
}

// SetPoints overwrites the balance and marks the user seen, for the daily
// reset.
func (r *PostgresRepo) SetPoints(ctx context.Context, id int64, points int, seen time.Time) error {
	query := `UPDATE telegram_users SET points = $1, last_seen = $2 WHERE id = $3`
	_, err := r.db.ExecContext(ctx, query, points, seen, id)
	return err
}

func (r *PostgresRepo) AddPoints(ctx context.Context, id int64, delta int) error {
	query := `UPDATE telegram_users SET points = points + $1 WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, delta, id)
	return err
}

func (r *PostgresRepo) SetLanguage(ctx context.Context, id int64, lang string) error {
	query := `UPDATE telegram_users SET language = $1 WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, lang, id)
	return err
}

func (r *PostgresRepo) SetNotifications(ctx context.Context, id int64, enabled bool) error {
	query := `UPDATE telegram_users SET notifications_enabled = $1 WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, enabled, id)
	return err
}

// ExtendSubscription pushes subscription_end out by d, from now when the
// subscription already lapsed or from the current end when still active.
func (r *PostgresRepo) ExtendSubscription(ctx context.Context, id int64, d time.Duration) error {
	query := `
		UPDATE telegram_users
		SET subscription_end = GREATEST(COALESCE(subscription_end, NOW()), NOW()) + $1::interval
		WHERE id = $2`
	interval := fmt.Sprintf("%d seconds", int64(d.Seconds()))
	_, err := r.db.ExecContext(ctx, query, interval, id)
	return err
}

func (r *PostgresRepo) CountReferrals(ctx context.Context, id int64) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM telegram_users WHERE referred_by_id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(&count)
	return count, err
}

// ListNotifiable returns users eligible for live alerts: active premium with
// notifications switched on.
func (r *PostgresRepo) ListNotifiable(ctx context.Context) ([]User, error) {
	query := `SELECT ` + userColumns + ` FROM telegram_users
		WHERE notifications_enabled = TRUE AND subscription_end > NOW()`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}
