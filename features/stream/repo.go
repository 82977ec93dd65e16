package stream

import (
	"context"
	"database/sql"
	"fmt"
)

type Repository interface {
	CountLive(ctx context.Context) (int, error)
	ListLive(ctx context.Context) ([]Stream, error)
	SetLiveStatus(ctx context.Context, username, link string, isLive bool) (becameLive bool, err error)
}

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) CountLive(ctx context.Context) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM insta_links WHERE is_live = TRUE`
	err := r.db.QueryRowContext(ctx, query).Scan(&count)
	return count, err
}

func (r *PostgresRepo) ListLive(ctx context.Context) ([]Stream, error) {
	query := `
		SELECT username, link, is_live, last_live_at, total_lives
		FROM insta_links
		WHERE is_live = TRUE
		ORDER BY last_live_at DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var streams []Stream
	for rows.Next() {
		var s Stream
		var lastLive sql.NullTime
		if err := rows.Scan(&s.Username, &s.Link, &s.IsLive, &lastLive, &s.TotalLives); err != nil {
			return nil, err
		}
		if lastLive.Valid {
			t := lastLive.Time
			s.LastLiveAt = &t
		}
		streams = append(streams, s)
	}
	return streams, rows.Err()
}

// SetLiveStatus upserts liveness for one account and reports whether this
// call flipped it to live. A transition to live stamps last_live_at and
// bumps the lifetime counter.
func (r *PostgresRepo) SetLiveStatus(ctx context.Context, username, link string, isLive bool) (bool, error) {
	// The CTE snapshots the prior state before the upsert touches the row.
	query := `
		WITH prev AS (
			SELECT is_live FROM insta_links WHERE username = $1
		)
		INSERT INTO insta_links (username, link, is_live, last_live_at, total_lives)
		VALUES ($1, $2, $3, CASE WHEN $3 THEN NOW() ELSE NULL END, CASE WHEN $3 THEN 1 ELSE 0 END)
		ON CONFLICT (username) DO UPDATE SET
			link = EXCLUDED.link,
			is_live = EXCLUDED.is_live,
			last_live_at = CASE WHEN EXCLUDED.is_live AND NOT insta_links.is_live THEN NOW() ELSE insta_links.last_live_at END,
			total_lives = insta_links.total_lives + CASE WHEN EXCLUDED.is_live AND NOT insta_links.is_live THEN 1 ELSE 0 END
		RETURNING COALESCE((SELECT is_live FROM prev), FALSE)`
	var wasLive bool
	if err := r.db.QueryRowContext(ctx, query, username, link, isLive).Scan(&wasLive); err != nil {
		return false, fmt.Errorf("set live status %s: %w", username, err)
	}
	return isLive && !wasLive, nil
}
