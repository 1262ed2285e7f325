package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"trust-service/internal/db"
	"trust-service/internal/models"
	"trust-service/internal/trust"
)

// Store persists users, events and score snapshots in Postgres.
type Store struct {
	db *db.DB
}

func New(dbConn *db.DB) *Store {
	return &Store{db: dbConn}
}

func (s *Store) UserByUsername(ctx context.Context, username string) (models.User, error) {
	var u models.User
	err := s.db.Pool.QueryRow(ctx,
		`SELECT user_id, username, initial_score, current_score, updated_at
		 FROM trust.users
		 WHERE username = $1`,
		username,
	).Scan(&u.UserID, &u.Username, &u.InitialScore, &u.CurrentScore, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.User{}, trust.ErrUserNotFound
	}
	if err != nil {
		return models.User{}, err
	}
	return u, nil
}

func (s *Store) InsertEvent(ctx context.Context, ev models.Event) error {
	_, err := s.db.Pool.Exec(ctx,
		`INSERT INTO trust.events (user_id, event_type, impact, occurred_at)
		 VALUES ($1, $2, $3, $4)`,
		ev.UserID, ev.EventType, ev.Impact, ev.OccurredAt,
	)
	return err
}

// Aggregate implements trust.Store. The SELECT ... FOR UPDATE on the user
// row serializes concurrent computations for the same user for the whole
// read-aggregate-write sequence; computations for distinct users lock
// distinct rows and never block each other.
func (s *Store) Aggregate(ctx context.Context, userID int64, fn trust.AggregateFunc) (float64, float64, error) {
	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return 0, 0, err
	}
	defer tx.Rollback(ctx)

	var initial float64
	err = tx.QueryRow(ctx,
		`SELECT initial_score FROM trust.users WHERE user_id = $1 FOR UPDATE`,
		userID,
	).Scan(&initial)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, 0, trust.ErrUserNotFound
	}
	if err != nil {
		return 0, 0, err
	}

	cat, err := loadCatalog(ctx, tx)
	if err != nil {
		return 0, 0, err
	}

	events, err := loadEvents(ctx, tx, userID)
	if err != nil {
		return 0, 0, err
	}

	score := fn(initial, events, cat)

	// snapshot: user row update and history append commit together
	if _, err := tx.Exec(ctx,
		`UPDATE trust.users SET current_score = $1, updated_at = now() WHERE user_id = $2`,
		score, userID,
	); err != nil {
		return 0, 0, err
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO trust.score_history (user_id, score) VALUES ($1, $2)`,
		userID, score,
	); err != nil {
		return 0, 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, 0, err
	}
	return score, initial, nil
}

func loadCatalog(ctx context.Context, tx pgx.Tx) (trust.MapCatalog, error) {
	rows, err := tx.Query(ctx,
		`SELECT event_type, impact FROM trust.event_types WHERE impact IS NOT NULL`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cat := make(trust.MapCatalog)
	for rows.Next() {
		var eventType string
		var impact float64
		if err := rows.Scan(&eventType, &impact); err != nil {
			return nil, err
		}
		cat[eventType] = impact
	}
	return cat, rows.Err()
}

func loadEvents(ctx context.Context, tx pgx.Tx, userID int64) ([]models.Event, error) {
	rows, err := tx.Query(ctx,
		`SELECT id, user_id, event_type, impact, occurred_at
		 FROM trust.events
		 WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]models.Event, 0, 64)
	for rows.Next() {
		var ev models.Event
		if err := rows.Scan(&ev.ID, &ev.UserID, &ev.EventType, &ev.Impact, &ev.OccurredAt); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// EventTypes lists the catalog, including entries with no impact set.
func (s *Store) EventTypes(ctx context.Context) ([]models.EventType, error) {
	rows, err := s.db.Pool.Query(ctx,
		`SELECT event_type, impact FROM trust.event_types ORDER BY event_type`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.EventType, 0, 16)
	for rows.Next() {
		var et models.EventType
		if err := rows.Scan(&et.EventType, &et.Impact); err != nil {
			return nil, err
		}
		out = append(out, et)
	}
	return out, rows.Err()
}

// ScoreHistory returns the most recent snapshots for a user, newest first.
func (s *Store) ScoreHistory(ctx context.Context, userID int64, limit int) ([]models.ScoreSnapshot, error) {
	rows, err := s.db.Pool.Query(ctx,
		`SELECT user_id, score, recorded_at
		 FROM trust.score_history
		 WHERE user_id = $1
		 ORDER BY recorded_at DESC
		 LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.ScoreSnapshot, 0, limit)
	for rows.Next() {
		var snap models.ScoreSnapshot
		if err := rows.Scan(&snap.UserID, &snap.Score, &snap.RecordedAt); err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}
