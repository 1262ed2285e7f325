package trust

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"trust-service/internal/metrics"
	"trust-service/internal/models"
)

// AggregateFunc folds a user's full event history into the score to
// persist. It runs inside the store's transaction while the user's row
// lock is held, so the read-aggregate-write sequence is serialized per
// user.
type AggregateFunc func(initialScore float64, events []models.Event, cat Catalog) float64

// Store is the persistence surface the engine needs. The Postgres
// implementation lives in internal/store; tests use an in-memory fake.
type Store interface {
	// Aggregate runs fn within a single transaction holding a row lock on
	// the user. It loads the user's initial score, the event type catalog
	// and the complete event history, calls fn, then persists the returned
	// score as the user's current_score together with one score_history
	// row. Both writes commit together or not at all. When the user does
	// not exist it returns ErrUserNotFound without writing anything.
	Aggregate(ctx context.Context, userID int64, fn AggregateFunc) (score, initial float64, err error)

	// InsertEvent appends one event to the log. Events are never updated
	// or deleted.
	InsertEvent(ctx context.Context, ev models.Event) error
}

// Engine computes decay-weighted trust scores. It is stateless across
// calls; all state lives in the store.
type Engine struct {
	store        Store
	scaleMinutes float64
	log          *slog.Logger
}

// NewEngine builds an engine using the given decay time scale in minutes,
// shared by every computation.
func NewEngine(store Store, scaleMinutes float64, log *slog.Logger) (*Engine, error) {
	if scaleMinutes <= 0 {
		return nil, fmt.Errorf("trust: decay time scale must be > 0, got %v", scaleMinutes)
	}
	return &Engine{store: store, scaleMinutes: scaleMinutes, log: log}, nil
}

// Compute re-derives the user's score from the full event history at the
// reference instant now and persists the snapshot:
//
//	score = initial + sum(resolved_impact(e) * exp(-elapsed_minutes/scale))
//
// Events without a resolvable impact or without occurred_at are skipped.
// The same now is used for every event's elapsed time. Returns the
// persisted score and the user's initial score.
func (e *Engine) Compute(ctx context.Context, userID int64, now time.Time) (float64, float64, error) {
	start := time.Now()

	score, initial, err := e.store.Aggregate(ctx, userID, func(initialScore float64, events []models.Event, cat Catalog) float64 {
		total := 0.0
		skipped := 0
		for _, ev := range events {
			impact, ok := Resolve(ev, cat)
			if !ok || ev.OccurredAt == nil {
				skipped++
				continue
			}
			elapsed := now.Sub(ev.OccurredAt.UTC()).Minutes()
			total += impact * Decay(elapsed, e.scaleMinutes)
		}
		if skipped > 0 {
			e.log.Debug("events_skipped", "user_id", userID, "skipped", skipped)
		}
		return initialScore + total
	})
	if err != nil {
		return 0, 0, err
	}

	metrics.ScoreComputations.Inc()
	metrics.ComputeDuration.Observe(time.Since(start).Seconds())
	e.log.Debug("score_computed", "user_id", userID, "score", score, "initial_score", initial)

	return score, initial, nil
}

// Record appends one event for the user. occurredAt defaults to the
// ingestion-time now when nil. Callers recompute synchronously after a
// successful insert; keeping that a separate Engine call is what lets a
// future deployment decouple ingestion from recomputation.
func (e *Engine) Record(ctx context.Context, userID int64, eventType *string, impact *float64, occurredAt *time.Time) error {
	at := time.Now().UTC()
	if occurredAt != nil {
		at = occurredAt.UTC()
	}

	ev := models.Event{
		UserID:     userID,
		EventType:  eventType,
		Impact:     impact,
		OccurredAt: &at,
	}
	if err := e.store.InsertEvent(ctx, ev); err != nil {
		return err
	}

	metrics.EventsIngested.Inc()
	return nil
}
