package models

import "time"

type User struct {
	UserID       int64      `json:"user_id"`
	Username     string     `json:"username"`
	InitialScore float64    `json:"initial_score"`
	CurrentScore *float64   `json:"current_score,omitempty"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty"`
}

// EventType is a catalog row mapping a label to its default impact.
// Impact may be unset; such entries never contribute to a score.
type EventType struct {
	EventType string   `json:"event_type"`
	Impact    *float64 `json:"impact,omitempty"`
}

// Event is one recorded observation for a user. EventType, Impact and
// OccurredAt are all nullable in storage; an explicit Impact overrides the
// catalog default for the event type.
type Event struct {
	ID         int64      `json:"id"`
	UserID     int64      `json:"user_id"`
	EventType  *string    `json:"event_type,omitempty"`
	Impact     *float64   `json:"impact,omitempty"`
	OccurredAt *time.Time `json:"occurred_at,omitempty"`
}

// ScoreSnapshot is one append-only score_history row.
type ScoreSnapshot struct {
	UserID     int64     `json:"user_id"`
	Score      float64   `json:"score"`
	RecordedAt time.Time `json:"recorded_at"`
}
