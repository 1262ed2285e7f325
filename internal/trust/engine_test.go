package trust

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"sync"
	"testing"
	"time"

	"trust-service/internal/models"
)

// fakeStore mimics the Postgres store: Aggregate serializes the whole
// read-aggregate-write sequence and appends one history row per call.
type fakeStore struct {
	mu      sync.Mutex
	users   map[int64]float64
	catalog MapCatalog
	events  map[int64][]models.Event
	current map[int64]float64
	history map[int64][]models.ScoreSnapshot
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:   make(map[int64]float64),
		catalog: make(MapCatalog),
		events:  make(map[int64][]models.Event),
		current: make(map[int64]float64),
		history: make(map[int64][]models.ScoreSnapshot),
	}
}

func (f *fakeStore) Aggregate(ctx context.Context, userID int64, fn AggregateFunc) (float64, float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	initial, ok := f.users[userID]
	if !ok {
		return 0, 0, ErrUserNotFound
	}
	score := fn(initial, f.events[userID], f.catalog)
	f.current[userID] = score
	f.history[userID] = append(f.history[userID], models.ScoreSnapshot{
		UserID:     userID,
		Score:      score,
		RecordedAt: time.Now().UTC(),
	})
	return score, initial, nil
}

func (f *fakeStore) InsertEvent(ctx context.Context, ev models.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	ev.ID = int64(len(f.events[ev.UserID]) + 1)
	f.events[ev.UserID] = append(f.events[ev.UserID], ev)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEngine(t *testing.T, st Store, scale float64) *Engine {
	t.Helper()
	e, err := NewEngine(st, scale, testLogger())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e
}

func TestNewEngine_RejectsBadScale(t *testing.T) {
	for _, scale := range []float64{0, -1} {
		if _, err := NewEngine(newFakeStore(), scale, testLogger()); err == nil {
			t.Errorf("NewEngine with scale %v: expected error", scale)
		}
	}
}

func TestEngine_ComputeDecayExample(t *testing.T) {
	// initial 100, one event impact -10 exactly one time scale ago:
	// score = 100 - 10*exp(-1) ~ 96.321
	st := newFakeStore()
	st.users[1] = 100

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	occurred := now.Add(-1440 * time.Minute)
	st.events[1] = []models.Event{{ID: 1, UserID: 1, Impact: ptr(-10.0), OccurredAt: &occurred}}

	e := newTestEngine(t, st, 1440)
	score, initial, err := e.Compute(context.Background(), 1, now)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if initial != 100 {
		t.Errorf("initial = %v, want 100", initial)
	}
	want := 100 - 10*math.Exp(-1)
	if math.Abs(score-want) > 1e-9 {
		t.Errorf("score = %v, want %v", score, want)
	}
	if st.current[1] != score {
		t.Errorf("persisted current_score %v != returned score %v", st.current[1], score)
	}
	if len(st.history[1]) != 1 || st.history[1][0].Score != score {
		t.Errorf("expected one history row matching the score, got %+v", st.history[1])
	}
}

func TestEngine_CatalogDefaultApplied(t *testing.T) {
	st := newFakeStore()
	st.users[1] = 50
	st.catalog["login_fail"] = -5

	now := time.Now().UTC()
	st.events[1] = []models.Event{{ID: 1, UserID: 1, EventType: ptr("login_fail"), OccurredAt: &now}}

	e := newTestEngine(t, st, 1440)
	score, _, err := e.Compute(context.Background(), 1, now)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	// zero elapsed, weight 1
	if math.Abs(score-45) > 1e-9 {
		t.Errorf("score = %v, want 45", score)
	}
}

func TestEngine_Idempotent(t *testing.T) {
	st := newFakeStore()
	st.users[1] = 100
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	occurred := now.Add(-30 * time.Minute)
	st.events[1] = []models.Event{{ID: 1, UserID: 1, Impact: ptr(4.0), OccurredAt: &occurred}}

	e := newTestEngine(t, st, 1440)
	first, _, err := e.Compute(context.Background(), 1, now)
	if err != nil {
		t.Fatalf("first Compute: %v", err)
	}
	second, _, err := e.Compute(context.Background(), 1, now)
	if err != nil {
		t.Fatalf("second Compute: %v", err)
	}
	if first != second {
		t.Errorf("same now, no new events: scores differ (%v vs %v)", first, second)
	}
	if len(st.history[1]) != 2 {
		t.Errorf("expected two history rows, got %d", len(st.history[1]))
	}
	for _, snap := range st.history[1] {
		if snap.Score != first {
			t.Errorf("history row score %v != %v", snap.Score, first)
		}
	}
}

func TestEngine_UserNotFoundWritesNothing(t *testing.T) {
	st := newFakeStore()
	e := newTestEngine(t, st, 1440)

	_, _, err := e.Compute(context.Background(), 99, time.Now().UTC())
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("Compute(ghost) = %v, want ErrUserNotFound", err)
	}
	if len(st.history[99]) != 0 {
		t.Errorf("no history row should be written for an unknown user")
	}
}

func TestEngine_SkipsUnresolvableAndUndated(t *testing.T) {
	st := newFakeStore()
	st.users[1] = 100
	now := time.Now().UTC()

	st.events[1] = []models.Event{
		{ID: 1, UserID: 1, EventType: ptr("no_such_type"), OccurredAt: &now}, // no resolvable impact
		{ID: 2, UserID: 1},                                                  // neither type nor impact
		{ID: 3, UserID: 1, Impact: ptr(-50.0)},                              // impact but no occurred_at
	}

	e := newTestEngine(t, st, 1440)
	score, _, err := e.Compute(context.Background(), 1, now)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if score != 100 {
		t.Errorf("score = %v, want 100 (all events skipped)", score)
	}
}

func TestEngine_FarPastEventNegligible(t *testing.T) {
	st := newFakeStore()
	st.users[1] = 100
	now := time.Now().UTC()
	occurred := now.Add(-365 * 24 * time.Hour)
	st.events[1] = []models.Event{{ID: 1, UserID: 1, Impact: ptr(-1000.0), OccurredAt: &occurred}}

	e := newTestEngine(t, st, 1440)
	score, _, err := e.Compute(context.Background(), 1, now)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if math.Abs(score-100) > 1e-6 {
		t.Errorf("score = %v, want ~100 (far-past event weight ~0)", score)
	}
}

func TestEngine_ConcurrentDistinctUsers(t *testing.T) {
	st := newFakeStore()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	occurredA := now.Add(-1440 * time.Minute)
	occurredB := now.Add(-720 * time.Minute)

	st.users[1] = 100
	st.users[2] = 200
	st.events[1] = []models.Event{{ID: 1, UserID: 1, Impact: ptr(-10.0), OccurredAt: &occurredA}}
	st.events[2] = []models.Event{{ID: 1, UserID: 2, Impact: ptr(20.0), OccurredAt: &occurredB}}

	e := newTestEngine(t, st, 1440)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		for _, userID := range []int64{1, 2} {
			wg.Add(1)
			go func(id int64) {
				defer wg.Done()
				if _, _, err := e.Compute(context.Background(), id, now); err != nil {
					t.Errorf("Compute(%d): %v", id, err)
				}
			}(userID)
		}
	}
	wg.Wait()

	wantA := 100 - 10*math.Exp(-1)
	wantB := 200 + 20*math.Exp(-0.5)
	if math.Abs(st.current[1]-wantA) > 1e-9 {
		t.Errorf("user 1 score = %v, want %v", st.current[1], wantA)
	}
	if math.Abs(st.current[2]-wantB) > 1e-9 {
		t.Errorf("user 2 score = %v, want %v", st.current[2], wantB)
	}
	if len(st.history[1]) != 10 || len(st.history[2]) != 10 {
		t.Errorf("expected 10 history rows each, got %d and %d", len(st.history[1]), len(st.history[2]))
	}
}

func TestEngine_RecordDefaultsOccurredAt(t *testing.T) {
	st := newFakeStore()
	st.users[1] = 100
	e := newTestEngine(t, st, 1440)

	before := time.Now().UTC()
	if err := e.Record(context.Background(), 1, ptr("login_fail"), nil, nil); err != nil {
		t.Fatalf("Record: %v", err)
	}
	after := time.Now().UTC()

	events := st.events[1]
	if len(events) != 1 {
		t.Fatalf("expected one event, got %d", len(events))
	}
	got := events[0]
	if got.OccurredAt == nil || got.OccurredAt.Before(before) || got.OccurredAt.After(after) {
		t.Errorf("occurred_at not defaulted to ingestion time: %v", got.OccurredAt)
	}
	if got.EventType == nil || *got.EventType != "login_fail" {
		t.Errorf("event_type not preserved: %v", got.EventType)
	}
	if got.Impact != nil {
		t.Errorf("impact should stay unset, got %v", *got.Impact)
	}
}

func TestEngine_RecordKeepsExplicitOccurredAt(t *testing.T) {
	st := newFakeStore()
	st.users[1] = 100
	e := newTestEngine(t, st, 1440)

	at := time.Date(2024, 1, 2, 15, 4, 5, 0, time.UTC)
	if err := e.Record(context.Background(), 1, nil, ptr(-3.0), &at); err != nil {
		t.Fatalf("Record: %v", err)
	}

	got := st.events[1][0]
	if got.OccurredAt == nil || !got.OccurredAt.Equal(at) {
		t.Errorf("occurred_at = %v, want %v", got.OccurredAt, at)
	}
}
