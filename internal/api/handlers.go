package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"trust-service/internal/models"
	"trust-service/internal/trust"
)

// getScore recomputes the user's score from the full event history and
// returns the persisted result.
func (s *Server) getScore(c *gin.Context) {
	username := c.Param("username")
	if err := trust.ValidateUsername(username); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "missing_username", "message": "username required"}})
		return
	}

	ctx, cancel := s.ctx(c)
	defer cancel()

	u, ok := s.lookupUser(c, ctx, username)
	if !ok {
		return
	}

	score, initial, err := s.engine.Compute(ctx, u.UserID, time.Now().UTC())
	if err != nil {
		s.computeError(c, username, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"username":      username,
		"initial_score": initial,
		"score":         score,
	})
}

// recordEvent ingests one event and synchronously recomputes the score.
func (s *Server) recordEvent(c *gin.Context) {
	var req struct {
		Username   string   `json:"username"`
		EventType  *string  `json:"event_type"`
		Impact     *float64 `json:"impact"`
		OccurredAt *string  `json:"occurred_at"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "invalid_request", "message": err.Error()}})
		return
	}
	if err := trust.ValidateUsername(req.Username); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "missing_username", "message": "username required"}})
		return
	}

	// reject malformed timestamps outright before touching storage
	var occurredAt *time.Time
	if req.OccurredAt != nil && strings.TrimSpace(*req.OccurredAt) != "" {
		t, err := trust.ParseTimestamp(*req.OccurredAt)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "invalid_timestamp", "message": "invalid occurred_at format, use ISO"}})
			return
		}
		occurredAt = &t
	}

	ctx, cancel := s.ctx(c)
	defer cancel()

	u, ok := s.lookupUser(c, ctx, req.Username)
	if !ok {
		return
	}

	if err := s.engine.Record(ctx, u.UserID, req.EventType, req.Impact, occurredAt); err != nil {
		s.log.Error("event_insert_failed", "username", req.Username, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{"code": "db_error", "message": "failed to record event"}})
		return
	}

	if s.redis != nil {
		key := fmt.Sprintf("events:ingested:%s", time.Now().UTC().Format("2006-01-02"))
		if _, err := s.redis.Increment(ctx, key, 48*time.Hour); err != nil {
			s.log.Warn("ingest_counter_failed", "error", err)
		}
	}

	score, _, err := s.engine.Compute(ctx, u.UserID, time.Now().UTC())
	if err != nil {
		s.computeError(c, req.Username, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"username": req.Username, "score": score})
}

func (s *Server) recompute(c *gin.Context) {
	username := c.Param("username")
	if err := trust.ValidateUsername(username); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "missing_username", "message": "username required"}})
		return
	}

	ctx, cancel := s.ctx(c)
	defer cancel()

	u, ok := s.lookupUser(c, ctx, username)
	if !ok {
		return
	}

	score, _, err := s.engine.Compute(ctx, u.UserID, time.Now().UTC())
	if err != nil {
		s.computeError(c, username, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"username": username, "score": score})
}

// getHistory returns the snapshot audit trail, newest first.
func (s *Server) getHistory(c *gin.Context) {
	username := c.Param("username")
	if err := trust.ValidateUsername(username); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "missing_username", "message": "username required"}})
		return
	}

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 500 {
			c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "invalid_limit", "message": "limit must be 1..500"}})
			return
		}
		limit = n
	}

	ctx, cancel := s.ctx(c)
	defer cancel()

	u, ok := s.lookupUser(c, ctx, username)
	if !ok {
		return
	}

	history, err := s.dir.ScoreHistory(ctx, u.UserID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{"code": "db_error", "message": "failed to read history"}})
		return
	}

	c.JSON(http.StatusOK, gin.H{"username": username, "history": history})
}

func (s *Server) listEventTypes(c *gin.Context) {
	ctx, cancel := s.ctx(c)
	defer cancel()

	const cacheKey = "event_types:catalog"
	if s.redis != nil {
		if cached, err := s.redis.Get(ctx, cacheKey); err == nil && cached != "" {
			c.Data(http.StatusOK, "application/json", []byte(cached))
			c.Header("X-Cache", "HIT")
			return
		}
	}

	eventTypes, err := s.dir.EventTypes(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{"code": "db_error", "message": "failed to read event types"}})
		return
	}

	response := gin.H{"event_types": eventTypes}
	if s.redis != nil {
		if jsonData, err := json.Marshal(response); err == nil {
			s.redis.Set(ctx, cacheKey, string(jsonData), 5*time.Minute)
		}
	}

	c.JSON(http.StatusOK, response)
}

func (s *Server) health(c *gin.Context) {
	ctx, cancel := s.ctx(c)
	defer cancel()

	dbStatus := "connected"
	if s.db == nil || s.db.Pool.Ping(ctx) != nil {
		dbStatus = "disconnected"
	}

	redisStatus := "disabled"
	if s.redis != nil {
		redisStatus = "connected"
		if err := s.redis.RDB().Ping(ctx).Err(); err != nil {
			redisStatus = "disconnected"
		}
	}

	var eventsIngestedToday int64
	if s.redis != nil {
		key := fmt.Sprintf("events:ingested:%s", time.Now().UTC().Format("2006-01-02"))
		if count, err := s.redis.GetInt(ctx, key); err == nil {
			eventsIngestedToday = count
		}
	}

	status := "healthy"
	if dbStatus != "connected" {
		status = "unhealthy"
	}

	response := gin.H{
		"status":                status,
		"database":              dbStatus,
		"redis":                 redisStatus,
		"events_ingested_today": eventsIngestedToday,
	}

	if status == "unhealthy" {
		c.JSON(http.StatusServiceUnavailable, response)
		return
	}
	c.JSON(http.StatusOK, response)
}

// lookupUser resolves a username, writing the error response itself when
// the lookup fails.
func (s *Server) lookupUser(c *gin.Context, ctx context.Context, username string) (models.User, bool) {
	user, err := s.dir.UserByUsername(ctx, username)
	if errors.Is(err, trust.ErrUserNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": gin.H{"code": "user_not_found", "message": "user not found"}})
		return models.User{}, false
	}
	if err != nil {
		s.log.Error("user_lookup_failed", "username", username, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{"code": "db_error", "message": "failed to look up user"}})
		return models.User{}, false
	}
	return user, true
}

func (s *Server) computeError(c *gin.Context, username string, err error) {
	if errors.Is(err, trust.ErrUserNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": gin.H{"code": "user_not_found", "message": "user not found"}})
		return
	}
	s.log.Error("score_compute_failed", "username", username, "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{"code": "db_error", "message": "failed to compute score"}})
}
