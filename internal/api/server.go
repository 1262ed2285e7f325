package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"trust-service/internal/config"
	"trust-service/internal/db"
	"trust-service/internal/models"
	"trust-service/internal/redis"
	"trust-service/internal/security"
)

// ScoreEngine is the part of the trust engine the handlers drive.
type ScoreEngine interface {
	Compute(ctx context.Context, userID int64, now time.Time) (score, initial float64, err error)
	Record(ctx context.Context, userID int64, eventType *string, impact *float64, occurredAt *time.Time) error
}

// Directory reads users and reference/audit data from the store.
type Directory interface {
	UserByUsername(ctx context.Context, username string) (models.User, error)
	ScoreHistory(ctx context.Context, userID int64, limit int) ([]models.ScoreSnapshot, error)
	EventTypes(ctx context.Context) ([]models.EventType, error)
}

type Server struct {
	log     *slog.Logger
	cfg     config.Config
	db      *db.DB
	redis   *redis.Client // nil when REDIS_DSN is not configured
	dir     Directory
	engine  ScoreEngine
	limiter *security.LimiterStore
	router  *gin.Engine
}

func NewServer(log *slog.Logger, cfg config.Config, dbConn *db.DB, redisClient *redis.Client, dir Directory, engine ScoreEngine) *Server {
	s := &Server{
		log:     log,
		cfg:     cfg,
		db:      dbConn,
		redis:   redisClient,
		dir:     dir,
		engine:  engine,
		limiter: security.NewLimiterStore(60, 120, 10*time.Minute),
		router:  gin.New(),
	}

	gin.SetMode(gin.ReleaseMode)
	r := s.router
	r.Use(gin.Recovery())
	r.Use(s.requestIDMiddleware())
	r.Use(s.corsMiddleware())
	r.Use(s.loggingMiddleware())
	r.Use(s.rateLimitMiddleware())

	v1 := r.Group("/api/v1")
	{
		v1.GET("/score/:username", s.getScore)
		v1.POST("/events", s.recordEvent)
		v1.POST("/recompute/:username", s.recompute)
		v1.GET("/history/:username", s.getHistory)
		v1.GET("/event-types", s.listEventTypes)
		v1.GET("/health", s.health)
	}

	// legacy routes matching the original service paths
	r.GET("/healthz", func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })
	r.GET("/score/:username", s.getScore)
	r.POST("/events", s.recordEvent)
	r.POST("/recompute/:username", s.recompute)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) ctx(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), 10*time.Second)
}
