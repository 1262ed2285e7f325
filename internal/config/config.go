package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	DBDSN       string
	HTTPAddr    string
	LogLevel    string
	RedisDSN    string
	CORSOrigins []string

	// decay time scale in minutes, shared by every computation
	TScaleMinutes float64
}

func Load() (Config, error) {
	cfg := Config{
		DBDSN:    os.Getenv("DB_DSN"),
		HTTPAddr: getenvDefault("HTTP_ADDR", ":8080"),
		LogLevel: getenvDefault("LOG_LEVEL", "info"),
		RedisDSN: os.Getenv("REDIS_DSN"),
	}

	if cfg.DBDSN == "" {
		return Config{}, errors.New("missing DB_DSN")
	}

	scaleRaw := getenvDefault("T_SCALE_MINUTES", "1440")
	scale, err := strconv.ParseFloat(scaleRaw, 64)
	if err != nil {
		return Config{}, fmt.Errorf("T_SCALE_MINUTES must be a number, got %q", scaleRaw)
	}
	if scale <= 0 {
		return Config{}, fmt.Errorf("T_SCALE_MINUTES must be > 0, got %v", scale)
	}
	cfg.TScaleMinutes = scale

	corsOrigins := getenvDefault("CORS_ORIGINS", "")
	if corsOrigins != "" {
		cfg.CORSOrigins = strings.Split(corsOrigins, ",")
		for i := range cfg.CORSOrigins {
			cfg.CORSOrigins[i] = strings.TrimSpace(cfg.CORSOrigins[i])
		}
	} else {
		cfg.CORSOrigins = []string{"*"}
	}

	return cfg, nil
}

func getenvDefault(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}
