package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	Port        string
	DatabaseURL string

	LogLevel string
	Env      string

	// HTTPTimeout bounds every outbound upstream call at the transport level.
	HTTPTimeout time.Duration

	GeocodingBaseURL string
	WeatherBaseURL   string
	UserAgent        string
	AcceptLanguage   string

	// MaxDaysAllowed caps the days parameter of average lookups.
	MaxDaysAllowed int

	// Cache TTL windows. Geocoding results use the month window, weather
	// and orchestrated series the hour window.
	CacheTTLHour  time.Duration
	CacheTTLDay   time.Duration
	CacheTTLMonth time.Duration

	// GeocodeMinInterval is the minimum spacing between geocoding requests
	// required by the upstream's usage policy.
	GeocodeMinInterval time.Duration

	// Warm-up scheduler. Empty WarmupCities disables it.
	WarmupCities   []string
	WarmupDays     int
	WarmupInterval time.Duration

	ShutdownTimeout time.Duration
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}

	cfg := &AppConfig{
		Port:        getenvDefault("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		LogLevel:    getenvDefault("LOG_LEVEL", "info"),
		Env:         getenvDefault("APP_ENV", "development"),

		GeocodingBaseURL: getenvDefault("GEOCODING_BASE_URL", "https://nominatim.openstreetmap.org/search"),
		WeatherBaseURL:   getenvDefault("WEATHER_BASE_URL", "https://api.open-meteo.com/v1/forecast"),
		UserAgent:        getenvDefault("USER_AGENT", "WeatherDataPlatform/1.0"),
		AcceptLanguage:   getenvDefault("ACCEPT_LANGUAGE", "en-US,en;q=0.9"),

		MaxDaysAllowed: getenvInt("MAX_DAYS_ALLOWED", 30),
		WarmupDays:     getenvInt("WARMUP_DAYS", 7),
		WarmupCities:   splitList(os.Getenv("WARMUP_CITIES")),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL must be set")
	}
	if cfg.MaxDaysAllowed < 1 {
		return nil, fmt.Errorf("MAX_DAYS_ALLOWED must be at least 1")
	}

	var err error
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "10s"); err != nil {
		return nil, err
	}
	if cfg.CacheTTLHour, err = getenvDuration("CACHE_TTL_HOUR", "1h"); err != nil {
		return nil, err
	}
	if cfg.CacheTTLDay, err = getenvDuration("CACHE_TTL_DAY", "24h"); err != nil {
		return nil, err
	}
	if cfg.CacheTTLMonth, err = getenvDuration("CACHE_TTL_MONTH", "720h"); err != nil {
		return nil, err
	}
	if cfg.GeocodeMinInterval, err = getenvDuration("GEOCODE_MIN_INTERVAL", "1s"); err != nil {
		return nil, err
	}
	if cfg.WarmupInterval, err = getenvDuration("WARMUP_INTERVAL", "1h"); err != nil {
		return nil, err
	}
	if cfg.ShutdownTimeout, err = getenvDuration("SHUTDOWN_TIMEOUT", "10s"); err != nil {
		return nil, err
	}

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
