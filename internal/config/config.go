package config

import (
	"time"

	"github.com/reliancemove/service-quote/internal/common/config"
)

// ServiceConfig holds all configuration for the quote service.
type ServiceConfig struct {
	Port        string
	AppEnv      string
	DBConfig    config.DatabaseConfig
	KafkaConfig config.KafkaConfig
	RedisConfig config.RedisConfig

	BackendBaseURL    string
	BackendTimeout    time.Duration
	GoogleAPIKey      string
	DirectionsBaseURL string
	StripeSecretKey   string
	CORSOrigins       []string
	AdminToken        string

	DebounceWindow   time.Duration
	SessionTTL       time.Duration
	LookupCacheTTL   time.Duration
	LookupRatePerSec float64
	LookupBurst      int
	ClientRatePerSec float64
	ClientBurst      int
	SweepInterval    time.Duration
}

// Load reads configuration from QUOTE_* environment variables, .env and config.yaml.
func Load() (*ServiceConfig, error) {
	v, err := config.Load("QUOTE")
	if err != nil {
		return nil, err
	}

	v.SetDefault("BACKEND_BASE_URL", "http://localhost:5000")
	v.SetDefault("DIRECTIONS_BASE_URL", "https://maps.googleapis.com/maps/api/directions/json")
	v.SetDefault("DB_NAME", "quotes")
	v.SetDefault("LOOKUP_RATE_PER_SEC", 10.0)
	v.SetDefault("LOOKUP_BURST", 20)
	v.SetDefault("CLIENT_RATE_PER_SEC", 20.0)
	v.SetDefault("CLIENT_BURST", 40)

	return &ServiceConfig{
		Port:        config.GetServicePort(v, "SERVICE_PORT"),
		AppEnv:      config.GetAppEnv(v),
		DBConfig:    config.LoadDatabaseConfig(v, "DB_NAME"),
		KafkaConfig: config.LoadKafkaConfig(v),
		RedisConfig: config.LoadRedisConfig(v),

		BackendBaseURL:    v.GetString("BACKEND_BASE_URL"),
		BackendTimeout:    config.GetDuration(v, "BACKEND_TIMEOUT", 10*time.Second),
		GoogleAPIKey:      v.GetString("GOOGLE_API_KEY"),
		DirectionsBaseURL: v.GetString("DIRECTIONS_BASE_URL"),
		StripeSecretKey:   v.GetString("STRIPE_SECRET_KEY"),
		CORSOrigins:       config.GetList(v, "CORS_ORIGINS"),
		AdminToken:        v.GetString("ADMIN_TOKEN"),

		DebounceWindow:   config.GetDuration(v, "DEBOUNCE_WINDOW", 500*time.Millisecond),
		SessionTTL:       config.GetDuration(v, "SESSION_TTL", 2*time.Hour),
		LookupCacheTTL:   config.GetDuration(v, "LOOKUP_CACHE_TTL", 24*time.Hour),
		LookupRatePerSec: v.GetFloat64("LOOKUP_RATE_PER_SEC"),
		LookupBurst:      v.GetInt("LOOKUP_BURST"),
		ClientRatePerSec: v.GetFloat64("CLIENT_RATE_PER_SEC"),
		ClientBurst:      v.GetInt("CLIENT_BURST"),
		SweepInterval:    config.GetDuration(v, "SWEEP_INTERVAL", time.Minute),
	}, nil
}
