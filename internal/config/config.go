package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App        AppConfig
	Database   DatabaseConfig
	Session    SessionConfig
	Capability CapabilityConfig
	Auth       AuthConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	EventTopic         string
	GallerySize        int
	OtelEnabled        bool
	OtelEndpoint       string
}

type DatabaseConfig struct {
	Connection string
	Verbose    bool
}

type SessionConfig struct {
	Timeout   time.Duration
	Retention time.Duration
	Store     string // "memory" or "postgres"
	Lock      string // "local" or "redis"
	LockMode  string // "queue" or "reject"
	LockTTL   time.Duration
}

type CapabilityConfig struct {
	LLMProvider     string // "ollama" or "huggingface"
	LLMModel        string
	LLMBaseURL      string
	LLMAPIKey       string
	MediaBaseURL    string
	MediaAPIKey     string
	Timeout         time.Duration
	MediaTimeout    time.Duration
	RetryAttempts   int
	RetryBaseDelay  time.Duration
	RetryMaxDelay   time.Duration
	IdeaCount       int
	AnimationLength int
}

type AuthConfig struct {
	JwtSecret string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}

	cfg := &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log.csv"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", ""),
			RedisURL:           getEnv("REDIS_URL", ""),
			EventTopic:         getEnv("STUDIO_EVENT_TOPIC", "STUDIO_EVENTS"),
			GallerySize:        getEnvAsInt("GALLERY_SIZE", 500),
			OtelEnabled:        getEnv("OTEL_ENABLED", "false") == "true",
			OtelEndpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
			Verbose:    getEnv("DB_VERBOSE", "false") == "true",
		},
		Session: SessionConfig{
			Timeout:   getEnvAsDuration("SESSION_TIMEOUT", 24*time.Hour),
			Retention: getEnvAsDuration("SESSION_RETENTION", 7*24*time.Hour),
			Store:     getEnv("SESSION_STORE", "memory"),
			Lock:      getEnv("TURN_LOCK", "local"),
			LockMode:  getEnv("TURN_LOCK_MODE", "queue"),
			LockTTL:   getEnvAsDuration("TURN_LOCK_TTL", 10*time.Minute),
		},
		Capability: CapabilityConfig{
			LLMProvider:     getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:        getEnv("LLM_MODEL", "llama3"),
			LLMBaseURL:      getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			LLMAPIKey:       getEnv("HUGGINGFACE_API_KEY", ""),
			MediaBaseURL:    getEnv("MEDIA_BASE_URL", "http://localhost:8188"),
			MediaAPIKey:     getEnv("MEDIA_API_KEY", ""),
			Timeout:         getEnvAsDuration("LLM_TIMEOUT", 60*time.Second),
			MediaTimeout:    getEnvAsDuration("MEDIA_TIMEOUT", 5*time.Minute),
			RetryAttempts:   getEnvAsInt("CAPABILITY_RETRY_ATTEMPTS", 3),
			RetryBaseDelay:  getEnvAsDuration("CAPABILITY_RETRY_BASE_DELAY", time.Second),
			RetryMaxDelay:   getEnvAsDuration("CAPABILITY_RETRY_MAX_DELAY", 8*time.Second),
			IdeaCount:       getEnvAsInt("IDEA_COUNT", 3),
			AnimationLength: getEnvAsInt("ANIMATION_SECONDS", 5),
		},
		Auth: AuthConfig{
			JwtSecret: getEnv("JWT_SECRET", ""),
		},
	}

	// an idle but unexpired session must never be evicted from the store
	if cfg.Session.Retention < cfg.Session.Timeout {
		log.Printf("Note: SESSION_RETENTION %s is shorter than SESSION_TIMEOUT, using %s", cfg.Session.Retention, cfg.Session.Timeout)
		cfg.Session.Retention = cfg.Session.Timeout
	}
	return cfg
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil && value > 0 {
		return value
	}
	return fallback
}
