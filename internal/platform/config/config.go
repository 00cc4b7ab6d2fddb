package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config aggregates every tunable the service reads at startup. Values come
// from the environment so main stays lean; tests construct the struct
// directly.
type Config struct {
	Server    ServerConfig
	Limits    LimitsConfig
	OCR       OCRConfig
	AI        AIConfig
	Identity  IdentityConfig
	Callback  CallbackConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	SchemaSet string // optional YAML file overriding the extraction schema catalog
}

// ServerConfig captures HTTP server level configuration.
type ServerConfig struct {
	Addr          string
	JWTSigningKey string
}

// LimitsConfig bounds document intake and pre-flight validation.
type LimitsConfig struct {
	AllowedExtensions      []string
	MaxFileSizeMB          int
	MaxDocumentsPerRequest int
	MinConfidence          float64
	WorkerConcurrency      int
}

// OCRConfig points at the asynchronous text-extraction backend.
type OCRConfig struct {
	Endpoint     string
	APIKey       string
	Timeout      time.Duration
	PollInterval time.Duration
	PollAttempts int
}

// AIConfig points at the chat-completion classification backend.
type AIConfig struct {
	BaseURL         string
	APIKey          string
	ClassifyModel   string
	ExtractionModel string
	Timeout         time.Duration
}

// IdentityConfig points at the national identity registry (Boostr).
type IdentityConfig struct {
	BaseURL  string
	APIKey   string
	Timeout  time.Duration
	CacheTTL time.Duration
}

// CallbackConfig drives result delivery to owner-supplied webhooks.
type CallbackConfig struct {
	DefaultURL string
	Timeout    time.Duration
}

// PostgresConfig configures the result store. Empty DSN disables it.
type PostgresConfig struct {
	DSN string
}

// RedisConfig configures the identity-validation cache. Empty URL disables it.
type RedisConfig struct {
	URL string
}

// KafkaConfig configures the optional processing-event publisher. Empty
// broker list disables it.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// FromEnv builds the full configuration from environment variables, applying
// development-friendly defaults for everything non-secret.
func FromEnv() Config {
	return Config{
		Server: ServerConfig{
			Addr:          getEnv("VERIDOC_ADDR", ":8080"),
			JWTSigningKey: getEnv("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		},
		Limits: LimitsConfig{
			AllowedExtensions:      splitList(getEnv("ALLOWED_DOCUMENT_EXTENSIONS", ".pdf,.jpg,.jpeg,.png,.tiff,.tif")),
			MaxFileSizeMB:          getInt("MAX_FILE_SIZE_MB", 50),
			MaxDocumentsPerRequest: getInt("MAX_DOCUMENTS_PER_REQUEST", 30),
			MinConfidence:          getFloat("MIN_CLASSIFICATION_CONFIDENCE", 0.7),
			WorkerConcurrency:      getInt("WORKER_CONCURRENCY", 3),
		},
		OCR: OCRConfig{
			Endpoint:     os.Getenv("OCR_ENDPOINT"),
			APIKey:       os.Getenv("OCR_API_KEY"),
			Timeout:      getDuration("OCR_TIMEOUT", 30*time.Second),
			PollInterval: getDuration("OCR_POLL_INTERVAL", time.Second),
			PollAttempts: getInt("OCR_POLL_ATTEMPTS", 30),
		},
		AI: AIConfig{
			BaseURL:         getEnv("AI_API_BASE_URL", "https://api.deepseek.com/v1"),
			APIKey:          os.Getenv("AI_API_KEY"),
			ClassifyModel:   getEnv("AI_MODEL_CLASSIFICATION", "deepseek-chat"),
			ExtractionModel: getEnv("AI_MODEL_EXTRACTION", "deepseek-chat"),
			Timeout:         getDuration("AI_TIMEOUT", 30*time.Second),
		},
		Identity: IdentityConfig{
			BaseURL:  getEnv("BOOSTR_BASE_URL", "https://api.boostr.cl"),
			APIKey:   os.Getenv("BOOSTR_API_KEY"),
			Timeout:  getDuration("BOOSTR_TIMEOUT", 15*time.Second),
			CacheTTL: getDuration("BOOSTR_CACHE_TTL", 5*time.Minute),
		},
		Callback: CallbackConfig{
			DefaultURL: os.Getenv("RESULT_CALLBACK_URL"),
			Timeout:    getDuration("RESULT_CALLBACK_TIMEOUT", 30*time.Second),
		},
		Postgres: PostgresConfig{
			DSN: os.Getenv("POSTGRES_DSN"),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(os.Getenv("KAFKA_BROKERS")),
			Topic:   getEnv("KAFKA_EVENTS_TOPIC", "veridoc.processing.events"),
		},
		SchemaSet: os.Getenv("EXTRACTION_SCHEMA_FILE"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
