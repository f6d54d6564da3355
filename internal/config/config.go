package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Broker    BrokerConfig
	Fusion    FusionConfig
	Retention RetentionConfig
	Security  SecurityConfig
	Keys      KeysConfig
}

// KeysConfig names the in-process pubsub topics.
type KeysConfig struct {
	ObservationTopic string
	ScoreTopic       string
}

type AppConfig struct {
	Port               string
	BaseURL            string
	Environment        string
	LogFilePath        string
	StreamLogFilePath  string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
}

type DatabaseConfig struct {
	Connection string
}

type BrokerConfig struct {
	QueueCapacity int
	ProbeInterval time.Duration
	ProbeTimeout  time.Duration
	MaxMissedAcks int
	ResumeWindow  time.Duration
	WriteTimeout  time.Duration
	HighWatermark float64
	LowWatermark  float64
}

type FusionConfig struct {
	WindowLength time.Duration
	FocusDecay   float64

	// SuspendedTTL bounds how long a suspended session keeps its pipeline
	// state. Zero disables eviction.
	SuspendedTTL time.Duration
}

type RetentionConfig struct {
	SoftDeleteAfter time.Duration
	HardDeleteAfter time.Duration
	SweepSchedule   string // cron expression
}

type SecurityConfig struct {
	EncryptionKey string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "8000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:8000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			StreamLogFilePath:  getEnv("STREAM_LOG_FILE_PATH", "logs/stream.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Broker: BrokerConfig{
			QueueCapacity: getEnvAsInt("BROKER_QUEUE_CAPACITY", 64),
			ProbeInterval: getEnvAsDuration("BROKER_PROBE_INTERVAL", 30*time.Second),
			ProbeTimeout:  getEnvAsDuration("BROKER_PROBE_TIMEOUT", 10*time.Second),
			MaxMissedAcks: getEnvAsInt("BROKER_MAX_MISSED_ACKS", 3),
			ResumeWindow:  getEnvAsDuration("BROKER_RESUME_WINDOW", 5*time.Minute),
			WriteTimeout:  getEnvAsDuration("BROKER_WRITE_TIMEOUT", 10*time.Second),
			HighWatermark: getEnvAsFloat("BROKER_HIGH_WATERMARK", 0.8),
			LowWatermark:  getEnvAsFloat("BROKER_LOW_WATERMARK", 0.5),
		},
		Fusion: FusionConfig{
			WindowLength: getEnvAsDuration("FUSION_WINDOW_LENGTH", 2*time.Second),
			FocusDecay:   getEnvAsFloat("FUSION_FOCUS_DECAY", 0.9),
			SuspendedTTL: getEnvAsDuration("FUSION_SUSPENDED_TTL", 5*time.Minute),
		},
		Retention: RetentionConfig{
			SoftDeleteAfter: getEnvAsDuration("RETENTION_SOFT_DELETE_AFTER", 30*24*time.Hour),
			HardDeleteAfter: getEnvAsDuration("RETENTION_HARD_DELETE_AFTER", 60*24*time.Hour),
			SweepSchedule:   getEnv("RETENTION_SWEEP_SCHEDULE", "0 2 * * *"), // daily, 02:00
		},
		Security: SecurityConfig{
			EncryptionKey: getEnv("EAGLEARN_ENCRYPTION_KEY", ""),
		},
		Keys: KeysConfig{
			ObservationTopic: getEnv("PUBSUB_OBSERVATION_TOPIC", "observations"),
			ScoreTopic:       getEnv("PUBSUB_SCORE_TOPIC", "composite_scores"),
		},
	}
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

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}
