package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment string
	Port        string
	LogLevel    slog.Level

	DBDriver    string
	DatabaseURL string
	SQLitePath  string

	RedisURL string

	JWTSecret string
	TokenTTL  time.Duration

	Casdoor CasdoorConfig
	Kafka   KafkaConfig

	Storage StorageConfig

	QuestionBankDir string
	Session         SessionConfig
	CORSOrigins     []string
}

type CasdoorConfig struct {
	Endpoint     string
	ClientID     string
	ClientSecret string
	Cert         string
	Organization string
	Application  string
}

// Enabled reports whether casdoor tokens can be verified.
func (c CasdoorConfig) Enabled() bool {
	return c.Endpoint != "" && c.ClientID != "" && c.Cert != ""
}

type KafkaConfig struct {
	Brokers       []string
	ConsumerGroup string
}

type StorageConfig struct {
	Dir           string
	MaxUploadSize int64
}

type SessionConfig struct {
	DurationSeconds int
	TotalQuestions  int
	TotalMarks      int
	MaxAttempts     int
	IdleTimeout     time.Duration
	SweepInterval   time.Duration
	SaveTimeout     time.Duration
}

// LoadConfig reads the environment, loading a .env file first when present.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Port:        getEnv("PORT", "8080"),
		LogLevel:    parseLogLevel(getEnv("LOG_LEVEL", "info")),

		DBDriver:    strings.ToLower(getEnv("DB_DRIVER", "postgres")),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		SQLitePath:  getEnv("SQLITE_PATH", "mocktest.db"),

		RedisURL: getEnv("REDIS_URL", ""),

		JWTSecret: getEnv("JWT_SECRET", ""),
		TokenTTL:  getDuration("TOKEN_TTL", 7*24*time.Hour),

		Casdoor: CasdoorConfig{
			Endpoint:     getEnv("CASDOOR_ENDPOINT", ""),
			ClientID:     getEnv("CASDOOR_CLIENT_ID", ""),
			ClientSecret: getEnv("CASDOOR_CLIENT_SECRET", ""),
			Cert:         getEnv("CASDOOR_CERT", ""),
			Organization: getEnv("CASDOOR_ORGANIZATION", ""),
			Application:  getEnv("CASDOOR_APPLICATION", ""),
		},
		Kafka: KafkaConfig{
			Brokers:       splitList(getEnv("KAFKA_BROKERS", "")),
			ConsumerGroup: getEnv("KAFKA_CONSUMER_GROUP", "mocktest-service"),
		},

		Storage: StorageConfig{
			Dir:           getEnv("STORAGE_DIR", "./data/blobs"),
			MaxUploadSize: int64(getInt("MAX_UPLOAD_SIZE", 2*1024*1024)),
		},

		QuestionBankDir: getEnv("QUESTION_BANK_DIR", "./data/question_banks"),
		Session: SessionConfig{
			DurationSeconds: getInt("TEST_DURATION_SECONDS", 3000),
			TotalQuestions:  getInt("TEST_TOTAL_QUESTIONS", 25),
			TotalMarks:      getInt("TEST_TOTAL_MARKS", 40),
			MaxAttempts:     getInt("SELECTOR_MAX_ATTEMPTS", 500),
			IdleTimeout:     getDuration("SESSION_IDLE_TIMEOUT", 2*time.Hour),
			SweepInterval:   getDuration("SESSION_SWEEP_INTERVAL", 5*time.Minute),
			SaveTimeout:     getDuration("PROGRESS_SAVE_TIMEOUT", 10*time.Second),
		},
		CORSOrigins: splitList(getEnv("CORS_ORIGINS", "*")),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.DBDriver {
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres driver")
		}
	case "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}

	if c.JWTSecret == "" {
		if c.Environment == "production" {
			return fmt.Errorf("JWT_SECRET is required in production")
		}
		c.JWTSecret = "dev-secret-change-me"
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseLogLevel(v string) slog.Level {
	switch strings.ToLower(v) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
