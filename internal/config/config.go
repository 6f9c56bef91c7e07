package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	Environment string
	LogLevel    slog.Level
	LogFile     string

	DatabaseURL   string
	DBAutoMigrate bool
	RedisURL      string

	Casdoor    CasdoorConfig
	Kafka      KafkaConfig
	Storage    StorageConfig
	Assessment AssessmentConfig

	// Secret the file encryption key is derived from. Loaded once at startup.
	FileEncryptionKey       string
	FileAccessRatePerMinute int
	CORSAllowedOrigins      []string
}

type CasdoorConfig struct {
	Endpoint     string
	ClientID     string
	ClientSecret string
	Cert         string
	Organization string
	Application  string
}

type KafkaConfig struct {
	Brokers     []string
	TopicPrefix string
}

type StorageConfig struct {
	Driver    string // "local" or "minio"
	LocalPath string

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
}

type AssessmentConfig struct {
	QuotaCountsExpired  bool
	ExpirySweepInterval time.Duration
	ExpirySweepBatch    int
}

// LoadConfig reads .env (if present) and then the process environment.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	cfg := &Config{
		Port:          getEnv("PORT", "8080"),
		Environment:   getEnv("ENVIRONMENT", "development"),
		LogLevel:      parseLogLevel(getEnv("LOG_LEVEL", "info")),
		LogFile:       os.Getenv("LOG_FILE"),
		DatabaseURL:   databaseURL(),
		DBAutoMigrate: getEnvBool("DB_AUTO_MIGRATE", true),
		RedisURL:      os.Getenv("REDIS_URL"),
		Casdoor: CasdoorConfig{
			Endpoint:     os.Getenv("CASDOOR_ENDPOINT"),
			ClientID:     os.Getenv("CASDOOR_CLIENT_ID"),
			ClientSecret: os.Getenv("CASDOOR_CLIENT_SECRET"),
			Cert:         os.Getenv("CASDOOR_CERTIFICATE"),
			Organization: os.Getenv("CASDOOR_ORGANIZATION"),
			Application:  os.Getenv("CASDOOR_APPLICATION"),
		},
		Kafka: KafkaConfig{
			Brokers:     splitList(os.Getenv("KAFKA_BROKERS")),
			TopicPrefix: getEnv("KAFKA_TOPIC_PREFIX", "lms"),
		},
		Storage: StorageConfig{
			Driver:         getEnv("STORAGE_DRIVER", "local"),
			LocalPath:      getEnv("STORAGE_LOCAL_PATH", "./storage/private"),
			MinioEndpoint:  os.Getenv("MINIO_ENDPOINT"),
			MinioAccessKey: os.Getenv("MINIO_ACCESS_KEY"),
			MinioSecretKey: os.Getenv("MINIO_SECRET_KEY"),
			MinioBucket:    getEnv("MINIO_BUCKET", "lms-secure-files"),
			MinioUseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
		Assessment: AssessmentConfig{
			QuotaCountsExpired:  getEnvBool("ATTEMPT_QUOTA_COUNTS_EXPIRED", true),
			ExpirySweepInterval: getEnvDuration("EXPIRY_SWEEP_INTERVAL", 0),
			ExpirySweepBatch:    getEnvInt("EXPIRY_SWEEP_BATCH", 100),
		},
		FileEncryptionKey:       os.Getenv("FILE_ENCRYPTION_KEY"),
		FileAccessRatePerMinute: getEnvInt("FILE_ACCESS_RATE_PER_MINUTE", 60),
		CORSAllowedOrigins:      splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL or DB_* variables are required")
	}
	if c.FileEncryptionKey == "" {
		return errors.New("FILE_ENCRYPTION_KEY is required")
	}
	switch c.Storage.Driver {
	case "local":
		if c.Storage.LocalPath == "" {
			return errors.New("STORAGE_LOCAL_PATH is required for local storage")
		}
	case "minio":
		if c.Storage.MinioEndpoint == "" || c.Storage.MinioBucket == "" {
			return errors.New("MINIO_ENDPOINT and MINIO_BUCKET are required for minio storage")
		}
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.Storage.Driver)
	}
	if c.FileAccessRatePerMinute <= 0 {
		return errors.New("FILE_ACCESS_RATE_PER_MINUTE must be positive")
	}
	return nil
}

func databaseURL() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}
	host := os.Getenv("DB_HOST")
	if host == "" {
		return ""
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
		host,
		getEnv("DB_PORT", "5432"),
		getEnv("DB_USER", "postgres"),
		os.Getenv("DB_PASSWORD"),
		getEnv("DB_NAME", "lms"),
		getEnv("DB_SSLMODE", "disable"),
	)
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

func splitList(v string) []string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
