// Package config loads process configuration from an optional .env file
// and the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Addr   string `validate:"required"`
	DBPath string `validate:"required"`

	MinWorkDuration int    `validate:"gt=0"` // minutes
	TopAdminRole    string `validate:"required"`

	MailFrom     string `validate:"omitempty,email"`
	MailFromName string
	SMTPHost     string
	SMTPPort     int `validate:"gte=0,lte=65535"`
	SMTPUser     string
	SMTPPassword string
	SMTPUseTLS   bool

	KafkaBrokers []string
	KafkaTopic   string

	RedisAddr string
	LockTTL   time.Duration `validate:"gt=0"`

	IncrementInterval  time.Duration `validate:"gte=0"` // 0 disables the scheduler
	SummaryConcurrency int           `validate:"gt=0"`

	LogLevel string `validate:"oneof=debug info warn error"`

	// EnableScenarios exposes the demo scenario routes, which wipe the store.
	EnableScenarios bool
}

// Load reads files (default ".env") when present, then the environment.
// A missing file is not an error.
func Load(files ...string) (Config, error) {
	_ = godotenv.Load(files...)

	cfg := Config{
		Addr:               getEnv("APP_ADDR", ":8080"),
		DBPath:             getEnv("DB_PATH", "./data/leave.db"),
		MinWorkDuration:    getEnvInt("MIN_WORK_DURATION", 360),
		TopAdminRole:       getEnv("TOP_ADMIN_ROLE", "SuperAdmin"),
		MailFrom:           getEnv("MAIL_FROM", ""),
		MailFromName:       getEnv("MAIL_FROM_NAME", "Leave Desk"),
		SMTPHost:           getEnv("SMTP_HOST", ""),
		SMTPPort:           getEnvInt("SMTP_PORT", 587),
		SMTPUser:           getEnv("SMTP_USER", ""),
		SMTPPassword:       getEnv("SMTP_PASSWORD", ""),
		SMTPUseTLS:         getEnvBool("SMTP_USE_TLS", true),
		KafkaBrokers:       getEnvList("KAFKA_BROKERS"),
		KafkaTopic:         getEnv("KAFKA_TOPIC", "leave.notifications"),
		RedisAddr:          getEnv("REDIS_ADDR", ""),
		LockTTL:            getEnvDuration("LOCK_TTL", 30*time.Second),
		IncrementInterval:  getEnvDuration("INCREMENT_INTERVAL", 24*time.Hour),
		SummaryConcurrency: getEnvInt("SUMMARY_CONCURRENCY", 4),
		LogLevel:           strings.ToLower(getEnv("LOG_LEVEL", "info")),
		EnableScenarios:    getEnvBool("ENABLE_SCENARIOS", false),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.SMTPHost != "" && c.MailFrom == "" {
		return fmt.Errorf("invalid configuration: MAIL_FROM is required when SMTP_HOST is set")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	parsed, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt(key string, fallback int) int {
	parsed, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	parsed, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
