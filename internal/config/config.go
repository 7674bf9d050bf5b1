package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds application configuration
type Config struct {
	Port        string
	Env         string
	LogLevel    string
	DatabaseURL string

	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	JWTSecret string

	// Scheduling engine knobs. The same values feed the slot generator and
	// the booking validator so both sides agree on the grid.
	SlotDuration   time.Duration
	MaxAdvanceDays int
	MinCancelLead  time.Duration
	SlotCacheTTL   time.Duration

	// Daily reminder job
	ReminderInterval      time.Duration
	ReminderRetryAttempts int
	ReminderRetryBase     time.Duration
	HospitalPhone         string

	// SendGrid email configuration
	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:        getEnv("PORT", "8080"),
		Env:         getEnv("ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		DatabaseURL: getEnv("DATABASE_URL", ""),

		RedisAddr:     getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		JWTSecret: getEnv("JWT_SECRET", ""),

		SlotDuration:   getEnvAsDuration("SLOT_DURATION", 30*time.Minute),
		MaxAdvanceDays: getEnvAsInt("MAX_ADVANCE_DAYS", 30),
		MinCancelLead:  getEnvAsDuration("MIN_CANCEL_LEAD", 2*time.Hour),
		SlotCacheTTL:   getEnvAsDuration("SLOT_CACHE_TTL", 60*time.Second),

		ReminderInterval:      getEnvAsDuration("REMINDER_INTERVAL", 24*time.Hour),
		ReminderRetryAttempts: getEnvAsInt("REMINDER_RETRY_ATTEMPTS", 3),
		ReminderRetryBase:     getEnvAsDuration("REMINDER_RETRY_BASE_DELAY", time.Minute),
		HospitalPhone:         getEnv("HOSPITAL_PHONE", ""),

		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "Chikitsa Hospital"),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
