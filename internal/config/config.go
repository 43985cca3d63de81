package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	LogLevel      string
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	// Channel provider (inbound webhooks + outbound sends)
	ChannelBaseURL       string
	ChannelAPIKey        string
	ChannelWebhookSecret string
	ChannelSenderNumber  string
	ChannelMaxSkew       time.Duration
	ChannelRetryAttempts int
	ChannelRetryBackoff  time.Duration

	// Conversation sessions
	SessionTTL            time.Duration
	SessionLockTTL        time.Duration
	SessionReapInterval   time.Duration
	SessionReapIdleWindow time.Duration

	// Idempotency claims for webhook deliveries
	DeliveryClaimTTL     time.Duration
	DeliveryRetentionTTL time.Duration

	// Booking transaction retry policy
	BookingRetryAttempts int
	BookingRetryBackoff  time.Duration
	AppointmentDuration  time.Duration
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		RedisAddr:     getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		ChannelBaseURL:       getEnv("CHANNEL_BASE_URL", ""),
		ChannelAPIKey:        getEnv("CHANNEL_API_KEY", ""),
		ChannelWebhookSecret: getEnv("CHANNEL_WEBHOOK_SECRET", ""),
		ChannelSenderNumber:  getEnv("CHANNEL_SENDER_NUMBER", ""),
		ChannelMaxSkew:       getEnvAsDuration("CHANNEL_MAX_SKEW", 5*time.Minute),
		ChannelRetryAttempts: getEnvAsInt("CHANNEL_RETRY_ATTEMPTS", 3),
		ChannelRetryBackoff:  getEnvAsDuration("CHANNEL_RETRY_BACKOFF", 250*time.Millisecond),

		SessionTTL:            getEnvAsDuration("SESSION_TTL", 30*time.Minute),
		SessionLockTTL:        getEnvAsDuration("SESSION_LOCK_TTL", 10*time.Second),
		SessionReapInterval:   getEnvAsDuration("SESSION_REAP_INTERVAL", 5*time.Minute),
		SessionReapIdleWindow: getEnvAsDuration("SESSION_REAP_IDLE_WINDOW", time.Hour),

		DeliveryClaimTTL:     getEnvAsDuration("DELIVERY_CLAIM_TTL", 30*time.Second),
		DeliveryRetentionTTL: getEnvAsDuration("DELIVERY_RETENTION_TTL", 24*time.Hour),

		BookingRetryAttempts: getEnvAsInt("BOOKING_RETRY_ATTEMPTS", 3),
		BookingRetryBackoff:  getEnvAsDuration("BOOKING_RETRY_BACKOFF", 50*time.Millisecond),
		AppointmentDuration:  getEnvAsDuration("APPOINTMENT_DURATION", 30*time.Minute),
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
