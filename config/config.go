package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Server configuration
	Environment string

	// Redis configuration
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// PubNub configuration (SMS gateway channel)
	PubNubPublishKey   string
	PubNubSubscribeKey string
	PubNubSecretKey    string
	PubNubUserID       string
	SMSChannel         string

	// SMS configuration
	DefaultCountryPrefix string

	// Queue configuration
	PhysicalQueueCapacity int
	CooldownWindow        time.Duration
	AutoRefill            bool
	PromotionLockTTL      time.Duration

	// Operator session configuration
	SessionTTL time.Duration

	// Caching
	StationCacheTTL time.Duration

	// Rate limiting
	RegisterRateLimit  int
	RegisterRateWindow time.Duration

	// Monitoring
	EnableMetrics bool
	MetricsPort   string
}

func LoadConfig() *Config {
	return &Config{
		// Server
		Environment: getEnv("ENVIRONMENT", "development"),

		// Redis
		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		// PubNub / SMS gateway
		PubNubPublishKey:   getEnv("PUBNUB_PUBLISH_KEY", ""),
		PubNubSubscribeKey: getEnv("PUBNUB_SUBSCRIBE_KEY", ""),
		PubNubSecretKey:    getEnv("PUBNUB_SECRET_KEY", ""),
		PubNubUserID:       getEnv("PUBNUB_USER_ID", "fuelqueue-server"),
		SMSChannel:         getEnv("SMS_CHANNEL", "sms-outbound"),

		// Numbers without an international prefix are assumed local (Mali).
		DefaultCountryPrefix: getEnv("DEFAULT_COUNTRY_PREFIX", "+223"),

		// Queue
		PhysicalQueueCapacity: getEnvAsInt("PHYSICAL_QUEUE_CAPACITY", 10),
		CooldownWindow:        getEnvAsDuration("COOLDOWN_WINDOW", "48h"),
		AutoRefill:            getEnvAsBool("AUTO_REFILL", true),
		PromotionLockTTL:      getEnvAsDuration("PROMOTION_LOCK_TTL", "10s"),

		// Sessions
		SessionTTL: getEnvAsDuration("SESSION_TTL", "12h"),

		// Caching
		StationCacheTTL: getEnvAsDuration("STATION_CACHE_TTL", "15s"),

		// Rate limiting
		RegisterRateLimit:  getEnvAsInt("REGISTER_RATE_LIMIT", 30),
		RegisterRateWindow: getEnvAsDuration("REGISTER_RATE_WINDOW", "1m"),

		// Monitoring
		EnableMetrics: getEnvAsBool("ENABLE_METRICS", true),
		MetricsPort:   getEnv("METRICS_PORT", "9090"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	// If parsing fails, fall back to the default value
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}
