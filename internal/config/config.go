package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port        string
	Environment string

	// Database
	DatabaseURL string

	// Auth
	JWTSecret string
	JWTTTL    time.Duration

	// Payment gateway
	GatewayBaseURL   string
	GatewayKeyID     string
	GatewayKeySecret string
	WebhookSecret    string
	GatewayTimeout   time.Duration

	// Redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Kafka
	KafkaBrokers      []string
	NotificationTopic string

	// Booking lifecycle
	Currency       string
	BookingTTL     time.Duration
	SweepInterval  time.Duration
	PaymentLockTTL time.Duration

	// Monitoring
	EnableMetrics bool
}

// Load reads configuration from the environment, sourcing a local .env
// file first when present.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using environment")
	}

	return &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),

		DatabaseURL: getEnv("DATABASE_URL", "file:tickethub.db?mode=rwc"),

		JWTSecret: getEnv("JWT_SECRET", ""),
		JWTTTL:    getEnvAsDuration("JWT_TTL", "24h"),

		GatewayBaseURL:   getEnv("GATEWAY_BASE_URL", "https://api.razorpay.com/v1"),
		GatewayKeyID:     getEnv("GATEWAY_KEY_ID", ""),
		GatewayKeySecret: getEnv("GATEWAY_KEY_SECRET", ""),
		WebhookSecret:    getEnv("GATEWAY_WEBHOOK_SECRET", ""),
		GatewayTimeout:   getEnvAsDuration("GATEWAY_TIMEOUT", "10s"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		KafkaBrokers:      []string{getEnv("KAFKA_BROKER", "localhost:9092")},
		NotificationTopic: getEnv("NOTIFICATION_TOPIC", "booking-notifications"),

		Currency:       getEnv("CURRENCY", "INR"),
		BookingTTL:     getEnvAsDuration("BOOKING_TTL", "15m"),
		SweepInterval:  getEnvAsDuration("SWEEP_INTERVAL", "1m"),
		PaymentLockTTL: getEnvAsDuration("PAYMENT_LOCK_TTL", "30s"),

		EnableMetrics: getEnvAsBool("ENABLE_METRICS", true),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvAsInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvAsBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getEnvAsDuration(key, def string) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		v = def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		d, _ = time.ParseDuration(def)
	}
	return d
}
