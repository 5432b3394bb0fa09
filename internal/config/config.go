package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort int
	LogLevel   string

	DatabaseURL string

	SessionSecret []byte

	// LoginTokenTTL bounds the window between showing a QR code and scanning it.
	// SessionTokenTTL is the lifetime of the long-lived token handed to a device
	// on refresh; product has flip-flopped between 2 and 30 days, so it stays
	// configurable.
	LoginTokenTTL   time.Duration
	SessionTokenTTL time.Duration

	// RefundOnFailure controls whether a debited credit is granted back when the
	// generation pipeline fails after the debit.
	RefundOnFailure bool

	KafkaBrokers []string

	ESURL      string
	ESUser     string
	ESPassword string

	S3Bucket        string
	S3Region        string
	S3Endpoint      string
	S3AccessKey     string
	S3SecretKey     string
	S3PublicBaseURL string

	ReplicateAPIToken string
	ReplicateVersion  string

	PayPalBaseURL  string
	PayPalClientID string
}

func Load() *Config {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("notice: .env file not found: %v, using system environment", err)
	}

	return &Config{
		ServerPort: EnvIntDefault("SERVER_PORT", 8080),
		LogLevel:   EnvDefault("LOG_LEVEL", "info"),

		DatabaseURL: os.Getenv("DATABASE_URL"),

		SessionSecret: []byte(os.Getenv("SESSION_SECRET")),

		LoginTokenTTL:   EnvDurationDefault("LOGIN_TOKEN_TTL", 15*time.Minute),
		SessionTokenTTL: EnvDurationDefault("SESSION_TOKEN_TTL", 48*time.Hour),

		RefundOnFailure: EnvBoolDefault("REFUND_ON_FAILURE", false),

		KafkaBrokers: CSV(os.Getenv("KAFKA_BROKERS")),

		ESURL:      os.Getenv("ES_URL"),
		ESUser:     os.Getenv("ES_USER"),
		ESPassword: os.Getenv("ES_PASSWORD"),

		S3Bucket:        os.Getenv("S3_BUCKET"),
		S3Region:        EnvDefault("S3_REGION", "us-east-1"),
		S3Endpoint:      os.Getenv("S3_ENDPOINT"),
		S3AccessKey:     os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey:     os.Getenv("S3_SECRET_KEY"),
		S3PublicBaseURL: os.Getenv("S3_PUBLIC_BASE_URL"),

		ReplicateAPIToken: os.Getenv("REPLICATE_API_TOKEN"),
		ReplicateVersion:  EnvDefault("REPLICATE_VERSION", "76604baddc85b1b4616e1c6475eca080da339c8875bd4996705440484a6eac38"),

		PayPalBaseURL:  EnvDefault("PAYPAL_BASE_URL", "https://api.paypal.com"),
		PayPalClientID: os.Getenv("PAYPAL_CLIENT_ID"),
	}
}

func CSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func EnvDefault(key, def string) string {
	if os.Getenv(key) != "" {
		return os.Getenv(key)
	}
	return def
}

func EnvIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func EnvDurationDefault(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func EnvBoolDefault(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func MustNonEmpty(value, envName string) {
	if value == "" {
		log.Fatalf("missing required env %s", envName)
	}
}

func MustNonEmptyBytes(value []byte, envName string) {
	if len(value) == 0 {
		log.Fatalf("missing required env %s", envName)
	}
}
