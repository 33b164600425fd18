package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	ServiceName string
	Env         string
	LogLevel    string

	Server    ServerConfig
	Database  DatabaseConfig
	Auth      AuthConfig
	Kafka     KafkaConfig
	Search    SearchConfig
	Storage   StorageConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	Payments  PaymentsConfig
}

type ServerConfig struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	BodyLimit    string
	CORSOrigins  []string
}

type DatabaseConfig struct {
	URL string
}

type AuthConfig struct {
	JWTAccessSecret  []byte
	JWTRefreshSecret []byte
	AccessTTL        time.Duration
	RefreshTTL       time.Duration
	SecureCookies    bool
}

type KafkaConfig struct {
	Brokers            []string
	ProductTopic       string
	OrderTopic         string
	NotificationsTopic string
}

type SearchConfig struct {
	URL      string
	User     string
	Password string
	Index    string
}

type StorageConfig struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	PublicURL string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

type PaymentsConfig struct {
	Currency            string
	StripeSecretKey     string
	StripeWebhookSecret string
	StripeBaseURL       string
	PayPalClientID      string
	PayPalSecret        string
	PayPalWebhookID     string
	PayPalBaseURL       string
	ReturnURL           string
	CancelURL           string
}

func Load() Config {
	return Config{
		ServiceName: EnvDefault("SERVICE_NAME", "petstore"),
		Env:         EnvDefault("APP_ENV", "production"),
		LogLevel:    EnvDefault("LOG_LEVEL", "info"),

		Server: ServerConfig{
			Port:         EnvIntDefault("SERVER_PORT", 8080),
			ReadTimeout:  EnvDurationDefault("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: EnvDurationDefault("SERVER_WRITE_TIMEOUT", 15*time.Second),
			BodyLimit:    EnvDefault("BODY_LIMIT", "10M"),
			CORSOrigins:  CSV(EnvDefault("CORS_ORIGINS", "http://localhost:5173")),
		},

		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},

		Auth: AuthConfig{
			JWTAccessSecret:  []byte(os.Getenv("JWT_SECRET")),
			JWTRefreshSecret: []byte(os.Getenv("JWT_REFRESH_SECRET")),
			AccessTTL:        EnvDurationDefault("JWT_EXPIRES_IN", 15*time.Minute),
			RefreshTTL:       EnvDurationDefault("JWT_REFRESH_EXPIRES_IN", 7*24*time.Hour),
			SecureCookies:    EnvBoolDefault("SECURE_COOKIES", true),
		},

		Kafka: KafkaConfig{
			Brokers:            CSV(os.Getenv("KAFKA_BROKERS")),
			ProductTopic:       EnvDefault("KAFKA_PRODUCT_TOPIC", "product_events"),
			OrderTopic:         EnvDefault("KAFKA_ORDER_TOPIC", "order_events"),
			NotificationsTopic: EnvDefault("KAFKA_NOTIFICATIONS_TOPIC", "notifications"),
		},

		Search: SearchConfig{
			URL:      os.Getenv("ES_URL"),
			User:     os.Getenv("ES_USER"),
			Password: os.Getenv("ES_PASSWORD"),
			Index:    EnvDefault("ES_PRODUCT_INDEX", "products"),
		},

		Storage: StorageConfig{
			Bucket:    os.Getenv("S3_BUCKET"),
			Region:    EnvDefault("S3_REGION", "us-east-1"),
			Endpoint:  os.Getenv("S3_ENDPOINT"),
			AccessKey: os.Getenv("S3_ACCESS_KEY"),
			SecretKey: os.Getenv("S3_SECRET_KEY"),
			PublicURL: os.Getenv("S3_PUBLIC_URL"),
		},

		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       EnvIntDefault("REDIS_DB", 0),
		},

		RateLimit: RateLimitConfig{
			Requests: EnvIntDefault("RATE_LIMIT_REQUESTS", 300),
			Window:   EnvDurationDefault("RATE_LIMIT_WINDOW", time.Minute),
		},

		Payments: PaymentsConfig{
			Currency:            EnvDefault("PAYMENT_CURRENCY", "usd"),
			StripeSecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
			StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
			StripeBaseURL:       EnvDefault("STRIPE_API_URL", "https://api.stripe.com"),
			PayPalClientID:      os.Getenv("PAYPAL_CLIENT_ID"),
			PayPalSecret:        os.Getenv("PAYPAL_CLIENT_SECRET"),
			PayPalWebhookID:     os.Getenv("PAYPAL_WEBHOOK_ID"),
			PayPalBaseURL:       EnvDefault("PAYPAL_API_URL", "https://api-m.sandbox.paypal.com"),
			ReturnURL:           EnvDefault("PAYPAL_RETURN_URL", "http://localhost:5173/checkout/success"),
			CancelURL:           EnvDefault("PAYPAL_CANCEL_URL", "http://localhost:5173/checkout/cancel"),
		},
	}
}

func (c Config) IsDevelopment() bool {
	return strings.EqualFold(c.Env, "development")
}

// Validate reports every missing or inconsistent setting at once.
func (c Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Database.URL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if len(c.Auth.JWTAccessSecret) == 0 {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if len(c.Auth.JWTRefreshSecret) == 0 {
		errs = append(errs, errors.New("JWT_REFRESH_SECRET is required"))
	}
	if c.Auth.AccessTTL <= 0 || c.Auth.RefreshTTL <= 0 {
		errs = append(errs, errors.New("token lifetimes must be positive"))
	}
	if c.RateLimit.Requests <= 0 || c.RateLimit.Window <= 0 {
		errs = append(errs, errors.New("rate limit requests and window must be positive"))
	}
	if c.Storage.Endpoint != "" && c.Storage.Bucket == "" {
		errs = append(errs, errors.New("S3_BUCKET is required when S3_ENDPOINT is set"))
	}
	if c.Payments.StripeSecretKey != "" && c.Payments.StripeWebhookSecret == "" {
		errs = append(errs, errors.New("STRIPE_WEBHOOK_SECRET is required when stripe is enabled"))
	}
	if c.Payments.PayPalClientID != "" && c.Payments.PayPalSecret == "" {
		errs = append(errs, errors.New("PAYPAL_CLIENT_SECRET is required when paypal is enabled"))
	}

	return errors.Join(errs...)
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
	if v := os.Getenv(key); v != "" {
		return v
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
