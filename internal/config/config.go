// Package config loads service settings. Defaults can come from a YAML file named by
// CONFIG_FILE; environment variables always win.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Mongo struct {
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
}

type Redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
}

type Postgres struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	User           string `yaml:"user"`
	Password       string `yaml:"password"`
	DBName         string `yaml:"dbname"`
	MigrationsPath string `yaml:"migrations_path"`
}

type Kafka struct {
	Brokers            []string `yaml:"brokers"`
	NotificationsTopic string   `yaml:"notifications_topic"`
	NotifierGroupID    string   `yaml:"notifier_group_id"`
}

type SMTP struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

type Stripe struct {
	SecretKey     string `yaml:"secret_key"`
	WebhookSecret string `yaml:"webhook_secret"`
}

type Cloudinary struct {
	CloudName string `yaml:"cloud_name"`
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	Folder    string `yaml:"folder"`
}

type Config struct {
	HTTPPort           string        `yaml:"http_port"`
	RequestTimeout     time.Duration `yaml:"request_timeout"`
	ShutdownTimeout    time.Duration `yaml:"shutdown_timeout"`
	PaymentTimeout     time.Duration `yaml:"payment_timeout"`
	MaxRequestBodySize int64         `yaml:"max_request_body_size"`
	LogLevel           string        `yaml:"log_level"`

	JWTSecret   string        `yaml:"jwt_secret"`
	TokenTTL    time.Duration `yaml:"token_ttl"`
	Currency    string        `yaml:"currency"`
	FrontendURL string        `yaml:"frontend_url"`

	// OrderStore selects the order ledger backend: "mongo" or "postgres".
	OrderStore string `yaml:"order_store"`
	// NotifyTransport selects how emails leave the API: "smtp" or "kafka".
	NotifyTransport string `yaml:"notify_transport"`

	Mongo      Mongo      `yaml:"mongo"`
	Redis      Redis      `yaml:"redis"`
	Postgres   Postgres   `yaml:"postgres"`
	Kafka      Kafka      `yaml:"kafka"`
	SMTP       SMTP       `yaml:"smtp"`
	Stripe     Stripe     `yaml:"stripe"`
	Cloudinary Cloudinary `yaml:"cloudinary"`
}

func defaults() *Config {
	return &Config{
		HTTPPort:           "8080",
		RequestTimeout:     30 * time.Second,
		ShutdownTimeout:    10 * time.Second,
		PaymentTimeout:     10 * time.Second,
		MaxRequestBodySize: 10 << 20, // 10MB, product images included
		LogLevel:           "info",
		TokenTTL:           24 * time.Hour,
		Currency:           "usd",
		FrontendURL:        "http://localhost:3000",
		OrderStore:         "mongo",
		NotifyTransport:    "smtp",
		Mongo: Mongo{
			URI:      "mongodb://localhost:27017",
			Database: "azura",
		},
		Redis: Redis{Addr: "localhost:6379"},
		Postgres: Postgres{
			Host:           "localhost",
			Port:           5432,
			User:           "postgres",
			Password:       "postgres",
			DBName:         "azura",
			MigrationsPath: "./internal/orders/repository/migrations",
		},
		Kafka: Kafka{
			NotificationsTopic: "notifications",
			NotifierGroupID:    "notifier",
		},
		SMTP:       SMTP{Port: 587},
		Cloudinary: Cloudinary{Folder: "azura-products"},
	}
}

// Load builds the API configuration from defaults, the optional CONFIG_FILE and the environment.
func Load() (*Config, error) {
	cfg, err := load()
	if err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadNotifier is Load for the notifier worker, which needs Kafka and SMTP but no API secrets.
func LoadNotifier() (*Config, error) {
	cfg, err := load()
	if err != nil {
		return nil, err
	}
	if len(cfg.Kafka.Brokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.SMTP.Host == "" {
		return nil, errors.New("SMTP_HOST is required")
	}
	return cfg, nil
}

func load() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	var err error

	cfg.HTTPPort = getEnv("HTTP_PORT", cfg.HTTPPort)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.JWTSecret = getEnv("JWT_SECRET", cfg.JWTSecret)
	cfg.Currency = getEnv("CURRENCY", cfg.Currency)
	cfg.FrontendURL = getEnv("FRONTEND_URL", cfg.FrontendURL)
	cfg.OrderStore = getEnv("ORDER_STORE", cfg.OrderStore)
	cfg.NotifyTransport = getEnv("NOTIFY_TRANSPORT", cfg.NotifyTransport)

	if cfg.RequestTimeout, err = getDuration("REQUEST_TIMEOUT", cfg.RequestTimeout); err != nil {
		return err
	}
	if cfg.ShutdownTimeout, err = getDuration("SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout); err != nil {
		return err
	}
	if cfg.PaymentTimeout, err = getDuration("PAYMENT_TIMEOUT", cfg.PaymentTimeout); err != nil {
		return err
	}
	if cfg.TokenTTL, err = getDuration("TOKEN_TTL", cfg.TokenTTL); err != nil {
		return err
	}

	cfg.Mongo.URI = getEnv("MONGO_URI", cfg.Mongo.URI)
	cfg.Mongo.Database = getEnv("MONGO_DB_NAME", cfg.Mongo.Database)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Redis.Password)

	cfg.Postgres.Host = getEnv("DB_HOST", cfg.Postgres.Host)
	if cfg.Postgres.Port, err = getInt("DB_PORT", cfg.Postgres.Port); err != nil {
		return err
	}
	cfg.Postgres.User = getEnv("DB_USER", cfg.Postgres.User)
	cfg.Postgres.Password = getEnv("DB_PASSWORD", cfg.Postgres.Password)
	cfg.Postgres.DBName = getEnv("DB_NAME", cfg.Postgres.DBName)
	cfg.Postgres.MigrationsPath = getEnv("MIGRATIONS_PATH", cfg.Postgres.MigrationsPath)

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.Kafka.Brokers = splitCSV(brokers)
	}
	cfg.Kafka.NotificationsTopic = getEnv("KAFKA_NOTIFICATIONS_TOPIC", cfg.Kafka.NotificationsTopic)
	cfg.Kafka.NotifierGroupID = getEnv("KAFKA_NOTIFIER_GROUP_ID", cfg.Kafka.NotifierGroupID)

	cfg.SMTP.Host = getEnv("SMTP_HOST", cfg.SMTP.Host)
	if cfg.SMTP.Port, err = getInt("SMTP_PORT", cfg.SMTP.Port); err != nil {
		return err
	}
	cfg.SMTP.User = getEnv("SMTP_USER", cfg.SMTP.User)
	cfg.SMTP.Password = getEnv("SMTP_PASS", cfg.SMTP.Password)
	cfg.SMTP.From = getEnv("SMTP_FROM", cfg.SMTP.From)
	if cfg.SMTP.From == "" {
		cfg.SMTP.From = cfg.SMTP.User
	}

	cfg.Stripe.SecretKey = getEnv("STRIPE_SECRET_KEY", cfg.Stripe.SecretKey)
	cfg.Stripe.WebhookSecret = getEnv("STRIPE_WEBHOOK_SECRET", cfg.Stripe.WebhookSecret)

	cfg.Cloudinary.CloudName = getEnv("CLOUDINARY_CLOUD_NAME", cfg.Cloudinary.CloudName)
	cfg.Cloudinary.APIKey = getEnv("CLOUDINARY_API_KEY", cfg.Cloudinary.APIKey)
	cfg.Cloudinary.APISecret = getEnv("CLOUDINARY_API_SECRET", cfg.Cloudinary.APISecret)
	cfg.Cloudinary.Folder = getEnv("CLOUDINARY_FOLDER", cfg.Cloudinary.Folder)

	return nil
}

func (c *Config) validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	switch c.OrderStore {
	case "mongo", "postgres":
	default:
		return fmt.Errorf("unknown ORDER_STORE %q", c.OrderStore)
	}
	switch c.NotifyTransport {
	case "smtp":
	case "kafka":
		if len(c.Kafka.Brokers) == 0 {
			return errors.New("KAFKA_BROKERS is required when NOTIFY_TRANSPORT=kafka")
		}
	default:
		return fmt.Errorf("unknown NOTIFY_TRANSPORT %q", c.NotifyTransport)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
