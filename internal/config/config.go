package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	Port string
	Env  string
}

type PostgresConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MigrationsPath  string
}

type CacheConfig struct {
	Path string
}

type PaymentConfig struct {
	ServerKey string
}

type MintConfig struct {
	CrossmintBaseURL string
	CrossmintAPIKey  string
	CollectionID     string
	Timeout          time.Duration
	RetryAfter       time.Duration
}

type MailConfig struct {
	Endpoint string
	APIKey   string
	From     string
}

type KafkaConfig struct {
	Brokers []string
}

type FeesConfig struct {
	Shipping    float64
	Certificate float64
}

type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Cache    CacheConfig
	Payment  PaymentConfig
	Mint     MintConfig
	Mail     MailConfig
	Kafka    KafkaConfig
	Fees     FeesConfig
}

// Load reads configuration from the environment, optionally seeded from a
// .env file. Missing required variables are reported together.
func Load(path string) (*Config, error) {
	if path != "" {
		if err := godotenv.Load(path); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
	}

	var missing []string
	required := func(key string) string {
		v := os.Getenv(key)
		if v == "" {
			missing = append(missing, key)
		}
		return v
	}

	cfg := &Config{
		App: AppConfig{
			Port: getEnv("APP_PORT", "8080"),
			Env:  getEnv("APP_ENV", "development"),
		},
		Postgres: PostgresConfig{
			Host:            required("DB_HOST"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            required("DB_USER"),
			Password:        required("DB_PASSWORD"),
			DBName:          required("DB_NAME"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxConns:        int32(getEnvInt("DB_MAX_CONNS", 10)),
			MinConns:        int32(getEnvInt("DB_MIN_CONNS", 2)),
			MaxConnLifetime: getEnvDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MigrationsPath:  getEnv("DB_MIGRATIONS_PATH", "migrations"),
		},
		Cache: CacheConfig{
			Path: getEnv("CACHE_PATH", "storefront-cache.db"),
		},
		Payment: PaymentConfig{
			ServerKey: required("PAYMENT_SERVER_KEY"),
		},
		Mint: MintConfig{
			CrossmintBaseURL: getEnv("CROSSMINT_BASE_URL", "https://www.crossmint.com"),
			CrossmintAPIKey:  os.Getenv("CROSSMINT_API_KEY"),
			CollectionID:     os.Getenv("CROSSMINT_COLLECTION_ID"),
			Timeout:          getEnvDuration("MINT_TIMEOUT", 20*time.Second),
			RetryAfter:       getEnvDuration("MINT_RETRY_AFTER", 10*time.Second),
		},
		Mail: MailConfig{
			Endpoint: os.Getenv("MAIL_API_ENDPOINT"),
			APIKey:   os.Getenv("MAIL_API_KEY"),
			From:     getEnv("MAIL_FROM", "atelier@kasuri.example"),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(os.Getenv("KAFKA_BROKERS")),
		},
		Fees: FeesConfig{
			Shipping:    getEnvFloat("FEE_SHIPPING", 0),
			Certificate: getEnvFloat("FEE_CERTIFICATE", 0),
		},
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
