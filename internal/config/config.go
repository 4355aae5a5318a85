package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	SchedulerInterval    time.Duration
	SchedulerEnabledJobs []string
	SchedulerBatchSize   int

	TransferProvider string
	TransferTimeout  time.Duration

	PayoutMaxRetries  int
	PayoutBackoffBase time.Duration

	// ReturnWindow is how long after delivery an allocation stays
	// refund-blocked before it can be marked payout-eligible.
	ReturnWindow time.Duration
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:     getenv("APP_SERVICE", "sellerledger"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "sellerledger"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", "postgres"),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 4),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 16),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 1800),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 300),

		SchedulerInterval:    getenvDuration("SCHEDULER_INTERVAL", time.Minute),
		SchedulerEnabledJobs: getenvList("SCHEDULER_ENABLED_JOBS"),
		SchedulerBatchSize:   getenvInt("SCHEDULER_BATCH_SIZE", 50),

		TransferProvider: getenv("TRANSFER_PROVIDER", "sandbox"),
		TransferTimeout:  getenvDuration("TRANSFER_TIMEOUT", 30*time.Second),

		PayoutMaxRetries:  getenvInt("PAYOUT_MAX_RETRIES", 3),
		PayoutBackoffBase: getenvDuration("PAYOUT_BACKOFF_BASE", time.Hour),

		ReturnWindow: getenvDuration("RETURN_WINDOW", 14*24*time.Hour),
	}
}

var Module = fx.Module("config",
	fx.Provide(Load),
)

func getenv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	raw := getenv(key, "")
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		log.Printf("config: invalid int for %s: %q, using %d", key, raw, fallback)
		return fallback
	}
	return v
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	raw := getenv(key, "")
	if raw == "" {
		return fallback
	}
	v, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		log.Printf("config: invalid duration for %s: %q, using %s", key, raw, fallback)
		return fallback
	}
	return v
}

func getenvList(key string) []string {
	raw := strings.TrimSpace(getenv(key, ""))
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
