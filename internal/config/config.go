package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	DatabaseURL        string
	DBMaxConns         int32
	ClerkSecretKey     string
	ClerkWebhookSecret string
	Port               string
	LogLevel           string
	Env                string // dev|prod
	Location           *time.Location
	SentryDSN          string
	Release            string
	FCMCredentialsFile string
	MetricsUser        string
	MetricsPass        string
	PprofSecret        string
	ReminderInterval   time.Duration
}

// Load reads the environment. Call godotenv.Load before it to pick up a
// local .env file.
func Load() (*Config, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
	}
	clerkKey := os.Getenv("CLERK_SECRET_KEY")
	if clerkKey == "" {
		return nil, fmt.Errorf("CLERK_SECRET_KEY environment variable is not set")
	}

	tz := getenv("TZ", "UTC")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("TZ %q: %w", tz, err)
	}

	maxConns, err := strconv.ParseInt(getenv("DB_MAX_CONNS", "25"), 10, 32)
	if err != nil || maxConns <= 0 {
		return nil, fmt.Errorf("DB_MAX_CONNS must be a positive integer")
	}

	interval, err := time.ParseDuration(getenv("REMINDER_INTERVAL", "1m"))
	if err != nil {
		return nil, fmt.Errorf("REMINDER_INTERVAL: %w", err)
	}

	return &Config{
		DatabaseURL:        dbURL,
		DBMaxConns:         int32(maxConns),
		ClerkSecretKey:     clerkKey,
		ClerkWebhookSecret: os.Getenv("CLERK_WEBHOOK_SECRET"),
		Port:               getenv("PORT", "3333"),
		LogLevel:           getenv("LOG_LEVEL", "info"),
		Env:                getenv("ENV", "dev"),
		Location:           loc,
		SentryDSN:          os.Getenv("SENTRY_DSN"),
		Release:            getenv("RELEASE", "dev"),
		FCMCredentialsFile: getenv("FCM_CREDENTIALS_FILE", "./serviceAccountKey.json"),
		MetricsUser:        os.Getenv("METRICS_USER"),
		MetricsPass:        os.Getenv("METRICS_PASS"),
		PprofSecret:        os.Getenv("PPROF_SECRET"),
		ReminderInterval:   interval,
	}, nil
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
