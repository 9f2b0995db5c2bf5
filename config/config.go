package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Retry holds one retry profile for the backend HTTP client. Channel
// discovery and document fetch use separate profiles: the booking-log
// endpoint is slower and less parallel, so its failures are costlier to
// retry at a higher level.
type Retry struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Jitter      time.Duration
	Timeout     time.Duration
}

// Config holds all application configuration for one run. It is built once
// and passed to every component; nothing reads process-wide state after Load.
type Config struct {
	DashboardURL string
	APIBase      string

	DashboardLogin    string
	DashboardPassword string

	ChannelsFile string

	WorkDir     string
	ArchivePath string

	PropertyConcurrency  int
	DiscoveryConcurrency int
	FetchConcurrency     int
	Writers              int
	QueueCapacity        int
	ProgressEvery        int

	DiscoveryRetry Retry
	FetchRetry     Retry

	// Optional PostgreSQL sink for parsed booking records.
	PostgresDSN string
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		DashboardURL: getEnv("DASHBOARD_URL", "https://datahubdashboard.idsnext.live"),
		APIBase:      getEnv("API_BASE", "https://idsdatahubdashboardapi.azurewebsites.net/api"),

		DashboardLogin:    getEnv("DASHBOARD_LOGIN", ""),
		DashboardPassword: getEnv("DASHBOARD_PASSWORD", ""),

		ChannelsFile: getEnv("CHANNELS_FILE", "channels.yaml"),

		WorkDir:     getEnv("WORK_DIR", "./work_runs"),
		ArchivePath: getEnv("ARCHIVE_PATH", "./reports.zip"),

		PropertyConcurrency:  getEnvInt("PROPERTY_CONCURRENCY", 16),
		DiscoveryConcurrency: getEnvInt("DISCOVERY_CONCURRENCY", 6),
		FetchConcurrency:     getEnvInt("FETCH_CONCURRENCY", 200),
		Writers:              getEnvInt("WRITERS", 6),
		QueueCapacity:        getEnvInt("QUEUE_CAPACITY", 6000),
		ProgressEvery:        getEnvInt("PROGRESS_EVERY", 5),

		DiscoveryRetry: Retry{
			MaxAttempts: getEnvInt("DISCOVERY_RETRY_ATTEMPTS", 4),
			BaseDelay:   getEnvDuration("DISCOVERY_RETRY_BASE", 800*time.Millisecond),
			Jitter:      getEnvDuration("DISCOVERY_RETRY_JITTER", 400*time.Millisecond),
			Timeout:     getEnvDuration("DISCOVERY_TIMEOUT", 90*time.Second),
		},
		FetchRetry: Retry{
			MaxAttempts: getEnvInt("FETCH_RETRY_ATTEMPTS", 3),
			BaseDelay:   getEnvDuration("FETCH_RETRY_BASE", 600*time.Millisecond),
			Jitter:      getEnvDuration("FETCH_RETRY_JITTER", 250*time.Millisecond),
			Timeout:     getEnvDuration("FETCH_TIMEOUT", 60*time.Second),
		},

		PostgresDSN: getEnv("POSTGRES_DSN", ""),
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		d, err := time.ParseDuration(val)
		if err == nil {
			return d
		}
	}
	return fallback
}
