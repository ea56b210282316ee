// config/config.go - Environment driven configuration
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv      string
	Port        string
	CORSOrigins string

	DatabaseURL   string
	DBLogLevel    string
	OfflineDBPath string

	JWTSecret string
	TokenTTL  time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration

	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool

	RateLimitPerMinute  int
	AuthRateLimitMax    int
	AuthRateLimitWindow time.Duration

	// Weekly reset schedule, evaluated in ResetLocation.
	ResetWeekday      time.Weekday
	ResetHour         int
	ResetMinute       int
	ResetLocation     *time.Location
	ResetChunkSize    int
	ResetTimeout      time.Duration
	SchedulerDisabled bool
}

// Load reads .env (when present) and the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using system environment variables")
	}

	cfg := Config{
		AppEnv:      getEnv("APP_ENV", "development"),
		Port:        getEnv("PORT", "3000"),
		CORSOrigins: getEnv("CORS_ORIGINS", "http://localhost:3000"),

		DatabaseURL:   databaseURL(),
		DBLogLevel:    getEnv("DB_LOG_LEVEL", "warn"),
		OfflineDBPath: getEnv("OFFLINE_DB_PATH", "./data/offline.db"),

		JWTSecret: os.Getenv("JWT_SECRET"),
		TokenTTL:  getEnvDuration("TOKEN_TTL", 7*24*time.Hour),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		CacheTTL:      getEnvDuration("CACHE_TTL", 10*time.Minute),

		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogPath:       os.Getenv("LOG_PATH"),
		LogMaxSizeMB:  getEnvInt("LOG_MAX_SIZE_MB", 100),
		LogMaxBackups: getEnvInt("LOG_MAX_BACKUPS", 3),
		LogMaxAgeDays: getEnvInt("LOG_MAX_AGE_DAYS", 7),
		LogCompress:   getEnvBool("LOG_COMPRESS", false),

		RateLimitPerMinute:  getEnvInt("RATE_LIMIT_PER_MINUTE", 120),
		AuthRateLimitMax:    getEnvInt("AUTH_RATE_LIMIT_MAX", 5),
		AuthRateLimitWindow: getEnvDuration("AUTH_RATE_LIMIT_WINDOW", 5*time.Minute),

		ResetHour:         getEnvInt("WEEKLY_RESET_HOUR", 23),
		ResetMinute:       getEnvInt("WEEKLY_RESET_MINUTE", 59),
		ResetChunkSize:    getEnvInt("WEEKLY_RESET_CHUNK_SIZE", 1000),
		ResetTimeout:      getEnvDuration("WEEKLY_RESET_TIMEOUT", 5*time.Minute),
		SchedulerDisabled: getEnvBool("WEEKLY_RESET_DISABLED", false),
	}

	weekday, err := parseWeekday(getEnv("WEEKLY_RESET_DAY", "sunday"))
	if err != nil {
		return cfg, err
	}
	cfg.ResetWeekday = weekday

	loc, err := time.LoadLocation(getEnv("WEEKLY_RESET_TZ", "UTC"))
	if err != nil {
		return cfg, fmt.Errorf("load WEEKLY_RESET_TZ: %w", err)
	}
	cfg.ResetLocation = loc

	return cfg, nil
}

// Validate checks the settings the HTTP server cannot start without.
func (c Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET environment variable must be set. Generate one with: openssl rand -base64 64")
	}
	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters long")
	}
	if c.ResetHour < 0 || c.ResetHour > 23 || c.ResetMinute < 0 || c.ResetMinute > 59 {
		return fmt.Errorf("weekly reset time %02d:%02d is out of range", c.ResetHour, c.ResetMinute)
	}
	return nil
}

func (c Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func databaseURL() string {
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		return dsn
	}
	// Fallback to individual parameters
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		getEnv("DB_HOST", "localhost"),
		getEnv("DB_PORT", "5432"),
		getEnv("DB_USER", "postgres"),
		getEnv("DB_PASSWORD", ""),
		getEnv("DB_NAME", "ironquest"),
		getEnv("DB_SSLMODE", "disable"),
	)
}

func parseWeekday(s string) (time.Weekday, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		if s == name || s == name[:3] {
			return d, nil
		}
	}
	return time.Sunday, fmt.Errorf("unknown WEEKLY_RESET_DAY %q", s)
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
