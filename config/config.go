package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/lib/pq"
)

type Config struct {
	Server        ServerConfig
	Log           LogConfig
	Database      DatabaseConfig
	Redis         RedisConfig
	JWT           JWTConfig
	CORS          CORSConfig
	MenuFetch     MenuFetchConfig
	SessionCookie SessionCookieConfig
	S3            S3Config
	Cache         CacheConfig
}

type ServerConfig struct {
	Port        string
	GinMode     string
	Environment string
}

type LogConfig struct {
	Level  string
	Format string // json, console
}

type DatabaseConfig struct {
	URL      string // takes precedence over the discrete fields
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// Enabled reports whether a Redis host is configured.
func (c *RedisConfig) Enabled() bool {
	return c.Host != ""
}

type JWTConfig struct {
	Secret            string
	AccessTokenExpiry time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type MenuFetchConfig struct {
	APIURL         string
	DaysToFetch    int
	DaysOffset     int
	Meals          []string
	SelectedCampus uint
	CronSpec       string
	Concurrency    int
	HTTPTimeout    time.Duration
	Enabled        bool
}

type SessionCookieConfig struct {
	CookieKey    string
	DaysToExpire int
}

type S3Config struct {
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	BaseURL         string
}

// Enabled reports whether raw pages should be archived.
func (c *S3Config) Enabled() bool {
	return c.Bucket != ""
}

type CacheConfig struct {
	FilterTTL time.Duration
}

func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Server: ServerConfig{
			Port:        getEnv("SERVER_PORT", "8080"),
			GinMode:     getEnv("GIN_MODE", "debug"),
			Environment: getEnv("ENVIRONMENT", "development"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", ""),
			Format: getEnv("LOG_FORMAT", "console"),
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", ""),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "whatthedob"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", ""),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       parseInt(getEnv("REDIS_DB", "0"), 0),
		},
		JWT: JWTConfig{
			Secret:            getEnv("JWT_SECRET", "your-secret-key"),
			AccessTokenExpiry: parseDuration(getEnv("JWT_ACCESS_TOKEN_EXPIRY", "15m"), 15*time.Minute),
		},
		CORS: CORSConfig{
			AllowedOrigins: parseSlice(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		},
		MenuFetch: MenuFetchConfig{
			APIURL:         getEnv("MENU_API_URL", "https://www.absecom.psu.edu/menus/user-pages/daily-menu.cfm"),
			DaysToFetch:    parseInt(getEnv("MENU_DAYS_TO_FETCH", "7"), 7),
			DaysOffset:     parseInt(getEnv("MENU_DAYS_OFFSET", "0"), 0),
			Meals:          parseSlice(getEnv("MENU_MEALS", "Breakfast,Lunch,Dinner")),
			SelectedCampus: uint(parseInt(getEnv("MENU_SELECTED_CAMPUS", "46"), 46)),
			CronSpec:       getEnv("MENU_FETCH_CRON", "0 0 * * *"),
			Concurrency:    parseInt(getEnv("MENU_FETCH_CONCURRENCY", "4"), 4),
			HTTPTimeout:    parseDuration(getEnv("MENU_HTTP_TIMEOUT", "30s"), 30*time.Second),
			Enabled:        getEnv("MENU_FETCH_ENABLED", "true") == "true",
		},
		SessionCookie: SessionCookieConfig{
			CookieKey:    getEnv("SESSION_COOKIE_KEY", "UserSessionId"),
			DaysToExpire: parseInt(getEnv("SESSION_COOKIE_DAYS", "7"), 7),
		},
		S3: S3Config{
			Region:          getEnv("AWS_REGION", "us-east-1"),
			Bucket:          getEnv("AWS_S3_BUCKET", ""),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			BaseURL:         getEnv("AWS_S3_BASE_URL", ""),
		},
		Cache: CacheConfig{
			FilterTTL: parseDuration(getEnv("FILTER_CACHE_TTL", "1h"), time.Hour),
		},
	}

	return config, nil
}

// DSN returns the connection string for the postgres driver. A
// DATABASE_URL (postgres://...) is converted to key/value form.
func (c *DatabaseConfig) DSN() (string, error) {
	if c.URL != "" {
		dsn, err := pq.ParseURL(c.URL)
		if err != nil {
			return "", fmt.Errorf("invalid DATABASE_URL: %w", err)
		}
		return dsn, nil
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	), nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	duration, err := time.ParseDuration(s)
	if err != nil {
		log.Printf("Invalid duration %s, using default %s", s, fallback)
		return fallback
	}
	return duration
}

func parseInt(s string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		log.Printf("Invalid integer %s, using default %d", s, fallback)
		return fallback
	}
	return n
}

func parseSlice(s string) []string {
	if s == "" {
		return []string{}
	}
	var result []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}
