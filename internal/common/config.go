package common

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	NATS     NATSConfig
	OCR      OCRConfig
	Crawl    CrawlConfig
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	DSN             string
	SQLitePath      string // used when DSN is empty (local mode)
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	DialTimeout     time.Duration
}

// NATSConfig holds the progress notification channel configuration.
// An empty URL disables publishing.
type NATSConfig struct {
	URL           string
	SubjectPrefix string
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	Tesseract         string
	TesseractLang     string
	Magick            string
	Workers           int
	QueueSize         int
	ProcessTimeout    time.Duration
	FallbackThreshold float64
	Preprocess        bool
}

// CrawlConfig holds crawl-related configuration
type CrawlConfig struct {
	ScreenshotDir string
	PageTimeout   time.Duration
	RatePerSecond float64
	Headless      bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			DSN:             getEnv("DB_URL", ""),
			SQLitePath:      getEnv("SQLITE_PATH", "./label-automation.db"),
			MaxConns:        getEnvAsInt32("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt32("DB_MIN_CONNS", 2),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:     getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
		},
		NATS: NATSConfig{
			URL:           getEnv("NATS_URL", ""),
			SubjectPrefix: getEnv("NATS_SUBJECT_PREFIX", "automation.jobs"),
		},
		OCR: OCRConfig{
			Tesseract:         getEnv("TESSERACT_BIN", "tesseract"),
			TesseractLang:     getEnv("TESSERACT_LANG", "deu"),
			Magick:            getEnv("MAGICK_BIN", "magick"),
			Workers:           getEnvAsInt("OCR_WORKERS", 2),
			QueueSize:         getEnvAsInt("OCR_QUEUE_SIZE", 64),
			ProcessTimeout:    getEnvAsDuration("OCR_PROCESS_TIMEOUT", 2*time.Minute),
			FallbackThreshold: getEnvAsFloat64("OCR_FALLBACK_THRESHOLD", 0.60),
			Preprocess:        getEnvAsBool("OCR_PREPROCESS", true),
		},
		Crawl: CrawlConfig{
			ScreenshotDir: getEnv("SCREENSHOT_DIR", "./tmp/screenshots"),
			PageTimeout:   getEnvAsDuration("CRAWL_PAGE_TIMEOUT", 30*time.Second),
			RatePerSecond: getEnvAsFloat64("CRAWL_RATE_PER_SECOND", 2),
			Headless:      getEnvAsBool("CRAWL_HEADLESS", true),
		},
	}
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.Database.DSN == "" && c.Database.SQLitePath == "" {
		return NewAppError("CONFIG_ERROR", "one of DB_URL or SQLITE_PATH is required", ErrInvalidInput)
	}
	if c.OCR.Workers <= 0 {
		return NewAppError("CONFIG_ERROR", "OCR_WORKERS must be positive", ErrInvalidInput)
	}
	if c.OCR.FallbackThreshold < 0 || c.OCR.FallbackThreshold > 1 {
		return NewAppError("CONFIG_ERROR", "OCR_FALLBACK_THRESHOLD must be in [0,1]", ErrInvalidInput)
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
