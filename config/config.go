package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	MaxConcurrency int
	RateLimitMs    int
	MaxRetries     int
	MaxPages       int
	WorkerTimeoutS int
	RunDeadlineS   int

	SourcesPath  string
	TaxonomyPath string
	ScoringPath  string

	// ClassifierStrict makes the classifier emit "Unspecified" instead of
	// defaulting to the most common program on a generic voucher phrase.
	ClassifierStrict bool

	CSVOutputPath string
	ChromeBin     string
	HTTPAddr      string
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "navigator"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "navigator123"),
		PostgresDB:       getEnv("POSTGRES_DB", "housing_db"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 3),
		RateLimitMs:    getEnvInt("RATE_LIMIT_MS", 2000),
		MaxRetries:     getEnvInt("MAX_RETRIES", 3),
		MaxPages:       getEnvInt("MAX_PAGES", 2),
		WorkerTimeoutS: getEnvInt("WORKER_TIMEOUT_S", 90),
		RunDeadlineS:   getEnvInt("RUN_DEADLINE_S", 600),

		SourcesPath:  getEnv("SOURCES_CONFIG_PATH", "./configs/sources.yaml"),
		TaxonomyPath: getEnv("TAXONOMY_CONFIG_PATH", "./configs/taxonomy.yaml"),
		ScoringPath:  getEnv("SCORING_CONFIG_PATH", "./configs/scoring.yaml"),

		ClassifierStrict: getEnvBool("CLASSIFIER_STRICT", false),

		CSVOutputPath: getEnv("CSV_OUTPUT_PATH", "./output/raw_listings.csv"),
		ChromeBin:     getEnv("CHROME_BIN", ""),
		HTTPAddr:      getEnv("HTTP_ADDR", ":8080"),
	}
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
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

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return fallback
}
