package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	ServerPort        string
	DatabaseURL       string
	LogLevel          string
	AIBaseURL         string
	AIAPIKey          string
	AIModel           string
	SlackBotToken     string
	AnalyticsEndpoint string
	AnalyticsAPIKey   string
	JobWorkerCount    string
	SweepIntervalMins string
	EnableRenderer    string
}

// FetcherConfig holds configuration for the page content fetcher
type FetcherConfig struct {
	RequestTimeout  time.Duration `json:"request_timeout"`
	PolitenessDelay time.Duration `json:"politeness_delay"`
	MinTextRunes    int           `json:"min_text_runes"`
	EnableRenderer  bool          `json:"enable_renderer"`
}

// DefaultFetcherConfig returns default fetcher configuration
func DefaultFetcherConfig() *FetcherConfig {
	return &FetcherConfig{
		RequestTimeout:  30 * time.Second,
		PolitenessDelay: 500 * time.Millisecond, // Delay between requests for politeness
		MinTextRunes:    200,                    // Below this the static fetch is treated as empty
		EnableRenderer:  false,
	}
}

// ExtractionConfig holds configuration for the AI extraction step
type ExtractionConfig struct {
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	CallTimeout time.Duration `json:"call_timeout"`
}

// DefaultExtractionConfig returns default AI extraction configuration
func DefaultExtractionConfig() *ExtractionConfig {
	return &ExtractionConfig{
		Temperature: 0, // Deterministic sampling so repeated runs extract identical fields
		MaxTokens:   1000,
		CallTimeout: 60 * time.Second,
	}
}

// GetJobWorkerCount returns the worker count from environment or default
func (c *Config) GetJobWorkerCount() int {
	if c.JobWorkerCount == "" {
		return 4
	}

	count, err := strconv.Atoi(c.JobWorkerCount)
	if err != nil || count <= 0 {
		logrus.Warnf("Invalid JOB_WORKER_COUNT value: %s, using default 4", c.JobWorkerCount)
		return 4
	}

	return count
}

// GetSweepInterval returns the expiration sweep interval from environment or default
func (c *Config) GetSweepInterval() time.Duration {
	if c.SweepIntervalMins == "" {
		return 6 * time.Hour
	}

	mins, err := strconv.Atoi(c.SweepIntervalMins)
	if err != nil || mins <= 0 {
		logrus.Warnf("Invalid SWEEP_INTERVAL_MINUTES value: %s, using default 6 hours", c.SweepIntervalMins)
		return 6 * time.Hour
	}

	return time.Duration(mins) * time.Minute
}

// RendererEnabled reports whether the headless renderer fallback is enabled
func (c *Config) RendererEnabled() bool {
	return c.EnableRenderer == "true" || c.EnableRenderer == "1"
}

func LoadConfig() *Config {
	err := godotenv.Load()
	if err != nil {
		logrus.Warn("Error loading .env file, using system environment variables")
	}

	return &Config{
		ServerPort:        getEnv("SERVER_PORT", "8080"),
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		AIBaseURL:         getEnv("AI_BASE_URL", "https://api.openai.com"),
		AIAPIKey:          getEnv("AI_API_KEY", ""),
		AIModel:           getEnv("AI_MODEL", "gpt-4o-mini"),
		SlackBotToken:     getEnv("SLACK_BOT_TOKEN", ""),
		AnalyticsEndpoint: getEnv("ANALYTICS_ENDPOINT", ""),
		AnalyticsAPIKey:   getEnv("ANALYTICS_API_KEY", ""),
		JobWorkerCount:    getEnv("JOB_WORKER_COUNT", "4"),
		SweepIntervalMins: getEnv("SWEEP_INTERVAL_MINUTES", ""),
		EnableRenderer:    getEnv("ENABLE_RENDERER", "false"),
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
