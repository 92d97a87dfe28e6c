package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// AppConfig holds all configuration for the application
type AppConfig struct {
	TelegramToken       string
	DatabaseURL         string
	NotionAPIKey        string
	NotionMeetingsDBID  string
	NotionFeedbackDBID  string
	ErrorChatID         string // optional operator chat for failure reports
	LogLevel            string
	Environment         string
	CronSpecDiscovery   string // discovery poller period
	CronSpecReminder    string // reminder loop period
	DiscoveryWindowDays int    // trailing window for the discovery query
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// Attempt to load .env file. Errors are ignored if the file doesn't exist.
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	cfg := &AppConfig{}

	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	if cfg.TelegramToken == "" {
		return nil, fmt.Errorf("TELEGRAM_TOKEN is not set")
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}

	cfg.NotionAPIKey = os.Getenv("NOTION_API_KEY")
	if cfg.NotionAPIKey == "" {
		return nil, fmt.Errorf("NOTION_API_KEY is not set")
	}

	cfg.NotionMeetingsDBID = os.Getenv("NOTION_MEETINGS_DB_ID")
	if cfg.NotionMeetingsDBID == "" {
		return nil, fmt.Errorf("NOTION_MEETINGS_DB_ID is not set")
	}

	cfg.NotionFeedbackDBID = os.Getenv("NOTION_FEEDBACK_DB_ID")
	if cfg.NotionFeedbackDBID == "" {
		return nil, fmt.Errorf("NOTION_FEEDBACK_DB_ID is not set")
	}

	// Optional: failures are only logged when no operator chat is configured.
	cfg.ErrorChatID = os.Getenv("ERROR_CHAT_ID")

	cfg.LogLevel = strings.ToLower(os.Getenv("LOG_LEVEL"))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info" // Default log level
	}

	cfg.Environment = strings.ToLower(os.Getenv("ENVIRONMENT"))
	if cfg.Environment == "" {
		cfg.Environment = "development" // Default environment
	}

	cfg.CronSpecDiscovery = os.Getenv("CRON_SPEC_DISCOVERY")
	if cfg.CronSpecDiscovery == "" {
		cfg.CronSpecDiscovery = "0 */8 * * *" // Default: every 8 hours
	}

	cfg.CronSpecReminder = os.Getenv("CRON_SPEC_REMINDER")
	if cfg.CronSpecReminder == "" {
		cfg.CronSpecReminder = "30 */8 * * *" // Default: every 8 hours, offset from discovery
	}

	windowStr := os.Getenv("DISCOVERY_WINDOW_DAYS")
	if windowStr == "" {
		cfg.DiscoveryWindowDays = 14
	} else {
		window, err := strconv.Atoi(windowStr)
		if err != nil || window <= 0 {
			return nil, fmt.Errorf("invalid DISCOVERY_WINDOW_DAYS: %q", windowStr)
		}
		cfg.DiscoveryWindowDays = window
	}

	return cfg, nil
}
