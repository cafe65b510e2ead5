package config

import (
	"fmt"
	"os"
	"strconv"
	"strings" // For LogLevel normalization
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds all configuration for the application
type AppConfig struct {
	TelegramToken    string
	DatabaseURL      string
	AdminTelegramID  int64
	DirectoryBaseURL string
	LogLevel         string
	Environment      string

	DiscordWebhookURL   string
	DiscordNotification bool
	AnnounceChatID      int64 // Telegram chat for cycle announcements; 0 disables

	CronSpecCycleCheck string // Reconciliation tick schedule

	// Natural-cycle recurrence: weekly anchor plus repeat interval.
	AnchorWeekday     time.Weekday
	AnchorHour        int
	AnchorMinute      int
	CycleIntervalDays int
	Location          *time.Location

	// Reward-curve policy past three members.
	StepSize       int
	StepThreshold  int
	StepSizeBeyond int
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// Attempt to load .env file. Errors are ignored if the file doesn't exist.
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	cfg := &AppConfig{}
	var err error

	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	if cfg.TelegramToken == "" {
		return nil, fmt.Errorf("TELEGRAM_TOKEN is not set")
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}

	adminIDStr := os.Getenv("ADMIN_TELEGRAM_ID")
	if adminIDStr == "" {
		return nil, fmt.Errorf("ADMIN_TELEGRAM_ID is not set")
	}
	cfg.AdminTelegramID, err = strconv.ParseInt(adminIDStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid ADMIN_TELEGRAM_ID: %w", err)
	}

	cfg.DirectoryBaseURL = strings.TrimRight(os.Getenv("DIRECTORY_BASE_URL"), "/")
	if cfg.DirectoryBaseURL == "" {
		return nil, fmt.Errorf("DIRECTORY_BASE_URL is not set")
	}

	cfg.DiscordWebhookURL = os.Getenv("DISCORD_WEBHOOK_URL")
	cfg.DiscordNotification, err = boolEnv("DISCORD_NOTIFICATIONS_ENABLED", true)
	if err != nil {
		return nil, err
	}

	if announceStr := os.Getenv("ANNOUNCE_CHAT_ID"); announceStr != "" {
		cfg.AnnounceChatID, err = strconv.ParseInt(announceStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ANNOUNCE_CHAT_ID: %w", err)
		}
	}

	cfg.LogLevel = strings.ToLower(os.Getenv("LOG_LEVEL"))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info" // Default log level
	}

	cfg.Environment = strings.ToLower(os.Getenv("ENVIRONMENT"))
	if cfg.Environment == "" {
		cfg.Environment = "development" // Default environment
	}

	cfg.CronSpecCycleCheck = os.Getenv("CRON_SPEC_CYCLE_CHECK")
	if cfg.CronSpecCycleCheck == "" {
		cfg.CronSpecCycleCheck = "*/5 * * * *" // Default: every 5 minutes
	}

	weekdayStr := strings.ToLower(os.Getenv("CYCLE_ANCHOR_WEEKDAY"))
	if weekdayStr == "" {
		weekdayStr = "saturday"
	}
	weekday, ok := weekdays[weekdayStr]
	if !ok {
		return nil, fmt.Errorf("invalid CYCLE_ANCHOR_WEEKDAY: %s", weekdayStr)
	}
	cfg.AnchorWeekday = weekday

	if cfg.AnchorHour, err = intEnv("CYCLE_ANCHOR_HOUR", 15); err != nil {
		return nil, err
	}
	if cfg.AnchorHour < 0 || cfg.AnchorHour > 23 {
		return nil, fmt.Errorf("CYCLE_ANCHOR_HOUR must be between 0 and 23")
	}
	if cfg.AnchorMinute, err = intEnv("CYCLE_ANCHOR_MINUTE", 0); err != nil {
		return nil, err
	}
	if cfg.AnchorMinute < 0 || cfg.AnchorMinute > 59 {
		return nil, fmt.Errorf("CYCLE_ANCHOR_MINUTE must be between 0 and 59")
	}
	if cfg.CycleIntervalDays, err = intEnv("CYCLE_INTERVAL_DAYS", 14); err != nil {
		return nil, err
	}
	if cfg.CycleIntervalDays <= 0 {
		return nil, fmt.Errorf("CYCLE_INTERVAL_DAYS must be positive")
	}

	tzStr := os.Getenv("CYCLE_TIMEZONE")
	if tzStr == "" {
		cfg.Location = time.Local
	} else {
		cfg.Location, err = time.LoadLocation(tzStr)
		if err != nil {
			return nil, fmt.Errorf("invalid CYCLE_TIMEZONE: %w", err)
		}
	}

	if cfg.StepSize, err = intEnv("ALLOTMENT_STEP_SIZE", 32); err != nil {
		return nil, err
	}
	if cfg.StepThreshold, err = intEnv("ALLOTMENT_STEP_THRESHOLD", 0); err != nil {
		return nil, err
	}
	if cfg.StepSizeBeyond, err = intEnv("ALLOTMENT_STEP_SIZE_BEYOND", 16); err != nil {
		return nil, err
	}
	if cfg.StepSize < 0 || cfg.StepSizeBeyond < 0 {
		return nil, fmt.Errorf("allotment step sizes must not be negative")
	}

	return cfg, nil
}

func intEnv(name string, fallback int) (int, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	return value, nil
}

func boolEnv(name string, fallback bool) (bool, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", name, err)
	}
	return value, nil
}
