package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the bot
type Config struct {
	Discord struct {
		Token  string
		Prefix string
	}

	Data struct {
		Dir string
	}

	Vote struct {
		GamesCount           int
		DurationHours        int
		WinnersCount         int
		ReminderPollInterval time.Duration
	}

	Planner struct {
		GamesCount int
		Weekday    time.Weekday
		Hour       int
	}

	MainCycle time.Duration
	LogLevel  string
}

// Load loads configuration from a .env file if present and the environment
func Load() *Config {
	_ = godotenv.Load()

	config := &Config{}

	config.Discord.Token = getEnv("DISCORD_TOKEN", "")
	config.Discord.Prefix = getEnv("BOT_PREFIX", "gamenight")

	config.Data.Dir = getEnv("DATA_DIR", "./data")

	config.Vote.GamesCount = getEnvAsInt("DEFAULT_VOTE_GAMES_COUNT", 5)
	config.Vote.DurationHours = getEnvAsInt("DEFAULT_VOTE_DURATION", 24)
	config.Vote.WinnersCount = getEnvAsInt("VOTE_WINNERS_COUNT", 3)
	config.Vote.ReminderPollInterval = getEnvAsDuration("REMINDER_POLL_INTERVAL", time.Hour)

	config.Planner.GamesCount = getEnvAsInt("PLAN_GAMES_COUNT", 3)
	config.Planner.Weekday = time.Weekday(getEnvAsInt("PLAN_WEEKDAY", int(time.Monday)) % 7)
	config.Planner.Hour = getEnvAsInt("PLAN_HOUR", 10)

	config.MainCycle = getEnvAsDuration("MAIN_CYCLE", time.Minute)
	config.LogLevel = getEnv("LOG_LEVEL", "info")

	return config
}

// DataFile returns the path of a data file inside the data directory
func (c *Config) DataFile(name string) string {
	return filepath.Join(c.Data.Dir, name)
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as int or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsDuration accepts Go durations ("90s", "1h") or plain seconds
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultValue
}
