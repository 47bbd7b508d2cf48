// Package config loads runtime settings from the environment, optionally
// seeded from a .env file in the working directory.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"cinebook-cli/service"
	"github.com/joho/godotenv"
)

const defaultTimeout = 12 * time.Second

type Config struct {
	APIURL     string
	Timeout    time.Duration
	ScheduleID int
	LogFile    string
	Debug      bool
}

// Load reads CINEBOOK_* variables. Variables already set in the environment
// win over values from envFile.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	cfg := Config{
		APIURL:  service.DefaultBaseURL,
		Timeout: defaultTimeout,
		LogFile: strings.TrimSpace(os.Getenv("CINEBOOK_LOG_FILE")),
	}
	if v := strings.TrimSpace(os.Getenv("CINEBOOK_API_URL")); v != "" {
		cfg.APIURL = v
	}
	if v := strings.TrimSpace(os.Getenv("CINEBOOK_TIMEOUT")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, fmt.Errorf("invalid CINEBOOK_TIMEOUT %q", v)
		}
		cfg.Timeout = d
	}
	if v := strings.TrimSpace(os.Getenv("CINEBOOK_SCHEDULE")); v != "" {
		id, err := ParseScheduleID(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid CINEBOOK_SCHEDULE: %w", err)
		}
		cfg.ScheduleID = id
	}
	if v := strings.TrimSpace(os.Getenv("CINEBOOK_DEBUG")); v != "" {
		debug, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid CINEBOOK_DEBUG %q", v)
		}
		cfg.Debug = debug
	}
	return cfg, nil
}

// ParseScheduleID parses a positive schedule id.
func ParseScheduleID(value string) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("schedule id %q is not a number", value)
	}
	if id <= 0 {
		return 0, fmt.Errorf("schedule id must be greater than zero, got %d", id)
	}
	return id, nil
}
