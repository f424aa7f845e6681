package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"reactcheck/internal/common"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/rs/zerolog/log"
)

const (
	DefaultSettingsFile = "reactcheck.toml"
	TokenVariable       = "DISCORD_TOKEN"
)

var (
	ErrMissingToken    = errors.New(TokenVariable + " not found in environment variables")
	ErrInvalidSettings = errors.New("invalid settings")
)

// Settings holds everything the bot can be tuned with.
// Every field has a default, so the settings file is optional
type Settings struct {
	// Prefix that triggers the commands, as in "!track"
	Prefix string `koanf:"prefix"`
	// How often expired checks are looked for
	PollInterval time.Duration `koanf:"poll_interval"`
	// How long members have to react to a check
	TrackDuration time.Duration `koanf:"track_duration"`
	// Same, for test checks
	TestDuration time.Duration `koanf:"test_duration"`
	// Only members holding this role are reported. Empty reports everyone
	RoleID string `koanf:"role_id"`
	// Where report channels are persisted
	ConfigFile string `koanf:"config_file"`
	// Log level (debug, info, warn, error)
	LogLevel string `koanf:"log_level"`
	// Address of the metrics endpoint, disabled when empty
	MetricsAddr string `koanf:"metrics_addr"`
	// Expired checks processed at the same time
	ReportWorkers int `koanf:"report_workers"`
	// Limits on how many checks a guild can start
	StartLimit []common.Restriction `koanf:"start_limit"`
}

func DefaultSettings() Settings {
	return Settings{
		Prefix:        "!",
		PollInterval:  10 * time.Second,
		TrackDuration: 24 * time.Hour,
		TestDuration:  20 * time.Second,
		RoleID:        "1435698785249398794",
		ConfigFile:    "config.json",
		LogLevel:      "info",
		ReportWorkers: 4,
		StartLimit:    []common.Restriction{{Requests: 5, Duration: time.Minute}},
	}
}

// LoadSettings reads the settings file at path on top of the defaults.
// A missing file leaves the defaults untouched
func LoadSettings(path string) (*Settings, error) {
	settings := DefaultSettings()

	if path != "" {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			log.Debug().Str("path", path).Msg("No settings file, using defaults")
		} else {
			k := koanf.New(".")
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				return nil, fmt.Errorf("could not read settings file %s: %w", path, err)
			}
			if err := k.Unmarshal("", &settings); err != nil {
				return nil, fmt.Errorf("could not decode settings file %s: %w", path, err)
			}
		}
	}

	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return &settings, nil
}

func (s *Settings) Validate() error {
	switch {
	case s.Prefix == "":
		return fmt.Errorf("%w: prefix is empty", ErrInvalidSettings)
	case s.PollInterval < time.Second:
		return fmt.Errorf("%w: poll_interval must be at least 1s, got %s", ErrInvalidSettings, s.PollInterval)
	case s.TrackDuration <= 0:
		return fmt.Errorf("%w: track_duration must be positive", ErrInvalidSettings)
	case s.TestDuration <= 0:
		return fmt.Errorf("%w: test_duration must be positive", ErrInvalidSettings)
	case s.ConfigFile == "":
		return fmt.Errorf("%w: config_file is empty", ErrInvalidSettings)
	case s.ReportWorkers < 1:
		return fmt.Errorf("%w: report_workers must be at least 1", ErrInvalidSettings)
	}
	for _, restriction := range s.StartLimit {
		if restriction.Duration <= 0 {
			return fmt.Errorf("%w: start_limit duration must be positive", ErrInvalidSettings)
		}
	}
	return nil
}

// Token returns the bot token from the environment, loading a .env file first if there is one
func Token() (string, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn().Err(err).Msg("Could not read .env file")
	}
	token := os.Getenv(TokenVariable)
	if token == "" {
		return "", ErrMissingToken
	}
	return token, nil
}
