// Package club wires the running-club application: configuration,
// storage, dialogues, handlers, routing, and the reminder scheduler.
package club

import (
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	coreconfig "github.com/physhka/runclub-bot/core/config"
	coredatabase "github.com/physhka/runclub-bot/core/database"
)

// Settings holds the club-specific configuration.
type Settings struct {
	// AdminIDs is the static allow-list of privileged chat ids.
	AdminIDs []int64 `yaml:"admin_ids" envconfig:"CLUB_ADMIN_IDS"`
	// Cities selectable for profiles and event announcements.
	Cities []string `yaml:"cities" envconfig:"CLUB_CITIES"`
	// ReminderWindowMinutes is how long before the start the reminder fires.
	ReminderWindowMinutes int `yaml:"reminder_window_minutes" envconfig:"CLUB_REMINDER_WINDOW_MINUTES"`
	// ReminderSpec is the cron expression of the reminder poll.
	ReminderSpec string `yaml:"reminder_spec" envconfig:"CLUB_REMINDER_SPEC"`
}

// Config aggregates core, database, and club settings from one file.
type Config struct {
	Core     coreconfig.Config   `yaml:"core"`
	Database coredatabase.Config `yaml:"database"`
	Club     Settings            `yaml:"club"`
}

// CoreConfig exposes the embedded core configuration for the runner.
func (c *Config) CoreConfig() *coreconfig.Config {
	if c == nil {
		return nil
	}
	return &c.Core
}

// LoadConfig reads the YAML file, applies environment overrides, and validates.
func LoadConfig(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := coreconfig.Normalize(&cfg.Core); err != nil {
		return nil, err
	}
	if err := normalizeSettings(&cfg.Club); err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.Core.Telegram.Name) == "" {
		return nil, fmt.Errorf("telegram.name (bot username) is required for deep links")
	}
	return &cfg, nil
}

func normalizeSettings(s *Settings) error {
	if len(s.Cities) == 0 {
		return fmt.Errorf("club.cities must list at least one city")
	}
	for i, city := range s.Cities {
		city = strings.TrimSpace(city)
		if city == "" {
			return fmt.Errorf("club.cities contains an empty entry")
		}
		s.Cities[i] = city
	}
	if s.ReminderWindowMinutes < 0 {
		return fmt.Errorf("club.reminder_window_minutes must be >= 0")
	}
	if s.ReminderWindowMinutes == 0 {
		s.ReminderWindowMinutes = 120
	}
	if strings.TrimSpace(s.ReminderSpec) == "" {
		s.ReminderSpec = "* * * * *"
	}
	return nil
}
