// Package config provides configuration loading for the trigger daemon.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

var (
	ErrQueueNameRequired = errors.New("queue name is required when the queue receiver is enabled")
	ErrCronRequired      = errors.New("schedule entry requires a cron expression")
)

// TriggerConfig is the structure of the triggers.yaml file consumed by the
// trigger daemon.
type TriggerConfig struct {
	// Queue configures the Redis receiver feeding event triggers.
	Queue QueueConfig `yaml:"queue"`

	// Schedules drive time triggers via cron expressions.
	Schedules []ScheduleConfig `yaml:"schedules"`

	// ConditionPollCron drives condition triggers. Empty disables polling.
	ConditionPollCron string `yaml:"condition_poll_cron"`

	// CRM configures the collaborator backend used by side-effecting actions.
	CRM CRMConfig `yaml:"crm"`
}

// QueueConfig configures the Redis queue receiver.
type QueueConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Queue    string `yaml:"queue"`
}

// ScheduleConfig is one cron entry firing time triggers.
type ScheduleConfig struct {
	Cron        string         `yaml:"cron"`
	TriggerData map[string]any `yaml:"trigger_data"`
}

// LoadTriggerConfig loads trigger daemon configuration from a YAML file.
func LoadTriggerConfig(filepath string) (TriggerConfig, error) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return TriggerConfig{}, fmt.Errorf("failed to read config file %s: %w", filepath, err)
	}

	var config TriggerConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return TriggerConfig{}, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	applyDefaults(&config)

	if err := ValidateTriggerConfig(config); err != nil {
		return TriggerConfig{}, err
	}

	return config, nil
}

// LoadTriggerConfigOrDefault loads configuration from a file, falling back to
// a minimal default when the file is absent.
func LoadTriggerConfigOrDefault(filepath string) TriggerConfig {
	config, err := LoadTriggerConfig(filepath)
	if err != nil {
		config = TriggerConfig{}
		applyDefaults(&config)
	}

	return config
}

func applyDefaults(config *TriggerConfig) {
	if config.Queue.Addr == "" {
		config.Queue.Addr = "localhost:6379"
	}

	if config.Queue.Queue == "" && !config.Queue.Enabled {
		config.Queue.Queue = "flowgate.triggers"
	}

	applyCRMDefaults(&config.CRM)
}

// ValidateTriggerConfig checks cron expressions and queue settings.
func ValidateTriggerConfig(config TriggerConfig) error {
	if config.Queue.Enabled && config.Queue.Queue == "" {
		return ErrQueueNameRequired
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

	for i, schedule := range config.Schedules {
		if schedule.Cron == "" {
			return fmt.Errorf("schedule %d: %w", i, ErrCronRequired)
		}

		if _, err := parser.Parse(schedule.Cron); err != nil {
			return fmt.Errorf("schedule %d: invalid cron expression %q: %w", i, schedule.Cron, err)
		}
	}

	if config.ConditionPollCron != "" {
		if _, err := parser.Parse(config.ConditionPollCron); err != nil {
			return fmt.Errorf("invalid condition poll cron expression %q: %w", config.ConditionPollCron, err)
		}
	}

	return nil
}
