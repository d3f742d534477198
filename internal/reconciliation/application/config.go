package application

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/shopspring/decimal"
)

// Thresholds defines how large a variance must be before an alert leaves
// the building. Flagged counts below threshold are still persisted and
// visible in the flagged queue.
type Thresholds struct {
	VarianceTickets int     `yaml:"variance_tickets"`
	VarianceAmount  float64 `yaml:"variance_amount"`
}

// AlertConfig defines variance alert configuration.
type AlertConfig struct {
	Defaults        Thresholds            `yaml:"defaults"`
	Locations       map[string]Thresholds `yaml:"locations"`
	WebhookURL      string                `yaml:"webhook_url"`
	Template        string                `yaml:"template"`
	CooldownMinutes int                   `yaml:"cooldown_minutes"`
	DedupeMinutes   int                   `yaml:"dedupe_minutes"`
}

// LoadAlertConfig loads alert config from yaml or env.
func LoadAlertConfig() (AlertConfig, error) {
	cfg := AlertConfig{
		Defaults: Thresholds{
			VarianceTickets: 1,
			VarianceAmount:  0,
		},
		WebhookURL:      os.Getenv("COUNT_ALERT_WEBHOOK_URL"),
		CooldownMinutes: getenvIntDefault("COUNT_ALERT_COOLDOWN_MINUTES", 30),
		DedupeMinutes:   getenvIntDefault("COUNT_ALERT_DEDUPE_MINUTES", 120),
	}

	if path := os.Getenv("COUNT_ALERT_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}
	if cfg.WebhookURL == "" {
		cfg.WebhookURL = os.Getenv("COUNT_ALERT_WEBHOOK_URL")
	}
	return cfg, nil
}

// ThresholdsForLocation returns thresholds for a location.
func (c AlertConfig) ThresholdsForLocation(locationID string) Thresholds {
	if c.Locations != nil {
		if override, ok := c.Locations[locationID]; ok {
			return mergeThresholds(c.Defaults, override)
		}
	}
	return c.Defaults
}

// Cooldown returns the configured cooldown as a duration.
func (c AlertConfig) Cooldown() time.Duration {
	return time.Duration(c.CooldownMinutes) * time.Minute
}

// DedupeWindow returns the configured dedupe window as a duration.
func (c AlertConfig) DedupeWindow() time.Duration {
	return time.Duration(c.DedupeMinutes) * time.Minute
}

// Exceeds reports whether an alert clears the location's thresholds.
func (t Thresholds) Exceeds(varianceTickets int, varianceAmount decimal.Decimal) bool {
	if varianceTickets < 0 {
		varianceTickets = -varianceTickets
	}
	if t.VarianceTickets > 0 && varianceTickets < t.VarianceTickets {
		return false
	}
	if t.VarianceAmount > 0 && varianceAmount.Abs().LessThan(decimal.NewFromFloat(t.VarianceAmount)) {
		return false
	}
	return true
}

func mergeThresholds(base, override Thresholds) Thresholds {
	if override.VarianceTickets != 0 {
		base.VarianceTickets = override.VarianceTickets
	}
	if override.VarianceAmount != 0 {
		base.VarianceAmount = override.VarianceAmount
	}
	return base
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
