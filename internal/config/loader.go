package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/shopspring/decimal"
)

const (
	envPrefix = "INVOY_"
	envFile   = "INVOY_CONFIG"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New(ctx))
//  2. file (YAML) if INVOY_CONFIG is set
//  3. env (prefix INVOY_, "__" separates sections)
func Load(ctx context.Context) (*Config, error) {
	base := New(ctx)

	k := koanf.New(".")

	if path := os.Getenv(envFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// INVOY_CONSULTANT__HOURLY_RATE -> consultant.hourly_rate
	envProvider := env.ProviderWithValue(envPrefix, ".", envKeyValue)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// listKeys are settings whose env value is a comma separated list.
var listKeys = map[string]bool{
	"rules.exclude_keywords": true,
}

// envKeyValue maps an INVOY_ variable to its koanf key and value. An
// empty key skips the variable.
func envKeyValue(name, value string) (string, any) {
	if name == envFile {
		return "", nil
	}
	key := strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(name, envPrefix)), "__", ".")
	if listKeys[key] {
		return key, splitList(value)
	}
	return key, value
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate reports the first invalid setting as ErrInvalidConfig.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
	}

	if strings.TrimSpace(c.Addr) == "" {
		return invalid("addr must not be empty")
	}
	switch c.LogFormat {
	case "", "text", "json":
	default:
		return invalid("log_format %q is not text or json", c.LogFormat)
	}
	if c.WorkerCount < 0 || c.QueueSize < 0 {
		return invalid("worker_count and queue_size must not be negative")
	}
	if !strings.Contains(c.Consultant.Email, "@") {
		return invalid("consultant.email is required")
	}
	rate, err := decimal.NewFromString(strings.TrimSpace(c.Consultant.HourlyRate))
	if err != nil || !rate.IsPositive() {
		return invalid("consultant.hourly_rate must be a positive number, got %q", c.Consultant.HourlyRate)
	}
	if strings.TrimSpace(c.Consultant.Currency) == "" {
		return invalid("consultant.currency is required")
	}
	if s := strings.TrimSpace(c.Consultant.TaxRate); s != "" {
		tax, err := decimal.NewFromString(s)
		if err != nil || tax.IsNegative() {
			return invalid("consultant.tax_rate must be a non-negative number, got %q", s)
		}
	}
	if tz := strings.TrimSpace(c.Consultant.Timezone); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			return invalid("consultant.timezone %q: %v", tz, err)
		}
	}
	if c.Rules.MinDurationMinutes < 0 {
		return invalid("rules.min_duration_minutes must not be negative")
	}
	return nil
}
