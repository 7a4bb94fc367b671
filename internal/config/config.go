// Package config defines service configuration and how it is loaded.
//
// Values are read once at startup and passed into the service; nothing
// re-reads configuration afterwards.
package config

import (
	"context"
	"runtime"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/okian/invoy/internal/domain/model"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log encoding: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// WorkerCount sets the number of render workers.
	WorkerCount int `koanf:"worker_count"`

	// QueueSize bounds the in-memory render queue.
	QueueSize int `koanf:"queue_size"`

	Consultant ConsultantConfig `koanf:"consultant"`
	Rules      RulesConfig      `koanf:"rules"`
	Branding   BrandingConfig   `koanf:"branding"`
	Extract    ExtractConfig    `koanf:"extract"`
	STT        STTConfig        `koanf:"stt"`
	Render     RenderConfig     `koanf:"render"`
	Delivery   DeliveryConfig   `koanf:"delivery"`
	Store      StoreConfig      `koanf:"store"`
}

// ConsultantConfig is the invoicing identity. Money values are decimal
// strings so they never pass through float64.
type ConsultantConfig struct {
	Name       string `koanf:"name"`
	Email      string `koanf:"email"`
	Address    string `koanf:"address"`
	Phone      string `koanf:"phone"`
	HourlyRate string `koanf:"hourly_rate"`
	Currency   string `koanf:"currency"`
	TaxRate    string `koanf:"tax_rate"`
	Timezone   string `koanf:"timezone"`
}

// RulesConfig decides which calendar events are billable.
type RulesConfig struct {
	ExcludeKeywords    []string `koanf:"exclude_keywords"`
	MinDurationMinutes float64  `koanf:"min_duration_minutes"`
}

// BrandingConfig is presentation-only.
type BrandingConfig struct {
	CompanyName  string `koanf:"company_name"`
	LogoURL      string `koanf:"logo_url"`
	PrimaryColor string `koanf:"primary_color"`
	FooterNotes  string `koanf:"footer_notes"`
	PaymentTerms string `koanf:"payment_terms"`
}

// ExtractConfig configures the hosted extraction provider.
type ExtractConfig struct {
	BaseURL     string        `koanf:"base_url"`
	APIKey      string        `koanf:"api_key"`
	Model       string        `koanf:"model"`
	Timeout     time.Duration `koanf:"timeout"`
	MaxAttempts int           `koanf:"max_attempts"`
}

// STTConfig configures the speech endpoint. An empty URL disables it.
type STTConfig struct {
	URL     string        `koanf:"url"`
	Timeout time.Duration `koanf:"timeout"`
}

// RenderConfig configures binary document production.
type RenderConfig struct {
	// PDFCommand reads HTML on stdin and writes the document to stdout.
	PDFCommand string `koanf:"pdf_command"`
}

// DeliveryConfig configures outbound mail.
type DeliveryConfig struct {
	APIKey  string `koanf:"api_key"`
	BaseURL string `koanf:"base_url"`
	From    string `koanf:"from"`
}

// StoreConfig configures artifact persistence. An empty path keeps
// artifacts in memory.
type StoreConfig struct {
	Path string `koanf:"path"`
}

// New returns a Config with defaults.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:    "info",
		LogFormat:   "text",
		Addr:        ":8080",
		WorkerCount: runtime.NumCPU(),
		QueueSize:   1024,
		Consultant: ConsultantConfig{
			Currency: "USD",
			TaxRate:  "0",
			Timezone: "UTC",
		},
		Rules: RulesConfig{
			ExcludeKeywords:    []string{"internal", "lunch", "personal"},
			MinDurationMinutes: 15,
		},
		Branding: BrandingConfig{PaymentTerms: "Payment due within 30 days."},
		Extract: ExtractConfig{
			Timeout:     30 * time.Second,
			MaxAttempts: 3,
		},
		STT: STTConfig{Timeout: 60 * time.Second},
	}
}

// Profile converts the consultant section. Call after Validate.
func (c *Config) Profile() model.ConsultantProfile {
	rate, _ := decimal.NewFromString(strings.TrimSpace(c.Consultant.HourlyRate))
	tax := decimal.Zero
	if s := strings.TrimSpace(c.Consultant.TaxRate); s != "" {
		tax, _ = decimal.NewFromString(s)
	}
	return model.ConsultantProfile{
		Name:       strings.TrimSpace(c.Consultant.Name),
		Email:      strings.TrimSpace(c.Consultant.Email),
		Address:    c.Consultant.Address,
		Phone:      c.Consultant.Phone,
		HourlyRate: rate,
		Currency:   strings.ToUpper(strings.TrimSpace(c.Consultant.Currency)),
		TaxRate:    tax,
		Timezone:   strings.TrimSpace(c.Consultant.Timezone),
	}
}

// BillingRule converts the rules section.
func (c *Config) BillingRule() model.BillingRule {
	kw := make([]string, 0, len(c.Rules.ExcludeKeywords))
	for _, k := range c.Rules.ExcludeKeywords {
		if k = strings.TrimSpace(k); k != "" {
			kw = append(kw, k)
		}
	}
	return model.BillingRule{ExcludeKeywordsInTitle: kw, MinDurationMinutes: c.Rules.MinDurationMinutes}
}

// BrandingValue converts the branding section.
func (c *Config) BrandingValue() model.Branding {
	return model.Branding{
		CompanyName:  c.Branding.CompanyName,
		LogoURL:      c.Branding.LogoURL,
		PrimaryColor: c.Branding.PrimaryColor,
		FooterNotes:  c.Branding.FooterNotes,
		PaymentTerms: c.Branding.PaymentTerms,
	}
}
