package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/okian/invoy/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func setenv(key, value string) { _ = os.Setenv(key, value) }

// clearConfigEnvVars removes every INVOY_ variable so cases stay independent.
func clearConfigEnvVars() {
	for _, kv := range os.Environ() {
		if key, _, ok := strings.Cut(kv, "="); ok && strings.HasPrefix(key, "INVOY_") {
			_ = os.Unsetenv(key)
		}
	}
}

// setConsultant provides the minimum settings Load validates.
func setConsultant() {
	setenv("INVOY_CONSULTANT__EMAIL", "dana@example.com")
	setenv("INVOY_CONSULTANT__HOURLY_RATE", "100")
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "invoy.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		convey.Reset(clearConfigEnvVars)

		convey.Convey("When only the consultant is set", func() {
			setConsultant()
			cfg, err := config.Load(ctx)

			convey.Convey("Then defaults fill the rest", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.Consultant.Email, convey.ShouldEqual, "dana@example.com")
				convey.So(cfg.Consultant.Currency, convey.ShouldEqual, "USD")
				convey.So(cfg.Rules.ExcludeKeywords, convey.ShouldResemble, []string{"internal", "lunch", "personal"})
			})
		})

		convey.Convey("When nothing is set", func() {
			_, err := config.Load(ctx)

			convey.Convey("Then validation fails", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When nested environment variables are set", func() {
			setConsultant()
			setenv("INVOY_ADDR", ":9090")
			setenv("INVOY_WORKER_COUNT", "6")
			setenv("INVOY_EXTRACT__TIMEOUT", "5s")
			setenv("INVOY_EXTRACT__API_KEY", "sk-test")
			setenv("INVOY_RULES__MIN_DURATION_MINUTES", "30")
			setenv("INVOY_RULES__EXCLUDE_KEYWORDS", "standup,retro")
			setenv("INVOY_STORE__PATH", "/tmp/invoy.db")

			cfg, err := config.Load(ctx)

			convey.Convey("Then they override defaults section by section", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 6)
				convey.So(cfg.Extract.Timeout, convey.ShouldEqual, 5*time.Second)
				convey.So(cfg.Extract.APIKey, convey.ShouldEqual, "sk-test")
				convey.So(cfg.Rules.MinDurationMinutes, convey.ShouldEqual, 30)
				convey.So(cfg.Rules.ExcludeKeywords, convey.ShouldResemble, []string{"standup", "retro"})
				convey.So(cfg.Store.Path, convey.ShouldEqual, "/tmp/invoy.db")
			})
		})

		convey.Convey("When a keyword list has spaces and blanks", func() {
			setConsultant()
			setenv("INVOY_RULES__EXCLUDE_KEYWORDS", " standup , ,retro,")

			cfg, err := config.Load(ctx)

			convey.Convey("Then each keyword becomes its own billing exclusion", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Rules.ExcludeKeywords, convey.ShouldResemble, []string{"standup", "retro"})
				convey.So(cfg.BillingRule().ExcludeKeywordsInTitle, convey.ShouldResemble, []string{"standup", "retro"})
			})
		})

		convey.Convey("When a YAML file is given", func() {
			path := writeConfig(t, `
addr: ":7070"
log_format: json
consultant:
  name: Dana
  email: dana@example.com
  hourly_rate: "150.00"
  currency: EUR
  tax_rate: "0.19"
  timezone: Europe/Berlin
rules:
  exclude_keywords: [Lunch]
  min_duration_minutes: 10
branding:
  company_name: Dana Ltd
render:
  pdf_command: wkhtmltopdf - -
`)
			setenv("INVOY_CONFIG", path)

			cfg, err := config.Load(ctx)

			convey.Convey("Then file values are loaded", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":7070")
				convey.So(cfg.LogFormat, convey.ShouldEqual, "json")
				convey.So(cfg.Consultant.Timezone, convey.ShouldEqual, "Europe/Berlin")
				convey.So(cfg.Rules.ExcludeKeywords, convey.ShouldResemble, []string{"Lunch"})
				convey.So(cfg.Branding.CompanyName, convey.ShouldEqual, "Dana Ltd")
				convey.So(cfg.Render.PDFCommand, convey.ShouldEqual, "wkhtmltopdf - -")
				convey.So(cfg.Profile().TaxRate.String(), convey.ShouldEqual, "0.19")
			})

			convey.Convey("And the environment overrides the file", func() {
				setenv("INVOY_ADDR", ":6060")
				setenv("INVOY_CONSULTANT__CURRENCY", "GBP")

				cfg, err := config.Load(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":6060")
				convey.So(cfg.Consultant.Currency, convey.ShouldEqual, "GBP")
				convey.So(cfg.Consultant.HourlyRate, convey.ShouldEqual, "150.00")
			})
		})

		convey.Convey("When the YAML file is invalid", func() {
			setConsultant()
			setenv("INVOY_CONFIG", writeConfig(t, "addr: [unclosed"))
			_, err := config.Load(ctx)

			convey.Convey("Then loading fails", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the file does not exist", func() {
			setConsultant()
			setenv("INVOY_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
			_, err := config.Load(ctx)

			convey.Convey("Then loading fails", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When a number cannot be parsed", func() {
			setConsultant()
			setenv("INVOY_WORKER_COUNT", "many")
			_, err := config.Load(ctx)

			convey.Convey("Then loading fails", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})
	})
}
