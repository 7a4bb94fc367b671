// Command generate-invoices turns a calendar export into one HTML invoice
// per client.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/okian/invoy/internal/adapters/render"
	service "github.com/okian/invoy/internal/app"
	"github.com/okian/invoy/internal/config"
	"github.com/okian/invoy/pkg/logger"
)

const (
	defaultTimeout = 5 * time.Minute
	dirPermission  = 0o755
	filePermission = 0o644
)

// options are the command line flags.
type options struct {
	Input    string
	OutDir   string
	Manifest string
	Format   string
}

// manifest lists what a run produced.
type manifest struct {
	GeneratedAt  time.Time       `json:"generated_at" yaml:"generated_at"`
	Input        string          `json:"input" yaml:"input"`
	Parsed       int             `json:"parsed" yaml:"parsed"`
	Dropped      int             `json:"dropped" yaml:"dropped"`
	Billable     int             `json:"billable" yaml:"billable"`
	Unattributed int             `json:"unattributed" yaml:"unattributed"`
	Invoices     []manifestEntry `json:"invoices" yaml:"invoices"`
}

type manifestEntry struct {
	Client     string   `json:"client" yaml:"client"`
	Email      string   `json:"email" yaml:"email"`
	InvoiceID  string   `json:"invoice_id,omitempty" yaml:"invoice_id,omitempty"`
	Files      []string `json:"files,omitempty" yaml:"files,omitempty"`
	Sessions   int      `json:"sessions" yaml:"sessions"`
	TotalHours float64  `json:"total_hours" yaml:"total_hours"`
	TotalDue   string   `json:"total_due,omitempty" yaml:"total_due,omitempty"`
	Error      string   `json:"error,omitempty" yaml:"error,omitempty"`
}

func main() {
	var opts options
	flag.StringVar(&opts.Input, "input", "", "Calendar export (.txt, .json or .ics)")
	flag.StringVar(&opts.OutDir, "out", "output", "Directory for generated invoices")
	flag.StringVar(&opts.Manifest, "manifest", "", "Optional manifest file (.yaml or .json)")
	flag.StringVar(&opts.Format, "format", "", "Input format; derived from the file extension when empty")
	flag.Parse()

	_ = godotenv.Load()
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}
	_ = logger.SetLevelString(cfg.LogLevel)

	if err := run(ctx, cfg, opts, os.Stdout); err != nil {
		os.Stderr.WriteString("generate-invoices: " + err.Error() + "\n")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, opts options, stdout io.Writer) error {
	if strings.TrimSpace(opts.Input) == "" {
		return errors.New("-input is required")
	}
	data, err := os.ReadFile(opts.Input)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	format := opts.Format
	if format == "" {
		format = formatFromExt(opts.Input)
	}

	svcOpts := []service.Option{
		service.WithLogger(logger.Get()),
		service.WithProfile(cfg.Profile()),
		service.WithRules(cfg.BillingRule()),
		service.WithBranding(cfg.BrandingValue()),
		service.WithWorkerCount(cfg.WorkerCount),
		service.WithQueueSize(cfg.QueueSize),
	}
	if p := render.NewCommandProducer(cfg.Render.PDFCommand); p != nil {
		svcOpts = append(svcOpts, service.WithBinaryProducer(p))
	}
	svc := service.New(svcOpts...)
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer svc.Stop()

	res, err := svc.GenerateFromCalendar(ctx, service.CalendarRequest{Format: format, Data: data})
	if err != nil {
		return err
	}

	if err := os.MkdirAll(opts.OutDir, dirPermission); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	m := manifest{
		GeneratedAt:  time.Now().UTC(),
		Input:        opts.Input,
		Parsed:       res.Parsed,
		Dropped:      len(res.Dropped),
		Billable:     res.Billing.Billable,
		Unattributed: res.Unattributed,
	}
	for _, ci := range res.Invoices {
		entry := manifestEntry{
			Client:     ci.Client.Name,
			Email:      ci.Client.Email,
			InvoiceID:  ci.InvoiceID,
			Sessions:   ci.Sessions,
			TotalHours: ci.TotalHours,
			Error:      ci.Error,
		}
		if ci.Error == "" {
			entry.TotalDue = ci.TotalDue.StringFixed(2)
			for _, name := range ci.Files {
				if strings.HasSuffix(name, service.ExtJSON) {
					continue
				}
				path, err := writeArtifact(ctx, svc, opts.OutDir, name)
				if err != nil {
					return err
				}
				entry.Files = append(entry.Files, path)
				fmt.Fprintln(stdout, path)
			}
		} else {
			fmt.Fprintf(stdout, "failed %s: %s\n", ci.ClientKey, ci.Error)
		}
		m.Invoices = append(m.Invoices, entry)
	}

	if opts.Manifest != "" {
		if err := writeManifest(opts.Manifest, m); err != nil {
			return err
		}
	}
	if n := res.Failed(); n > 0 {
		return fmt.Errorf("%d of %d invoices failed", n, len(res.Invoices))
	}
	return nil
}

func writeArtifact(ctx context.Context, svc *service.Service, dir, name string) (string, error) {
	body, err := svc.Artifact(ctx, name)
	if err != nil {
		return "", fmt.Errorf("load %s: %w", name, err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, body, filePermission); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

func writeManifest(path string, m manifest) error {
	var (
		raw []byte
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		raw, err = json.MarshalIndent(m, "", "  ")
	case ".yaml", ".yml":
		raw, err = yaml.Marshal(m)
	default:
		return fmt.Errorf("manifest must end in .yaml, .yml or .json: %s", path)
	}
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	if err := os.WriteFile(path, raw, filePermission); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

func formatFromExt(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return service.FormatJSON
	case ".ics", ".ical":
		return service.FormatICS
	default:
		return service.FormatText
	}
}
