// Package render turns invoices into HTML and, when a converter is
// available, into a binary document.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/okian/invoy/internal/domain/invoice"
	"github.com/okian/invoy/internal/domain/model"
)

// Template identifiers.
const (
	TemplateCalendar = "calendar"
	TemplateAI       = "ai"
)

const defaultColor = "#1f4e79"

//go:embed templates/*.tmpl
var templateFS embed.FS

var funcs = template.FuncMap{
	"money": func(d decimal.Decimal) string { return d.StringFixed(2) },
	"hours": func(h float64) string { return strconv.FormatFloat(h, 'f', 2, 64) },
}

type view struct {
	Invoice *model.Invoice
	Symbol  string
	Color   string
}

// HTMLRenderer renders invoices with the embedded templates.
type HTMLRenderer struct {
	tmpl *template.Template
}

// NewHTMLRenderer parses the embedded templates.
func NewHTMLRenderer() (*HTMLRenderer, error) {
	t, err := template.New("invoice").Funcs(funcs).ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &HTMLRenderer{tmpl: t}, nil
}

// Render executes templateID for inv.
func (r *HTMLRenderer) Render(inv *model.Invoice, templateID string) ([]byte, error) {
	if templateID != TemplateCalendar && templateID != TemplateAI {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTemplate, templateID)
	}
	color := inv.Branding.PrimaryColor
	if color == "" {
		color = defaultColor
	}

	var buf bytes.Buffer
	v := view{Invoice: inv, Symbol: invoice.CurrencySymbol(inv.Currency), Color: color}
	if err := r.tmpl.ExecuteTemplate(&buf, templateID, v); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRender, err)
	}
	return buf.Bytes(), nil
}
