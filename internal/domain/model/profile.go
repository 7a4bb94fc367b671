package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// BillingRule decides which events may be billed.
type BillingRule struct {
	ExcludeKeywordsInTitle []string
	MinDurationMinutes     float64
}

// ConsultantProfile is the read-only identity and pricing of the person
// issuing invoices. It is loaded once per process.
type ConsultantProfile struct {
	Name       string
	Email      string
	Address    string
	Phone      string
	HourlyRate decimal.Decimal
	Currency   string
	TaxRate    decimal.Decimal
	Timezone   string
}

// Location resolves the profile timezone, falling back to UTC.
func (p ConsultantProfile) Location() *time.Location {
	if strings.TrimSpace(p.Timezone) == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Branding carries presentation-only settings for rendered invoices.
type Branding struct {
	CompanyName  string
	LogoURL      string
	PrimaryColor string
	FooterNotes  string
	PaymentTerms string
}
