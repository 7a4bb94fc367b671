package invoice

import (
	"fmt"
	"strings"
	"time"

	"github.com/okian/invoy/internal/domain/model"
)

const (
	summarySubjects   = 3
	summarySubjectLen = 30
)

// AISummary is the narrative attached to finalized invoices.
func AISummary(inv *model.Invoice) string {
	return fmt.Sprintf(
		"This invoice covers %d %s totaling %.1f hours of work for %s. Key areas: %s. Generated using AI-assisted allocation on %s.",
		len(inv.Items), plural(len(inv.Items), "task"), inv.TotalHours, inv.Client.Name,
		keyAreas(inv.Items), inv.IssueDate.Format(time.DateOnly))
}

// CalendarSummary is the narrative attached to calendar invoices.
func CalendarSummary(inv *model.Invoice) string {
	return fmt.Sprintf("This invoice covers %d %s totaling %.1f hours for %s between %s and %s. Key areas: %s.",
		len(inv.Items), plural(len(inv.Items), "session"), inv.TotalHours, inv.Client.Name,
		inv.Period.Start, inv.Period.End, keyAreas(inv.Items))
}

func keyAreas(items []model.LineItem) string {
	parts := make([]string, 0, summarySubjects)
	for i, it := range items {
		if i == summarySubjects {
			break
		}
		r := []rune(it.Subject)
		if len(r) > summarySubjectLen {
			parts = append(parts, string(r[:summarySubjectLen])+"...")
		} else {
			parts = append(parts, it.Subject)
		}
	}
	out := strings.Join(parts, ", ")
	if n := len(items) - summarySubjects; n > 0 {
		out += fmt.Sprintf(", and %d more", n)
	}
	return out
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
