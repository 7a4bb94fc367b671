package allocation

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/okian/invoy/internal/domain/model"
)

const (
	// HeuristicConfidence is reported for fallback allocations.
	HeuristicConfidence = 0.2
	// HeuristicJustification is attached to evenly split items.
	HeuristicJustification = "Even split of the stated hours across listed tasks."

	maxHeuristicSubjects = 10
	synthesizedLength    = 60
	truncationMarker     = "..."
)

var (
	hoursPattern  = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:hours?|hrs?|h)\b`)
	unitWord      = regexp.MustCompile(`(?i)\b(?:hours?|hrs?)\b`)
	bulletPrefix  = regexp.MustCompile(`^(?:[-*•]+|\d+[.)])\s*`)
	subjectSplits = regexp.MustCompile(`[\n;]+`)
)

// HeuristicExtractor is the deterministic offline extraction branch. It
// reads the first "<number> <hour unit>" as the total and every other line
// as a task, splitting the hours evenly.
type HeuristicExtractor struct{}

// Extract implements Extractor. It never returns an error.
func (HeuristicExtractor) Extract(_ context.Context, req FreeformRequest) (model.Allocation, error) {
	text := strings.ReplaceAll(req.Text, "\r\n", "\n")

	total := 0.0
	if m := hoursPattern.FindStringSubmatch(text); m != nil {
		total, _ = strconv.ParseFloat(m[1], 64)
	} else if req.DefaultHours != nil && *req.DefaultHours >= 0 {
		total = *req.DefaultHours
	}

	subjects := heuristicSubjects(text)
	items := make([]model.AllocatedItem, len(subjects))
	share := Round1(total / float64(len(subjects)))
	for i, s := range subjects {
		items[i] = model.AllocatedItem{
			Subject:        s,
			EstimatedHours: share,
			Justification:  HeuristicJustification,
		}
	}

	return model.Allocation{
		ClientName:       strings.TrimSpace(req.DefaultClient),
		TotalHoursBilled: total,
		BillingPeriod:    periodOrDefault(req.BillingPeriod),
		LineItems:        Reconcile(items, total),
		Confidence:       HeuristicConfidence,
		Source:           model.SourceHeuristic,
	}, nil
}

// heuristicSubjects always returns at least one subject.
func heuristicSubjects(text string) []string {
	var out []string
	for _, line := range subjectSplits.Split(text, -1) {
		line = strings.TrimSpace(bulletPrefix.ReplaceAllString(strings.TrimSpace(line), ""))
		if line == "" || hoursPattern.MatchString(line) || unitWord.MatchString(line) {
			continue
		}
		out = append(out, line)
		if len(out) == maxHeuristicSubjects {
			break
		}
	}
	if len(out) == 0 {
		out = append(out, synthesizeSubject(text))
	}
	return out
}

func synthesizeSubject(text string) string {
	r := []rune(strings.TrimSpace(text))
	if len(r) > synthesizedLength {
		r = r[:synthesizedLength]
	}
	return string(r) + truncationMarker
}
