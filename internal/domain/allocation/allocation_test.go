package allocation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"testing"

	"github.com/okian/invoy/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func hours(items []model.AllocatedItem) []float64 {
	out := make([]float64, len(items))
	for i, it := range items {
		out[i] = it.EstimatedHours
	}
	return out
}

func TestAllocate(t *testing.T) {
	Convey("Given structured allocation", t, func() {
		Convey("When subjects have unequal word counts", func() {
			items := Allocate(10, []string{"Backend API redesign", "QA"})

			Convey("Then hours follow the 3:1 weights without correction", func() {
				So(hours(items), ShouldResemble, []float64{7.5, 2.5})
				So(items[0].Subject, ShouldEqual, "Backend API redesign")
				So(items[1].Justification, ShouldEqual, StructuredJustification)
			})
		})

		Convey("When equal shares do not round to the total", func() {
			items := Allocate(10, []string{"A", "B", "C"})

			Convey("Then only the last item absorbs the drift", func() {
				So(hours(items), ShouldResemble, []float64{3.3, 3.3, 3.4})
			})
		})

		Convey("When the same subjects are reordered", func() {
			a := Allocate(1, []string{"one two", "x", "y"})
			b := Allocate(1, []string{"x", "y", "one two"})

			Convey("Then the result follows the order", func() {
				So(hours(a), ShouldResemble, []float64{0.5, 0.3, 0.2})
				So(hours(b), ShouldResemble, []float64{0.3, 0.3, 0.4})
				So(hours(Allocate(1, []string{"one two", "x", "y"})), ShouldResemble, hours(a))
			})
		})

		Convey("When there are no subjects", func() {
			Convey("Then nothing is allocated", func() {
				So(Allocate(5, nil), ShouldBeEmpty)
			})
		})

		Convey("When blank subjects are given", func() {
			Convey("Then they weigh as one word", func() {
				So(hours(Allocate(2, []string{"  ", "a"})), ShouldResemble, []float64{1, 1})
			})
		})
	})
}

func TestAllocateSumProperty(t *testing.T) {
	Convey("Given random totals and subject lists", t, func() {
		rng := rand.New(rand.NewSource(42))
		words := []string{"api", "design", "qa", "infra", "review", "docs"}

		Convey("Then the allocated hours always sum to the rounded total", func() {
			for i := 0; i < 500; i++ {
				total := math.Round(rng.Float64()*4000) / 100
				n := 1 + rng.Intn(12)
				subjects := make([]string, n)
				for j := range subjects {
					k := 1 + rng.Intn(5)
					parts := make([]string, k)
					for w := range parts {
						parts[w] = words[rng.Intn(len(words))]
					}
					subjects[j] = strings.Join(parts, " ")
				}
				items := Allocate(total, subjects)
				So(len(items), ShouldEqual, n)
				So(math.Abs(Sum(items)-Round1(total)), ShouldBeLessThan, 1e-9)
			}
		})
	})
}

func TestAllocateMonotonicity(t *testing.T) {
	Convey("Given two subjects where the first has more words", t, func() {
		Convey("Then it never receives less than the other", func() {
			for _, total := range []float64{0, 0.3, 1, 7.7, 10, 40.5} {
				items := Allocate(total, []string{"long subject with many words", "short"})
				So(items[0].EstimatedHours, ShouldBeGreaterThanOrEqualTo, items[1].EstimatedHours)
			}
		})
	})
}

func TestReconcile(t *testing.T) {
	Convey("Given provider items that drift from the declared total", t, func() {
		in := []model.AllocatedItem{
			{Subject: "a", EstimatedHours: 1.26},
			{Subject: "b", EstimatedHours: 2.24},
			{Subject: "c", EstimatedHours: 4},
		}

		out := Reconcile(in, 8)

		Convey("Then items are rounded and the last one corrected", func() {
			So(hours(out), ShouldResemble, []float64{1.3, 2.2, 4.5})
		})

		Convey("Then the input is left untouched", func() {
			So(in[0].EstimatedHours, ShouldEqual, 1.26)
		})
	})

	Convey("Given a total with a half tenth", t, func() {
		out := Reconcile([]model.AllocatedItem{{EstimatedHours: 0.1}, {EstimatedHours: 0.1}}, 0.25)

		Convey("Then the sum matches the rounded total", func() {
			So(math.Abs(Sum(out)-Round1(0.25)), ShouldBeLessThan, 1e-9)
		})
	})

	Convey("Given no items", t, func() {
		So(Reconcile(nil, 3), ShouldBeEmpty)
	})
}

func TestAllocateTinyTotal(t *testing.T) {
	Convey("Given fewer tenths than subjects", t, func() {
		items := Allocate(0.3, []string{"a", "b", "c", "d", "e"})

		Convey("Then every share rounds up and the last item goes negative", func() {
			So(hours(items), ShouldResemble, []float64{0.1, 0.1, 0.1, 0.1, -0.1})
		})

		Convey("Then the items still sum to the declared total", func() {
			So(math.Abs(Sum(items)-0.3), ShouldBeLessThan, 1e-9)
		})
	})
}

// scripted returns queued results in order, repeating the last one.
type scripted struct {
	results []model.Allocation
	errs    []error
	calls   int
}

func (s *scripted) Extract(context.Context, FreeformRequest) (model.Allocation, error) {
	i := min(s.calls, len(s.errs)-1)
	s.calls++
	return s.results[i], s.errs[i]
}

func TestEngineStructured(t *testing.T) {
	Convey("Given an engine", t, func() {
		e := NewEngine()
		ctx := context.Background()

		Convey("When a structured request is made without a period", func() {
			out, err := e.AllocateStructured(ctx, Request{Client: "Acme", TotalHours: 10, Subjects: []string{"A", "B", "C"}})

			Convey("Then the envelope carries the defaults", func() {
				So(err, ShouldBeNil)
				So(out.ClientName, ShouldEqual, "Acme")
				So(out.BillingPeriod, ShouldEqual, DefaultBillingPeriod)
				So(out.Confidence, ShouldEqual, StructuredConfidence)
				So(out.Source, ShouldEqual, model.SourceStructured)
				So(hours(out.LineItems), ShouldResemble, []float64{3.3, 3.3, 3.4})
			})
		})

		Convey("When the total is negative", func() {
			_, err := e.AllocateStructured(ctx, Request{TotalHours: -1, Subjects: []string{"A"}})

			Convey("Then the request is rejected", func() {
				So(errors.Is(err, ErrInvalidHours), ShouldBeTrue)
			})
		})

		Convey("When there are no subjects", func() {
			out, err := e.AllocateStructured(ctx, Request{TotalHours: 4})

			Convey("Then an empty allocation with zero confidence is returned", func() {
				So(err, ShouldBeNil)
				So(out.LineItems, ShouldBeEmpty)
				So(out.Confidence, ShouldEqual, 0)
			})
		})
	})
}

func TestEngineExtract(t *testing.T) {
	ctx := context.Background()
	exampleText := "Worked on migration script\nFixed bug in parser\n5 hours total"

	Convey("Given no live extractor", t, func() {
		out := NewEngine().Extract(ctx, FreeformRequest{Text: exampleText})

		Convey("Then the heuristic splits the stated hours evenly", func() {
			So(out.TotalHoursBilled, ShouldEqual, 5.0)
			So(out.Confidence, ShouldEqual, HeuristicConfidence)
			So(out.Source, ShouldEqual, model.SourceHeuristic)
			So(len(out.LineItems), ShouldEqual, 2)
			So(out.LineItems[0].Subject, ShouldEqual, "Worked on migration script")
			So(out.LineItems[1].Subject, ShouldEqual, "Fixed bug in parser")
			So(hours(out.LineItems), ShouldResemble, []float64{2.5, 2.5})
		})
	})

	Convey("Given a live extractor that returns a drifting draft", t, func() {
		live := &scripted{
			results: []model.Allocation{{
				ClientName:       "Acme",
				TotalHoursBilled: 10,
				LineItems: []model.AllocatedItem{
					{Subject: "A", EstimatedHours: 3.33},
					{Subject: "B", EstimatedHours: 3.33},
					{Subject: "C", EstimatedHours: 3.33},
				},
				Confidence: 0.9,
			}},
			errs: []error{nil},
		}
		out := NewEngine(WithExtractor(live)).Extract(ctx, FreeformRequest{Text: "anything"})

		Convey("Then the draft is reconciled before it is returned", func() {
			So(live.calls, ShouldEqual, 1)
			So(out.Source, ShouldEqual, model.SourceLive)
			So(out.Confidence, ShouldEqual, 0.9)
			So(out.BillingPeriod, ShouldEqual, DefaultBillingPeriod)
			So(hours(out.LineItems), ShouldResemble, []float64{3.3, 3.3, 3.4})
		})
	})

	Convey("Given a live extractor that keeps returning malformed output", t, func() {
		live := &scripted{
			results: []model.Allocation{{}},
			errs:    []error{fmt.Errorf("%w: not json", ErrMalformed)},
		}
		out := NewEngine(WithExtractor(live), WithMaxAttempts(2)).Extract(ctx, FreeformRequest{Text: exampleText})

		Convey("Then retries are bounded and the heuristic answers", func() {
			So(live.calls, ShouldEqual, 2)
			So(out.Source, ShouldEqual, model.SourceHeuristic)
			So(hours(out.LineItems), ShouldResemble, []float64{2.5, 2.5})
		})
	})

	Convey("Given a live extractor that recovers after a malformed answer", t, func() {
		good := model.Allocation{TotalHoursBilled: 2, LineItems: []model.AllocatedItem{{Subject: "Review", EstimatedHours: 2}}}
		live := &scripted{
			results: []model.Allocation{{}, good},
			errs:    []error{nil, nil},
		}
		out := NewEngine(WithExtractor(live)).Extract(ctx, FreeformRequest{Text: "x", DefaultClient: "Acme"})

		Convey("Then the schema violation is retried and the second answer used", func() {
			So(live.calls, ShouldEqual, 2)
			So(out.Source, ShouldEqual, model.SourceLive)
			So(out.ClientName, ShouldEqual, "Acme")
			So(out.Confidence, ShouldEqual, 0.5)
		})
	})

	Convey("Given an unavailable live extractor", t, func() {
		live := &scripted{results: []model.Allocation{{}}, errs: []error{ErrUnavailable}}
		def := 6.0
		out := NewEngine(WithExtractor(live)).Extract(ctx, FreeformRequest{Text: "Design\nBuild", DefaultHours: &def, DefaultClient: "Bo"})

		Convey("Then it is not retried and defaults feed the heuristic", func() {
			So(live.calls, ShouldEqual, 1)
			So(out.ClientName, ShouldEqual, "Bo")
			So(out.TotalHoursBilled, ShouldEqual, 6)
			So(hours(out.LineItems), ShouldResemble, []float64{3, 3})
		})
	})

	Convey("Given a cancelled context", t, func() {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		live := &scripted{results: []model.Allocation{{}}, errs: []error{nil}}
		out := NewEngine(WithExtractor(live)).Extract(cctx, FreeformRequest{Text: "3h\nWrite docs"})

		Convey("Then the provider is skipped", func() {
			So(live.calls, ShouldEqual, 0)
			So(out.Source, ShouldEqual, model.SourceHeuristic)
			So(hours(out.LineItems), ShouldResemble, []float64{3})
		})
	})
}

func TestHeuristicExtractor(t *testing.T) {
	ctx := context.Background()

	Convey("Given bulleted free text", t, func() {
		text := "- Planning session; * API work\n• Deploy\n1. Retro\n2) Docs\nTotal 10 hrs\nSpent an hour on email"
		out, err := HeuristicExtractor{}.Extract(ctx, FreeformRequest{Text: text})

		Convey("Then bullets are stripped and hour lines discarded", func() {
			So(err, ShouldBeNil)
			So(out.TotalHoursBilled, ShouldEqual, 10)
			subjects := make([]string, len(out.LineItems))
			for i, it := range out.LineItems {
				subjects[i] = it.Subject
			}
			So(subjects, ShouldResemble, []string{"Planning session", "API work", "Deploy", "Retro", "Docs"})
			So(hours(out.LineItems), ShouldResemble, []float64{2, 2, 2, 2, 2})
		})
	})

	Convey("Given more than ten task lines", t, func() {
		var lines []string
		for i := 0; i < 14; i++ {
			lines = append(lines, fmt.Sprintf("task %d", i))
		}
		out, _ := HeuristicExtractor{}.Extract(ctx, FreeformRequest{Text: "7 h\n" + strings.Join(lines, "\n")})

		Convey("Then the subjects are capped and still reconciled", func() {
			So(len(out.LineItems), ShouldEqual, 10)
			So(math.Abs(Sum(out.LineItems)-7), ShouldBeLessThan, 1e-9)
		})
	})

	Convey("Given text with only an hours statement", t, func() {
		text := "4 hours on the quarterly infrastructure cost review for the platform team"
		out, _ := HeuristicExtractor{}.Extract(ctx, FreeformRequest{Text: text})

		Convey("Then one subject is synthesized from the text", func() {
			So(len(out.LineItems), ShouldEqual, 1)
			So(out.LineItems[0].Subject, ShouldEqual, text[:60]+"...")
			So(out.LineItems[0].EstimatedHours, ShouldEqual, 4)
		})
	})
}
