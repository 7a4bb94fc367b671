package billing

import (
	"testing"
	"time"

	"github.com/okian/invoy/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

const consultant = "me@consult.io"

func event(title, status string, minutes int, emails ...string) model.Event {
	start := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)
	var attendees []model.Attendee
	for _, e := range emails {
		attendees = append(attendees, model.Attendee{Email: e})
	}
	ev, err := model.NewEvent("id-"+title, title, "", start, start.Add(time.Duration(minutes)*time.Minute), status, attendees)
	if err != nil {
		panic(err)
	}
	return ev
}

func TestIsBillable(t *testing.T) {
	rules := model.BillingRule{ExcludeKeywordsInTitle: []string{"Lunch", "personal", " "}, MinDurationMinutes: 15}

	Convey("Given the billing rules", t, func() {
		Convey("When an event satisfies every rule", func() {
			e := event("Design review", "confirmed", 60, consultant, "ana@client.io")

			Convey("Then it is billable", func() {
				So(IsBillable(e, rules, consultant), ShouldBeTrue)
				So(Explain(e, rules, consultant), ShouldResemble, Verdict{Billable: true})
			})
		})

		Convey("When a single rule fails", func() {
			cases := []struct {
				name string
				ev   model.Event
				rule string
			}{
				{"keyword is case-insensitive", event("Team LUNCH", "confirmed", 60, "ana@client.io"), RuleKeyword},
				{"tentative status", event("Sync", "tentative", 60, "ana@client.io"), RuleStatus},
				{"below minimum duration", event("Sync", "confirmed", 14, "ana@client.io"), RuleDuration},
				{"consultant only, any case", event("Sync", "confirmed", 60, "ME@Consult.io"), RuleCounterparty},
				{"no attendees", event("Sync", "confirmed", 60), RuleCounterparty},
			}

			Convey("Then the event is excluded regardless of other fields", func() {
				for _, c := range cases {
					v := Explain(c.ev, rules, consultant)
					So(v.Billable, ShouldBeFalse)
					So(v.Rule, ShouldEqual, c.rule)
					So(IsBillable(c.ev, rules, consultant), ShouldBeFalse)
				}
			})
		})

		Convey("When the duration equals the minimum exactly", func() {
			Convey("Then it is billable", func() {
				So(IsBillable(event("Sync", "confirmed", 15, "ana@client.io"), rules, consultant), ShouldBeTrue)
			})
		})

		Convey("When called twice with identical inputs", func() {
			e := event("Sync", "confirmed", 30, consultant, "ana@client.io")

			Convey("Then the answer is identical", func() {
				So(IsBillable(e, rules, consultant), ShouldEqual, IsBillable(e, rules, consultant))
			})
		})
	})
}

func TestFilter(t *testing.T) {
	Convey("Given a mixed batch", t, func() {
		rules := model.BillingRule{ExcludeKeywordsInTitle: []string{"lunch"}, MinDurationMinutes: 15}
		events := []model.Event{
			event("A", "confirmed", 60, "ana@client.io"),
			event("Lunch", "confirmed", 60, "ana@client.io"),
			event("B", "cancelled", 60, "ana@client.io"),
			event("C", "confirmed", 30, consultant, "bo@client.io"),
		}

		billable, stats := Filter(events, rules, consultant)

		Convey("Then billable events keep their order", func() {
			So(len(billable), ShouldEqual, 2)
			So(billable[0].Title, ShouldEqual, "A")
			So(billable[1].Title, ShouldEqual, "C")
		})

		Convey("Then exclusions are counted per rule", func() {
			So(stats.Total, ShouldEqual, 4)
			So(stats.Billable, ShouldEqual, 2)
			So(stats.Excluded[RuleKeyword], ShouldEqual, 1)
			So(stats.Excluded[RuleStatus], ShouldEqual, 1)
		})
	})
}
