package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/okian/invoy/internal/adapters/delivery"
	service "github.com/okian/invoy/internal/app"
	"github.com/okian/invoy/internal/domain/invoice"
	"github.com/okian/invoy/internal/domain/model"
	"github.com/okian/invoy/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

const calendarExport = `Calendar export - Billing Period: 2025-03-01 to 2025-03-31
Timezone: UTC
Event:
  id: e1
  title: Design session
  description: Agenda: data model
  start: 2025-03-03T09:00:00Z
  end: 2025-03-03T10:30:00Z
  attendees:
    - name: Ana
      email: ana@acme.com
    - email: me@consult.io
Event:
  id: e2
  title: Lunch with Ana
  start: 2025-03-04T12:00:00Z
  end: 2025-03-04T13:00:00Z
  attendees:
    - email: ana@acme.com
Event:
  id: e3
  title: Code review
  start: 2025-03-05T14:00:00Z
  end: 2025-03-05T15:00:00Z
  attendees:
    - name: Bo
      email: bo@globex.com
Event:
  id: e4
  title: Solo focus
  start: 2025-03-06T09:00:00Z
  end: 2025-03-06T11:00:00Z
  attendees:
    - email: me@consult.io
Event:
  id: e5
  title: Follow-up
  start: 2025-03-10T09:00:00Z
  end: 2025-03-10T09:30:00Z
  attendees:
    - email: ana@acme.com
Event:
  id: e6
  title: Broken
  start: soon
  end: 2025-03-10T09:30:00Z
`

type recordingDispatcher struct {
	mu   sync.Mutex
	sent []delivery.Message
}

func (d *recordingDispatcher) Send(_ context.Context, msg delivery.Message) delivery.Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sent = append(d.sent, msg)
	return delivery.Status{State: delivery.StateOK, ID: "em_1", Recipient: msg.Recipient}
}

func testProfile() model.ConsultantProfile {
	return model.ConsultantProfile{
		Name:       "Dana",
		Email:      "me@consult.io",
		HourlyRate: decimal.NewFromInt(100),
		Currency:   "USD",
		TaxRate:    decimal.RequireFromString("0.1"),
		Timezone:   "UTC",
	}
}

func newService(opts ...service.Option) *service.Service {
	base := []service.Option{
		service.WithLogger(logger.Nop()),
		service.WithProfile(testProfile()),
		service.WithRules(model.BillingRule{ExcludeKeywordsInTitle: []string{"lunch"}, MinDurationMinutes: 15}),
		service.WithWorkerCount(2),
		service.WithQueueSize(8),
		service.WithClock(func() time.Time { return time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC) }),
	}
	return service.New(append(base, opts...)...)
}

func hours(h float64) *float64 { return &h }

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a service without a consultant profile", t, func() {
		svc := service.New(service.WithLogger(logger.Nop()))

		Convey("Then it refuses to start", func() {
			So(errors.Is(svc.Start(context.Background()), invoice.ErrValidation), ShouldBeTrue)
		})

		Convey("Then rendering operations report not started", func() {
			_, err := svc.Finalize(context.Background(), service.FinalizeRequest{Client: "Acme"})
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
		})
	})

	Convey("Given a configured service", t, func() {
		svc := newService()

		Convey("When it is started twice and stopped", func() {
			So(svc.Start(context.Background()), ShouldBeNil)
			So(svc.Start(context.Background()), ShouldBeNil)
			stats := svc.GetStats()
			svc.Stop()

			Convey("Then stats reflect the running state", func() {
				So(stats["started"], ShouldEqual, true)
				So(stats["workerCount"], ShouldEqual, 2)
				So(stats["queueLength"], ShouldEqual, 0)
				So(svc.GetStats()["started"], ShouldEqual, false)
			})
		})
	})
}

func TestService_Allocation(t *testing.T) {
	ctx := context.Background()

	Convey("Given a service", t, func() {
		svc := newService()

		Convey("When hours are allocated across subjects", func() {
			a, err := svc.Allocate(ctx, service.AllocateRequest{
				Client: "Acme", TotalHours: 10, Subjects: []string{"Build the API layer", "Docs"},
			})

			Convey("Then the items sum to the total", func() {
				So(err, ShouldBeNil)
				So(a.Source, ShouldEqual, model.SourceStructured)
				So(a.LineItems[0].EstimatedHours+a.LineItems[1].EstimatedHours, ShouldAlmostEqual, 10.0, 1e-9)
				So(a.BillingPeriod, ShouldEqual, "Monthly")
			})
		})

		Convey("When subjects arrive under the work_subjects name", func() {
			var req service.AllocateRequest
			So(json.Unmarshal([]byte(`{"client":"Acme","total_hours":3,"work_subjects":["API","Docs"]}`), &req), ShouldBeNil)
			a, err := svc.Allocate(ctx, req)

			Convey("Then they are allocated like subjects", func() {
				So(err, ShouldBeNil)
				So(a.LineItems, ShouldHaveLength, 2)
				So(a.LineItems[0].Subject, ShouldEqual, "API")
				So(a.LineItems[1].Subject, ShouldEqual, "Docs")
			})
		})

		Convey("When both subject fields are set", func() {
			a, err := svc.Allocate(ctx, service.AllocateRequest{
				Client: "Acme", TotalHours: 2, Subjects: []string{"Build"}, WorkSubjects: []string{"Ignored", "Also"},
			})

			Convey("Then subjects wins", func() {
				So(err, ShouldBeNil)
				So(a.LineItems, ShouldHaveLength, 1)
				So(a.LineItems[0].Subject, ShouldEqual, "Build")
			})
		})

		Convey("When the request is invalid", func() {
			_, errClient := svc.Allocate(ctx, service.AllocateRequest{TotalHours: 1, Subjects: []string{"x"}})
			_, errHours := svc.Allocate(ctx, service.AllocateRequest{Client: "Acme", TotalHours: -1})
			_, errText := svc.Extract(ctx, service.ExtractRequest{Text: "  "})

			Convey("Then ErrInvalidRequest is returned", func() {
				So(errors.Is(errClient, service.ErrInvalidRequest), ShouldBeTrue)
				So(errors.Is(errHours, service.ErrInvalidRequest), ShouldBeTrue)
				So(errors.Is(errText, service.ErrInvalidRequest), ShouldBeTrue)
			})
		})

		Convey("When notes are extracted without a live provider", func() {
			a, err := svc.Extract(ctx, service.ExtractRequest{
				Text:          "Spent 6 hours this week\n- API design\n- Code review",
				DefaultClient: "Acme",
			})

			Convey("Then the heuristic answers with an exact split", func() {
				So(err, ShouldBeNil)
				So(a.Source, ShouldEqual, model.SourceHeuristic)
				So(a.ClientName, ShouldEqual, "Acme")
				So(a.TotalHoursBilled, ShouldEqual, 6.0)
				So(a.LineItems, ShouldHaveLength, 2)
				So(a.LineItems[0].EstimatedHours+a.LineItems[1].EstimatedHours, ShouldAlmostEqual, 6.0, 1e-9)
			})
		})

		Convey("When audio is transcribed without a backend", func() {
			Convey("Then a placeholder is returned", func() {
				So(svc.Transcribe(ctx, []byte("abc")), ShouldContainSubstring, "received 3 bytes")
			})
		})
	})
}

func TestService_FinalizeAndSend(t *testing.T) {
	ctx := context.Background()

	Convey("Given a started service with a mail backend", t, func() {
		mail := &recordingDispatcher{}
		svc := newService(service.WithDispatcher(mail))
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		res, err := svc.Finalize(ctx, service.FinalizeRequest{
			Client: "Acme",
			LineItems: []invoice.Draft{
				{Subject: "API design", EstimatedHours: hours(1.5)},
				{Subject: "Review", Hours: hours(0.5)},
			},
		})
		So(err, ShouldBeNil)

		Convey("Then the result describes the stored invoice", func() {
			So(res.Status, ShouldEqual, "ok")
			So(res.InvoiceID, ShouldEqual, "AI-Acme")
			So(res.Path, ShouldEqual, "/invoices/AI-Acme.html")
			So(res.TotalHours, ShouldEqual, 2.0)
			So(res.TotalCost.StringFixed(2), ShouldEqual, "220.00")
			So(res.BillingPeriod, ShouldEqual, "Monthly")
		})

		Convey("Then without a converter the result is degraded to HTML", func() {
			So(res.Degraded, ShouldBeTrue)
			So(res.PDFPath, ShouldEqual, res.Path)
			_, err := svc.Artifact(ctx, "AI-Acme.pdf")
			So(errors.Is(err, service.ErrNotFound), ShouldBeTrue)
		})

		Convey("Then the artifacts can be downloaded", func() {
			html, err := svc.Artifact(ctx, "AI-Acme.html")
			So(err, ShouldBeNil)
			So(string(html), ShouldContainSubstring, "API design")

			inv, err := svc.Invoice(ctx, "AI-Acme")
			So(err, ShouldBeNil)
			So(inv.Status, ShouldEqual, model.StatusAssembled)
			So(inv.Consultant.Email, ShouldEqual, "me@consult.io")
		})

		Convey("Then unsafe artifact names are rejected", func() {
			for _, name := range []string{"../secret.html", "a/b.html", "AI-Acme.exe", ".html"} {
				_, err := svc.Artifact(ctx, name)
				So(errors.Is(err, service.ErrNotFound), ShouldBeTrue)
			}
		})

		Convey("When the invoice is sent without a recipient", func() {
			st := svc.Send(ctx, service.SendRequest{InvoiceID: "AI-Acme"})

			Convey("Then delivery fails softly", func() {
				So(st.State, ShouldEqual, delivery.StateError)
				So(mail.sent, ShouldBeEmpty)
			})
		})

		Convey("When the invoice is sent to a recipient", func() {
			st := svc.Send(ctx, service.SendRequest{InvoiceID: "AI-Acme", Recipient: "ap@acme.com"})

			Convey("Then the HTML copy is attached and the invoice is delivered", func() {
				So(st.State, ShouldEqual, delivery.StateOK)
				So(mail.sent, ShouldHaveLength, 1)
				So(mail.sent[0].AttachmentName, ShouldEqual, "AI-Acme.html")
				inv, err := svc.Invoice(ctx, "AI-Acme")
				So(err, ShouldBeNil)
				So(inv.Status, ShouldEqual, model.StatusDelivered)
			})
		})

		Convey("When an unknown invoice is sent", func() {
			st := svc.Send(ctx, service.SendRequest{InvoiceID: "AI-Nobody", Recipient: "x@y.z"})

			Convey("Then the status names the missing invoice", func() {
				So(st.State, ShouldEqual, delivery.StateError)
				So(st.Message, ShouldContainSubstring, "not found")
			})
		})
	})
}

func TestService_GenerateFromCalendar(t *testing.T) {
	ctx := context.Background()

	Convey("Given a started service", t, func() {
		svc := newService()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("When a text export is processed", func() {
			res, err := svc.GenerateFromCalendar(ctx, service.CalendarRequest{Format: "text", Data: []byte(calendarExport)})
			So(err, ShouldBeNil)

			Convey("Then parsing and filtering are reported", func() {
				So(res.Parsed, ShouldEqual, 5)
				So(res.Dropped, ShouldHaveLength, 1)
				So(res.Billing.Billable, ShouldEqual, 3)
				So(res.Billing.Excluded["excluded_keyword"], ShouldEqual, 1)
				So(res.Billing.Excluded["no_counterparty"], ShouldEqual, 1)
				So(res.Period.Label, ShouldEqual, "2025-03-01 to 2025-03-31")
			})

			Convey("Then one invoice per client is produced in first-seen order", func() {
				So(res.Invoices, ShouldHaveLength, 2)
				So(res.Failed(), ShouldEqual, 0)

				acme := res.Invoices[0]
				So(acme.InvoiceID, ShouldEqual, "INV-ana_acme-com-202503")
				So(acme.Client.Name, ShouldEqual, "Ana")
				So(acme.Sessions, ShouldEqual, 2)
				So(acme.TotalHours, ShouldEqual, 2.0)
				So(acme.TotalDue.StringFixed(2), ShouldEqual, "220.00")

				So(res.Invoices[1].InvoiceID, ShouldEqual, "INV-bo_globex-com-202503")
			})

			Convey("Then each invoice is stored", func() {
				html, err := svc.Artifact(ctx, "INV-ana_acme-com-202503.html")
				So(err, ShouldBeNil)
				So(strings.Contains(string(html), "data model"), ShouldBeTrue)
			})
		})

		Convey("When the format is unknown", func() {
			_, err := svc.GenerateFromCalendar(ctx, service.CalendarRequest{Format: "csv"})

			Convey("Then ErrUnknownFormat is returned", func() {
				So(errors.Is(err, service.ErrUnknownFormat), ShouldBeTrue)
				So(service.IsClientError(err), ShouldBeTrue)
			})
		})

		Convey("When JSON input is not an array", func() {
			_, err := svc.GenerateFromCalendar(ctx, service.CalendarRequest{Format: "json", Data: []byte(`{"id":1}`)})

			Convey("Then the request is rejected", func() {
				So(errors.Is(err, service.ErrInvalidRequest), ShouldBeTrue)
			})
		})
	})
}
