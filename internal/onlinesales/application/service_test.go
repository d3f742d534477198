package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	onlinesales "storeops-cloud/internal/onlinesales/domain"
	memory "storeops-cloud/internal/onlinesales/infrastructure/memory"
)

type capturingPublisher struct {
	events []any
}

func (p *capturingPublisher) Publish(ctx context.Context, event any) error {
	_ = ctx
	p.events = append(p.events, event)
	return nil
}

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

var reportDay = time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

func newLedgerService(t *testing.T) (*Service, *capturingPublisher) {
	t.Helper()
	publisher := &capturingPublisher{}
	svc, err := NewService(memory.NewReportRepository(), publisher)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc.WithClock(fixedClock{now: reportDay.Add(22 * time.Hour)}), publisher
}

func TestSubmitReport(t *testing.T) {
	svc, publisher := newLedgerService(t)

	report, err := svc.SubmitReport(context.Background(), SubmitReportCommand{
		LocationID: "loc-1",
		Date:       reportDay.Add(22 * time.Hour),
		TotalSales: decimal.RequireFromString("1240.00"),
		Payouts:    decimal.RequireFromString("310.00"),
		Commission: decimal.RequireFromString("62.00"),
		LoggedBy:   "clerk-1",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !report.Date.Equal(reportDay) {
		t.Fatalf("date not truncated to day: %s", report.Date)
	}
	if !report.NetDue.Equal(decimal.RequireFromString("868.00")) {
		t.Fatalf("net due %s", report.NetDue)
	}
	if len(publisher.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(publisher.events))
	}
	if _, ok := publisher.events[0].(ReportSubmitted); !ok {
		t.Fatalf("unexpected event %T", publisher.events[0])
	}
}

func TestSubmitReportSumsEntries(t *testing.T) {
	svc, _ := newLedgerService(t)

	report, err := svc.SubmitReport(context.Background(), SubmitReportCommand{
		LocationID: "loc-1",
		Date:       reportDay,
		Entries: []onlinesales.ReportEntry{
			{GameName: "Powerball", Amount: decimal.RequireFromString("600.00")},
			{GameName: "Mega Millions", Amount: decimal.RequireFromString("450.00"), Returns: decimal.RequireFromString("20.00")},
		},
		Payouts: decimal.RequireFromString("100.00"),
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !report.TotalSales.Equal(decimal.RequireFromString("1030.00")) {
		t.Fatalf("total sales %s", report.TotalSales)
	}
	if !report.NetDue.Equal(decimal.RequireFromString("930.00")) {
		t.Fatalf("net due %s", report.NetDue)
	}
}

func TestSubmitReportRejectsDuplicateDay(t *testing.T) {
	svc, _ := newLedgerService(t)
	ctx := context.Background()

	cmd := SubmitReportCommand{
		LocationID: "loc-1",
		Date:       reportDay,
		TotalSales: decimal.RequireFromString("100.00"),
	}
	if _, err := svc.SubmitReport(ctx, cmd); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	// A different time on the same day still collides.
	cmd.Date = reportDay.Add(9 * time.Hour)
	if _, err := svc.SubmitReport(ctx, cmd); !errors.Is(err, onlinesales.ErrDuplicateReport) {
		t.Fatalf("expected ErrDuplicateReport, got %v", err)
	}
	// The next day is a fresh row.
	cmd.Date = reportDay.AddDate(0, 0, 1)
	if _, err := svc.SubmitReport(ctx, cmd); err != nil {
		t.Fatalf("next day: %v", err)
	}
}

func TestVerifyIsIdempotent(t *testing.T) {
	svc, _ := newLedgerService(t)
	ctx := context.Background()

	report, err := svc.SubmitReport(ctx, SubmitReportCommand{
		LocationID: "loc-1",
		Date:       reportDay,
		TotalSales: decimal.RequireFromString("100.00"),
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	verified, err := svc.Verify(ctx, report.ID)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !verified.Verified {
		t.Fatal("report not verified")
	}
	again, err := svc.Verify(ctx, report.ID)
	if err != nil {
		t.Fatalf("second verify: %v", err)
	}
	if !again.Verified {
		t.Fatal("verification lost")
	}
	if _, err := svc.Verify(ctx, "osr-missing"); !errors.Is(err, onlinesales.ErrReportNotFound) {
		t.Fatalf("expected ErrReportNotFound, got %v", err)
	}
}

func TestMonthTotals(t *testing.T) {
	svc, _ := newLedgerService(t)
	ctx := context.Background()

	days := []struct {
		date  time.Time
		sales string
	}{
		{reportDay, "100.00"},
		{reportDay.AddDate(0, 0, 1), "250.00"},
		{reportDay.AddDate(0, 1, 0), "999.00"}, // next month, excluded
	}
	for _, day := range days {
		if _, err := svc.SubmitReport(ctx, SubmitReportCommand{
			LocationID: "loc-1",
			Date:       day.date,
			TotalSales: decimal.RequireFromString(day.sales),
			Payouts:    decimal.RequireFromString("10.00"),
			Commission: decimal.RequireFromString("5.00"),
		}); err != nil {
			t.Fatalf("submit %s: %v", day.date.Format("2006-01-02"), err)
		}
	}

	totals, err := svc.MonthTotals(ctx, "loc-1", reportDay)
	if err != nil {
		t.Fatalf("month totals: %v", err)
	}
	if totals.Month != "2026-03" || totals.Reports != 2 {
		t.Fatalf("unexpected totals: %+v", totals)
	}
	if !totals.TotalSales.Equal(decimal.RequireFromString("350.00")) {
		t.Fatalf("total sales %s", totals.TotalSales)
	}
	if !totals.NetDue.Equal(decimal.RequireFromString("320.00")) {
		t.Fatalf("net due %s", totals.NetDue)
	}
}
