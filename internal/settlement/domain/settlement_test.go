package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestComputeAmountsReconcilesToTheCent(t *testing.T) {
	cases := []struct {
		name        string
		ticketsSold int
		price       string
		rate        string
		gross       string
		commission  string
		net         string
	}{
		{"full book", 100, "5.00", "0.05", "500.00", "25.00", "475.00"},
		{"partial book", 60, "5.00", "0.05", "300.00", "15.00", "285.00"},
		{"awkward rounding", 3, "2.99", "0.07", "8.97", "0.63", "8.34"},
		{"nothing sold", 0, "10.00", "0.06", "0.00", "0.00", "0.00"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gross, commission, net := ComputeAmounts(tc.ticketsSold,
				decimal.RequireFromString(tc.price), decimal.RequireFromString(tc.rate))
			if !gross.Equal(decimal.RequireFromString(tc.gross)) {
				t.Fatalf("gross %s, want %s", gross, tc.gross)
			}
			if !commission.Equal(decimal.RequireFromString(tc.commission)) {
				t.Fatalf("commission %s, want %s", commission, tc.commission)
			}
			if !net.Equal(decimal.RequireFromString(tc.net)) {
				t.Fatalf("net %s, want %s", net, tc.net)
			}
			if !commission.Add(net).Equal(gross) {
				t.Fatalf("%s + %s != %s", commission, net, gross)
			}
		})
	}
}

func TestValidateRejectsUnreconciledAmounts(t *testing.T) {
	record := &Settlement{
		ID:           "stl-1",
		BookID:       "book-1",
		LocationID:   "loc-1",
		TotalTickets: 100,
		TicketsSold:  100,
		GrossSales:   decimal.RequireFromString("500.00"),
		Commission:   decimal.RequireFromString("25.00"),
		NetDue:       decimal.RequireFromString("474.99"),
	}
	if err := record.Validate(); err == nil {
		t.Fatal("expected reconcile error")
	}
	record.NetDue = decimal.RequireFromString("475.00")
	if err := record.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestApproveIsOneShot(t *testing.T) {
	at := time.Date(2026, 3, 12, 21, 0, 0, 0, time.UTC)
	record := &Settlement{ID: "stl-1", Status: StatusPending}
	if err := record.Approve("manager-1", at); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if record.Status != StatusApproved || record.ApprovedBy != "manager-1" || !record.ApprovedAt.Equal(at) {
		t.Fatalf("unexpected state: %+v", record)
	}
	if err := record.Approve("manager-2", at); err != ErrAlreadyApproved {
		t.Fatalf("expected ErrAlreadyApproved, got %v", err)
	}
}
