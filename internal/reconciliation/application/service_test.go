package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	catalog "storeops-cloud/internal/catalog/domain"
	inventory "storeops-cloud/internal/inventory/domain"
	reconciliation "storeops-cloud/internal/reconciliation/domain"
	memory "storeops-cloud/internal/reconciliation/infrastructure/memory"
)

type stubBookInventory struct {
	book *inventory.Book
}

func (s *stubBookInventory) GetBook(ctx context.Context, bookID string) (*inventory.Book, error) {
	_ = ctx
	if s.book == nil || s.book.ID != bookID {
		return nil, inventory.ErrBookNotFound
	}
	return s.book, nil
}

func (s *stubBookInventory) AdvanceConsumption(ctx context.Context, bookID string, newCurrent int) (*inventory.Book, error) {
	_ = ctx
	_ = bookID
	if err := s.book.AdvanceConsumption(newCurrent, time.Now()); err != nil {
		return nil, err
	}
	return s.book, nil
}

func (s *stubBookInventory) MarkSoldOut(ctx context.Context, bookID string) (*inventory.Book, error) {
	_ = ctx
	_ = bookID
	if _, err := s.book.MarkSoldOut(time.Now()); err != nil {
		return nil, err
	}
	return s.book, nil
}

type stubGameReader struct {
	game *catalog.Game
}

func (s *stubGameReader) GetGame(ctx context.Context, id string) (*catalog.Game, error) {
	_ = ctx
	if s.game == nil || s.game.ID != id {
		return nil, nil
	}
	return s.game, nil
}

type capturingNotifier struct {
	alerts []CountAlert
}

func (n *capturingNotifier) Notify(ctx context.Context, alert CountAlert) {
	_ = ctx
	n.alerts = append(n.alerts, alert)
}

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

var countDate = time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

func activeTestBook(t *testing.T) *inventory.Book {
	t.Helper()
	book, err := inventory.NewBook("book-1", "game-1", "Lucky 7s", "0042", "loc-1", 1, 100, countDate)
	if err != nil {
		t.Fatalf("new book: %v", err)
	}
	if _, err := book.Activate("reg-1", countDate); err != nil {
		t.Fatalf("activate: %v", err)
	}
	return book
}

func newCountService(t *testing.T, book *inventory.Book) (*Service, *memory.CountRepository, *capturingNotifier) {
	t.Helper()
	counts := memory.NewCountRepository()
	notifier := &capturingNotifier{}
	game := &catalog.Game{
		ID:             "game-1",
		GameNumber:     "1427",
		Name:           "Lucky 7s",
		TicketPrice:    decimal.RequireFromString("5.00"),
		TicketsPerBook: 100,
		CommissionRate: decimal.RequireFromString("0.05"),
		Status:         catalog.StatusActive,
	}
	svc, err := NewService(counts, &stubBookInventory{book: book}, &stubGameReader{game: game}, nil,
		WithNotifier(notifier),
		WithClock(fixedClock{now: countDate.Add(18 * time.Hour)}),
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, counts, notifier
}

func TestRecordCountAdvancesPointer(t *testing.T) {
	book := activeTestBook(t)
	svc, _, notifier := newCountService(t, book)

	result, err := svc.RecordDailyCount(context.Background(), RecordCountCommand{
		BookID:            "book-1",
		Date:              countDate,
		PhysicalRemaining: 40,
		LoggedBy:          "clerk-1",
	})
	if err != nil {
		t.Fatalf("record count: %v", err)
	}
	if result.Count.ExpectedRemaining != 100 || result.Count.Variance != -60 {
		t.Fatalf("expected=%d variance=%d", result.Count.ExpectedRemaining, result.Count.Variance)
	}
	if !result.Count.VarianceAmount.Equal(decimal.RequireFromString("-300.00")) {
		t.Fatalf("variance amount %s", result.Count.VarianceAmount)
	}
	if !result.PointerAdvanced || book.CurrentTicket != 61 {
		t.Fatalf("pointer not advanced to 61: %d", book.CurrentTicket)
	}
	if result.Flagged || len(notifier.alerts) != 0 {
		t.Fatalf("normal sales count should not flag")
	}
}

func TestRecordCountZeroRemainingMarksSoldOut(t *testing.T) {
	book := activeTestBook(t)
	svc, _, _ := newCountService(t, book)

	result, err := svc.RecordDailyCount(context.Background(), RecordCountCommand{
		BookID:            "book-1",
		Date:              countDate,
		PhysicalRemaining: 0,
		LoggedBy:          "clerk-1",
	})
	if err != nil {
		t.Fatalf("record count: %v", err)
	}
	if !result.SoldOut {
		t.Fatal("expected sold-out result")
	}
	if book.Status != inventory.StatusPendingSettlement || book.CurrentTicket != 101 {
		t.Fatalf("unexpected book state: %s pointer %d", book.Status, book.CurrentTicket)
	}
}

func TestRecordCountRegressiveIsFlaggedNotApplied(t *testing.T) {
	book := activeTestBook(t)
	svc, counts, notifier := newCountService(t, book)
	ctx := context.Background()

	if _, err := svc.RecordDailyCount(ctx, RecordCountCommand{
		BookID: "book-1", Date: countDate, PhysicalRemaining: 40, LoggedBy: "clerk-1",
	}); err != nil {
		t.Fatalf("first count: %v", err)
	}

	// 50 remaining against a pointer expecting 40 implies the pointer moving
	// backwards. The count is kept for audit, the pointer is not.
	result, err := svc.RecordDailyCount(ctx, RecordCountCommand{
		BookID:            "book-1",
		Date:              countDate.AddDate(0, 0, 1),
		PhysicalRemaining: 50,
		ReasonCode:        "recount",
		LoggedBy:          "clerk-2",
	})
	if err != nil {
		t.Fatalf("regressive count: %v", err)
	}
	if !result.Flagged || result.PointerAdvanced {
		t.Fatalf("expected flagged, unapplied count: %+v", result)
	}
	if book.CurrentTicket != 61 {
		t.Fatalf("pointer moved on regressive count: %d", book.CurrentTicket)
	}
	if result.Count.Variance != 10 {
		t.Fatalf("variance %d", result.Count.Variance)
	}

	trail, err := counts.ListByBook(ctx, "book-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(trail) != 2 {
		t.Fatalf("expected 2 persisted counts, got %d", len(trail))
	}
	if len(notifier.alerts) != 1 || !notifier.alerts[0].Regressive {
		t.Fatalf("expected one regressive alert, got %+v", notifier.alerts)
	}

	flagged, err := counts.ListFlagged(ctx, "loc-1")
	if err != nil {
		t.Fatalf("list flagged: %v", err)
	}
	if len(flagged) != 1 {
		t.Fatalf("expected 1 flagged count, got %d", len(flagged))
	}
}

func TestRecordCountPositiveVarianceNeedsReason(t *testing.T) {
	book := activeTestBook(t)
	svc, counts, _ := newCountService(t, book)
	ctx := context.Background()

	if _, err := svc.RecordDailyCount(ctx, RecordCountCommand{
		BookID: "book-1", Date: countDate, PhysicalRemaining: 40, LoggedBy: "clerk-1",
	}); err != nil {
		t.Fatalf("first count: %v", err)
	}

	_, err := svc.RecordDailyCount(ctx, RecordCountCommand{
		BookID:            "book-1",
		Date:              countDate.AddDate(0, 0, 1),
		PhysicalRemaining: 45,
		LoggedBy:          "clerk-2",
	})
	if !errors.Is(err, reconciliation.ErrReasonRequired) {
		t.Fatalf("expected ErrReasonRequired, got %v", err)
	}

	trail, err := counts.ListByBook(ctx, "book-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(trail) != 1 {
		t.Fatalf("rejected count was persisted: %d records", len(trail))
	}
}

func TestRecordCountValidation(t *testing.T) {
	book := activeTestBook(t)
	svc, _, _ := newCountService(t, book)
	ctx := context.Background()

	if _, err := svc.RecordDailyCount(ctx, RecordCountCommand{
		BookID: "book-1", PhysicalRemaining: 40,
	}); !errors.Is(err, reconciliation.ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
	if _, err := svc.RecordDailyCount(ctx, RecordCountCommand{
		BookID: "book-1", Date: countDate, PhysicalRemaining: -1,
	}); !errors.Is(err, reconciliation.ErrNegativeRemaining) {
		t.Fatalf("expected ErrNegativeRemaining, got %v", err)
	}
	if _, err := svc.RecordDailyCount(ctx, RecordCountCommand{
		BookID: "book-1", Date: countDate, PhysicalRemaining: 150,
	}); !errors.Is(err, reconciliation.ErrImpossibleCount) {
		t.Fatalf("expected ErrImpossibleCount, got %v", err)
	}
}

func TestRecordCountRejectsInactiveBook(t *testing.T) {
	book, err := inventory.NewBook("book-1", "game-1", "Lucky 7s", "0042", "loc-1", 1, 100, countDate)
	if err != nil {
		t.Fatalf("new book: %v", err)
	}
	svc, _, _ := newCountService(t, book)

	_, err = svc.RecordDailyCount(context.Background(), RecordCountCommand{
		BookID: "book-1", Date: countDate, PhysicalRemaining: 40,
	})
	if !errors.Is(err, inventory.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState for in_stock book, got %v", err)
	}
}
