package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	catalog "storeops-cloud/internal/catalog/domain"
	inventory "storeops-cloud/internal/inventory/domain"
	settlement "storeops-cloud/internal/settlement/domain"
	memory "storeops-cloud/internal/settlement/infrastructure/memory"
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

func (s *stubBookInventory) SettleBook(ctx context.Context, bookID string) (*inventory.Book, error) {
	_ = ctx
	_ = bookID
	if _, err := s.book.Settle(time.Now()); err != nil {
		return nil, err
	}
	return s.book, nil
}

type stubGameReader struct {
	game *catalog.Game
}

func (s *stubGameReader) Get(ctx context.Context, gameID string) (*catalog.Game, error) {
	_ = ctx
	if s.game == nil || s.game.ID != gameID {
		return nil, catalog.ErrGameNotFound
	}
	return s.game, nil
}

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

var settleNow = time.Date(2026, 3, 12, 21, 0, 0, 0, time.UTC)

func soldOutTestBook(t *testing.T) *inventory.Book {
	t.Helper()
	book, err := inventory.NewBook("book-1", "game-1", "Lucky 7s", "0042", "loc-1", 1, 100, settleNow)
	if err != nil {
		t.Fatalf("new book: %v", err)
	}
	if _, err := book.Activate("reg-1", settleNow); err != nil {
		t.Fatalf("activate: %v", err)
	}
	if _, err := book.MarkSoldOut(settleNow); err != nil {
		t.Fatalf("mark sold out: %v", err)
	}
	return book
}

func newSettlementService(t *testing.T, book *inventory.Book) (*Service, *capturingPublisher) {
	t.Helper()
	game := &catalog.Game{
		ID:             "game-1",
		GameNumber:     "1427",
		Name:           "Lucky 7s",
		TicketPrice:    decimal.RequireFromString("5.00"),
		TicketsPerBook: 100,
		CommissionRate: decimal.RequireFromString("0.05"),
		Status:         catalog.StatusActive,
	}
	publisher := &capturingPublisher{}
	svc, err := NewService(memory.NewSettlementRepository(), &stubBookInventory{book: book}, &stubGameReader{game: game}, publisher)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc.WithClock(fixedClock{now: settleNow}), publisher
}

func TestSettleBookComputesAmounts(t *testing.T) {
	book := soldOutTestBook(t)
	svc, publisher := newSettlementService(t, book)

	record, err := svc.SettleBook(context.Background(), SettleBookCommand{
		BookID:         "book-1",
		SettlementDate: settleNow,
	})
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if record.TicketsSold != 100 {
		t.Fatalf("tickets sold %d", record.TicketsSold)
	}
	if !record.GrossSales.Equal(decimal.RequireFromString("500.00")) {
		t.Fatalf("gross %s", record.GrossSales)
	}
	if !record.Commission.Equal(decimal.RequireFromString("25.00")) {
		t.Fatalf("commission %s", record.Commission)
	}
	if !record.NetDue.Equal(decimal.RequireFromString("475.00")) {
		t.Fatalf("net due %s", record.NetDue)
	}
	if !record.Commission.Add(record.NetDue).Equal(record.GrossSales) {
		t.Fatalf("amounts do not reconcile: %s + %s != %s", record.Commission, record.NetDue, record.GrossSales)
	}
	if record.Status != settlement.StatusPending {
		t.Fatalf("status %s", record.Status)
	}
	if book.Status != inventory.StatusSettled {
		t.Fatalf("book not settled: %s", book.Status)
	}
	if len(publisher.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(publisher.events))
	}
	created, ok := publisher.events[0].(SettlementCreated)
	if !ok || created.SettlementID != record.ID {
		t.Fatalf("unexpected event: %+v", publisher.events[0])
	}
}

func TestSettleBookPartiallySold(t *testing.T) {
	book, err := inventory.NewBook("book-1", "game-1", "Lucky 7s", "0042", "loc-1", 1, 100, settleNow)
	if err != nil {
		t.Fatalf("new book: %v", err)
	}
	if _, err := book.Activate("reg-1", settleNow); err != nil {
		t.Fatalf("activate: %v", err)
	}
	if err := book.AdvanceConsumption(61, settleNow); err != nil {
		t.Fatalf("advance: %v", err)
	}
	book.Status = inventory.StatusPendingSettlement
	svc, _ := newSettlementService(t, book)

	record, err := svc.SettleBook(context.Background(), SettleBookCommand{BookID: "book-1"})
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if record.TicketsSold != 60 {
		t.Fatalf("tickets sold %d", record.TicketsSold)
	}
	if !record.GrossSales.Equal(decimal.RequireFromString("300.00")) {
		t.Fatalf("gross %s", record.GrossSales)
	}
	if !record.NetDue.Equal(decimal.RequireFromString("285.00")) {
		t.Fatalf("net due %s", record.NetDue)
	}
}

func TestSettleBookRejectsSecondSettlement(t *testing.T) {
	book := soldOutTestBook(t)
	svc, _ := newSettlementService(t, book)
	ctx := context.Background()

	if _, err := svc.SettleBook(ctx, SettleBookCommand{BookID: "book-1"}); err != nil {
		t.Fatalf("first settle: %v", err)
	}

	// A settled book always reports the duplicate, not its status.
	if _, err := svc.SettleBook(ctx, SettleBookCommand{BookID: "book-1"}); !errors.Is(err, settlement.ErrDuplicateSettlement) {
		t.Fatalf("expected ErrDuplicateSettlement, got %v", err)
	}

	// Even if the book were pushed back to pending, the record check holds.
	book.Status = inventory.StatusPendingSettlement
	if _, err := svc.SettleBook(ctx, SettleBookCommand{BookID: "book-1"}); !errors.Is(err, settlement.ErrDuplicateSettlement) {
		t.Fatalf("expected ErrDuplicateSettlement, got %v", err)
	}

	records, err := svc.ListByLocation(ctx, "loc-1", settleNow.AddDate(0, 0, -1), settleNow.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected exactly one settlement record, got %d", len(records))
	}
}

func TestSettleBookRejectsActiveBook(t *testing.T) {
	book, err := inventory.NewBook("book-1", "game-1", "Lucky 7s", "0042", "loc-1", 1, 100, settleNow)
	if err != nil {
		t.Fatalf("new book: %v", err)
	}
	if _, err := book.Activate("reg-1", settleNow); err != nil {
		t.Fatalf("activate: %v", err)
	}
	svc, _ := newSettlementService(t, book)

	if _, err := svc.SettleBook(context.Background(), SettleBookCommand{BookID: "book-1"}); !errors.Is(err, settlement.ErrNotSettleable) {
		t.Fatalf("expected ErrNotSettleable, got %v", err)
	}
}

type missingGameReader struct{}

func (missingGameReader) Get(ctx context.Context, gameID string) (*catalog.Game, error) {
	_ = ctx
	_ = gameID
	return nil, nil
}

func TestSettleBookMissingGame(t *testing.T) {
	book := soldOutTestBook(t)
	svc, err := NewService(memory.NewSettlementRepository(), &stubBookInventory{book: book}, missingGameReader{}, &capturingPublisher{})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	svc = svc.WithClock(fixedClock{now: settleNow})

	if _, err := svc.SettleBook(context.Background(), SettleBookCommand{BookID: "book-1"}); !errors.Is(err, catalog.ErrGameNotFound) {
		t.Fatalf("expected ErrGameNotFound, got %v", err)
	}
}

func TestApprove(t *testing.T) {
	book := soldOutTestBook(t)
	svc, publisher := newSettlementService(t, book)
	ctx := context.Background()

	record, err := svc.SettleBook(ctx, SettleBookCommand{BookID: "book-1"})
	if err != nil {
		t.Fatalf("settle: %v", err)
	}

	approved, err := svc.Approve(ctx, record.ID, "manager-1")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.Status != settlement.StatusApproved || approved.ApprovedBy != "manager-1" {
		t.Fatalf("unexpected approval state: %+v", approved)
	}
	if _, err := svc.Approve(ctx, record.ID, "manager-2"); !errors.Is(err, settlement.ErrAlreadyApproved) {
		t.Fatalf("expected ErrAlreadyApproved, got %v", err)
	}
	if _, err := svc.Approve(ctx, "stl-missing", "manager-1"); !errors.Is(err, settlement.ErrSettlementNotFound) {
		t.Fatalf("expected ErrSettlementNotFound, got %v", err)
	}

	if len(publisher.events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(publisher.events))
	}
	if _, ok := publisher.events[1].(SettlementApproved); !ok {
		t.Fatalf("expected SettlementApproved, got %T", publisher.events[1])
	}
}

func TestSumTotals(t *testing.T) {
	records := []settlement.Settlement{
		{TicketsSold: 100, GrossSales: decimal.RequireFromString("500.00"), Commission: decimal.RequireFromString("25.00"), NetDue: decimal.RequireFromString("475.00")},
		{TicketsSold: 60, GrossSales: decimal.RequireFromString("300.00"), Commission: decimal.RequireFromString("15.00"), NetDue: decimal.RequireFromString("285.00")},
	}
	totals := SumTotals(records)
	if totals.TicketsSold != 160 {
		t.Fatalf("tickets %d", totals.TicketsSold)
	}
	if !totals.GrossSales.Equal(decimal.RequireFromString("800.00")) {
		t.Fatalf("gross %s", totals.GrossSales)
	}
	if !totals.NetDue.Equal(decimal.RequireFromString("760.00")) {
		t.Fatalf("net %s", totals.NetDue)
	}
}
