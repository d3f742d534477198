package inventory

import (
	"errors"
	"testing"
	"time"
)

var testNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func newTestBook(t *testing.T) *Book {
	t.Helper()
	book, err := NewBook("book-1", "game-1", "Lucky 7s", "0042", "loc-1", 1, 100, testNow)
	if err != nil {
		t.Fatalf("new book: %v", err)
	}
	return book
}

func TestNewBookValidation(t *testing.T) {
	if _, err := NewBook("book-1", "game-1", "Lucky 7s", "0042", "", 1, 100, testNow); !errors.Is(err, ErrLocationRequired) {
		t.Fatalf("expected ErrLocationRequired, got %v", err)
	}
	if _, err := NewBook("book-1", "game-1", "Lucky 7s", "0042", "loc-1", 101, 100, testNow); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}
	if _, err := NewBook("book-1", "game-1", "Lucky 7s", "0042", "loc-1", -1, 100, testNow); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange for negative start, got %v", err)
	}

	book := newTestBook(t)
	if book.Status != StatusInStock {
		t.Fatalf("expected in_stock, got %s", book.Status)
	}
	if book.CurrentTicket != 1 {
		t.Fatalf("expected pointer at start, got %d", book.CurrentTicket)
	}
	if book.TotalTickets() != 100 {
		t.Fatalf("expected 100 tickets, got %d", book.TotalTickets())
	}
}

func TestActivateOnlyFromInStock(t *testing.T) {
	book := newTestBook(t)
	event, err := book.Activate("reg-2", testNow)
	if err != nil {
		t.Fatalf("activate: %v", err)
	}
	if book.Status != StatusActive || book.AssignedRegister != "reg-2" {
		t.Fatalf("unexpected state after activate: %s register %s", book.Status, book.AssignedRegister)
	}
	if event.BookID != "book-1" || event.Register != "reg-2" {
		t.Fatalf("unexpected event: %+v", event)
	}
	if _, err := book.Activate("reg-3", testNow); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState on second activate, got %v", err)
	}
}

func TestAdvanceConsumption(t *testing.T) {
	book := newTestBook(t)
	if err := book.AdvanceConsumption(10, testNow); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState before activation, got %v", err)
	}
	if _, err := book.Activate("reg-1", testNow); err != nil {
		t.Fatalf("activate: %v", err)
	}

	if err := book.AdvanceConsumption(61, testNow); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if book.TicketsSold() != 60 || book.ExpectedRemaining() != 40 {
		t.Fatalf("sold=%d remaining=%d", book.TicketsSold(), book.ExpectedRemaining())
	}

	err := book.AdvanceConsumption(50, testNow)
	if !errors.Is(err, ErrRegression) {
		t.Fatalf("expected ErrRegression, got %v", err)
	}
	if book.CurrentTicket != 61 {
		t.Fatalf("pointer moved on rejected regression: %d", book.CurrentTicket)
	}

	if err := book.AdvanceConsumption(102, testNow); !errors.Is(err, ErrRangeExceeded) {
		t.Fatalf("expected ErrRangeExceeded, got %v", err)
	}

	// TicketEnd+1 means fully sold and is allowed.
	if err := book.AdvanceConsumption(101, testNow); err != nil {
		t.Fatalf("advance to end+1: %v", err)
	}
	if book.ExpectedRemaining() != 0 {
		t.Fatalf("expected 0 remaining, got %d", book.ExpectedRemaining())
	}
}

func TestMarkSoldOutForcesPointer(t *testing.T) {
	book := newTestBook(t)
	if _, err := book.Activate("reg-1", testNow); err != nil {
		t.Fatalf("activate: %v", err)
	}
	if err := book.AdvanceConsumption(61, testNow); err != nil {
		t.Fatalf("advance: %v", err)
	}

	event, err := book.MarkSoldOut(testNow)
	if err != nil {
		t.Fatalf("mark sold out: %v", err)
	}
	if book.Status != StatusPendingSettlement {
		t.Fatalf("expected pending_settlement, got %s", book.Status)
	}
	if book.CurrentTicket != 101 {
		t.Fatalf("pointer not forced to end+1: %d", book.CurrentTicket)
	}
	if event.BookNumber != "0042" {
		t.Fatalf("unexpected event: %+v", event)
	}

	if _, err := book.MarkSoldOut(testNow); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState on second mark, got %v", err)
	}
}

func TestSettleAndArchive(t *testing.T) {
	book := newTestBook(t)
	if _, err := book.Settle(testNow); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState settling in_stock book, got %v", err)
	}
	if _, err := book.Activate("reg-1", testNow); err != nil {
		t.Fatalf("activate: %v", err)
	}
	if _, err := book.MarkSoldOut(testNow); err != nil {
		t.Fatalf("mark sold out: %v", err)
	}

	if _, err := book.Settle(testNow); err != nil {
		t.Fatalf("settle: %v", err)
	}
	if book.Status != StatusSettled || book.SettledDate.IsZero() {
		t.Fatalf("unexpected state after settle: %s", book.Status)
	}

	if _, err := book.Archive(testNow); err != nil {
		t.Fatalf("archive: %v", err)
	}
	if book.Status != StatusArchived {
		t.Fatalf("expected archived, got %s", book.Status)
	}
	if book.IsLive() {
		t.Fatal("archived book reported live")
	}

	if _, err := book.Settle(testNow); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState settling archived book, got %v", err)
	}
}

func TestSettleAcceptsSoldOutAlias(t *testing.T) {
	book := newTestBook(t)
	if _, err := book.Activate("reg-1", testNow); err != nil {
		t.Fatalf("activate: %v", err)
	}
	if _, err := book.MarkSoldOut(testNow); err != nil {
		t.Fatalf("mark sold out: %v", err)
	}
	// Rows persisted before the status rename still carry sold_out.
	book.Status = StatusSoldOut
	if _, err := book.Settle(testNow); err != nil {
		t.Fatalf("settle sold_out book: %v", err)
	}
}
