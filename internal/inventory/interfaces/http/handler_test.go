package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	catalog "storeops-cloud/internal/catalog/domain"
	inventoryapp "storeops-cloud/internal/inventory/application"
	inventory "storeops-cloud/internal/inventory/domain"
	memory "storeops-cloud/internal/inventory/infrastructure/memory"
)

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

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	games := &stubGameReader{game: &catalog.Game{
		ID:             "game-1",
		GameNumber:     "1427",
		Name:           "Lucky 7s",
		TicketPrice:    decimal.RequireFromString("5.00"),
		TicketsPerBook: 100,
		CommissionRate: decimal.RequireFromString("0.05"),
		Status:         catalog.StatusActive,
	}}
	svc, err := inventoryapp.NewService(memory.NewBookRepository(), games, nil,
		fixedClock{now: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	handler, err := NewHandler(svc, nil, nil)
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}
	return handler
}

func receiveBook(t *testing.T, handler *Handler, bookNumber string) inventory.Book {
	t.Helper()
	body := `{"gameId":"game-1","bookNumber":"` + bookNumber + `","ticketStart":1,"ticketEnd":100,"locationId":"loc-1"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/books", strings.NewReader(body))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("receive returned %d: %s", resp.Code, resp.Body.String())
	}
	var book inventory.Book
	if err := json.Unmarshal(resp.Body.Bytes(), &book); err != nil {
		t.Fatalf("decode book: %v", err)
	}
	return book
}

func TestHandlerReceiveAndList(t *testing.T) {
	handler := newTestHandler(t)
	book := receiveBook(t, handler, "0042")
	if book.Status != inventory.StatusInStock {
		t.Fatalf("expected in_stock, got %s", book.Status)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/books?location_id=loc-1", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("list returned %d", resp.Code)
	}
	var list []inventory.Book
	if err := json.Unmarshal(resp.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list) != 1 || list[0].ID != book.ID {
		t.Fatalf("unexpected list: %+v", list)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/books", nil)
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("list without location_id returned %d", resp.Code)
	}
}

func TestHandlerDuplicateBookConflict(t *testing.T) {
	handler := newTestHandler(t)
	receiveBook(t, handler, "0042")

	body := `{"gameId":"game-1","bookNumber":"0042","ticketStart":1,"ticketEnd":100,"locationId":"loc-1"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/books", strings.NewReader(body))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusConflict {
		t.Fatalf("duplicate book returned %d", resp.Code)
	}
}

func TestHandlerLifecycleActions(t *testing.T) {
	handler := newTestHandler(t)
	book := receiveBook(t, handler, "0042")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/books/"+book.ID+"/activate", strings.NewReader(`{"register":"reg-2"}`))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("activate returned %d: %s", resp.Code, resp.Body.String())
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/books/"+book.ID+"/mark-sold-out", nil)
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("mark-sold-out returned %d: %s", resp.Code, resp.Body.String())
	}
	var updated inventory.Book
	if err := json.Unmarshal(resp.Body.Bytes(), &updated); err != nil {
		t.Fatalf("decode book: %v", err)
	}
	if updated.Status != inventory.StatusPendingSettlement || updated.CurrentTicket != 101 {
		t.Fatalf("unexpected state: %s pointer %d", updated.Status, updated.CurrentTicket)
	}

	// Archiving requires settlement first.
	req = httptest.NewRequest(http.MethodPost, "/api/v1/books/"+book.ID+"/archive", nil)
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusConflict {
		t.Fatalf("archive of unsettled book returned %d", resp.Code)
	}
}

func TestHandlerBookNotFound(t *testing.T) {
	handler := newTestHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/books/missing", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("missing book returned %d", resp.Code)
	}
}
