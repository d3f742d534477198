package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	catalog "storeops-cloud/internal/catalog/domain"
	memory "storeops-cloud/internal/catalog/infrastructure/memory"
)

type stubBookCounter struct {
	live map[string]int
}

func (s *stubBookCounter) CountLiveBooksByGame(ctx context.Context, gameID string) (int, error) {
	_ = ctx
	return s.live[gameID], nil
}

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func luckySevens() AddGameCommand {
	return AddGameCommand{
		GameNumber:     "1427",
		Name:           "Lucky 7s",
		TicketPrice:    decimal.RequireFromString("5.00"),
		TicketsPerBook: 100,
		CommissionRate: decimal.RequireFromString("0.05"),
	}
}

func newCatalogService(t *testing.T, counter *stubBookCounter) *Service {
	t.Helper()
	svc, err := NewService(memory.NewGameRepository(), counter, fixedClock{now: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestAddGame(t *testing.T) {
	svc := newCatalogService(t, &stubBookCounter{})
	ctx := context.Background()

	game, err := svc.AddGame(ctx, luckySevens())
	if err != nil {
		t.Fatalf("add game: %v", err)
	}
	if game.Status != catalog.StatusActive {
		t.Fatalf("expected active, got %s", game.Status)
	}

	if _, err := svc.AddGame(ctx, luckySevens()); !errors.Is(err, catalog.ErrDuplicateGameNumber) {
		t.Fatalf("expected ErrDuplicateGameNumber, got %v", err)
	}

	bad := luckySevens()
	bad.GameNumber = "1428"
	bad.CommissionRate = decimal.RequireFromString("1.50")
	if _, err := svc.AddGame(ctx, bad); !errors.Is(err, catalog.ErrInvalidCommissionRate) {
		t.Fatalf("expected ErrInvalidCommissionRate, got %v", err)
	}
}

func TestSupersedeGame(t *testing.T) {
	counter := &stubBookCounter{live: map[string]int{}}
	svc := newCatalogService(t, counter)
	ctx := context.Background()

	old, err := svc.AddGame(ctx, luckySevens())
	if err != nil {
		t.Fatalf("add game: %v", err)
	}

	// Same number with live books still selling is a conflict.
	counter.live[old.ID] = 3
	if _, err := svc.SupersedeGame(ctx, old.ID, luckySevens()); !errors.Is(err, catalog.ErrGameReferenced) {
		t.Fatalf("expected ErrGameReferenced, got %v", err)
	}

	// A replacement under a new number retires the old definition.
	next := luckySevens()
	next.GameNumber = "1427B"
	next.TicketPrice = decimal.RequireFromString("5.50")
	replacement, err := svc.SupersedeGame(ctx, old.ID, next)
	if err != nil {
		t.Fatalf("supersede: %v", err)
	}
	if !replacement.TicketPrice.Equal(decimal.RequireFromString("5.50")) {
		t.Fatalf("replacement price %s", replacement.TicketPrice)
	}

	retired, err := svc.GetGame(ctx, old.ID)
	if err != nil {
		t.Fatalf("get retired: %v", err)
	}
	if retired.Status != catalog.StatusInactive {
		t.Fatalf("old game still %s", retired.Status)
	}
	// The retired definition keeps its original pricing for settled books.
	if !retired.TicketPrice.Equal(decimal.RequireFromString("5.00")) {
		t.Fatalf("retired price changed: %s", retired.TicketPrice)
	}

	active, err := svc.ListActiveGames(ctx)
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(active) != 1 || active[0].ID != replacement.ID {
		t.Fatalf("unexpected active games: %+v", active)
	}
}

func TestGetGameNotFound(t *testing.T) {
	svc := newCatalogService(t, &stubBookCounter{})
	if _, err := svc.GetGame(context.Background(), "missing"); !errors.Is(err, catalog.ErrGameNotFound) {
		t.Fatalf("expected ErrGameNotFound, got %v", err)
	}
	if _, err := svc.SupersedeGame(context.Background(), "missing", luckySevens()); !errors.Is(err, catalog.ErrGameNotFound) {
		t.Fatalf("expected ErrGameNotFound, got %v", err)
	}
}
