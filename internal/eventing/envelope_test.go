package eventing

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"storeops-cloud/internal/eventing/eventbus"
	inventory "storeops-cloud/internal/inventory/domain"
)

func TestBuildEnvelopeExtractsMetadata(t *testing.T) {
	occurred := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	event := inventory.SoldOutDetected{
		BookID:     "book-1",
		BookNumber: "0042",
		LocationID: "loc-1",
		OccurredAt: occurred,
	}

	env, err := BuildEnvelope(event, Meta{TenantID: "tenant-a"})
	if err != nil {
		t.Fatalf("build envelope: %v", err)
	}
	if env.EventType != "inventory.SoldOutDetected" {
		t.Fatalf("event type %q", env.EventType)
	}
	if env.LocationID != "loc-1" {
		t.Fatalf("location not lifted from payload: %q", env.LocationID)
	}
	if !env.OccurredAt.Equal(occurred) {
		t.Fatalf("occurred at %s", env.OccurredAt)
	}
	if env.EventID == "" || env.CorrelationID != env.EventID {
		t.Fatalf("unexpected ids: %q %q", env.EventID, env.CorrelationID)
	}
	if env.SchemaVersion != 1 {
		t.Fatalf("schema version %d", env.SchemaVersion)
	}
}

func TestRegistryDecodesRegisteredEvents(t *testing.T) {
	registry := NewRegistry()
	registry.Register(inventory.SoldOutDetected{})

	env, err := BuildEnvelope(inventory.SoldOutDetected{BookID: "book-1", LocationID: "loc-1"}, Meta{})
	if err != nil {
		t.Fatalf("build envelope: %v", err)
	}

	decoded, err := registry.DecodePayload(env)
	if err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	event, ok := decoded.(inventory.SoldOutDetected)
	if !ok {
		t.Fatalf("decoded type %T", decoded)
	}
	if event.BookID != "book-1" {
		t.Fatalf("decoded event: %+v", event)
	}

	env.EventType = "inventory.Unregistered"
	if _, err := registry.DecodePayload(env); err == nil {
		t.Fatal("expected unknown event type error")
	}
}

type memoryProcessedStore struct {
	mu   sync.Mutex
	seen map[string]bool
}

func newMemoryProcessedStore() *memoryProcessedStore {
	return &memoryProcessedStore{seen: make(map[string]bool)}
}

func (s *memoryProcessedStore) HasProcessed(ctx context.Context, eventID, consumerName string) (bool, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seen[eventID+"|"+consumerName], nil
}

func (s *memoryProcessedStore) MarkProcessed(ctx context.Context, eventID, consumerName string) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen[eventID+"|"+consumerName] = true
	return nil
}

func TestSubscribeIdempotency(t *testing.T) {
	bus := eventbus.NewInMemoryBus()
	store := newMemoryProcessedStore()
	calls := 0
	Subscribe(bus, "inventory.SoldOutDetected", "soldout.log", func(ctx context.Context, event any) error {
		_ = ctx
		_ = event
		calls++
		return nil
	}, store)

	event := inventory.SoldOutDetected{BookID: "book-1", LocationID: "loc-1"}
	env, err := BuildEnvelope(event, Meta{})
	if err != nil {
		t.Fatalf("build envelope: %v", err)
	}
	ctx := WithEnvelope(context.Background(), env)

	if err := bus.Publish(ctx, event); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := bus.Publish(ctx, event); err != nil {
		t.Fatalf("republish: %v", err)
	}
	if calls != 1 {
		t.Fatalf("handler ran %d times for the same event id", calls)
	}

	// A fresh envelope is a new delivery.
	env2, err := BuildEnvelope(event, Meta{})
	if err != nil {
		t.Fatalf("build envelope: %v", err)
	}
	if err := bus.Publish(WithEnvelope(context.Background(), env2), event); err != nil {
		t.Fatalf("publish second: %v", err)
	}
	if calls != 2 {
		t.Fatalf("handler ran %d times, want 2", calls)
	}
}

func TestSubscribePropagatesHandlerError(t *testing.T) {
	bus := eventbus.NewInMemoryBus()
	store := newMemoryProcessedStore()
	wantErr := errors.New("boom")
	Subscribe(bus, "inventory.SoldOutDetected", "soldout.log", func(ctx context.Context, event any) error {
		_ = ctx
		_ = event
		return wantErr
	}, store)

	event := inventory.SoldOutDetected{BookID: "book-1"}
	env, err := BuildEnvelope(event, Meta{})
	if err != nil {
		t.Fatalf("build envelope: %v", err)
	}
	ctx := WithEnvelope(context.Background(), env)
	if err := bus.Publish(ctx, event); !errors.Is(err, wantErr) {
		t.Fatalf("expected handler error, got %v", err)
	}
	// A failed delivery is not marked processed and retries.
	if err := bus.Publish(ctx, event); !errors.Is(err, wantErr) {
		t.Fatalf("expected retry to run handler, got %v", err)
	}
}

func TestMetaFromContextInheritsDelivery(t *testing.T) {
	env := Envelope{
		EventID:       "evt-1",
		TenantID:      "tenant-a",
		CorrelationID: "corr-1",
	}
	ctx := WithEnvelope(context.Background(), env)

	meta := MetaFromContext(ctx, "tenant-default")
	if meta.TenantID != "tenant-a" {
		t.Fatalf("tenant %q", meta.TenantID)
	}
	if meta.CorrelationID != "corr-1" {
		t.Fatalf("correlation %q", meta.CorrelationID)
	}

	// Explicit metadata wins over the in-flight delivery.
	ctx = WithMeta(ctx, Meta{TenantID: "tenant-b", CorrelationID: "corr-2"})
	meta = MetaFromContext(ctx, "tenant-default")
	if meta.TenantID != "tenant-b" || meta.CorrelationID != "corr-2" {
		t.Fatalf("unexpected meta %+v", meta)
	}

	// Without a delivery or explicit metadata, the configured tenant applies.
	meta = MetaFromContext(context.Background(), "tenant-default")
	if meta.TenantID != "tenant-default" || meta.CorrelationID != "" {
		t.Fatalf("unexpected default meta %+v", meta)
	}
}
