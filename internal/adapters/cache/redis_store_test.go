package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/TeneoProtocolAI/taxyield-monitor/internal/core/domain"
)

func TestRedisSeriesStore_RoundTrip(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set; requires live Redis instance")
	}

	ctx := context.Background()
	client, err := NewRedisClient(ctx, addr, os.Getenv("REDIS_PASSWORD"), 0)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	defer client.Close()

	store := NewRedisSeriesStore(client, uuid.NewString(), time.Minute)
	key := domain.SeriesKey{TokenID: "alpha", WindowDays: 30, Currency: "usd"}

	if _, ok, err := store.Get(ctx, key); err != nil || ok {
		t.Fatalf("Get on empty store = ok %v, err %v", ok, err)
	}

	series := domain.TokenSeries{
		{Timestamp: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), Price: 1.5, Volume: 100},
		{Timestamp: time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC), Price: 1.6, Volume: 120},
	}
	if err := store.Put(ctx, key, series); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, ok, err := store.Get(ctx, key)
	if err != nil || !ok {
		t.Fatalf("Get = ok %v, err %v", ok, err)
	}
	if len(got) != 2 || got[1].Volume != 120 || !got[0].Timestamp.Equal(series[0].Timestamp) {
		t.Errorf("got %+v", got)
	}

	other := NewRedisSeriesStore(client, uuid.NewString(), time.Minute)
	if _, ok, _ := other.Get(ctx, key); ok {
		t.Error("entries leaked across run IDs")
	}
}

func TestRedisSeriesStore_KeyLayout(t *testing.T) {
	store := NewRedisSeriesStore(nil, "run-1", time.Minute)
	got := store.key(domain.SeriesKey{TokenID: "alpha", WindowDays: 7, Currency: "eur"})
	if got != "series:run-1:alpha:7:eur" {
		t.Errorf("key = %s", got)
	}
}
