package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/TeneoProtocolAI/taxyield-monitor/internal/core/domain"
)

// FetchFunc retrieves a series from the Market Data Source on a cache miss.
type FetchFunc func(ctx context.Context) (domain.TokenSeries, error)

// SeriesCache memoizes series per (token, window, currency) for a single
// monitoring run. Entries never expire within the run; failures are never
// cached.
type SeriesCache struct {
	store domain.SeriesStore
	log   *slog.Logger
}

func NewSeriesCache(store domain.SeriesStore, log *slog.Logger) *SeriesCache {
	if store == nil {
		store = NewMemorySeriesStore()
	}
	if log == nil {
		log = slog.Default()
	}
	return &SeriesCache{store: store, log: log}
}

func (c *SeriesCache) GetOrFetch(ctx context.Context, key domain.SeriesKey, fetch FetchFunc) (domain.TokenSeries, error) {
	cached, ok, err := c.store.Get(ctx, key)
	if err != nil {
		// A broken backing store degrades to a pass-through.
		c.log.Warn("series cache read failed", "token", key.TokenID, "error", err)
	} else if ok {
		return cached, nil
	}

	series, err := fetch(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrNoData) {
			return nil, err
		}
		return nil, fmt.Errorf("fetch %s: %v: %w", key.TokenID, err, domain.ErrNoData)
	}
	if err := series.Validate(); err != nil {
		return nil, fmt.Errorf("fetch %s: %w", key.TokenID, err)
	}

	if err := c.store.Put(ctx, key, series); err != nil {
		c.log.Warn("series cache write failed", "token", key.TokenID, "error", err)
	}
	return series, nil
}

// MemorySeriesStore is the default in-process SeriesStore.
type MemorySeriesStore struct {
	mu      sync.RWMutex
	entries map[domain.SeriesKey]domain.TokenSeries
}

func NewMemorySeriesStore() *MemorySeriesStore {
	return &MemorySeriesStore{entries: make(map[domain.SeriesKey]domain.TokenSeries)}
}

var _ domain.SeriesStore = (*MemorySeriesStore)(nil)

func (m *MemorySeriesStore) Get(_ context.Context, key domain.SeriesKey) (domain.TokenSeries, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.entries[key]
	return s, ok, nil
}

// Put overwrites any existing entry for key.
func (m *MemorySeriesStore) Put(_ context.Context, key domain.SeriesKey, series domain.TokenSeries) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = series
	return nil
}

func (m *MemorySeriesStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
