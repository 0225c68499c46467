package service

import (
	"context"
	"strings"

	lru "github.com/hashicorp/golang-lru"

	"github.com/TeneoProtocolAI/taxyield-monitor/internal/core/domain"
)

const defaultLedgerMemoSize = 256

// MemoLedger wraps a LedgerDataSource so each address is fetched at most once
// per run. Only successful, non-empty results are kept.
type MemoLedger struct {
	next  domain.LedgerDataSource
	cache *lru.Cache
}

func NewMemoLedger(next domain.LedgerDataSource, size int) *MemoLedger {
	if size <= 0 {
		size = defaultLedgerMemoSize
	}
	cache, _ := lru.New(size)
	return &MemoLedger{next: next, cache: cache}
}

var _ domain.LedgerDataSource = (*MemoLedger)(nil)

func (m *MemoLedger) FetchTransactions(ctx context.Context, address string) ([]domain.Transaction, error) {
	key := strings.ToLower(address)
	if v, ok := m.cache.Get(key); ok {
		return v.([]domain.Transaction), nil
	}
	txs, err := m.next.FetchTransactions(ctx, address)
	if err != nil {
		return nil, err
	}
	if len(txs) > 0 {
		m.cache.Add(key, txs)
	}
	return txs, nil
}
