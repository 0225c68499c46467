package synthetic

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/TeneoProtocolAI/taxyield-monitor/internal/core/domain"
)

var anchor = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestMarket_Deterministic(t *testing.T) {
	ctx := context.Background()
	a, err := NewMarket(anchor).FetchSeries(ctx, "alpha", 30, "usd")
	if err != nil {
		t.Fatalf("FetchSeries failed: %v", err)
	}
	b, _ := NewMarket(anchor).FetchSeries(ctx, "alpha", 30, "usd")
	if !reflect.DeepEqual(a, b) {
		t.Error("same token produced different series")
	}

	if len(a) != 31 {
		t.Errorf("got %d points, want 31", len(a))
	}
	if err := a.Validate(); err != nil {
		t.Errorf("series invalid: %v", err)
	}
	if !a[len(a)-1].Timestamp.Equal(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("last point at %v, want anchor day", a[len(a)-1].Timestamp)
	}
	for _, p := range a {
		if p.Price <= 0 || p.Volume <= 0 {
			t.Fatalf("non-positive sample %+v", p)
		}
	}

	other, _ := NewMarket(anchor).FetchSeries(ctx, "beta", 30, "usd")
	if reflect.DeepEqual(a, other) {
		t.Error("different tokens produced identical series")
	}
}

func TestMarket_SetAndFail(t *testing.T) {
	m := NewMarket(anchor)
	pinned := domain.TokenSeries{{Timestamp: anchor, Price: 1, Volume: 2}}
	m.Set("alpha", pinned)
	m.Fail("gamma")

	got, err := m.FetchSeries(context.Background(), "alpha", 30, "usd")
	if err != nil || !reflect.DeepEqual(got, pinned) {
		t.Errorf("pinned series = %v, err %v", got, err)
	}
	if _, err := m.FetchSeries(context.Background(), "gamma", 30, "usd"); !errors.Is(err, domain.ErrNoData) {
		t.Errorf("failing token error = %v, want ErrNoData", err)
	}
	if m.Calls() != 2 {
		t.Errorf("Calls = %d, want 2", m.Calls())
	}
}

func TestLedger_Deterministic(t *testing.T) {
	const addr = "0x2222222222222222222222222222222222222222"
	ctx := context.Background()

	a, err := NewLedger(anchor).FetchTransactions(ctx, addr)
	if err != nil {
		t.Fatalf("FetchTransactions failed: %v", err)
	}
	// Lookups are case-insensitive.
	b, _ := NewLedger(anchor).FetchTransactions(ctx, "0X"+addr[2:])
	if !reflect.DeepEqual(a, b) {
		t.Error("same address produced different histories")
	}

	if len(a) < 5 || len(a) > 40 {
		t.Errorf("got %d transactions, want 5..40", len(a))
	}
	for _, tx := range a {
		if !tx.IsIncomingFor(addr) && !tx.IsOutgoingFor(addr) {
			t.Fatalf("tx %s does not touch the subject", tx.Hash)
		}
		if tx.Timestamp.After(anchor) {
			t.Fatalf("tx %s is after the anchor", tx.Hash)
		}
		if tx.ValueNormalized < 0 {
			t.Fatalf("negative value in %s", tx.Hash)
		}
	}
}

func TestLedger_SetAndFail(t *testing.T) {
	l := NewLedger(anchor)
	l.Set("0xAAAA", []domain.Transaction{})
	l.Fail("0xBBBB")

	txs, err := l.FetchTransactions(context.Background(), "0xaaaa")
	if err != nil || len(txs) != 0 {
		t.Errorf("pinned history = %v, err %v", txs, err)
	}
	if _, err := l.FetchTransactions(context.Background(), "0xbbbb"); !errors.Is(err, domain.ErrNoData) {
		t.Errorf("failing address error = %v, want ErrNoData", err)
	}
}
