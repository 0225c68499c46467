package service

import (
	"testing"
	"time"

	"github.com/TeneoProtocolAI/taxyield-monitor/internal/core/domain"
)

func TestTaxDistributionAnalyzer_Analyze(t *testing.T) {
	now := time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC)
	a := NewTaxDistributionAnalyzer(fixedClock(now))

	day := func(d, hour int) time.Time { return time.Date(2025, 3, d, hour, 0, 0, 0, time.UTC) }

	var txs []domain.Transaction
	// Nine active days, 1.0 collected each, with a gap on the 5th.
	for _, d := range []int{1, 2, 3, 4, 6, 7, 8, 9, 10} {
		txs = append(txs, tx("0xin", 1.0, walletX, walletW, day(d, 9)))
	}
	// Same-day transfers merge.
	txs = append(txs, tx("0xin2", 0.5, walletX, walletW, day(10, 23)))
	// Outgoing transfers are not collections.
	txs = append(txs, tx("0xout", 5.0, walletW, walletX, day(10, 12)))

	report := a.Analyze("alpha", 0.05, []domain.ProjectWalletActivity{
		{Wallet: domain.WalletRef{Name: "treasury", Address: walletW}, Transactions: txs},
		{Wallet: domain.WalletRef{Name: "idle", Address: walletX}, Transactions: nil},
	})

	if report.TokenID != "alpha" || report.TaxRate != 0.05 {
		t.Errorf("header = %s/%v, want alpha/0.05", report.TokenID, report.TaxRate)
	}
	if !report.Timestamp.Equal(now) {
		t.Errorf("Timestamp = %v, want %v", report.Timestamp, now)
	}
	if _, ok := report.Distribution["idle"]; ok {
		t.Error("wallet without incoming transfers should be omitted")
	}

	w, ok := report.Distribution["treasury"]
	if !ok {
		t.Fatal("treasury missing from distribution")
	}
	if !almostEqual(w.TotalCollected, 9.5) {
		t.Errorf("TotalCollected = %v, want 9.5", w.TotalCollected)
	}
	if w.ActiveDays != 9 {
		t.Errorf("ActiveDays = %d, want 9", w.ActiveDays)
	}
	if !almostEqual(w.AvgDailyCollection, 9.5/9) {
		t.Errorf("AvgDailyCollection = %v, want %v", w.AvgDailyCollection, 9.5/9)
	}

	wantDates := []string{"2025-03-03", "2025-03-04", "2025-03-06", "2025-03-07", "2025-03-08", "2025-03-09", "2025-03-10"}
	if len(w.Last7Days) != len(wantDates) {
		t.Fatalf("Last7Days has %d entries, want %d", len(w.Last7Days), len(wantDates))
	}
	for i, want := range wantDates {
		if w.Last7Days[i].Date != want {
			t.Errorf("Last7Days[%d].Date = %s, want %s", i, w.Last7Days[i].Date, want)
		}
	}
	if last := w.Last7Days[6]; !almostEqual(last.Amount, 1.5) {
		t.Errorf("merged day amount = %v, want 1.5", last.Amount)
	}
}

func TestTaxDistributionAnalyzer_UTCDateGrouping(t *testing.T) {
	a := NewTaxDistributionAnalyzer(nil)
	east := time.FixedZone("UTC+9", 9*3600)

	// 2025-03-02 08:00 in UTC+9 is still 2025-03-01 in UTC.
	txs := []domain.Transaction{
		tx("0x1", 1, walletX, walletW, time.Date(2025, 3, 1, 20, 0, 0, 0, time.UTC)),
		{Hash: "0x2", Value: wei(1), ValueNormalized: 1, From: walletX, To: walletW, Timestamp: time.Date(2025, 3, 2, 8, 0, 0, 0, east)},
	}

	report := a.Analyze("alpha", 0.05, []domain.ProjectWalletActivity{
		{Wallet: domain.WalletRef{Address: walletW}, Transactions: txs},
	})
	w := report.Distribution[walletW]
	if w.ActiveDays != 1 {
		t.Errorf("ActiveDays = %d, want 1", w.ActiveDays)
	}
}
