package service

import (
	"sort"
	"time"

	"github.com/TeneoProtocolAI/taxyield-monitor/internal/core/domain"
)

const recentCollectionDays = 7

// TaxDistributionAnalyzer aggregates incoming transfers of a token's project
// wallets into daily tax-collection statistics.
type TaxDistributionAnalyzer struct {
	now func() time.Time
}

func NewTaxDistributionAnalyzer(now func() time.Time) *TaxDistributionAnalyzer {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &TaxDistributionAnalyzer{now: now}
}

// Analyze groups incoming transfers by UTC date. Days without transfers are
// absent from the output rather than zero.
func (a *TaxDistributionAnalyzer) Analyze(tokenID domain.TokenID, taxRate float64, wallets []domain.ProjectWalletActivity) *domain.TaxDistributionReport {
	report := &domain.TaxDistributionReport{
		TokenID:      tokenID,
		TaxRate:      taxRate,
		Distribution: make(map[string]domain.WalletTaxCollection),
		Timestamp:    a.now(),
	}

	for _, w := range wallets {
		daily := make(map[string]float64)
		var total float64
		for _, tx := range w.Transactions {
			if !tx.IsIncomingFor(w.Wallet.Address) {
				continue
			}
			day := tx.Timestamp.UTC().Format(time.DateOnly)
			daily[day] += tx.ValueNormalized
			total += tx.ValueNormalized
		}
		if len(daily) == 0 {
			continue
		}

		days := make([]string, 0, len(daily))
		for d := range daily {
			days = append(days, d)
		}
		// ISO dates sort lexically in calendar order.
		sort.Strings(days)

		recent := days
		if len(recent) > recentCollectionDays {
			recent = recent[len(recent)-recentCollectionDays:]
		}
		last7 := make([]domain.DailyCollection, 0, len(recent))
		for _, d := range recent {
			last7 = append(last7, domain.DailyCollection{Date: d, Amount: daily[d]})
		}

		report.Distribution[w.Wallet.Identifier()] = domain.WalletTaxCollection{
			Address:            w.Wallet.Address,
			TotalCollected:     total,
			AvgDailyCollection: total / float64(len(days)),
			ActiveDays:         len(days),
			Last7Days:          last7,
		}
	}

	return report
}
