package service

import (
	"math"

	"github.com/TeneoProtocolAI/taxyield-monitor/internal/core/domain"
)

const DefaultLargeTxThreshold = 0.05

// WalletAnalyzer summarizes a wallet's transfer history and flags transfers
// above an absolute size threshold.
type WalletAnalyzer struct {
	threshold float64
}

func NewWalletAnalyzer(threshold float64) *WalletAnalyzer {
	if threshold <= 0 {
		threshold = DefaultLargeTxThreshold
	}
	return &WalletAnalyzer{threshold: threshold}
}

func (a *WalletAnalyzer) Threshold() float64 { return a.threshold }

// Analyze never fails: an empty history is reported as NoActivity.
//
// Source ordering is not guaranteed, so the latest transaction is the one with
// the greatest timestamp; on a tie the earliest in input order wins.
func (a *WalletAnalyzer) Analyze(subject domain.WalletRef, txs []domain.Transaction) *domain.WalletActivitySummary {
	summary := &domain.WalletActivitySummary{
		Wallet:            subject.Identifier(),
		Address:           subject.Address,
		LargeThreshold:    a.threshold,
		LargeTransactions: []domain.FlaggedTransaction{},
	}
	if len(txs) == 0 {
		summary.NoActivity = true
		return summary
	}

	latest := 0
	for i, tx := range txs {
		if tx.Timestamp.After(txs[latest].Timestamp) {
			latest = i
		}
		if tx.IsIncomingFor(subject.Address) {
			summary.IncomingCount++
		}
		if tx.IsOutgoingFor(subject.Address) {
			summary.OutgoingCount++
		}
		if math.Abs(tx.ValueNormalized) > a.threshold {
			summary.LargeTransactions = append(summary.LargeTransactions, domain.FlaggedTransaction{
				Transaction: tx,
				Direction:   tx.DirectionFor(subject.Address),
			})
		}
	}

	latestTx := txs[latest]
	summary.TotalCount = len(txs)
	summary.LargeCount = len(summary.LargeTransactions)
	summary.LatestTransaction = &latestTx
	return summary
}
