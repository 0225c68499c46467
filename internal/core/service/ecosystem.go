package service

import (
	"fmt"
	"time"

	"github.com/TeneoProtocolAI/taxyield-monitor/internal/core/domain"
)

// DefaultSupplyMultiplier is the placeholder market-cap heuristic: total supply
// value is taken as this many days of average volume when no market cap is
// configured.
const DefaultSupplyMultiplier = 10.0

// EcosystemAggregator rolls per-token results into ecosystem metrics.
type EcosystemAggregator struct {
	supplyMultiplier float64
	now              func() time.Time
}

func NewEcosystemAggregator(supplyMultiplier float64, now func() time.Time) *EcosystemAggregator {
	if supplyMultiplier <= 0 {
		supplyMultiplier = DefaultSupplyMultiplier
	}
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &EcosystemAggregator{supplyMultiplier: supplyMultiplier, now: now}
}

// SupplyValue returns the configured market cap, or the volume-based estimate
// with estimated=true when marketCap is not positive.
func (a *EcosystemAggregator) SupplyValue(avgDailyVolume, marketCap float64) (value float64, estimated bool) {
	if marketCap > 0 {
		return marketCap, false
	}
	return avgDailyVolume * a.supplyMultiplier, true
}

// Aggregate expects only successfully evaluated tokens. The sustainability
// score averages finite ratios with a positive obligation; with no qualifying
// entry every average is 0.
func (a *EcosystemAggregator) Aggregate(evals []domain.TokenEvaluation) *domain.EcosystemHealth {
	eco := &domain.EcosystemHealth{
		Tokens:         make(map[domain.TokenID]domain.TokenHealthReport, len(evals)),
		Sustainability: make(map[domain.TokenID]domain.SustainabilityReport, len(evals)),
		Timestamp:      a.now(),
	}

	var priceChangeSum, ratioSum float64
	var priced int
	for _, ev := range evals {
		if ev.Health == nil {
			continue
		}
		eco.Tokens[ev.Health.TokenID] = *ev.Health
		eco.TotalVolume += ev.Health.CurrentVolume
		priceChangeSum += ev.Health.PriceChangePct
		priced++

		s := ev.Sustainability
		if s == nil {
			continue
		}
		eco.Sustainability[s.TokenID] = *s
		if s.SupplyEstimated {
			eco.EstimatedSupplyTokens++
		}
		if s.RequiredPayouts > 0 && s.SustainabilityRatio.IsFinite() {
			ratioSum += float64(s.SustainabilityRatio)
			eco.ScoredTokens++
		}
	}

	if priced > 0 {
		eco.AvgPriceChange = priceChangeSum / float64(priced)
	}
	if eco.ScoredTokens > 0 {
		eco.SustainabilityScore = ratioSum / float64(eco.ScoredTokens)
	}
	eco.HealthStatus = domain.ClassifyRatio(eco.SustainabilityScore)

	if eco.EstimatedSupplyTokens > 0 {
		eco.EstimationNote = fmt.Sprintf(
			"total_supply_value for %d token(s) is a placeholder estimate (%.0fx average daily volume), not a market cap; configure market_cap_usd for a real input",
			eco.EstimatedSupplyTokens, a.supplyMultiplier)
	}
	return eco
}
