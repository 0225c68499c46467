package service

import (
	"fmt"
	"math"

	"github.com/TeneoProtocolAI/taxyield-monitor/internal/core/domain"
)

const (
	DefaultVolumeDropRatio  = 0.5
	DefaultVolumeSpikeRatio = 2.0
)

// HealthEvaluator derives price/volume statistics and a volume classification
// from a token series.
type HealthEvaluator struct {
	dropRatio  float64
	spikeRatio float64
}

func NewHealthEvaluator(dropRatio, spikeRatio float64) *HealthEvaluator {
	if dropRatio <= 0 {
		dropRatio = DefaultVolumeDropRatio
	}
	if spikeRatio <= 0 {
		spikeRatio = DefaultVolumeSpikeRatio
	}
	return &HealthEvaluator{dropRatio: dropRatio, spikeRatio: spikeRatio}
}

// Evaluate computes the health report for one token. The report timestamp is
// the as-of time of the last sample.
func (e *HealthEvaluator) Evaluate(tokenID domain.TokenID, series domain.TokenSeries) (*domain.TokenHealthReport, error) {
	if len(series) < 2 {
		return nil, fmt.Errorf("%s: %d points: %w", tokenID, len(series), domain.ErrInsufficientData)
	}

	first, last := series[0], series[len(series)-1]
	if first.Timestamp.After(last.Timestamp) {
		return nil, fmt.Errorf("%s: series not ascending: %w", tokenID, domain.ErrInvalidSeries)
	}
	if first.Price <= 0 {
		return nil, fmt.Errorf("%s: baseline price %v: %w", tokenID, first.Price, domain.ErrInvalidSeries)
	}
	if first.Volume <= 0 {
		return nil, fmt.Errorf("%s: baseline volume %v: %w", tokenID, first.Volume, domain.ErrInvalidSeries)
	}

	prices := make([]float64, len(series))
	volumes := make([]float64, len(series))
	for i, p := range series {
		if !validSample(p.Price) || !validSample(p.Volume) {
			return nil, fmt.Errorf("%s: negative or non-finite sample at %s: %w", tokenID, p.Timestamp, domain.ErrInvalidSeries)
		}
		prices[i] = p.Price
		volumes[i] = p.Volume
	}

	avgPrice := mean(prices)
	avgVolume := mean(volumes)

	return &domain.TokenHealthReport{
		TokenID:            tokenID,
		CurrentPrice:       last.Price,
		AvgPrice:           avgPrice,
		PriceChangePct:     pctChange(first.Price, last.Price),
		PriceVolatilityPct: populationStdDev(prices, avgPrice) / avgPrice * 100,
		CurrentVolume:      last.Volume,
		AvgVolume:          avgVolume,
		VolumeChangePct:    pctChange(first.Volume, last.Volume),
		VolumeHealth:       e.classifyVolume(last.Volume, avgVolume),
		Timestamp:          last.Timestamp,
	}, nil
}

// classifyVolume checks the drop condition before the spike condition; both
// comparisons are strict.
func (e *HealthEvaluator) classifyVolume(current, avg float64) domain.VolumeHealth {
	switch {
	case current < e.dropRatio*avg:
		return domain.VolumeDrop
	case current > e.spikeRatio*avg:
		return domain.VolumeHighActivity
	default:
		return domain.VolumeNormal
	}
}

// AverageVolume is the mean volume of a series, 0 when empty.
func AverageVolume(series domain.TokenSeries) float64 {
	if len(series) == 0 {
		return 0
	}
	var sum float64
	for _, p := range series {
		sum += p.Volume
	}
	return sum / float64(len(series))
}

func validSample(x float64) bool {
	return x >= 0 && !math.IsNaN(x) && !math.IsInf(x, 0)
}

func mean(xs []float64) float64 {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func populationStdDev(xs []float64, mu float64) float64 {
	var ss float64
	for _, x := range xs {
		d := x - mu
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)))
}

func pctChange(from, to float64) float64 {
	return (to - from) / from * 100
}
