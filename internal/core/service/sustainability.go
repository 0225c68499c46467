package service

import (
	"math"
	"time"

	"github.com/TeneoProtocolAI/taxyield-monitor/internal/core/domain"
)

// SustainabilityModel compares daily tax revenue against the payout obligation
// implied by a promised daily ROI.
type SustainabilityModel struct {
	now func() time.Time
}

func NewSustainabilityModel(now func() time.Time) *SustainabilityModel {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &SustainabilityModel{now: now}
}

// Evaluate is plain arithmetic over the inputs; negative values are passed
// through. A zero obligation yields an infinite ratio and counts as sustainable.
func (m *SustainabilityModel) Evaluate(in domain.SustainabilityInput) *domain.SustainabilityReport {
	revenue := in.DailyVolume * in.TaxRate
	required := in.TotalSupplyValue * in.DailyROI

	ratio := math.Inf(1)
	if required != 0 {
		ratio = revenue / required
	}

	return &domain.SustainabilityReport{
		TokenID:             in.TokenID,
		DailyVolume:         in.DailyVolume,
		TaxRate:             in.TaxRate,
		DailyTaxRevenue:     revenue,
		TotalSupplyValue:    in.TotalSupplyValue,
		SupplyEstimated:     in.SupplyEstimated,
		DailyROI:            in.DailyROI,
		RequiredPayouts:     required,
		SustainabilityRatio: domain.Ratio(ratio),
		IsSustainable:       revenue >= required,
		Timestamp:           m.now(),
	}
}
