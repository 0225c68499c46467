package domain

import (
	"fmt"
	"strconv"
	"time"
)

// Alert returns the volume anomaly raised by a non-Normal report.
func (r *TokenHealthReport) Alert() (Alert, bool) {
	if r == nil || r.VolumeHealth == VolumeNormal {
		return Alert{}, false
	}
	return Alert{
		Kind:     AlertVolumeAnomaly,
		Severity: SeverityWarning,
		Subject:  string(r.TokenID),
		Message: fmt.Sprintf("%s for %s: $%.2f (avg: $%.2f)",
			r.VolumeHealth, r.TokenID, r.CurrentVolume, r.AvgVolume),
		Fields: map[string]string{
			"volume_health":  string(r.VolumeHealth),
			"current_volume": formatFloat(r.CurrentVolume),
			"avg_volume":     formatFloat(r.AvgVolume),
		},
		At: r.Timestamp,
	}, true
}

// Alert returns the unsustainable-yield alert for a failing model.
func (r *SustainabilityReport) Alert() (Alert, bool) {
	if r == nil || r.IsSustainable {
		return Alert{}, false
	}
	return Alert{
		Kind:     AlertUnsustainable,
		Severity: SeverityCritical,
		Subject:  string(r.TokenID),
		Message: fmt.Sprintf("unsustainable ROI for %s: daily tax revenue $%.2f < required $%.2f for %.2f%% daily ROI (ratio %.2f)",
			r.TokenID, r.DailyTaxRevenue, r.RequiredPayouts, r.DailyROI*100, float64(r.SustainabilityRatio)),
		Fields: map[string]string{
			"daily_tax_revenue":    formatFloat(r.DailyTaxRevenue),
			"required_payouts":     formatFloat(r.RequiredPayouts),
			"sustainability_ratio": formatFloat(float64(r.SustainabilityRatio)),
			"supply_estimated":     strconv.FormatBool(r.SupplyEstimated),
		},
		At: r.Timestamp,
	}, true
}

// Alerts returns one alert per flagged transfer.
func (s *WalletActivitySummary) Alerts() []Alert {
	if s == nil {
		return nil
	}
	alerts := make([]Alert, 0, len(s.LargeTransactions))
	for _, tx := range s.LargeTransactions {
		alerts = append(alerts, Alert{
			Kind:     AlertLargeTransaction,
			Severity: SeverityWarning,
			Subject:  s.Wallet,
			Message: fmt.Sprintf("%s transfer of %s on %s",
				tx.Direction, formatFloat(abs(tx.ValueNormalized)), tx.Timestamp.Format(time.DateTime)),
			Fields: map[string]string{
				"hash":      tx.Hash,
				"direction": string(tx.Direction),
				"from":      tx.From,
				"to":        tx.To,
			},
			At: tx.Timestamp,
		})
	}
	return alerts
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
