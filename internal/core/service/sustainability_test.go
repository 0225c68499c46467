package service

import (
	"encoding/json"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/TeneoProtocolAI/taxyield-monitor/internal/core/domain"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestSustainabilityModel_Evaluate(t *testing.T) {
	now := time.Date(2025, 3, 31, 12, 0, 0, 0, time.UTC)
	m := NewSustainabilityModel(fixedClock(now))

	tests := []struct {
		name         string
		in           domain.SustainabilityInput
		wantRevenue  float64
		wantRequired float64
		wantRatio    float64
		wantOK       bool
	}{
		{
			name:         "revenue covers half the obligation",
			in:           domain.SustainabilityInput{DailyVolume: 1_000_000, TaxRate: 0.05, TotalSupplyValue: 10_000_000, DailyROI: 0.01},
			wantRevenue:  50_000,
			wantRequired: 100_000,
			wantRatio:    0.5,
			wantOK:       false,
		},
		{
			name:         "equal revenue and obligation is sustainable",
			in:           domain.SustainabilityInput{DailyVolume: 2_000_000, TaxRate: 0.05, TotalSupplyValue: 10_000_000, DailyROI: 0.01},
			wantRevenue:  100_000,
			wantRequired: 100_000,
			wantRatio:    1.0,
			wantOK:       true,
		},
		{
			name:         "no supply means no obligation",
			in:           domain.SustainabilityInput{DailyVolume: 1_000_000, TaxRate: 0.05, TotalSupplyValue: 0, DailyROI: 0.01},
			wantRevenue:  50_000,
			wantRequired: 0,
			wantRatio:    math.Inf(1),
			wantOK:       true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.in.TokenID = "alpha"
			r := m.Evaluate(tt.in)

			if !almostEqual(r.DailyTaxRevenue, tt.wantRevenue) {
				t.Errorf("DailyTaxRevenue = %v, want %v", r.DailyTaxRevenue, tt.wantRevenue)
			}
			if !almostEqual(r.RequiredPayouts, tt.wantRequired) {
				t.Errorf("RequiredPayouts = %v, want %v", r.RequiredPayouts, tt.wantRequired)
			}
			got := float64(r.SustainabilityRatio)
			if math.IsInf(tt.wantRatio, 1) {
				if !math.IsInf(got, 1) {
					t.Errorf("SustainabilityRatio = %v, want +Inf", got)
				}
			} else if !almostEqual(got, tt.wantRatio) {
				t.Errorf("SustainabilityRatio = %v, want %v", got, tt.wantRatio)
			}
			if r.IsSustainable != tt.wantOK {
				t.Errorf("IsSustainable = %v, want %v", r.IsSustainable, tt.wantOK)
			}
			if !r.Timestamp.Equal(now) {
				t.Errorf("Timestamp = %v, want %v", r.Timestamp, now)
			}
		})
	}
}

func TestSustainabilityModel_InfiniteRatioJSON(t *testing.T) {
	m := NewSustainabilityModel(nil)
	r := m.Evaluate(domain.SustainabilityInput{TokenID: "alpha", DailyVolume: 10, TaxRate: 0.05, DailyROI: 0})

	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if !strings.Contains(string(data), `"sustainability_ratio":"Infinity"`) {
		t.Errorf("expected Infinity ratio in %s", data)
	}
}

func TestSustainabilityModel_Alert(t *testing.T) {
	m := NewSustainabilityModel(nil)

	bad := m.Evaluate(domain.SustainabilityInput{TokenID: "alpha", DailyVolume: 1, TaxRate: 0.05, TotalSupplyValue: 100, DailyROI: 0.01})
	a, ok := bad.Alert()
	if !ok {
		t.Fatal("expected alert for unsustainable report")
	}
	if a.Kind != domain.AlertUnsustainable || a.Severity != domain.SeverityCritical {
		t.Errorf("alert = %s/%s, want unsustainable_yield/critical", a.Kind, a.Severity)
	}

	good := m.Evaluate(domain.SustainabilityInput{TokenID: "alpha", DailyVolume: 100, TaxRate: 0.05, TotalSupplyValue: 100, DailyROI: 0.01})
	if _, ok := good.Alert(); ok {
		t.Error("expected no alert for sustainable report")
	}
}
