package price

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/TeneoProtocolAI/taxyield-monitor/internal/core/domain"
)

func TestCoinGeckoService_FetchSeries(t *testing.T) {
	var gotPath, gotQuery, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotKey = r.Header.Get("x-cg-demo-api-key")
		w.Header().Set("Content-Type", "application/json")
		// Out of order on purpose; the 3000 price has no matching volume.
		w.Write([]byte(`{
			"prices": [[2000, 1.2], [1000, 1.0], [3000, 1.5]],
			"total_volumes": [[1000, 100], [2000, 150], [4000, 9]]
		}`))
	}))
	defer srv.Close()

	svc := NewCoinGeckoService(srv.URL, "demo-key", 0, time.Second)
	series, err := svc.FetchSeries(context.Background(), "pulsechain", 30, "usd")
	if err != nil {
		t.Fatalf("FetchSeries failed: %v", err)
	}

	if gotPath != "/coins/pulsechain/market_chart" {
		t.Errorf("path = %s", gotPath)
	}
	if gotQuery != "days=30&vs_currency=usd" {
		t.Errorf("query = %s", gotQuery)
	}
	if gotKey != "demo-key" {
		t.Errorf("api key header = %q", gotKey)
	}

	if len(series) != 2 {
		t.Fatalf("got %d points, want 2", len(series))
	}
	if series[0].Price != 1.0 || series[0].Volume != 100 {
		t.Errorf("first point = %+v", series[0])
	}
	if series[1].Price != 1.2 || series[1].Volume != 150 {
		t.Errorf("second point = %+v", series[1])
	}
	if !series[0].Timestamp.Equal(time.UnixMilli(1000)) {
		t.Errorf("timestamp = %v", series[0].Timestamp)
	}
	if err := series.Validate(); err != nil {
		t.Errorf("series not ordered: %v", err)
	}
}

func TestCoinGeckoService_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"rate limited", http.StatusTooManyRequests, `{"status":{"error_code":429}}`},
		{"not found", http.StatusNotFound, `{"error":"coin not found"}`},
		{"empty chart", http.StatusOK, `{"prices":[],"total_volumes":[]}`},
		{"malformed body", http.StatusOK, `{"prices":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			svc := NewCoinGeckoService(srv.URL, "", 0, time.Second)
			_, err := svc.FetchSeries(context.Background(), "ghost", 30, "usd")
			if !errors.Is(err, domain.ErrNoData) {
				t.Errorf("error = %v, want ErrNoData", err)
			}
		})
	}
}

func TestCoinGeckoService_CanceledContext(t *testing.T) {
	svc := NewCoinGeckoService("http://127.0.0.1:0", "", 1, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := svc.FetchSeries(ctx, "alpha", 30, "usd"); !errors.Is(err, domain.ErrNoData) {
		t.Errorf("error = %v, want ErrNoData", err)
	}
}
