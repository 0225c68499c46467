package price

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/TeneoProtocolAI/taxyield-monitor/internal/core/domain"
)

const DefaultCoinGeckoURL = "https://api.coingecko.com/api/v3"

// CoinGeckoService implements domain.MarketDataSource over the public
// market_chart endpoint.
type CoinGeckoService struct {
	baseURL string
	apiKey  string
	client  *http.Client
	limiter *rate.Limiter
}

// NewCoinGeckoService builds a client. rps <= 0 disables client-side limiting.
func NewCoinGeckoService(baseURL, apiKey string, rps float64, timeout time.Duration) *CoinGeckoService {
	if baseURL == "" {
		baseURL = DefaultCoinGeckoURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	return &CoinGeckoService{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(limit, 1),
	}
}

var _ domain.MarketDataSource = (*CoinGeckoService)(nil)

type marketChart struct {
	Prices       [][2]float64 `json:"prices"`
	TotalVolumes [][2]float64 `json:"total_volumes"`
}

// FetchSeries returns points present in both the price and the volume
// arrays, oldest first. Every failure matches domain.ErrNoData.
func (s *CoinGeckoService) FetchSeries(ctx context.Context, tokenID domain.TokenID, windowDays int, currency string) (domain.TokenSeries, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("coingecko %s: %v: %w", tokenID, err, domain.ErrNoData)
	}

	q := url.Values{}
	q.Set("vs_currency", currency)
	q.Set("days", strconv.Itoa(windowDays))
	endpoint := fmt.Sprintf("%s/coins/%s/market_chart?%s", s.baseURL, url.PathEscape(string(tokenID)), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("coingecko %s: %v: %w", tokenID, err, domain.ErrNoData)
	}
	req.Header.Set("Accept", "application/json")
	if s.apiKey != "" {
		req.Header.Set("x-cg-demo-api-key", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("coingecko %s: %v: %w", tokenID, err, domain.ErrNoData)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("coingecko %s: api returned status %d: %w", tokenID, resp.StatusCode, domain.ErrNoData)
	}

	var chart marketChart
	if err := json.NewDecoder(resp.Body).Decode(&chart); err != nil {
		return nil, fmt.Errorf("coingecko %s: decode: %v: %w", tokenID, err, domain.ErrNoData)
	}

	series := mergeChart(chart)
	if len(series) == 0 {
		return nil, fmt.Errorf("coingecko %s: empty market chart: %w", tokenID, domain.ErrNoData)
	}
	return series, nil
}

// mergeChart inner-joins prices and volumes on the millisecond timestamp.
func mergeChart(chart marketChart) domain.TokenSeries {
	volumes := make(map[int64]float64, len(chart.TotalVolumes))
	for _, v := range chart.TotalVolumes {
		volumes[int64(v[0])] = v[1]
	}

	series := make(domain.TokenSeries, 0, len(chart.Prices))
	for _, p := range chart.Prices {
		ms := int64(p[0])
		vol, ok := volumes[ms]
		if !ok {
			continue
		}
		series = append(series, domain.TimeSeriesPoint{
			Timestamp: time.UnixMilli(ms).UTC(),
			Price:     p[1],
			Volume:    vol,
		})
	}
	sort.SliceStable(series, func(i, j int) bool {
		return series[i].Timestamp.Before(series[j].Timestamp)
	})
	return series
}
