package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/TeneoProtocolAI/taxyield-monitor/internal/core/domain"
)

const DefaultPulseChainURL = "https://scan.pulsechain.com/api"

// PulseChainService implements domain.LedgerDataSource against an
// Etherscan-compatible explorer API.
type PulseChainService struct {
	baseURL string
	client  *http.Client
}

func NewPulseChainService(baseURL string, timeout time.Duration) *PulseChainService {
	if baseURL == "" {
		baseURL = DefaultPulseChainURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &PulseChainService{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

var _ domain.LedgerDataSource = (*PulseChainService)(nil)

type txListResponse struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

type txListEntry struct {
	Hash      string `json:"hash"`
	From      string `json:"from"`
	To        string `json:"to"`
	Value     string `json:"value"`
	TimeStamp string `json:"timeStamp"`
}

// FetchTransactions lists native transfers touching address. An address with
// no history yields an empty slice; any other failure matches domain.ErrNoData.
func (s *PulseChainService) FetchTransactions(ctx context.Context, address string) ([]domain.Transaction, error) {
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("invalid address %q: %w", address, domain.ErrNoData)
	}
	address = common.HexToAddress(address).Hex()

	q := url.Values{}
	q.Set("module", "account")
	q.Set("action", "txlist")
	q.Set("address", address)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("txlist %s: %v: %w", address, err, domain.ErrNoData)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("txlist %s: %v: %w", address, err, domain.ErrNoData)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("txlist %s: api returned status %d: %w", address, resp.StatusCode, domain.ErrNoData)
	}

	var body txListResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("txlist %s: decode: %v: %w", address, err, domain.ErrNoData)
	}
	if body.Status != "1" {
		if strings.Contains(strings.ToLower(body.Message), "no transactions found") {
			return []domain.Transaction{}, nil
		}
		return nil, fmt.Errorf("txlist %s: %s: %w", address, body.Message, domain.ErrNoData)
	}

	var entries []txListEntry
	if err := json.Unmarshal(body.Result, &entries); err != nil {
		return nil, fmt.Errorf("txlist %s: decode result: %v: %w", address, err, domain.ErrNoData)
	}

	txs := make([]domain.Transaction, 0, len(entries))
	for _, e := range entries {
		tx, err := parseEntry(e)
		if err != nil {
			return nil, fmt.Errorf("txlist %s: %v: %w", address, err, domain.ErrNoData)
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

func parseEntry(e txListEntry) (domain.Transaction, error) {
	value, ok := new(big.Int).SetString(e.Value, 10)
	if !ok {
		return domain.Transaction{}, fmt.Errorf("tx %s: bad value %q", e.Hash, e.Value)
	}
	secs, err := strconv.ParseInt(e.TimeStamp, 10, 64)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("tx %s: bad timestamp %q", e.Hash, e.TimeStamp)
	}
	return domain.NewTransaction(e.Hash, value, e.From, e.To, time.Unix(secs, 0)), nil
}
