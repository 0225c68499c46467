package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/TeneoProtocolAI/taxyield-monitor/internal/config"
	"github.com/TeneoProtocolAI/taxyield-monitor/internal/core/domain"
	"github.com/TeneoProtocolAI/taxyield-monitor/internal/metrics"
)

// Options configures a MonitorService. Registry, Market and Ledger are required.
type Options struct {
	Registry *config.Registry
	Market   domain.MarketDataSource
	Ledger   domain.LedgerDataSource

	// SeriesStore backs the run's Series Cache; nil means in-memory.
	SeriesStore domain.SeriesStore
	Alerts      domain.AlertSink
	Metrics     *metrics.Metrics
	Logger      *slog.Logger

	RunID            string
	WindowDays       int
	Currency         string
	FetchConcurrency int
	LedgerCacheSize  int

	LargeTxThreshold float64
	VolumeDropRatio  float64
	VolumeSpikeRatio float64
	SupplyMultiplier float64

	Now func() time.Time
}

// MonitorService is one monitoring run: it owns the run's Series Cache and
// ledger memo, fetches from the external sources and feeds the evaluators.
type MonitorService struct {
	registry *config.Registry
	market   domain.MarketDataSource
	ledger   domain.LedgerDataSource
	cache    *SeriesCache

	health  *HealthEvaluator
	wallets *WalletAnalyzer
	sustain *SustainabilityModel
	tax     *TaxDistributionAnalyzer
	eco     *EcosystemAggregator

	alerts  domain.AlertSink
	metrics *metrics.Metrics
	log     *slog.Logger

	runID       string
	windowDays  int
	currency    string
	concurrency int
	now         func() time.Time
}

func NewMonitorService(opts Options) (*MonitorService, error) {
	if opts.Registry == nil {
		return nil, fmt.Errorf("registry is required")
	}
	if opts.Market == nil {
		return nil, fmt.Errorf("market data source is required")
	}
	if opts.Ledger == nil {
		return nil, fmt.Errorf("ledger data source is required")
	}

	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	windowDays := opts.WindowDays
	if windowDays <= 0 {
		windowDays = 30
	}
	currency := opts.Currency
	if currency == "" {
		currency = "usd"
	}
	concurrency := opts.FetchConcurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	log = log.With("run_id", runID)
	return &MonitorService{
		registry:    opts.Registry,
		market:      opts.Market,
		ledger:      NewMemoLedger(opts.Ledger, opts.LedgerCacheSize),
		cache:       NewSeriesCache(opts.SeriesStore, log),
		health:      NewHealthEvaluator(opts.VolumeDropRatio, opts.VolumeSpikeRatio),
		wallets:     NewWalletAnalyzer(opts.LargeTxThreshold),
		sustain:     NewSustainabilityModel(now),
		tax:         NewTaxDistributionAnalyzer(now),
		eco:         NewEcosystemAggregator(opts.SupplyMultiplier, now),
		alerts:      opts.Alerts,
		metrics:     opts.Metrics,
		log:         log,
		runID:       runID,
		windowDays:  windowDays,
		currency:    currency,
		concurrency: concurrency,
		now:         now,
	}, nil
}

func (s *MonitorService) RunID() string { return s.runID }

func (s *MonitorService) Registry() *config.Registry { return s.registry }

// AnalyzeToken evaluates health and sustainability of a single registry token.
// An unknown id is a *domain.ConfigError.
func (s *MonitorService) AnalyzeToken(ctx context.Context, id domain.TokenID) (*domain.TokenAnalysis, error) {
	tok, err := s.registry.Token(id)
	if err != nil {
		return nil, err
	}

	series, err := s.series(ctx, tok.ID)
	if err != nil {
		s.metrics.Evaluation("token_health", domain.Classify(err))
		return nil, err
	}

	health, err := s.health.Evaluate(tok.ID, series)
	s.metrics.Evaluation("token_health", domain.Classify(err))
	if err != nil {
		return nil, err
	}
	sustainability := s.sustainabilityFor(tok, series)

	s.notifyReport(ctx, health, sustainability)
	return &domain.TokenAnalysis{Health: health, Sustainability: sustainability}, nil
}

// ResolveWallet maps a registry wallet name or a raw hex address to a WalletRef.
func (s *MonitorService) ResolveWallet(nameOrAddress string) (domain.WalletRef, error) {
	if w, ok := s.registry.Wallet(nameOrAddress); ok {
		return domain.WalletRef{Name: w.Name, Address: w.Address}, nil
	}
	if common.IsHexAddress(nameOrAddress) {
		return domain.WalletRef{Address: common.HexToAddress(nameOrAddress).Hex()}, nil
	}
	return domain.WalletRef{}, &domain.ConfigError{
		Kind:       domain.ConfigKindWallet,
		ID:         nameOrAddress,
		Reason:     "neither a registry wallet nor a hex address",
		Suggestion: s.registry.SuggestWallet(nameOrAddress),
	}
}

// CheckWallet summarizes a wallet's activity. A wallet without transactions
// yields a NoActivity summary, not an error.
func (s *MonitorService) CheckWallet(ctx context.Context, nameOrAddress string) (*domain.WalletActivitySummary, error) {
	ref, err := s.ResolveWallet(nameOrAddress)
	if err != nil {
		return nil, err
	}
	return s.checkWalletRef(ctx, ref)
}

func (s *MonitorService) checkWalletRef(ctx context.Context, ref domain.WalletRef) (*domain.WalletActivitySummary, error) {
	txs, err := s.transactions(ctx, ref.Address)
	if err != nil {
		s.metrics.Evaluation("wallet_activity", domain.Classify(err))
		return nil, fmt.Errorf("wallet %s: %w", ref.Identifier(), err)
	}
	summary := s.wallets.Analyze(ref, txs)
	s.metrics.Evaluation("wallet_activity", "ok")

	for _, a := range summary.Alerts() {
		s.notify(ctx, a)
	}
	return summary, nil
}

// CheckTaxDistribution aggregates tax collected by a token's project wallets.
// Wallets whose history cannot be fetched are skipped.
func (s *MonitorService) CheckTaxDistribution(ctx context.Context, id domain.TokenID) (*domain.TaxDistributionReport, error) {
	tok, err := s.registry.Token(id)
	if err != nil {
		return nil, err
	}
	refs := s.registry.ProjectWallets(tok.ID)
	if len(refs) == 0 {
		return nil, &domain.ConfigError{
			Kind:   domain.ConfigKindWallet,
			ID:     string(tok.ID),
			Reason: "no project wallets configured",
		}
	}

	activity := s.fetchWallets(ctx, refs)
	report := s.tax.Analyze(tok.ID, tok.TaxRate, activity)
	s.metrics.Evaluation("tax_distribution", "ok")
	return report, nil
}

// CheckEcosystem evaluates the given tokens (all registry tokens when ids is
// empty) and rolls them up. Ids are validated before any fetch; tokens that
// fail to fetch or evaluate are logged and left out of the result.
func (s *MonitorService) CheckEcosystem(ctx context.Context, ids []domain.TokenID) (*domain.EcosystemHealth, error) {
	if len(ids) == 0 {
		ids = s.registry.TokenIDs()
	}
	tokens, err := s.registry.ResolveTokens(ids)
	if err != nil {
		return nil, err
	}

	type fetched struct {
		series domain.TokenSeries
		err    error
	}
	results := make([]fetched, len(tokens))

	// Fetches are independent per token; evaluation below stays sequential.
	g, gctx := errgroup.WithContext(ctx)
	sem := semaphore.NewWeighted(int64(s.concurrency))
	for i, tok := range tokens {
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)

			series, err := s.series(gctx, tok.ID)
			results[i] = fetched{series: series, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	evals := make([]domain.TokenEvaluation, 0, len(tokens))
	for i, tok := range tokens {
		s.log.Info("analyzing token", "token", tok.ID)
		if err := results[i].err; err != nil {
			s.metrics.Evaluation("token_health", domain.Classify(err))
			s.log.Warn("token skipped", "token", tok.ID, "reason", domain.Classify(err), "error", err)
			continue
		}
		health, err := s.health.Evaluate(tok.ID, results[i].series)
		s.metrics.Evaluation("token_health", domain.Classify(err))
		if err != nil {
			s.log.Warn("token skipped", "token", tok.ID, "reason", domain.Classify(err), "error", err)
			continue
		}
		sustainability := s.sustainabilityFor(tok, results[i].series)
		s.notifyReport(ctx, health, sustainability)
		evals = append(evals, domain.TokenEvaluation{Health: health, Sustainability: sustainability})
	}

	eco := s.eco.Aggregate(evals)
	s.metrics.EcosystemRun(eco.SustainabilityScore)
	s.log.Info("ecosystem evaluated",
		"tokens", len(eco.Tokens),
		"skipped", len(tokens)-len(eco.Tokens),
		"score", eco.SustainabilityScore,
		"status", eco.HealthStatus,
	)
	return eco, nil
}

// RunHealthCheck is a complete monitoring run: ecosystem rollup, every
// registry wallet, and tax distribution for every token with project wallets.
func (s *MonitorService) RunHealthCheck(ctx context.Context) (*domain.HealthCheckReport, error) {
	report := &domain.HealthCheckReport{
		RunID:           s.runID,
		Timestamp:       s.now(),
		Wallets:         make(map[string]domain.WalletActivitySummary),
		TaxDistribution: make(map[domain.TokenID]domain.TaxDistributionReport),
	}
	s.log.Info("running health check", "at", report.Timestamp)

	eco, err := s.CheckEcosystem(ctx, nil)
	if err != nil {
		return nil, err
	}
	report.Ecosystem = eco
	report.Tokens = eco.Tokens

	for _, w := range s.registry.Wallets() {
		s.log.Info("checking wallet", "wallet", w.Name)
		summary, err := s.checkWalletRef(ctx, domain.WalletRef{Name: w.Name, Address: w.Address})
		if err != nil {
			s.log.Warn("wallet skipped", "wallet", w.Name, "reason", domain.Classify(err), "error", err)
			continue
		}
		report.Wallets[w.Name] = *summary
	}

	for _, tok := range s.registry.Tokens() {
		if len(s.registry.ProjectWallets(tok.ID)) == 0 {
			continue
		}
		dist, err := s.CheckTaxDistribution(ctx, tok.ID)
		if err != nil {
			s.log.Warn("tax distribution skipped", "token", tok.ID, "error", err)
			continue
		}
		if len(dist.Distribution) == 0 {
			continue
		}
		report.TaxDistribution[tok.ID] = *dist
	}

	return report, ctx.Err()
}

// Relationships maps every reward asset to the registry tokens paying it.
// Assets keep first-seen order; registry tokens nobody rewards are appended.
func (s *MonitorService) Relationships() []domain.Relationship {
	return BuildRelationships(s.registry.Tokens())
}

// BuildRelationships is the reward graph of a token set.
func BuildRelationships(tokens []config.TokenConfig) []domain.Relationship {
	known := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		known[string(t.ID)] = true
	}

	index := make(map[string]int)
	var out []domain.Relationship
	add := func(asset string) int {
		if i, ok := index[asset]; ok {
			return i
		}
		index[asset] = len(out)
		out = append(out, domain.Relationship{Asset: asset, InRegistry: known[asset], RewardedBy: []domain.RewardLink{}})
		return len(out) - 1
	}

	for _, t := range tokens {
		for _, reward := range t.Rewards {
			i := add(reward)
			out[i].RewardedBy = append(out[i].RewardedBy, domain.RewardLink{Token: t.ID, Name: t.Name})
		}
	}
	for _, t := range tokens {
		add(string(t.ID))
	}
	return out
}

func (s *MonitorService) sustainabilityFor(tok config.TokenConfig, series domain.TokenSeries) *domain.SustainabilityReport {
	avgVolume := AverageVolume(series)
	supply, estimated := s.eco.SupplyValue(avgVolume, tok.MarketCapUSD)
	report := s.sustain.Evaluate(domain.SustainabilityInput{
		TokenID:          tok.ID,
		DailyVolume:      avgVolume,
		TaxRate:          tok.TaxRate,
		TotalSupplyValue: supply,
		DailyROI:         tok.DailyROI,
		SupplyEstimated:  estimated,
	})
	s.metrics.Evaluation("sustainability", "ok")
	return report
}

func (s *MonitorService) series(ctx context.Context, id domain.TokenID) (domain.TokenSeries, error) {
	key := domain.SeriesKey{TokenID: id, WindowDays: s.windowDays, Currency: s.currency}
	return s.cache.GetOrFetch(ctx, key, func(ctx context.Context) (domain.TokenSeries, error) {
		defer s.metrics.ObserveFetch("market", time.Now())
		return s.market.FetchSeries(ctx, id, s.windowDays, s.currency)
	})
}

func (s *MonitorService) transactions(ctx context.Context, address string) ([]domain.Transaction, error) {
	defer s.metrics.ObserveFetch("ledger", time.Now())
	txs, err := s.ledger.FetchTransactions(ctx, address)
	if err != nil && !errors.Is(err, domain.ErrNoData) {
		err = fmt.Errorf("%v: %w", err, domain.ErrNoData)
	}
	return txs, err
}

// fetchWallets fetches histories in parallel, preserving input order and
// dropping wallets that fail.
func (s *MonitorService) fetchWallets(ctx context.Context, refs []domain.WalletRef) []domain.ProjectWalletActivity {
	results := make([]*domain.ProjectWalletActivity, len(refs))
	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, ref := range refs {
		g.Go(func() error {
			txs, err := s.transactions(ctx, ref.Address)
			if err != nil {
				s.log.Warn("project wallet skipped", "wallet", ref.Identifier(), "error", err)
				return nil
			}
			results[i] = &domain.ProjectWalletActivity{Wallet: ref, Transactions: txs}
			return nil
		})
	}
	_ = g.Wait()

	out := make([]domain.ProjectWalletActivity, 0, len(refs))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out
}

func (s *MonitorService) notifyReport(ctx context.Context, health *domain.TokenHealthReport, sustainability *domain.SustainabilityReport) {
	if a, ok := health.Alert(); ok {
		s.notify(ctx, a)
	}
	if a, ok := sustainability.Alert(); ok {
		s.notify(ctx, a)
	}
}

func (s *MonitorService) notify(ctx context.Context, alert domain.Alert) {
	s.metrics.Alert(string(alert.Kind))
	if s.alerts == nil {
		return
	}
	if err := s.alerts.Notify(ctx, alert); err != nil {
		s.log.Warn("alert dispatch failed", "kind", alert.Kind, "subject", alert.Subject, "error", err)
	}
}
