package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/TeneoProtocolAI/taxyield-monitor/internal/adapters/report"
	"github.com/TeneoProtocolAI/taxyield-monitor/internal/core/domain"
	"github.com/TeneoProtocolAI/taxyield-monitor/internal/metrics"
	"github.com/TeneoProtocolAI/taxyield-monitor/pkg/version"
)

func (a *app) dispatch(ctx context.Context, args []string) int {
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "token":
		return a.cmdToken(ctx, rest)
	case "wallet":
		return a.cmdWallet(ctx, rest)
	case "tax":
		return a.cmdTax(ctx, rest)
	case "ecosystem":
		return a.cmdEcosystem(ctx, rest)
	case "sustainability":
		return a.cmdSustainability(ctx, rest)
	case "check-all":
		return a.cmdCheckAll(ctx, rest)
	case "list":
		return a.cmdList(rest)
	case "relationships":
		return a.cmdRelationships(ctx, rest)
	case "watch":
		return a.cmdWatch(ctx, rest)
	case "version":
		return cmdVersion(a.stdout)
	default:
		fmt.Fprintf(a.stderr, "unknown command %q\n\n", cmd)
		usage(a.stderr)
		return 2
	}
}

// newFlags returns a FlagSet with the shared -o flag.
func (a *app) newFlags(name string) (*flag.FlagSet, *string) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	out := fs.String("o", "", "save the JSON report to this path")
	return fs, out
}

// parseArgs parses flags that may appear before or after positional args.
func parseArgs(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		if fs.NArg() == 0 {
			return positional, nil
		}
		positional = append(positional, fs.Arg(0))
		args = fs.Args()[1:]
	}
}

func cmdVersion(w io.Writer) int {
	fmt.Fprintln(w, version.GetBuildInfo().String())
	return 0
}

func (a *app) cmdToken(ctx context.Context, args []string) int {
	fs, out := a.newFlags("token")
	pos, err := parseArgs(fs, args)
	if err != nil {
		return 2
	}
	if len(pos) != 1 {
		fmt.Fprintln(a.stderr, "usage: token <id> [-o path]")
		return 2
	}

	svc, err := a.newService()
	if err != nil {
		return a.fail(err, true)
	}
	analysis, err := svc.AnalyzeToken(ctx, domain.TokenID(pos[0]))
	if err != nil {
		return a.fail(err, true)
	}

	h, s := analysis.Health, analysis.Sustainability
	fmt.Fprintf(a.stdout, "%s: price %.6g (%+.2f%%, volatility %.2f%%), volume %.2f (%+.2f%%) %s\n",
		h.TokenID, h.CurrentPrice, h.PriceChangePct, h.PriceVolatilityPct, h.CurrentVolume, h.VolumeChangePct, h.VolumeHealth)
	fmt.Fprintf(a.stdout, "  sustainability ratio %s (%s)%s\n",
		formatRatio(s.SustainabilityRatio), domain.ClassifyRatio(float64(s.SustainabilityRatio)), estimatedMark(s.SupplyEstimated))

	return a.emit(ctx, svc.RunID(), domain.ReportTokenHealth, string(h.TokenID), analysis, *out, false)
}

func (a *app) cmdWallet(ctx context.Context, args []string) int {
	fs, out := a.newFlags("wallet")
	pos, err := parseArgs(fs, args)
	if err != nil {
		return 2
	}
	if len(pos) != 1 {
		fmt.Fprintln(a.stderr, "usage: wallet <name|address> [-o path]")
		return 2
	}

	svc, err := a.newService()
	if err != nil {
		return a.fail(err, true)
	}
	summary, err := svc.CheckWallet(ctx, pos[0])
	if err != nil {
		return a.fail(err, true)
	}

	if summary.NoActivity {
		fmt.Fprintf(a.stdout, "%s: no transactions found\n", summary.Wallet)
	} else {
		fmt.Fprintf(a.stdout, "%s: %d transactions (%d in, %d out), %d above %g\n",
			summary.Wallet, summary.TotalCount, summary.IncomingCount, summary.OutgoingCount,
			summary.LargeCount, summary.LargeThreshold)
	}
	return a.emit(ctx, svc.RunID(), domain.ReportWalletActivity, summary.Wallet, summary, *out, false)
}

func (a *app) cmdTax(ctx context.Context, args []string) int {
	fs, out := a.newFlags("tax")
	pos, err := parseArgs(fs, args)
	if err != nil {
		return 2
	}
	if len(pos) != 1 {
		fmt.Fprintln(a.stderr, "usage: tax <id> [-o path]")
		return 2
	}

	svc, err := a.newService()
	if err != nil {
		return a.fail(err, true)
	}
	dist, err := svc.CheckTaxDistribution(ctx, domain.TokenID(pos[0]))
	if err != nil {
		return a.fail(err, true)
	}

	if len(dist.Distribution) == 0 {
		fmt.Fprintf(a.stdout, "%s: no incoming transfers on project wallets\n", dist.TokenID)
	}
	for name, w := range dist.Distribution {
		fmt.Fprintf(a.stdout, "%s: collected %.4f over %d days (avg %.4f/day)\n",
			name, w.TotalCollected, w.ActiveDays, w.AvgDailyCollection)
	}
	return a.emit(ctx, svc.RunID(), domain.ReportTaxDistribution, string(dist.TokenID), dist, *out, false)
}

type ecosystemDocument struct {
	*domain.EcosystemHealth
	Narrative string `json:"narrative,omitempty"`
}

func (a *app) cmdEcosystem(ctx context.Context, args []string) int {
	fs, out := a.newFlags("ecosystem")
	narrative := fs.Bool("narrate", false, "append an LLM-written summary (needs OPENAI_API_KEY)")
	pos, err := parseArgs(fs, args)
	if err != nil {
		return 2
	}

	ids := make([]domain.TokenID, len(pos))
	for i, p := range pos {
		ids[i] = domain.TokenID(p)
	}

	svc, err := a.newService()
	if err != nil {
		return a.fail(err, true)
	}
	eco, err := svc.CheckEcosystem(ctx, ids)
	if err != nil {
		return a.fail(err, len(ids) > 0)
	}
	a.printEcosystem(eco)

	doc := ecosystemDocument{EcosystemHealth: eco}
	if *narrative {
		doc.Narrative = a.narrate(ctx, eco)
		if doc.Narrative != "" {
			fmt.Fprintf(a.stdout, "\n%s\n", doc.Narrative)
		}
	}
	return a.emit(ctx, svc.RunID(), domain.ReportEcosystem, "ecosystem", doc, *out, false)
}

func (a *app) cmdSustainability(ctx context.Context, args []string) int {
	fs, out := a.newFlags("sustainability")
	if _, err := parseArgs(fs, args); err != nil {
		return 2
	}

	svc, err := a.newService()
	if err != nil {
		return a.fail(err, false)
	}
	eco, err := svc.CheckEcosystem(ctx, nil)
	if err != nil {
		return a.fail(err, false)
	}

	for _, id := range a.registry.TokenIDs() {
		s, ok := eco.Sustainability[id]
		if !ok {
			continue
		}
		fmt.Fprintf(a.stdout, "%-12s revenue %12.2f  required %12.2f  ratio %8s  %s%s\n",
			id, s.DailyTaxRevenue, s.RequiredPayouts, formatRatio(s.SustainabilityRatio),
			domain.ClassifyRatio(float64(s.SustainabilityRatio)), estimatedMark(s.SupplyEstimated))
	}
	return a.emit(ctx, svc.RunID(), domain.ReportSustainability, "ecosystem", eco.Sustainability, *out, false)
}

func (a *app) cmdCheckAll(ctx context.Context, args []string) int {
	fs, out := a.newFlags("check-all")
	if _, err := parseArgs(fs, args); err != nil {
		return 2
	}

	svc, err := a.newService()
	if err != nil {
		return a.fail(err, false)
	}
	rep, err := svc.RunHealthCheck(ctx)
	if err != nil {
		return a.fail(err, false)
	}

	a.printEcosystem(rep.Ecosystem)
	fmt.Fprintf(a.stdout, "wallets checked: %d, tokens with tax data: %d\n", len(rep.Wallets), len(rep.TaxDistribution))
	return a.emit(ctx, rep.RunID, domain.ReportHealthCheck, "ecosystem", rep, *out, true)
}

func (a *app) cmdList(args []string) int {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	tw := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tTAX\tDAILY ROI\tREWARDS")
	for _, t := range a.registry.Tokens() {
		fmt.Fprintf(tw, "%s\t%s\t%.2f%%\t%.2f%%\t%s\n",
			t.ID, t.Name, t.TaxRate*100, t.DailyROI*100, strings.Join(t.Rewards, ", "))
	}
	if err := tw.Flush(); err != nil {
		return 1
	}
	return 0
}

func (a *app) cmdRelationships(ctx context.Context, args []string) int {
	fs, out := a.newFlags("relationships")
	if _, err := parseArgs(fs, args); err != nil {
		return 2
	}

	svc, err := a.newService()
	if err != nil {
		return a.fail(err, false)
	}
	rels := svc.Relationships()
	for _, r := range rels {
		if len(r.RewardedBy) == 0 {
			continue
		}
		payers := make([]string, len(r.RewardedBy))
		for i, l := range r.RewardedBy {
			payers[i] = l.Name
		}
		fmt.Fprintf(a.stdout, "%s <- %s\n", r.Asset, strings.Join(payers, ", "))
	}
	return a.emit(ctx, svc.RunID(), domain.ReportRelationships, "ecosystem", rels, *out, false)
}

func (a *app) cmdWatch(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	interval := fs.Duration("interval", a.cfg.CheckInterval, "time between ecosystem checks")
	addr := fs.String("metrics-addr", a.cfg.MetricsAddr, "address serving /metrics (empty disables)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *interval <= 0 {
		fmt.Fprintln(a.stderr, "interval must be positive")
		return 2
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.metrics = metrics.New(reg)

	var srv *http.Server
	if *addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		srv = &http.Server{Addr: *addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.log.Error("metrics server failed", "error", err)
			}
		}()
		a.log.Info("serving metrics", "addr", *addr)
	}

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()
	for {
		a.watchOnce(ctx)
		select {
		case <-ctx.Done():
			if srv != nil {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				_ = srv.Shutdown(shutdownCtx)
				cancel()
			}
			return 0
		case <-ticker.C:
		}
	}
}

func (a *app) watchOnce(ctx context.Context) {
	svc, err := a.newService()
	if err != nil {
		a.log.Error("run setup failed", "error", err)
		return
	}
	eco, err := svc.CheckEcosystem(ctx, nil)
	if err != nil {
		a.log.Error("ecosystem check failed", "error", err)
		return
	}
	a.printEcosystem(eco)
	a.emit(ctx, svc.RunID(), domain.ReportEcosystem, "ecosystem", eco, "", true)
}

func (a *app) printEcosystem(eco *domain.EcosystemHealth) {
	if eco == nil {
		return
	}
	for _, id := range a.registry.TokenIDs() {
		h, ok := eco.Tokens[id]
		if !ok {
			continue
		}
		s := eco.Sustainability[id]
		fmt.Fprintf(a.stdout, "%-12s %+8.2f%%  %-12s  ratio %s\n",
			id, h.PriceChangePct, h.VolumeHealth, formatRatio(s.SustainabilityRatio))
	}
	fmt.Fprintf(a.stdout, "ecosystem: %s (score %.2f over %d tokens, total volume %.2f)\n",
		eco.HealthStatus, eco.SustainabilityScore, eco.ScoredTokens, eco.TotalVolume)
	if eco.EstimationNote != "" {
		fmt.Fprintf(a.stdout, "note: %s\n", eco.EstimationNote)
	}
}

func (a *app) narrate(ctx context.Context, eco *domain.EcosystemHealth) string {
	if a.narrator == nil {
		a.log.Warn("narrative requested but OPENAI_API_KEY is not set")
		return ""
	}
	text, err := a.narrator.Summarize(ctx, eco)
	if err != nil {
		a.log.Warn("narrative failed", "error", err)
		return ""
	}
	return text
}

// emit hands the report to every configured sink. The JSON document goes to
// stdout unless a path was given or always is set, in which case it is saved
// under REPORT_DIR.
func (a *app) emit(ctx context.Context, runID string, kind domain.ReportKind, subject string, body any, out string, always bool) int {
	rep := domain.Report{RunID: runID, Kind: kind, Subject: subject, Body: body}

	for _, sink := range a.sinks {
		if _, err := sink.Write(ctx, rep); err != nil {
			a.log.Warn("report sink failed", "kind", kind, "error", err)
		}
	}

	if out == "" && !always {
		enc := json.NewEncoder(a.stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(body); err != nil {
			fmt.Fprintf(a.stderr, "failed to encode report: %v\n", err)
			return 1
		}
		return 0
	}

	path, err := report.NewJSONFileSink(a.cfg.ReportDir, out).Write(ctx, rep)
	if err != nil {
		fmt.Fprintf(a.stderr, "%v\n", err)
		return 1
	}
	fmt.Fprintf(a.stdout, "report saved to %s\n", path)
	return 0
}

// fail prints a classified message. Only a configuration error for a
// directly requested entity is a failing exit.
func (a *app) fail(err error, direct bool) int {
	fmt.Fprintln(a.stderr, describe(err))
	if direct && errors.Is(err, domain.ErrConfiguration) {
		return 1
	}
	return 0
}

func describe(err error) string {
	return fmt.Sprintf("[%s] %v", domain.Classify(err), err)
}

func formatRatio(r domain.Ratio) string {
	if !r.IsFinite() {
		return "inf"
	}
	return fmt.Sprintf("%.2f", float64(r))
}

func estimatedMark(estimated bool) string {
	if estimated {
		return " (supply estimated)"
	}
	return ""
}
