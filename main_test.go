package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/TeneoProtocolAI/taxyield-monitor/internal/adapters/synthetic"
	"github.com/TeneoProtocolAI/taxyield-monitor/internal/config"
	"github.com/TeneoProtocolAI/taxyield-monitor/internal/core/domain"
)

type recordingSink struct {
	reports []domain.Report
}

func (s *recordingSink) Write(_ context.Context, r domain.Report) (string, error) {
	s.reports = append(s.reports, r)
	return string(r.Kind), nil
}

func testApp(t *testing.T) (*app, *bytes.Buffer, *bytes.Buffer, *recordingSink) {
	t.Helper()
	reg, err := config.LoadRegistry("")
	if err != nil {
		t.Fatalf("failed to load registry: %v", err)
	}

	cfg := config.Load()
	cfg.ReportDir = t.TempDir()
	cfg.FetchConcurrency = 2

	anchor := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	var stdout, stderr bytes.Buffer
	sink := &recordingSink{}
	return &app{
		cfg:      cfg,
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		registry: reg,
		market:   synthetic.NewMarket(anchor),
		ledger:   synthetic.NewLedger(anchor),
		sinks:    []domain.ReportSink{sink},
		stdout:   &stdout,
		stderr:   &stderr,
	}, &stdout, &stderr, sink
}

func TestDispatch_ExitCodes(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want int
	}{
		{"token", []string{"token", "remember"}, 0},
		{"unknown token", []string{"token", "remembr"}, 1},
		{"token missing arg", []string{"token"}, 2},
		{"wallet by address", []string{"wallet", "0x121ed41dee86741193f8856ec0cfb38158a7cbaa"}, 0},
		{"unknown wallet", []string{"wallet", "nobody"}, 1},
		{"contract wallet by name", []string{"wallet", "beast_contract"}, 0},
		{"ecosystem subset", []string{"ecosystem", "remember", "sursum"}, 0},
		{"ecosystem unknown member", []string{"ecosystem", "remember", "ghost"}, 1},
		{"sustainability", []string{"sustainability"}, 0},
		{"relationships", []string{"relationships"}, 0},
		{"list", []string{"list"}, 0},
		{"version", []string{"version"}, 0},
		{"unknown command", []string{"frobnicate"}, 2},
		{"bad flag", []string{"token", "-x", "remember"}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, _, stderr, _ := testApp(t)
			if got := a.dispatch(context.Background(), tt.args); got != tt.want {
				t.Errorf("exit = %d, want %d (stderr: %s)", got, tt.want, stderr.String())
			}
		})
	}
}

func TestDispatch_UnknownTokenMessage(t *testing.T) {
	a, _, stderr, _ := testApp(t)
	a.dispatch(context.Background(), []string{"token", "remembr"})

	msg := stderr.String()
	if !strings.Contains(msg, "[configuration_error]") || !strings.Contains(msg, `did you mean "remember"`) {
		t.Errorf("stderr = %q", msg)
	}
}

func TestDispatch_TokenWritesJSON(t *testing.T) {
	a, stdout, _, sink := testApp(t)
	if code := a.dispatch(context.Background(), []string{"token", "remember"}); code != 0 {
		t.Fatalf("exit = %d", code)
	}

	out := stdout.String()
	if !strings.Contains(out, `"health"`) || !strings.Contains(out, `"sustainability_ratio"`) {
		t.Errorf("stdout lacks JSON report: %s", out)
	}
	if len(sink.reports) != 1 || sink.reports[0].Kind != domain.ReportTokenHealth || sink.reports[0].Subject != "remember" {
		t.Errorf("sink reports = %+v", sink.reports)
	}
}

func TestDispatch_OutputFlag(t *testing.T) {
	a, stdout, _, _ := testApp(t)
	path := filepath.Join(t.TempDir(), "remember.json")

	if code := a.dispatch(context.Background(), []string{"token", "remember", "-o", path}); code != 0 {
		t.Fatalf("exit = %d", code)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("report not written: %v", err)
	}
	if !strings.Contains(stdout.String(), "report saved to "+path) {
		t.Errorf("stdout = %s", stdout.String())
	}
}

func TestDispatch_CheckAllSavesReport(t *testing.T) {
	a, stdout, _, sink := testApp(t)
	if code := a.dispatch(context.Background(), []string{"check-all"}); code != 0 {
		t.Fatalf("exit = %d", code)
	}

	matches, err := filepath.Glob(filepath.Join(a.cfg.ReportDir, "health_check_*.json"))
	if err != nil || len(matches) != 1 {
		t.Fatalf("expected one health_check report, got %v (%v)", matches, err)
	}
	if !strings.Contains(stdout.String(), "ecosystem:") {
		t.Errorf("stdout lacks summary: %s", stdout.String())
	}
	if len(sink.reports) != 1 || sink.reports[0].Kind != domain.ReportHealthCheck {
		t.Errorf("sink reports = %+v", sink.reports)
	}
}

func TestDispatch_NarrateWithoutKey(t *testing.T) {
	a, stdout, _, _ := testApp(t)
	if code := a.dispatch(context.Background(), []string{"ecosystem", "-narrate"}); code != 0 {
		t.Fatalf("exit = %d", code)
	}
	if strings.Contains(stdout.String(), `"narrative"`) {
		t.Error("narrative emitted without a narrator")
	}
}

type stubNarrator struct{}

func (stubNarrator) Summarize(context.Context, *domain.EcosystemHealth) (string, error) {
	return "All quiet.", nil
}

func TestDispatch_Narrate(t *testing.T) {
	a, stdout, _, _ := testApp(t)
	a.narrator = stubNarrator{}
	if code := a.dispatch(context.Background(), []string{"ecosystem", "-narrate", "remember"}); code != 0 {
		t.Fatalf("exit = %d", code)
	}
	if !strings.Contains(stdout.String(), `"narrative": "All quiet."`) {
		t.Errorf("stdout lacks narrative: %s", stdout.String())
	}
}

func TestRun_Usage(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := run(context.Background(), nil, &stdout, &stderr); code != 2 {
		t.Errorf("exit = %d, want 2", code)
	}
	if !strings.Contains(stderr.String(), "Usage: taxyield-monitor") {
		t.Errorf("stderr = %s", stderr.String())
	}
}

func TestParseArgs_Interspersed(t *testing.T) {
	a, _, _, _ := testApp(t)
	fs, out := a.newFlags("ecosystem")
	pos, err := parseArgs(fs, []string{"alpha", "-o", "x.json", "beta"})
	if err != nil {
		t.Fatalf("parseArgs failed: %v", err)
	}
	if len(pos) != 2 || pos[0] != "alpha" || pos[1] != "beta" {
		t.Errorf("positional = %v", pos)
	}
	if *out != "x.json" {
		t.Errorf("-o = %s", *out)
	}
}
