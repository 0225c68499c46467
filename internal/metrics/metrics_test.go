package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Evaluation("token_health", "ok")
	m.Evaluation("token_health", "ok")
	m.Evaluation("token_health", "no_data")
	m.Alert("volume_anomaly")
	m.EcosystemRun(1.25)
	m.ObserveFetch("market", time.Now())

	if got := testutil.ToFloat64(m.evaluations.WithLabelValues("token_health", "ok")); got != 2 {
		t.Errorf("ok evaluations = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.alerts.WithLabelValues("volume_anomaly")); got != 1 {
		t.Errorf("alerts = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.ecosystemScore); got != 1.25 {
		t.Errorf("score = %v, want 1.25", got)
	}
	if got := testutil.ToFloat64(m.runs); got != 1 {
		t.Errorf("runs = %v, want 1", got)
	}
	if n := testutil.CollectAndCount(m.fetchDuration); n != 1 {
		t.Errorf("fetch histogram series = %d, want 1", n)
	}

	if _, err := reg.Gather(); err != nil {
		t.Errorf("Gather failed: %v", err)
	}
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.Evaluation("token_health", "ok")
	m.Alert("volume_anomaly")
	m.ObserveFetch("ledger", time.Now())
	m.EcosystemRun(0)
}

func TestNew_UnregisteredCollectors(t *testing.T) {
	// Two instances on a nil registerer must not collide.
	a, b := New(nil), New(nil)
	a.Alert("x")
	b.Alert("x")
	if testutil.ToFloat64(a.alerts.WithLabelValues("x")) != 1 {
		t.Error("unregistered collector did not count")
	}
}
