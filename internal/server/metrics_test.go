package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

// counterValue returns the value of the counter series in reg whose label
// name has value, or -1 if it is absent.
func counterValue(t *testing.T, reg *prometheus.Registry, metric, name, value string) float64 {
	t.Helper()
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() != metric {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == name && lp.GetValue() == value {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return -1
}

// gaugeValue returns the value of an unlabelled gauge, or -1 if absent.
func gaugeValue(t *testing.T, reg *prometheus.Registry, metric string) float64 {
	t.Helper()
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() == metric && len(mf.GetMetric()) == 1 {
			return mf.GetMetric()[0].GetGauge().GetValue()
		}
	}
	return -1
}

// fakeStats implements PartitionStats.
type fakeStats struct {
	// n is returned by Len.
	n int
	// loads is returned by Loads.
	loads int64
}

func (f fakeStats) Len() int     { return f.n }
func (f fakeStats) Loads() int64 { return f.loads }

func Test_Metrics_EndpointServesIsolatedRegistry(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t, &fakeOrchestrator{})

	w := do(s, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", w.Code)
	}
	if !strings.HasPrefix(w.Header().Get("Content-Type"), "text/plain") {
		t.Errorf("want text/plain content-type, got %q", w.Header().Get("Content-Type"))
	}
}

func Test_Metrics_ChatOutcomeCounted(t *testing.T) {
	t.Parallel()
	s, reg := newTestServer(t, &fakeOrchestrator{})

	do(s, chatRequestWith("Bearer x", `{"query":"q"}`))

	if got := counterValue(t, reg, "rolerag_chat_requests_total", "outcome", "ok"); got != 1 {
		t.Errorf("chat_requests_total{outcome=ok}: want 1, got %v", got)
	}
}

func Test_Metrics_HTTPRequestsUseRoutePattern(t *testing.T) {
	t.Parallel()
	s, reg := newTestServer(t, &fakeOrchestrator{})

	do(s, httptest.NewRequest(http.MethodGet, "/health", nil))

	if got := counterValue(t, reg, "rolerag_http_requests_total", labelHandler, "/health"); got != 1 {
		t.Errorf("http_requests_total{handler=/health}: want 1, got %v", got)
	}
}

func Test_Metrics_LoginOutcome(t *testing.T) {
	t.Parallel()
	s, reg := newTestServer(t, &fakeOrchestrator{})

	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader("username=a&password=b"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	do(s, req)

	if got := counterValue(t, reg, "rolerag_auth_logins_total", "outcome", "accepted"); got != 1 {
		t.Errorf("logins_total{outcome=accepted}: want 1, got %v", got)
	}
}

func Test_Metrics_PartitionStats(t *testing.T) {
	t.Parallel()
	reg := prometheus.NewRegistry()
	newServerMetrics(reg, fakeStats{n: 3, loads: 4})

	if got := gaugeValue(t, reg, "rolerag_index_partitions_loaded"); got != 3 {
		t.Errorf("partitions_loaded: want 3, got %v", got)
	}

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() == "rolerag_index_loads_total" {
			if v := mf.GetMetric()[0].GetCounter().GetValue(); v != 4 {
				t.Errorf("loads_total: want 4, got %v", v)
			}
			return
		}
	}
	t.Error("rolerag_index_loads_total not registered")
}
