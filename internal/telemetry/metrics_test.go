package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestMetrics_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(WithRegistry(reg), WithNamespace("test"))

	m.RecordRegistryFetch("index", nil)
	m.RecordRegistryFetch("index", errors.New("boom"))
	m.RecordHostRequest("create_blob", 201, 10*time.Millisecond)
	m.RecordHostRequest("create_blob", 0, time.Millisecond)
	m.RecordDevicePoll("authorization_pending")
	m.RecordPublish(nil)
	m.RecordChangedFiles(3)
	m.RecordChangedFiles(0)
	m.RecordHTTPRequest("POST", "/api/registry/update", 200, time.Millisecond)
	m.RecordHTTPRequest("GET", "", 404, time.Millisecond)

	if got := counterValue(t, reg, "test_registry_fetches_total", "kind", "index", "result", "success"); got != 1 {
		t.Errorf("registry success = %v, want 1", got)
	}
	if got := counterValue(t, reg, "test_registry_fetches_total", "kind", "index", "result", "error"); got != 1 {
		t.Errorf("registry error = %v, want 1", got)
	}
	if got := counterValue(t, reg, "test_git_host_requests_total", "operation", "create_blob", "status", "2xx"); got != 1 {
		t.Errorf("host 2xx = %v, want 1", got)
	}
	if got := counterValue(t, reg, "test_git_host_requests_total", "operation", "create_blob", "status", "error"); got != 1 {
		t.Errorf("host error = %v, want 1", got)
	}
	if got := counterValue(t, reg, "test_device_auth_polls_total", "outcome", "authorization_pending"); got != 1 {
		t.Errorf("device polls = %v, want 1", got)
	}
	if got := counterValue(t, reg, "test_changed_files_total"); got != 3 {
		t.Errorf("changed files = %v, want 3", got)
	}
	if got := counterValue(t, reg, "test_http_requests_total", "route", "/api/registry/update", "status", "2xx"); got != 1 {
		t.Errorf("http 2xx = %v, want 1", got)
	}
	if got := counterValue(t, reg, "test_http_requests_total", "route", "unmatched", "status", "4xx"); got != 1 {
		t.Errorf("http unmatched = %v, want 1", got)
	}
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.RecordRegistryFetch("index", nil)
	m.RecordHostRequest("get_branch", 200, time.Second)
	m.RecordDevicePoll("granted")
	m.RecordPublish(nil)
	m.RecordChangedFiles(1)
	m.RecordHTTPRequest("GET", "/healthz", 200, time.Second)
	m.SetEventSubscribers(2)
}

func TestStatusClass(t *testing.T) {
	tests := map[int]string{200: "2xx", 201: "2xx", 404: "4xx", 502: "5xx", 0: "error", -1: "error"}
	for code, want := range tests {
		if got := statusClass(code); got != want {
			t.Errorf("statusClass(%d) = %q, want %q", code, got, want)
		}
	}
}

func TestSpan_NoopProvider(t *testing.T) {
	ctx, span := StartSpan(context.Background(), "test")
	if ctx == nil || span == nil {
		t.Fatal("StartSpan returned nil")
	}
	EndSpan(span, errors.New("failed"))
}

// counterValue gathers reg and returns the counter named name whose labels
// match the given name/value pairs.
func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels ...string) float64 {
	t.Helper()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather error: %v", err)
	}

	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	metrics:
		for _, metric := range mf.GetMetric() {
			for i := 0; i+1 < len(labels); i += 2 {
				found := false
				for _, lp := range metric.GetLabel() {
					if lp.GetName() == labels[i] && lp.GetValue() == labels[i+1] {
						found = true
						break
					}
				}
				if !found {
					continue metrics
				}
			}
			return metric.GetCounter().GetValue()
		}
	}
	return 0
}
