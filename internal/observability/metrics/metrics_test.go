package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNormalizePath(t *testing.T) {
	cases := map[string]string{
		"/healthz":                                    "/healthz",
		"/v1/audits":                                  "/v1/audits",
		"/v1/audits/abc":                              "/v1/audits/{id}",
		"/v1/audits/abc/next":                         "/v1/audits/{id}/next",
		"/v1/audits/abc/sections/seeIt/criteria/balisage/eval": "/v1/audits/{id}/sections/{category}/criteria/{key}/eval",
		"/v1/audits/abc/golden-rules/accueil":         "/v1/audits/{id}/golden-rules/{key}",
		"/photos/3f2a.png":                            "/photos/{key}",
	}
	for in, want := range cases {
		if got := normalizePath(in); got != want {
			t.Fatalf("normalizePath(%q) = %q, want %q", in, got, want)
		}
	}
}

func scrape(t *testing.T, h http.Handler) string {
	t.Helper()
	res := httptest.NewRecorder()
	h.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(res.Body)
	return string(body)
}

func TestHTTPServerMetricsRecordsEditorActivity(t *testing.T) {
	m := NewHTTPServerMetrics("api")
	handler := m.Middleware("api", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/v1/audits/a-1/next", nil))

	m.RecordTransition("next")
	m.RecordFieldWrite("eval")
	m.RecordReportCache(true)

	out := scrape(t, m.Handler())
	for _, want := range []string{
		`catman_http_requests_total{method="POST",path="/v1/audits/{id}/next",service="api",status="204"} 1`,
		`catman_wizard_transitions_total{kind="next",service="api"} 1`,
		`catman_editor_field_writes_total{field="eval",service="api"} 1`,
		`catman_report_cache_lookups_total{result="hit",service="api"} 1`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in scrape output:\n%s", want, out)
		}
	}
}

func TestWorkerMetricsRecordsDeliveries(t *testing.T) {
	m := NewWorkerMetrics("worker")
	m.StartDelivery()
	m.FinishDelivery("worker", 10*time.Millisecond, errors.New("smtp down"))

	out := scrape(t, m.Handler())
	if !strings.Contains(out, `catman_worker_report_delivery_total{service="worker",status="error"} 1`) {
		t.Fatalf("expected error delivery sample:\n%s", out)
	}
	if !strings.Contains(out, `catman_worker_report_delivery_in_flight{service="worker"} 0`) {
		t.Fatalf("expected in-flight gauge back to zero:\n%s", out)
	}
}

func TestDependencyMetricsTrackOutcomesAndBreakers(t *testing.T) {
	m := NewHTTPServerMetrics("api")
	m.ObserveDependencyCall("postgres", "postgres.set_step", "retry")
	m.ObserveDependencyCall("postgres", "postgres.set_step", "success")
	m.ObserveBreakerState("smtp.send", "open")
	m.ObserveBreakerState("smtp.send", "bogus")

	out := scrape(t, m.Handler())
	for _, want := range []string{
		`catman_dependency_calls_total{dependency="postgres",operation="postgres.set_step",outcome="retry",service="api"} 1`,
		`catman_dependency_calls_total{dependency="postgres",operation="postgres.set_step",outcome="success",service="api"} 1`,
		`catman_dependency_breaker_state{operation="smtp.send",service="api"} 2`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in scrape output:\n%s", want, out)
		}
	}

	w := NewWorkerMetrics("worker")
	w.ObserveDependencyCall("smtp", "smtp.send", "failure")
	if out := scrape(t, w.Handler()); !strings.Contains(out, `catman_dependency_calls_total{dependency="smtp",operation="smtp.send",outcome="failure",service="worker"} 1`) {
		t.Fatalf("expected worker dependency sample:\n%s", out)
	}
}
