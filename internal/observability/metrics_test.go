package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

func scrape(t *testing.T, metrics *Metrics) string {
	t.Helper()
	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	return rr.Body.String()
}

func TestMetricsMiddlewareRecordsRequest(t *testing.T) {
	metrics := NewMetrics()

	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	routeCtx := chi.NewRouteContext()
	routeCtx.RoutePatterns = append(routeCtx.RoutePatterns, "/test")

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx)
	req = req.WithContext(ctx)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusTeapot {
		t.Fatalf("expected status %d, got %d", http.StatusTeapot, rr.Code)
	}

	body := scrape(t, metrics)
	if !strings.Contains(body, "atlas_http_requests_total{code=\"418\",route=\"/test\"} 1") {
		t.Fatalf("expected metrics to record request, got: %s", body)
	}
	if !strings.Contains(body, "atlas_http_request_duration_seconds_bucket{route=\"/test\"") {
		t.Fatalf("expected duration histogram to be present, got: %s", body)
	}
}

func TestRecordAuthzDecision(t *testing.T) {
	metrics := NewMetrics()

	metrics.RecordAuthzDecision(true, "")
	metrics.RecordAuthzDecision(false, "not_granted")
	metrics.RecordAuthzDecision(false, "not_granted")

	body := scrape(t, metrics)
	if !strings.Contains(body, "atlas_authz_decisions_total{outcome=\"allow\",reason=\"allowed\"} 1") {
		t.Fatalf("expected allow decision, got: %s", body)
	}
	if !strings.Contains(body, "atlas_authz_decisions_total{outcome=\"deny\",reason=\"not_granted\"} 2") {
		t.Fatalf("expected deny decisions, got: %s", body)
	}
}

func TestRecordSnapshotLoad(t *testing.T) {
	metrics := NewMetrics()

	metrics.RecordSnapshotLoad("hit")
	metrics.RecordSnapshotLoad("miss")
	metrics.RecordSnapshotLoad("hit")

	body := scrape(t, metrics)
	if !strings.Contains(body, "atlas_authz_snapshot_loads_total{result=\"hit\"} 2") {
		t.Fatalf("expected snapshot hits, got: %s", body)
	}
	if !strings.Contains(body, "atlas_authz_snapshot_loads_total{result=\"miss\"} 1") {
		t.Fatalf("expected snapshot miss, got: %s", body)
	}
}

func TestNilMetricsAreNoOps(t *testing.T) {
	var metrics *Metrics

	metrics.RecordAuthzDecision(false, "error")
	metrics.RecordSnapshotLoad("error")

	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected %d, got %d", http.StatusServiceUnavailable, rr.Code)
	}
}
