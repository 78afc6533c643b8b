package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
)

// sample returns the counter value, or histogram sample count, of the
// series in family name whose labels include want.
func sample(t *testing.T, reg *prometheus.Registry, name string, want map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	series:
		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			for k, v := range want {
				if labels[k] != v {
					continue series
				}
			}
			if h := m.GetHistogram(); h != nil {
				return float64(h.GetSampleCount())
			}
			return m.GetCounter().GetValue()
		}
	}
	return 0
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.AuthOp("login", "ok")
	m.TokenRotated()

	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	if err := m.Middleware()(func(echo.Context) error { return nil })(c); err != nil {
		t.Errorf("Middleware() error = %v", err)
	}
}

func TestCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.AuthOp("login", "ok")
	m.AuthOp("login", "ok")
	m.AuthOp("login", "invalid_credentials")
	m.TokenRotated()

	if got := sample(t, reg, "api_universal_auth_operations_total", map[string]string{"op": "login", "outcome": "ok"}); got != 2 {
		t.Errorf("login ok = %v, want 2", got)
	}
	if got := sample(t, reg, "api_universal_auth_tokens_rotated_total", nil); got != 1 {
		t.Errorf("tokens rotated = %v, want 1", got)
	}
}

func TestMiddleware_LabelsByRoute(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	e := echo.New()
	e.Use(m.Middleware())
	e.GET("/users/:user", func(echo.Context) error { return echo.ErrNotFound })

	for _, path := range []string{"/users/1", "/users/alice"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusNotFound {
			t.Fatalf("GET %s = %d, want 404", path, rec.Code)
		}
	}
	want := map[string]string{"method": "GET", "route": "/users/:user", "status": "404"}
	if got := sample(t, reg, "api_universal_http_request_duration_seconds", want); got != 2 {
		t.Errorf("observations = %v, want 2", got)
	}
}
