package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMiddleware_CountsByRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New()

	r := gin.New()
	r.Use(m.Middleware())
	r.GET("/attempts/:id/status", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, id := range []string{"1", "2"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/attempts/"+id+"/status", nil))
	}

	got := testutil.ToFloat64(m.RequestCounter.WithLabelValues(http.MethodGet, "/attempts/:id/status", "200"))
	if got != 2 {
		t.Errorf("request counter = %v, want 2", got)
	}
}

func TestDomainCounters(t *testing.T) {
	m := New()
	m.AttemptStarted()
	m.AttemptFinalized("submitted")
	m.AttemptFinalized("expired")
	m.AttemptFinalized("expired")
	m.IntegrityFailure()

	if v := testutil.ToFloat64(m.AttemptsStarted); v != 1 {
		t.Errorf("started = %v", v)
	}
	if v := testutil.ToFloat64(m.AttemptsFinalized.WithLabelValues("expired")); v != 2 {
		t.Errorf("expired = %v", v)
	}
	if v := testutil.ToFloat64(m.IntegrityFailures); v != 1 {
		t.Errorf("integrity failures = %v", v)
	}

	var nilMetrics *Metrics
	nilMetrics.AttemptStarted()
}

func TestHandler_ExposesCollectors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New()
	m.AttemptStarted()

	r := gin.New()
	r.GET("/metrics", m.Handler())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "assessment_attempts_started_total 1") {
		t.Error("metrics output missing attempts counter")
	}
}
