package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_Counts(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordSession("minted")
	c.RecordSession("minted")
	c.RecordTenantOp("create", "ok")
	c.RecordPublicCache("hit")
	c.ObserveStoreLatency("get", 5*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.sessions.WithLabelValues("minted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.tenantOps.WithLabelValues("create", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.publicCache.WithLabelValues("hit")))
	assert.Equal(t, 1, testutil.CollectAndCount(c.storeLatency))
}

func TestHandler_ServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordTenantOp("update", "conflict")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	Handler(reg).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	body, _ := io.ReadAll(w.Body)
	assert.Contains(t, string(body), "consultapp_tenant_ops_total")
}

func TestNop(t *testing.T) {
	assert.NotPanics(t, func() {
		Nop.RecordSession("x")
		Nop.RecordTenantOp("a", "b")
		Nop.RecordPublicCache("miss")
		Nop.ObserveStoreLatency("get", time.Second)
	})
}
