package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveRequest(t *testing.T) {
	m := New()
	m.ObserveRequest(http.MethodGet, "/operations", http.StatusOK, 15*time.Millisecond)
	m.ObserveRequest(http.MethodGet, "/operations", http.StatusOK, 5*time.Millisecond)
	m.ObserveRequest(http.MethodGet, "", http.StatusNotFound, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues("GET", "/operations", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues("GET", "unmatched", "404")))
}

func TestBusinessCounters(t *testing.T) {
	m := New()
	m.InvoiceGenerated()
	m.InvoiceGenerated()
	m.PaymentGenerated()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.invoicesGenerated))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.paymentsGenerated))
}

func TestHandler(t *testing.T) {
	m := New()
	m.InvoiceGenerated()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "haulops_invoices_generated_total 1")
}
