package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	r := New(reg)

	r.Tick("EUR_USD")
	r.Tick("EUR_USD")
	r.CandleClosed("EUR_USD", "H1")
	r.Signal("EUR_USD", "BUY")
	r.TradeClosed("EUR_USD", "STOP_LOSS")
	r.Reconnect("http_error")
	r.Malformed()
	r.Panic()
	r.Suppressed()
	r.SetConnected(true)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.ticks.WithLabelValues("EUR_USD")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.candles.WithLabelValues("EUR_USD", "H1")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.signals.WithLabelValues("EUR_USD", "BUY")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.closed.WithLabelValues("EUR_USD", "STOP_LOSS")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.reconnects.WithLabelValues("http_error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.malformed))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.panics))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.suppressed))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.connected))

	r.SetConnected(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(r.connected))
}

func TestNilRecorder(t *testing.T) {
	t.Parallel()

	var r *Recorder
	assert.NotPanics(t, func() {
		r.Tick("EUR_USD")
		r.Malformed()
		r.SetConnected(true)
		r.Panic()
	})
}

func TestHandler(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	New(reg).Tick("USD_JPY")

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `smc_ticks_total{instrument="USD_JPY"} 1`))
}
