package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder counts what flows through the bot. A nil *Recorder is valid and
// records nothing.
type Recorder struct {
	ticks      *prometheus.CounterVec
	malformed  prometheus.Counter
	candles    *prometheus.CounterVec
	signals    *prometheus.CounterVec
	closed     *prometheus.CounterVec
	reconnects *prometheus.CounterVec
	panics     prometheus.Counter
	suppressed prometheus.Counter
	connected  prometheus.Gauge
}

// New registers the bot's collectors on reg.
func New(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		ticks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "smc_ticks_total", Help: "Price ticks processed",
		}, []string{"instrument"}),
		malformed: f.NewCounter(prometheus.CounterOpts{
			Name: "smc_malformed_ticks_total", Help: "Stream records that could not be decoded",
		}),
		candles: f.NewCounterVec(prometheus.CounterOpts{
			Name: "smc_candles_closed_total", Help: "Candles finalized",
		}, []string{"instrument", "timeframe"}),
		signals: f.NewCounterVec(prometheus.CounterOpts{
			Name: "smc_signals_total", Help: "Trade signals emitted",
		}, []string{"instrument", "direction"}),
		closed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "smc_trades_closed_total", Help: "Active trades closed",
		}, []string{"instrument", "reason"}),
		reconnects: f.NewCounterVec(prometheus.CounterOpts{
			Name: "smc_reconnects_total", Help: "Stream reconnect attempts by cause",
		}, []string{"reason"}),
		panics: f.NewCounter(prometheus.CounterOpts{
			Name: "smc_dispatch_panics_total", Help: "Recovered panics while handling a tick",
		}),
		suppressed: f.NewCounter(prometheus.CounterOpts{
			Name: "smc_log_suppressed_total", Help: "Log lines dropped by the rate limiter",
		}),
		connected: f.NewGauge(prometheus.GaugeOpts{
			Name: "smc_stream_connected", Help: "1 while the pricing stream is connected",
		}),
	}
}

// NewRegistry returns a registry carrying the Go and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler serves g in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func (r *Recorder) Tick(instrument string) {
	if r == nil {
		return
	}
	r.ticks.WithLabelValues(instrument).Inc()
}

func (r *Recorder) Malformed() {
	if r == nil {
		return
	}
	r.malformed.Inc()
}

func (r *Recorder) CandleClosed(instrument, timeframe string) {
	if r == nil {
		return
	}
	r.candles.WithLabelValues(instrument, timeframe).Inc()
}

func (r *Recorder) Signal(instrument, direction string) {
	if r == nil {
		return
	}
	r.signals.WithLabelValues(instrument, direction).Inc()
}

func (r *Recorder) TradeClosed(instrument, reason string) {
	if r == nil {
		return
	}
	r.closed.WithLabelValues(instrument, reason).Inc()
}

func (r *Recorder) Reconnect(reason string) {
	if r == nil {
		return
	}
	r.reconnects.WithLabelValues(reason).Inc()
}

func (r *Recorder) Panic() {
	if r == nil {
		return
	}
	r.panics.Inc()
}

func (r *Recorder) Suppressed() {
	if r == nil {
		return
	}
	r.suppressed.Inc()
}

func (r *Recorder) SetConnected(up bool) {
	if r == nil {
		return
	}
	if up {
		r.connected.Set(1)
	} else {
		r.connected.Set(0)
	}
}
