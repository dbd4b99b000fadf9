package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/smctrader/config"
	"github.com/rustyeddy/smctrader/market"
	"github.com/rustyeddy/smctrader/metrics"
)

type sourceFunc func(ctx context.Context, h market.TickHandler) error

func (f sourceFunc) Stream(ctx context.Context, h market.TickHandler) error { return f(ctx, h) }

type httpStatus int

func (e httpStatus) Error() string   { return fmt.Sprintf("http %d", int(e)) }
func (e httpStatus) StatusCode() int { return int(e) }

func fastReconnect() config.ReconnectConfig {
	return config.ReconnectConfig{
		Strategy:   "fixed",
		ErrorDelay: time.Millisecond,
		LostDelay:  time.Millisecond,
		MaxDelay:   10 * time.Millisecond,
	}
}

func runAsync(ctx context.Context, s *Supervisor) <-chan error {
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	return done
}

func waitDone(t *testing.T, done <-chan error) {
	t.Helper()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("supervisor did not stop")
	}
}

func joined(b *Bot) string {
	return strings.Join(b.Logs().Lines(), "\n")
}

func TestSupervisor_RetriesThenStreams(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	rec := metrics.New(reg)
	b := New([]string{"EUR_USD"}, WithMetrics(rec))

	var attempts atomic.Int32
	src := sourceFunc(func(ctx context.Context, h market.TickHandler) error {
		switch attempts.Add(1) {
		case 1:
			return httpStatus(401)
		case 2:
			return errors.New("connection reset by peer")
		case 3:
			return nil
		}
		h.Connected()
		h.Tick(market.Tick{Instrument: "EUR_USD", Time: time.Now(), Bid: 1.1, Ask: 1.1002})
		h.Malformed(errors.New("bad json"))
		<-ctx.Done()
		return ctx.Err()
	})

	s := NewSupervisor(b, src, fastReconnect(), rec)
	done := runAsync(context.Background(), s)

	require.Eventually(t, func() bool {
		return b.Snapshot().ConnectionStatus == StatusConnected &&
			b.Snapshot().Instruments["EUR_USD"].Price > 0
	}, 5*time.Second, 5*time.Millisecond)

	s.Stop()
	waitDone(t, done)

	assert.Equal(t, int32(4), attempts.Load())
	assert.Equal(t, StatusStopped, b.Snapshot().ConnectionStatus)

	logs := joined(b)
	for _, want := range []string{
		"Trading bot started",
		"Connection Error: http 401",
		"Connection Error: connection reset by peer",
		"Connection Error: stream closed by server",
		"Connection successful",
		"Error processing tick: bad json",
		"Trading bot stopped by user",
		"Trading bot stream ended",
	} {
		assert.Contains(t, logs, want)
	}

	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(`
# HELP smc_reconnects_total Stream reconnect attempts by cause
# TYPE smc_reconnects_total counter
smc_reconnects_total{reason="eof"} 1
smc_reconnects_total{reason="lost"} 1
smc_reconnects_total{reason="status"} 1
# HELP smc_stream_connected 1 while the pricing stream is connected
# TYPE smc_stream_connected gauge
smc_stream_connected 0
`), "smc_reconnects_total", "smc_stream_connected"))
}

func TestSupervisor_StatusDuringBackoff(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		err    error
		status string
	}{
		{"rejected", httpStatus(503), "Error 503"},
		{"dropped", errors.New("unexpected EOF"), StatusLost},
		{"ended", nil, StatusLost},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			b := New([]string{"EUR_USD"})
			cfg := fastReconnect()
			cfg.ErrorDelay = time.Hour
			cfg.LostDelay = time.Hour

			src := sourceFunc(func(ctx context.Context, h market.TickHandler) error { return tt.err })
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			done := runAsync(ctx, NewSupervisor(b, src, cfg, nil))

			require.Eventually(t, func() bool {
				return b.Snapshot().ConnectionStatus == tt.status
			}, 5*time.Second, 5*time.Millisecond)

			// cancel interrupts the hour long wait
			cancel()
			waitDone(t, done)
			assert.Equal(t, StatusStopped, b.Snapshot().ConnectionStatus)
		})
	}
}

func TestSupervisor_CancelUnblocksStream(t *testing.T) {
	t.Parallel()

	b := New([]string{"EUR_USD"})
	reading := make(chan struct{})
	var once atomic.Bool
	src := sourceFunc(func(ctx context.Context, h market.TickHandler) error {
		h.Connected()
		if once.CompareAndSwap(false, true) {
			close(reading)
		}
		<-ctx.Done()
		return ctx.Err()
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := runAsync(ctx, NewSupervisor(b, src, fastReconnect(), nil))

	<-reading
	b.Tick(market.Tick{Instrument: "EUR_USD", Time: at(10, 0), Bid: 1.1, Ask: 1.1})
	cancel()
	waitDone(t, done)

	// state is left as it was
	snap := b.Snapshot()
	assert.Equal(t, StatusStopped, snap.ConnectionStatus)
	assert.Equal(t, 1.1, snap.Instruments["EUR_USD"].Price)
	assert.NotContains(t, joined(b), "Connection Error")
}

func TestSupervisor_StopBeforeRun(t *testing.T) {
	t.Parallel()

	b := New([]string{"EUR_USD"})
	var calls atomic.Int32
	s := NewSupervisor(b, sourceFunc(func(ctx context.Context, _ market.TickHandler) error {
		calls.Add(1)
		<-ctx.Done()
		return ctx.Err()
	}), fastReconnect(), nil)
	assert.NotPanics(t, s.Stop)
	assert.NotContains(t, joined(b), "stopped by user")

	// the earlier Stop still holds once Run starts
	waitDone(t, runAsync(context.Background(), s))
	assert.Zero(t, calls.Load())
	assert.Equal(t, StatusStopped, b.Snapshot().ConnectionStatus)
}

func TestSupervisor_BackOffStrategies(t *testing.T) {
	t.Parallel()

	b := New(nil)

	fixed := NewSupervisor(b, nil, config.ReconnectConfig{Strategy: "fixed", MaxDelay: time.Minute}, nil).
		newBackOff(15 * time.Second)
	for i := 0; i < 3; i++ {
		assert.Equal(t, 15*time.Second, fixed.NextBackOff())
	}

	exp := NewSupervisor(b, nil, config.ReconnectConfig{Strategy: "exponential", MaxDelay: 40 * time.Second}, nil).
		newBackOff(10 * time.Second)
	var got []time.Duration
	for i := 0; i < 6; i++ {
		got = append(got, exp.NextBackOff())
	}
	assert.Equal(t, []time.Duration{
		10 * time.Second, 15 * time.Second, 22500 * time.Millisecond,
		33750 * time.Millisecond, 40 * time.Second, 40 * time.Second,
	}, got)

	exp.Reset()
	assert.Equal(t, 10*time.Second, exp.NextBackOff())
}
