package replay

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/smctrader/bot"
	"github.com/rustyeddy/smctrader/market"
)

type recorder struct {
	connected int
	ticks     []market.Tick
	bad       []error
	onTick    func()
}

func (r *recorder) Connected() { r.connected++ }

func (r *recorder) Tick(t market.Tick) {
	r.ticks = append(r.ticks, t)
	if r.onTick != nil {
		r.onTick()
	}
}

func (r *recorder) Malformed(err error) { r.bad = append(r.bad, err) }

const ticksCSV = `time,instrument,bid,ask
2024-06-21T10:05:00Z,EUR_USD,1.1000,1.1002
2024-06-21T10:20:00Z,EUR_USD,1.1010,1.1012
2024-06-21T10:30:00Z,EUR_USD,abc,1.1012
2024-06-21T10:40:00.500Z,EUR_USD,1.0990,1.0992
not-a-time,EUR_USD,1.0,1.0
2024-06-21T10:59:00Z,EUR_USD
2024-06-21T10:59:30Z,EUR_USD,1.1005,1.1007,extra,cols
2024-06-21T11:01:00Z,EUR_USD,1.1020,1.1022
`

func writeTicks(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "ticks.csv")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestCSV_ReplaysAndSkipsBadRows(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	require.NoError(t, CSV(context.Background(), writeTicks(t, ticksCSV), rec, Options{}))

	assert.Equal(t, 1, rec.connected)
	require.Len(t, rec.ticks, 5)
	assert.Equal(t, "EUR_USD", rec.ticks[0].Instrument)
	assert.Equal(t, time.Date(2024, 6, 21, 10, 5, 0, 0, time.UTC), rec.ticks[0].Time)
	assert.Equal(t, time.Date(2024, 6, 21, 10, 40, 0, 500e6, time.UTC), rec.ticks[2].Time)
	assert.InDelta(t, 1.1006, rec.ticks[3].Mid(), 1e-12)

	require.Len(t, rec.bad, 3)
	for _, err := range rec.bad {
		assert.ErrorIs(t, err, ErrBadRow)
	}
	assert.Contains(t, rec.bad[0].Error(), `bad bid "abc"`)
}

func TestRead_NoHeader(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	in := "2024-06-21T10:05:00Z,USD_JPY,150.00,150.02\n2024-06-21T10:06:00Z,USD_JPY,150.10,150.12\n"
	require.NoError(t, Read(context.Background(), strings.NewReader(in), rec, Options{}))
	require.Len(t, rec.ticks, 2)
	assert.Empty(t, rec.bad)
}

func TestRead_FromTo(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	opts := Options{
		From: time.Date(2024, 6, 21, 10, 20, 0, 0, time.UTC),
		To:   time.Date(2024, 6, 21, 11, 1, 0, 0, time.UTC),
	}
	require.NoError(t, Read(context.Background(), strings.NewReader(ticksCSV), rec, opts))
	require.Len(t, rec.ticks, 3)
	assert.Equal(t, opts.From, rec.ticks[0].Time)
}

func TestRead_Cancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rec := &recorder{onTick: cancel}
	err := Read(ctx, strings.NewReader(ticksCSV), rec, Options{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, rec.ticks, 1)
}

func TestRead_SpeedHonorsCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	// 15 recorded minutes at 1x would take far longer than the deadline
	rec := &recorder{}
	start := time.Now()
	err := Read(ctx, strings.NewReader(ticksCSV), rec, Options{Speed: 1})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Len(t, rec.ticks, 1)
}

func TestSource_DrivesBot(t *testing.T) {
	t.Parallel()

	b := bot.New([]string{"EUR_USD"})
	src := &Source{Path: writeTicks(t, ticksCSV)}
	require.NoError(t, src.Stream(context.Background(), b))

	h4, h1, ok := b.Candles("EUR_USD")
	require.True(t, ok)
	assert.Empty(t, h4)
	require.Len(t, h1, 1)
	c := h1[0]
	assert.Equal(t, time.Date(2024, 6, 21, 10, 0, 0, 0, time.UTC).Unix(), c.Time)
	assert.InDelta(t, 1.1001, c.Open, 1e-12)
	assert.InDelta(t, 1.1011, c.High, 1e-12)
	assert.InDelta(t, 1.0991, c.Low, 1e-12)
	assert.InDelta(t, 1.1006, c.Close, 1e-12)

	snap := b.Snapshot()
	assert.Equal(t, bot.StatusConnected, snap.ConnectionStatus)
	assert.Equal(t, 1, snap.Instruments["EUR_USD"].H1Candles)
	assert.Contains(t, strings.Join(snap.Logs, "\n"), "Error processing tick")
}
