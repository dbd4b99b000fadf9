package bot

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/smctrader/metrics"
)

func TestLogBuffer_KeepsMostRecent(t *testing.T) {
	t.Parallel()

	l := NewLogBuffer(0, zerolog.Nop(), nil)
	l.now = func() time.Time { return time.Date(2024, 6, 21, 9, 5, 3, 0, time.FixedZone("EST", -5*3600)) }

	for i := 0; i < 130; i++ {
		l.Addf("line %d", i)
	}
	lines := l.Lines()
	require.Len(t, lines, DefaultLogLines)
	assert.Equal(t, "[14:05:03] line 30", lines[0])
	assert.Equal(t, "[14:05:03] line 129", lines[len(lines)-1])

	lines[0] = "changed"
	assert.Equal(t, "[14:05:03] line 30", l.Lines()[0])
}

func TestLogBuffer_MirrorsToLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := NewLogBuffer(10, zerolog.New(&buf), nil)
	l.Add("Connection successful")
	l.Warn("Connection Error: boom")

	out := buf.String()
	assert.Contains(t, out, `"level":"info","message":"Connection successful"`)
	assert.Contains(t, out, `"level":"warn","message":"Connection Error: boom"`)
}

func TestLogBuffer_Throttled(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	l := NewLogBuffer(100, zerolog.Nop(), metrics.New(reg))

	kept := 0
	for i := 0; i < 20; i++ {
		if l.Throttled(fmt.Sprintf("bad %d", i)) {
			kept++
		}
	}
	// burst of five, and the loop finishes well inside a second
	assert.Equal(t, 5, kept)
	assert.Len(t, l.Lines(), 5)
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(`
# HELP smc_log_suppressed_total Log lines dropped by the rate limiter
# TYPE smc_log_suppressed_total counter
smc_log_suppressed_total 15
`), "smc_log_suppressed_total"))
}
