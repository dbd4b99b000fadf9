package bot

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/rustyeddy/smctrader/metrics"
)

// DefaultLogLines is how many entries a LogBuffer retains.
const DefaultLogLines = 100

// LogBuffer keeps the most recent log lines in memory for the status
// snapshot and mirrors every line to a zerolog logger. Safe for concurrent use.
type LogBuffer struct {
	mu    sync.Mutex
	lines []string
	max   int

	log   zerolog.Logger
	limit *rate.Limiter
	rec   *metrics.Recorder
	now   func() time.Time
}

// NewLogBuffer retains size lines. Throttled lines pass at one per second
// with a burst of five.
func NewLogBuffer(size int, log zerolog.Logger, rec *metrics.Recorder) *LogBuffer {
	if size <= 0 {
		size = DefaultLogLines
	}
	return &LogBuffer{
		lines: make([]string, 0, size),
		max:   size,
		log:   log,
		limit: rate.NewLimiter(rate.Every(time.Second), 5),
		rec:   rec,
		now:   time.Now,
	}
}

// Add appends "[HH:MM:SS] msg" stamped in UTC.
func (l *LogBuffer) Add(msg string) {
	l.log.Info().Msg(msg)
	l.append(msg)
}

func (l *LogBuffer) Addf(format string, args ...any) {
	l.Add(fmt.Sprintf(format, args...))
}

// Warn is Add at warn level on the mirrored logger.
func (l *LogBuffer) Warn(msg string) {
	l.log.Warn().Msg(msg)
	l.append(msg)
}

// Throttled adds msg unless the limiter is exhausted, in which case the
// line is dropped and counted. It reports whether the line was kept.
func (l *LogBuffer) Throttled(msg string) bool {
	if !l.limit.Allow() {
		l.rec.Suppressed()
		return false
	}
	l.Warn(msg)
	return true
}

// Lines returns a copy of the retained lines, oldest first.
func (l *LogBuffer) Lines() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.lines))
	copy(out, l.lines)
	return out
}

func (l *LogBuffer) append(msg string) {
	entry := fmt.Sprintf("[%s] %s", l.now().UTC().Format("15:04:05"), msg)

	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.lines) == l.max {
		copy(l.lines, l.lines[1:])
		l.lines = l.lines[:l.max-1]
	}
	l.lines = append(l.lines, entry)
}
