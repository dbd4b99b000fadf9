package replay

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rustyeddy/smctrader/market"
)

// ErrBadRow wraps every row that could not be turned into a tick.
var ErrBadRow = errors.New("replay: bad row")

// Options controls how replay behaves.
type Options struct {
	// From and To bound the replayed ticks; zero means unbounded. To is exclusive.
	From time.Time
	To   time.Time

	// Speed > 0 sleeps between ticks for their recorded gap divided by Speed.
	// Zero replays as fast as the handler consumes.
	Speed float64
}

// CSV replays ticks from a CSV file through h, the same way a live stream
// would deliver them.
//
// Columns: time,instrument,bid,ask. A header row is allowed and extra
// columns are ignored. time is RFC3339 (fractional seconds allowed).
//
// Bad rows are reported to h.Malformed and skipped. CSV returns nil at end
// of file and ctx.Err() when cancelled.
func CSV(ctx context.Context, csvPath string, h market.TickHandler, opts Options) error {
	f, err := os.Open(csvPath)
	if err != nil {
		return err
	}
	defer f.Close()
	return Read(ctx, f, h, opts)
}

// Read is CSV over an io.Reader.
func Read(ctx context.Context, in io.Reader, h market.TickHandler, opts Options) error {
	r := csv.NewReader(in)
	r.FieldsPerRecord = -1
	r.ReuseRecord = true

	h.Connected()

	var (
		first = true
		prev  time.Time
		n     int
	)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		row, err := r.Read()
		if err == io.EOF {
			return nil
		}
		n++
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				h.Malformed(fmt.Errorf("%w: %v", ErrBadRow, err))
				continue
			}
			return err
		}
		if len(row) == 0 {
			continue
		}

		if first {
			first = false
			if strings.EqualFold(strings.TrimSpace(row[0]), "time") {
				continue
			}
		}

		tick, err := parseRow(row)
		if err != nil {
			h.Malformed(fmt.Errorf("%w: row %d: %v", ErrBadRow, n, err))
			continue
		}
		if !opts.From.IsZero() && tick.Time.Before(opts.From) {
			continue
		}
		if !opts.To.IsZero() && !tick.Time.Before(opts.To) {
			continue
		}

		if opts.Speed > 0 && !prev.IsZero() {
			if gap := tick.Time.Sub(prev); gap > 0 {
				if err := pause(ctx, time.Duration(float64(gap)/opts.Speed)); err != nil {
					return err
				}
			}
		}
		prev = tick.Time

		h.Tick(tick)
	}
}

func parseRow(row []string) (market.Tick, error) {
	// Minimum tick columns: time,instrument,bid,ask
	if len(row) < 4 {
		return market.Tick{}, fmt.Errorf("need at least 4 cols time,instrument,bid,ask: %v", row)
	}

	t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(row[0]))
	if err != nil {
		return market.Tick{}, fmt.Errorf("bad time %q", row[0])
	}
	inst := strings.TrimSpace(row[1])
	if inst == "" {
		return market.Tick{}, fmt.Errorf("instrument is empty")
	}

	bid, err := strconv.ParseFloat(strings.TrimSpace(row[2]), 64)
	if err != nil {
		return market.Tick{}, fmt.Errorf("bad bid %q", row[2])
	}
	ask, err := strconv.ParseFloat(strings.TrimSpace(row[3]), 64)
	if err != nil {
		return market.Tick{}, fmt.Errorf("bad ask %q", row[3])
	}

	return market.Tick{Instrument: inst, Time: t.UTC(), Bid: bid, Ask: ask}, nil
}

func pause(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Source replays one file as a market.TickSource.
type Source struct {
	Path string
	Opts Options
}

func (s *Source) Stream(ctx context.Context, h market.TickHandler) error {
	return CSV(ctx, s.Path, h, s.Opts)
}
