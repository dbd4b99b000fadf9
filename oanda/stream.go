package oanda

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rustyeddy/smctrader/market"
)

// ErrMalformed wraps every stream record that could not be turned into a tick.
var ErrMalformed = errors.New("oanda: malformed record")

// ErrIdle ends a stream that went silent. OANDA sends a heartbeat about
// every 5 seconds, so silence means a dead connection.
var ErrIdle = errors.New("oanda: stream idle")

// DefaultIdleTimeout is used when Client.IdleTimeout is zero.
const DefaultIdleTimeout = 30 * time.Second

// StatusError is a non-200 answer from the pricing endpoint.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("oanda pricing stream http %d: %s", e.Code, e.Body)
}

func (e *StatusError) StatusCode() int { return e.Code }

type Client struct {
	BaseURL string // e.g. https://stream-fxpractice.oanda.com
	Token   string
	HTTP    *http.Client

	// IdleTimeout ends the stream with ErrIdle when no line arrives for this
	// long. Zero means DefaultIdleTimeout.
	IdleTimeout time.Duration
}

// StreamURL maps an environment name onto the streaming host.
func StreamURL(env string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "practice", "demo":
		return "https://stream-fxpractice.oanda.com", nil
	case "live", "trade":
		return "https://stream-fxtrade.oanda.com", nil
	default:
		return "", fmt.Errorf("unknown OANDA env %q (want practice|live)", env)
	}
}

type PricingStreamOptions struct {
	AccountID   string
	Instruments []string
}

type pricingStreamMsg struct {
	Type       string `json:"type"`
	Time       string `json:"time"`
	Instrument string `json:"instrument"`

	Bids []struct {
		Price string `json:"price"`
	} `json:"bids"`

	Asks []struct {
		Price string `json:"price"`
	} `json:"asks"`
}

// PricingStream connects to the OANDA pricing stream and hands every PRICE
// record to h. Heartbeats and other message types are skipped. Bad lines
// go to h.Malformed and reading continues. It returns nil when the server
// closes the body, ctx.Err() when ctx is done, *StatusError on a non-200
// response and ErrIdle when nothing arrives for the idle timeout.
func (c *Client) PricingStream(ctx context.Context, opts PricingStreamOptions, h market.TickHandler) error {
	if c.Token == "" {
		return fmt.Errorf("oanda: missing token")
	}
	if c.BaseURL == "" {
		return fmt.Errorf("oanda: missing base url")
	}
	if opts.AccountID == "" {
		return fmt.Errorf("oanda: missing AccountID")
	}
	if len(opts.Instruments) == 0 {
		return fmt.Errorf("oanda: missing Instruments")
	}

	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return err
	}
	u.Path = fmt.Sprintf("/v3/accounts/%s/pricing/stream", opts.AccountID)
	q := u.Query()
	q.Set("instruments", strings.Join(opts.Instruments, ","))
	u.RawQuery = q.Encode()

	timeout := c.IdleTimeout
	if timeout <= 0 {
		timeout = DefaultIdleTimeout
	}

	// The watchdog covers the wait for headers as well as every read.
	sctx, cancel := context.WithCancel(ctx)
	defer cancel()
	var idle atomic.Bool
	watchdog := time.AfterFunc(timeout, func() {
		idle.Store(true)
		cancel()
	})
	defer watchdog.Stop()

	err = c.read(sctx, u.String(), h, func() { watchdog.Reset(timeout) })
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if idle.Load() {
		return fmt.Errorf("%w: nothing received for %s", ErrIdle, timeout)
	}
	return err
}

func (c *Client) read(ctx context.Context, u string, h market.TickHandler, alive func()) error {
	httpClient := c.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)

	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}

	alive()
	h.Connected()

	sc := bufio.NewScanner(resp.Body)
	// OANDA stream messages can be long; bump max token
	sc.Buffer(make([]byte, 0, 64*1024), 2*1024*1024)

	for sc.Scan() {
		alive()
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}

		tick, ok, err := decodeLine(line)
		if err != nil {
			h.Malformed(err)
			continue
		}
		if ok {
			h.Tick(tick)
		}
	}

	if err := sc.Err(); err != nil {
		// if ctx was cancelled, surface that instead
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return ctx.Err()
}

// decodeLine returns ok=false for records that are not prices.
func decodeLine(line string) (market.Tick, bool, error) {
	var msg pricingStreamMsg
	if err := json.Unmarshal([]byte(line), &msg); err != nil {
		return market.Tick{}, false, fmt.Errorf("%w: bad json: %v (line=%q)", ErrMalformed, err, trimForErr(line))
	}

	if !strings.EqualFold(msg.Type, "PRICE") {
		return market.Tick{}, false, nil
	}
	if msg.Instrument == "" || len(msg.Bids) == 0 || len(msg.Asks) == 0 {
		return market.Tick{}, false, fmt.Errorf("%w: incomplete price (line=%q)", ErrMalformed, trimForErr(line))
	}

	ts, err := time.Parse(time.RFC3339Nano, msg.Time)
	if err != nil {
		return market.Tick{}, false, fmt.Errorf("%w: bad time %q", ErrMalformed, msg.Time)
	}
	bid, err := strconv.ParseFloat(msg.Bids[0].Price, 64)
	if err != nil {
		return market.Tick{}, false, fmt.Errorf("%w: bad bid %q", ErrMalformed, msg.Bids[0].Price)
	}
	ask, err := strconv.ParseFloat(msg.Asks[0].Price, 64)
	if err != nil {
		return market.Tick{}, false, fmt.Errorf("%w: bad ask %q", ErrMalformed, msg.Asks[0].Price)
	}

	return market.Tick{Instrument: msg.Instrument, Time: ts.UTC(), Bid: bid, Ask: ask}, true, nil
}

func trimForErr(s string) string {
	const n = 200
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// Source adapts a Client to market.TickSource for a fixed account and
// instrument list.
type Source struct {
	Client *Client
	Opts   PricingStreamOptions
}

func (s *Source) Stream(ctx context.Context, h market.TickHandler) error {
	return s.Client.PricingStream(ctx, s.Opts, h)
}
