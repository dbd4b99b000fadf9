package bot

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/rustyeddy/smctrader/config"
	"github.com/rustyeddy/smctrader/market"
	"github.com/rustyeddy/smctrader/metrics"
	"github.com/rustyeddy/smctrader/pkg/id"
	"github.com/rustyeddy/smctrader/risk"
	"github.com/rustyeddy/smctrader/smc"
)

// Connection statuses shown in the snapshot. A rejected connection shows
// "Error {code}".
const (
	StatusInitializing = "Initializing..."
	StatusConnecting   = "Connecting..."
	StatusConnected    = "Connected"
	StatusLost         = "Connection Lost"
	StatusStopped      = "Stopped"
)

// instrument is everything the bot tracks for one instrument. It is only
// mutated by the tick path, under Bot.mu.
type instrument struct {
	name     string
	engine   *smc.Engine
	h1, h4   series
	price    float64
	analysis string
	last     smc.Outcome
	trade    *ActiveTrade
}

// Bot aggregates ticks into candles, runs the SMC engine on every 1H close
// and tracks the resulting trade. It implements market.TickHandler. Ticks
// must come from a single goroutine; Snapshot may be called from any.
type Bot struct {
	log     zerolog.Logger
	logs    *LogBuffer
	rec     *metrics.Recorder
	account config.AccountConfig
	now     func() time.Time

	mu      sync.RWMutex
	started time.Time
	status  string
	order   []string
	insts   map[string]*instrument
}

type Option func(*Bot)

func WithLogger(l zerolog.Logger) Option {
	return func(b *Bot) { b.log = l }
}

func WithMetrics(r *metrics.Recorder) Option {
	return func(b *Bot) { b.rec = r }
}

// WithAccount sets the balance and risk used to suggest position sizes.
func WithAccount(a config.AccountConfig) Option {
	return func(b *Bot) { b.account = a }
}

func WithClock(now func() time.Time) Option {
	return func(b *Bot) { b.now = now }
}

// New registers instruments. Duplicates are ignored.
func New(instruments []string, opts ...Option) *Bot {
	b := &Bot{
		log:     zerolog.Nop(),
		account: config.Default().Account,
		now:     time.Now,
		status:  StatusInitializing,
		insts:   make(map[string]*instrument, len(instruments)),
	}
	for _, o := range opts {
		o(b)
	}
	b.log = b.log.With().Str("component", "bot").Logger()
	b.logs = NewLogBuffer(DefaultLogLines, b.log, b.rec)
	b.logs.now = b.now
	b.started = b.now()

	for _, name := range instruments {
		if _, ok := b.insts[name]; ok {
			continue
		}
		b.order = append(b.order, name)
		b.insts[name] = &instrument{
			name:     name,
			engine:   smc.NewEngine(name),
			h1:       newSeries(market.H1),
			h4:       newSeries(market.H4),
			analysis: StatusConnecting,
		}
	}
	return b
}

// Logs is the bot's in-memory log sink.
func (b *Bot) Logs() *LogBuffer { return b.logs }

func (b *Bot) Instruments() []string {
	out := make([]string, len(b.order))
	copy(out, b.order)
	return out
}

// SetStatus records the connection status.
func (b *Bot) SetStatus(s string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.status = s
}

// Connected marks the stream as up.
func (b *Bot) Connected() {
	b.SetStatus(StatusConnected)
	b.rec.SetConnected(true)
	b.logs.Add("Connection successful")
}

// Malformed logs a record the source could not decode. Lines are throttled.
func (b *Bot) Malformed(err error) {
	b.rec.Malformed()
	b.logs.Throttled(fmt.Sprintf("Error processing tick: %v", err))
}

// Tick processes one quote. Ticks for unregistered instruments are ignored.
// A panic while handling the tick is recovered and logged; the state keeps
// whatever was applied before it.
func (b *Bot) Tick(t market.Tick) {
	defer func() {
		if r := recover(); r != nil {
			b.rec.Panic()
			b.log.Error().Str("instrument", t.Instrument).Interface("panic", r).Msg("tick dispatch")
			b.logs.Addf("Unexpected error: %v", r)
		}
	}()

	price := t.Mid()
	if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
		b.Malformed(fmt.Errorf("%s: bad price bid=%v ask=%v", t.Instrument, t.Bid, t.Ask))
		return
	}
	b.process(t.Instrument, t.Time, price)
}

func (b *Bot) process(name string, ts time.Time, price float64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	st, ok := b.insts[name]
	if !ok {
		return
	}
	b.rec.Tick(name)
	st.price = price

	if st.trade != nil {
		b.monitor(st, price)
	}
	b.aggregate(st, ts, price)
}

func (b *Bot) monitor(st *instrument, price float64) {
	reason, closed := st.trade.Track(price)
	if !closed {
		return
	}
	b.rec.TradeClosed(st.name, string(reason))
	b.logs.Addf("[%s] %s HIT AT %.5f", st.name, reason, price)
	st.trade = nil
}

// aggregate runs the 1H series first, so analysis on a 1H close sees the
// 4H history as it stood before this tick.
func (b *Bot) aggregate(st *instrument, ts time.Time, price float64) {
	if _, closed := st.h1.push(ts, price); closed {
		b.candleClosed(st, market.H1, len(st.h1.closed))
		if st.trade == nil {
			b.analyze(st, ts, price)
		}
	}
	if _, closed := st.h4.push(ts, price); closed {
		b.candleClosed(st, market.H4, len(st.h4.closed))
	}
}

func (b *Bot) candleClosed(st *instrument, tf market.Timeframe, total int) {
	b.rec.CandleClosed(st.name, tf.String())
	b.logs.Addf("[%s] New %s Candle Closed. Total: %d", st.name, hourLabel(tf), total)
}

func (b *Bot) analyze(st *instrument, ts time.Time, price float64) {
	out := st.engine.Analyze(st.h4.closed, st.h1.closed)
	st.last = out
	st.analysis = out.Status()

	switch o := out.(type) {
	case *smc.NoTrade:
		b.log.Debug().Str("instrument", st.name).Stringer("reason", o.Reason).Msg(o.Details)
	case *smc.Signal:
		st.trade = b.open(st.name, o, ts, price)
		b.rec.Signal(st.name, string(o.Direction))
		b.logs.Addf("[%s] TAKE TRADE SIGNAL: %s @ %.5f", st.name, o.Direction, o.Entry)
	}
}

func (b *Bot) open(name string, sig *smc.Signal, ts time.Time, mid float64) *ActiveTrade {
	t := &ActiveTrade{
		ID:         id.At(ts),
		Instrument: name,
		Direction:  sig.Direction,
		Entry:      sig.Entry,
		StopLoss:   sig.StopLoss,
		TakeProfit: sig.TakeProfit,
		RR:         risk.RR(sig.Entry, sig.StopLoss, sig.TakeProfit),
		CreatedAt:  ts.UTC(),
		Signal:     sig,
	}

	q, err := market.QuoteToAccountRate(name, b.account.Currency, mid)
	if err != nil {
		b.log.Warn().Err(err).Str("instrument", name).Msg("no position size")
		return t
	}
	t.Units = risk.Calculate(risk.Inputs{
		Equity:         b.account.Balance,
		RiskPct:        b.account.RiskPercent,
		EntryPrice:     sig.Entry,
		StopPrice:      sig.StopLoss,
		PipLocation:    market.PipLocation(name),
		QuoteToAccount: q,
	}).Units
	t.RiskAmount = risk.PlannedRisk(t.Units, t.Entry, t.StopLoss, q)

	b.log.Debug().
		Str("instrument", name).
		Float64("units", t.Units).
		Float64("risk_pct", 100*risk.RiskPct(t.RiskAmount, b.account.Balance)).
		Float64("rr", t.RR).
		Msg("position sized")
	return t
}

// Candles returns copies of the finalized 4H and 1H histories.
func (b *Bot) Candles(name string) (h4, h1 []market.Candle, ok bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	st, ok := b.insts[name]
	if !ok {
		return nil, nil, false
	}
	return st.h4.history(), st.h1.history(), true
}

// LastOutcome returns the result of the instrument's most recent analysis,
// or nil before the first 1H close.
func (b *Bot) LastOutcome(name string) smc.Outcome {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if st, ok := b.insts[name]; ok {
		return st.last
	}
	return nil
}

// hourLabel renders H1 as "1H", the way the logs name timeframes.
func hourLabel(tf market.Timeframe) string {
	return fmt.Sprintf("%dH", int(tf.Duration()/time.Hour))
}
