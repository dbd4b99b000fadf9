package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/rustyeddy/smctrader/config"
	"github.com/rustyeddy/smctrader/market"
	"github.com/rustyeddy/smctrader/metrics"
)

// Supervisor owns the ingestion loop: it opens the tick source, feeds the
// bot, and reconnects after every failure until stopped.
type Supervisor struct {
	bot *Bot
	src market.TickSource
	cfg config.ReconnectConfig
	log zerolog.Logger
	rec *metrics.Recorder

	mu      sync.Mutex
	cancel  context.CancelFunc
	stopped bool
}

func NewSupervisor(b *Bot, src market.TickSource, cfg config.ReconnectConfig, rec *metrics.Recorder) *Supervisor {
	return &Supervisor{
		bot: b,
		src: src,
		cfg: cfg,
		log: b.log.With().Str("component", "supervisor").Logger(),
		rec: rec,
	}
}

// session remembers whether the source ever reported a connection.
type session struct {
	*Bot
	connected bool
}

func (s *session) Connected() {
	s.connected = true
	s.Bot.Connected()
}

// Run streams until ctx is cancelled or Stop is called. A rejected
// connection waits the error delay; a dropped or ended stream waits the
// lost delay. Every wait and the stream read itself abort on cancel.
func (s *Supervisor) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		s.bot.SetStatus(StatusStopped)
		return nil
	}
	s.cancel = cancel
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.cancel = nil
		s.mu.Unlock()
	}()

	errWait := s.newBackOff(s.cfg.ErrorDelay)
	lostWait := s.newBackOff(s.cfg.LostDelay)

	s.bot.logs.Add("Trading bot started")
	for ctx.Err() == nil {
		s.bot.SetStatus(StatusConnecting)

		sess := &session{Bot: s.bot}
		err := s.src.Stream(ctx, sess)
		s.rec.SetConnected(false)
		if sess.connected {
			errWait.Reset()
			lostWait.Reset()
		}
		if ctx.Err() != nil {
			break
		}

		var wait time.Duration
		var se interface{ StatusCode() int }
		switch {
		case errors.As(err, &se):
			s.bot.SetStatus(fmt.Sprintf("Error %d", se.StatusCode()))
			s.bot.logs.Warn("Connection Error: " + err.Error())
			s.rec.Reconnect("status")
			wait = errWait.NextBackOff()
		case err != nil:
			s.bot.SetStatus(StatusLost)
			s.bot.logs.Warn("Connection Error: " + err.Error())
			s.rec.Reconnect("lost")
			wait = lostWait.NextBackOff()
		default:
			s.bot.SetStatus(StatusLost)
			s.bot.logs.Warn("Connection Error: stream closed by server")
			s.rec.Reconnect("eof")
			wait = lostWait.NextBackOff()
		}

		s.log.Debug().Dur("wait", wait).Msg("reconnecting")
		if !sleep(ctx, wait) {
			break
		}
	}

	s.bot.SetStatus(StatusStopped)
	s.bot.logs.Add("Trading bot stream ended")
	return nil
}

// Stop cancels a running Run. Stop is final: a Run that starts afterwards
// returns at once. It is safe to call more than once.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	first := !s.stopped
	s.stopped = true
	cancel := s.cancel
	s.mu.Unlock()
	if cancel == nil || !first {
		return
	}
	s.bot.logs.Add("Trading bot stopped by user")
	cancel()
}

func (s *Supervisor) newBackOff(base time.Duration) backoff.BackOff {
	if s.cfg.Strategy != "exponential" {
		return backoff.NewConstantBackOff(base)
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = base
	b.MaxInterval = max(s.cfg.MaxDelay, base)
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
