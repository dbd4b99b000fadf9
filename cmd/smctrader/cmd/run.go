package cmd

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/smctrader/bot"
	"github.com/rustyeddy/smctrader/config"
	"github.com/rustyeddy/smctrader/metrics"
	"github.com/rustyeddy/smctrader/oanda"
	"github.com/rustyeddy/smctrader/server"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Stream live prices and serve the status API",
	Long: `Connect to the OANDA pricing stream, build candles, run the SMC
analysis on every closed 1H candle and paper trade the signals.

The status API and websocket push run on the configured address until
SIGINT or SIGTERM.

Examples:
  smctrader run
  smctrader run -c smctrader.yaml --instruments EUR_USD,GBP_USD
  smctrader run --addr :8080 --log-format console`,
	RunE: runRun,
}

var (
	runInstruments []string
	runAddr        string
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringSliceVar(&runInstruments, "instruments", nil, "instruments to watch (overrides config)")
	runCmd.Flags().StringVar(&runAddr, "addr", "", "status API listen address (overrides config)")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if len(runInstruments) > 0 {
		cfg.Instruments = config.SplitInstruments(strings.Join(runInstruments, ","))
	}
	if runAddr != "" {
		cfg.Server.Addr = runAddr
	}
	if err := cfg.RequireStream(); err != nil {
		return err
	}

	base := cfg.OANDA.StreamURL
	if base == "" {
		if base, err = oanda.StreamURL(cfg.OANDA.Environment); err != nil {
			return err
		}
	}

	log := newLogger(cmd, cfg)
	reg := metrics.NewRegistry()
	rec := metrics.New(reg)

	b := bot.New(cfg.Instruments,
		bot.WithLogger(log),
		bot.WithMetrics(rec),
		bot.WithAccount(cfg.Account),
	)
	src := &oanda.Source{
		Client: &oanda.Client{BaseURL: base, Token: cfg.OANDA.Token, IdleTimeout: cfg.OANDA.ReadTimeout},
		Opts:   oanda.PricingStreamOptions{AccountID: cfg.OANDA.AccountID, Instruments: b.Instruments()},
	}
	sup := bot.NewSupervisor(b, src, cfg.Reconnect, rec)
	srv := server.New(b,
		server.WithAddr(cfg.Server.Addr),
		server.WithPushInterval(cfg.Server.PushInterval),
		server.WithGatherer(reg),
		server.WithLogger(log),
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	log.Info().
		Strs("instruments", b.Instruments()).
		Str("environment", cfg.OANDA.Environment).
		Str("addr", cfg.Server.Addr).
		Msg("starting")

	srvErr := make(chan error, 1)
	go func() {
		// a listen failure takes the stream down with it
		srvErr <- srv.Run(ctx)
		cancel()
	}()

	if err := sup.Run(ctx); err != nil {
		log.Error().Err(err).Msg("supervisor")
	}
	cancel()
	return <-srvErr
}
