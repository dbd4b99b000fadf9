package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/smctrader/bot"
	"github.com/rustyeddy/smctrader/config"
	"github.com/rustyeddy/smctrader/replay"
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay recorded ticks through the signal pipeline",
	Long: `Feed a tick CSV (time,instrument,bid,ask) through the same candle
building, analysis and trade monitoring the live stream uses, then print
the final status.

Examples:
  smctrader replay --ticks ticks.csv
  smctrader replay --ticks ticks.csv --instruments USD_JPY --from 2024-06-01T00:00:00Z
  smctrader replay --ticks ticks.csv --speed 60 --json`,
	RunE: runReplay,
}

var (
	replayTicks       string
	replayInstruments []string
	replaySpeed       float64
	replayFrom        string
	replayTo          string
	replayJSON        bool
)

func init() {
	rootCmd.AddCommand(replayCmd)

	replayCmd.Flags().StringVarP(&replayTicks, "ticks", "t", "", "tick CSV file (required)")
	replayCmd.Flags().StringSliceVar(&replayInstruments, "instruments", nil, "instruments to follow (overrides config)")
	replayCmd.Flags().Float64Var(&replaySpeed, "speed", 0, "pace ticks at recorded gaps divided by speed; 0 is as fast as possible")
	replayCmd.Flags().StringVar(&replayFrom, "from", "", "skip ticks before this RFC3339 time")
	replayCmd.Flags().StringVar(&replayTo, "to", "", "stop at ticks from this RFC3339 time on")
	replayCmd.Flags().BoolVar(&replayJSON, "json", false, "print the final status as JSON")
	replayCmd.MarkFlagRequired("ticks")
}

func runReplay(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if len(replayInstruments) > 0 {
		cfg.Instruments = config.SplitInstruments(strings.Join(replayInstruments, ","))
	}

	opts := replay.Options{Speed: replaySpeed}
	if opts.From, err = parseTimeFlag("from", replayFrom); err != nil {
		return err
	}
	if opts.To, err = parseTimeFlag("to", replayTo); err != nil {
		return err
	}

	log := newLogger(cmd, cfg)
	b := bot.New(cfg.Instruments,
		bot.WithLogger(log),
		bot.WithAccount(cfg.Account),
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	src := &replay.Source{Path: replayTicks, Opts: opts}
	if err := src.Stream(ctx, b); err != nil {
		return fmt.Errorf("replay %s: %w", replayTicks, err)
	}

	st := b.Snapshot()
	out := cmd.OutOrStdout()
	if replayJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(st)
	}

	fmt.Fprintf(out, "✓ Replayed %s\n", replayTicks)
	for _, name := range b.Instruments() {
		is := st.Instruments[name]
		fmt.Fprintf(out, "  %s: price %.5f, 4H %d, 1H %d, %s\n",
			name, is.Price, is.H4Candles, is.H1Candles, is.AnalysisStatus)
		if t := is.ActiveTrade; t != nil {
			fmt.Fprintf(out, "    open %s @ %.5f sl %.5f tp %.5f (%.1f pips)\n",
				t.Direction, t.Entry, t.StopLoss, t.TakeProfit, t.LivePnLPips)
		}
	}
	return nil
}

func parseTimeFlag(name, v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("--%s: %w", name, err)
	}
	return t, nil
}
