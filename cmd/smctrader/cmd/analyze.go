package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/creasty/defaults"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/smctrader/server"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run one SMC analysis over candles from a JSON file",
	Long: `Read {"h4_data": [...], "h1_data": [...]} and print the analysis
result with swing debug info, the same body POST /api/analyze returns.

Examples:
  smctrader analyze -i candles.json
  cat candles.json | smctrader analyze -i -`,
	RunE: runAnalyze,
}

var (
	analyzeInput      string
	analyzeInstrument string
)

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringVarP(&analyzeInput, "input", "i", "", "candles JSON file, - for stdin (required)")
	analyzeCmd.Flags().StringVar(&analyzeInstrument, "instrument", "", "instrument name reported in the result")
	analyzeCmd.MarkFlagRequired("input")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	var in io.Reader = cmd.InOrStdin()
	if analyzeInput != "-" {
		f, err := os.Open(analyzeInput)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	req := &server.AnalyzeRequest{}
	if err := json.NewDecoder(in).Decode(req); err != nil {
		return fmt.Errorf("decode candles: %w", err)
	}
	if analyzeInstrument != "" {
		req.Instrument = analyzeInstrument
	}
	if err := defaults.Set(req); err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(server.Analyze(req))
}
