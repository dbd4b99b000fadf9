package main

import (
	"os"

	"github.com/rustyeddy/smctrader/cmd/smctrader/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
