// cmd/marketsim runs engine operations from the command line and backfills
// synthetic bars into SQLite.
//
// Usage:
//
//	go run ./cmd/marketsim metrics VTI --start=2020-01-01 --end=2020-12-31
//	go run ./cmd/marketsim event GLD 2008
//	go run ./cmd/marketsim simulate VTI=0.6 BND=0.3 GLD=0.1 --initial=50000
//	go run ./cmd/marketsim backfill VTI BND GLD --db=data/bars.db --period=max
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
