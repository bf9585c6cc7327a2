// Command productgen generates cruise data products in batch, validates raw
// cruise data and maintains the station reference database.
//
// Usage:
//
//	DATA_ROOT=/data productgen generate --all
//	productgen generate en608 --product elog --product ctd_metadata
//	productgen validate --format json
//	productgen stations import en608 --db stations.db
//	productgen stations nearby en608 --lat 41.19 --lon -70.88 --db stations.db
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/cruise-data-etl/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd := cli.NewRootCommand()
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(cli.GetExitCode(err))
	}
}
