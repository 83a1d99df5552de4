package main

// Command line flags shared by the dashctl commands.

import (
	"time"

	"github.com/urfave/cli/v2"
)

var (
	symbolFlag = &cli.StringFlag{
		Name:     "symbol",
		Usage:    "Ticker symbol, e.g. BTCUSDT or AAPL",
		Required: true,
		Aliases:  []string{"s"},
		EnvVars:  []string{"DASHCTL_SYMBOL"},
	}
	intervalFlag = &cli.StringFlag{
		Name:    "interval",
		Usage:   "Candle interval (1m, 5m, 15m, 1h, 4h, 1d, ...)",
		Value:   "1h",
		Aliases: []string{"i"},
		EnvVars: []string{"DASHCTL_INTERVAL"},
	}
	limitFlag = &cli.IntFlag{
		Name:    "limit",
		Usage:   "Number of recent candles or records",
		Value:   200,
		Aliases: []string{"n"},
	}
	fromFlag = &cli.TimestampFlag{
		Name:   "from",
		Usage:  "Start of the range to download (crypto symbols only)",
		Layout: "2006-01-02T15:04",
	}
	toFlag = &cli.TimestampFlag{
		Name:   "to",
		Usage:  "End of the range to download",
		Value:  cli.NewTimestamp(time.Now()),
		Layout: "2006-01-02T15:04",
	}
	outFlag = &cli.PathFlag{
		Name:    "out",
		Usage:   "CSV file to write; defaults to data/<symbol>_<interval>.csv",
		Aliases: []string{"o"},
	}
	csvFlag = &cli.PathFlag{
		Name:  "csv",
		Usage: "Compute from a CSV file written by 'fetch' instead of calling a provider",
	}

	globalFlags = []cli.Flag{
		&cli.BoolFlag{
			Name:    "debug",
			Usage:   "Sets the log level to debug",
			Aliases: []string{"d"},
			EnvVars: []string{"DASHCTL_DEBUG"},
		},
	}
)
