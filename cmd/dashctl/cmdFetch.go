package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"

	"tradingDashboard/internal/app"
	"tradingDashboard/internal/domain"
	"tradingDashboard/internal/utils"
)

// fetch downloads candles and writes them to CSV. Crypto symbols with --from
// use the paginated range download; everything else takes the latest --limit candles.
func fetch(c *cli.Context) error {
	e := envOf(c)
	ctx := ctxOf(c)
	symbol, err := app.NormalizeSymbol(c.String(symbolFlag.Name))
	if err != nil {
		return err
	}
	interval := c.String(intervalFlag.Name)

	market, err := e.marketService()
	if err != nil {
		return err
	}

	var klines []*domain.Kline
	from := c.Timestamp(fromFlag.Name)
	if from != nil && app.IsCryptoSymbol(symbol) {
		to := c.Timestamp(toFlag.Name)
		if to == nil || !to.After(*from) {
			return fmt.Errorf("--to must be after --from")
		}
		klines, err = e.binance.GetKlinesRange(ctx, symbol, interval, *from, *to)
	} else {
		klines, err = market.Candles(ctx, symbol, interval, c.Int(limitFlag.Name))
	}
	if err != nil {
		return fmt.Errorf("fetching candles for %s: %w", symbol, err)
	}

	out := c.Path(outFlag.Name)
	if out == "" {
		out = defaultOutPath(symbol, interval)
	}
	if err := utils.WriteKlinesToCSV(klines, out); err != nil {
		return fmt.Errorf("writing %s: %w", out, err)
	}
	fmt.Fprintf(c.App.Writer, "wrote %d candles to %s\n", len(klines), out)
	return nil
}

func defaultOutPath(symbol, interval string) string {
	name := fmt.Sprintf("%s_%s.csv", strings.ToUpper(symbol), interval)
	return filepath.Join("data", strings.ReplaceAll(name, "^", ""))
}
