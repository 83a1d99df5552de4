package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"

	"tradingDashboard/internal/domain"
	"tradingDashboard/internal/indicators"
	"tradingDashboard/internal/signals"
	"tradingDashboard/internal/utils"
)

func indicatorsCmd(c *cli.Context) error {
	e := envOf(c)
	ctx := ctxOf(c)

	var set domain.IndicatorSet
	if path := c.Path(csvFlag.Name); path != "" {
		klines, err := utils.ReadKlinesFromCSV(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		set = indicators.Compute(klines)
	} else {
		market, err := e.marketService()
		if err != nil {
			return err
		}
		set, _, err = market.Indicators(ctx, c.String(symbolFlag.Name), c.String(intervalFlag.Name))
		if err != nil {
			return err
		}
	}

	classifier, err := signals.New(signals.DefaultConfig(), e.logger)
	if err != nil {
		return err
	}
	return renderIndicators(c.App.Writer, set, classifier.Classify(ctx, set))
}

func num(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

func levels(ls []float64) string {
	if len(ls) == 0 {
		return "-"
	}
	parts := make([]string, len(ls))
	for i, l := range ls {
		parts[i] = num(l)
	}
	return strings.Join(parts, " ")
}

// renderIndicators prints set and its classification as an aligned table.
func renderIndicators(w io.Writer, set domain.IndicatorSet, res signals.Result) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	rows := [][2]string{
		{"Symbol", fmt.Sprintf("%s %s (%d candles)", set.Symbol, set.Interval, set.Candles)},
		{"Price", num(set.Price)},
		{"EMA20 / EMA50", num(set.EMA20) + " / " + num(set.EMA50)},
		{"RSI14", num(set.RSI14)},
		{"MACD line / signal / hist", num(set.MACD.Line) + " / " + num(set.MACD.Signal) + " / " + num(set.MACD.Histogram)},
		{"ATR14", num(set.ATR14)},
		{"Bollinger upper / mid / lower", num(set.Bollinger.Upper) + " / " + num(set.Bollinger.Middle) + " / " + num(set.Bollinger.Lower)},
		{"VWAP", num(set.VWAP)},
		{"Support", levels(set.Support)},
		{"Resistance", levels(set.Resistance)},
		{"Signal", fmt.Sprintf("%s (confidence %s)", res.Signal, num(res.Confidence))},
	}
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\n", r[0], r[1])
	}
	for _, risk := range res.Risks {
		fmt.Fprintf(tw, "Risk\t%s\n", risk)
	}
	return tw.Flush()
}
