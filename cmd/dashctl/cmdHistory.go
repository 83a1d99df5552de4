package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/urfave/cli/v2"

	"tradingDashboard/internal/adapters/sqlite"
	"tradingDashboard/internal/app"
)

func history(c *cli.Context) error {
	e := envOf(c)
	symbol, err := app.NormalizeSymbol(c.String(symbolFlag.Name))
	if err != nil {
		return err
	}

	repo, err := sqlite.NewRepository(sqlite.Config{DBPath: e.cfg.DBPath, Logger: e.logger})
	if err != nil {
		return err
	}
	defer repo.Close()

	analyses, err := repo.FindBySymbol(ctxOf(c), symbol, c.Int(limitFlag.Name))
	if err != nil {
		return err
	}
	if len(analyses) == 0 {
		fmt.Fprintf(c.App.Writer, "no analyses stored for %s\n", symbol)
		return nil
	}

	tw := tabwriter.NewWriter(c.App.Writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCREATED\tINTERVAL\tBIAS\tCONF\tSOURCE\tSUMMARY")
	for _, a := range analyses {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%.2f\t%s\t%s\n",
			a.ID, a.CreatedAt.Format("2006-01-02 15:04"), a.Interval, a.Bias, a.Confidence, a.Source, truncate(a.Summary, 60))
	}
	return tw.Flush()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
