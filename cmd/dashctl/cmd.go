package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"

	"tradingDashboard/config"
	"tradingDashboard/internal/adapters/binanceclient"
	"tradingDashboard/internal/adapters/logger"
	"tradingDashboard/internal/adapters/yahoo"
	"tradingDashboard/internal/app"
	"tradingDashboard/internal/ports"
)

var commands = []*cli.Command{
	{
		Name:   "fetch",
		Usage:  "Download candles to CSV",
		Action: fetch,
		Flags:  []cli.Flag{symbolFlag, intervalFlag, limitFlag, fromFlag, toFlag, outFlag},
	}, {
		Name:   "indicators",
		Usage:  "Print the indicator set for a symbol",
		Action: indicatorsCmd,
		Flags:  []cli.Flag{symbolFlag, intervalFlag, csvFlag},
	}, {
		Name:   "history",
		Usage:  "List stored analyses for a symbol",
		Action: history,
		Flags:  []cli.Flag{symbolFlag, limitFlag},
	},
}

// env holds the dependencies every command needs.
type env struct {
	cfg     *config.Config
	logger  ports.Logger
	binance *binanceclient.Client
	market  *app.MarketService
}

const envKey = "env"

func before(c *cli.Context) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	level := logger.LevelWarn
	if c.Bool("debug") {
		level = logger.LevelDebug
	}
	c.App.Metadata = map[string]interface{}{envKey: &env{cfg: cfg, logger: logger.NewStdLogger(level)}}
	return nil
}

func envOf(c *cli.Context) *env {
	return c.App.Metadata[envKey].(*env)
}

// marketService lazily builds the providers; history does not need them.
func (e *env) marketService() (*app.MarketService, error) {
	if e.market != nil {
		return e.market, nil
	}
	b, err := binanceclient.New(binanceclient.Config{
		APIKey:               e.cfg.APIKey,
		SecretKey:            e.cfg.SecretKey,
		UseTestnet:           e.cfg.IsTestnet,
		Logger:               e.logger,
		ReconnectDelay:       e.cfg.ReconnectDelay,
		MaxReconnectAttempts: e.cfg.MaxReconnectAttempts,
	})
	if err != nil {
		return nil, fmt.Errorf("binance client: %w", err)
	}
	y, err := yahoo.New(yahoo.Config{BaseURL: e.cfg.YahooBaseURL, Logger: e.logger})
	if err != nil {
		return nil, fmt.Errorf("yahoo client: %w", err)
	}
	m, err := app.NewMarketService(app.MarketConfig{
		Crypto:       b,
		Equity:       y,
		Logger:       e.logger,
		DefaultLimit: e.cfg.DefaultKlineLimit,
	})
	if err != nil {
		return nil, err
	}
	e.binance, e.market = b, m
	return m, nil
}

func ctxOf(c *cli.Context) context.Context {
	if c.Context != nil {
		return c.Context
	}
	return context.Background()
}
