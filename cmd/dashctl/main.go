package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:     "dashctl",
		Usage:    "Command line tools for the trading dashboard backend",
		Version:  "v0.1.0",
		Before:   before,
		Flags:    globalFlags,
		Commands: commands,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
