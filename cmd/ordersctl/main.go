package main

import (
	"fmt"
	"os"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

var version = "dev"

func main() {
	app := &cli.App{
		Name:    "ordersctl",
		Usage:   "Command line client for the orders backend",
		Version: version,
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "debug", Usage: "Log every request"},
			&cli.BoolFlag{Name: "no-banner", Usage: "Do not print the banner"},
		},
		Before: func(c *cli.Context) error {
			// A missing .env is fine, the environment may already be set.
			_ = godotenv.Load()
			return nil
		},
		Commands: []*cli.Command{
			loginCmd(),
			logoutCmd(),
			whoamiCmd(),
			ordersCmd(),
			watchCmd(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("ordersctl failed")
	}
}

func setupLogging(env string, debug bool) {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	if env == "DEV" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})
	}
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
