package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/tripflow/tripflow/pkg/api"
	"github.com/tripflow/tripflow/pkg/dispatcher"
	"github.com/tripflow/tripflow/pkg/notify"
	"github.com/tripflow/tripflow/pkg/stoptracker"

	_ "time/tzdata"
)

func main() {
	if os.Getenv("TRIPFLOW_LOG_FORMAT") != "JSON" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}

	if os.Getenv("TRIPFLOW_DEBUG") == "YES" {
		log.Logger = log.Logger.Level(zerolog.DebugLevel)
	} else {
		log.Logger = log.Logger.Level(zerolog.InfoLevel)
	}

	app := &cli.App{
		Name:        "tripflow",
		Description: "Single binary of truth for Tripflow - runs all the services",

		Commands: []*cli.Command{
			stoptracker.RegisterCLI(),
			api.RegisterCLI(),
			notify.RegisterCLI(),
			dispatcher.RegisterCLI(),
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatal().Err(err).Send()
	}
}
