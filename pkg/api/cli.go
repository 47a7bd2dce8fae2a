package api

import (
	"github.com/urfave/cli/v2"

	"github.com/tripflow/tripflow/pkg/database"
	"github.com/tripflow/tripflow/pkg/elastic_client"
	"github.com/tripflow/tripflow/pkg/redis_client"
)

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "web-api",
		Usage: "Provides the core web API",
		Subcommands: []*cli.Command{
			{
				Name:  "run",
				Usage: "run web api server",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "listen",
						Value: ":8080",
						Usage: "listen target for the web server",
					},
				},
				Action: func(c *cli.Context) error {
					if err := database.Connect(); err != nil {
						return err
					}
					if err := elastic_client.Connect(false); err != nil {
						return err
					}
					if err := redis_client.Connect(); err != nil {
						return err
					}

					return SetupServer(c.String("listen"))
				},
			},
		},
	}
}
