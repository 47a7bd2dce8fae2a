package notify

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/tripflow/tripflow/pkg/consumer"
	"github.com/tripflow/tripflow/pkg/database"
	"github.com/tripflow/tripflow/pkg/dispatcher"
	"github.com/tripflow/tripflow/pkg/redis_client"
)

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "notify",
		Usage: "Pushes advisory messages to operator devices",
		Subcommands: []*cli.Command{
			{
				Name:  "run",
				Usage: "run notify server",
				Action: func(c *cli.Context) error {
					if err := database.Connect(); err != nil {
						return err
					}
					if err := redis_client.Connect(); err != nil {
						return err
					}

					pushManager := &PushManager{}
					if err := pushManager.Setup(); err != nil {
						return err
					}

					redisConsumer := consumer.RedisConsumer{
						QueueName:       dispatcher.QueueAdvisoryMessages,
						NumberConsumers: 5,
						BatchSize:       20,
						Timeout:         2 * time.Second,
						Consumer:        NewAdvisoryBatchConsumer(pushManager),
					}
					redisConsumer.Setup()

					signals := make(chan os.Signal, 1)
					signal.Notify(signals, syscall.SIGINT)
					defer signal.Stop(signals)

					<-signals // wait for signal
					go func() {
						<-signals // hard exit on second signal (in case shutdown gets stuck)
						os.Exit(1)
					}()

					<-redis_client.QueueConnection.StopAllConsuming() // wait for all Consume() calls to finish

					return nil
				},
			},
		},
	}
}
