package dispatcher

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/tripflow/tripflow/pkg/consumer"
	"github.com/tripflow/tripflow/pkg/redis_client"
)

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "dispatcher",
		Usage: "Outbound event queues",
		Subcommands: []*cli.Command{
			{
				Name:  "tap",
				Usage: "consume a queue and print its payloads",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "queue",
						Value: QueueStopActionEvents,
						Usage: "name of the queue to tap",
					},
				},
				Action: func(c *cli.Context) error {
					if err := redis_client.Connect(); err != nil {
						return err
					}

					redisConsumer := consumer.RedisConsumer{
						QueueName:       c.String("queue"),
						NumberConsumers: 1,
						BatchSize:       20,
						Timeout:         2 * time.Second,
						Consumer:        NewDebugBatchConsumer(),
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
