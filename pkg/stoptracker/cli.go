package stoptracker

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kr/pretty"
	"github.com/urfave/cli/v2"

	"github.com/tripflow/tripflow/pkg/consumer"
	"github.com/tripflow/tripflow/pkg/database"
	"github.com/tripflow/tripflow/pkg/dispatcher"
	"github.com/tripflow/tripflow/pkg/elastic_client"
	"github.com/tripflow/tripflow/pkg/redis_client"
	"github.com/tripflow/tripflow/pkg/tripdata"
	"github.com/tripflow/tripflow/pkg/util"
)

const triggerQueueName = "geofence-triggers"

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "stop-tracker",
		Usage: "Tracks trip stop progress from geofence trigger events",
		Subcommands: []*cli.Command{
			{
				Name:  "run",
				Usage: "run an instance of the stop tracker",
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

					publisher, err := dispatcher.NewQueuePublisher()
					if err != nil {
						return err
					}

					stateMachine := &StopActionStateMachine{
						TripData:   tripdata.NewRepository(),
						Flags:      tripdata.NewRedisFlagStore(),
						Dispatcher: publisher,
						Arrivals:   NewRedisArrivalCache(),
						Classifier: &ArrivalReasonClassifier{
							DriverID: util.GetEnvironmentVariable("TRIPFLOW_DRIVER_ID", ""),
						},
						PolygonalOptOut: os.Getenv("TRIPFLOW_POLYGONAL_OPT_OUT") == "YES",
					}

					buffer := NewGeofenceEventBuffer(
						context.Background(),
						stateMachine,
						stateMachine.TripData,
						GetBufferConfig(),
					)

					redisConsumer := consumer.RedisConsumer{
						QueueName:       triggerQueueName,
						NumberConsumers: 5,
						BatchSize:       20,
						Timeout:         2 * time.Second,
						Consumer:        NewTriggerBatchConsumer(0, buffer),
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

					buffer.Stop()

					<-redis_client.QueueConnection.StopAllConsuming() // wait for all Consume() calls to finish

					return nil
				},
			},
			{
				Name:  "test-decode",
				Usage: "decode a geofence name and print the trigger",
				Action: func(c *cli.Context) error {
					trigger, err := DecodeGeofenceName(c.Args().First())
					pretty.Println(trigger, err)

					return nil
				},
			},
		},
	}
}
