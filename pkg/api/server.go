package api

import (
	"os"

	"github.com/gofiber/fiber/v2"

	"github.com/tripflow/tripflow/pkg/api/routes"
	"github.com/tripflow/tripflow/pkg/dispatcher"
	"github.com/tripflow/tripflow/pkg/stoptracker"
	"github.com/tripflow/tripflow/pkg/tripdata"
	"github.com/tripflow/tripflow/pkg/util"
)

func SetupServer(listen string) error {
	publisher, err := dispatcher.NewQueuePublisher()
	if err != nil {
		return err
	}

	stateMachine := &stoptracker.StopActionStateMachine{
		TripData:   tripdata.NewRepository(),
		Flags:      tripdata.NewRedisFlagStore(),
		Dispatcher: publisher,
		Arrivals:   stoptracker.NewRedisArrivalCache(),
		Classifier: &stoptracker.ArrivalReasonClassifier{
			DriverID: util.GetEnvironmentVariable("TRIPFLOW_DRIVER_ID", ""),
		},
		PolygonalOptOut: os.Getenv("TRIPFLOW_POLYGONAL_OPT_OUT") == "YES",
	}

	routes.SetupPanel(stateMachine, stoptracker.NewTripPanelScheduler(), publisher)

	webApp := fiber.New()
	webApp.Use(NewLogger())

	group := webApp.Group("/core")

	group.Get("version", routes.APIVersion)

	routes.PanelRouter(group.Group("/panel"))
	routes.TripsRouter(group.Group("/trips"))

	return webApp.Listen(listen)
}
