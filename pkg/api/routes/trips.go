package routes

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/liip/sheriff"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/tripflow/tripflow/pkg/database"
	"github.com/tripflow/tripflow/pkg/tripdata"
)

func TripsRouter(router fiber.Router) {
	router.Get("/active", getActiveTrip)
	router.Get("/:identifier", getTrip)
}

func getTrip(c *fiber.Ctx) error {
	identifier := c.Params("identifier")

	tripsCollection := database.GetCollection("trips")

	var trip *tripdata.Trip
	err := tripsCollection.FindOne(context.Background(), bson.M{"primaryidentifier": identifier}).Decode(&trip)
	if errors.Is(err, mongo.ErrNoDocuments) {
		c.SendStatus(fiber.StatusNotFound)
		return c.JSON(fiber.Map{
			"error": "Could not find a matching Trip",
		})
	}
	if err != nil {
		return err
	}

	return marshalTrip(c, trip)
}

func getActiveTrip(c *fiber.Ctx) error {
	tripsCollection := database.GetCollection("trips")

	var trip *tripdata.Trip
	err := tripsCollection.FindOne(context.Background(), bson.M{"isactive": true}).Decode(&trip)
	if errors.Is(err, mongo.ErrNoDocuments) {
		c.SendStatus(fiber.StatusNotFound)
		return c.JSON(fiber.Map{
			"error": "No trip is currently active",
		})
	}
	if err != nil {
		return err
	}

	return marshalTrip(c, trip)
}

func marshalTrip(c *fiber.Ctx, trip *tripdata.Trip) error {
	groups := []string{"basic"}
	if c.Query("detailed") == "true" {
		groups = append(groups, "detailed")
	}

	tripReduced, err := sheriff.Marshal(&sheriff.Options{
		Groups: groups,
	}, trip)
	if err != nil {
		c.SendStatus(fiber.StatusInternalServerError)
		return c.JSON(fiber.Map{
			"error": "Sorry could not marshal Trip",
		})
	}

	return c.JSON(tripReduced)
}
