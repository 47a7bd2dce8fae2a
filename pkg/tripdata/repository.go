package tripdata

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jinzhu/copier"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tripflow/tripflow/pkg/database"
)

// Default geofence radii given to actions created on first load, in feet.
// The arrived radius is left unset so it can be derived from the depart
// radius by the radius policy.
const (
	DefaultApproachRadiusFeet = 1000
	DefaultDepartRadiusFeet   = 300
)

// Repository provides the trip-data collaborator interface over MongoDB.
type Repository struct{}

func NewRepository() *Repository {
	return &Repository{}
}

// ActiveTripID returns the identifier of the currently active trip, or an
// empty string when no trip is active.
func (r *Repository) ActiveTripID(ctx context.Context) (string, error) {
	tripsCollection := database.GetCollection("trips")

	var trip Trip
	err := tripsCollection.FindOne(ctx, bson.M{"isactive": true}).Decode(&trip)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", nil
	}
	if err != nil {
		return "", err
	}

	return trip.PrimaryIdentifier, nil
}

func (r *Repository) GetTrip(ctx context.Context, tripID string) (*Trip, error) {
	tripsCollection := database.GetCollection("trips")

	var trip *Trip
	err := tripsCollection.FindOne(ctx, bson.M{"primaryidentifier": tripID}).Decode(&trip)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return trip, nil
}

// GetStop returns a deep-copied snapshot of one stop so callers can
// mutate it freely before writing it back with UpdateStop.
func (r *Repository) GetStop(ctx context.Context, tripID string, stopID int) (*Stop, error) {
	trip, err := r.GetTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if trip == nil {
		return nil, nil
	}

	stop := trip.Stop(stopID)
	if stop == nil {
		return nil, nil
	}

	var snapshot Stop
	if err := copier.CopyWithOption(&snapshot, stop, copier.Option{DeepCopy: true}); err != nil {
		return nil, err
	}

	ensureActions(&snapshot)

	return &snapshot, nil
}

// ensureActions creates the lifecycle actions a stop is missing, keeping
// the one-action-per-kind invariant intact from first load onwards.
func ensureActions(stop *Stop) {
	if stop.Action(ActionApproaching) == nil {
		stop.SetAction(&Action{Kind: ActionApproaching, RadiusFeet: DefaultApproachRadiusFeet})
	}
	if stop.Action(ActionArrived) == nil {
		stop.SetAction(&Action{Kind: ActionArrived})
	}
	if stop.Action(ActionDeparted) == nil {
		stop.SetAction(&Action{Kind: ActionDeparted, RadiusFeet: DefaultDepartRadiusFeet})
	}
}

func (r *Repository) IsSequentialTrip(ctx context.Context, tripID string) (bool, error) {
	trip, err := r.GetTrip(ctx, tripID)
	if err != nil {
		return false, err
	}
	if trip == nil {
		return false, nil
	}

	return trip.Sequential, nil
}

func (r *Repository) UpdateStop(ctx context.Context, tripID string, stop *Stop) error {
	tripsCollection := database.GetCollection("trips")

	updateMap := bson.M{
		fmt.Sprintf("stops.%d", stop.StopID): stop,
		"modificationdatetime":               time.Now().UTC().Format(time.RFC3339),
	}

	_, err := tripsCollection.UpdateOne(ctx,
		bson.M{"primaryidentifier": tripID},
		bson.M{"$set": updateMap},
	)

	return err
}

// PersistArrivalReason writes the arrival reason for a stop, replacing
// any previous record for that stop wholesale.
func (r *Repository) PersistArrivalReason(ctx context.Context, tripID string, stopID int, record *ArrivalReasonRecord) error {
	arrivalReasonsCollection := database.GetCollection("arrival_reasons")

	document := bson.M{
		"tripid": tripID,
		"stopid": stopID,
		"record": record,

		"recordedat": record.RecordedAt,
	}

	_, err := arrivalReasonsCollection.ReplaceOne(ctx,
		bson.M{"tripid": tripID, "stopid": stopID},
		document,
		options.Replace().SetUpsert(true),
	)

	return err
}

// CheckTripCompletion marks the trip inactive once every remaining stop
// has departed. Deleted stops never hold a trip open.
func (r *Repository) CheckTripCompletion(ctx context.Context, tripID string) error {
	trip, err := r.GetTrip(ctx, tripID)
	if err != nil {
		return err
	}
	if trip == nil || !trip.IsActive {
		return nil
	}

	for _, stop := range trip.Stops {
		if stop.Deleted {
			continue
		}
		if stop.DepartureTime == "" {
			return nil
		}
	}

	tripsCollection := database.GetCollection("trips")
	_, err = tripsCollection.UpdateOne(ctx,
		bson.M{"primaryidentifier": tripID},
		bson.M{"$set": bson.M{
			"isactive":          false,
			"completeddatetime": time.Now().UTC().Format(time.RFC3339),
		}},
	)

	return err
}
