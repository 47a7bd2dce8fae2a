package stoptracker

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tripflow/tripflow/pkg/tripdata"
)

// TripData is the trip-data collaborator interface the state machine
// consumes. The Mongo repository in pkg/tripdata provides it in
// production; tests inject fakes.
type TripData interface {
	ActiveTripID(ctx context.Context) (string, error)
	GetTrip(ctx context.Context, tripID string) (*tripdata.Trip, error)
	GetStop(ctx context.Context, tripID string, stopID int) (*tripdata.Stop, error)
	IsSequentialTrip(ctx context.Context, tripID string) (bool, error)
	UpdateStop(ctx context.Context, tripID string, stop *tripdata.Stop) error
	PersistArrivalReason(ctx context.Context, tripID string, stopID int, record *tripdata.ArrivalReasonRecord) error
	CheckTripCompletion(ctx context.Context, tripID string) error
}

// FlagStore is the durable key-value port holding the global boolean
// flags, abstracted so tests can inject a fake store.
type FlagStore interface {
	Get(ctx context.Context, name string) (bool, error)
	Set(ctx context.Context, name string, value bool) error
}

// Dispatcher carries the state machine's outbound side effects.
type Dispatcher interface {
	DispatchStopAction(ctx context.Context, event tripdata.StopActionEvent) error
	RequestRouteRecalculation(ctx context.Context, request tripdata.RouteRecalcRequest) error
	RemoveGeofence(ctx context.Context, geofenceName string) error
}

// StopActionStateMachine validates and applies one action transition for
// a stop against the active trip.
type StopActionStateMachine struct {
	TripData   TripData
	Flags      FlagStore
	Dispatcher Dispatcher
	Arrivals   ArrivalCache
	Classifier *ArrivalReasonClassifier

	// Operators can opt out of polygonal fences entirely
	PolygonalOptOut bool
}

// ProcessTrigger decides whether and how a stop's action state changes
// for one geofence event. Every failure mode degrades to drop-and-log;
// nothing here is fatal to the hosting process.
func (m *StopActionStateMachine) ProcessTrigger(ctx context.Context, geofenceName string, dispatchID string, fromMap bool) error {
	trigger, err := DecodeGeofenceName(geofenceName)
	if err != nil {
		log.Debug().Err(err).Str("geofence", geofenceName).Msg("Dropping undecodable geofence event")
		return nil
	}

	tripID := dispatchID
	if tripID == "" {
		// Legacy senders omit the dispatch id; bind to the active trip
		tripID, err = m.TripData.ActiveTripID(ctx)
		if err != nil {
			return err
		}
		if tripID == "" {
			log.Debug().Str("geofence", geofenceName).Msg("Dropping geofence event, no active trip")
			return nil
		}
	}

	stop, err := m.TripData.GetStop(ctx, tripID, trigger.StopID)
	if err != nil {
		return err
	}
	if stop == nil {
		log.Debug().Str("geofence", geofenceName).Int("stop", trigger.StopID).Msg("Dropping geofence event, stop not found")
		return nil
	}

	if stop.Deleted {
		// Deleted stops must not re-open completed work, but their
		// fences still come down and the trip still gets its
		// completion check.
		if err := m.Dispatcher.RemoveGeofence(ctx, geofenceName); err != nil {
			log.Error().Err(err).Str("geofence", geofenceName).Msg("Failed to remove geofence for deleted stop")
		}

		return m.TripData.CheckTripCompletion(ctx, tripID)
	}

	switch trigger.Kind {
	case tripdata.ActionApproaching:
		return m.processApproach(ctx, tripID, stop)
	case tripdata.ActionArrived:
		return m.processArrival(ctx, tripID, stop, fromMap)
	case tripdata.ActionDeparted:
		return m.processDeparture(ctx, tripID, stop)
	}

	return nil
}

func (m *StopActionStateMachine) processApproach(ctx context.Context, tripID string, stop *tripdata.Stop) error {
	action := stop.Action(tripdata.ActionApproaching)
	if action == nil || action.ResponseSent {
		// Re-processing a consumed trigger is a safe no-op
		log.Debug().Int("stop", stop.StopID).Msg("No pending approach work for stop")
		return nil
	}

	now := time.Now().UTC()

	action.TriggerReceived = true
	action.TriggerReceivedAt = now.Format(time.RFC3339)
	action.ResponseSent = true

	if err := m.Dispatcher.DispatchStopAction(ctx, tripdata.StopActionEvent{
		TripID:       tripID,
		StopID:       stop.StopID,
		Kind:         tripdata.ActionApproaching,
		Acknowledged: stop.ManualArrival,
		RecordedAt:   now,
	}); err != nil {
		return err
	}

	if err := m.TripData.UpdateStop(ctx, tripID, stop); err != nil {
		return err
	}

	if err := m.TripData.CheckTripCompletion(ctx, tripID); err != nil {
		return err
	}

	// The approach work for this stop is done: any stop manipulation is
	// considered absorbed and the route can be recalculated.
	if err := m.Flags.Set(ctx, tripdata.FlagStopsManipulated, false); err != nil {
		return err
	}

	return m.requestRecalc(ctx, tripID)
}

func (m *StopActionStateMachine) processArrival(ctx context.Context, tripID string, stop *tripdata.Stop, fromMap bool) error {
	// The start-location special case runs before any other check so a
	// phantom first-stop trigger always consumes the flag, even when the
	// arrival work is already done.
	if stop.StopID == 0 {
		started, err := m.Flags.Get(ctx, tripdata.FlagDriverStartedFromFirstStop)
		if err != nil {
			return err
		}

		if started {
			if fromMap {
				// Map-origin triggers at the start location are
				// unreliable: treat as a phantom first-stop arrival
				// and consume the flag exactly once.
				log.Info().Int("stop", stop.StopID).Msg("Ignoring map-origin arrival at start location")
				return m.Flags.Set(ctx, tripdata.FlagDriverStartedFromFirstStop, false)
			}

			// Workflow-origin triggers are authoritative: keep the
			// flag raised and run normal arrival processing.
			if err := m.Flags.Set(ctx, tripdata.FlagDriverStartedFromFirstStop, true); err != nil {
				return err
			}
		}
	}

	action := stop.Action(tripdata.ActionArrived)
	if action == nil || action.ResponseSent {
		log.Debug().Int("stop", stop.StopID).Msg("No pending arrival work for stop")
		return nil
	}

	valid, err := m.validForTripType(ctx, tripID, stop)
	if err != nil {
		return err
	}

	geofenceType := GeofenceShape(stop.Boundary, m.PolygonalOptOut)

	if !valid {
		// Out-of-order stop on a sequential trip: record why the
		// trigger was ignored and leave all state untouched.
		record := m.Classifier.ClassifyIgnored(stop.Location, stop.Sequenced, action.ETA, geofenceType, tripdata.ReasonDriverNotInStopLocation)
		recordClassificationEvent(tripID, stop.StopID, record)

		return m.TripData.PersistArrivalReason(ctx, tripID, stop.StopID, record)
	}

	now := time.Now().UTC()

	record := m.Classifier.Classify(stop.Location, stop.Sequenced, action.ETA, geofenceType)
	recordClassificationEvent(tripID, stop.StopID, record)

	if err := m.Arrivals.Add(ctx, PendingArrival{
		TripID:    tripID,
		StopID:    stop.StopID,
		ETA:       action.ETA,
		Sequenced: stop.Sequenced,
		CachedAt:  now,
	}); err != nil {
		return err
	}

	if err := m.TripData.PersistArrivalReason(ctx, tripID, stop.StopID, record); err != nil {
		return err
	}

	action.TriggerReceived = true
	action.TriggerReceivedAt = now.Format(time.RFC3339)
	action.ResponseSent = true

	stop.ArrivalTime = now.Format(time.RFC3339)
	stop.ArrivalLatitude = stop.Location.Latitude
	stop.ArrivalLongitude = stop.Location.Longitude
	stop.ManualArrival = false

	if err := m.Dispatcher.DispatchStopAction(ctx, tripdata.StopActionEvent{
		TripID:     tripID,
		StopID:     stop.StopID,
		Kind:       tripdata.ActionArrived,
		RecordedAt: now,
	}); err != nil {
		return err
	}

	if err := m.TripData.UpdateStop(ctx, tripID, stop); err != nil {
		return err
	}

	return m.requestRecalc(ctx, tripID)
}

func (m *StopActionStateMachine) processDeparture(ctx context.Context, tripID string, stop *tripdata.Stop) error {
	action := stop.Action(tripdata.ActionDeparted)
	if action == nil || action.ResponseSent {
		log.Debug().Int("stop", stop.StopID).Msg("No pending departure work for stop")
		return nil
	}

	now := time.Now().UTC()

	action.TriggerReceived = true
	action.TriggerReceivedAt = now.Format(time.RFC3339)
	action.ResponseSent = true

	stop.DepartureTime = now.Format(time.RFC3339)

	if err := m.Dispatcher.DispatchStopAction(ctx, tripdata.StopActionEvent{
		TripID:     tripID,
		StopID:     stop.StopID,
		Kind:       tripdata.ActionDeparted,
		RecordedAt: now,
	}); err != nil {
		return err
	}

	// Departure closes out any in-flight detention bookkeeping
	if err := m.Flags.Set(ctx, tripdata.FlagDetentionActive, false); err != nil {
		return err
	}

	if err := m.TripData.UpdateStop(ctx, tripID, stop); err != nil {
		return err
	}

	if err := m.TripData.CheckTripCompletion(ctx, tripID); err != nil {
		return err
	}

	manipulated, err := m.Flags.Get(ctx, tripdata.FlagStopsManipulated)
	if err != nil {
		return err
	}
	if manipulated {
		// A pending stop manipulation owns the next recalculation
		return nil
	}

	return m.requestRecalc(ctx, tripID)
}

// validForTripType checks the trip's sequencing rule: sequential trips
// require every earlier sequenced stop to have arrived already,
// free-floating trips accept any order.
func (m *StopActionStateMachine) validForTripType(ctx context.Context, tripID string, stop *tripdata.Stop) (bool, error) {
	sequential, err := m.TripData.IsSequentialTrip(ctx, tripID)
	if err != nil {
		return false, err
	}
	if !sequential {
		return true, nil
	}

	trip, err := m.TripData.GetTrip(ctx, tripID)
	if err != nil {
		return false, err
	}
	if trip == nil {
		return false, nil
	}

	for _, other := range trip.OrderedStops() {
		if other.StopID >= stop.StopID {
			break
		}
		if other.Deleted || !other.Sequenced {
			continue
		}
		if other.ArrivalTime == "" {
			return false, nil
		}
	}

	return true, nil
}

// ProcessNegativeResponse handles the operator declining a did-you-arrive
// prompt or letting it time out: the decline is classified and written
// against the stop the prompt referred to, and the alert-active flag is
// cleared so the next advisory can surface.
func (m *StopActionStateMachine) ProcessNegativeResponse(ctx context.Context, stopID int, wasAutoDismissed bool) error {
	tripID, err := m.TripData.ActiveTripID(ctx)
	if err != nil {
		return err
	}
	if tripID == "" {
		log.Debug().Int("stop", stopID).Msg("Dropping negative response, no active trip")
		return nil
	}

	stop, err := m.TripData.GetStop(ctx, tripID, stopID)
	if err != nil {
		return err
	}
	if stop == nil {
		log.Debug().Int("stop", stopID).Msg("Dropping negative response, stop not found")
		return nil
	}

	eta := ""
	if action := stop.Action(tripdata.ActionArrived); action != nil {
		eta = action.ETA
	}

	geofenceType := GeofenceShape(stop.Boundary, m.PolygonalOptOut)

	record := m.Classifier.NegativeResponse(stop.Location, stop.Sequenced, eta, geofenceType, wasAutoDismissed)
	recordClassificationEvent(tripID, stopID, record)

	if err := m.TripData.PersistArrivalReason(ctx, tripID, stopID, record); err != nil {
		return err
	}

	if err := m.Arrivals.Remove(ctx, stopID); err != nil {
		return err
	}

	return m.Flags.Set(ctx, tripdata.FlagAlertActive, false)
}

func (m *StopActionStateMachine) requestRecalc(ctx context.Context, tripID string) error {
	return m.Dispatcher.RequestRouteRecalculation(ctx, tripdata.RouteRecalcRequest{
		Reason:      tripdata.RouteRecalcAuto,
		TripID:      tripID,
		RequestedAt: time.Now().UTC(),
	})
}
