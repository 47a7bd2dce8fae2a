package stoptracker

import (
	"context"
	"fmt"

	"github.com/tripflow/tripflow/pkg/tripdata"
)

// BuildAdvisories enqueues every advisory candidate for the current trip
// state: did-you-arrive prompts for cached arrivals, a form reminder for
// an arrived-but-not-departed stop, stop selection for free-floating
// trips and the next stop's address for sequential ones. The scheduler's
// priority order then decides which single message surfaces.
func BuildAdvisories(ctx context.Context, trips TripData, arrivals ArrivalCache, scheduler *TripPanelScheduler) error {
	// Candidates are rebuilt from scratch: anything still queued from a
	// previous build describes trip state that no longer exists.
	scheduler.Clear()

	tripID, err := trips.ActiveTripID(ctx)
	if err != nil {
		return err
	}
	if tripID == "" {
		return nil
	}

	trip, err := trips.GetTrip(ctx, tripID)
	if err != nil {
		return err
	}
	if trip == nil {
		return nil
	}

	currentStop := CurrentStop(trip)
	currentStopID := -1
	if currentStop != nil {
		currentStopID = currentStop.StopID
	}

	pending, err := arrivals.List(ctx)
	if err != nil {
		return err
	}
	for _, arrival := range pending {
		scheduler.Enqueue(DidYouArriveMessage(arrival, currentStopID))
	}

	if currentStop != nil && currentStop.ArrivalTime != "" {
		scheduler.Enqueue(tripdata.TripPanelMessage{
			MessageID: MessageCompleteForm,
			Priority:  PriorityCompleteForm,
			Text:      fmt.Sprintf("Complete the stop form for stop %d", currentStop.StopID),
			StopID:    currentStop.StopID,
		})
	}

	if currentStop != nil && currentStop.ArrivalTime == "" {
		if trip.Sequential {
			scheduler.Enqueue(tripdata.TripPanelMessage{
				MessageID: MessageNextStopAddress,
				Priority:  PriorityNextStopAddress,
				Text: fmt.Sprintf("Next stop %d at %.5f, %.5f",
					currentStop.StopID, currentStop.Location.Latitude, currentStop.Location.Longitude),
				StopID: currentStop.StopID,
			})
		} else {
			scheduler.Enqueue(tripdata.TripPanelMessage{
				MessageID: MessageSelectStopToNavigate,
				Priority:  PrioritySelectStopToNavigate,
				Text:      "Select the next stop to navigate to",
				StopID:    currentStop.StopID,
			})
		}
	}

	return nil
}

// CurrentStop returns the stop the operator is working: the first
// non-deleted stop that has not yet departed. Nil once the trip is done.
func CurrentStop(trip *tripdata.Trip) *tripdata.Stop {
	for _, stop := range trip.OrderedStops() {
		if stop.Deleted {
			continue
		}
		if stop.DepartureTime == "" {
			return stop
		}
	}

	return nil
}
