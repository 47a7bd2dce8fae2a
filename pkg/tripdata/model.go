package tripdata

import (
	"strconv"

	"golang.org/x/exp/slices"
)

type ActionKind string

const (
	ActionApproaching ActionKind = "APPROACHING"
	ActionArrived     ActionKind = "ARRIVED"
	ActionDeparted    ActionKind = "DEPARTED"
)

type GeofenceType string

const (
	GeofenceTypeCircular GeofenceType = "CIRCULAR"
	GeofenceTypePolygon  GeofenceType = "POLYGON"
)

type Location struct {
	Latitude  float64 `groups:"basic"`
	Longitude float64 `groups:"basic"`
}

// Trip is a snapshot of one dispatched trip. Trips are owned by the
// dispatch system; this service only ever reads a snapshot and mutates
// individual stops through the repository.
type Trip struct {
	PrimaryIdentifier string `groups:"basic"`

	IsActive   bool `groups:"basic"`
	Sequential bool `groups:"basic"`

	CreationDateTime     string `groups:"detailed"`
	ModificationDateTime string `groups:"detailed"`
	CompletedDateTime    string `groups:"detailed"`

	Stops map[string]*Stop `groups:"basic"`
}

// Stop returns the stop with the given id, nil if the trip has no such stop.
func (t *Trip) Stop(stopID int) *Stop {
	return t.Stops[strconv.Itoa(stopID)]
}

// OrderedStops returns the trip's stops sorted by stop id.
func (t *Trip) OrderedStops() []*Stop {
	stops := make([]*Stop, 0, len(t.Stops))
	for _, stop := range t.Stops {
		stops = append(stops, stop)
	}

	slices.SortFunc(stops, func(a, b *Stop) int {
		return a.StopID - b.StopID
	})

	return stops
}

type Stop struct {
	StopID int `groups:"basic"`

	Sequenced bool `groups:"basic"`
	Deleted   bool `groups:"basic"`

	Location Location   `groups:"basic"`
	Boundary []Location `groups:"detailed"`

	// Empty string means the event has not yet occurred
	ArrivalTime   string `groups:"basic"`
	DepartureTime string `groups:"basic"`

	ArrivalLatitude  float64 `groups:"detailed"`
	ArrivalLongitude float64 `groups:"detailed"`

	ManualArrival bool `groups:"basic"`

	Actions []*Action `groups:"detailed"`
}

// Action returns the stop's action of the given kind, nil if none exists.
// A stop holds at most one action per kind.
func (s *Stop) Action(kind ActionKind) *Action {
	for _, action := range s.Actions {
		if action.Kind == kind {
			return action
		}
	}

	return nil
}

// SetAction upserts an action, replacing any existing action of the same
// kind so the one-action-per-kind invariant holds.
func (s *Stop) SetAction(action *Action) {
	for i, existing := range s.Actions {
		if existing.Kind == action.Kind {
			s.Actions[i] = action
			return
		}
	}

	s.Actions = append(s.Actions, action)
}

type Action struct {
	Kind ActionKind `groups:"basic"`

	RadiusFeet int `groups:"basic"`

	// ISO-8601 UTC timestamp, empty when unknown
	ETA string `groups:"basic"`

	TriggerReceived   bool   `groups:"detailed"`
	TriggerReceivedAt string `groups:"detailed"`

	ResponseSent bool `groups:"detailed"`
}
