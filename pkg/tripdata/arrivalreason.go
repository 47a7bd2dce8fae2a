package tripdata

import "time"

type ArrivalReason string

const (
	ReasonTriggerReceived          ArrivalReason = "TRIGGER_RECEIVED"
	ReasonTriggerIgnoredByWorkflow ArrivalReason = "TRIGGER_IGNORED_BY_WORKFLOW"
	ReasonPromptIgnoredByDriver    ArrivalReason = "DID_YOU_ARRIVE_IGNORED_BY_DRIVER"
	ReasonDriverClickedNo          ArrivalReason = "DRIVER_CLICKED_NO"
	ReasonDriverNotInStopLocation  ArrivalReason = "DRIVER_NOT_IN_STOP_LOCATION"
	ReasonTriggerNotReceived       ArrivalReason = "TRIGGER_NOT_RECEIVED"
)

type ArrivalType string

const (
	ArrivalTypeDriverClickedYes ArrivalType = "DRIVER_CLICKED_YES"
	ArrivalTypeTimerExpired     ArrivalType = "TIMER_EXPIRED"
	ArrivalTypeManual           ArrivalType = "MANUAL_ARRIVAL"
)

// ArrivalReasonRecord explains why an arrival was (or was not) recorded
// for a stop. Written once per arrival decision and replaced wholesale on
// the next decision, never mutated in place.
type ArrivalReasonRecord struct {
	Reason      ArrivalReason `groups:"basic"`
	ArrivalType ArrivalType   `groups:"basic"`

	StopLocation Location `groups:"basic"`
	Sequenced    bool     `groups:"basic"`

	ETA          string       `groups:"basic"`
	GeofenceType GeofenceType `groups:"basic"`
	DriverID     string       `groups:"basic"`

	RecordedAt time.Time `groups:"basic"`

	// Nullable context captured at classification time
	Status         *string   `groups:"detailed"`
	StatusTime     *string   `groups:"detailed"`
	DriverLocation *Location `groups:"detailed"`
	DistanceFeet   *float64  `groups:"detailed"`
}
