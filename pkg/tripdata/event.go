package tripdata

import "time"

type RouteRecalcReason string

const (
	RouteRecalcAuto   RouteRecalcReason = "AUTO"
	RouteRecalcManual RouteRecalcReason = "MANUAL"
)

// StopActionEvent is dispatched whenever the state machine applies (or
// deliberately skips) an action transition for a stop.
type StopActionEvent struct {
	TripID string     `json:"trip_id"`
	StopID int        `json:"stop_id"`
	Kind   ActionKind `json:"kind"`

	// Whether the driver already acknowledged arrival at this stop by hand
	Acknowledged bool `json:"acknowledged"`

	RecordedAt time.Time `json:"recorded_at"`
}

type RouteRecalcRequest struct {
	Reason      RouteRecalcReason `json:"reason"`
	TripID      string            `json:"trip_id"`
	RequestedAt time.Time         `json:"requested_at"`
}

// TripPanelMessage is one advisory competing for the single operator
// panel slot. Lower priority value wins.
type TripPanelMessage struct {
	MessageID int    `json:"message_id"`
	Priority  int    `json:"priority"`
	Text      string `json:"text"`
	StopID    int    `json:"stop_id"`
}
