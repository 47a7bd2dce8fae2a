package stoptracker

import (
	"fmt"
	"strconv"

	"github.com/tripflow/tripflow/pkg/tripdata"
)

// Geofence names on the wire are `<ActionToken><StopID>` with no
// delimiter, e.g. "Arrived1". Tokens are case-sensitive. Raw names are
// decoded here at the buffer boundary and never propagate further in.
const (
	tokenApproach = "Approach"
	tokenArrived  = "Arrived"
	tokenDepart   = "Depart"
)

// Trigger is a decoded geofence-boundary crossing.
type Trigger struct {
	Kind   tripdata.ActionKind
	StopID int
}

// DecodeGeofenceName splits the leading alphabetic run from the trailing
// numeric run and maps the token onto an action kind.
func DecodeGeofenceName(name string) (Trigger, error) {
	split := 0
	for split < len(name) {
		c := name[split]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') {
			split++
			continue
		}
		break
	}

	token := name[:split]
	digits := name[split:]

	if token == "" || digits == "" {
		return Trigger{}, fmt.Errorf("malformed geofence name %q", name)
	}

	var kind tripdata.ActionKind
	switch token {
	case tokenApproach:
		kind = tripdata.ActionApproaching
	case tokenArrived:
		kind = tripdata.ActionArrived
	case tokenDepart:
		kind = tripdata.ActionDeparted
	default:
		return Trigger{}, fmt.Errorf("unknown action token %q in geofence name %q", token, name)
	}

	stopID, err := strconv.Atoi(digits)
	if err != nil {
		return Trigger{}, fmt.Errorf("invalid stop id in geofence name %q: %w", name, err)
	}

	return Trigger{Kind: kind, StopID: stopID}, nil
}

// EncodeGeofenceName produces the wire name used when registering a
// geofence for a stop action.
func EncodeGeofenceName(kind tripdata.ActionKind, stopID int) string {
	var token string
	switch kind {
	case tripdata.ActionApproaching:
		token = tokenApproach
	case tripdata.ActionArrived:
		token = tokenArrived
	case tripdata.ActionDeparted:
		token = tokenDepart
	}

	return token + strconv.Itoa(stopID)
}
