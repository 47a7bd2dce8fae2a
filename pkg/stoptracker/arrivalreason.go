package stoptracker

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tripflow/tripflow/pkg/elastic_client"
	"github.com/tripflow/tripflow/pkg/tripdata"
)

// ArrivalReasonClassifier decides why an arrival was recorded,
// independent of the fact that it occurred.
type ArrivalReasonClassifier struct {
	DriverID string
}

// Classify builds the reason record for an automatic arrival at the
// moment the trigger is accepted.
func (c *ArrivalReasonClassifier) Classify(stopLocation tripdata.Location, sequenced bool, eta string, geofenceType tripdata.GeofenceType) *tripdata.ArrivalReasonRecord {
	return &tripdata.ArrivalReasonRecord{
		Reason: tripdata.ReasonTriggerReceived,

		StopLocation: stopLocation,
		Sequenced:    sequenced,
		ETA:          eta,
		GeofenceType: geofenceType,
		DriverID:     c.DriverID,

		RecordedAt: time.Now().UTC(),
	}
}

// ClassifyIgnored builds a record for an arrival trigger that was
// dropped rather than applied, e.g. out-of-order stops on a sequential
// trip.
func (c *ArrivalReasonClassifier) ClassifyIgnored(stopLocation tripdata.Location, sequenced bool, eta string, geofenceType tripdata.GeofenceType, reason tripdata.ArrivalReason) *tripdata.ArrivalReasonRecord {
	record := c.Classify(stopLocation, sequenced, eta, geofenceType)
	record.Reason = reason

	return record
}

// NegativeResponse builds the record for an arrival prompt the operator
// declined or let expire. Auto dismissal means the workflow timed the
// prompt out; otherwise the operator clicked no.
func (c *ArrivalReasonClassifier) NegativeResponse(stopLocation tripdata.Location, sequenced bool, eta string, geofenceType tripdata.GeofenceType, wasAutoDismissed bool) *tripdata.ArrivalReasonRecord {
	reason := tripdata.ReasonDriverClickedNo
	if wasAutoDismissed {
		reason = tripdata.ReasonTriggerIgnoredByWorkflow
	}

	return c.ClassifyIgnored(stopLocation, sequenced, eta, geofenceType, reason)
}

type arrivalClassificationElasticEvent struct {
	Timestamp time.Time

	TripID string
	StopID int

	Reason      tripdata.ArrivalReason
	ArrivalType tripdata.ArrivalType

	GeofenceType tripdata.GeofenceType
	Driver       string
}

// recordClassificationEvent ships the decision to Elasticsearch for
// after-the-fact analysis. No-op when Elasticsearch is not configured.
func recordClassificationEvent(tripID string, stopID int, record *tripdata.ArrivalReasonRecord) {
	yearNumber, weekNumber := record.RecordedAt.ISOWeek()
	indexName := fmt.Sprintf("stop-arrival-events-%d-%d", yearNumber, weekNumber)

	elasticEvent, _ := json.Marshal(arrivalClassificationElasticEvent{
		Timestamp: record.RecordedAt,

		TripID: tripID,
		StopID: stopID,

		Reason:      record.Reason,
		ArrivalType: record.ArrivalType,

		GeofenceType: record.GeofenceType,
		Driver:       record.DriverID,
	})

	elastic_client.IndexRequest(indexName, bytes.NewReader(elasticEvent))
}
