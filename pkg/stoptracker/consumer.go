package stoptracker

import (
	"encoding/json"
	"time"

	"github.com/adjust/rmq/v5"
	"github.com/rs/zerolog/log"
)

// TriggerEvent is the raw payload the location subsystem publishes when
// the vehicle crosses a geofence boundary.
type TriggerEvent struct {
	GeofenceName string `json:"geofence_name"`

	// Correlated dispatch id; empty for legacy senders
	DispatchID string `json:"dispatch_id"`

	// Whether the trigger originated from the map layer rather than the
	// workflow layer
	FromMap bool `json:"from_map"`

	RecordedAt time.Time `json:"recorded_at"`
}

type TriggerBatchConsumer struct {
	id     int
	buffer *GeofenceEventBuffer
}

func NewTriggerBatchConsumer(id int, buffer *GeofenceEventBuffer) *TriggerBatchConsumer {
	return &TriggerBatchConsumer{id: id, buffer: buffer}
}

func (consumer *TriggerBatchConsumer) Consume(batch rmq.Deliveries) {
	payloads := batch.Payloads()

	for _, payload := range payloads {
		var triggerEvent *TriggerEvent
		if err := json.Unmarshal([]byte(payload), &triggerEvent); err != nil {
			log.Error().Err(err).Msg("Failed to decode trigger event")
			continue
		}

		consumer.buffer.Ingest(triggerEvent.GeofenceName, triggerEvent.DispatchID, triggerEvent.FromMap)
	}

	if ackErrors := batch.Ack(); len(ackErrors) > 0 {
		for _, err := range ackErrors {
			log.Fatal().Err(err).Msg("Failed to consume trigger event")
		}
	}
}
