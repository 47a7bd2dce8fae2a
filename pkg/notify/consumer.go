package notify

import (
	"context"
	"encoding/json"

	"github.com/adjust/rmq/v5"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"

	"github.com/tripflow/tripflow/pkg/tripdata"
)

type AdvisoryBatchConsumer struct {
	pushManager *PushManager
}

func NewAdvisoryBatchConsumer(pushManager *PushManager) *AdvisoryBatchConsumer {
	return &AdvisoryBatchConsumer{pushManager: pushManager}
}

func (c *AdvisoryBatchConsumer) Consume(batch rmq.Deliveries) {
	payloads := batch.Payloads()

	targets, err := c.pushManager.Targets(context.Background())
	if err != nil {
		log.Error().Err(err).Msg("Failed to look up push targets")
	}

	for _, payload := range payloads {
		var message *tripdata.TripPanelMessage
		if err := json.Unmarshal([]byte(payload), &message); err != nil {
			log.Error().Err(err).Msg("Failed to decode advisory message")
			continue
		}

		// Fan the push out across devices; a failed send is logged and
		// dropped, the scheduler re-emits advisories on state change
		sendPool := pool.New().WithMaxGoroutines(4)
		for _, target := range targets {
			target := target
			sendPool.Go(func() {
				if err := c.pushManager.SendAdvisory(context.Background(), target, *message); err != nil {
					log.Error().Err(err).Str("operator", target.OperatorID).Msg("Failed to send advisory push")
				}
			})
		}
		sendPool.Wait()
	}

	if ackErrors := batch.Ack(); len(ackErrors) > 0 {
		for _, err := range ackErrors {
			log.Fatal().Err(err).Msg("Failed to consume advisory message")
		}
	}
}
