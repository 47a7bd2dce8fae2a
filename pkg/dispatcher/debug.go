package dispatcher

import (
	"github.com/adjust/rmq/v5"
	"github.com/kr/pretty"
	"github.com/rs/zerolog/log"
)

type DebugBatchConsumer struct {
}

func NewDebugBatchConsumer() *DebugBatchConsumer {
	return &DebugBatchConsumer{}
}

func (c *DebugBatchConsumer) Consume(batch rmq.Deliveries) {
	payloads := batch.Payloads()

	for _, payload := range payloads {
		pretty.Println(string(payload))
	}

	if ackErrors := batch.Ack(); len(ackErrors) > 0 {
		for _, err := range ackErrors {
			log.Fatal().Err(err).Msg("Failed to consume from queue")
		}
	}
}
