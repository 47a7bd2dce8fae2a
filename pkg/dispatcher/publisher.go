package dispatcher

import (
	"context"
	"encoding/json"
	"time"

	"github.com/adjust/rmq/v5"

	"github.com/tripflow/tripflow/pkg/redis_client"
	"github.com/tripflow/tripflow/pkg/tripdata"
)

// Queue names for the outbound side effects of stop processing.
const (
	QueueStopActionEvents   = "stop-action-events"
	QueueRouteRecalculation = "route-recalculation"
	QueueAdvisoryMessages   = "advisory-messages"
	QueueGeofenceRemovals   = "geofence-removals"
)

type GeofenceRemoval struct {
	GeofenceName string    `json:"geofence_name"`
	RequestedAt  time.Time `json:"requested_at"`
}

// QueuePublisher pushes stop-action side effects onto redis queues for
// the downstream collaborators (route planner, notification transport,
// geofencing engine).
type QueuePublisher struct {
	stopActions      rmq.Queue
	routeRecalc      rmq.Queue
	advisories       rmq.Queue
	geofenceRemovals rmq.Queue
}

func NewQueuePublisher() (*QueuePublisher, error) {
	publisher := &QueuePublisher{}

	var err error
	if publisher.stopActions, err = redis_client.QueueConnection.OpenQueue(QueueStopActionEvents); err != nil {
		return nil, err
	}
	if publisher.routeRecalc, err = redis_client.QueueConnection.OpenQueue(QueueRouteRecalculation); err != nil {
		return nil, err
	}
	if publisher.advisories, err = redis_client.QueueConnection.OpenQueue(QueueAdvisoryMessages); err != nil {
		return nil, err
	}
	if publisher.geofenceRemovals, err = redis_client.QueueConnection.OpenQueue(QueueGeofenceRemovals); err != nil {
		return nil, err
	}

	return publisher, nil
}

func (p *QueuePublisher) DispatchStopAction(ctx context.Context, event tripdata.StopActionEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return p.stopActions.PublishBytes(payload)
}

func (p *QueuePublisher) RequestRouteRecalculation(ctx context.Context, request tripdata.RouteRecalcRequest) error {
	payload, err := json.Marshal(request)
	if err != nil {
		return err
	}

	return p.routeRecalc.PublishBytes(payload)
}

func (p *QueuePublisher) PublishAdvisory(ctx context.Context, message tripdata.TripPanelMessage) error {
	payload, err := json.Marshal(message)
	if err != nil {
		return err
	}

	return p.advisories.PublishBytes(payload)
}

func (p *QueuePublisher) RemoveGeofence(ctx context.Context, geofenceName string) error {
	payload, err := json.Marshal(GeofenceRemoval{
		GeofenceName: geofenceName,
		RequestedAt:  time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	return p.geofenceRemovals.PublishBytes(payload)
}
