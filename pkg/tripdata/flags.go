package tripdata

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/tripflow/tripflow/pkg/redis_client"
)

// Durable flag names shared between the state machine and its callers.
const (
	FlagDriverStartedFromFirstStop = "driver_started_from_first_stop"
	FlagAlertActive                = "alert_active"
	FlagStopsManipulated           = "stops_manipulated"
	FlagDetentionActive            = "detention_active"
)

// RedisFlagStore persists the durable boolean flags in redis. An unset
// flag reads as false.
type RedisFlagStore struct{}

func NewRedisFlagStore() *RedisFlagStore {
	return &RedisFlagStore{}
}

func flagKey(name string) string {
	return fmt.Sprintf("tripflow:flag:%s", name)
}

func (s *RedisFlagStore) Get(ctx context.Context, name string) (bool, error) {
	value, err := redis_client.Client.Get(ctx, flagKey(name)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return value == "1", nil
}

func (s *RedisFlagStore) Set(ctx context.Context, name string, value bool) error {
	stored := "0"
	if value {
		stored = "1"
	}

	return redis_client.Client.Set(ctx, flagKey(name), stored, 0).Err()
}
