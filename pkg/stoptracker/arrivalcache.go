package stoptracker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	redisstore "github.com/eko/gocache/store/redis/v4"
	"github.com/rs/zerolog/log"
	"golang.org/x/exp/slices"

	"github.com/tripflow/tripflow/pkg/redis_client"
)

// PendingArrival is an accepted arrival waiting for the panel scheduler
// to surface its did-you-arrive prompt.
type PendingArrival struct {
	TripID string `json:"trip_id"`
	StopID int    `json:"stop_id"`

	ETA       string    `json:"eta"`
	Sequenced bool      `json:"sequenced"`
	CachedAt  time.Time `json:"cached_at"`
}

// ArrivalCache carries pending arrivals from the state machine to the
// panel scheduler. Entries are keyed by stop: a newer arrival for the
// same stop replaces the older one.
type ArrivalCache interface {
	Add(ctx context.Context, arrival PendingArrival) error
	List(ctx context.Context) ([]PendingArrival, error)
	Remove(ctx context.Context, stopID int) error
}

const pendingArrivalsKey = "pending-arrivals"

// RedisArrivalCache stores the pending set as one JSON document in
// redis with a safety expiration, so stale prompts die with the trip.
type RedisArrivalCache struct {
	cache *cache.Cache[string]
}

func NewRedisArrivalCache() *RedisArrivalCache {
	redisStore := redisstore.NewRedis(redis_client.Client, store.WithExpiration(90*time.Minute))

	return &RedisArrivalCache{
		cache: cache.New[string](redisStore),
	}
}

func (c *RedisArrivalCache) load(ctx context.Context) []PendingArrival {
	cached, err := c.cache.Get(ctx, pendingArrivalsKey)
	if err != nil {
		// A miss is normal (nothing pending or the entry expired);
		// anything else still degrades to empty but gets logged
		log.Debug().Err(err).Msg("No pending arrivals available")
		return nil
	}
	if cached == "" {
		return nil
	}

	return decodePendingArrivals(cached)
}

// decodePendingArrivals drops a corrupted pending-arrivals document
// rather than failing the caller, like every other bad-input path here.
func decodePendingArrivals(cached string) []PendingArrival {
	var arrivals []PendingArrival
	if err := json.Unmarshal([]byte(cached), &arrivals); err != nil {
		log.Error().Err(err).Msg("Dropping corrupted pending arrivals")
		return nil
	}

	return arrivals
}

func (c *RedisArrivalCache) save(ctx context.Context, arrivals []PendingArrival) error {
	encoded, err := json.Marshal(arrivals)
	if err != nil {
		return err
	}

	return c.cache.Set(ctx, pendingArrivalsKey, string(encoded))
}

func (c *RedisArrivalCache) Add(ctx context.Context, arrival PendingArrival) error {
	arrivals := c.load(ctx)

	arrivals = slices.DeleteFunc(arrivals, func(existing PendingArrival) bool {
		return existing.StopID == arrival.StopID
	})
	arrivals = append(arrivals, arrival)

	return c.save(ctx, arrivals)
}

func (c *RedisArrivalCache) List(ctx context.Context) ([]PendingArrival, error) {
	return c.load(ctx), nil
}

func (c *RedisArrivalCache) Remove(ctx context.Context, stopID int) error {
	arrivals := c.load(ctx)

	arrivals = slices.DeleteFunc(arrivals, func(existing PendingArrival) bool {
		return existing.StopID == stopID
	})

	return c.save(ctx, arrivals)
}
