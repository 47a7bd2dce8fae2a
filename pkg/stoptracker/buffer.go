package stoptracker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

// TriggerProcessor consumes one buffered geofence event.
type TriggerProcessor interface {
	ProcessTrigger(ctx context.Context, geofenceName string, dispatchID string, fromMap bool) error
}

// ActiveTripSource is the slice of the trip-data collaborator the buffer
// needs to purge events that no longer belong to the current trip.
type ActiveTripSource interface {
	ActiveTripID(ctx context.Context) (string, error)
}

type bufferedTrigger struct {
	DispatchID string
	FromMap    bool
}

// GeofenceEventBuffer absorbs bursts of geofence trigger events without
// losing or double-processing them. A second trigger for the same
// geofence name before the next drain overwrites the first. Each ingest
// restarts the periodic drain loop, which stops itself once the buffer
// has stayed empty long enough.
type GeofenceEventBuffer struct {
	processor TriggerProcessor
	trips     ActiveTripSource
	config    BufferConfig

	baseCtx context.Context

	mu      sync.Mutex
	entries map[string]bufferedTrigger

	inFlight atomic.Bool

	loopMu     sync.Mutex
	loopCancel context.CancelFunc
	loopDone   chan struct{}
}

func NewGeofenceEventBuffer(ctx context.Context, processor TriggerProcessor, trips ActiveTripSource, config BufferConfig) *GeofenceEventBuffer {
	return &GeofenceEventBuffer{
		processor: processor,
		trips:     trips,
		config:    config,
		baseCtx:   ctx,
		entries:   map[string]bufferedTrigger{},
	}
}

// Ingest upserts one raw trigger, last write wins, and (re)starts the
// drain loop so it always outlives the most recent event by at least a
// full interval.
func (b *GeofenceEventBuffer) Ingest(geofenceName string, dispatchID string, fromMap bool) {
	b.mu.Lock()
	b.entries[geofenceName] = bufferedTrigger{DispatchID: dispatchID, FromMap: fromMap}
	b.mu.Unlock()

	b.restartDrain()
}

// Len returns the number of buffered entries.
func (b *GeofenceEventBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.entries)
}

// Running reports whether a drain loop is currently alive.
func (b *GeofenceEventBuffer) Running() bool {
	b.loopMu.Lock()
	defer b.loopMu.Unlock()

	if b.loopDone == nil {
		return false
	}

	select {
	case <-b.loopDone:
		return false
	default:
		return true
	}
}

// Stop cancels the drain loop. An in-flight entry finishes processing.
func (b *GeofenceEventBuffer) Stop() {
	b.loopMu.Lock()
	defer b.loopMu.Unlock()

	if b.loopCancel != nil {
		b.loopCancel()
	}
}

// restartDrain cancels any existing drain loop and starts a fresh one,
// so at most one loop is alive at a time.
func (b *GeofenceEventBuffer) restartDrain() {
	b.loopMu.Lock()
	defer b.loopMu.Unlock()

	if b.loopCancel != nil {
		b.loopCancel()
	}

	ctx, cancel := context.WithCancel(b.baseCtx)
	done := make(chan struct{})

	b.loopCancel = cancel
	b.loopDone = done

	go b.runDrainLoop(ctx, done)
}

func (b *GeofenceEventBuffer) runDrainLoop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(b.config.DrainInterval)
	defer ticker.Stop()

	emptyTicks := 0

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !b.drainTick(ctx, &emptyTicks) {
				return
			}
		}
	}
}

// drainTick runs one pass: purge events that cannot belong to the
// active trip, hand the rest to the processor, and decide whether the
// loop should keep running. Returns false to request self-stop.
func (b *GeofenceEventBuffer) drainTick(ctx context.Context, emptyTicks *int) bool {
	activeTripID, err := b.trips.ActiveTripID(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to look up active trip")
		return true
	}

	b.mu.Lock()
	if len(b.entries) > 0 && activeTripID == "" {
		log.Warn().Int("count", len(b.entries)).Msg("Discarding buffered geofence events, no active trip")
		b.entries = map[string]bufferedTrigger{}
	} else {
		for name, entry := range b.entries {
			if entry.DispatchID != "" && entry.DispatchID != activeTripID {
				log.Warn().
					Str("geofence", name).
					Str("dispatch", entry.DispatchID).
					Str("active", activeTripID).
					Msg("Purging geofence event for stale trip")
				delete(b.entries, name)
			}
		}
	}

	pending := make(map[string]bufferedTrigger, len(b.entries))
	for name, entry := range b.entries {
		pending[name] = entry
	}
	b.mu.Unlock()

	if len(pending) > 0 {
		*emptyTicks = 0

		if b.inFlight.CompareAndSwap(false, true) {
			go b.process(pending)
		}

		return true
	}

	*emptyTicks++

	if *emptyTicks > b.config.HardEmptyTicks {
		log.Info().Msg("Geofence drain loop idle past hard threshold, force stopping")
		return false
	}

	if *emptyTicks > b.config.SoftEmptyTicks && !b.inFlight.Load() {
		log.Debug().Msg("Geofence drain loop idle, stopping")
		return false
	}

	return true
}

// process runs the buffered entries sequentially. Faults in one entry
// are logged and never abort the remaining entries. Each entry is
// popped from the map as it is handed over, unless a newer trigger
// overwrote it meanwhile, so a failed entry is dropped rather than
// retried and emptiness ticks can accrue while a slow entry is still in
// flight.
func (b *GeofenceEventBuffer) process(pending map[string]bufferedTrigger) {
	defer b.inFlight.Store(false)

	for name, entry := range pending {
		b.mu.Lock()
		if current, ok := b.entries[name]; ok && current == entry {
			delete(b.entries, name)
		}
		b.mu.Unlock()

		b.processOne(name, entry)
	}
}

func (b *GeofenceEventBuffer) processOne(name string, entry bufferedTrigger) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("geofence", name).Interface("panic", r).Msg("Recovered while processing geofence event")
		}
	}()

	if err := b.processor.ProcessTrigger(b.baseCtx, name, entry.DispatchID, entry.FromMap); err != nil {
		log.Error().Err(err).Str("geofence", name).Msg("Failed to process geofence event")
	}
}
