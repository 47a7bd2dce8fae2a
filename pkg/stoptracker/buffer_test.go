package stoptracker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type processedCall struct {
	GeofenceName string
	DispatchID   string
	FromMap      bool
}

type fakeProcessor struct {
	mu    sync.Mutex
	calls []processedCall

	// When set, ProcessTrigger blocks until the channel closes.
	block chan struct{}

	// Geofence names that panic or fail when processed
	panicOn string
	failOn  string
}

func (p *fakeProcessor) ProcessTrigger(ctx context.Context, geofenceName string, dispatchID string, fromMap bool) error {
	p.mu.Lock()
	p.calls = append(p.calls, processedCall{GeofenceName: geofenceName, DispatchID: dispatchID, FromMap: fromMap})
	block := p.block
	p.mu.Unlock()

	if block != nil {
		<-block
	}

	if geofenceName == p.panicOn {
		panic("processor fault")
	}
	if geofenceName == p.failOn {
		return errors.New("processor failure")
	}

	return nil
}

func (p *fakeProcessor) Calls() []processedCall {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]processedCall{}, p.calls...)
}

type fakeTripSource struct {
	mu     sync.Mutex
	tripID string
}

func (s *fakeTripSource) ActiveTripID(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.tripID, nil
}

func testBufferConfig() BufferConfig {
	return BufferConfig{
		DrainInterval:  5 * time.Millisecond,
		SoftEmptyTicks: 2,
		HardEmptyTicks: 10,
	}
}

func waitFor(t *testing.T, timeout time.Duration, condition func() bool, message string) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(time.Millisecond)
	}

	t.Fatal(message)
}

func TestGeofenceEventBuffer_LastWriteWins(t *testing.T) {
	processor := &fakeProcessor{}
	trips := &fakeTripSource{tripID: "dispatch-1"}
	buffer := NewGeofenceEventBuffer(context.Background(), processor, trips, testBufferConfig())
	defer buffer.Stop()

	buffer.Ingest("Arrived2", "dispatch-1", false)
	buffer.Ingest("Arrived2", "dispatch-1", true)

	waitFor(t, time.Second, func() bool {
		return len(processor.Calls()) > 0
	}, "buffered event was never processed")

	calls := processor.Calls()
	if len(calls) != 1 {
		t.Fatalf("got %d processed events, want 1", len(calls))
	}
	if !calls[0].FromMap {
		t.Error("second ingest should have overwritten the first, fromMap = false")
	}
}

func TestGeofenceEventBuffer_PurgesStaleDispatch(t *testing.T) {
	processor := &fakeProcessor{}
	trips := &fakeTripSource{tripID: "dispatch-1"}
	buffer := NewGeofenceEventBuffer(context.Background(), processor, trips, testBufferConfig())
	defer buffer.Stop()

	buffer.Ingest("Arrived2", "dispatch-9", false)
	buffer.Ingest("Depart1", "dispatch-1", false)

	waitFor(t, time.Second, func() bool {
		return len(processor.Calls()) > 0 && buffer.Len() == 0
	}, "current-trip event was never processed")

	for _, call := range processor.Calls() {
		if call.DispatchID == "dispatch-9" {
			t.Error("event for a stale dispatch should have been purged, not processed")
		}
	}
}

func TestGeofenceEventBuffer_ClearsWithoutActiveTrip(t *testing.T) {
	processor := &fakeProcessor{}
	trips := &fakeTripSource{}
	buffer := NewGeofenceEventBuffer(context.Background(), processor, trips, testBufferConfig())
	defer buffer.Stop()

	buffer.Ingest("Approach1", "", false)
	buffer.Ingest("Arrived1", "", false)

	waitFor(t, time.Second, func() bool {
		return buffer.Len() == 0
	}, "buffer was never cleared")

	if calls := processor.Calls(); len(calls) != 0 {
		t.Errorf("got %d processed events with no active trip, want 0", len(calls))
	}
}

func TestGeofenceEventBuffer_StopsAfterIdlePeriod(t *testing.T) {
	processor := &fakeProcessor{}
	trips := &fakeTripSource{tripID: "dispatch-1"}
	buffer := NewGeofenceEventBuffer(context.Background(), processor, trips, testBufferConfig())
	defer buffer.Stop()

	buffer.Ingest("Arrived1", "dispatch-1", false)

	if !buffer.Running() {
		t.Fatal("drain loop should be running after an ingest")
	}

	waitFor(t, time.Second, func() bool {
		return !buffer.Running()
	}, "drain loop never stopped after the buffer emptied")

	if len(processor.Calls()) != 1 {
		t.Errorf("got %d processed events, want 1", len(processor.Calls()))
	}
}

func TestGeofenceEventBuffer_HardStopWithStuckProcessor(t *testing.T) {
	block := make(chan struct{})
	processor := &fakeProcessor{block: block}
	trips := &fakeTripSource{tripID: "dispatch-1"}

	config := testBufferConfig()
	config.SoftEmptyTicks = 2
	config.HardEmptyTicks = 12

	buffer := NewGeofenceEventBuffer(context.Background(), processor, trips, config)
	defer buffer.Stop()
	defer close(block)

	buffer.Ingest("Arrived1", "dispatch-1", false)

	waitFor(t, time.Second, func() bool {
		return len(processor.Calls()) > 0
	}, "processor never picked up the event")

	// The processor is stuck, so the soft threshold alone cannot stop
	// the loop. The hard threshold must.
	time.Sleep(time.Duration(config.SoftEmptyTicks+2) * config.DrainInterval)
	if !buffer.Running() {
		t.Fatal("loop stopped at the soft threshold despite an in-flight event")
	}

	waitFor(t, time.Second, func() bool {
		return !buffer.Running()
	}, "loop never hit the hard stop threshold")
}

func TestGeofenceEventBuffer_FaultDoesNotAbortDrain(t *testing.T) {
	tests := []struct {
		name      string
		processor *fakeProcessor
	}{
		{name: "panic in one entry", processor: &fakeProcessor{panicOn: "Arrived1"}},
		{name: "error in one entry", processor: &fakeProcessor{failOn: "Arrived1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trips := &fakeTripSource{tripID: "dispatch-1"}
			buffer := NewGeofenceEventBuffer(context.Background(), tt.processor, trips, testBufferConfig())
			defer buffer.Stop()

			buffer.Ingest("Arrived1", "dispatch-1", false)
			buffer.Ingest("Depart2", "dispatch-1", false)

			waitFor(t, time.Second, func() bool {
				return len(tt.processor.Calls()) == 2 && buffer.Len() == 0
			}, "the faulting entry aborted the rest of the drain")

			seen := map[string]bool{}
			for _, call := range tt.processor.Calls() {
				seen[call.GeofenceName] = true
			}
			if !seen["Arrived1"] || !seen["Depart2"] {
				t.Errorf("processed %v, want both entries despite the fault", seen)
			}
		})
	}
}

func TestGeofenceEventBuffer_IngestRestartsStoppedLoop(t *testing.T) {
	processor := &fakeProcessor{}
	trips := &fakeTripSource{tripID: "dispatch-1"}
	buffer := NewGeofenceEventBuffer(context.Background(), processor, trips, testBufferConfig())
	defer buffer.Stop()

	buffer.Ingest("Arrived1", "dispatch-1", false)
	waitFor(t, time.Second, func() bool {
		return !buffer.Running()
	}, "drain loop never stopped")

	buffer.Ingest("Depart1", "dispatch-1", false)
	if !buffer.Running() {
		t.Fatal("ingest should restart the drain loop")
	}

	waitFor(t, time.Second, func() bool {
		return len(processor.Calls()) == 2
	}, "event ingested after restart was never processed")
}
