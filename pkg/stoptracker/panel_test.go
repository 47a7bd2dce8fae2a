package stoptracker

import (
	"testing"

	"github.com/tripflow/tripflow/pkg/tripdata"
)

func TestTripPanelScheduler_PriorityOrder(t *testing.T) {
	scheduler := NewTripPanelScheduler()

	scheduler.Enqueue(tripdata.TripPanelMessage{MessageID: MessageNextStopAddress, Priority: PriorityNextStopAddress, Text: "Next stop: 400 Main St", StopID: 3})
	scheduler.Enqueue(tripdata.TripPanelMessage{MessageID: MessageDidYouArrive, Priority: PriorityDidYouArriveCurrentStop, Text: "Did you arrive at stop 2?", StopID: 2})
	scheduler.Enqueue(tripdata.TripPanelMessage{MessageID: MessageCompleteForm, Priority: PriorityCompleteForm, Text: "Complete the stop form", StopID: 2})
	scheduler.Enqueue(tripdata.TripPanelMessage{MessageID: MessageDidYouArrive, Priority: PriorityDidYouArriveOtherStop, Text: "Did you arrive at stop 5?", StopID: 5})

	wantOrder := []int{
		MessageDidYouArrive,
		MessageDidYouArrive,
		MessageCompleteForm,
		MessageNextStopAddress,
	}
	wantStops := []int{2, 5, 2, 3}

	for i, wantID := range wantOrder {
		message, ok := scheduler.Next()
		if !ok {
			t.Fatalf("message %d: queue empty", i)
		}
		if message.MessageID != wantID || message.StopID != wantStops[i] {
			t.Errorf("message %d = id %d stop %d, want id %d stop %d", i, message.MessageID, message.StopID, wantID, wantStops[i])
		}
	}

	if _, ok := scheduler.Next(); ok {
		t.Error("queue should be empty after draining")
	}
}

func TestTripPanelScheduler_StableTies(t *testing.T) {
	scheduler := NewTripPanelScheduler()

	for _, stopID := range []int{7, 3, 9} {
		scheduler.Enqueue(tripdata.TripPanelMessage{
			MessageID: MessageDidYouArrive,
			Priority:  PriorityDidYouArriveOtherStop,
			Text:      "Did you arrive?",
			StopID:    stopID,
		})
	}

	for i, want := range []int{7, 3, 9} {
		message, ok := scheduler.Next()
		if !ok {
			t.Fatalf("message %d: queue empty", i)
		}
		if message.StopID != want {
			t.Errorf("message %d stop = %d, want %d (insertion order)", i, message.StopID, want)
		}
	}
}

func TestShouldEmit(t *testing.T) {
	last := &tripdata.TripPanelMessage{MessageID: MessageDidYouArrive, Text: "Did you arrive at stop 2?", StopID: 2}

	tests := []struct {
		name      string
		candidate tripdata.TripPanelMessage
		lastSent  *tripdata.TripPanelMessage
		want      bool
	}{
		{
			name:      "nothing sent yet",
			candidate: tripdata.TripPanelMessage{MessageID: MessageDidYouArrive, Text: "Did you arrive at stop 2?", StopID: 2},
			lastSent:  nil,
			want:      true,
		},
		{
			name:      "exact repeat suppressed",
			candidate: tripdata.TripPanelMessage{MessageID: MessageDidYouArrive, Text: "Did you arrive at stop 2?", StopID: 2},
			lastSent:  last,
			want:      false,
		},
		{
			name:      "different stop emits",
			candidate: tripdata.TripPanelMessage{MessageID: MessageDidYouArrive, Text: "Did you arrive at stop 2?", StopID: 5},
			lastSent:  last,
			want:      true,
		},
		{
			name:      "different text emits",
			candidate: tripdata.TripPanelMessage{MessageID: MessageDidYouArrive, Text: "Did you arrive at stop 5?", StopID: 2},
			lastSent:  last,
			want:      true,
		},
		{
			name:      "different template emits",
			candidate: tripdata.TripPanelMessage{MessageID: MessageCompleteForm, Text: "Did you arrive at stop 2?", StopID: 2},
			lastSent:  last,
			want:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShouldEmit(tt.candidate, tt.lastSent); got != tt.want {
				t.Errorf("ShouldEmit() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTripPanelScheduler_NextToEmitDropsRepeats(t *testing.T) {
	scheduler := NewTripPanelScheduler()
	message := tripdata.TripPanelMessage{MessageID: MessageDidYouArrive, Priority: PriorityDidYouArriveCurrentStop, Text: "Did you arrive at stop 2?", StopID: 2}

	scheduler.Enqueue(message)

	first, ok := scheduler.NextToEmit()
	if !ok {
		t.Fatal("first emission should succeed")
	}
	if first.StopID != 2 {
		t.Fatalf("first emission stop = %d, want 2", first.StopID)
	}

	// Re-enqueue the same message alongside a lower-priority one. The
	// repeat is dropped and the other message emits instead.
	scheduler.Enqueue(message)
	scheduler.Enqueue(tripdata.TripPanelMessage{MessageID: MessageCompleteForm, Priority: PriorityCompleteForm, Text: "Complete the stop form", StopID: 2})

	second, ok := scheduler.NextToEmit()
	if !ok {
		t.Fatal("second call should fall through to the complete-form message")
	}
	if second.MessageID != MessageCompleteForm {
		t.Errorf("second emission = id %d, want %d", second.MessageID, MessageCompleteForm)
	}

	last := scheduler.LastSent()
	if last == nil || last.MessageID != MessageCompleteForm {
		t.Error("LastSent should reflect the complete-form emission")
	}
}

func TestTripPanelScheduler_ClearKeepsDebounce(t *testing.T) {
	scheduler := NewTripPanelScheduler()
	message := tripdata.TripPanelMessage{MessageID: MessageDidYouArrive, Priority: PriorityDidYouArriveCurrentStop, Text: "Did you arrive at stop 2?", StopID: 2}

	scheduler.Enqueue(message)
	if _, ok := scheduler.NextToEmit(); !ok {
		t.Fatal("first emission should succeed")
	}

	scheduler.Enqueue(tripdata.TripPanelMessage{MessageID: MessageCompleteForm, Priority: PriorityCompleteForm, Text: "Complete the stop form", StopID: 2})
	scheduler.Clear()

	if _, ok := scheduler.Next(); ok {
		t.Error("Clear should drop every queued candidate")
	}

	// The last emission survives a clear, so re-enqueueing the same
	// message is still suppressed.
	scheduler.Enqueue(message)
	if _, ok := scheduler.NextToEmit(); ok {
		t.Error("an exact repeat should stay suppressed after Clear")
	}
}

func TestDidYouArriveMessage(t *testing.T) {
	arrival := PendingArrival{TripID: "trip-1", StopID: 4}

	current := DidYouArriveMessage(arrival, 4)
	if current.Priority != PriorityDidYouArriveCurrentStop {
		t.Errorf("current-stop arrival priority = %d, want %d", current.Priority, PriorityDidYouArriveCurrentStop)
	}

	other := DidYouArriveMessage(arrival, 1)
	if other.Priority != PriorityDidYouArriveOtherStop {
		t.Errorf("other-stop arrival priority = %d, want %d", other.Priority, PriorityDidYouArriveOtherStop)
	}
	if other.MessageID != MessageDidYouArrive || other.StopID != 4 {
		t.Errorf("message = id %d stop %d, want id %d stop 4", other.MessageID, other.StopID, MessageDidYouArrive)
	}
}
