package stoptracker

import (
	"container/heap"
	"fmt"
	"sync"

	"github.com/tripflow/tripflow/pkg/tripdata"
)

// Advisory message templates competing for the panel slot.
const (
	MessageDidYouArrive         = 1
	MessageCompleteForm         = 2
	MessageSelectStopToNavigate = 3
	MessageNextStopAddress      = 4
)

// Priorities, highest precedence first. A did-you-arrive for the stop
// the operator is currently working always outranks one for another
// stop.
const (
	PriorityDidYouArriveCurrentStop = iota
	PriorityDidYouArriveOtherStop
	PriorityCompleteForm
	PrioritySelectStopToNavigate
	PriorityNextStopAddress
)

// TripPanelScheduler picks at most one advisory message to show,
// honouring priority and suppressing exact repeats of the last emitted
// message.
type TripPanelScheduler struct {
	mu sync.Mutex

	queue messageQueue
	seq   uint64

	lastSent *tripdata.TripPanelMessage
}

func NewTripPanelScheduler() *TripPanelScheduler {
	return &TripPanelScheduler{}
}

func (s *TripPanelScheduler) Enqueue(message tripdata.TripPanelMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	heap.Push(&s.queue, queuedMessage{message: message, seq: s.seq})
}

// Next pops the highest-priority message regardless of de-bounce state.
func (s *TripPanelScheduler) Next() (tripdata.TripPanelMessage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.pop()
}

// NextToEmit pops messages until one passes de-bounce, records it as the
// last sent message and returns it. Exact repeats of the last emission
// are dropped on the floor.
func (s *TripPanelScheduler) NextToEmit() (tripdata.TripPanelMessage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for {
		message, ok := s.pop()
		if !ok {
			return tripdata.TripPanelMessage{}, false
		}

		if !ShouldEmit(message, s.lastSent) {
			continue
		}

		sent := message
		s.lastSent = &sent

		return message, true
	}
}

// Clear drops every queued candidate. The de-bounce state survives, so
// a rebuild that produces the same winning message still gets
// suppressed.
func (s *TripPanelScheduler) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.queue = nil
}

// LastSent returns the most recently emitted message, nil before the
// first emission.
func (s *TripPanelScheduler) LastSent() *tripdata.TripPanelMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.lastSent
}

func (s *TripPanelScheduler) pop() (tripdata.TripPanelMessage, bool) {
	if s.queue.Len() == 0 {
		return tripdata.TripPanelMessage{}, false
	}

	queued := heap.Pop(&s.queue).(queuedMessage)

	return queued.message, true
}

// ShouldEmit suppresses a candidate only when template, text and stop
// all match the last sent message. Any field differing allows
// re-emission.
func ShouldEmit(candidate tripdata.TripPanelMessage, lastSent *tripdata.TripPanelMessage) bool {
	if lastSent == nil {
		return true
	}

	return candidate.MessageID != lastSent.MessageID ||
		candidate.Text != lastSent.Text ||
		candidate.StopID != lastSent.StopID
}

// DidYouArriveMessage builds the advisory for a pending arrival. The
// prompt for the operator's current stop takes the top priority slot.
func DidYouArriveMessage(arrival PendingArrival, currentStopID int) tripdata.TripPanelMessage {
	priority := PriorityDidYouArriveOtherStop
	if arrival.StopID == currentStopID {
		priority = PriorityDidYouArriveCurrentStop
	}

	return tripdata.TripPanelMessage{
		MessageID: MessageDidYouArrive,
		Priority:  priority,
		Text:      fmt.Sprintf("Did you arrive at stop %d?", arrival.StopID),
		StopID:    arrival.StopID,
	}
}

type queuedMessage struct {
	message tripdata.TripPanelMessage
	seq     uint64
}

// messageQueue is a min-heap on priority with insertion order breaking
// ties, so equal-priority messages come out stably.
type messageQueue []queuedMessage

func (q messageQueue) Len() int { return len(q) }

func (q messageQueue) Less(i, j int) bool {
	if q[i].message.Priority != q[j].message.Priority {
		return q[i].message.Priority < q[j].message.Priority
	}
	return q[i].seq < q[j].seq
}

func (q messageQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *messageQueue) Push(x any) {
	*q = append(*q, x.(queuedMessage))
}

func (q *messageQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]

	return item
}
