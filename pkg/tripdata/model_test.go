package tripdata

import "testing"

func TestStop_SetActionUpserts(t *testing.T) {
	stop := &Stop{StopID: 1}

	stop.SetAction(&Action{Kind: ActionApproaching, RadiusFeet: 1000})
	stop.SetAction(&Action{Kind: ActionDeparted, RadiusFeet: 300})
	stop.SetAction(&Action{Kind: ActionApproaching, RadiusFeet: 1500})

	if len(stop.Actions) != 2 {
		t.Fatalf("got %d actions, want 2 (one per kind)", len(stop.Actions))
	}

	approach := stop.Action(ActionApproaching)
	if approach == nil || approach.RadiusFeet != 1500 {
		t.Errorf("approach action = %+v, want the replacement with radius 1500", approach)
	}

	if stop.Action(ActionArrived) != nil {
		t.Error("Action should return nil for a kind the stop does not hold")
	}
}

func TestTrip_StopLookup(t *testing.T) {
	trip := &Trip{
		Stops: map[string]*Stop{
			"0": {StopID: 0},
			"7": {StopID: 7},
		},
	}

	if stop := trip.Stop(7); stop == nil || stop.StopID != 7 {
		t.Errorf("Stop(7) = %+v, want stop 7", stop)
	}
	if trip.Stop(3) != nil {
		t.Error("Stop(3) should be nil for a missing stop")
	}
}

func TestTrip_OrderedStops(t *testing.T) {
	trip := &Trip{
		Stops: map[string]*Stop{
			"2": {StopID: 2},
			"0": {StopID: 0},
			"10": {StopID: 10},
			"1": {StopID: 1},
		},
	}

	var got []int
	for _, stop := range trip.OrderedStops() {
		got = append(got, stop.StopID)
	}

	want := []int{0, 1, 2, 10}
	if len(got) != len(want) {
		t.Fatalf("got %d stops, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("OrderedStops order = %v, want %v", got, want)
		}
	}
}
