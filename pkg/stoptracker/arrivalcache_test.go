package stoptracker

import "testing"

func TestDecodePendingArrivals(t *testing.T) {
	tests := []struct {
		name      string
		cached    string
		wantCount int
	}{
		{
			name:      "valid document",
			cached:    `[{"trip_id":"dispatch-1","stop_id":2},{"trip_id":"dispatch-1","stop_id":3}]`,
			wantCount: 2,
		},
		{name: "corrupted document degrades to empty", cached: `[{"trip_id":`, wantCount: 0},
		{name: "wrong shape degrades to empty", cached: `{"trip_id":"dispatch-1"}`, wantCount: 0},
		{name: "empty array", cached: `[]`, wantCount: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			arrivals := decodePendingArrivals(tt.cached)
			if len(arrivals) != tt.wantCount {
				t.Errorf("got %d arrivals, want %d", len(arrivals), tt.wantCount)
			}
		})
	}
}
