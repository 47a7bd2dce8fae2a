package stoptracker

import (
	"math"
	"testing"

	"github.com/tripflow/tripflow/pkg/tripdata"
)

func TestDefaultArrivedRadius(t *testing.T) {
	tests := []struct {
		name         string
		departRadius int
		want         int
	}{
		{name: "radius 200 derives 120", departRadius: 200, want: 120},
		{name: "radius 300 derives 180", departRadius: 300, want: 180},
		{name: "rounds half up", departRadius: 125, want: 75},
		{name: "rounds fractional result", departRadius: 101, want: 61},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := DefaultArrivedRadius(&tripdata.Action{Kind: tripdata.ActionDeparted, RadiusFeet: tt.departRadius})
			if !ok {
				t.Fatal("DefaultArrivedRadius returned ok=false for a depart action")
			}
			if got != tt.want {
				t.Errorf("DefaultArrivedRadius(%d) = %d, want %d", tt.departRadius, got, tt.want)
			}
		})
	}
}

func TestDefaultArrivedRadius_NoDepartAction(t *testing.T) {
	if _, ok := DefaultArrivedRadius(nil); ok {
		t.Error("DefaultArrivedRadius(nil) should return ok=false")
	}
}

func TestGeofenceShape(t *testing.T) {
	polygon := []tripdata.Location{
		{Latitude: 44.97, Longitude: -93.26},
		{Latitude: 44.98, Longitude: -93.26},
		{Latitude: 44.98, Longitude: -93.25},
	}

	tests := []struct {
		name            string
		boundary        []tripdata.Location
		polygonalOptOut bool
		want            tripdata.GeofenceType
	}{
		{name: "polygon boundary", boundary: polygon, want: tripdata.GeofenceTypePolygon},
		{name: "opt out forces circular", boundary: polygon, polygonalOptOut: true, want: tripdata.GeofenceTypeCircular},
		{name: "single coordinate is circular", boundary: polygon[:1], want: tripdata.GeofenceTypeCircular},
		{name: "no boundary is circular", boundary: nil, want: tripdata.GeofenceTypeCircular},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GeofenceShape(tt.boundary, tt.polygonalOptOut)
			if got != tt.want {
				t.Errorf("GeofenceShape() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestDistanceFeet(t *testing.T) {
	tests := []struct {
		name      string
		a, b      tripdata.Location
		wantFeet  float64
		tolerance float64
	}{
		{
			name:      "same point returns zero",
			a:         tripdata.Location{Latitude: 44.9778, Longitude: -93.2650},
			b:         tripdata.Location{Latitude: 44.9778, Longitude: -93.2650},
			wantFeet:  0,
			tolerance: 0.001,
		},
		{
			name: "Minneapolis to St Paul (~14 km)",
			a:    tripdata.Location{Latitude: 44.9778, Longitude: -93.2650},
			b:    tripdata.Location{Latitude: 44.9537, Longitude: -93.0900},
			// 14.03 km rounded to 2dp, then converted
			wantFeet:  14.03 * feetPerKilometre,
			tolerance: 120,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DistanceFeet(tt.a, tt.b)
			if math.Abs(got-tt.wantFeet) > tt.tolerance {
				t.Errorf("DistanceFeet() = %.1f, want %.1f (±%.0f)", got, tt.wantFeet, tt.tolerance)
			}
		})
	}
}

func TestDistanceFeet_RoundsBeforeConversion(t *testing.T) {
	a := tripdata.Location{Latitude: 44.9778, Longitude: -93.2650}
	b := tripdata.Location{Latitude: 44.9537, Longitude: -93.0900}

	got := DistanceFeet(a, b)
	km := got / feetPerKilometre
	hundredths := km * 100

	if math.Abs(hundredths-math.Round(hundredths)) > 1e-9 {
		t.Errorf("distance %f km should be a whole number of hundredths", km)
	}
}

func TestContainsLocation_Circular(t *testing.T) {
	stop := tripdata.Location{Latitude: 44.9778, Longitude: -93.2650}
	// ~100m east of the stop
	near := tripdata.Location{Latitude: 44.9778, Longitude: -93.2637}
	far := tripdata.Location{Latitude: 44.9537, Longitude: -93.0900}

	if !ContainsLocation(near, stop, nil, 500, tripdata.GeofenceTypeCircular) {
		t.Error("point ~330ft away should be inside a 500ft circular fence")
	}
	if ContainsLocation(near, stop, nil, 200, tripdata.GeofenceTypeCircular) {
		t.Error("point ~330ft away should be outside a 200ft circular fence")
	}
	if ContainsLocation(far, stop, nil, 5000, tripdata.GeofenceTypeCircular) {
		t.Error("point 14km away should be outside any plausible fence")
	}
}

func TestContainsLocation_Polygon(t *testing.T) {
	boundary := []tripdata.Location{
		{Latitude: 44.970, Longitude: -93.270},
		{Latitude: 44.980, Longitude: -93.270},
		{Latitude: 44.980, Longitude: -93.260},
		{Latitude: 44.970, Longitude: -93.260},
	}

	inside := tripdata.Location{Latitude: 44.975, Longitude: -93.265}
	outside := tripdata.Location{Latitude: 44.985, Longitude: -93.265}

	if !ContainsLocation(inside, tripdata.Location{}, boundary, 0, tripdata.GeofenceTypePolygon) {
		t.Error("point inside the boundary should be contained")
	}
	if ContainsLocation(outside, tripdata.Location{}, boundary, 0, tripdata.GeofenceTypePolygon) {
		t.Error("point outside the boundary should not be contained")
	}
}

func TestContainsLocation_DegeneratePolygon(t *testing.T) {
	boundary := []tripdata.Location{
		{Latitude: 44.970, Longitude: -93.270},
		{Latitude: 44.980, Longitude: -93.270},
	}

	point := tripdata.Location{Latitude: 44.975, Longitude: -93.270}
	if ContainsLocation(point, tripdata.Location{}, boundary, 0, tripdata.GeofenceTypePolygon) {
		t.Error("a two-point boundary cannot contain anything")
	}
}
