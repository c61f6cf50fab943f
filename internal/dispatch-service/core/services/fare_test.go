package services

import (
	"errors"
	"math"
	"testing"

	"ambu-dispatch/internal/dispatch-service/core/domain/model"
	"ambu-dispatch/internal/dispatch-service/core/myerrors"
)

var basicType = model.AmbulanceType{
	ID:         "type-basic",
	Name:       "Basic Life Support",
	BasePrice:  500,
	PricePerKm: 25,
}

func TestEstimateFare(t *testing.T) {
	pickup := model.Coordinate{Latitude: 12.97, Longitude: 77.59}

	t.Run("no destination means exactly the base price", func(t *testing.T) {
		fare, err := EstimateFare(basicType, pickup, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if fare != basicType.BasePrice {
			t.Fatalf("expected %v, got %v", basicType.BasePrice, fare)
		}
	})

	t.Run("fare grows with distance", func(t *testing.T) {
		near := &model.Coordinate{Latitude: 12.98, Longitude: 77.60}
		far := &model.Coordinate{Latitude: 13.20, Longitude: 77.70}

		fareNear, err := EstimateFare(basicType, pickup, near)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		fareFar, err := EstimateFare(basicType, pickup, far)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if fareNear < basicType.BasePrice {
			t.Fatalf("fare %v below the base price floor", fareNear)
		}
		if fareFar <= fareNear {
			t.Fatalf("fare not monotone in distance: near=%v far=%v", fareNear, fareFar)
		}
	})

	t.Run("matches base plus haversine times rate", func(t *testing.T) {
		dest := &model.Coordinate{Latitude: 12.93, Longitude: 77.62}
		fare, err := EstimateFare(basicType, pickup, dest)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := basicType.BasePrice + Haversine(pickup.Latitude, pickup.Longitude, dest.Latitude, dest.Longitude)*basicType.PricePerKm
		if math.Abs(fare-want) > 1e-9 {
			t.Fatalf("expected %v, got %v", want, fare)
		}
	})

	t.Run("malformed coordinates", func(t *testing.T) {
		bad := model.Coordinate{Latitude: 120, Longitude: 77.59}
		if _, err := EstimateFare(basicType, bad, nil); !errors.Is(err, myerrors.ErrValidation) {
			t.Fatalf("expected ErrValidation, got %v", err)
		}
		nan := model.Coordinate{Latitude: math.NaN(), Longitude: 77.59}
		if _, err := EstimateFare(basicType, nan, nil); !errors.Is(err, myerrors.ErrValidation) {
			t.Fatalf("expected ErrValidation, got %v", err)
		}
	})
}

func TestEstimateEtaMinutes(t *testing.T) {
	t.Run("free flow", func(t *testing.T) {
		// 20 km at 40 km/h is 30 minutes
		if got := EstimateEtaMinutes(20, 1.0); got != 30 {
			t.Fatalf("expected 30, got %d", got)
		}
	})

	t.Run("density scales travel time", func(t *testing.T) {
		if free, jam := EstimateEtaMinutes(20, 1.0), EstimateEtaMinutes(20, 2.0); jam <= free {
			t.Fatalf("expected congestion to raise the eta: %d vs %d", free, jam)
		}
	})

	t.Run("density is clamped", func(t *testing.T) {
		if got := EstimateEtaMinutes(20, -5); got != EstimateEtaMinutes(20, minTrafficDensity) {
			t.Fatalf("negative density not clamped: %d", got)
		}
	})
}
