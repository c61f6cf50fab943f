package services

import (
	"fmt"
	"math"

	"ambu-dispatch/internal/dispatch-service/core/domain/model"
	"ambu-dispatch/internal/dispatch-service/core/myerrors"
)

const (
	// average dispatch speed used for the illustrative ETA, km/h
	avgSpeedKmh = 40.0

	minTrafficDensity = 0.1
	maxTrafficDensity = 3.0
)

// EstimateFare computes base + distance fare from the type tariff. Without a
// destination the fare is exactly the base price, the floor when distance is
// unknown.
func EstimateFare(typ model.AmbulanceType, pickup model.Coordinate, destination *model.Coordinate) (float64, error) {
	if err := validateCoordinate(pickup.Latitude, pickup.Longitude); err != nil {
		return 0, err
	}
	if destination == nil {
		return typ.BasePrice, nil
	}
	if err := validateCoordinate(destination.Latitude, destination.Longitude); err != nil {
		return 0, err
	}

	distance := Haversine(pickup.Latitude, pickup.Longitude, destination.Latitude, destination.Longitude)
	return typ.BasePrice + distance*typ.PricePerKm, nil
}

// EstimateEtaMinutes is an illustrative estimation, not a routing engine.
// trafficDensity scales travel time, 1.0 meaning free flow.
func EstimateEtaMinutes(distanceKm, trafficDensity float64) int {
	if trafficDensity < minTrafficDensity {
		trafficDensity = minTrafficDensity
	}
	if trafficDensity > maxTrafficDensity {
		trafficDensity = maxTrafficDensity
	}

	minutes := distanceKm / avgSpeedKmh * 60 * trafficDensity
	return int(math.Ceil(minutes))
}

func validateCoordinate(lat, lon float64) error {
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lat, 0) || math.IsInf(lon, 0) {
		return fmt.Errorf("coordinate is not finite: %w", myerrors.ErrValidation)
	}
	if math.Abs(lat) > 90 {
		return fmt.Errorf("latitude out of range [-90, 90]: %w", myerrors.ErrValidation)
	}
	if math.Abs(lon) > 180 {
		return fmt.Errorf("longitude out of range [-180, 180]: %w", myerrors.ErrValidation)
	}
	return nil
}
