package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"ambu-dispatch/internal/dispatch-service/core/domain/model"
	"ambu-dispatch/internal/dispatch-service/core/myerrors"
	"ambu-dispatch/internal/dispatch-service/core/ports"
)

const earthRadiusKm = 6371.0

// Haversine returns the great-circle distance in kilometers between two
// points given in degrees. Results are never rounded here.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }

	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)

	return 2 * earthRadiusKm * math.Asin(math.Sqrt(a))
}

// GeoIndex is the in-memory implementation of ports.IGeoIndex. It keeps the
// dispatch core runnable without Redis and backs every test.
type GeoIndex struct {
	mu      sync.RWMutex
	entries map[string]model.Ambulance
}

func NewGeoIndex() *GeoIndex {
	return &GeoIndex{
		entries: make(map[string]model.Ambulance),
	}
}

var _ ports.IGeoIndex = (*GeoIndex)(nil)

func (g *GeoIndex) Upsert(_ context.Context, a model.Ambulance) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.entries[a.ID] = a
	return nil
}

func (g *GeoIndex) UpdatePosition(_ context.Context, ambulanceID string, lat, lon float64) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	a, ok := g.entries[ambulanceID]
	if !ok {
		return fmt.Errorf("ambulance %s: %w", ambulanceID, myerrors.ErrNotFound)
	}
	a.Latitude = &lat
	a.Longitude = &lon
	g.entries[ambulanceID] = a
	return nil
}

func (g *GeoIndex) SetStatus(_ context.Context, ambulanceID string, status model.AmbulanceStatus) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	a, ok := g.entries[ambulanceID]
	if !ok {
		return fmt.Errorf("ambulance %s: %w", ambulanceID, myerrors.ErrNotFound)
	}
	a.Status = status
	g.entries[ambulanceID] = a
	return nil
}

func (g *GeoIndex) Remove(_ context.Context, ambulanceID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	delete(g.entries, ambulanceID)
	return nil
}

func (g *GeoIndex) FindNearest(_ context.Context, lat, lon float64, status model.AmbulanceStatus, k int) ([]model.AmbulanceDistance, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var matches []model.AmbulanceDistance
	for _, a := range g.entries {
		if a.Status != status || !a.Active || !a.HasPosition() {
			continue
		}
		matches = append(matches, model.AmbulanceDistance{
			Ambulance:  a,
			DistanceKm: Haversine(lat, lon, *a.Latitude, *a.Longitude),
		})
	}

	// ascending by distance, ties broken by id for a deterministic ordering
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].DistanceKm != matches[j].DistanceKm {
			return matches[i].DistanceKm < matches[j].DistanceKm
		}
		return matches[i].Ambulance.ID < matches[j].Ambulance.ID
	})

	if k > 0 && len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}
