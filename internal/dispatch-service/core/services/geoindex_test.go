package services

import (
	"context"
	"errors"
	"math"
	"testing"

	"ambu-dispatch/internal/dispatch-service/core/domain/model"
	"ambu-dispatch/internal/dispatch-service/core/myerrors"
)

func ambulanceAt(id string, lat, lon float64, status model.AmbulanceStatus) model.Ambulance {
	return model.Ambulance{
		ID:        id,
		TypeID:    "type-1",
		Status:    status,
		Latitude:  &lat,
		Longitude: &lon,
		Active:    true,
	}
}

func TestHaversine(t *testing.T) {
	t.Run("zero distance", func(t *testing.T) {
		if d := Haversine(12.97, 77.59, 12.97, 77.59); d != 0 {
			t.Fatalf("expected 0, got %v", d)
		}
	})

	t.Run("known distance", func(t *testing.T) {
		// Bangalore city center to airport, roughly 28 km great-circle
		d := Haversine(12.9716, 77.5946, 13.1986, 77.7066)
		if d < 27 || d > 30 {
			t.Fatalf("unexpected distance %v", d)
		}
	})

	t.Run("symmetric", func(t *testing.T) {
		d1 := Haversine(12.93, 77.62, 12.97, 77.59)
		d2 := Haversine(12.97, 77.59, 12.93, 77.62)
		if math.Abs(d1-d2) > 1e-12 {
			t.Fatalf("not symmetric: %v vs %v", d1, d2)
		}
	})
}

func TestGeoIndexFindNearest(t *testing.T) {
	ctx := context.Background()

	t.Run("orders ascending by distance", func(t *testing.T) {
		g := NewGeoIndex()
		g.Upsert(ctx, ambulanceAt("amb-a", 12.97, 77.59, model.AmbulanceAvailable))
		g.Upsert(ctx, ambulanceAt("amb-b", 12.93, 77.62, model.AmbulanceAvailable))

		res, err := g.FindNearest(ctx, 12.971, 77.591, model.AmbulanceAvailable, 10)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(res) != 2 {
			t.Fatalf("expected 2 results, got %d", len(res))
		}
		if res[0].Ambulance.ID != "amb-a" {
			t.Fatalf("expected amb-a first, got %s", res[0].Ambulance.ID)
		}
		if res[0].DistanceKm >= res[1].DistanceKm {
			t.Fatalf("distances not ascending: %v %v", res[0].DistanceKm, res[1].DistanceKm)
		}
	})

	t.Run("deterministic with id tie-break", func(t *testing.T) {
		g := NewGeoIndex()
		// same position, ordering must fall back to id
		g.Upsert(ctx, ambulanceAt("amb-z", 12.95, 77.60, model.AmbulanceAvailable))
		g.Upsert(ctx, ambulanceAt("amb-a", 12.95, 77.60, model.AmbulanceAvailable))
		g.Upsert(ctx, ambulanceAt("amb-m", 12.95, 77.60, model.AmbulanceAvailable))

		for i := 0; i < 5; i++ {
			res, err := g.FindNearest(ctx, 12.95, 77.60, model.AmbulanceAvailable, 10)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			ids := []string{res[0].Ambulance.ID, res[1].Ambulance.ID, res[2].Ambulance.ID}
			if ids[0] != "amb-a" || ids[1] != "amb-m" || ids[2] != "amb-z" {
				t.Fatalf("run %d: unexpected order %v", i, ids)
			}
		}
	})

	t.Run("filters status and truncates to k", func(t *testing.T) {
		g := NewGeoIndex()
		g.Upsert(ctx, ambulanceAt("amb-1", 12.95, 77.60, model.AmbulanceAvailable))
		g.Upsert(ctx, ambulanceAt("amb-2", 12.96, 77.60, model.AmbulanceAssigned))
		g.Upsert(ctx, ambulanceAt("amb-3", 12.97, 77.60, model.AmbulanceAvailable))
		g.Upsert(ctx, ambulanceAt("amb-4", 12.98, 77.60, model.AmbulanceAvailable))

		res, err := g.FindNearest(ctx, 12.95, 77.60, model.AmbulanceAvailable, 2)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(res) != 2 {
			t.Fatalf("expected 2, got %d", len(res))
		}
		for _, m := range res {
			if m.Ambulance.Status != model.AmbulanceAvailable {
				t.Fatalf("status filter leaked %s", m.Ambulance.Status)
			}
		}
	})

	t.Run("empty result is not an error", func(t *testing.T) {
		g := NewGeoIndex()
		res, err := g.FindNearest(ctx, 12.95, 77.60, model.AmbulanceAvailable, 3)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(res) != 0 {
			t.Fatalf("expected empty, got %d", len(res))
		}
	})

	t.Run("skips ambulances without a position", func(t *testing.T) {
		g := NewGeoIndex()
		g.Upsert(ctx, model.Ambulance{ID: "amb-new", Status: model.AmbulanceAvailable, Active: true})

		res, err := g.FindNearest(ctx, 12.95, 77.60, model.AmbulanceAvailable, 3)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(res) != 0 {
			t.Fatalf("expected empty, got %d", len(res))
		}
	})
}

func TestGeoIndexUpdatePosition(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown id", func(t *testing.T) {
		g := NewGeoIndex()
		err := g.UpdatePosition(ctx, "missing", 12.95, 77.60)
		if !errors.Is(err, myerrors.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("overwrites position", func(t *testing.T) {
		g := NewGeoIndex()
		g.Upsert(ctx, ambulanceAt("amb-1", 12.95, 77.60, model.AmbulanceAvailable))

		if err := g.UpdatePosition(ctx, "amb-1", 13.00, 77.70); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		res, _ := g.FindNearest(ctx, 13.00, 77.70, model.AmbulanceAvailable, 1)
		if len(res) != 1 || res[0].DistanceKm != 0 {
			t.Fatalf("position not overwritten: %+v", res)
		}
	})
}
