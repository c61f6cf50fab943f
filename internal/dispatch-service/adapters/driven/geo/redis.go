package geo

import (
	"context"
	"fmt"
	"sort"
	"time"

	"ambu-dispatch/internal/dispatch-service/core/domain/model"
	"ambu-dispatch/internal/dispatch-service/core/myerrors"
	"ambu-dispatch/internal/dispatch-service/core/ports"
	"ambu-dispatch/internal/mylogger"

	goredis "github.com/redis/go-redis/v9"
)

// searchRadiusKm bounds the GEOSEARCH scan. Anything further is not a
// realistic dispatch candidate.
const searchRadiusKm = 100

const statusHashKey = "ambulances:status"

// RedisIndex is the Redis-backed ports.IGeoIndex. Each ambulance status has
// its own GEO set, so nearest-available queries are a single GEOSEARCH. An
// ambulance repo hydrates full records for search results.
type RedisIndex struct {
	rdb    *goredis.Client
	repo   ports.IAmbulanceRepo
	logger mylogger.Logger
}

func NewRedisIndex(addr string, repo ports.IAmbulanceRepo, logger mylogger.Logger) (*RedisIndex, error) {
	rdb := goredis.NewClient(&goredis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisIndex{rdb: rdb, repo: repo, logger: logger}, nil
}

var _ ports.IGeoIndex = (*RedisIndex)(nil)

var allStatuses = []model.AmbulanceStatus{
	model.AmbulanceAvailable,
	model.AmbulanceAssigned,
	model.AmbulanceEnRoute,
	model.AmbulanceUnavailable,
}

func geoKey(status model.AmbulanceStatus) string {
	return "ambulances:geo:" + string(status)
}

func (r *RedisIndex) Close() error { return r.rdb.Close() }

func (r *RedisIndex) Upsert(ctx context.Context, a model.Ambulance) error {
	pipe := r.rdb.Pipeline()
	pipe.HSet(ctx, statusHashKey, a.ID, string(a.Status))
	for _, s := range allStatuses {
		if s != a.Status {
			pipe.ZRem(ctx, geoKey(s), a.ID)
		}
	}
	if a.HasPosition() {
		pipe.GeoAdd(ctx, geoKey(a.Status), &goredis.GeoLocation{
			Name:      a.ID,
			Longitude: *a.Longitude,
			Latitude:  *a.Latitude,
		})
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (r *RedisIndex) UpdatePosition(ctx context.Context, ambulanceID string, lat, lon float64) error {
	status, err := r.currentStatus(ctx, ambulanceID)
	if err != nil {
		return err
	}
	return r.rdb.GeoAdd(ctx, geoKey(status), &goredis.GeoLocation{
		Name:      ambulanceID,
		Longitude: lon,
		Latitude:  lat,
	}).Err()
}

func (r *RedisIndex) SetStatus(ctx context.Context, ambulanceID string, status model.AmbulanceStatus) error {
	old, err := r.currentStatus(ctx, ambulanceID)
	if err != nil {
		return err
	}
	if old == status {
		return nil
	}

	pipe := r.rdb.Pipeline()
	pos := pipe.GeoPos(ctx, geoKey(old), ambulanceID)
	pipe.ZRem(ctx, geoKey(old), ambulanceID)
	pipe.HSet(ctx, statusHashKey, ambulanceID, string(status))
	if _, err := pipe.Exec(ctx); err != nil {
		return err
	}

	// carry the last known position over to the new status set
	coords, err := pos.Result()
	if err == nil && len(coords) == 1 && coords[0] != nil {
		return r.rdb.GeoAdd(ctx, geoKey(status), &goredis.GeoLocation{
			Name:      ambulanceID,
			Longitude: coords[0].Longitude,
			Latitude:  coords[0].Latitude,
		}).Err()
	}
	return nil
}

func (r *RedisIndex) Remove(ctx context.Context, ambulanceID string) error {
	pipe := r.rdb.Pipeline()
	pipe.HDel(ctx, statusHashKey, ambulanceID)
	for _, s := range allStatuses {
		pipe.ZRem(ctx, geoKey(s), ambulanceID)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (r *RedisIndex) FindNearest(ctx context.Context, lat, lon float64, status model.AmbulanceStatus, k int) ([]model.AmbulanceDistance, error) {
	count := 0
	if k > 0 {
		count = k
	}
	locs, err := r.rdb.GeoSearchLocation(ctx, geoKey(status), &goredis.GeoSearchLocationQuery{
		GeoSearchQuery: goredis.GeoSearchQuery{
			Longitude:  lon,
			Latitude:   lat,
			Radius:     searchRadiusKm,
			RadiusUnit: "km",
			Sort:       "ASC",
			Count:      count,
		},
		WithDist: true,
	}).Result()
	if err != nil {
		return nil, err
	}

	var matches []model.AmbulanceDistance
	for _, loc := range locs {
		a, err := r.repo.GetByID(ctx, loc.Name)
		if err != nil {
			// stale index entry, skip it and move on
			r.logger.Warn("geo index entry has no backing record", "ambulance_id", loc.Name)
			continue
		}
		if a.Status != status || !a.Active {
			continue
		}
		matches = append(matches, model.AmbulanceDistance{
			Ambulance:  a,
			DistanceKm: loc.Dist,
		})
	}

	// Redis sorts by distance only, re-sort to break ties by id.
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

func (r *RedisIndex) currentStatus(ctx context.Context, ambulanceID string) (model.AmbulanceStatus, error) {
	s, err := r.rdb.HGet(ctx, statusHashKey, ambulanceID).Result()
	if err == goredis.Nil {
		return "", fmt.Errorf("ambulance %s: %w", ambulanceID, myerrors.ErrNotFound)
	}
	if err != nil {
		return "", err
	}
	return model.AmbulanceStatus(s), nil
}
