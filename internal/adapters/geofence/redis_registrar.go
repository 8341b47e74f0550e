package geofence

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/geominder/core/internal/domain/entities"
	"github.com/geominder/core/internal/ports"
)

// RedisRegistrar stores geofence centers in a Redis geo set and their radii
// in a sorted set scored by radius. Containing searches the geo set with the
// largest registered radius and filters each hit by its own radius.
type RedisRegistrar struct {
	client   redis.UniversalClient
	geoKey   string
	radiiKey string
}

// NewRedisRegistrar creates a Redis-backed registrar under keyPrefix
func NewRedisRegistrar(client redis.UniversalClient, keyPrefix string) ports.GeofenceRegistrar {
	return &RedisRegistrar{
		client:   client,
		geoKey:   keyPrefix + ":geofences:geo",
		radiiKey: keyPrefix + ":geofences:radii",
	}
}

func (r *RedisRegistrar) Register(ctx context.Context, fence entities.Geofence) error {
	if err := validate(fence); err != nil {
		return err
	}
	// Redis geo indexing rejects the polar caps.
	if fence.Center.Latitude < -85.05112878 || fence.Center.Latitude > 85.05112878 {
		return fmt.Errorf("register geofence %s: latitude outside geo index range: %w", fence.ID, entities.ErrInvalidLocation)
	}

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.GeoAdd(ctx, r.geoKey, &redis.GeoLocation{
			Name:      fence.ID,
			Longitude: fence.Center.Longitude,
			Latitude:  fence.Center.Latitude,
		})
		pipe.ZAdd(ctx, r.radiiKey, redis.Z{Score: fence.RadiusMeters, Member: fence.ID})
		return nil
	})
	if err != nil {
		return fmt.Errorf("register geofence %s: %w", fence.ID, err)
	}

	return nil
}

func (r *RedisRegistrar) Remove(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}

	members := make([]interface{}, len(ids))
	for i, id := range ids {
		members[i] = id
	}

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRem(ctx, r.geoKey, members...)
		pipe.ZRem(ctx, r.radiiKey, members...)
		return nil
	})
	if err != nil {
		return fmt.Errorf("remove geofences: %w", err)
	}

	return nil
}

func (r *RedisRegistrar) Clear(ctx context.Context) error {
	if err := r.client.Del(ctx, r.geoKey, r.radiiKey).Err(); err != nil {
		return fmt.Errorf("clear geofences: %w", err)
	}

	return nil
}

func (r *RedisRegistrar) Containing(ctx context.Context, c entities.Coordinate) ([]string, error) {
	largest, err := r.client.ZRevRangeWithScores(ctx, r.radiiKey, 0, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("containing geofences: %w", err)
	}
	ids := []string{}
	if len(largest) == 0 {
		return ids, nil
	}

	hits, err := r.client.GeoSearchLocation(ctx, r.geoKey, &redis.GeoSearchLocationQuery{
		GeoSearchQuery: redis.GeoSearchQuery{
			Longitude:  c.Longitude,
			Latitude:   c.Latitude,
			Radius:     largest[0].Score,
			RadiusUnit: "m",
			Sort:       "ASC",
		},
		WithDist: true,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("containing geofences: %w", err)
	}
	if len(hits) == 0 {
		return ids, nil
	}

	names := make([]string, len(hits))
	for i, hit := range hits {
		names[i] = hit.Name
	}
	radii, err := r.client.ZMScore(ctx, r.radiiKey, names...).Result()
	if err != nil {
		return nil, fmt.Errorf("containing geofences: %w", err)
	}

	for i, hit := range hits {
		if hit.Dist <= radii[i] {
			ids = append(ids, hit.Name)
		}
	}

	return ids, nil
}
