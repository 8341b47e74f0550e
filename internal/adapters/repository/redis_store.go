package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/redis/go-redis/v9"

	"github.com/geominder/core/internal/domain/entities"
	"github.com/geominder/core/internal/ports"
)

// reminderRecord is the CBOR form of a reminder stored in Redis.
type reminderRecord struct {
	ID           string   `cbor:"id"`
	Title        *string  `cbor:"title,omitempty"`
	Description  *string  `cbor:"description,omitempty"`
	LocationName *string  `cbor:"location,omitempty"`
	Latitude     *float64 `cbor:"lat,omitempty"`
	Longitude    *float64 `cbor:"lng,omitempty"`
	RadiusMeters *float64 `cbor:"radius,omitempty"`
}

// RedisStore keeps reminders in a Redis hash keyed by id. A sorted set scored
// by a monotonically increasing sequence records first-insertion order.
type RedisStore struct {
	client  redis.UniversalClient
	dataKey string
	order   string
	seqKey  string
}

// NewRedisStore creates a Redis-backed reminder store under keyPrefix
func NewRedisStore(client redis.UniversalClient, keyPrefix string) ports.ReminderStore {
	return &RedisStore{
		client:  client,
		dataKey: keyPrefix + ":reminders:data",
		order:   keyPrefix + ":reminders:order",
		seqKey:  keyPrefix + ":reminders:seq",
	}
}

func (s *RedisStore) Save(ctx context.Context, reminder *entities.Reminder) error {
	reminder.EnsureID()

	payload, err := cbor.Marshal(toRecord(reminder))
	if err != nil {
		return fmt.Errorf("encode reminder: %w", err)
	}

	seq, err := s.client.Incr(ctx, s.seqKey).Result()
	if err != nil {
		return fmt.Errorf("save reminder: %w", err)
	}

	// ZADD NX leaves the score, and so the position, of an existing id alone.
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.dataKey, reminder.ID, payload)
		pipe.ZAddNX(ctx, s.order, redis.Z{Score: float64(seq), Member: reminder.ID})
		return nil
	})
	if err != nil {
		return fmt.Errorf("save reminder: %w", err)
	}

	return nil
}

func (s *RedisStore) GetAll(ctx context.Context) ([]*entities.Reminder, error) {
	ids, err := s.client.ZRange(ctx, s.order, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list reminders: %w", err)
	}

	reminders := make([]*entities.Reminder, 0, len(ids))
	if len(ids) == 0 {
		return reminders, nil
	}

	values, err := s.client.HMGet(ctx, s.dataKey, ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("list reminders: %w", err)
	}

	for i, value := range values {
		// Deleted between ZRANGE and HMGET
		if value == nil {
			continue
		}
		raw, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("list reminders: unexpected value type %T for %s", value, ids[i])
		}
		reminder, err := decodeReminder([]byte(raw))
		if err != nil {
			return nil, fmt.Errorf("list reminders: %w", err)
		}
		reminders = append(reminders, reminder)
	}

	return reminders, nil
}

func (s *RedisStore) GetByID(ctx context.Context, id string) (*entities.Reminder, error) {
	raw, err := s.client.HGet(ctx, s.dataKey, id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, entities.ErrReminderNotFound
		}
		return nil, fmt.Errorf("get reminder by id: %w", err)
	}

	reminder, err := decodeReminder(raw)
	if err != nil {
		return nil, fmt.Errorf("get reminder by id: %w", err)
	}

	return reminder, nil
}

func (s *RedisStore) DeleteByID(ctx context.Context, id string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HDel(ctx, s.dataKey, id)
		pipe.ZRem(ctx, s.order, id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete reminder: %w", err)
	}

	return nil
}

func (s *RedisStore) DeleteAll(ctx context.Context) error {
	if err := s.client.Del(ctx, s.dataKey, s.order, s.seqKey).Err(); err != nil {
		return fmt.Errorf("delete all reminders: %w", err)
	}

	return nil
}

func toRecord(r *entities.Reminder) reminderRecord {
	return reminderRecord{
		ID:           r.ID,
		Title:        r.Title,
		Description:  r.Description,
		LocationName: r.LocationName,
		Latitude:     r.Latitude,
		Longitude:    r.Longitude,
		RadiusMeters: r.RadiusMeters,
	}
}

func decodeReminder(data []byte) (*entities.Reminder, error) {
	var rec reminderRecord
	if err := cbor.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode reminder: %w", err)
	}

	return &entities.Reminder{
		ID:           rec.ID,
		Title:        rec.Title,
		Description:  rec.Description,
		LocationName: rec.LocationName,
		Latitude:     rec.Latitude,
		Longitude:    rec.Longitude,
		RadiusMeters: rec.RadiusMeters,
	}, nil
}
