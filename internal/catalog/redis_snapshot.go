package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"iffy/internal/domain"
)

// RedisSnapshot stores the catalog as one JSON value so a fresh instance can
// skip the sheet call while another instance's copy is still within TTL.
type RedisSnapshot struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

func NewRedisSnapshot(client *redis.Client, key string, ttl time.Duration) *RedisSnapshot {
	if key == "" {
		key = "iffy:catalog"
	}
	return &RedisSnapshot{client: client, key: key, ttl: ttl}
}

type snapshotPayload struct {
	FetchedAt time.Time             `json:"fetched_at"`
	Entries   []domain.CatalogEntry `json:"entries"`
}

var ErrNoSnapshot = errors.New("no catalog snapshot")

func (s *RedisSnapshot) Load(ctx context.Context) ([]domain.CatalogEntry, time.Time, error) {
	raw, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, time.Time{}, ErrNoSnapshot
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("redis get %s: %w", s.key, err)
	}
	var p snapshotPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, time.Time{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return p.Entries, p.FetchedAt, nil
}

func (s *RedisSnapshot) Save(ctx context.Context, entries []domain.CatalogEntry, fetchedAt time.Time) error {
	raw, err := json.Marshal(snapshotPayload{FetchedAt: fetchedAt.UTC(), Entries: entries})
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key, raw, s.ttl).Err()
}
