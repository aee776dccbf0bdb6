package source

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"valuation-catalog-api/internal/model"
)

// DefaultRedisKey holds the published row snapshot
const DefaultRedisKey = "catalog:rows"

// ErrSnapshotMissing is returned when no row snapshot has been published yet
var ErrSnapshotMissing = errors.New("source: catalog snapshot missing")

// RedisClient is the subset of *redis.Client the snapshot needs
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// RedisSnapshot stores the raw catalog rows as one JSON document under a key,
// so several API instances can share rows imported once.
type RedisSnapshot struct {
	client RedisClient
	key    string
	ttl    time.Duration
}

// NewRedisSnapshot creates a snapshot source/sink. ttl 0 keeps the key forever.
func NewRedisSnapshot(client RedisClient, key string, ttl time.Duration) *RedisSnapshot {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisSnapshot{client: client, key: key, ttl: ttl}
}

func (s *RedisSnapshot) String() string {
	return "redis:" + s.key
}

// FetchRows implements catalog.RowFetcher
func (s *RedisSnapshot) FetchRows(ctx context.Context) ([]model.RawRow, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSnapshotMissing
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}

	rows, err := Decode(bytes.NewReader(data), FormatJSON)
	if err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", s.key, err)
	}
	return rows, nil
}

// Publish replaces the snapshot with rows
func (s *RedisSnapshot) Publish(ctx context.Context, rows []model.RawRow) error {
	data, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := s.client.Set(ctx, s.key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}
