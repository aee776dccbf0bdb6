package source

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"valuation-catalog-api/internal/model"
)

type fakeRedis struct {
	mu     sync.Mutex
	data   map[string]string
	ttls   map[string]time.Duration
	getErr error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return redis.NewStringResult("", f.getErr)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch v := value.(type) {
	case []byte:
		f.data[key] = string(v)
	case string:
		f.data[key] = v
	default:
		return redis.NewStatusResult("", errors.New("unsupported value type"))
	}
	f.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func TestRedisSnapshot_PublishThenFetch(t *testing.T) {
	client := newFakeRedis()
	snapshot := NewRedisSnapshot(client, "", time.Hour)
	rows := []model.RawRow{
		{Brand: "BMW X3", Reference: "xDrive30i", Year: "2022", Value: "185.000.000"},
		{Brand: "Kia", Reference: "Picanto", Year: "2021", Value: "consultar"},
	}

	require.NoError(t, snapshot.Publish(context.Background(), rows))
	assert.Equal(t, time.Hour, client.ttls[DefaultRedisKey])

	got, err := snapshot.FetchRows(context.Background())
	require.NoError(t, err)
	assert.Equal(t, rows, got)
	assert.Equal(t, "redis:"+DefaultRedisKey, snapshot.String())
}

func TestRedisSnapshot_Missing(t *testing.T) {
	_, err := NewRedisSnapshot(newFakeRedis(), "catalog:test", 0).FetchRows(context.Background())
	assert.ErrorIs(t, err, ErrSnapshotMissing)
}

func TestRedisSnapshot_ClientError(t *testing.T) {
	client := newFakeRedis()
	client.getErr = errors.New("connection refused")

	_, err := NewRedisSnapshot(client, "catalog:test", 0).FetchRows(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrSnapshotMissing)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestRedisSnapshot_CorruptDocument(t *testing.T) {
	client := newFakeRedis()
	client.data["catalog:test"] = "not json"

	_, err := NewRedisSnapshot(client, "catalog:test", 0).FetchRows(context.Background())
	assert.Error(t, err)
}
