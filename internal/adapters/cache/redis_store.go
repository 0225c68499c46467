package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/TeneoProtocolAI/taxyield-monitor/internal/core/domain"
)

// RedisSeriesStore implements domain.SeriesStore on Redis. Keys are namespaced
// by run ID so concurrent runs never share entries, and expire after ttl.
type RedisSeriesStore struct {
	client *redis.Client
	runID  string
	ttl    time.Duration
}

func NewRedisSeriesStore(client *redis.Client, runID string, ttl time.Duration) *RedisSeriesStore {
	return &RedisSeriesStore{client: client, runID: runID, ttl: ttl}
}

// NewRedisClient opens a client and verifies the connection.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

var _ domain.SeriesStore = (*RedisSeriesStore)(nil)

func (s *RedisSeriesStore) key(k domain.SeriesKey) string {
	return fmt.Sprintf("series:%s:%s:%d:%s", s.runID, k.TokenID, k.WindowDays, k.Currency)
}

func (s *RedisSeriesStore) Get(ctx context.Context, key domain.SeriesKey) (domain.TokenSeries, bool, error) {
	data, err := s.client.Get(ctx, s.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}

	var series domain.TokenSeries
	if err := json.Unmarshal(data, &series); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal series: %w", err)
	}
	return series, true, nil
}

func (s *RedisSeriesStore) Put(ctx context.Context, key domain.SeriesKey, series domain.TokenSeries) error {
	data, err := json.Marshal(series)
	if err != nil {
		return fmt.Errorf("failed to marshal series: %w", err)
	}
	return s.client.Set(ctx, s.key(key), data, s.ttl).Err()
}
