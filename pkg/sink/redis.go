package sink

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"

	"weightvault/pkg/weights"
)

const (
	weightsKeyPrefix = "vault:weights:"
	integratedList   = "vault:integrated"
)

// RedisSink mirrors integrated weights into Redis so other local tools can pick them up
type RedisSink struct {
	rdb *redis.Client
}

var _ Sink = (*RedisSink)(nil)

// NewRedisSink connects to addr and pings it
func NewRedisSink(ctx context.Context, addr string) (*RedisSink, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", addr, err)
	}
	return &RedisSink{rdb: rdb}, nil
}

// Name identifies the sink in metrics and logs
func (s *RedisSink) Name() string { return "redis" }

// Persist stores the JSON array under vault:weights:<id> and records id on vault:integrated
func (s *RedisSink) Persist(ctx context.Context, id string, w weights.Weights) error {
	data, err := w.Encode()
	if err != nil {
		return fmt.Errorf("failed to encode weights: %w", err)
	}
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, WeightsKey(id), data, 0)
		pipe.RPush(ctx, integratedList, id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store weights for %s: %w", id, err)
	}
	return nil
}

// Close releases the Redis connection pool
func (s *RedisSink) Close() error {
	return s.rdb.Close()
}

// WeightsKey is the Redis key holding the weights for id
func WeightsKey(id string) string {
	return weightsKeyPrefix + id
}
