package jobstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/sakamer71/owl-ocr/internal/jobs"
)

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	PoolSize  int
	Retention time.Duration
}

// RedisStore implements Store on Redis. Job records and results are JSON
// strings under ocr:job:<id> and ocr:result:<id>; the retention index is the
// ocr:jobs sorted set scored by creation time in unix seconds. Every write
// refreshes the retention TTL so active jobs never expire mid-flight.
type RedisStore struct {
	client    *redis.Client
	retention time.Duration
}

// NewRedisStore creates a Redis-backed job store and verifies connectivity.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	retention := cfg.Retention
	if retention <= 0 {
		retention = DefaultRetention
	}

	return &RedisStore{
		client:    client,
		retention: retention,
	}, nil
}

// Put stores the full job record with the retention TTL.
func (s *RedisStore) Put(ctx context.Context, job *jobs.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := s.client.Set(ctx, jobKey(job.ID), data, s.retention).Err(); err != nil {
		return fmt.Errorf("redis set job: %w", err)
	}
	return nil
}

// Get returns the stored job record.
func (s *RedisStore) Get(ctx context.Context, id uuid.UUID) (*jobs.Job, error) {
	data, err := s.client.Get(ctx, jobKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get job: %w", err)
	}

	var job jobs.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("unmarshal job: %w", err)
	}
	return &job, nil
}

// Update applies fn to the stored record and writes it back with a fresh
// TTL. The load-mutate-store sequence is not atomic; each job has a single
// writer, so the only contention that matters is a concurrent Delete, which
// this surfaces as ErrNotFound on the next Update.
func (s *RedisStore) Update(ctx context.Context, id uuid.UUID, fn UpdateFunc) (*jobs.Job, error) {
	job, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	fn(job)
	job.UpdatedAt = time.Now()

	if err := s.Put(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

// PutResult stores the result for an existing job with the retention TTL.
func (s *RedisStore) PutResult(ctx context.Context, id uuid.UUID, result *jobs.Result) error {
	exists, err := s.client.Exists(ctx, jobKey(id)).Result()
	if err != nil {
		return fmt.Errorf("redis exists job: %w", err)
	}
	if exists == 0 {
		return ErrNotFound
	}

	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	if err := s.client.Set(ctx, resultKey(id), data, s.retention).Err(); err != nil {
		return fmt.Errorf("redis set result: %w", err)
	}
	return nil
}

// GetResult returns the stored result.
func (s *RedisStore) GetResult(ctx context.Context, id uuid.UUID) (*jobs.Result, error) {
	data, err := s.client.Get(ctx, resultKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get result: %w", err)
	}

	var result jobs.Result
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("unmarshal result: %w", err)
	}
	return &result, nil
}

// IndexAdd records the job in the retention index.
func (s *RedisStore) IndexAdd(ctx context.Context, id uuid.UUID, at time.Time) error {
	member := redis.Z{Score: float64(at.Unix()), Member: id.String()}
	if err := s.client.ZAdd(ctx, indexKey, member).Err(); err != nil {
		return fmt.Errorf("redis index add: %w", err)
	}
	return nil
}

// SweepExpired deletes everything indexed before the retention cutoff.
func (s *RedisStore) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	cutoff := strconv.FormatInt(now.Add(-s.retention).Unix(), 10)

	ids, err := s.client.ZRangeByScore(ctx, indexKey, &redis.ZRangeBy{
		Min: "0",
		Max: cutoff,
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("redis index range: %w", err)
	}

	count := 0
	for _, id := range ids {
		// The job and result keys usually expired on their own already;
		// the delete mops up whatever the TTL missed.
		if err := s.client.Del(ctx, jobKeyPrefix+id, resultKeyPrefix+id).Err(); err != nil {
			return count, fmt.Errorf("redis delete expired: %w", err)
		}
		count++
	}

	if err := s.client.ZRemRangeByScore(ctx, indexKey, "0", cutoff).Err(); err != nil {
		return count, fmt.Errorf("redis index trim: %w", err)
	}

	return count, nil
}

// Delete removes the job record, its result, and its index entry.
func (s *RedisStore) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.client.Del(ctx, jobKey(id), resultKey(id)).Err(); err != nil {
		return fmt.Errorf("redis delete job: %w", err)
	}
	if err := s.client.ZRem(ctx, indexKey, id.String()).Err(); err != nil {
		return fmt.Errorf("redis index remove: %w", err)
	}
	return nil
}

// Ping probes the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
