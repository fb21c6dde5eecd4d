package jobstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sakamer71/owl-ocr/internal/jobs"
)

// MemoryStore implements Store in process memory. It backs unit tests and
// serves as a single-process fallback when Redis is disabled. Records are
// kept as JSON so reads return copies and expiry behaves like the Redis
// backend.
type MemoryStore struct {
	mu        sync.RWMutex
	retention time.Duration
	jobs      map[uuid.UUID]memEntry
	results   map[uuid.UUID]memEntry
	index     map[uuid.UUID]int64
	done      chan struct{}
	closeOnce sync.Once
}

type memEntry struct {
	data      []byte
	expiresAt time.Time
}

// NewMemoryStore creates an in-memory job store.
func NewMemoryStore(retention time.Duration) *MemoryStore {
	if retention <= 0 {
		retention = DefaultRetention
	}

	s := &MemoryStore{
		retention: retention,
		jobs:      make(map[uuid.UUID]memEntry),
		results:   make(map[uuid.UUID]memEntry),
		index:     make(map[uuid.UUID]int64),
		done:      make(chan struct{}),
	}

	// Drop expired entries in the background
	go s.cleanup()

	return s
}

// Put stores the full job record with the retention TTL.
func (s *MemoryStore) Put(ctx context.Context, job *jobs.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.jobs[job.ID] = memEntry{data: data, expiresAt: time.Now().Add(s.retention)}
	return nil
}

// Get returns the stored job record.
func (s *MemoryStore) Get(ctx context.Context, id uuid.UUID) (*jobs.Job, error) {
	s.mu.RLock()
	entry, ok := s.jobs[id]
	s.mu.RUnlock()

	if !ok || time.Now().After(entry.expiresAt) {
		return nil, ErrNotFound
	}

	var job jobs.Job
	if err := json.Unmarshal(entry.data, &job); err != nil {
		return nil, fmt.Errorf("unmarshal job: %w", err)
	}
	return &job, nil
}

// Update applies fn to the stored record and writes it back with a fresh
// TTL. Returns ErrNotFound once the record is deleted or expired.
func (s *MemoryStore) Update(ctx context.Context, id uuid.UUID, fn UpdateFunc) (*jobs.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.jobs[id]
	if !ok || time.Now().After(entry.expiresAt) {
		return nil, ErrNotFound
	}

	var job jobs.Job
	if err := json.Unmarshal(entry.data, &job); err != nil {
		return nil, fmt.Errorf("unmarshal job: %w", err)
	}

	fn(&job)
	job.UpdatedAt = time.Now()

	data, err := json.Marshal(&job)
	if err != nil {
		return nil, fmt.Errorf("marshal job: %w", err)
	}
	s.jobs[id] = memEntry{data: data, expiresAt: time.Now().Add(s.retention)}

	return &job, nil
}

// PutResult stores the result for an existing job with the retention TTL.
func (s *MemoryStore) PutResult(ctx context.Context, id uuid.UUID, result *jobs.Result) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.jobs[id]
	if !ok || time.Now().After(entry.expiresAt) {
		return ErrNotFound
	}

	s.results[id] = memEntry{data: data, expiresAt: time.Now().Add(s.retention)}
	return nil
}

// GetResult returns the stored result.
func (s *MemoryStore) GetResult(ctx context.Context, id uuid.UUID) (*jobs.Result, error) {
	s.mu.RLock()
	entry, ok := s.results[id]
	s.mu.RUnlock()

	if !ok || time.Now().After(entry.expiresAt) {
		return nil, ErrNotFound
	}

	var result jobs.Result
	if err := json.Unmarshal(entry.data, &result); err != nil {
		return nil, fmt.Errorf("unmarshal result: %w", err)
	}
	return &result, nil
}

// IndexAdd records the job in the retention index.
func (s *MemoryStore) IndexAdd(ctx context.Context, id uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.index[id] = at.Unix()
	return nil
}

// SweepExpired deletes everything indexed before the retention cutoff.
func (s *MemoryStore) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	cutoff := now.Add(-s.retention).Unix()

	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for id, score := range s.index {
		if score <= cutoff {
			delete(s.jobs, id)
			delete(s.results, id)
			delete(s.index, id)
			count++
		}
	}
	return count, nil
}

// Delete removes the job record, its result, and its index entry.
func (s *MemoryStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.jobs, id)
	delete(s.results, id)
	delete(s.index, id)
	return nil
}

// Ping is a no-op for the memory store.
func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

// Close stops the cleanup goroutine.
func (s *MemoryStore) Close() error {
	s.closeOnce.Do(func() { close(s.done) })
	return nil
}

// cleanup periodically removes expired entries.
func (s *MemoryStore) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.mu.Lock()
			now := time.Now()
			for id, entry := range s.jobs {
				if now.After(entry.expiresAt) {
					delete(s.jobs, id)
				}
			}
			for id, entry := range s.results {
				if now.After(entry.expiresAt) {
					delete(s.results, id)
				}
			}
			s.mu.Unlock()
		}
	}
}
