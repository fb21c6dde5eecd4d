// Package jobstore persists job records and results in a TTL key-value
// store with a time-ordered index used for retention sweeps.
package jobstore

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/sakamer71/owl-ocr/internal/jobs"
)

// ErrNotFound indicates the job (or result) is absent or already expired.
var ErrNotFound = errors.New("job not found")

// DefaultRetention is how long job records and results are kept.
const DefaultRetention = 24 * time.Hour

// UpdateFunc mutates a loaded job record in place.
type UpdateFunc func(*jobs.Job)

// Store defines the persistence contract for jobs and their results.
type Store interface {
	// Put stores the full job record under its id, refreshing the TTL.
	Put(ctx context.Context, job *jobs.Job) error

	// Get returns the job record, or ErrNotFound.
	Get(ctx context.Context, id uuid.UUID) (*jobs.Job, error)

	// Update loads the record, applies fn, refreshes UpdatedAt and the TTL,
	// and stores it back. Returns ErrNotFound if the record is gone, which
	// is how an in-flight run learns its job was deleted.
	Update(ctx context.Context, id uuid.UUID, fn UpdateFunc) (*jobs.Job, error)

	// PutResult stores the result for an existing job. Returns ErrNotFound
	// when the job record itself is absent.
	PutResult(ctx context.Context, id uuid.UUID, result *jobs.Result) error

	// GetResult returns the stored result, or ErrNotFound.
	GetResult(ctx context.Context, id uuid.UUID) (*jobs.Result, error)

	// IndexAdd records (id, at) in the time-ordered index.
	IndexAdd(ctx context.Context, id uuid.UUID, at time.Time) error

	// SweepExpired removes every job, result, and index entry whose index
	// timestamp is older than now minus the retention window. Returns the
	// number of index entries removed.
	SweepExpired(ctx context.Context, now time.Time) (int, error)

	// Delete removes the job record, its result, and its index entry.
	// Deleting an unknown id is not an error.
	Delete(ctx context.Context, id uuid.UUID) error

	// Ping probes the backend.
	Ping(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}

// Key layout shared by backends.
const (
	jobKeyPrefix    = "ocr:job:"
	resultKeyPrefix = "ocr:result:"
	indexKey        = "ocr:jobs"
)

func jobKey(id uuid.UUID) string { return jobKeyPrefix + id.String() }

func resultKey(id uuid.UUID) string { return resultKeyPrefix + id.String() }
