// Package service coordinates job creation, background scheduling, and
// retrieval on top of the job store and the dispatcher.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sakamer71/owl-ocr/internal/jobs"
	"github.com/sakamer71/owl-ocr/internal/jobstore"
	"github.com/sakamer71/owl-ocr/internal/metrics"
	"github.com/sakamer71/owl-ocr/internal/observability"
	"github.com/sakamer71/owl-ocr/internal/worker"
)

// ErrResultUnavailable indicates the job completed but its result record is
// gone, which can happen when the result expired ahead of the job record.
var ErrResultUnavailable = errors.New("result not available")

// FailedError reports that the job reached the failed state.
type FailedError struct {
	JobID   uuid.UUID
	Message string
}

func (e *FailedError) Error() string {
	return fmt.Sprintf("Job %s failed: %s", e.JobID, e.Message)
}

// InProgressError reports that the job has not reached a terminal state yet.
type InProgressError struct {
	JobID    uuid.UUID
	Status   jobs.JobStatus
	Progress int
}

func (e *InProgressError) Error() string {
	return fmt.Sprintf("Job %s is still %s. Current progress: %d%%", e.JobID, e.Status, e.Progress)
}

// ScheduleOptions control how a scheduled job produces its artifacts.
type ScheduleOptions struct {
	OutputFormat jobs.OutputFormat

	// OutputDir overrides the artifact directory for the files output
	// format. Empty selects the dispatcher default.
	OutputDir string
}

// JobService owns the job lifecycle: it creates records, hands them to the
// dispatcher, and answers status, result, cleanup, and delete requests.
type JobService struct {
	store      jobstore.Store
	dispatcher *worker.Dispatcher
	logger     *observability.Logger
}

// NewJobService creates a job service.
func NewJobService(store jobstore.Store, dispatcher *worker.Dispatcher, logger *observability.Logger) *JobService {
	if logger == nil {
		logger = observability.DefaultLogger()
	}
	return &JobService{
		store:      store,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Create registers a pending job for the named upload.
func (s *JobService) Create(ctx context.Context, fileName string, fileType jobs.FileType) (*jobs.Job, error) {
	now := time.Now()
	job := &jobs.Job{
		ID:        uuid.New(),
		FileName:  fileName,
		FileType:  fileType,
		Status:    jobs.JobStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.store.Put(ctx, job); err != nil {
		return nil, fmt.Errorf("store job: %w", err)
	}
	if err := s.store.IndexAdd(ctx, job.ID, now); err != nil {
		return nil, fmt.Errorf("index job: %w", err)
	}

	metrics.RecordJobCreated(string(fileType))
	s.logger.Info().
		Str("job_id", job.ID.String()).
		Str("file_name", fileName).
		Str("file_type", string(fileType)).
		Msg("Job created")

	return job, nil
}

// Schedule starts background processing for a created job and returns
// immediately. The run uses a background context so it outlives the HTTP
// request that triggered it. Panics from a misbehaving capability are
// recovered into the standard failure transition.
func (s *JobService) Schedule(job *jobs.Job, filePath string, opts ScheduleOptions) {
	format := opts.OutputFormat
	if format == "" {
		format = jobs.OutputFormatJSON
	}

	req := worker.Request{
		JobID:        job.ID,
		FilePath:     filePath,
		FileType:     job.FileType,
		OutputFormat: format,
		OutputDir:    opts.OutputDir,
	}

	go func() {
		start := time.Now()
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error().
					Str("job_id", job.ID.String()).
					Msgf("Panic while processing job: %v", r)
				metrics.RecordJobFailed(string(job.FileType), time.Since(start))
				s.markFailed(job.ID, fmt.Sprintf("Processing failed: %v", r))
			}
		}()

		// Failures are recorded on the job record by the dispatcher.
		_, _ = s.dispatcher.Process(context.Background(), req)
	}()
}

func (s *JobService) markFailed(jobID uuid.UUID, message string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := s.store.Update(ctx, jobID, func(job *jobs.Job) {
		job.Status = jobs.JobStatusFailed
		job.Message = message
	})
	if err != nil && !errors.Is(err, jobstore.ErrNotFound) {
		s.logger.Error().Err(err).Str("job_id", jobID.String()).Msg("Could not record job failure")
	}
}

// Status returns the job record, or jobstore.ErrNotFound.
func (s *JobService) Status(ctx context.Context, id uuid.UUID) (*jobs.Job, error) {
	return s.store.Get(ctx, id)
}

// Result returns the stored result for a completed job. Callers can
// distinguish the outcomes: jobstore.ErrNotFound for an unknown job,
// *FailedError when the job failed, *InProgressError while it is pending or
// processing, and ErrResultUnavailable when the job completed but the
// result record has already expired.
func (s *JobService) Result(ctx context.Context, id uuid.UUID) (*jobs.Result, error) {
	job, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if job.Status != jobs.JobStatusCompleted {
		if job.Status == jobs.JobStatusFailed {
			message := job.Message
			if message == "" {
				message = "Unknown error"
			}
			return nil, &FailedError{JobID: id, Message: message}
		}
		return nil, &InProgressError{JobID: id, Status: job.Status, Progress: job.Progress}
	}

	result, err := s.store.GetResult(ctx, id)
	if err != nil {
		if errors.Is(err, jobstore.ErrNotFound) {
			return nil, ErrResultUnavailable
		}
		return nil, err
	}
	return result, nil
}

// Cleanup removes jobs and results older than the retention window and
// returns how many were swept.
func (s *JobService) Cleanup(ctx context.Context) (int, error) {
	count, err := s.store.SweepExpired(ctx, time.Now())
	if err != nil {
		return 0, err
	}

	metrics.JobsSweptTotal.Add(float64(count))
	if count > 0 {
		s.logger.Info().Int("count", count).Msg("Swept expired jobs")
	}
	return count, nil
}

// Delete removes the job record, its result, and its index entry. Returns
// jobstore.ErrNotFound for an unknown id. Deleting an in-flight job hides
// it immediately; the dispatcher abandons the run at its next persist.
func (s *JobService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.store.Get(ctx, id); err != nil {
		return err
	}

	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info().Str("job_id", id.String()).Msg("Job deleted")
	return nil
}
