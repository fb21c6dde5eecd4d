package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakamer71/owl-ocr/internal/extract"
	"github.com/sakamer71/owl-ocr/internal/jobs"
	"github.com/sakamer71/owl-ocr/internal/jobstore"
	"github.com/sakamer71/owl-ocr/internal/observability"
	"github.com/sakamer71/owl-ocr/internal/worker"
)

func newTestService(t *testing.T, registry *extract.Registry) (*JobService, *jobstore.MemoryStore) {
	t.Helper()

	store := jobstore.NewMemoryStore(time.Hour)
	t.Cleanup(func() { store.Close() })

	logger := observability.DefaultLogger()
	dispatcher := worker.NewDispatcher(store, registry, worker.Config{OutputDir: t.TempDir()}, logger)
	return NewJobService(store, dispatcher, logger), store
}

func TestJobService_Create(t *testing.T) {
	svc, store := newTestService(t, extract.NewRegistry())

	job, err := svc.Create(context.Background(), "report.pdf", jobs.FileTypePDF)
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, job.ID)
	assert.Equal(t, "report.pdf", job.FileName)
	assert.Equal(t, jobs.FileTypePDF, job.FileType)
	assert.Equal(t, jobs.JobStatusPending, job.Status)
	assert.False(t, job.CreatedAt.IsZero())

	stored, err := store.Get(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, jobs.JobStatusPending, stored.Status)
}

func TestJobService_ScheduleRunsToCompletion(t *testing.T) {
	registry := extract.NewRegistry()
	registry.Register(jobs.FileTypeImage, extract.CapabilityFunc(func(ctx context.Context, filePath, imagesDir string) (*extract.Output, error) {
		return &extract.Output{Texts: []string{"hello"}}, nil
	}))
	svc, store := newTestService(t, registry)

	job, err := svc.Create(context.Background(), "photo.png", jobs.FileTypeImage)
	require.NoError(t, err)

	svc.Schedule(job, "/uploads/photo.png", ScheduleOptions{})

	require.Eventually(t, func() bool {
		current, err := store.Get(context.Background(), job.ID)
		return err == nil && current.Status == jobs.JobStatusCompleted
	}, 5*time.Second, 10*time.Millisecond)

	result, err := svc.Result(context.Background(), job.ID)
	require.NoError(t, err)
	require.Len(t, result.Texts, 1)
	assert.Equal(t, "hello", result.Texts[0].Text)
	assert.Equal(t, jobs.OutputFormatJSON, result.Metadata.OutputFormat)
}

func TestJobService_ScheduleRecoversPanic(t *testing.T) {
	registry := extract.NewRegistry()
	registry.Register(jobs.FileTypeImage, extract.CapabilityFunc(func(ctx context.Context, filePath, imagesDir string) (*extract.Output, error) {
		panic("capability blew up")
	}))
	svc, store := newTestService(t, registry)

	job, err := svc.Create(context.Background(), "photo.png", jobs.FileTypeImage)
	require.NoError(t, err)

	svc.Schedule(job, "/uploads/photo.png", ScheduleOptions{})

	require.Eventually(t, func() bool {
		current, err := store.Get(context.Background(), job.ID)
		return err == nil && current.Status == jobs.JobStatusFailed
	}, 5*time.Second, 10*time.Millisecond)

	current, err := store.Get(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Contains(t, current.Message, "Processing failed: capability blew up")
}

func TestJobService_Status_NotFound(t *testing.T) {
	svc, _ := newTestService(t, extract.NewRegistry())

	_, err := svc.Status(context.Background(), uuid.New())
	assert.ErrorIs(t, err, jobstore.ErrNotFound)
}

func TestJobService_Result_Discrimination(t *testing.T) {
	svc, store := newTestService(t, extract.NewRegistry())
	ctx := context.Background()

	t.Run("unknown job", func(t *testing.T) {
		_, err := svc.Result(ctx, uuid.New())
		assert.ErrorIs(t, err, jobstore.ErrNotFound)
	})

	t.Run("still processing", func(t *testing.T) {
		job, err := svc.Create(ctx, "a.pdf", jobs.FileTypePDF)
		require.NoError(t, err)
		_, err = store.Update(ctx, job.ID, func(j *jobs.Job) {
			j.Status = jobs.JobStatusProcessing
			j.Progress = 30
		})
		require.NoError(t, err)

		_, err = svc.Result(ctx, job.ID)
		var inProgress *InProgressError
		require.ErrorAs(t, err, &inProgress)
		assert.Equal(t, jobs.JobStatusProcessing, inProgress.Status)
		assert.Equal(t, 30, inProgress.Progress)
		assert.Equal(t, fmt.Sprintf("Job %s is still processing. Current progress: 30%%", job.ID), err.Error())
	})

	t.Run("failed job", func(t *testing.T) {
		job, err := svc.Create(ctx, "b.pdf", jobs.FileTypePDF)
		require.NoError(t, err)
		_, err = store.Update(ctx, job.ID, func(j *jobs.Job) {
			j.Status = jobs.JobStatusFailed
			j.Message = "Processing failed: corrupt file"
		})
		require.NoError(t, err)

		_, err = svc.Result(ctx, job.ID)
		var failed *FailedError
		require.ErrorAs(t, err, &failed)
		assert.Equal(t, fmt.Sprintf("Job %s failed: Processing failed: corrupt file", job.ID), err.Error())
	})

	t.Run("failed without message", func(t *testing.T) {
		job, err := svc.Create(ctx, "c.pdf", jobs.FileTypePDF)
		require.NoError(t, err)
		_, err = store.Update(ctx, job.ID, func(j *jobs.Job) {
			j.Status = jobs.JobStatusFailed
		})
		require.NoError(t, err)

		_, err = svc.Result(ctx, job.ID)
		var failed *FailedError
		require.ErrorAs(t, err, &failed)
		assert.Equal(t, "Unknown error", failed.Message)
	})

	t.Run("completed but result expired", func(t *testing.T) {
		job, err := svc.Create(ctx, "d.pdf", jobs.FileTypePDF)
		require.NoError(t, err)
		_, err = store.Update(ctx, job.ID, func(j *jobs.Job) {
			j.Status = jobs.JobStatusCompleted
			j.Progress = 100
		})
		require.NoError(t, err)

		_, err = svc.Result(ctx, job.ID)
		assert.ErrorIs(t, err, ErrResultUnavailable)
	})

	t.Run("completed with result", func(t *testing.T) {
		job, err := svc.Create(ctx, "e.pdf", jobs.FileTypePDF)
		require.NoError(t, err)
		require.NoError(t, store.PutResult(ctx, job.ID, &jobs.Result{
			JobID:    job.ID,
			FileName: "e.pdf",
			FileType: jobs.FileTypePDF,
		}))
		_, err = store.Update(ctx, job.ID, func(j *jobs.Job) {
			j.Status = jobs.JobStatusCompleted
			j.Progress = 100
		})
		require.NoError(t, err)

		result, err := svc.Result(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, job.ID, result.JobID)
	})
}

func TestJobService_Delete(t *testing.T) {
	svc, store := newTestService(t, extract.NewRegistry())
	ctx := context.Background()

	err := svc.Delete(ctx, uuid.New())
	assert.ErrorIs(t, err, jobstore.ErrNotFound)

	job, err := svc.Create(ctx, "report.pdf", jobs.FileTypePDF)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, job.ID))

	_, err = store.Get(ctx, job.ID)
	assert.ErrorIs(t, err, jobstore.ErrNotFound)
}

func TestJobService_Cleanup(t *testing.T) {
	svc, store := newTestService(t, extract.NewRegistry())
	ctx := context.Background()

	// Two jobs indexed beyond the retention window, one fresh.
	for i := 0; i < 2; i++ {
		job := &jobs.Job{ID: uuid.New(), FileName: "old.pdf", FileType: jobs.FileTypePDF, Status: jobs.JobStatusCompleted}
		require.NoError(t, store.Put(ctx, job))
		require.NoError(t, store.IndexAdd(ctx, job.ID, time.Now().Add(-2*time.Hour)))
	}
	fresh, err := svc.Create(ctx, "fresh.pdf", jobs.FileTypePDF)
	require.NoError(t, err)

	count, err := svc.Cleanup(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	_, err = store.Get(ctx, fresh.ID)
	assert.NoError(t, err)
}
