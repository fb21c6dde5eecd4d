// Package worker runs extraction jobs to a terminal state, reporting
// progress checkpoints to the job store along the way.
package worker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sakamer71/owl-ocr/internal/extract"
	"github.com/sakamer71/owl-ocr/internal/jobs"
	"github.com/sakamer71/owl-ocr/internal/jobstore"
	"github.com/sakamer71/owl-ocr/internal/metrics"
	"github.com/sakamer71/owl-ocr/internal/observability"
)

// Config holds dispatcher settings.
type Config struct {
	// OutputDir is the base directory for kept artifacts when a job runs
	// with the files output format. Each job gets its own subdirectory.
	OutputDir string
}

// Request describes one job to process.
type Request struct {
	JobID        uuid.UUID
	FilePath     string
	FileType     jobs.FileType
	OutputFormat jobs.OutputFormat

	// OutputDir overrides the artifact directory for the files output
	// format. Empty means <Config.OutputDir>/<job id>.
	OutputDir string
}

// partialResult collects the fragments a per-type processor produces before
// they are assembled into the stored result.
type partialResult struct {
	texts       []jobs.TextFragment
	tables      []jobs.TableFragment
	images      []jobs.ImageRef
	outputFiles map[string]string
}

// Dispatcher drives jobs through their processing lifecycle: it resolves
// the extraction capability for the file type, reports progress
// checkpoints, writes artifacts, and stores the final result. A dispatcher
// is safe for concurrent use; each job owns its scratch space.
type Dispatcher struct {
	store    jobstore.Store
	registry *extract.Registry
	config   Config
	logger   *observability.Logger
}

// NewDispatcher creates a dispatcher backed by the given store and
// capability registry.
func NewDispatcher(store jobstore.Store, registry *extract.Registry, config Config, logger *observability.Logger) *Dispatcher {
	if config.OutputDir == "" {
		config.OutputDir = "./parsed_docs"
	}
	if logger == nil {
		logger = observability.DefaultLogger()
	}
	return &Dispatcher{
		store:    store,
		registry: registry,
		config:   config,
		logger:   logger,
	}
}

// Process runs a single job to a terminal state and returns the stored
// result on success. Any processing error moves the job to failed. When
// the job record disappears mid-run (deleted by a client) the run is
// abandoned and jobstore.ErrNotFound is returned; no failed transition is
// written for a job that no longer exists.
func (d *Dispatcher) Process(ctx context.Context, req Request) (*jobs.Result, error) {
	start := time.Now()
	logger := d.logger.WithJob(req.JobID.String())

	metrics.JobsInFlight.Inc()
	defer metrics.JobsInFlight.Dec()

	result, err := d.run(ctx, req)
	if err != nil {
		if errors.Is(err, jobstore.ErrNotFound) {
			logger.Warn().Msg("Job record gone, abandoning run")
			return nil, err
		}

		logger.Error().Err(err).Msg("Job processing failed")
		metrics.RecordJobFailed(string(req.FileType), time.Since(start))

		if failErr := d.markFailed(ctx, req.JobID, err); failErr != nil && !errors.Is(failErr, jobstore.ErrNotFound) {
			logger.Error().Err(failErr).Msg("Could not record job failure")
		}
		return nil, err
	}

	metrics.RecordJobCompleted(string(req.FileType), time.Since(start))
	logger.Info().
		Str("file_type", string(req.FileType)).
		Int("texts", len(result.Texts)).
		Int("tables", len(result.Tables)).
		Int("images", len(result.Images)).
		Dur("duration", time.Since(start)).
		Msg("Job completed")

	return result, nil
}

func (d *Dispatcher) run(ctx context.Context, req Request) (*jobs.Result, error) {
	if err := d.checkpoint(ctx, req.JobID, 10, fmt.Sprintf("Starting %s processing", req.FileType)); err != nil {
		return nil, err
	}

	outputDir, scratch, err := d.resolveOutputDir(req)
	if err != nil {
		return nil, err
	}
	if scratch {
		defer os.RemoveAll(outputDir)
	}

	if err := d.checkpoint(ctx, req.JobID, 20, fmt.Sprintf("Detected file type: %s", req.FileType)); err != nil {
		return nil, err
	}

	var partial *partialResult
	switch req.FileType {
	case jobs.FileTypeImage:
		partial, err = d.processImage(ctx, req, outputDir)
	case jobs.FileTypePDF:
		partial, err = d.processPDF(ctx, req, outputDir)
	case jobs.FileTypePPTX:
		partial, err = d.processPPTX(ctx, req, outputDir)
	default:
		err = fmt.Errorf("unsupported file type: %s", req.FileType)
	}
	if err != nil {
		return nil, err
	}

	result := &jobs.Result{
		JobID:       req.JobID,
		FileName:    filepath.Base(req.FilePath),
		FileType:    req.FileType,
		Texts:       partial.texts,
		Tables:      partial.tables,
		Images:      partial.images,
		OutputFiles: partial.outputFiles,
		Metadata:    jobs.ResultMetadata{OutputFormat: req.OutputFormat},
	}
	if req.OutputFormat == jobs.OutputFormatFiles {
		dir := outputDir
		result.Metadata.OutputDirectory = &dir
	}

	// Store the result before the completed transition so any client that
	// observes completed can fetch it.
	if err := d.store.PutResult(ctx, req.JobID, result); err != nil {
		return nil, err
	}

	if err := d.complete(ctx, req.JobID); err != nil {
		return nil, err
	}

	return result, nil
}

// resolveOutputDir returns the directory artifacts are written to and
// whether it is scratch space to remove when the run ends. The files
// output format keeps its directory; the json format works in a temp dir.
func (d *Dispatcher) resolveOutputDir(req Request) (string, bool, error) {
	if req.OutputFormat == jobs.OutputFormatFiles {
		dir := req.OutputDir
		if dir == "" {
			dir = filepath.Join(d.config.OutputDir, req.JobID.String())
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", false, fmt.Errorf("create output dir: %w", err)
		}
		return dir, false, nil
	}

	dir, err := os.MkdirTemp("", fmt.Sprintf("ocr_%s_", req.JobID))
	if err != nil {
		return "", false, fmt.Errorf("create scratch dir: %w", err)
	}
	return dir, true, nil
}

func (d *Dispatcher) processImage(ctx context.Context, req Request, outputDir string) (*partialResult, error) {
	if err := d.checkpoint(ctx, req.JobID, 30, "Applying OCR to image"); err != nil {
		return nil, err
	}

	capability, err := d.registry.Lookup(jobs.FileTypeImage)
	if err != nil {
		return nil, err
	}

	out, err := capability.Extract(ctx, req.FilePath, outputDir)
	if err != nil {
		return nil, err
	}

	text := strings.Join(out.Texts, "\n\n")
	outText := filepath.Join(outputDir, fileStem(req.FilePath)+".txt")
	if err := os.WriteFile(outText, []byte(text), 0o644); err != nil {
		return nil, fmt.Errorf("write text artifact: %w", err)
	}

	if err := d.checkpoint(ctx, req.JobID, 90, "OCR completed, preparing results"); err != nil {
		return nil, err
	}

	return &partialResult{
		texts:       []jobs.TextFragment{{Text: text, Source: jobs.SourceImage}},
		tables:      []jobs.TableFragment{},
		images:      []jobs.ImageRef{},
		outputFiles: map[string]string{"text": outText},
	}, nil
}

func (d *Dispatcher) processPDF(ctx context.Context, req Request, outputDir string) (*partialResult, error) {
	if err := d.checkpoint(ctx, req.JobID, 30, "Extracting text and tables from PDF"); err != nil {
		return nil, err
	}

	stem := fileStem(req.FilePath)
	imagesDir := filepath.Join(outputDir, stem)
	if err := os.MkdirAll(imagesDir, 0o755); err != nil {
		return nil, fmt.Errorf("create images dir: %w", err)
	}

	capability, err := d.registry.Lookup(jobs.FileTypePDF)
	if err != nil {
		return nil, err
	}

	out, err := capability.Extract(ctx, req.FilePath, imagesDir)
	if err != nil {
		return nil, err
	}

	if err := d.checkpoint(ctx, req.JobID, 70, "Processing PDF pages"); err != nil {
		return nil, err
	}

	outText := filepath.Join(outputDir, stem+".txt")
	outTables := filepath.Join(outputDir, stem+"_tables.html")
	if err := writeTextArtifact(outText, out.Texts); err != nil {
		return nil, fmt.Errorf("write text artifact: %w", err)
	}
	if err := writeTablesArtifact(outTables, out.Tables); err != nil {
		return nil, fmt.Errorf("write tables artifact: %w", err)
	}

	if err := d.checkpoint(ctx, req.JobID, 90, "PDF processing completed, preparing results"); err != nil {
		return nil, err
	}

	return &partialResult{
		texts:  tagPDFTexts(out.Texts),
		tables: tagPDFTables(out.Tables),
		images: collectPDFImages(imagesDir),
		outputFiles: map[string]string{
			"text":       outText,
			"tables":     outTables,
			"images_dir": imagesDir,
		},
	}, nil
}

func (d *Dispatcher) processPPTX(ctx context.Context, req Request, outputDir string) (*partialResult, error) {
	if err := d.checkpoint(ctx, req.JobID, 30, "Extracting content from PowerPoint"); err != nil {
		return nil, err
	}

	stem := fileStem(req.FilePath)
	imagesDir := filepath.Join(outputDir, stem)
	if err := os.MkdirAll(imagesDir, 0o755); err != nil {
		return nil, fmt.Errorf("create images dir: %w", err)
	}

	capability, err := d.registry.Lookup(jobs.FileTypePPTX)
	if err != nil {
		return nil, err
	}

	out, err := capability.Extract(ctx, req.FilePath, imagesDir)
	if err != nil {
		return nil, err
	}

	if err := d.checkpoint(ctx, req.JobID, 70, "Processing PowerPoint slides"); err != nil {
		return nil, err
	}

	outText := filepath.Join(outputDir, stem+".txt")
	outTables := filepath.Join(outputDir, stem+"_tables.html")
	if err := writeTextArtifact(outText, out.Texts); err != nil {
		return nil, fmt.Errorf("write text artifact: %w", err)
	}
	if err := writeTablesArtifact(outTables, out.Tables); err != nil {
		return nil, fmt.Errorf("write tables artifact: %w", err)
	}

	if err := d.checkpoint(ctx, req.JobID, 90, "PowerPoint processing completed, preparing results"); err != nil {
		return nil, err
	}

	return &partialResult{
		texts:  tagPPTXTexts(out.Texts),
		tables: tagPPTXTables(out.Tables),
		images: collectPPTXImages(imagesDir),
		outputFiles: map[string]string{
			"text":       outText,
			"tables":     outTables,
			"images_dir": imagesDir,
		},
	}, nil
}

// checkpoint advances the job to processing with the given progress and
// message.
func (d *Dispatcher) checkpoint(ctx context.Context, jobID uuid.UUID, progress int, message string) error {
	_, err := d.store.Update(ctx, jobID, func(job *jobs.Job) {
		job.Status = jobs.JobStatusProcessing
		job.Progress = progress
		job.Message = message
	})
	if err == nil {
		d.logger.Debug().
			Str("job_id", jobID.String()).
			Int("progress", progress).
			Msg(message)
	}
	return err
}

func (d *Dispatcher) complete(ctx context.Context, jobID uuid.UUID) error {
	_, err := d.store.Update(ctx, jobID, func(job *jobs.Job) {
		job.Status = jobs.JobStatusCompleted
		job.Progress = 100
		job.Message = "Processing completed successfully"
	})
	return err
}

// markFailed records the failure message. Progress is left at the last
// checkpoint reached.
func (d *Dispatcher) markFailed(ctx context.Context, jobID uuid.UUID, cause error) error {
	_, err := d.store.Update(ctx, jobID, func(job *jobs.Job) {
		job.Status = jobs.JobStatusFailed
		job.Message = fmt.Sprintf("Processing failed: %s", cause)
	})
	return err
}
