package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/sakamer71/owl-ocr/cmd/owl-ocr/ui"
	"github.com/sakamer71/owl-ocr/internal/jobs"
)

var (
	processType   string
	processFormat string
	processOutput string
	processWait   bool
)

var processCmd = &cobra.Command{
	Use:   "process <file> [file...]",
	Short: "Upload documents for processing",
	Long: `Upload one or more documents to the server and schedule extraction jobs.
By default the command stays attached and renders a live progress bar per job
until every job reaches a terminal status.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runProcess,
}

func init() {
	processCmd.Flags().StringVarP(&processType, "type", "t", "", "force a category route: image, pdf or pptx")
	processCmd.Flags().StringVarP(&processFormat, "format", "f", "", "output format: json or files")
	processCmd.Flags().StringVarP(&processOutput, "output", "o", "", "write the final result JSON to this file (single upload only)")
	processCmd.Flags().BoolVar(&processWait, "wait", true, "stay attached until all jobs finish")
	rootCmd.AddCommand(processCmd)
}

func runProcess(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	ui.InitUI(noColor, verbose)
	defer ui.Close()

	if processOutput != "" && len(args) > 1 {
		return fmt.Errorf("--output works with a single file, got %d", len(args))
	}

	forceType, err := parseForceType(processType)
	if err != nil {
		return err
	}
	format, err := parseOutputFormat(processFormat)
	if err != nil {
		return err
	}

	client := newAPIClient(serverURL, timeout)

	ui.Section("Document Upload")
	ui.Detail("Server: %s", serverURL)

	spinner := ui.NewSpinner("Uploading...")
	spinner.Start()

	var submitted []*jobs.Job
	var failures []string
	for _, path := range args {
		spinner.UpdateMessage(fmt.Sprintf("Uploading %s...", filepath.Base(path)))
		job, err := client.submitFile(ctx, path, forceType, format)
		if err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", path, err))
			continue
		}
		submitted = append(submitted, job)
	}
	spinner.Stop()

	for _, failure := range failures {
		ui.Error("%s", failure)
	}
	if len(submitted) == 0 {
		return fmt.Errorf("no jobs were scheduled")
	}

	rows := make([][]string, 0, len(submitted))
	for _, job := range submitted {
		rows = append(rows, []string{job.FileName, job.ID.String(), string(job.FileType), string(job.Status)})
	}
	ui.Table([]string{"File", "Job ID", "Type", "Status"}, rows)

	if !processWait {
		ui.Newline()
		ui.Info("Jobs scheduled. Track one with: owl-ocr watch <job-id>")
		return nil
	}

	ui.Newline()
	ui.Section("Processing")

	start := time.Now()
	final := trackJobs(ctx, client, submitted)

	ui.Newline()
	var failed int
	for _, job := range final {
		if job.Status == jobs.JobStatusCompleted {
			ui.Success("%s: %s", job.FileName, job.Message)
		} else {
			failed++
			ui.Error("%s: %s", job.FileName, job.Message)
		}
	}
	ui.Newline()
	ui.Info("Finished in %s", ui.FormatDuration(time.Since(start)))

	if processOutput != "" && failed == 0 {
		if err := saveResult(ctx, client, final[0].ID, processOutput); err != nil {
			return fmt.Errorf("save result: %w", err)
		}
		ui.Success("Result written to %s", processOutput)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d jobs failed", failed, len(final))
	}
	if len(failures) > 0 {
		return fmt.Errorf("%d of %d uploads failed", len(failures), len(args))
	}
	return nil
}

func parseForceType(s string) (jobs.FileType, error) {
	switch s {
	case "":
		return "", nil
	case "image", "pdf", "pptx":
		return jobs.FileType(s), nil
	default:
		return "", fmt.Errorf("unknown file type %q (expected image, pdf or pptx)", s)
	}
}

func parseOutputFormat(s string) (jobs.OutputFormat, error) {
	switch s {
	case "":
		return "", nil
	case "json", "files":
		return jobs.OutputFormat(s), nil
	default:
		return "", fmt.Errorf("unknown output format %q (expected json or files)", s)
	}
}

// trackJobs polls every submitted job concurrently, one bar per job, and
// returns the terminal job records in submission order.
func trackJobs(ctx context.Context, client *apiClient, submitted []*jobs.Job) []*jobs.Job {
	tracker := ui.NewJobTracker()

	final := make([]*jobs.Job, len(submitted))
	var wg sync.WaitGroup
	for i, job := range submitted {
		bar := tracker.AddJob(job.FileName)
		wg.Add(1)
		go func(i int, job *jobs.Job) {
			defer wg.Done()
			final[i] = pollJob(ctx, client, job, bar)
		}(i, job)
	}
	wg.Wait()
	tracker.Wait()
	return final
}

func pollJob(ctx context.Context, client *apiClient, job *jobs.Job, bar *ui.JobBar) *jobs.Job {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	last := job
	for {
		select {
		case <-ctx.Done():
			bar.Fail("timed out")
			last.Status = jobs.JobStatusFailed
			last.Message = "timed out waiting for the job"
			return last
		case <-ticker.C:
		}

		current, err := client.getJob(ctx, job.ID)
		if err != nil {
			var apiErr *apiError
			if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
				bar.Fail("job disappeared")
				last.Status = jobs.JobStatusFailed
				last.Message = "job was deleted while processing"
				return last
			}
			// Transient errors keep the last known state.
			continue
		}

		last = current
		switch current.Status {
		case jobs.JobStatusCompleted:
			bar.Complete(current.Message)
			return current
		case jobs.JobStatusFailed:
			bar.Fail(current.Message)
			return current
		default:
			bar.Update(current.Progress, current.Message)
		}
	}
}

func saveResult(ctx context.Context, client *apiClient, id uuid.UUID, path string) error {
	result, err := client.getResult(ctx, id)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
