package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/sakamer71/owl-ocr/cmd/owl-ocr/ui"
	"github.com/sakamer71/owl-ocr/internal/jobs"
)

var watchCmd = &cobra.Command{
	Use:   "watch <job-id>",
	Short: "Track a job until it finishes",
	Long:  "Attach to an existing job and render its progress until it reaches a terminal status.",
	Args:  cobra.ExactArgs(1),
	RunE:  runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	ui.InitUI(noColor, verbose)
	defer ui.Close()

	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid job ID: %w", err)
	}

	client := newAPIClient(serverURL, timeout)
	job, err := client.getJob(ctx, id)
	if err != nil {
		return fmt.Errorf("get job: %w", err)
	}

	if job.Status.Terminal() {
		return reportTerminal(job)
	}

	bar := ui.NewProgressBar(job.FileName)
	bar.Set(job.Progress)

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for !job.Status.Terminal() {
		select {
		case <-ctx.Done():
			bar.Finish()
			return fmt.Errorf("timed out waiting for job %s", id)
		case <-ticker.C:
		}

		job, err = client.getJob(ctx, id)
		if err != nil {
			bar.Finish()
			return fmt.Errorf("get job: %w", err)
		}
		bar.Set(job.Progress)
	}
	bar.Finish()

	ui.Newline()
	return reportTerminal(job)
}

func reportTerminal(job *jobs.Job) error {
	if job.Status == jobs.JobStatusCompleted {
		ui.Success("Job %s completed: %s", job.ID, job.Message)
		return nil
	}
	ui.Error("Job %s %s: %s", job.ID, job.Status, job.Message)
	return fmt.Errorf("job %s did not complete", job.ID)
}
