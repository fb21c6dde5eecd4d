package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/sakamer71/owl-ocr/cmd/owl-ocr/ui"
)

var statusCmd = &cobra.Command{
	Use:   "status <job-id>",
	Short: "Show the current state of a job",
	Long:  "Fetch a single job record from the server and render it as a table.",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
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

	ui.Section("Job Status")
	ui.Table([]string{"Field", "Value"}, [][]string{
		{"Job ID", job.ID.String()},
		{"File", job.FileName},
		{"Type", string(job.FileType)},
		{"Status", string(job.Status)},
		{"Progress", fmt.Sprintf("%d%%", job.Progress)},
		{"Message", job.Message},
		{"Created", job.CreatedAt.Local().Format(time.RFC3339)},
		{"Updated", job.UpdatedAt.Local().Format(time.RFC3339)},
	})

	return nil
}
