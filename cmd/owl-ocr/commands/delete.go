package commands

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/sakamer71/owl-ocr/cmd/owl-ocr/ui"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <job-id>",
	Short: "Delete a job and its stored result",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}

func runDelete(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	ui.InitUI(noColor, verbose)
	defer ui.Close()

	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid job ID: %w", err)
	}

	client := newAPIClient(serverURL, timeout)
	message, err := client.deleteJob(ctx, id)
	if err != nil {
		return fmt.Errorf("delete job: %w", err)
	}

	ui.Success("%s", message)
	return nil
}
