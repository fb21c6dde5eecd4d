package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sakamer71/owl-ocr/cmd/owl-ocr/ui"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Sweep expired jobs on the server",
	Long:  "Trigger a sweep of jobs older than the server's retention window.",
	RunE:  runCleanup,
}

func init() {
	rootCmd.AddCommand(cleanupCmd)
}

func runCleanup(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	ui.InitUI(noColor, verbose)
	defer ui.Close()

	client := newAPIClient(serverURL, timeout)
	message, err := client.cleanup(ctx)
	if err != nil {
		return fmt.Errorf("cleanup: %w", err)
	}

	ui.Success("%s", message)
	return nil
}
