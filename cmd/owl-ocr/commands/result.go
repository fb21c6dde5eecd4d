package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/sakamer71/owl-ocr/cmd/owl-ocr/ui"
)

var (
	resultRaw    bool
	resultOutput string
)

var resultCmd = &cobra.Command{
	Use:   "result <job-id>",
	Short: "Fetch the result of a completed job",
	Long: `Fetch the extraction result of a completed job and print it as JSON.
Fails with the server's explanation when the job is still running, failed, or
was swept.`,
	Args: cobra.ExactArgs(1),
	RunE: runResult,
}

func init() {
	resultCmd.Flags().BoolVar(&resultRaw, "raw", false, "print compact JSON instead of indented")
	resultCmd.Flags().StringVarP(&resultOutput, "output", "o", "", "write the result to this file instead of stdout")
	rootCmd.AddCommand(resultCmd)
}

func runResult(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	ui.InitUI(noColor, verbose)
	defer ui.Close()

	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid job ID: %w", err)
	}

	client := newAPIClient(serverURL, timeout)
	result, err := client.getResult(ctx, id)
	if err != nil {
		return fmt.Errorf("get result: %w", err)
	}

	var data []byte
	if resultRaw {
		data, err = json.Marshal(result)
	} else {
		data, err = json.MarshalIndent(result, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	if resultOutput != "" {
		if err := os.WriteFile(resultOutput, append(data, '\n'), 0o644); err != nil {
			return fmt.Errorf("write result: %w", err)
		}
		ui.Success("Result written to %s", resultOutput)
		return nil
	}

	fmt.Println(string(data))
	return nil
}
