package commands

import (
	"time"

	"github.com/spf13/cobra"
)

var (
	serverURL string
	timeout   time.Duration
	verbose   bool
	noColor   bool
)

var rootCmd = &cobra.Command{
	Use:   "owl-ocr",
	Short: "Owl OCR - command line client for the document processing API",
	Long: `owl-ocr talks to a running Owl OCR server. It uploads images, PDFs and
PowerPoint files for text and table extraction, tracks the resulting jobs as
they move through the queue, and fetches results once processing finishes.`,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&serverURL, "server", "s", "http://localhost:8000", "base URL of the Owl OCR API")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Minute, "overall timeout for the command")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
