package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"

	"github.com/sakamer71/owl-ocr/internal/observability"
)

// commandResult is the JSON document an extractor command writes to its
// output path.
type commandResult struct {
	Texts  []string `json:"texts"`
	Tables []string `json:"tables"`
}

// CommandCapability runs an external extractor process. The command is
// invoked as:
//
//	<argv...> --input <file> --images-dir <dir> --output <result.json>
//
// and must write a JSON document with "texts" and "tables" arrays to the
// output path. Images go directly into the images directory.
type CommandCapability struct {
	argv   []string
	logger *observability.Logger
}

// NewCommandCapability creates a capability backed by the given command
// line. The first element of argv is the binary, the rest fixed arguments.
func NewCommandCapability(argv []string, logger *observability.Logger) (*CommandCapability, error) {
	if len(argv) == 0 {
		return nil, fmt.Errorf("extractor command must not be empty")
	}
	if logger == nil {
		logger = observability.DefaultLogger()
	}
	return &CommandCapability{argv: argv, logger: logger}, nil
}

// Extract implements Capability by shelling out to the extractor command.
func (c *CommandCapability) Extract(ctx context.Context, filePath, imagesDir string) (*Output, error) {
	// Create temp file for the JSON result
	tmpFile, err := os.CreateTemp("", "owl-extract-*.json")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	tmpFile.Close()
	defer os.Remove(tmpPath)

	args := append([]string{}, c.argv[1:]...)
	args = append(args,
		"--input", filePath,
		"--images-dir", imagesDir,
		"--output", tmpPath,
	)

	cmd := exec.CommandContext(ctx, c.argv[0], args...)

	c.logger.Debug().
		Str("command", c.argv[0]).
		Str("file_path", filePath).
		Str("images_dir", imagesDir).
		Msg("Running extractor command")

	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("extractor failed: %w, output: %s", err, string(output))
	}

	data, err := os.ReadFile(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("read extractor result: %w", err)
	}

	var result commandResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("parse extractor result: %w", err)
	}

	return &Output{Texts: result.Texts, Tables: result.Tables}, nil
}
