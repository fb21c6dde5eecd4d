package ui

import (
	"os"

	"github.com/fatih/color"
)

var (
	noColorFlag bool
	verboseFlag bool
)

// InitUI initializes the UI with color and verbose settings.
func InitUI(noColor, verbose bool) {
	noColorFlag = noColor
	verboseFlag = verbose

	if noColor {
		color.NoColor = true
	}
}

// Close cleans up any UI resources.
func Close() {
	// Currently no cleanup needed, but can be used for future cleanup
}

// IsTerminal checks if stdout is a terminal.
func IsTerminal() bool {
	fileInfo, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}
