package ui

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
)

// Section displays a section header.
func Section(title string) {
	fmt.Fprintln(os.Stdout)
	color.New(color.FgMagenta, color.Bold).Printf("━━━ %s ━━━\n", strings.ToUpper(title))
	fmt.Fprintln(os.Stdout)
}

// Success displays a success message.
func Success(format string, args ...interface{}) {
	color.New(color.FgGreen).Printf("✓ %s\n", fmt.Sprintf(format, args...))
}

// Error displays an error message to stderr.
func Error(format string, args ...interface{}) {
	color.New(color.FgRed).Fprintf(os.Stderr, "✗ %s\n", fmt.Sprintf(format, args...))
}

// Warning displays a warning message.
func Warning(format string, args ...interface{}) {
	color.New(color.FgYellow).Printf("⚠ %s\n", fmt.Sprintf(format, args...))
}

// Info displays an informational message.
func Info(format string, args ...interface{}) {
	color.New(color.FgCyan).Printf("ℹ %s\n", fmt.Sprintf(format, args...))
}

// Detail displays a secondary message, only when verbose output is enabled.
func Detail(format string, args ...interface{}) {
	if !verboseFlag {
		return
	}
	color.New(color.Faint).Printf("  %s\n", fmt.Sprintf(format, args...))
}

// KeyValue displays a key-value pair in a formatted way.
func KeyValue(key string, value interface{}) {
	color.New(color.FgYellow).Printf("  %s: ", key)
	fmt.Fprintf(os.Stdout, "%v\n", value)
}

// Newline prints a newline.
func Newline() {
	fmt.Fprintln(os.Stdout)
}

// Table displays data in a formatted table.
func Table(headers []string, rows [][]string) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)

	fmt.Fprintln(w, strings.Join(headers, "\t"))

	separator := make([]string, len(headers))
	for i := range separator {
		separator[i] = strings.Repeat("-", len(headers[i]))
	}
	fmt.Fprintln(w, strings.Join(separator, "\t"))

	for _, row := range rows {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}

	_ = w.Flush()
}

// FormatDuration formats a duration in a human-readable way.
func FormatDuration(d time.Duration) string {
	d = d.Round(time.Second)

	hours := d / time.Hour
	d -= hours * time.Hour
	minutes := d / time.Minute
	d -= minutes * time.Minute
	seconds := d / time.Second

	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	}
	if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%ds", seconds)
}
