// Package ui provides user interface components for the owl-ocr CLI.
package ui

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/briandowns/spinner"
	"github.com/schollz/progressbar/v3"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// Spinner wraps a spinner instance for indeterminate progress display.
type Spinner struct {
	spinner *spinner.Spinner
}

// NewSpinner creates a new spinner with the given message.
func NewSpinner(message string) *Spinner {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " " + message
	s.Writer = os.Stderr
	return &Spinner{spinner: s}
}

// Start starts the spinner animation.
func (s *Spinner) Start() {
	s.spinner.Start()
}

// Stop stops the spinner animation and clears the line.
func (s *Spinner) Stop() {
	s.spinner.Stop()
}

// UpdateMessage updates the spinner's message.
func (s *Spinner) UpdateMessage(message string) {
	s.spinner.Suffix = " " + message
}

// ProgressBar wraps a progressbar instance for percentage progress display.
type ProgressBar struct {
	bar *progressbar.ProgressBar
}

// NewProgressBar creates a bar running from 0 to 100 with the given description.
func NewProgressBar(description string) *ProgressBar {
	bar := progressbar.NewOptions64(
		100,
		progressbar.OptionSetWidth(50),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "│",
			BarEnd:        "│",
		}),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(os.Stderr, "\n")
		}),
		progressbar.OptionSetRenderBlankState(true),
	)

	return &ProgressBar{bar: bar}
}

// Set moves the bar to the given percentage.
func (p *ProgressBar) Set(percent int) {
	_ = p.bar.Set(percent)
}

// Finish completes the progress bar and clears the line.
func (p *ProgressBar) Finish() {
	_ = p.bar.Finish()
}

// JobTracker renders one progress bar per tracked job.
type JobTracker struct {
	progress *mpb.Progress
}

// NewJobTracker creates a tracker writing to stderr.
func NewJobTracker() *JobTracker {
	return &JobTracker{progress: mpb.New(mpb.WithWidth(64), mpb.WithOutput(os.Stderr))}
}

// Wait blocks until every bar has completed or been abandoned.
func (t *JobTracker) Wait() {
	// When piped, progress bars cannot render and Wait may hang.
	if IsTerminal() {
		t.progress.Wait()
	} else {
		t.progress.Shutdown()
	}
}

// JobBar is a single job's bar, fed from polled progress updates.
type JobBar struct {
	bar *mpb.Bar

	mu  sync.Mutex
	msg string
}

// AddJob adds a 0-100 bar named after the job's file.
func (t *JobTracker) AddJob(name string) *JobBar {
	jb := &JobBar{}
	jb.bar = t.progress.AddBar(100,
		mpb.PrependDecorators(
			decor.Name(name, decor.WC{W: len(name) + 1, C: decor.DSyncSpaceR}),
		),
		mpb.AppendDecorators(
			decor.Percentage(decor.WC{W: 5}),
			decor.Any(func(decor.Statistics) string { return jb.message() }, decor.WC{C: decor.DSyncSpaceR}),
		),
	)
	return jb
}

// Update sets the bar position and the trailing status message.
func (b *JobBar) Update(percent int, message string) {
	b.mu.Lock()
	b.msg = message
	b.mu.Unlock()
	b.bar.SetCurrent(int64(percent))
}

// Complete fills the bar with a final message.
func (b *JobBar) Complete(message string) {
	b.Update(100, message)
}

// Fail abandons the bar at its current position.
func (b *JobBar) Fail(message string) {
	b.mu.Lock()
	b.msg = message
	b.mu.Unlock()
	b.bar.Abort(false)
}

func (b *JobBar) message() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return " " + b.msg
}
