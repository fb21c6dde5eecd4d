// Package e2e provides end-to-end tests for the Owl OCR engine.
package e2e

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sakamer71/owl-ocr/internal/extract"
	"github.com/sakamer71/owl-ocr/internal/jobs"
	"github.com/sakamer71/owl-ocr/internal/jobstore"
	"github.com/sakamer71/owl-ocr/internal/observability"
	"github.com/sakamer71/owl-ocr/internal/service"
	"github.com/sakamer71/owl-ocr/internal/worker"
)

// TestEndToEndDocumentProcessing runs the complete pipeline from submission
// to result retrieval against a scripted extractor.
func TestEndToEndDocumentProcessing(t *testing.T) {
	ctx := context.Background()
	logger := observability.NewLogger(observability.LogConfig{
		Level:       "debug",
		Format:      "console",
		ServiceName: "e2e-test",
	})

	// Step 1: Scripted extractor standing in for the external OCR binary
	t.Log("\n=== Step 1: Preparing Extractor ===")
	script := filepath.Join(t.TempDir(), "extractor.sh")
	resultJSON := `{"texts": ["Page 1 (OCR): Owl OCR processes documents asynchronously", "A closing remark"], "tables": ["<table><tr><td>Q3</td><td>12%</td></tr></table>"]}`
	body := "#!/bin/sh\n" +
		"out=\"\"\nimgdir=\"\"\n" +
		"while [ $# -gt 0 ]; do\n" +
		"  if [ \"$1\" = \"--output\" ]; then out=\"$2\"; fi\n" +
		"  if [ \"$1\" = \"--images-dir\" ]; then imgdir=\"$2\"; fi\n" +
		"  shift\ndone\n" +
		"mkdir -p \"$imgdir\"\n" +
		"printf 'png' > \"$imgdir/page_1.png\"\n" +
		"printf '%s' '" + resultJSON + "' > \"$out\"\n"
	if err := os.WriteFile(script, []byte(body), 0o755); err != nil {
		t.Fatalf("Failed to write extractor script: %v", err)
	}
	t.Logf("Extractor script at: %s", script)

	// Step 2: Assemble the engine on the in-memory store
	t.Log("\n=== Step 2: Assembling Engine ===")
	store := jobstore.NewMemoryStore(time.Hour)
	defer store.Close()

	registry := extract.NewRegistry()
	capability, err := extract.NewCommandCapability([]string{script}, logger)
	if err != nil {
		t.Fatalf("Failed to build capability: %v", err)
	}
	registry.Register(jobs.FileTypePDF, capability)

	outputDir := t.TempDir()
	dispatcher := worker.NewDispatcher(store, registry, worker.Config{OutputDir: outputDir}, logger)
	svc := service.NewJobService(store, dispatcher, logger)
	t.Logf("Engine ready, artifacts under: %s", outputDir)

	// Step 3: Submit a document
	t.Log("\n=== Step 3: Submitting Document ===")
	uploadPath := filepath.Join(t.TempDir(), "whitepaper.pdf")
	if err := os.WriteFile(uploadPath, []byte("%PDF-1.7 dummy"), 0o644); err != nil {
		t.Fatalf("Failed to write upload: %v", err)
	}

	job, err := svc.Create(ctx, "whitepaper.pdf", jobs.FileTypePDF)
	if err != nil {
		t.Fatalf("Failed to create job: %v", err)
	}
	t.Logf("Created job %s (status=%s)", job.ID, job.Status)

	svc.Schedule(job, uploadPath, service.ScheduleOptions{OutputFormat: jobs.OutputFormatFiles})

	// Step 4: Poll status to completion
	t.Log("\n=== Step 4: Polling Status ===")
	deadline := time.Now().Add(15 * time.Second)
	var current *jobs.Job
	for {
		current, err = svc.Status(ctx, job.ID)
		if err != nil {
			t.Fatalf("Status failed: %v", err)
		}
		if current.Status.Terminal() {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("Job still %s (%d%%) after deadline", current.Status, current.Progress)
		}
		time.Sleep(50 * time.Millisecond)
	}
	if current.Status != jobs.JobStatusCompleted {
		t.Fatalf("Job finished %s: %s", current.Status, current.Message)
	}
	t.Logf("Job completed: progress=%d message=%q", current.Progress, current.Message)

	// Step 5: Fetch and verify the result
	t.Log("\n=== Step 5: Verifying Result ===")
	result, err := svc.Result(ctx, job.ID)
	if err != nil {
		t.Fatalf("Result failed: %v", err)
	}

	if len(result.Texts) != 2 {
		t.Fatalf("Expected 2 text fragments, got %d", len(result.Texts))
	}
	first := result.Texts[0]
	if first.Source != jobs.SourceOCR || first.PageNumber == nil || *first.PageNumber != 1 {
		t.Fatalf("First fragment not tagged as OCR page 1: %+v", first)
	}
	if first.Text != "Owl OCR processes documents asynchronously" {
		t.Fatalf("OCR prefix not stripped: %q", first.Text)
	}
	if result.Texts[1].Source != jobs.SourceText {
		t.Fatalf("Second fragment should be plain text, got %s", result.Texts[1].Source)
	}
	if len(result.Tables) != 1 || result.Tables[0].Source != jobs.SourcePDF {
		t.Fatalf("Table fragment missing or mistagged: %+v", result.Tables)
	}
	if len(result.Images) != 1 || result.Images[0].Source != jobs.SourcePage {
		t.Fatalf("Image ref missing or mistagged: %+v", result.Images)
	}
	t.Logf("Result: %d texts, %d tables, %d images", len(result.Texts), len(result.Tables), len(result.Images))

	textPath := result.OutputFiles["text"]
	if textPath == "" {
		t.Fatal("Result has no text artifact path")
	}
	content, err := os.ReadFile(textPath)
	if err != nil {
		t.Fatalf("Failed to read text artifact: %v", err)
	}
	t.Logf("Text artifact (%d bytes): %s", len(content), textPath)

	if result.Metadata.OutputDirectory == nil {
		t.Fatal("files format should report an output directory")
	}

	// Step 6: Delete and verify the record is gone
	t.Log("\n=== Step 6: Deleting Job ===")
	if err := svc.Delete(ctx, job.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := svc.Status(ctx, job.ID); err == nil {
		t.Fatal("Status should fail after delete")
	}
	t.Log("Job deleted and unreachable")
}

// TestEndToEndFailurePath verifies that a crashing extractor yields a failed
// job whose message carries the underlying error.
func TestEndToEndFailurePath(t *testing.T) {
	ctx := context.Background()
	logger := observability.DefaultLogger()

	script := filepath.Join(t.TempDir(), "broken.sh")
	if err := os.WriteFile(script, []byte("#!/bin/sh\necho 'boom' >&2\nexit 3\n"), 0o755); err != nil {
		t.Fatalf("Failed to write extractor script: %v", err)
	}

	store := jobstore.NewMemoryStore(time.Hour)
	defer store.Close()

	registry := extract.NewRegistry()
	capability, err := extract.NewCommandCapability([]string{script}, logger)
	if err != nil {
		t.Fatalf("Failed to build capability: %v", err)
	}
	registry.Register(jobs.FileTypeImage, capability)

	dispatcher := worker.NewDispatcher(store, registry, worker.Config{OutputDir: t.TempDir()}, logger)
	svc := service.NewJobService(store, dispatcher, logger)

	uploadPath := filepath.Join(t.TempDir(), "scan.png")
	if err := os.WriteFile(uploadPath, []byte("png"), 0o644); err != nil {
		t.Fatalf("Failed to write upload: %v", err)
	}

	job, err := svc.Create(ctx, "scan.png", jobs.FileTypeImage)
	if err != nil {
		t.Fatalf("Failed to create job: %v", err)
	}
	svc.Schedule(job, uploadPath, service.ScheduleOptions{})

	deadline := time.Now().Add(15 * time.Second)
	var current *jobs.Job
	for {
		current, err = svc.Status(ctx, job.ID)
		if err != nil {
			t.Fatalf("Status failed: %v", err)
		}
		if current.Status.Terminal() {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("Job still %s after deadline", current.Status)
		}
		time.Sleep(50 * time.Millisecond)
	}

	if current.Status != jobs.JobStatusFailed {
		t.Fatalf("Expected failed, got %s", current.Status)
	}
	if current.Message == "" {
		t.Fatal("Failed job must carry a message")
	}
	t.Logf("Job failed as expected: %s", current.Message)

	if _, err := svc.Result(ctx, job.ID); err == nil {
		t.Fatal("Result should report the failure")
	}
}
