// Package jobs defines the job and result records shared across the engine.
package jobs

import (
	"time"

	"github.com/google/uuid"
)

// FileType represents a supported document category.
type FileType string

const (
	FileTypeImage FileType = "image"
	FileTypePDF   FileType = "pdf"
	FileTypePPTX  FileType = "pptx"
)

// JobStatus represents the lifecycle state of a processing job.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Terminal reports whether the status is a final state.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// OutputFormat selects how extraction artifacts are kept.
type OutputFormat string

const (
	// OutputFormatJSON keeps results in the store only; scratch files are
	// written to a temp dir that is removed when the job finishes.
	OutputFormatJSON OutputFormat = "json"
	// OutputFormatFiles additionally keeps artifacts under the configured
	// output directory, one subdirectory per job.
	OutputFormatFiles OutputFormat = "files"
)

// FragmentSource labels where an extracted fragment came from.
type FragmentSource string

const (
	SourceImage FragmentSource = "image"
	SourceText  FragmentSource = "text"
	SourceOCR   FragmentSource = "ocr"
	SourcePage  FragmentSource = "page"
	SourcePDF   FragmentSource = "pdf"
	SourceSlide FragmentSource = "slide"
)

// Job is the stored record tracking one processing request.
type Job struct {
	ID        uuid.UUID `json:"job_id"`
	FileName  string    `json:"file_name"`
	FileType  FileType  `json:"file_type"`
	Status    JobStatus `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Progress  int       `json:"progress,omitempty"`
	Message   string    `json:"message,omitempty"`
}

// TextFragment is one extracted piece of text.
type TextFragment struct {
	Text       string         `json:"text"`
	Source     FragmentSource `json:"source"`
	PageNumber *int           `json:"page_number"`
}

// TableFragment is one extracted table rendered as HTML.
type TableFragment struct {
	HTML       string         `json:"html"`
	Source     FragmentSource `json:"source"`
	PageNumber *int           `json:"page_number"`
}

// ImageRef points at an image file emitted during extraction.
type ImageRef struct {
	Path       string         `json:"path"`
	Source     FragmentSource `json:"source"`
	PageNumber *int           `json:"page_number"`
}

// ResultMetadata carries processing details alongside the fragments.
type ResultMetadata struct {
	OutputFormat    OutputFormat `json:"output_format"`
	OutputDirectory *string      `json:"output_directory"`
}

// Result is the stored outcome of a completed job.
type Result struct {
	JobID       uuid.UUID         `json:"job_id"`
	FileName    string            `json:"file_name"`
	FileType    FileType          `json:"file_type"`
	Texts       []TextFragment    `json:"texts"`
	Tables      []TableFragment   `json:"tables"`
	Images      []ImageRef        `json:"images"`
	OutputFiles map[string]string `json:"output_files"`
	Metadata    ResultMetadata    `json:"metadata"`
}
