package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/sakamer71/owl-ocr/internal/filetype"
	"github.com/sakamer71/owl-ocr/internal/jobs"
	"github.com/sakamer71/owl-ocr/internal/observability"
	"github.com/sakamer71/owl-ocr/internal/service"
)

// ProcessHandler handles file upload and job creation requests.
type ProcessHandler struct {
	logger    *observability.Logger
	service   *service.JobService
	uploadDir string
}

// NewProcessHandler creates a new process handler. Uploaded files are kept
// under uploadDir for the dispatcher to read.
func NewProcessHandler(logger *observability.Logger, svc *service.JobService, uploadDir string) *ProcessHandler {
	return &ProcessHandler{
		logger:    logger,
		service:   svc,
		uploadDir: uploadDir,
	}
}

// ProcessingOptionsDTO carries the optional per-request processing options,
// submitted as a JSON string in the "options" form field.
type ProcessingOptionsDTO struct {
	OutputFormat jobs.OutputFormat `json:"output_format"`
	Verbose      bool              `json:"verbose"`
}

// parseOptions reads the options form field. Malformed options fall back to
// the defaults rather than failing the upload.
func (h *ProcessHandler) parseOptions(r *http.Request) ProcessingOptionsDTO {
	opts := ProcessingOptionsDTO{OutputFormat: jobs.OutputFormatJSON}

	raw := r.FormValue("options")
	if raw == "" {
		return opts
	}

	if err := json.Unmarshal([]byte(raw), &opts); err != nil {
		h.logger.Warn().Err(err).Msg("Could not parse processing options, using defaults")
		return ProcessingOptionsDTO{OutputFormat: jobs.OutputFormatJSON}
	}
	if opts.OutputFormat != jobs.OutputFormatFiles {
		opts.OutputFormat = jobs.OutputFormatJSON
	}
	return opts
}

// saveUpload stores the uploaded file under a collision-free name and
// returns the saved path along with the original file name.
func (h *ProcessHandler) saveUpload(r *http.Request) (string, string, error) {
	file, header, err := r.FormFile("file")
	if err != nil {
		return "", "", fmt.Errorf("file field is required: %w", err)
	}
	defer file.Close()

	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		return "", "", fmt.Errorf("create upload dir: %w", err)
	}

	originalName := filepath.Base(header.Filename)
	uniqueName := strings.ReplaceAll(uuid.New().String(), "-", "") + "_" + originalName
	savedPath := filepath.Join(h.uploadDir, uniqueName)

	dst, err := os.Create(savedPath)
	if err != nil {
		return "", "", fmt.Errorf("create upload file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		os.Remove(savedPath)
		return "", "", fmt.Errorf("write upload file: %w", err)
	}

	return savedPath, originalName, nil
}

// createAndSchedule registers the job and kicks off background processing.
func (h *ProcessHandler) createAndSchedule(w http.ResponseWriter, r *http.Request, savedPath, fileName string, fileType jobs.FileType) {
	opts := h.parseOptions(r)

	job, err := h.service.Create(r.Context(), fileName, fileType)
	if err != nil {
		os.Remove(savedPath)
		writeError(w, http.StatusInternalServerError, "could not create job", err.Error())
		return
	}

	h.service.Schedule(job, savedPath, service.ScheduleOptions{OutputFormat: opts.OutputFormat})

	writeJSON(w, http.StatusAccepted, job)
}

// Process handles POST /api/process with automatic format detection.
func (h *ProcessHandler) Process(w http.ResponseWriter, r *http.Request) {
	savedPath, fileName, err := h.saveUpload(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid upload", err.Error())
		return
	}

	fileType, err := filetype.Resolve(fileName)
	if err != nil {
		os.Remove(savedPath)
		writeError(w, http.StatusBadRequest, "unsupported file type",
			fmt.Sprintf("Unsupported file type: %s", filepath.Ext(fileName)))
		return
	}

	h.createAndSchedule(w, r, savedPath, fileName, fileType)
}

// ProcessImage handles POST /api/process/image.
func (h *ProcessHandler) ProcessImage(w http.ResponseWriter, r *http.Request) {
	h.processTyped(w, r, jobs.FileTypeImage, "Invalid file type. Only PNG and JPEG images are supported.")
}

// ProcessPDF handles POST /api/process/pdf.
func (h *ProcessHandler) ProcessPDF(w http.ResponseWriter, r *http.Request) {
	h.processTyped(w, r, jobs.FileTypePDF, "Invalid file type. Only PDF files are supported.")
}

// ProcessPPTX handles POST /api/process/pptx.
func (h *ProcessHandler) ProcessPPTX(w http.ResponseWriter, r *http.Request) {
	h.processTyped(w, r, jobs.FileTypePPTX, "Invalid file type. Only PPTX and PPT files are supported.")
}

// processTyped handles the typed upload endpoints: the extension must
// resolve to the expected category before the file is accepted.
func (h *ProcessHandler) processTyped(w http.ResponseWriter, r *http.Request, want jobs.FileType, typeErr string) {
	// The typed endpoints validate the extension before saving anything.
	_, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid upload", fmt.Sprintf("file field is required: %s", err))
		return
	}

	if resolved, err := filetype.Resolve(header.Filename); err != nil || resolved != want {
		writeError(w, http.StatusBadRequest, "invalid file type", typeErr)
		return
	}

	savedPath, fileName, err := h.saveUpload(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid upload", err.Error())
		return
	}

	h.createAndSchedule(w, r, savedPath, fileName, want)
}
