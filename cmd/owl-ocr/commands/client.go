package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sakamer71/owl-ocr/internal/jobs"
)

// apiClient is a thin HTTP client for the Owl OCR API.
type apiClient struct {
	httpClient *http.Client
	baseURL    string
}

func newAPIClient(baseURL string, timeout time.Duration) *apiClient {
	return &apiClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// apiError is an error response decoded from the server.
type apiError struct {
	Status  int    `json:"-"`
	Message string `json:"error"`
	Detail  string `json:"detail"`
}

func (e *apiError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("server returned status %d", e.Status)
}

func decodeError(resp *http.Response, body []byte) error {
	apiErr := &apiError{Status: resp.StatusCode}
	if err := json.Unmarshal(body, apiErr); err != nil || (apiErr.Message == "" && apiErr.Detail == "") {
		return fmt.Errorf("server returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return apiErr
}

func (c *apiClient) do(ctx context.Context, method, path string, body io.Reader, contentType string, wantStatus int, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != wantStatus {
		return decodeError(resp, data)
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}

// submitFile uploads one file and returns the scheduled job. An empty
// forceType posts to the auto-detecting endpoint.
func (c *apiClient) submitFile(ctx context.Context, path string, forceType jobs.FileType, format jobs.OutputFormat) (*jobs.Job, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	if format != "" {
		options, err := json.Marshal(map[string]jobs.OutputFormat{"output_format": format})
		if err != nil {
			return nil, fmt.Errorf("marshal options: %w", err)
		}
		if err := writer.WriteField("options", string(options)); err != nil {
			return nil, fmt.Errorf("write options field: %w", err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close form: %w", err)
	}

	endpoint := "/api/process"
	if forceType != "" {
		endpoint += "/" + string(forceType)
	}

	var job jobs.Job
	if err := c.do(ctx, http.MethodPost, endpoint, &buf, writer.FormDataContentType(), http.StatusAccepted, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

func (c *apiClient) getJob(ctx context.Context, id uuid.UUID) (*jobs.Job, error) {
	var job jobs.Job
	if err := c.do(ctx, http.MethodGet, "/api/jobs/"+id.String(), nil, "", http.StatusOK, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

func (c *apiClient) getResult(ctx context.Context, id uuid.UUID) (*jobs.Result, error) {
	var result jobs.Result
	if err := c.do(ctx, http.MethodGet, "/api/jobs/"+id.String()+"/result", nil, "", http.StatusOK, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// statusMessage is the success envelope returned by delete and cleanup.
type statusMessage struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (c *apiClient) deleteJob(ctx context.Context, id uuid.UUID) (string, error) {
	var msg statusMessage
	if err := c.do(ctx, http.MethodDelete, "/api/jobs/"+id.String(), nil, "", http.StatusOK, &msg); err != nil {
		return "", err
	}
	return msg.Message, nil
}

func (c *apiClient) cleanup(ctx context.Context) (string, error) {
	var msg statusMessage
	if err := c.do(ctx, http.MethodPost, "/api/jobs/cleanup", nil, "", http.StatusOK, &msg); err != nil {
		return "", err
	}
	return msg.Message, nil
}
