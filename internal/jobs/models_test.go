package jobs

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJob_WireFormat(t *testing.T) {
	job := Job{
		ID:        uuid.MustParse("a2f4b9be-90f3-4d0a-9a5b-0d6f7c3d2e1f"),
		FileName:  "deck.pptx",
		FileType:  FileTypePPTX,
		Status:    JobStatusPending,
		CreatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	data, err := json.Marshal(job)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(data, &fields))

	assert.Equal(t, "a2f4b9be-90f3-4d0a-9a5b-0d6f7c3d2e1f", fields["job_id"])
	assert.Equal(t, "deck.pptx", fields["file_name"])
	assert.Equal(t, "pptx", fields["file_type"])
	assert.Equal(t, "pending", fields["status"])

	// Progress and message stay hidden until the first checkpoint
	assert.NotContains(t, fields, "progress")
	assert.NotContains(t, fields, "message")
}

func TestJobStatus_Terminal(t *testing.T) {
	assert.False(t, JobStatusPending.Terminal())
	assert.False(t, JobStatusProcessing.Terminal())
	assert.True(t, JobStatusCompleted.Terminal())
	assert.True(t, JobStatusFailed.Terminal())
}
