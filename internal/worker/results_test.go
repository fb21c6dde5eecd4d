package worker

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakamer71/owl-ocr/internal/jobs"
)

func TestTagPDFTexts(t *testing.T) {
	fragments := tagPDFTexts([]string{
		"Page 3 (OCR): scanned paragraph",
		"plain body paragraph",
		"Page X (OCR): unparseable page number",
		"Page 1 without the marker",
	})
	require.Len(t, fragments, 4)

	assert.Equal(t, "scanned paragraph", fragments[0].Text)
	assert.Equal(t, jobs.SourceOCR, fragments[0].Source)
	require.NotNil(t, fragments[0].PageNumber)
	assert.Equal(t, 3, *fragments[0].PageNumber)

	assert.Equal(t, "plain body paragraph", fragments[1].Text)
	assert.Equal(t, jobs.SourceText, fragments[1].Source)
	assert.Nil(t, fragments[1].PageNumber)

	// Unparseable page numbers leave the passage untouched.
	assert.Equal(t, "Page X (OCR): unparseable page number", fragments[2].Text)
	assert.Equal(t, jobs.SourceText, fragments[2].Source)
	assert.Nil(t, fragments[2].PageNumber)

	assert.Equal(t, jobs.SourceText, fragments[3].Source)
}

func TestTagPDFTexts_MarkerSplitsOnFirstOccurrence(t *testing.T) {
	fragments := tagPDFTexts([]string{"Page 2 (OCR): see Page 9 (OCR): nested"})
	require.Len(t, fragments, 1)
	assert.Equal(t, "see Page 9 (OCR): nested", fragments[0].Text)
	require.NotNil(t, fragments[0].PageNumber)
	assert.Equal(t, 2, *fragments[0].PageNumber)
}

func TestCollectPDFImages(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"page_1.png", "page_12.png", "page_oops.png", "thumb.png", "page_2.jpg"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("png"), 0o644))
	}

	images := collectPDFImages(dir)
	require.Len(t, images, 3)

	byPath := map[string]jobs.ImageRef{}
	for _, img := range images {
		byPath[filepath.Base(img.Path)] = img
		assert.Equal(t, jobs.SourcePage, img.Source)
	}

	require.NotNil(t, byPath["page_1.png"].PageNumber)
	assert.Equal(t, 1, *byPath["page_1.png"].PageNumber)
	require.NotNil(t, byPath["page_12.png"].PageNumber)
	assert.Equal(t, 12, *byPath["page_12.png"].PageNumber)
	assert.Nil(t, byPath["page_oops.png"].PageNumber)
}

func TestCollectPDFImages_MissingDir(t *testing.T) {
	images := collectPDFImages(filepath.Join(t.TempDir(), "does-not-exist"))
	assert.Empty(t, images)
}

func TestCollectPPTXImages(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"slide3_img2.png", "slide10_img1.jpeg", "slideX_img1.png", "background.png"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("img"), 0o644))
	}

	images := collectPPTXImages(dir)
	require.Len(t, images, 3)

	byPath := map[string]jobs.ImageRef{}
	for _, img := range images {
		byPath[filepath.Base(img.Path)] = img
		assert.Equal(t, jobs.SourceSlide, img.Source)
	}

	require.NotNil(t, byPath["slide3_img2.png"].PageNumber)
	assert.Equal(t, 3, *byPath["slide3_img2.png"].PageNumber)
	require.NotNil(t, byPath["slide10_img1.jpeg"].PageNumber)
	assert.Equal(t, 10, *byPath["slide10_img1.jpeg"].PageNumber)
	assert.Nil(t, byPath["slideX_img1.png"].PageNumber)
}

func TestWriteTextArtifact(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.txt")
	require.NoError(t, writeTextArtifact(path, []string{"  first passage  ", "second passage"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "first passage\n\nsecond passage\n\n", string(data))
}

func TestFileStem(t *testing.T) {
	assert.Equal(t, "report", fileStem("/uploads/report.pdf"))
	assert.Equal(t, "deck.v2", fileStem("deck.v2.pptx"))
	assert.Equal(t, "notes", fileStem("notes"))
}
