package worker

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sakamer71/owl-ocr/internal/jobs"
)

const ocrMarker = " (OCR): "

// fileStem returns the base name of path without its extension.
func fileStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// tagPDFTexts converts raw PDF passages into tagged fragments. Passages in
// the form "Page N (OCR): body" came from rasterized pages: they are
// attributed to page N with the prefix stripped. Everything else is kept
// verbatim with source "text".
func tagPDFTexts(texts []string) []jobs.TextFragment {
	fragments := make([]jobs.TextFragment, 0, len(texts))
	for _, text := range texts {
		fragment := jobs.TextFragment{Text: text, Source: jobs.SourceText}

		if strings.HasPrefix(text, "Page ") && strings.Contains(text, ocrMarker) {
			parts := strings.SplitN(text, ocrMarker, 2)
			if page, err := strconv.Atoi(strings.TrimPrefix(parts[0], "Page ")); err == nil {
				fragment.Text = parts[1]
				fragment.Source = jobs.SourceOCR
				fragment.PageNumber = &page
			}
		}

		fragments = append(fragments, fragment)
	}
	return fragments
}

func tagPDFTables(tables []string) []jobs.TableFragment {
	fragments := make([]jobs.TableFragment, 0, len(tables))
	for _, html := range tables {
		fragments = append(fragments, jobs.TableFragment{HTML: html, Source: jobs.SourcePDF})
	}
	return fragments
}

func tagPPTXTexts(texts []string) []jobs.TextFragment {
	fragments := make([]jobs.TextFragment, 0, len(texts))
	for _, text := range texts {
		fragments = append(fragments, jobs.TextFragment{Text: text, Source: jobs.SourceSlide})
	}
	return fragments
}

func tagPPTXTables(tables []string) []jobs.TableFragment {
	fragments := make([]jobs.TableFragment, 0, len(tables))
	for _, html := range tables {
		fragments = append(fragments, jobs.TableFragment{HTML: html, Source: jobs.SourceSlide})
	}
	return fragments
}

// collectPDFImages lists page images written by the PDF capability. Files
// named page_<n>.png are attributed to page n; anything else matching the
// page_ prefix is kept without a page number.
func collectPDFImages(imagesDir string) []jobs.ImageRef {
	images := []jobs.ImageRef{}

	entries, err := os.ReadDir(imagesDir)
	if err != nil {
		return images
	}

	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, "page_") || !strings.HasSuffix(name, ".png") {
			continue
		}

		ref := jobs.ImageRef{Path: filepath.Join(imagesDir, name), Source: jobs.SourcePage}
		numberPart := strings.TrimSuffix(strings.TrimPrefix(name, "page_"), ".png")
		if page, err := strconv.Atoi(numberPart); err == nil {
			ref.PageNumber = &page
		}
		images = append(images, ref)
	}
	return images
}

// collectPPTXImages lists embedded images written by the PPTX capability.
// Files named slide<n>_img<m>.<ext> are attributed to slide n.
func collectPPTXImages(imagesDir string) []jobs.ImageRef {
	images := []jobs.ImageRef{}

	entries, err := os.ReadDir(imagesDir)
	if err != nil {
		return images
	}

	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, "slide") || !strings.Contains(name, "_img") {
			continue
		}

		ref := jobs.ImageRef{Path: filepath.Join(imagesDir, name), Source: jobs.SourceSlide}
		slidePart := strings.SplitN(name, "_", 2)[0]
		if slide, err := strconv.Atoi(strings.TrimPrefix(slidePart, "slide")); err == nil {
			ref.PageNumber = &slide
		}
		images = append(images, ref)
	}
	return images
}

// writeTextArtifact writes passages separated by blank lines.
func writeTextArtifact(path string, texts []string) error {
	var b strings.Builder
	for _, text := range texts {
		b.WriteString(strings.TrimSpace(text))
		b.WriteString("\n\n")
	}
	return os.WriteFile(path, []byte(b.String()), 0o644)
}

// writeTablesArtifact writes HTML table fragments separated by blank lines.
func writeTablesArtifact(path string, tables []string) error {
	var b strings.Builder
	for _, html := range tables {
		b.WriteString(html)
		b.WriteString("\n\n")
	}
	return os.WriteFile(path, []byte(b.String()), 0o644)
}
