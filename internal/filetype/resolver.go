// Package filetype resolves file names to processing categories.
package filetype

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sakamer71/owl-ocr/internal/jobs"
)

// ErrUnsupported is returned for extensions with no processing category.
var ErrUnsupported = errors.New("unsupported file type")

// extensions maps lower-cased file extensions to their category.
var extensions = map[string]jobs.FileType{
	".pptx": jobs.FileTypePPTX,
	".ppt":  jobs.FileTypePPTX,
	".png":  jobs.FileTypeImage,
	".jpeg": jobs.FileTypeImage,
	".jpg":  jobs.FileTypeImage,
	".pdf":  jobs.FileTypePDF,
}

// Resolve maps a file name or path to its processing category based on the
// extension alone. The match is case-insensitive and never touches the
// filesystem. Unknown extensions return ErrUnsupported.
func Resolve(path string) (jobs.FileType, error) {
	ext := strings.ToLower(filepath.Ext(path))
	ft, ok := extensions[ext]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupported, ext)
	}
	return ft, nil
}

// Supported reports whether the path's extension maps to a category.
func Supported(path string) bool {
	_, err := Resolve(path)
	return err == nil
}
