// Package extract defines the pluggable extraction capabilities that turn an
// uploaded document into raw text passages and HTML tables. Workers resolve a
// capability by file type and never know how the content was produced.
package extract

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/sakamer71/owl-ocr/internal/jobs"
)

// Output holds the raw fragments produced by a single extraction run.
// Texts are plain-text passages in document order. Tables are standalone
// HTML table fragments. Page images, if any, are written by the capability
// into the images directory it was given.
type Output struct {
	Texts  []string
	Tables []string
}

// Capability extracts content from the file at filePath. imagesDir is an
// existing directory the capability may fill with page or embedded images.
// Implementations must respect ctx cancellation.
type Capability interface {
	Extract(ctx context.Context, filePath, imagesDir string) (*Output, error)
}

// CapabilityFunc adapts a plain function to the Capability interface.
type CapabilityFunc func(ctx context.Context, filePath, imagesDir string) (*Output, error)

// Extract implements Capability.
func (f CapabilityFunc) Extract(ctx context.Context, filePath, imagesDir string) (*Output, error) {
	return f(ctx, filePath, imagesDir)
}

// Registry maps file types to their extraction capabilities.
type Registry struct {
	mu           sync.RWMutex
	capabilities map[jobs.FileType]Capability
}

// NewRegistry creates an empty capability registry.
func NewRegistry() *Registry {
	return &Registry{
		capabilities: make(map[jobs.FileType]Capability),
	}
}

// Register associates a capability with a file type, replacing any
// previous registration for that type.
func (r *Registry) Register(fileType jobs.FileType, cap Capability) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.capabilities[fileType] = cap
}

// Lookup returns the capability for the given file type.
func (r *Registry) Lookup(fileType jobs.FileType) (Capability, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cap, ok := r.capabilities[fileType]
	if !ok {
		return nil, fmt.Errorf("no extraction capability registered for file type: %s", fileType)
	}
	return cap, nil
}

// Types returns the registered file types in sorted order.
func (r *Registry) Types() []jobs.FileType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]jobs.FileType, 0, len(r.capabilities))
	for ft := range r.capabilities {
		types = append(types, ft)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}
