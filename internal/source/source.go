// Package source opens the spreadsheet the sync job reads, either from the
// local filesystem or from an S3-compatible object store.
package source

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/JonMunkholm/releaseboard/internal/config"
)

// Opener returns a reader over the named spreadsheet.
type Opener interface {
	Open(ctx context.Context, path string) (io.ReadCloser, error)
}

// Local opens files from disk.
type Local struct{}

// Open opens path for reading.
func (Local) Open(_ context.Context, path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open spreadsheet: %w", err)
	}
	return f, nil
}

// Router sends s3:// paths to the object store and everything else to disk.
// The S3 client is built on first use so local runs never touch AWS config.
type Router struct {
	Local Opener
	S3    func(ctx context.Context) (Opener, error)

	s3 Opener
}

// NewRouter creates a Router using cfg for S3 access.
func NewRouter(cfg config.S3Config) *Router {
	return &Router{
		Local: Local{},
		S3: func(ctx context.Context) (Opener, error) {
			return NewS3(ctx, cfg)
		},
	}
}

// Open dispatches on the path scheme.
func (r *Router) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	if !IsS3(path) {
		return r.Local.Open(ctx, path)
	}
	if r.s3 == nil {
		if r.S3 == nil {
			return nil, fmt.Errorf("no object store configured for %q", path)
		}
		o, err := r.S3(ctx)
		if err != nil {
			return nil, fmt.Errorf("create s3 client: %w", err)
		}
		r.s3 = o
	}
	return r.s3.Open(ctx, path)
}

// IsS3 reports whether path is an s3:// URL.
func IsS3(path string) bool {
	return strings.HasPrefix(path, "s3://")
}
