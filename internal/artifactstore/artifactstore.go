package artifactstore

import (
	"context"
	"errors"
	"io"
)

var ErrNotFound = errors.New("artifact not found")

// ArtifactStore keeps materialized document artifacts. Save overwrites any
// artifact already stored under key.
type ArtifactStore interface {
	Save(ctx context.Context, key string, r io.Reader) (path string, err error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}
