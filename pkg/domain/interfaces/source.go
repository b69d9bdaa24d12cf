package interfaces

import (
	"context"
	"io"
)

// Source retrieves a remote resource by URL
type Source interface {
	// Probe returns the size of the resource in bytes without retrieving the
	// body. A negative size means the remote did not tell.
	Probe(ctx context.Context, url string) (int64, error)

	// Open starts streaming the resource body. A negative size means unknown.
	// The caller must close the returned reader.
	Open(ctx context.Context, url string) (io.ReadCloser, int64, error)
}

// URLValidator is implemented by a Source that accepts only part of the URLs
// of its scheme. It is checked before any side effect of a fetch.
type URLValidator interface {
	ValidateURL(url string) error
}
