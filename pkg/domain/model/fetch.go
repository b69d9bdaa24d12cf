package model

import (
	"net/url"

	"github.com/leoric/kbai/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
)

// SizeUnknown is used for TransferProgress.TotalBytes when the server did not
// tell the resource size.
const SizeUnknown int64 = -1

// FetchRequest describes one download-and-extract invocation
type FetchRequest struct {
	SourceURL      string `json:"url" firestore:"url" toml:"url" yaml:"url"`
	Destination    string `json:"destination" firestore:"destination" toml:"destination" yaml:"destination"`
	SkipIfNotEmpty bool   `json:"skip_if_not_empty" firestore:"skip_if_not_empty" toml:"skip_if_not_empty" yaml:"skip_if_not_empty"`
}

// NewFetchRequest creates a FetchRequest with the skip guard enabled
func NewFetchRequest(sourceURL, destination string) *FetchRequest {
	return &FetchRequest{
		SourceURL:      sourceURL,
		Destination:    destination,
		SkipIfNotEmpty: true,
	}
}

// Validate checks that the source URL is absolute and the destination is set
func (r *FetchRequest) Validate() error {
	if r.SourceURL == "" {
		return goerr.New("source URL is required", goerr.T(types.ErrTagInvalidRequest))
	}

	u, err := url.Parse(r.SourceURL)
	if err != nil {
		return goerr.Wrap(err, "malformed source URL",
			goerr.T(types.ErrTagInvalidRequest),
			goerr.V("url", r.SourceURL),
		)
	}
	if u.Scheme == "" || u.Host == "" {
		return goerr.New("source URL must be absolute",
			goerr.T(types.ErrTagInvalidRequest),
			goerr.V("url", r.SourceURL),
		)
	}

	if r.Destination == "" {
		return goerr.New("destination directory is required", goerr.T(types.ErrTagInvalidRequest))
	}

	return nil
}

// Scheme returns the URL scheme of the source, or "" if it cannot be parsed
func (r *FetchRequest) Scheme() string {
	u, err := url.Parse(r.SourceURL)
	if err != nil {
		return ""
	}
	return u.Scheme
}

// TransferProgress tracks bytes received during a body transfer
type TransferProgress struct {
	BytesTransferred int64 `json:"bytes_transferred"`
	TotalBytes       int64 `json:"total_bytes"` // SizeUnknown if not known
}

// NewTransferProgress starts a progress counter. Non-positive totals are
// treated as unknown.
func NewTransferProgress(total int64) TransferProgress {
	if total <= 0 {
		total = SizeUnknown
	}
	return TransferProgress{TotalBytes: total}
}

// TotalKnown reports whether the resource size is known
func (p TransferProgress) TotalKnown() bool {
	return p.TotalBytes > 0
}

// Advance adds n received bytes. When the count passes a known total, the
// total is no longer trustworthy and becomes unknown.
func (p *TransferProgress) Advance(n int64) {
	p.BytesTransferred += n
	if p.TotalKnown() && p.BytesTransferred > p.TotalBytes {
		p.TotalBytes = SizeUnknown
	}
}

// Percent returns the completion ratio in percent, or -1 if the total is unknown
func (p TransferProgress) Percent() float64 {
	if !p.TotalKnown() {
		return -1
	}
	return float64(p.BytesTransferred) * 100 / float64(p.TotalBytes)
}

// ExtractionResult is returned by a completed fetch
type ExtractionResult struct {
	Destination string           // Directory the archive was extracted into
	Entries     []string         // Entry names in archive order
	Skipped     bool             // True if the skip guard short-circuited the fetch
	Progress    TransferProgress // Final transfer counters
}
