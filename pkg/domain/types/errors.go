package types

import "github.com/m-mizutani/goerr/v2"

// Error classification tags. Every error returned by the fetcher carries
// exactly one of them so that callers can tell the failure kinds apart.
var (
	// ErrTagNetwork marks failures of the metadata probe or the body transfer,
	// including non-success HTTP status codes.
	ErrTagNetwork = goerr.NewTag("network")
	// ErrTagCorruptArchive marks downloaded bytes that are not a readable ZIP archive.
	ErrTagCorruptArchive = goerr.NewTag("corrupt_archive")
	// ErrTagFilesystem marks OS level I/O failures on the local side.
	ErrTagFilesystem = goerr.NewTag("filesystem")
	// ErrTagInvalidRequest marks requests rejected before any side effect.
	ErrTagInvalidRequest = goerr.NewTag("invalid_request")
)

// ErrorKind values as reported in FetchJob.ErrorKind
const (
	ErrorKindNetwork        = "network"
	ErrorKindCorruptArchive = "corrupt_archive"
	ErrorKindFilesystem     = "filesystem"
	ErrorKindInvalidRequest = "invalid_request"
	ErrorKindUnknown        = "unknown"
)

// IsNetworkError reports whether err is classified as a network failure
func IsNetworkError(err error) bool {
	return goerr.HasTag(err, ErrTagNetwork)
}

// IsCorruptArchiveError reports whether err is classified as a corrupt archive
func IsCorruptArchiveError(err error) bool {
	return goerr.HasTag(err, ErrTagCorruptArchive)
}

// IsFilesystemError reports whether err is classified as a local filesystem failure
func IsFilesystemError(err error) bool {
	return goerr.HasTag(err, ErrTagFilesystem)
}

// IsInvalidRequestError reports whether err was caused by a malformed request
func IsInvalidRequestError(err error) bool {
	return goerr.HasTag(err, ErrTagInvalidRequest)
}

// ErrorKind returns the classification name of err, or ErrorKindUnknown
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case IsInvalidRequestError(err):
		return ErrorKindInvalidRequest
	case IsNetworkError(err):
		return ErrorKindNetwork
	case IsCorruptArchiveError(err):
		return ErrorKindCorruptArchive
	case IsFilesystemError(err):
		return ErrorKindFilesystem
	default:
		return ErrorKindUnknown
	}
}
