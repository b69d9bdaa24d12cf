package usecase

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"
	"github.com/leoric/kbai/pkg/domain/interfaces"
	"github.com/leoric/kbai/pkg/domain/model"
	"github.com/leoric/kbai/pkg/domain/types"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
)

const (
	// DefaultChunkSize is the read size of the body transfer loop
	DefaultChunkSize = 16 * 1024

	stagingPattern = "kbai-fetch-*.zip"
)

// Phases reported in the "phase" value of fetch errors
const (
	PhasePrepare  = "prepare"
	PhaseProbe    = "probe"
	PhaseTransfer = "transfer"
	PhaseExtract  = "extract"
)

type fetcher struct {
	sources   map[string]interfaces.Source
	tempDir   string
	chunkSize int
}

// FetcherOption configures the fetcher
type FetcherOption func(*fetcher)

// WithSource registers src for the given URL schemes
func WithSource(src interfaces.Source, schemes ...string) FetcherOption {
	return func(f *fetcher) {
		for _, scheme := range schemes {
			f.sources[strings.ToLower(scheme)] = src
		}
	}
}

// WithTempDir sets the directory of staging files. Default is os.TempDir().
func WithTempDir(dir string) FetcherOption {
	return func(f *fetcher) {
		f.tempDir = dir
	}
}

// WithChunkSize sets the read size of the transfer loop
func WithChunkSize(size int) FetcherOption {
	return func(f *fetcher) {
		if size > 0 {
			f.chunkSize = size
		}
	}
}

// NewFetcher creates a FetchUseCase. At least one Source must be registered
// with WithSource, otherwise every URL is rejected.
func NewFetcher(opts ...FetcherOption) interfaces.FetchUseCase {
	f := &fetcher{
		sources:   map[string]interfaces.Source{},
		chunkSize: DefaultChunkSize,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch downloads req.SourceURL into a staging file, extracts it into
// req.Destination and returns the entry names in archive order.
//
// If req.SkipIfNotEmpty is set and the destination already has an entry, Fetch
// returns a result with Skipped set and touches neither network nor disk.
// The staging file is removed on every return path. A failure to remove it is
// logged and not returned. Files already extracted before a failure are left
// in place.
func (uc *fetcher) Fetch(ctx context.Context, req *model.FetchRequest, sink interfaces.ProgressSink) (*model.ExtractionResult, error) {
	logger := ctxlog.From(ctx)

	if sink == nil {
		sink = nopSink{}
	}

	if err := req.Validate(); err != nil {
		return nil, err
	}
	src, ok := uc.sources[strings.ToLower(req.Scheme())]
	if !ok {
		return nil, goerr.New("unsupported URL scheme",
			goerr.T(types.ErrTagInvalidRequest),
			goerr.V("url", req.SourceURL),
		)
	}
	if v, ok := src.(interfaces.URLValidator); ok {
		if err := v.ValidateURL(req.SourceURL); err != nil {
			return nil, err
		}
	}

	if req.SkipIfNotEmpty {
		notEmpty, err := dirHasEntries(req.Destination)
		if err != nil {
			return nil, err
		}
		if notEmpty {
			logger.Warn("Destination is not empty, skipping download and extraction",
				"destination", req.Destination,
			)
			return &model.ExtractionResult{
				Destination: req.Destination,
				Skipped:     true,
				Progress:    model.NewTransferProgress(model.SizeUnknown),
			}, nil
		}
	}

	if err := os.MkdirAll(req.Destination, 0755); err != nil {
		return nil, goerr.Wrap(err, "failed to create destination directory",
			goerr.T(types.ErrTagFilesystem),
			goerr.V("phase", PhasePrepare),
			goerr.V("path", req.Destination),
		)
	}

	total := uc.probe(ctx, src, req.SourceURL)

	logger.Info("Start downloading", "url", req.SourceURL)
	body, size, err := src.Open(ctx, req.SourceURL)
	if err != nil {
		if types.IsInvalidRequestError(err) {
			return nil, err
		}
		return nil, goerr.Wrap(err, "failed to download archive",
			goerr.T(types.ErrTagNetwork),
			goerr.V("phase", PhaseTransfer),
			goerr.V("url", req.SourceURL),
		)
	}
	defer func() {
		if err := body.Close(); err != nil {
			logger.Debug("Failed to close response body", "error", err)
		}
	}()
	if total <= 0 && size > 0 {
		total = size
	}

	staging, err := os.CreateTemp(uc.tempDir, stagingPattern)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create staging file",
			goerr.T(types.ErrTagFilesystem),
			goerr.V("phase", PhaseTransfer),
			goerr.V("temp_dir", uc.tempDir),
		)
	}
	stagingPath := staging.Name()
	defer removeStaging(ctx, stagingPath)

	progress, err := uc.transfer(ctx, body, staging, total, sink)
	if closeErr := staging.Close(); closeErr != nil && err == nil {
		err = goerr.Wrap(closeErr, "failed to close staging file",
			goerr.T(types.ErrTagFilesystem),
			goerr.V("phase", PhaseTransfer),
			goerr.V("path", stagingPath),
		)
	}
	if err != nil {
		return nil, err
	}

	logger.Info("Download completed",
		"url", req.SourceURL,
		"bytes", progress.BytesTransferred,
	)

	logger.Info("Start extracting archive", "destination", req.Destination)
	entries, err := extractZip(ctx, stagingPath, req.Destination)
	if err != nil {
		return nil, err
	}

	logger.Info("Extracted archive",
		"destination", req.Destination,
		"entry_count", len(entries),
	)

	return &model.ExtractionResult{
		Destination: req.Destination,
		Entries:     entries,
		Progress:    progress,
	}, nil
}

// probe asks the source for the resource size. Any failure means unknown
// size; a server without HEAD support is not told apart from one that does
// not send a size.
func (uc *fetcher) probe(ctx context.Context, src interfaces.Source, url string) int64 {
	size, err := src.Probe(ctx, url)
	if err != nil {
		ctxlog.From(ctx).Debug("Size probe failed, size is unknown",
			"url", url,
			"error", err,
		)
		return model.SizeUnknown
	}
	if size <= 0 {
		return model.SizeUnknown
	}
	return size
}

func (uc *fetcher) transfer(ctx context.Context, body io.Reader, out io.Writer, total int64, sink interfaces.ProgressSink) (model.TransferProgress, error) {
	progress := model.NewTransferProgress(total)
	sink.Start(progress.TotalBytes)
	defer sink.Finish()

	buf := make([]byte, uc.chunkSize)
	for {
		if err := ctx.Err(); err != nil {
			return progress, goerr.Wrap(err, "transfer aborted",
				goerr.T(types.ErrTagNetwork),
				goerr.V("phase", PhaseTransfer),
				goerr.V("bytes_transferred", progress.BytesTransferred),
			)
		}

		n, readErr := body.Read(buf)
		if n > 0 {
			if _, err := out.Write(buf[:n]); err != nil {
				return progress, goerr.Wrap(err, "failed to write staging file",
					goerr.T(types.ErrTagFilesystem),
					goerr.V("phase", PhaseTransfer),
					goerr.V("bytes_transferred", progress.BytesTransferred),
				)
			}
			progress.Advance(int64(n))
			sink.Advance(int64(n))
		}

		if readErr == io.EOF {
			return progress, nil
		}
		if readErr != nil {
			return progress, goerr.Wrap(readErr, "failed to read response body",
				goerr.T(types.ErrTagNetwork),
				goerr.V("phase", PhaseTransfer),
				goerr.V("bytes_transferred", progress.BytesTransferred),
			)
		}
	}
}

// extractZip extracts every entry of the archive at path into destDir
func extractZip(ctx context.Context, path, destDir string) ([]string, error) {
	reader, err := zip.OpenReader(path)
	if err != nil {
		if isZipFormatError(err) {
			return nil, goerr.Wrap(err, "archive is corrupted or not a ZIP file",
				goerr.T(types.ErrTagCorruptArchive),
				goerr.V("phase", PhaseExtract),
			)
		}
		return nil, goerr.Wrap(err, "failed to open archive",
			goerr.T(types.ErrTagFilesystem),
			goerr.V("phase", PhaseExtract),
			goerr.V("path", path),
		)
	}
	defer func() {
		if err := reader.Close(); err != nil {
			ctxlog.From(ctx).Debug("Failed to close archive", "error", err)
		}
	}()

	root, err := filepath.Abs(destDir)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to resolve destination directory",
			goerr.T(types.ErrTagFilesystem),
			goerr.V("phase", PhaseExtract),
			goerr.V("path", destDir),
		)
	}

	entries := make([]string, 0, len(reader.File))
	for _, file := range reader.File {
		if err := extractFile(file, root); err != nil {
			return nil, err
		}
		entries = append(entries, file.Name)
	}

	return entries, nil
}

// extractFile extracts a single entry into root, an absolute directory
func extractFile(file *zip.File, root string) error {
	destPath, ok := entryPath(root, file.Name)
	if !ok {
		return goerr.New("unsafe entry path in archive",
			goerr.T(types.ErrTagCorruptArchive),
			goerr.V("phase", PhaseExtract),
			goerr.V("entry", file.Name),
		)
	}

	if file.FileInfo().IsDir() {
		if err := os.MkdirAll(destPath, 0755); err != nil {
			return goerr.Wrap(err, "failed to create directory",
				goerr.T(types.ErrTagFilesystem),
				goerr.V("phase", PhaseExtract),
				goerr.V("path", destPath),
			)
		}
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return goerr.Wrap(err, "failed to create parent directories",
			goerr.T(types.ErrTagFilesystem),
			goerr.V("phase", PhaseExtract),
			goerr.V("path", filepath.Dir(destPath)),
		)
	}

	rc, err := file.Open()
	if err != nil {
		return goerr.Wrap(err, "failed to open entry",
			goerr.T(types.ErrTagCorruptArchive),
			goerr.V("phase", PhaseExtract),
			goerr.V("entry", file.Name),
		)
	}
	defer rc.Close()

	mode := file.Mode().Perm()
	if mode == 0 {
		mode = 0644
	}
	destFile, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return goerr.Wrap(err, "failed to create destination file",
			goerr.T(types.ErrTagFilesystem),
			goerr.V("phase", PhaseExtract),
			goerr.V("path", destPath),
		)
	}
	defer destFile.Close()

	w := &trackedWriter{w: destFile}
	if _, err := io.Copy(w, rc); err != nil {
		if w.err != nil {
			return goerr.Wrap(err, "failed to write destination file",
				goerr.T(types.ErrTagFilesystem),
				goerr.V("phase", PhaseExtract),
				goerr.V("path", destPath),
			)
		}
		return goerr.Wrap(err, "failed to decompress entry",
			goerr.T(types.ErrTagCorruptArchive),
			goerr.V("phase", PhaseExtract),
			goerr.V("entry", file.Name),
		)
	}

	if err := destFile.Close(); err != nil {
		return goerr.Wrap(err, "failed to close destination file",
			goerr.T(types.ErrTagFilesystem),
			goerr.V("phase", PhaseExtract),
			goerr.V("path", destPath),
		)
	}

	return nil
}

// entryPath returns where name is extracted under root. ok is false when the
// entry is absolute or resolves outside of root.
func entryPath(root, name string) (string, bool) {
	if filepath.IsAbs(name) || strings.HasPrefix(name, "/") || strings.HasPrefix(name, `\`) {
		return "", false
	}

	destPath := filepath.Join(root, name)
	rel, err := filepath.Rel(root, destPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return "", false
	}
	return destPath, true
}

// dirHasEntries reports whether dir exists and contains at least one entry
func dirHasEntries(dir string) (bool, error) {
	f, err := os.Open(dir)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, goerr.Wrap(err, "failed to open destination directory",
			goerr.T(types.ErrTagFilesystem),
			goerr.V("phase", PhasePrepare),
			goerr.V("path", dir),
		)
	}
	defer f.Close()

	names, err := f.Readdirnames(1)
	if errors.Is(err, io.EOF) {
		return false, nil
	}
	if err != nil {
		return false, goerr.Wrap(err, "failed to read destination directory",
			goerr.T(types.ErrTagFilesystem),
			goerr.V("phase", PhasePrepare),
			goerr.V("path", dir),
		)
	}
	return len(names) > 0, nil
}

// removeStaging deletes the staging file. Failure is logged only.
func removeStaging(ctx context.Context, path string) {
	logger := ctxlog.From(ctx)

	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("Failed to remove staging file",
			"path", path,
			"error", err,
		)
		return
	}
	logger.Debug("Removed staging file", "path", path)
}

func isZipFormatError(err error) bool {
	return errors.Is(err, zip.ErrFormat) ||
		errors.Is(err, zip.ErrAlgorithm) ||
		errors.Is(err, zip.ErrChecksum) ||
		errors.Is(err, io.ErrUnexpectedEOF)
}

type trackedWriter struct {
	w   io.Writer
	err error
}

func (x *trackedWriter) Write(p []byte) (int, error) {
	n, err := x.w.Write(p)
	if err != nil {
		x.err = err
	}
	return n, err
}

type nopSink struct{}

func (nopSink) Start(int64)   {}
func (nopSink) Advance(int64) {}
func (nopSink) Finish()       {}
