package media

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	vherr "github.com/vidhive/vidhive-server/pkg/errors"
)

// DiskStore stores media beneath a base directory. It serves
// single-node deployments and tests; the object store is the
// production choice.
type DiskStore struct {
	baseDir string
	config  Config
	logger  *slog.Logger
}

// NewDiskStore creates a DiskStore rooted at baseDir. The directory
// is created if missing.
func NewDiskStore(baseDir string, config Config) (*DiskStore, error) {
	if baseDir == "" {
		return nil, vherr.New(vherr.CodeValidationRequired, "media: base directory is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, vherr.Wrap(err, vherr.CodeInternalStorage, "media: failed to create base directory")
	}
	return &DiskStore{
		baseDir: baseDir,
		config:  config,
		logger:  slog.Default().With("component", "media.disk"),
	}, nil
}

var _ Store = (*DiskStore)(nil)

// Upload implements [Store].
func (s *DiskStore) Upload(ctx context.Context, class Class, filename string, reader io.Reader, size int64, contentType string) (*UploadResult, error) {
	ext, err := s.config.validate(class, filename, size)
	if err != nil {
		return nil, err
	}

	dest := storagePath(class, ext)
	fullPath := filepath.Join(s.baseDir, filepath.FromSlash(dest))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return nil, vherr.Wrap(err, vherr.CodeInternalStorage, "media: failed to create class directory")
	}

	f, err := os.OpenFile(fullPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, vherr.Wrap(err, vherr.CodeInternalStorage, "media: failed to create file")
	}

	written, err := io.Copy(f, reader)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(fullPath)
		return nil, vherr.Wrap(err, vherr.CodeInternalStorage, "media: failed to write file")
	}

	s.logger.InfoContext(ctx, "media uploaded",
		"class", string(class), "path", dest, "size", written)
	return &UploadResult{
		Path:         dest,
		OriginalName: filename,
		Size:         written,
		ContentType:  contentType,
	}, nil
}

// Delete implements [Store]. A path that is already gone succeeds.
func (s *DiskStore) Delete(ctx context.Context, storagePath string) error {
	if !validStoragePath(storagePath) {
		return vherr.Newf(vherr.CodeValidation, "media: invalid storage path %q", storagePath)
	}

	fullPath := filepath.Join(s.baseDir, filepath.FromSlash(storagePath))
	if err := os.Remove(fullPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return vherr.Wrap(err, vherr.CodeInternalStorage, "media: failed to delete file")
	}

	s.logger.InfoContext(ctx, "media deleted", "path", storagePath)
	return nil
}
