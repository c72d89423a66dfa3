package media

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/minio/minio-go/v7"

	vherr "github.com/vidhive/vidhive-server/pkg/errors"
)

// ObjectClient is the slice of the MinIO client the object store
// uses. pkg/clients/minio.Client satisfies it.
type ObjectClient interface {
	Bucket() string
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
}

// ObjectStore stores media in the configured MinIO bucket. Object
// keys are the storage paths, so "videos/<uuid>.mp4" is both the path
// the database records and the key in the bucket.
type ObjectStore struct {
	client ObjectClient
	config Config
	logger *slog.Logger
}

// NewObjectStore creates an ObjectStore over the given client.
func NewObjectStore(client ObjectClient, config Config) *ObjectStore {
	return &ObjectStore{
		client: client,
		config: config,
		logger: slog.Default().With("component", "media.object"),
	}
}

var _ Store = (*ObjectStore)(nil)

// Upload implements [Store].
func (s *ObjectStore) Upload(ctx context.Context, class Class, filename string, reader io.Reader, size int64, contentType string) (*UploadResult, error) {
	ext, err := s.config.validate(class, filename, size)
	if err != nil {
		return nil, err
	}

	dest := storagePath(class, ext)
	_, err = s.client.PutObject(ctx, s.client.Bucket(), dest, reader, size,
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "media uploaded",
		"class", string(class), "path", dest, "size", size)
	return &UploadResult{
		Path:         dest,
		OriginalName: filename,
		Size:         size,
		ContentType:  contentType,
	}, nil
}

// Delete implements [Store]. Object removal is idempotent on the
// bucket side, so deleting an already reaped path succeeds.
func (s *ObjectStore) Delete(ctx context.Context, storagePath string) error {
	if !validStoragePath(storagePath) {
		return vherr.Newf(vherr.CodeValidation, "media: invalid storage path %q", storagePath)
	}

	err := s.client.RemoveObject(ctx, s.client.Bucket(), storagePath,
		minio.RemoveObjectOptions{})
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "media deleted", "path", storagePath)
	return nil
}

// validStoragePath accepts only paths this package could have
// produced: a known prefix, one slash, no traversal.
func validStoragePath(p string) bool {
	if p == "" || strings.Contains(p, "..") {
		return false
	}
	prefix, rest, ok := strings.Cut(p, "/")
	if !ok || rest == "" || strings.Contains(rest, "/") {
		return false
	}
	switch prefix {
	case "profiles", "videos", "thumbnails":
		return true
	default:
		return false
	}
}
