// Package media stores uploaded files: profile images, videos, and
// thumbnails.
//
// Each upload belongs to a [Class] that carries its own size limit and
// extension allowlist. Files are stored under a per-class prefix with
// a generated name, so the original filename only ever influences the
// extension. The returned path ("videos/<uuid>.mp4") is what the
// stores persist and what [Store.Delete] later takes.
//
// Two implementations exist: [ObjectStore] over the MinIO client for
// production, and [DiskStore] beneath a local directory for
// single-node runs and tests.
package media

import (
	"context"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"

	vherr "github.com/vidhive/vidhive-server/pkg/errors"
)

// Class is a category of uploaded file with its own limits.
type Class string

const (
	// ClassProfile is a member profile image.
	ClassProfile Class = "profile"

	// ClassVideo is a video file.
	ClassVideo Class = "video"

	// ClassThumbnail is a video thumbnail image.
	ClassThumbnail Class = "thumbnail"
)

// prefix is the storage directory for the class.
func (c Class) prefix() string {
	switch c {
	case ClassProfile:
		return "profiles"
	case ClassVideo:
		return "videos"
	case ClassThumbnail:
		return "thumbnails"
	default:
		return "misc"
	}
}

// Default per-class limits.
const (
	// DefaultProfileMaxSize is the profile image size limit.
	DefaultProfileMaxSize = 5 << 20

	// DefaultVideoMaxSize is the video file size limit.
	DefaultVideoMaxSize = 200 << 20

	// DefaultThumbnailMaxSize is the thumbnail size limit.
	DefaultThumbnailMaxSize = 2 << 20
)

// Limits bounds one class of upload. Extensions are compared without
// the dot, case-insensitively.
type Limits struct {
	// MaxSize is the maximum file size in bytes.
	MaxSize int64 `env:"MAX_SIZE" json:"max_size" yaml:"max_size"`

	// Extensions is the allowed extension list.
	Extensions []string `env:"EXTENSIONS" json:"extensions" yaml:"extensions"`
}

// Config holds the per-class limits.
type Config struct {
	Profile   Limits `env:"PROFILE" json:"profile" yaml:"profile"`
	Video     Limits `env:"VIDEO" json:"video" yaml:"video"`
	Thumbnail Limits `env:"THUMBNAIL" json:"thumbnail" yaml:"thumbnail"`
}

// DefaultConfig returns the default limits per class.
func DefaultConfig() Config {
	return Config{
		Profile: Limits{
			MaxSize:    DefaultProfileMaxSize,
			Extensions: []string{"jpg", "jpeg", "png", "gif"},
		},
		Video: Limits{
			MaxSize:    DefaultVideoMaxSize,
			Extensions: []string{"mp4", "mov", "avi", "webm"},
		},
		Thumbnail: Limits{
			MaxSize:    DefaultThumbnailMaxSize,
			Extensions: []string{"jpg", "jpeg", "png"},
		},
	}
}

func (c Config) limitsFor(class Class) Limits {
	switch class {
	case ClassProfile:
		return c.Profile
	case ClassVideo:
		return c.Video
	case ClassThumbnail:
		return c.Thumbnail
	default:
		return Limits{}
	}
}

// UploadResult describes a stored file.
type UploadResult struct {
	// Path is the storage path, prefix included, e.g.
	// "videos/3f2a....mp4". Stores persist it and Delete takes it.
	Path string `json:"path"`

	// OriginalName is the filename the client sent.
	OriginalName string `json:"originalName"`

	// Size is the stored size in bytes.
	Size int64 `json:"size"`

	// ContentType is the MIME type recorded at upload.
	ContentType string `json:"contentType"`
}

// Store uploads and deletes media files.
type Store interface {
	// Upload validates the file against its class limits and stores
	// it. Validation failures carry [vherr.CodeValidationFileSize] or
	// [vherr.CodeValidationFileType].
	Upload(ctx context.Context, class Class, filename string, reader io.Reader, size int64, contentType string) (*UploadResult, error)

	// Delete removes a previously uploaded file by its result path.
	// Deleting a path that is already gone is not an error.
	Delete(ctx context.Context, storagePath string) error
}

// validate checks the upload against its class limits and returns the
// normalized extension (without dot) on success.
func (c Config) validate(class Class, filename string, size int64) (string, error) {
	if filename == "" || size == 0 {
		return "", vherr.Newf(vherr.CodeValidationRequired, "media: %s file is empty", class)
	}

	limits := c.limitsFor(class)
	if limits.MaxSize > 0 && size > limits.MaxSize {
		return "", vherr.Newf(vherr.CodeValidationFileSize,
			"media: %s file exceeds the %d byte limit", class, limits.MaxSize)
	}

	ext := strings.ToLower(strings.TrimPrefix(path.Ext(filename), "."))
	for _, allowed := range limits.Extensions {
		if ext == strings.ToLower(allowed) {
			return ext, nil
		}
	}
	return "", vherr.Newf(vherr.CodeValidationFileType,
		"media: %s extension %q is not allowed (allowed: %s)",
		class, ext, strings.Join(limits.Extensions, ","))
}

// storagePath builds the destination path for a validated upload.
func storagePath(class Class, ext string) string {
	return class.prefix() + "/" + uuid.NewString() + "." + ext
}
