package service

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/vidhive/vidhive-server/pkg/media"
)

// recordingMedia is a media.Store that records every upload and
// delete, for asserting the compensation paths. uploadErr fails every
// upload; failOn fails only the nth one, counted from 1.
type recordingMedia struct {
	uploadErr error
	failOn    int
	uploads   []string
	deleted   []string
	seq       int
	calls     int
}

func newRecordingMedia() *recordingMedia {
	return &recordingMedia{}
}

var _ media.Store = (*recordingMedia)(nil)

func (r *recordingMedia) Upload(ctx context.Context, class media.Class, filename string, reader io.Reader, size int64, contentType string) (*media.UploadResult, error) {
	r.calls++
	if r.uploadErr != nil {
		return nil, r.uploadErr
	}
	if r.failOn != 0 && r.calls == r.failOn {
		return nil, fmt.Errorf("media: upload %d failed", r.calls)
	}
	if _, err := io.Copy(io.Discard, reader); err != nil {
		return nil, err
	}
	r.seq++
	path := fmt.Sprintf("%ss/upload-%d%s", class, r.seq, strings.ToLower(filepath.Ext(filename)))
	r.uploads = append(r.uploads, path)
	return &media.UploadResult{
		Path:         path,
		OriginalName: filename,
		Size:         size,
		ContentType:  contentType,
	}, nil
}

func (r *recordingMedia) Delete(ctx context.Context, storagePath string) error {
	r.deleted = append(r.deleted, storagePath)
	return nil
}
