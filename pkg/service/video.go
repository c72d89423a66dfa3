package service

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	vherr "github.com/vidhive/vidhive-server/pkg/errors"

	"github.com/vidhive/vidhive-server/pkg/media"
	"github.com/vidhive/vidhive-server/pkg/models"
	"github.com/vidhive/vidhive-server/pkg/store"
)

// VideoStore is the slice of the video store this service uses.
type VideoStore interface {
	Create(ctx context.Context, v *models.Video) error
	FindBySeq(ctx context.Context, seq int64) (*models.Video, error)
	FindPublishedBySeq(ctx context.Context, seq int64) (*models.Video, error)
	ListPublished(ctx context.Context, page store.Page) ([]*models.Video, error)
	ListByMember(ctx context.Context, memberID string, page store.Page) ([]*models.Video, error)
	UpdateMetadata(ctx context.Context, seq int64, title, content string) error
	UpdateVideoPath(ctx context.Context, seq int64, path string) error
	UpdateThumbnailPath(ctx context.Context, seq int64, path string) error
	SetPublished(ctx context.Context, seq int64, published bool) error
	SoftDelete(ctx context.Context, seq int64) error
}

// VideoMemberStore resolves the acting member when a video is created.
type VideoMemberStore interface {
	FindByMemberID(ctx context.Context, memberID string) (*models.Member, error)
}

// VideoMetadata carries a video's title and description.
type VideoMetadata struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// VideoService implements the video lifecycle: upload, listing,
// metadata and file updates, publish toggling, and soft deletion.
//
// Ownership is decided by the access policy before any of these run;
// the owner-scoped methods therefore treat a missing row as their
// only remaining failure mode.
type VideoService struct {
	videos  VideoStore
	members VideoMemberStore
	media   media.Store
	tracer  trace.Tracer
	logger  *slog.Logger
}

// NewVideoService creates a VideoService.
func NewVideoService(videos VideoStore, members VideoMemberStore, mediaStore media.Store) *VideoService {
	return &VideoService{
		videos:  videos,
		members: members,
		media:   mediaStore,
		tracer:  tracer(),
		logger:  slog.Default().With("component", "service.video"),
	}
}

// ListPublished returns one page of videos visible to everyone.
func (s *VideoService) ListPublished(ctx context.Context, page store.Page) ([]*models.Video, error) {
	return s.videos.ListPublished(ctx, page)
}

// GetPublished returns a published video. Drafts, deleted videos, and
// unknown ids all report [vherr.CodeNotFoundVideo].
func (s *VideoService) GetPublished(ctx context.Context, seq int64) (*models.Video, error) {
	return s.videos.FindPublishedBySeq(ctx, seq)
}

// ListMine returns one page of the member's own videos, drafts
// included.
func (s *VideoService) ListMine(ctx context.Context, memberID string, page store.Page) ([]*models.Video, error) {
	return s.videos.ListByMember(ctx, memberID, page)
}

// GetMine returns one of the member's own videos regardless of its
// published flag.
func (s *VideoService) GetMine(ctx context.Context, seq int64) (*models.Video, error) {
	return s.videos.FindBySeq(ctx, seq)
}

// Upload stores the video file and optional thumbnail, then creates
// the unpublished video row. Files stored before a later failure are
// removed again.
func (s *VideoService) Upload(ctx context.Context, memberID string, meta VideoMetadata, videoFile *File, thumbnailFile *File) (*models.Video, error) {
	ctx, span := s.tracer.Start(ctx, "VideoService.Upload",
		trace.WithAttributes(memberAttr(memberID)))
	var err error
	defer func() { finishSpan(span, err) }()

	if videoFile == nil {
		err = vherr.New(vherr.CodeValidationRequired, "service: video file is required")
		return nil, err
	}

	member, err := s.members.FindByMemberID(ctx, memberID)
	if err != nil {
		return nil, err
	}

	videoResult, err := s.media.Upload(ctx, media.ClassVideo,
		videoFile.Name, videoFile.Reader, videoFile.Size, videoFile.ContentType)
	if err != nil {
		return nil, err
	}

	thumbnailPath := ""
	if thumbnailFile != nil {
		thumbResult, uploadErr := s.media.Upload(ctx, media.ClassThumbnail,
			thumbnailFile.Name, thumbnailFile.Reader, thumbnailFile.Size, thumbnailFile.ContentType)
		if uploadErr != nil {
			err = uploadErr
			s.discardUpload(ctx, videoResult.Path)
			return nil, err
		}
		thumbnailPath = thumbResult.Path
	}

	v, err := models.NewVideo(member.Seq, member.MemberID,
		videoResult.Path, thumbnailPath, meta.Title, meta.Content)
	if err != nil {
		s.discardUpload(ctx, videoResult.Path)
		s.discardUpload(ctx, thumbnailPath)
		return nil, err
	}

	if err = s.videos.Create(ctx, v); err != nil {
		s.discardUpload(ctx, videoResult.Path)
		s.discardUpload(ctx, thumbnailPath)
		return nil, err
	}

	s.logger.InfoContext(ctx, "video uploaded",
		"member_id", memberID, "seq", v.Seq, "path", v.VideoPath)
	return v, nil
}

// Update changes the video's metadata and optionally replaces its
// file or thumbnail. Replaced files are deleted after their successor
// is stored.
func (s *VideoService) Update(ctx context.Context, seq int64, meta VideoMetadata, videoFile *File, thumbnailFile *File) error {
	ctx, span := s.tracer.Start(ctx, "VideoService.Update",
		trace.WithAttributes(attribute.Int64("vidhive.video_seq", seq)))
	var err error
	defer func() { finishSpan(span, err) }()

	current, err := s.videos.FindBySeq(ctx, seq)
	if err != nil {
		return err
	}

	if videoFile != nil {
		result, uploadErr := s.media.Upload(ctx, media.ClassVideo,
			videoFile.Name, videoFile.Reader, videoFile.Size, videoFile.ContentType)
		if uploadErr != nil {
			err = uploadErr
			return err
		}
		if err = s.videos.UpdateVideoPath(ctx, seq, result.Path); err != nil {
			s.discardUpload(ctx, result.Path)
			return err
		}
		s.discardUpload(ctx, current.VideoPath)
	}

	if thumbnailFile != nil {
		result, uploadErr := s.media.Upload(ctx, media.ClassThumbnail,
			thumbnailFile.Name, thumbnailFile.Reader, thumbnailFile.Size, thumbnailFile.ContentType)
		if uploadErr != nil {
			err = uploadErr
			return err
		}
		if err = s.videos.UpdateThumbnailPath(ctx, seq, result.Path); err != nil {
			s.discardUpload(ctx, result.Path)
			return err
		}
		s.discardUpload(ctx, current.ThumbnailPath)
	}

	if err = s.videos.UpdateMetadata(ctx, seq, meta.Title, meta.Content); err != nil {
		return err
	}
	return nil
}

// SetPublished toggles the published flag.
func (s *VideoService) SetPublished(ctx context.Context, seq int64, published bool) error {
	return s.videos.SetPublished(ctx, seq, published)
}

// Delete soft-deletes the video. Its files stay in storage for the
// reaper; the row disappears from every surface immediately.
func (s *VideoService) Delete(ctx context.Context, seq int64) error {
	ctx, span := s.tracer.Start(ctx, "VideoService.Delete",
		trace.WithAttributes(attribute.Int64("vidhive.video_seq", seq)))
	var err error
	defer func() { finishSpan(span, err) }()

	if err = s.videos.SoftDelete(ctx, seq); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "video deleted", "seq", seq)
	return nil
}

func (s *VideoService) discardUpload(ctx context.Context, path string) {
	if path == "" {
		return
	}
	if err := s.media.Delete(ctx, path); err != nil {
		s.logger.WarnContext(ctx, "failed to remove orphaned upload",
			"path", path, "error", err)
	}
}
