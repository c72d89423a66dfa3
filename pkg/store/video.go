package store

import (
	"context"
	"time"

	vherr "github.com/vidhive/vidhive-server/pkg/errors"

	"github.com/vidhive/vidhive-server/pkg/clients/postgres"
	"github.com/vidhive/vidhive-server/pkg/models"
)

const videoColumns = `seq, member_seq, member_id, video_path, thumbnail_path,
	title, content, published, deleted, created_at, updated_at`

// VideoStore persists videos. Soft-deleted rows are invisible to
// every lookup and listing; only their files outlive them until the
// reaper runs.
type VideoStore struct {
	db *postgres.Client
}

// NewVideoStore creates a VideoStore over the given client.
func NewVideoStore(db *postgres.Client) *VideoStore {
	return &VideoStore{db: db}
}

func videoFromRow(row rowScanner) (*models.Video, error) {
	var v models.Video
	err := row.Scan(&v.Seq, &v.MemberSeq, &v.MemberID, &v.VideoPath,
		&v.ThumbnailPath, &v.Title, &v.Content, &v.Published,
		&v.Deleted, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// Create inserts the video and fills in its Seq.
func (s *VideoStore) Create(ctx context.Context, v *models.Video) error {
	if err := v.Validate(); err != nil {
		return err
	}

	row := s.db.QueryRow(ctx, `
		INSERT INTO videos (member_seq, member_id, video_path, thumbnail_path,
			title, content, published, deleted, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, FALSE, $8, $9)
		RETURNING seq`,
		v.MemberSeq, v.MemberID, v.VideoPath, v.ThumbnailPath,
		v.Title, v.Content, v.Published, v.CreatedAt, v.UpdatedAt)
	if err := row.Scan(&v.Seq); err != nil {
		return scanError(err, vherr.CodeNotFoundVideo, "store: create video")
	}
	return nil
}

// FindBySeq returns the video with the given id regardless of its
// published flag. Soft-deleted videos are not found.
func (s *VideoStore) FindBySeq(ctx context.Context, seq int64) (*models.Video, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+videoColumns+` FROM videos WHERE seq = $1 AND NOT deleted`, seq)
	v, err := videoFromRow(row)
	if err != nil {
		return nil, scanError(err, vherr.CodeNotFoundVideo, "store: video by seq")
	}
	return v, nil
}

// FindPublishedBySeq returns the video only when it is published. An
// unpublished or deleted video is reported not found so public
// surfaces cannot probe for drafts.
func (s *VideoStore) FindPublishedBySeq(ctx context.Context, seq int64) (*models.Video, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+videoColumns+` FROM videos
		WHERE seq = $1 AND published AND NOT deleted`, seq)
	v, err := videoFromRow(row)
	if err != nil {
		return nil, scanError(err, vherr.CodeNotFoundVideo, "store: published video by seq")
	}
	return v, nil
}

// ListPublished returns one page of published videos, newest first.
func (s *VideoStore) ListPublished(ctx context.Context, page Page) ([]*models.Video, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+videoColumns+` FROM videos
		WHERE published AND NOT deleted
		ORDER BY created_at DESC, seq DESC
		LIMIT $1 OFFSET $2`,
		page.Limit(), page.Offset())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectVideos(rows)
}

// ListByMember returns one page of the member's videos, drafts
// included, newest first.
func (s *VideoStore) ListByMember(ctx context.Context, memberID string, page Page) ([]*models.Video, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+videoColumns+` FROM videos
		WHERE member_id = $1 AND NOT deleted
		ORDER BY created_at DESC, seq DESC
		LIMIT $2 OFFSET $3`,
		memberID, page.Limit(), page.Offset())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectVideos(rows)
}

type videoRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func collectVideos(rows videoRows) ([]*models.Video, error) {
	videos := make([]*models.Video, 0)
	for rows.Next() {
		v, err := videoFromRow(rows)
		if err != nil {
			return nil, vherr.Wrap(err, vherr.CodeInternalDatabase, "store: scan video row")
		}
		videos = append(videos, v)
	}
	if err := rows.Err(); err != nil {
		return nil, vherr.Wrap(err, vherr.CodeInternalDatabase, "store: iterate video rows")
	}
	return videos, nil
}

// UpdateMetadata updates the title and description of the video.
func (s *VideoStore) UpdateMetadata(ctx context.Context, seq int64, title, content string) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE videos SET title = $2, content = $3, updated_at = $4
		WHERE seq = $1 AND NOT deleted`,
		seq, title, content, time.Now().UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return vherr.New(vherr.CodeNotFoundVideo, "store: update video: not found")
	}
	return nil
}

// UpdateVideoPath points the video at a replacement file.
func (s *VideoStore) UpdateVideoPath(ctx context.Context, seq int64, path string) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE videos SET video_path = $2, updated_at = $3
		WHERE seq = $1 AND NOT deleted`,
		seq, path, time.Now().UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return vherr.New(vherr.CodeNotFoundVideo, "store: update video path: not found")
	}
	return nil
}

// UpdateThumbnailPath points the video at a replacement thumbnail.
func (s *VideoStore) UpdateThumbnailPath(ctx context.Context, seq int64, path string) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE videos SET thumbnail_path = $2, updated_at = $3
		WHERE seq = $1 AND NOT deleted`,
		seq, path, time.Now().UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return vherr.New(vherr.CodeNotFoundVideo, "store: update thumbnail path: not found")
	}
	return nil
}

// SetPublished toggles the published flag.
func (s *VideoStore) SetPublished(ctx context.Context, seq int64, published bool) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE videos SET published = $2, updated_at = $3
		WHERE seq = $1 AND NOT deleted`,
		seq, published, time.Now().UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return vherr.New(vherr.CodeNotFoundVideo, "store: set published: not found")
	}
	return nil
}

// SoftDelete hides the video from every surface. The row stays so the
// storage reaper can find its files; deleting also unpublishes.
func (s *VideoStore) SoftDelete(ctx context.Context, seq int64) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE videos SET deleted = TRUE, published = FALSE, updated_at = $2
		WHERE seq = $1 AND NOT deleted`,
		seq, time.Now().UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return vherr.New(vherr.CodeNotFoundVideo, "store: delete video: not found")
	}
	return nil
}

// OwnerSubject returns the member id owning the video. It is the
// single lookup behind the access policy's ownership check.
func (s *VideoStore) OwnerSubject(ctx context.Context, seq int64) (string, error) {
	row := s.db.QueryRow(ctx,
		`SELECT member_id FROM videos WHERE seq = $1 AND NOT deleted`, seq)
	var subject string
	if err := row.Scan(&subject); err != nil {
		return "", scanError(err, vherr.CodeNotFoundVideo, "store: video owner")
	}
	return subject, nil
}
