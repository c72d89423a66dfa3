package models

import (
	"time"

	vherr "github.com/vidhive/vidhive-server/pkg/errors"
)

// titleMaxLen bounds video titles.
const titleMaxLen = 200

// Video represents an uploaded video and its metadata.
type Video struct {
	// Seq is the database primary key and the public video id.
	Seq int64 `json:"seq" db:"seq"`

	// MemberSeq is the primary key of the owning member.
	MemberSeq int64 `json:"-" db:"member_seq"`

	// MemberID is the owning member's login identifier, denormalized
	// for listings and ownership checks.
	MemberID string `json:"memberId" db:"member_id"`

	// VideoPath is the storage path of the video file.
	VideoPath string `json:"videoPath" db:"video_path"`

	// ThumbnailPath is the storage path of the thumbnail, empty when
	// none was uploaded.
	ThumbnailPath string `json:"thumbnailPath,omitempty" db:"thumbnail_path"`

	// Title is the display title.
	Title string `json:"title" db:"title"`

	// Content is the description text.
	Content string `json:"content,omitempty" db:"content"`

	// Published makes the video visible on public listings.
	Published bool `json:"published" db:"published"`

	// Deleted marks the video soft-deleted. Deleted videos never
	// appear in listings or lookups; their files are reaped separately.
	Deleted bool `json:"-" db:"deleted"`

	// CreatedAt is the UTC creation timestamp.
	CreatedAt time.Time `json:"createdAt" db:"created_at"`

	// UpdatedAt is the UTC timestamp of the last modification.
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// NewVideo creates an unpublished Video with UTC timestamps.
func NewVideo(memberSeq int64, memberID, videoPath, thumbnailPath, title, content string) (*Video, error) {
	v := &Video{
		MemberSeq:     memberSeq,
		MemberID:      memberID,
		VideoPath:     videoPath,
		ThumbnailPath: thumbnailPath,
		Title:         title,
		Content:       content,
	}
	now := time.Now().UTC()
	v.CreatedAt = now
	v.UpdatedAt = now

	if err := v.Validate(); err != nil {
		return nil, err
	}
	return v, nil
}

// Validate checks required fields. Returns a [vherr.CodeValidation]
// error naming the first violation, or nil.
func (v *Video) Validate() error {
	if v.MemberSeq <= 0 {
		return vherr.New(vherr.CodeValidationRequired, "models: video owner seq is required")
	}
	if v.MemberID == "" {
		return vherr.New(vherr.CodeValidationRequired, "models: video owner id is required")
	}
	if v.VideoPath == "" {
		return vherr.New(vherr.CodeValidationRequired, "models: video path is required")
	}
	if v.Title == "" {
		return vherr.New(vherr.CodeValidationRequired, "models: video title is required")
	}
	if len(v.Title) > titleMaxLen {
		return vherr.Newf(vherr.CodeValidation, "models: video title must be at most %d characters", titleMaxLen)
	}
	return nil
}

// Visible reports whether the video appears on public surfaces.
func (v *Video) Visible() bool {
	return v.Published && !v.Deleted
}

// SetPublished toggles the published flag, bumping UpdatedAt when the
// flag changes.
func (v *Video) SetPublished(published bool) {
	if v.Published == published {
		return
	}
	v.Published = published
	v.UpdatedAt = time.Now().UTC()
}

// MarkDeleted soft-deletes the video. Deleted videos are also
// unpublished so a restore never republishes by accident.
func (v *Video) MarkDeleted() {
	if v.Deleted {
		return
	}
	v.Deleted = true
	v.Published = false
	v.UpdatedAt = time.Now().UTC()
}
