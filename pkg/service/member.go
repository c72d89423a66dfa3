package service

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	vherr "github.com/vidhive/vidhive-server/pkg/errors"

	"github.com/vidhive/vidhive-server/pkg/auth"
	"github.com/vidhive/vidhive-server/pkg/media"
	"github.com/vidhive/vidhive-server/pkg/models"
)

// MemberStore is the slice of the member store this service uses.
type MemberStore interface {
	Create(ctx context.Context, m *models.Member) error
	FindByMemberID(ctx context.Context, memberID string) (*models.Member, error)
	ExistsByMemberID(ctx context.Context, memberID string) (bool, error)
	UpdateProfile(ctx context.Context, memberID, name, info, profilePath string) error
	UpdatePassword(ctx context.Context, memberID, passwordHash string) error
	Withdraw(ctx context.Context, memberID, reason string) error
}

// RegisterRequest carries the fields of a registration.
type RegisterRequest struct {
	MemberID string `json:"memberId"`
	Password string `json:"memberPw"`
	Name     string `json:"memberName"`
	Info     string `json:"memberInfo"`
}

// UpdateMyInfoRequest carries a profile metadata update.
type UpdateMyInfoRequest struct {
	Name string `json:"memberName"`
	Info string `json:"memberInfo"`
}

// UpdatePasswordRequest carries a password change.
type UpdatePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// MemberService implements member registration, profile management,
// password changes, and withdrawal.
type MemberService struct {
	members MemberStore
	media   media.Store
	hasher  auth.PasswordHasher
	tracer  trace.Tracer
	logger  *slog.Logger
}

// NewMemberService creates a MemberService.
func NewMemberService(members MemberStore, mediaStore media.Store, hasher auth.PasswordHasher) *MemberService {
	return &MemberService{
		members: members,
		media:   mediaStore,
		hasher:  hasher,
		tracer:  tracer(),
		logger:  slog.Default().With("component", "service.member"),
	}
}

// Register creates a new member, uploading the optional profile image
// first. A taken member id returns [vherr.CodeConflictAlreadyExists];
// the store's unique constraint backs the check under races.
func (s *MemberService) Register(ctx context.Context, req RegisterRequest, profile *File) (*models.Member, error) {
	ctx, span := s.tracer.Start(ctx, "MemberService.Register")
	var err error
	defer func() { finishSpan(span, err) }()

	if req.Password == "" {
		err = vherr.New(vherr.CodeValidationRequired, "service: password is required")
		return nil, err
	}

	taken, err := s.members.ExistsByMemberID(ctx, req.MemberID)
	if err != nil {
		return nil, err
	}
	if taken {
		err = vherr.Newf(vherr.CodeConflictAlreadyExists,
			"service: member id %q is already taken", req.MemberID)
		return nil, err
	}

	profilePath := ""
	if profile != nil {
		result, uploadErr := s.media.Upload(ctx, media.ClassProfile,
			profile.Name, profile.Reader, profile.Size, profile.ContentType)
		if uploadErr != nil {
			err = uploadErr
			return nil, err
		}
		profilePath = result.Path
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		s.discardUpload(ctx, profilePath)
		return nil, err
	}

	m, err := models.NewMember(req.MemberID, hash, req.Name, req.Info)
	if err != nil {
		s.discardUpload(ctx, profilePath)
		return nil, err
	}
	m.ProfilePath = profilePath

	if err = s.members.Create(ctx, m); err != nil {
		s.discardUpload(ctx, profilePath)
		return nil, err
	}

	s.logger.InfoContext(ctx, "member registered", "member_id", m.MemberID, "seq", m.Seq)
	return m, nil
}

// CheckDuplicate reports whether the member id is already taken.
func (s *MemberService) CheckDuplicate(ctx context.Context, memberID string) (bool, error) {
	if memberID == "" {
		return false, vherr.New(vherr.CodeValidationRequired, "service: member id is required")
	}
	return s.members.ExistsByMemberID(ctx, memberID)
}

// GetMyInfo returns the member's own record.
func (s *MemberService) GetMyInfo(ctx context.Context, memberID string) (*models.Member, error) {
	return s.members.FindByMemberID(ctx, memberID)
}

// UpdateMyInfo updates the member's display name and info, and
// replaces the profile image when a new one is supplied. The old
// image is deleted after the new one is stored.
func (s *MemberService) UpdateMyInfo(ctx context.Context, memberID string, req UpdateMyInfoRequest, profile *File) error {
	ctx, span := s.tracer.Start(ctx, "MemberService.UpdateMyInfo",
		trace.WithAttributes(memberAttr(memberID)))
	var err error
	defer func() { finishSpan(span, err) }()

	current, err := s.members.FindByMemberID(ctx, memberID)
	if err != nil {
		return err
	}

	profilePath := current.ProfilePath
	if profile != nil {
		result, uploadErr := s.media.Upload(ctx, media.ClassProfile,
			profile.Name, profile.Reader, profile.Size, profile.ContentType)
		if uploadErr != nil {
			err = uploadErr
			return err
		}
		s.discardUpload(ctx, current.ProfilePath)
		profilePath = result.Path
	}

	if err = s.members.UpdateProfile(ctx, memberID, req.Name, req.Info, profilePath); err != nil {
		return err
	}
	return nil
}

// UpdatePassword changes the member's password. The current password
// must verify against the stored hash and the new password must
// differ from it.
func (s *MemberService) UpdatePassword(ctx context.Context, memberID string, req UpdatePasswordRequest) error {
	ctx, span := s.tracer.Start(ctx, "MemberService.UpdatePassword",
		trace.WithAttributes(memberAttr(memberID)))
	var err error
	defer func() { finishSpan(span, err) }()

	if req.NewPassword == "" {
		err = vherr.New(vherr.CodeValidationRequired, "service: new password is required")
		return err
	}

	current, err := s.members.FindByMemberID(ctx, memberID)
	if err != nil {
		return err
	}

	matches, err := s.hasher.Verify(current.PasswordHash, req.CurrentPassword)
	if err != nil {
		return err
	}
	if !matches {
		err = vherr.New(vherr.CodeValidation, "service: current password does not match")
		return err
	}
	if req.NewPassword == req.CurrentPassword {
		err = vherr.New(vherr.CodeValidation, "service: new password must differ from the current one")
		return err
	}

	hash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return err
	}
	if err = s.members.UpdatePassword(ctx, memberID, hash); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "password updated", "member_id", memberID)
	return nil
}

// Withdraw soft-disables the member. Their videos and files stay; the
// account can no longer log in.
func (s *MemberService) Withdraw(ctx context.Context, memberID, reason string) error {
	ctx, span := s.tracer.Start(ctx, "MemberService.Withdraw",
		trace.WithAttributes(memberAttr(memberID)))
	var err error
	defer func() { finishSpan(span, err) }()

	if err = s.members.Withdraw(ctx, memberID, reason); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "member withdrawn", "member_id", memberID)
	return nil
}

// discardUpload removes a file stored during an operation that then
// failed. Best effort; an orphaned file is logged for the reaper.
func (s *MemberService) discardUpload(ctx context.Context, path string) {
	if path == "" {
		return
	}
	if err := s.media.Delete(ctx, path); err != nil {
		s.logger.WarnContext(ctx, "failed to remove orphaned upload",
			"path", path, "error", err)
	}
}
