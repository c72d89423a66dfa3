package store

import (
	"context"
	"time"

	vherr "github.com/vidhive/vidhive-server/pkg/errors"

	"github.com/vidhive/vidhive-server/pkg/auth"
	"github.com/vidhive/vidhive-server/pkg/clients/postgres"
	"github.com/vidhive/vidhive-server/pkg/models"
)

// memberColumns is the column list every member SELECT uses, in the
// order memberFromRow scans.
const memberColumns = `seq, member_id, password_hash, name, profile_path, info,
	role, enabled, withdrawn_at, withdrawal_reason, created_at, updated_at`

// MemberStore persists members. It implements [auth.PrincipalStore]
// so the session service and the token middleware read accounts
// through it.
type MemberStore struct {
	db *postgres.Client
}

// NewMemberStore creates a MemberStore over the given client.
func NewMemberStore(db *postgres.Client) *MemberStore {
	return &MemberStore{db: db}
}

var _ auth.PrincipalStore = (*MemberStore)(nil)

type rowScanner interface {
	Scan(dest ...any) error
}

func memberFromRow(row rowScanner) (*models.Member, error) {
	var m models.Member
	var role string
	err := row.Scan(&m.Seq, &m.MemberID, &m.PasswordHash, &m.Name,
		&m.ProfilePath, &m.Info, &role, &m.Enabled,
		&m.WithdrawnAt, &m.WithdrawalReason, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	m.Role = auth.Role(role)
	return &m, nil
}

// Create inserts the member and fills in its Seq. A member id that is
// already taken returns [vherr.CodeConflictAlreadyExists].
func (s *MemberStore) Create(ctx context.Context, m *models.Member) error {
	if err := m.Validate(); err != nil {
		return err
	}

	row := s.db.QueryRow(ctx, `
		INSERT INTO members (member_id, password_hash, name, profile_path, info,
			role, enabled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING seq`,
		m.MemberID, m.PasswordHash, m.Name, m.ProfilePath, m.Info,
		string(m.Role), m.Enabled, m.CreatedAt, m.UpdatedAt)
	if err := row.Scan(&m.Seq); err != nil {
		return scanError(err, vherr.CodeNotFoundMember, "store: create member")
	}
	return nil
}

// FindBySeq returns the member with the given primary key.
func (s *MemberStore) FindBySeq(ctx context.Context, seq int64) (*models.Member, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+memberColumns+` FROM members WHERE seq = $1`, seq)
	m, err := memberFromRow(row)
	if err != nil {
		return nil, scanError(err, vherr.CodeNotFoundMember, "store: member by seq")
	}
	return m, nil
}

// FindByMemberID returns the member with the given login identifier.
// Withdrawn members are returned too; callers check Enabled.
func (s *MemberStore) FindByMemberID(ctx context.Context, memberID string) (*models.Member, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+memberColumns+` FROM members WHERE member_id = $1`, memberID)
	m, err := memberFromRow(row)
	if err != nil {
		return nil, scanError(err, vherr.CodeNotFoundMember, "store: member by id")
	}
	return m, nil
}

// FindBySubject implements [auth.PrincipalStore]. The token subject is
// the member id.
func (s *MemberStore) FindBySubject(ctx context.Context, subject string) (*auth.Account, error) {
	m, err := s.FindByMemberID(ctx, subject)
	if err != nil {
		return nil, err
	}
	return m.Account(), nil
}

// ExistsByMemberID reports whether the member id is taken, withdrawn
// members included so ids are never reused.
func (s *MemberStore) ExistsByMemberID(ctx context.Context, memberID string) (bool, error) {
	row := s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM members WHERE member_id = $1)`, memberID)
	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false, scanError(err, vherr.CodeNotFoundMember, "store: member exists")
	}
	return exists, nil
}

// UpdateProfile updates the display name, info text, and profile image
// path of the member.
func (s *MemberStore) UpdateProfile(ctx context.Context, memberID, name, info, profilePath string) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE members SET name = $2, info = $3, profile_path = $4, updated_at = $5
		WHERE member_id = $1 AND enabled`,
		memberID, name, info, profilePath, time.Now().UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return vherr.New(vherr.CodeNotFoundMember, "store: update profile: not found")
	}
	return nil
}

// UpdatePassword replaces the member's password hash.
func (s *MemberStore) UpdatePassword(ctx context.Context, memberID, passwordHash string) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE members SET password_hash = $2, updated_at = $3
		WHERE member_id = $1 AND enabled`,
		memberID, passwordHash, time.Now().UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return vherr.New(vherr.CodeNotFoundMember, "store: update password: not found")
	}
	return nil
}

// Withdraw soft-disables the member, recording the time and reason.
// The row is kept so the member's videos stay attributable.
// Withdrawing twice leaves the original record untouched.
func (s *MemberStore) Withdraw(ctx context.Context, memberID, reason string) error {
	now := time.Now().UTC()
	tag, err := s.db.Exec(ctx, `
		UPDATE members SET enabled = FALSE, withdrawn_at = $2,
			withdrawal_reason = $3, updated_at = $2
		WHERE member_id = $1 AND enabled`,
		memberID, now, reason)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return vherr.New(vherr.CodeNotFoundMember, "store: withdraw: not found")
	}
	return nil
}
