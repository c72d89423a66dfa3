// Package models defines the core data models of the vidhive platform.
//
// The two record types, [Member] and [Video], are shared by the stores,
// services, and API layer. Every field carries both JSON tags (for API
// serialization) and db tags (for database row mapping).
//
// Member lifecycle: a member registers, may update profile and
// password, and may withdraw. Withdrawal is a soft disable recording
// the time and reason; the row is kept so historical videos stay
// attributable.
//
// Video lifecycle: a video is uploaded unpublished, may be published
// and unpublished, and is deleted softly so its files can be reaped
// later.
package models

import (
	"time"

	vherr "github.com/vidhive/vidhive-server/pkg/errors"

	"github.com/vidhive/vidhive-server/pkg/auth"
)

// memberIDMaxLen bounds the member id; ids are used as token subjects
// and path segments.
const memberIDMaxLen = 64

// Member represents a registered account.
type Member struct {
	// Seq is the database primary key.
	Seq int64 `json:"seq" db:"seq"`

	// MemberID is the unique login identifier chosen at registration.
	// It is the subject claim of every token issued to this member.
	MemberID string `json:"memberId" db:"member_id"`

	// PasswordHash is the bcrypt hash of the member's password. Never
	// serialized.
	PasswordHash string `json:"-" db:"password_hash"`

	// Name is the display name.
	Name string `json:"name" db:"name"`

	// ProfilePath is the storage path of the profile image, empty when
	// none was uploaded.
	ProfilePath string `json:"profilePath,omitempty" db:"profile_path"`

	// Info is the free-form self description.
	Info string `json:"info,omitempty" db:"info"`

	// Role is the member's platform role.
	Role auth.Role `json:"role" db:"role"`

	// Enabled is false once the member has withdrawn.
	Enabled bool `json:"enabled" db:"enabled"`

	// WithdrawnAt is the UTC time of withdrawal, nil for active members.
	WithdrawnAt *time.Time `json:"withdrawnAt,omitempty" db:"withdrawn_at"`

	// WithdrawalReason is the reason given at withdrawal.
	WithdrawalReason string `json:"-" db:"withdrawal_reason"`

	// CreatedAt is the UTC creation timestamp.
	CreatedAt time.Time `json:"createdAt" db:"created_at"`

	// UpdatedAt is the UTC timestamp of the last modification.
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// NewMember creates an active Member with UTC timestamps. The password
// hash must already be computed; models never see plaintext passwords.
func NewMember(memberID, passwordHash, name, info string) (*Member, error) {
	m := &Member{
		MemberID:     memberID,
		PasswordHash: passwordHash,
		Name:         name,
		Info:         info,
		Role:         auth.RoleUser,
		Enabled:      true,
	}
	now := time.Now().UTC()
	m.CreatedAt = now
	m.UpdatedAt = now

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Validate checks required fields. Returns a [vherr.CodeValidation]
// error naming the first violation, or nil.
func (m *Member) Validate() error {
	if m.MemberID == "" {
		return vherr.New(vherr.CodeValidationRequired, "models: member id is required")
	}
	if len(m.MemberID) > memberIDMaxLen {
		return vherr.Newf(vherr.CodeValidation, "models: member id must be at most %d characters", memberIDMaxLen)
	}
	if m.PasswordHash == "" {
		return vherr.New(vherr.CodeValidationRequired, "models: member password hash is required")
	}
	if m.Name == "" {
		return vherr.New(vherr.CodeValidationRequired, "models: member name is required")
	}
	if m.Role == "" {
		return vherr.New(vherr.CodeValidationRequired, "models: member role is required")
	}
	return nil
}

// Withdraw marks the member withdrawn at the given time with the given
// reason. Idempotent: withdrawing an already withdrawn member keeps
// the original timestamp.
func (m *Member) Withdraw(at time.Time, reason string) {
	if !m.Enabled && m.WithdrawnAt != nil {
		return
	}
	at = at.UTC()
	m.Enabled = false
	m.WithdrawnAt = &at
	m.WithdrawalReason = reason
	m.UpdatedAt = at
}

// Account converts the member to the credential record the session
// service verifies logins against.
func (m *Member) Account() *auth.Account {
	return &auth.Account{
		Subject:      m.MemberID,
		PasswordHash: m.PasswordHash,
		DisplayName:  m.Name,
		Role:         m.Role,
		Enabled:      m.Enabled,
	}
}
