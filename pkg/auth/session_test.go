package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vherr "github.com/vidhive/vidhive-server/pkg/errors"
)

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

// fakePrincipalStore serves accounts from a map keyed by subject.
type fakePrincipalStore struct {
	accounts map[string]*Account
	err      error
}

func (f *fakePrincipalStore) FindBySubject(ctx context.Context, subject string) (*Account, error) {
	if f.err != nil {
		return nil, f.err
	}
	account, ok := f.accounts[subject]
	if !ok {
		return nil, vherr.Newf(vherr.CodeNotFoundMember, "member %q not found", subject)
	}
	return account, nil
}

// fakeLimiter allows or denies every call.
type fakeLimiter struct {
	allow bool
	err   error
	keys  []string
}

func (f *fakeLimiter) Allow(ctx context.Context, key string) (bool, error) {
	f.keys = append(f.keys, key)
	return f.allow, f.err
}

// newTestSessionService builds a session service over a fake store
// containing one enabled account for alice.
func newTestSessionService(t *testing.T, opts ...SessionOption) (*SessionService, *Codec) {
	t.Helper()
	codec := newTestCodec(t)
	hasher := NewBcryptHasher(4) // min cost keeps tests fast

	hash, err := hasher.Hash("alice-password")
	require.NoError(t, err)

	store := &fakePrincipalStore{accounts: map[string]*Account{
		"alice": {
			Subject:      "alice",
			PasswordHash: hash,
			DisplayName:  "Alice",
			Role:         RoleUser,
			Enabled:      true,
		},
		"mallory": {
			Subject:      "mallory",
			PasswordHash: hash,
			DisplayName:  "Mallory",
			Role:         RoleUser,
			Enabled:      false,
		},
	}}

	return NewSessionService(codec, store, hasher, opts...), codec
}

// ---------------------------------------------------------------------------
// Login tests
// ---------------------------------------------------------------------------

func TestSessionService_Login_Success(t *testing.T) {
	svc, codec := newTestSessionService(t)
	ctx := context.Background()

	session, err := svc.Login(ctx, "alice", "alice-password")
	require.NoError(t, err)

	assert.Equal(t, "Bearer", session.TokenType)
	assert.Equal(t, "Alice", session.DisplayName)

	accessClaims, err := codec.Parse(ctx, session.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "alice", accessClaims.Subject)
	assert.Equal(t, RoleUser, accessClaims.Role)
	assert.Equal(t, TokenKindAccess, accessClaims.Kind)

	refreshClaims, err := codec.Parse(ctx, session.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, TokenKindRefresh, refreshClaims.Kind)
	assert.Empty(t, refreshClaims.Role)
}

func TestSessionService_Login_FailuresAreIndistinguishable(t *testing.T) {
	svc, _ := newTestSessionService(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		subject  string
		password string
	}{
		{name: "unknown_member", subject: "nobody", password: "whatever"},
		{name: "wrong_password", subject: "alice", password: "wrong"},
		{name: "disabled_account", subject: "mallory", password: "alice-password"},
		{name: "empty_subject", subject: "", password: "alice-password"},
		{name: "empty_password", subject: "alice", password: ""},
	}

	var messages []string
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Login(ctx, tt.subject, tt.password)
			requireErrorCode(t, err, vherr.CodeAuthentication)

			e, _ := vherr.AsError(err)
			messages = append(messages, e.Message)
		})
	}

	// Every failure carries the same message so member ids cannot be
	// probed through the login endpoint.
	for _, msg := range messages {
		assert.Equal(t, msgInvalidCredentials, msg)
	}
}

func TestSessionService_Login_StoreOutagePropagates(t *testing.T) {
	codec := newTestCodec(t)
	store := &fakePrincipalStore{err: vherr.New(vherr.CodeUnavailableDependency, "database unreachable")}
	svc := NewSessionService(codec, store, NewBcryptHasher(4))

	_, err := svc.Login(context.Background(), "alice", "alice-password")
	requireErrorCode(t, err, vherr.CodeUnavailableDependency)
}

func TestSessionService_Login_RateLimited(t *testing.T) {
	limiter := &fakeLimiter{allow: false}
	svc, _ := newTestSessionService(t, WithLoginRateLimiter(limiter))

	_, err := svc.Login(context.Background(), "alice", "alice-password")
	requireErrorCode(t, err, vherr.CodeRateLimited)
	require.Len(t, limiter.keys, 1)
	assert.Equal(t, "login:alice", limiter.keys[0])
}

func TestSessionService_Login_LimiterFailureDoesNotBlock(t *testing.T) {
	limiter := &fakeLimiter{err: errors.New("redis down")}
	svc, _ := newTestSessionService(t, WithLoginRateLimiter(limiter))

	session, err := svc.Login(context.Background(), "alice", "alice-password")
	require.NoError(t, err, "a broken limiter must not lock members out")
	assert.NotEmpty(t, session.AccessToken)
}

// ---------------------------------------------------------------------------
// Refresh tests
// ---------------------------------------------------------------------------

func TestSessionService_Refresh_Success(t *testing.T) {
	svc, codec := newTestSessionService(t)
	ctx := context.Background()

	session, err := svc.Login(ctx, "alice", "alice-password")
	require.NoError(t, err)

	refreshed, err := svc.Refresh(ctx, session.RefreshToken)
	require.NoError(t, err)

	claims, err := codec.Parse(ctx, refreshed.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Subject)
	assert.Equal(t, TokenKindAccess, claims.Kind)
	assert.Equal(t, RoleUser, claims.Role, "role is re-read from the account on refresh")

	assert.Equal(t, session.RefreshToken, refreshed.RefreshToken,
		"refresh tokens are not rotated")
}

func TestSessionService_Refresh_RejectsAccessToken(t *testing.T) {
	svc, codec := newTestSessionService(t)
	ctx := context.Background()

	accessToken, err := codec.Issue("alice", RoleUser, TokenKindAccess)
	require.NoError(t, err)

	_, err = svc.Refresh(ctx, accessToken)
	requireErrorCode(t, err, vherr.CodeAuthenticationInvalid)
}

func TestSessionService_Refresh_RejectsInvalidToken(t *testing.T) {
	svc, _ := newTestSessionService(t)

	_, err := svc.Refresh(context.Background(), "garbage")
	requireErrorCode(t, err, vherr.CodeAuthenticationInvalid)
}

func TestSessionService_Refresh_DisabledAccountRejected(t *testing.T) {
	svc, codec := newTestSessionService(t)
	ctx := context.Background()

	refreshToken, err := codec.Issue("mallory", "", TokenKindRefresh)
	require.NoError(t, err)

	_, err = svc.Refresh(ctx, refreshToken)
	requireErrorCode(t, err, vherr.CodeAuthenticationInvalid)
}

func TestSessionService_Refresh_DeletedAccountRejected(t *testing.T) {
	svc, codec := newTestSessionService(t)
	ctx := context.Background()

	refreshToken, err := codec.Issue("ghost", "", TokenKindRefresh)
	require.NoError(t, err)

	_, err = svc.Refresh(ctx, refreshToken)
	requireErrorCode(t, err, vherr.CodeAuthenticationInvalid)
}

// ---------------------------------------------------------------------------
// Logout tests
// ---------------------------------------------------------------------------

func TestSessionService_Logout_NoOp(t *testing.T) {
	svc, _ := newTestSessionService(t)
	assert.NoError(t, svc.Logout(context.Background()))
}
