package auth

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	vherr "github.com/vidhive/vidhive-server/pkg/errors"
)

// Account is the stored credential record the session service verifies
// logins against. The member store implements [PrincipalStore] to
// supply it.
type Account struct {
	Subject      string
	PasswordHash string
	DisplayName  string
	Role         Role
	Enabled      bool
}

// PrincipalStore resolves accounts for login and refresh.
type PrincipalStore interface {
	// FindBySubject returns the account for the given member id, or a
	// not-found coded error when no such member exists. Infrastructure
	// failures are returned as their own coded errors.
	FindBySubject(ctx context.Context, subject string) (*Account, error)
}

// RateLimiter gates login attempts per subject. The redis-backed
// implementation lives in pkg/ratelimit.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// Session is the result of a successful login: the token pair the
// client stores and presents on later requests.
type Session struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	TokenType    string `json:"tokenType"`
	DisplayName  string `json:"displayName"`
}

// tokenTypeBearer is the token_type value of every issued session.
const tokenTypeBearer = "Bearer"

// msgInvalidCredentials is the single message returned for every
// credential failure. Unknown member ids and wrong passwords are
// indistinguishable to the caller.
const msgInvalidCredentials = "invalid member id or password"

// SessionService implements login, token refresh, and logout on top of
// the codec, the account store, and the password hasher. It holds no
// session state; logout exists so clients have a uniform endpoint to
// call while discarding their tokens.
type SessionService struct {
	codec   *Codec
	store   PrincipalStore
	hasher  PasswordHasher
	limiter RateLimiter
	tracer  trace.Tracer
}

// SessionOption configures [NewSessionService].
type SessionOption func(*SessionService)

// WithLoginRateLimiter installs a per-subject rate limiter consulted
// before any credential work on login.
func WithLoginRateLimiter(limiter RateLimiter) SessionOption {
	return func(s *SessionService) {
		s.limiter = limiter
	}
}

// NewSessionService creates a SessionService.
func NewSessionService(codec *Codec, store PrincipalStore, hasher PasswordHasher, opts ...SessionOption) *SessionService {
	s := &SessionService{
		codec:  codec,
		store:  store,
		hasher: hasher,
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Login verifies the member id and password and issues a token pair.
//
// Every credential failure (unknown member id, disabled account, wrong
// password) returns the same [vherr.CodeAuthentication] error with a
// generic message, so callers cannot probe which member ids exist.
// Store outages are propagated as their own coded errors and are never
// disguised as bad credentials.
//
// When a rate limiter is configured it is consulted per subject before
// the password hash is evaluated; an exhausted budget returns
// [vherr.CodeRateLimited].
func (s *SessionService) Login(ctx context.Context, subject, password string) (*Session, error) {
	ctx, span := startSpan(ctx, s.tracer, "auth.Login")
	defer span.End()

	if subject == "" || password == "" {
		return nil, vherr.New(vherr.CodeAuthentication, msgInvalidCredentials)
	}

	if s.limiter != nil {
		allowed, err := s.limiter.Allow(ctx, "login:"+subject)
		if err != nil {
			// A broken limiter must not lock everyone out.
			slog.WarnContext(ctx, "auth: login rate limiter unavailable",
				"error", err,
			)
		} else if !allowed {
			rlErr := vherr.New(vherr.CodeRateLimited, "too many login attempts, try again later")
			finishSpan(span, rlErr)
			return nil, rlErr
		}
	}

	account, err := s.store.FindBySubject(ctx, subject)
	if err != nil {
		if vherr.IsNotFound(err) {
			return nil, vherr.New(vherr.CodeAuthentication, msgInvalidCredentials)
		}
		finishSpan(span, err)
		return nil, err
	}
	if !account.Enabled {
		return nil, vherr.New(vherr.CodeAuthentication, msgInvalidCredentials)
	}

	match, err := s.hasher.Verify(account.PasswordHash, password)
	if err != nil {
		finishSpan(span, err)
		return nil, err
	}
	if !match {
		slog.WarnContext(ctx, "auth: login rejected",
			"subject", subject,
		)
		return nil, vherr.New(vherr.CodeAuthentication, msgInvalidCredentials)
	}

	session, err := s.issueSession(account)
	if err != nil {
		finishSpan(span, err)
		return nil, err
	}

	span.SetAttributes(attribute.String("auth.subject", account.Subject))
	return session, nil
}

// Refresh redeems a refresh token for a new access token. The account
// is re-read so a disabled member or a changed role takes effect at
// the next refresh even though access tokens are never revoked. The
// same refresh token is returned; refresh tokens are not rotated.
func (s *SessionService) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	ctx, span := startSpan(ctx, s.tracer, "auth.Refresh")
	defer span.End()

	claims, err := s.codec.Parse(ctx, refreshToken)
	if err != nil {
		finishSpan(span, err)
		return nil, err
	}
	if claims.Kind != TokenKindRefresh {
		kindErr := vherr.New(vherr.CodeAuthenticationInvalid, "token kind is not valid for refresh")
		finishSpan(span, kindErr)
		return nil, kindErr
	}

	account, err := s.store.FindBySubject(ctx, claims.Subject)
	if err != nil {
		if vherr.IsNotFound(err) {
			return nil, vherr.New(vherr.CodeAuthenticationInvalid, "token subject no longer exists")
		}
		finishSpan(span, err)
		return nil, err
	}
	if !account.Enabled {
		return nil, vherr.New(vherr.CodeAuthenticationInvalid, "account is disabled")
	}

	accessToken, err := s.codec.Issue(account.Subject, account.Role, TokenKindAccess)
	if err != nil {
		finishSpan(span, err)
		return nil, err
	}

	span.SetAttributes(attribute.String("auth.subject", account.Subject))
	return &Session{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    tokenTypeBearer,
		DisplayName:  account.DisplayName,
	}, nil
}

// Logout is a no-op. Tokens are stateless and cannot be revoked; the
// client discards its copies. The method exists so the API surface has
// a logout endpoint and a place to add revocation later.
func (s *SessionService) Logout(ctx context.Context) error {
	return nil
}

// issueSession mints a fresh access/refresh token pair for the account.
func (s *SessionService) issueSession(account *Account) (*Session, error) {
	accessToken, err := s.codec.Issue(account.Subject, account.Role, TokenKindAccess)
	if err != nil {
		return nil, err
	}
	refreshToken, err := s.codec.Issue(account.Subject, account.Role, TokenKindRefresh)
	if err != nil {
		return nil, err
	}
	return &Session{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    tokenTypeBearer,
		DisplayName:  account.DisplayName,
	}, nil
}
