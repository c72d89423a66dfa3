// Package auth implements the stateless authentication and
// authorization core of the vidhive platform: an HS256 JWT codec,
// principal context plumbing, a declarative route access policy with
// per-resource ownership checks, HTTP middleware and a gRPC
// interceptor that enforce the policy, and a session service for
// login, token refresh, and logout.
//
// Every request is authenticated from its bearer token alone; the
// server keeps no session state. The trust boundary is the signing
// key: a token that verifies is believed without a database round
// trip.
package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	vherr "github.com/vidhive/vidhive-server/pkg/errors"
)

// ---------------------------------------------------------------------------
// Secret type — prevents accidental logging of sensitive values
// ---------------------------------------------------------------------------

// Secret is a string type that redacts its value in String(), GoString(), and
// MarshalText() to prevent accidental exposure in logs, JSON output, or
// fmt.Printf. The actual value is only accessible via the [Secret.Value]
// method, which should be called only where the raw value is truly needed
// (e.g., passing to a cryptographic function).
type Secret string

// secretRedacted is the placeholder text shown instead of the actual secret
// value when the secret is printed, formatted, or serialized.
const secretRedacted = "[REDACTED]"

// String returns the redacted placeholder, preventing the secret from being
// printed via fmt.Println, log.Printf, or similar functions.
func (s Secret) String() string { return secretRedacted }

// GoString returns the redacted placeholder, preventing the secret from being
// printed via fmt.Printf("%#v", secret).
func (s Secret) GoString() string { return secretRedacted }

// Value returns the actual secret string. This is the only way to access the
// underlying value and should be used only where the raw secret is required.
func (s Secret) Value() string { return string(s) }

// MarshalText implements [encoding.TextMarshaler], returning the redacted
// placeholder. This prevents the secret from leaking into JSON, YAML, or
// any other text-based serialization format.
func (s Secret) MarshalText() ([]byte, error) { return []byte(secretRedacted), nil }

// ---------------------------------------------------------------------------
// TokenKind — distinguishes access tokens from refresh tokens
// ---------------------------------------------------------------------------

// TokenKind identifies the purpose of an issued JWT. Access tokens
// authenticate API requests; refresh tokens are accepted only by the
// session refresh operation to mint a new access token.
type TokenKind string

const (
	// TokenKindAccess identifies short-lived tokens presented on every
	// API request via the Authorization header.
	TokenKindAccess TokenKind = "access"

	// TokenKindRefresh identifies long-lived tokens used only to obtain
	// a new access token. A refresh token presented on an API route is
	// rejected.
	TokenKindRefresh TokenKind = "refresh"
)

// valid reports whether k is one of the defined token kinds.
func (k TokenKind) valid() bool {
	return k == TokenKindAccess || k == TokenKindRefresh
}

// ---------------------------------------------------------------------------
// Claims — the vidhive JWT claim set
// ---------------------------------------------------------------------------

// Claims is the claim set carried by every vidhive token. Role is set
// on access tokens only; refresh tokens carry no role because the role
// is re-read from the account when the refresh is redeemed.
type Claims struct {
	Role Role      `json:"role,omitempty"`
	Kind TokenKind `json:"kind"`
	jwt.RegisteredClaims
}

// maxTokenSize is the maximum accepted size for a JWT token string (8 KB).
// Tokens larger than this are rejected to prevent resource exhaustion.
const maxTokenSize = 8192

// ---------------------------------------------------------------------------
// CodecConfig — configuration for the token codec
// ---------------------------------------------------------------------------

// CodecConfig holds the configuration for [Codec]. The signing key is
// mandatory and must be at least 32 bytes; everything else has a
// default suitable for production.
type CodecConfig struct {
	// SigningKey is the HMAC key used to sign and verify tokens.
	// Must be at least 32 bytes. The Secret type prevents accidental
	// logging of the key value.
	SigningKey Secret `json:"-" env:"SIGNING_KEY" required:"true"`

	// Issuer is written to the "iss" claim of every issued token and
	// enforced when parsing. Defaults to "vidhive".
	Issuer string `json:"issuer" env:"ISSUER" envDefault:"vidhive" yaml:"issuer"`

	// AccessTTL is the lifetime of access tokens. Defaults to 30
	// minutes.
	AccessTTL time.Duration `json:"access_ttl" env:"ACCESS_TTL" envDefault:"30m" yaml:"access_ttl"`

	// RefreshTTL is the lifetime of refresh tokens. Defaults to 168
	// hours (7 days).
	RefreshTTL time.Duration `json:"refresh_ttl" env:"REFRESH_TTL" envDefault:"168h" yaml:"refresh_ttl"`

	// ClockSkew is the leeway granted when checking the exp and iat
	// claims. Zero by default: a token expired by one second is
	// reported expired.
	ClockSkew time.Duration `json:"clock_skew" env:"CLOCK_SKEW" envDefault:"0s" yaml:"clock_skew"`

	// Now returns the current time and exists as a seam for tests.
	// If nil, time.Now is used.
	Now func() time.Time `json:"-"`
}

// DefaultCodecConfig returns a CodecConfig with production defaults.
// The signing key is intentionally left empty and must be provided by
// the caller.
func DefaultCodecConfig() CodecConfig {
	return CodecConfig{
		Issuer:     "vidhive",
		AccessTTL:  30 * time.Minute,
		RefreshTTL: 168 * time.Hour,
		ClockSkew:  0,
	}
}

// Validate checks the configuration for logical correctness and returns
// a *[vherr.Error] with code [vherr.CodeValidation] if any field is invalid.
//
// Validation rules:
//   - SigningKey must be at least 32 bytes
//   - Issuer must not be empty
//   - AccessTTL and RefreshTTL must be positive
//   - ClockSkew must be non-negative
func (c *CodecConfig) Validate() *vherr.Error {
	if len(c.SigningKey.Value()) < 32 {
		return vherr.New(vherr.CodeValidation, "auth: signing key must be at least 32 bytes")
	}
	if c.Issuer == "" {
		return vherr.New(vherr.CodeValidation, "auth: issuer must not be empty")
	}
	if c.AccessTTL <= 0 {
		return vherr.New(vherr.CodeValidation, "auth: access token TTL must be positive")
	}
	if c.RefreshTTL <= 0 {
		return vherr.New(vherr.CodeValidation, "auth: refresh token TTL must be positive")
	}
	if c.ClockSkew < 0 {
		return vherr.New(vherr.CodeValidation, "auth: clock skew must be non-negative")
	}
	return nil
}

// ---------------------------------------------------------------------------
// Codec — issues and verifies HS256 tokens
// ---------------------------------------------------------------------------

// tracerName is the OpenTelemetry instrumentation scope name for auth spans.
const tracerName = "github.com/vidhive/vidhive-server/pkg/auth"

// Codec issues and verifies vidhive JWTs signed with HS256. Parsing is
// a pure function of the token string, the signing key, and the clock;
// no network or database access is involved.
//
// Codec is safe for concurrent use by multiple goroutines.
type Codec struct {
	config CodecConfig
	tracer trace.Tracer
	now    func() time.Time
}

// NewCodec creates a Codec with the given configuration. The
// configuration is validated before use; an error is returned if it
// is invalid.
func NewCodec(cfg CodecConfig) (*Codec, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Codec{
		config: cfg,
		tracer: otel.Tracer(tracerName),
		now:    now,
	}, nil
}

// Issue creates a signed token for the given subject. Access tokens
// embed the role; refresh tokens do not. The token expires after the
// configured TTL for its kind.
func (c *Codec) Issue(subject string, role Role, kind TokenKind) (string, error) {
	if subject == "" {
		return "", vherr.New(vherr.CodeValidation, "auth: token subject must not be empty")
	}
	if !kind.valid() {
		return "", vherr.Newf(vherr.CodeValidation, "auth: unknown token kind %q", kind)
	}

	now := c.now()
	ttl := c.config.AccessTTL
	if kind == TokenKindRefresh {
		ttl = c.config.RefreshTTL
		role = ""
	}

	claims := Claims{
		Role: role,
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    c.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(c.config.SigningKey.Value()))
	if err != nil {
		return "", vherr.Wrap(err, vherr.CodeInternal, "auth: failed to sign token")
	}
	return signed, nil
}

// Parse verifies the signature, issuer, expiry, and structure of the
// given token string and returns its claims.
//
// CRITICAL: jwt.WithValidMethods restricts accepted algorithms to HS256
// only, preventing algorithm confusion attacks where an attacker could
// present a token with a different alg header and trick the verifier.
//
// Error codes: [vherr.CodeAuthenticationExpired] for expired tokens,
// [vherr.CodeAuthenticationInvalid] for everything else (malformed,
// bad signature, wrong issuer, wrong algorithm, missing claims).
func (c *Codec) Parse(ctx context.Context, tokenStr string) (*Claims, error) {
	_, span := startSpan(ctx, c.tracer, "auth.Parse")
	defer span.End()

	if tokenStr == "" {
		err := vherr.New(vherr.CodeAuthenticationInvalid, "auth: token must not be empty")
		finishSpan(span, err)
		return nil, err
	}
	if len(tokenStr) > maxTokenSize {
		err := vherr.New(vherr.CodeAuthenticationInvalid, "auth: token exceeds maximum size")
		finishSpan(span, err)
		return nil, err
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (any, error) {
		return []byte(c.config.SigningKey.Value()), nil
	},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(c.config.Issuer),
		jwt.WithLeeway(c.config.ClockSkew),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		classifiedErr := classifyTokenError(err)
		finishSpan(span, classifiedErr)
		return nil, classifiedErr
	}

	if !token.Valid {
		err := vherr.New(vherr.CodeAuthenticationInvalid, "auth: token is invalid")
		finishSpan(span, err)
		return nil, err
	}
	if claims.Subject == "" {
		err := vherr.New(vherr.CodeAuthenticationInvalid, "auth: token is missing subject claim")
		finishSpan(span, err)
		return nil, err
	}
	if !claims.Kind.valid() {
		err := vherr.Newf(vherr.CodeAuthenticationInvalid, "auth: token has unknown kind %q", claims.Kind)
		finishSpan(span, err)
		return nil, err
	}

	span.SetAttributes(
		attribute.String("auth.token_kind", string(claims.Kind)),
		attribute.String("auth.subject", claims.Subject),
	)
	return claims, nil
}

// Validate reports whether the token parses cleanly. It is a
// convenience wrapper over [Codec.Parse] for callers that do not need
// the claims.
func (c *Codec) Validate(ctx context.Context, tokenStr string) bool {
	_, err := c.Parse(ctx, tokenStr)
	return err == nil
}

// ---------------------------------------------------------------------------
// Helper functions
// ---------------------------------------------------------------------------

// classifyTokenError converts a JWT library error to an appropriate
// *vherr.Error. If the error is already a *vherr.Error, it is returned
// as-is.
func classifyTokenError(err error) *vherr.Error {
	if err == nil {
		return nil
	}

	var vhError *vherr.Error
	if errors.As(err, &vhError) {
		return vhError
	}

	if errors.Is(err, jwt.ErrTokenExpired) {
		return vherr.Wrap(err, vherr.CodeAuthenticationExpired, "auth: token has expired")
	}
	if errors.Is(err, jwt.ErrTokenMalformed) {
		return vherr.Wrap(err, vherr.CodeAuthenticationInvalid, "auth: token is malformed")
	}
	if errors.Is(err, jwt.ErrSignatureInvalid) {
		return vherr.Wrap(err, vherr.CodeAuthenticationInvalid, "auth: token signature is invalid")
	}
	if errors.Is(err, jwt.ErrTokenUnverifiable) {
		return vherr.Wrap(err, vherr.CodeAuthenticationInvalid, "auth: token is unverifiable")
	}
	if errors.Is(err, jwt.ErrTokenNotValidYet) {
		return vherr.Wrap(err, vherr.CodeAuthenticationInvalid, "auth: token is not yet valid")
	}
	if errors.Is(err, jwt.ErrTokenInvalidIssuer) {
		return vherr.Wrap(err, vherr.CodeAuthenticationInvalid, "auth: token issuer is invalid")
	}
	if errors.Is(err, jwt.ErrTokenInvalidClaims) {
		return vherr.Wrap(err, vherr.CodeAuthenticationInvalid, "auth: token claims are invalid")
	}

	return vherr.Wrap(err, vherr.CodeAuthenticationInvalid, "auth: token validation failed")
}

// bearerPrefix is the expected prefix of the Authorization header value.
const bearerPrefix = "Bearer "

// ExtractBearerToken returns the token portion of an Authorization
// header value, or "" if the header does not carry a bearer token.
// The "Bearer " prefix is matched case-insensitively.
func ExtractBearerToken(authHeader string) string {
	if len(authHeader) <= len(bearerPrefix) {
		return ""
	}
	if !strings.EqualFold(authHeader[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(authHeader[len(bearerPrefix):])
}

// startSpan creates a new OpenTelemetry span with the given name. Returns
// the updated context and span.
func startSpan(ctx context.Context, tracer trace.Tracer, name string) (context.Context, trace.Span) {
	return tracer.Start(ctx, name)
}

// finishSpan records an error on the span if err is non-nil and sets the
// span status to Error.
func finishSpan(span trace.Span, err error) {
	if span == nil || err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
