package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vherr "github.com/vidhive/vidhive-server/pkg/errors"
)

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

// echoHandler records whether it ran and what principal it saw.
type echoHandler struct {
	called    bool
	principal Principal
	hadAuth   bool
}

func (h *echoHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.called = true
	h.principal, h.hadAuth = PrincipalFromContext(r.Context())
	w.WriteHeader(http.StatusOK)
}

// doRequest runs one request through the middleware and returns the
// response recorder plus the inner handler for inspection.
func doRequest(t *testing.T, policy *Policy, codec *Codec, method, path, authHeader string) (*httptest.ResponseRecorder, *echoHandler) {
	t.Helper()
	inner := &echoHandler{}
	handler := Middleware(codec, policy)(inner)

	req := httptest.NewRequest(method, path, nil)
	if authHeader != "" {
		req.Header.Set(HeaderAuthorization, authHeader)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec, inner
}

// decodeErrorBody parses the middleware's JSON error body.
func decodeErrorBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func issueToken(t *testing.T, codec *Codec, subject string, kind TokenKind) string {
	t.Helper()
	token, err := codec.Issue(subject, RoleUser, kind)
	require.NoError(t, err)
	return token
}

// ---------------------------------------------------------------------------
// Anonymous request tests
// ---------------------------------------------------------------------------

func TestMiddleware_Anonymous_PublicRoute_Passes(t *testing.T) {
	codec := newTestCodec(t)
	policy := newTestPolicy(t, &fakeOwnershipChecker{})

	rec, inner := doRequest(t, policy, codec, "GET", "/api/movies", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, inner.called)
	assert.False(t, inner.hadAuth, "anonymous requests carry no principal")
}

func TestMiddleware_Anonymous_ProtectedRoute_401(t *testing.T) {
	codec := newTestCodec(t)
	policy := newTestPolicy(t, &fakeOwnershipChecker{})

	rec, inner := doRequest(t, policy, codec, "GET", "/api/me/members", "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, inner.called)
	body := decodeErrorBody(t, rec)
	assert.Equal(t, string(vherr.CodeAuthenticationMissing), body["code"])
}

func TestMiddleware_Anonymous_UnregisteredRoute_401(t *testing.T) {
	codec := newTestCodec(t)
	policy := newTestPolicy(t, &fakeOwnershipChecker{})

	rec, inner := doRequest(t, policy, codec, "GET", "/api/unknown", "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, inner.called)
}

// ---------------------------------------------------------------------------
// Presented token tests
// ---------------------------------------------------------------------------

func TestMiddleware_ValidToken_ProtectedRoute_AttachesPrincipal(t *testing.T) {
	codec := newTestCodec(t)
	policy := newTestPolicy(t, &fakeOwnershipChecker{})
	token := issueToken(t, codec, "alice", TokenKindAccess)

	rec, inner := doRequest(t, policy, codec, "GET", "/api/me/members", "Bearer "+token)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.True(t, inner.called)
	require.True(t, inner.hadAuth)
	assert.Equal(t, "alice", inner.principal.Subject)
	assert.Equal(t, RoleUser, inner.principal.Role)
}

func TestMiddleware_InvalidToken_401_EvenOnPublicRoute(t *testing.T) {
	codec := newTestCodec(t)
	policy := newTestPolicy(t, &fakeOwnershipChecker{})

	rec, inner := doRequest(t, policy, codec, "GET", "/api/movies", "Bearer not-a-valid-token")

	assert.Equal(t, http.StatusUnauthorized, rec.Code,
		"a presented credential is never ignored, even on public routes")
	assert.False(t, inner.called)
}

func TestMiddleware_ExpiredToken_401_OnPublicRoute(t *testing.T) {
	codec := newTestCodec(t)
	policy := newTestPolicy(t, &fakeOwnershipChecker{})
	token := issueExpiredToken(t)

	rec, inner := doRequest(t, policy, codec, "GET", "/api/movies", "Bearer "+token)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, inner.called)
	body := decodeErrorBody(t, rec)
	assert.Equal(t, string(vherr.CodeAuthenticationExpired), body["code"])
}

func TestMiddleware_RefreshToken_OnAPIRoute_401(t *testing.T) {
	codec := newTestCodec(t)
	policy := newTestPolicy(t, &fakeOwnershipChecker{})
	token := issueToken(t, codec, "alice", TokenKindRefresh)

	rec, inner := doRequest(t, policy, codec, "GET", "/api/me/members", "Bearer "+token)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, inner.called)
	body := decodeErrorBody(t, rec)
	assert.Equal(t, string(vherr.CodeAuthenticationInvalid), body["code"])
}

func TestMiddleware_NonBearerHeader_401(t *testing.T) {
	codec := newTestCodec(t)
	policy := newTestPolicy(t, &fakeOwnershipChecker{})

	rec, inner := doRequest(t, policy, codec, "GET", "/api/movies", "Basic dXNlcjpwYXNz")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, inner.called)
}

// ---------------------------------------------------------------------------
// Owner routing tests
// ---------------------------------------------------------------------------

func TestMiddleware_OwnerRoute_Matrix(t *testing.T) {
	codec := newTestCodec(t)
	checker := &fakeOwnershipChecker{owners: map[string]string{"42": "alice"}}
	policy := newTestPolicy(t, checker)

	aliceToken := issueToken(t, codec, "alice", TokenKindAccess)
	bobToken := issueToken(t, codec, "bob", TokenKindAccess)

	tests := []struct {
		name       string
		path       string
		token      string
		wantStatus int
		wantCode   vherr.Code
	}{
		{name: "owner_allowed", path: "/api/me/movies/42", token: aliceToken, wantStatus: http.StatusOK},
		{name: "non_owner_forbidden", path: "/api/me/movies/42", token: bobToken, wantStatus: http.StatusForbidden, wantCode: vherr.CodeAuthorizationNotOwner},
		{name: "missing_resource_forbidden", path: "/api/me/movies/9999", token: aliceToken, wantStatus: http.StatusForbidden, wantCode: vherr.CodeAuthorizationNotOwner},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, _ := doRequest(t, policy, codec, "PUT", tt.path, "Bearer "+tt.token)
			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantCode != "" {
				body := decodeErrorBody(t, rec)
				assert.Equal(t, string(tt.wantCode), body["code"])
			}
		})
	}
}

func TestMiddleware_OwnershipStoreFailure_500(t *testing.T) {
	codec := newTestCodec(t)
	checker := &fakeOwnershipChecker{err: errors.New("connection refused")}
	policy := newTestPolicy(t, checker)
	token := issueToken(t, codec, "alice", TokenKindAccess)

	rec, inner := doRequest(t, policy, codec, "PUT", "/api/me/movies/42", "Bearer "+token)

	assert.Equal(t, http.StatusInternalServerError, rec.Code,
		"a store failure must not be reported as a deny")
	assert.False(t, inner.called)
}

// ---------------------------------------------------------------------------
// Custom renderer tests
// ---------------------------------------------------------------------------

func TestMiddleware_CustomErrorRenderer(t *testing.T) {
	codec := newTestCodec(t)
	policy := newTestPolicy(t, &fakeOwnershipChecker{})

	var rendered *vherr.Error
	render := func(w http.ResponseWriter, r *http.Request, err *vherr.Error) {
		rendered = err
		w.WriteHeader(err.HTTPStatus())
	}

	inner := &echoHandler{}
	handler := Middleware(codec, policy, WithErrorRenderer(render))(inner)

	req := httptest.NewRequest("GET", "/api/me/members", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	require.NotNil(t, rendered)
	assert.Equal(t, vherr.CodeAuthenticationMissing, rendered.Code)
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// issueExpiredToken mints a token that expired one second ago, signed
// with the test key.
func issueExpiredToken(t *testing.T) string {
	t.Helper()
	issuedAt := time.Now().Add(-DefaultCodecConfig().AccessTTL - time.Second)
	past := newTestCodec(t, func(c *CodecConfig) {
		c.Now = func() time.Time { return issuedAt }
	})
	token, err := past.Issue("alice", RoleUser, TokenKindAccess)
	require.NoError(t, err)
	return token
}
