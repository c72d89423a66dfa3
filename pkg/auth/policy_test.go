package auth

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vherr "github.com/vidhive/vidhive-server/pkg/errors"
)

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

// fakeOwnershipChecker answers ownership lookups from a fixed map of
// resource id to owner subject. Missing ids report not-owner with no
// error, matching the store contract.
type fakeOwnershipChecker struct {
	owners map[string]string
	err    error
	calls  int
}

func (f *fakeOwnershipChecker) IsOwner(ctx context.Context, kind ResourceKind, resourceID, subject string) (bool, error) {
	f.calls++
	if f.err != nil {
		return false, f.err
	}
	owner, ok := f.owners[resourceID]
	if !ok {
		return false, nil
	}
	return owner == subject, nil
}

// testRules is a representative slice of the real route table.
func testRules() []Rule {
	return []Rule{
		{Method: http.MethodPost, Pattern: "/api/auth/login", Requirement: RequirePublic},
		{Method: http.MethodGet, Pattern: "/api/movies", Requirement: RequirePublic},
		{Method: http.MethodGet, Pattern: "/api/movies/{id}", Requirement: RequirePublic},
		{Method: http.MethodGet, Pattern: "/api/me/members", Requirement: RequireAuthenticated},
		{Method: http.MethodPut, Pattern: "/api/me/movies/{id}", Requirement: RequireOwner, ResourceKind: ResourceKindVideo},
		{Method: http.MethodPut, Pattern: "/api/me/movies/{id}/publish", Requirement: RequireOwner, ResourceKind: ResourceKindVideo},
	}
}

func newTestPolicy(t *testing.T, checker OwnershipChecker) *Policy {
	t.Helper()
	policy, err := NewPolicy(testRules(), checker)
	require.NoError(t, err)
	return policy
}

// ---------------------------------------------------------------------------
// Construction tests
// ---------------------------------------------------------------------------

func TestNewPolicy_RejectsInvalidRules(t *testing.T) {
	tests := []struct {
		name    string
		rules   []Rule
		checker OwnershipChecker
	}{
		{
			name:  "missing_method",
			rules: []Rule{{Pattern: "/api/movies", Requirement: RequirePublic}},
		},
		{
			name:  "pattern_without_slash",
			rules: []Rule{{Method: "GET", Pattern: "api/movies", Requirement: RequirePublic}},
		},
		{
			name:    "owner_rule_without_placeholder",
			rules:   []Rule{{Method: "PUT", Pattern: "/api/me/movies", Requirement: RequireOwner, ResourceKind: ResourceKindVideo}},
			checker: &fakeOwnershipChecker{},
		},
		{
			name:    "owner_rule_without_kind",
			rules:   []Rule{{Method: "PUT", Pattern: "/api/me/movies/{id}", Requirement: RequireOwner}},
			checker: &fakeOwnershipChecker{},
		},
		{
			name:  "owner_rule_without_checker",
			rules: []Rule{{Method: "PUT", Pattern: "/api/me/movies/{id}", Requirement: RequireOwner, ResourceKind: ResourceKindVideo}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPolicy(tt.rules, tt.checker)
			requireErrorCode(t, err, vherr.CodeValidation)
		})
	}
}

// ---------------------------------------------------------------------------
// Classify tests
// ---------------------------------------------------------------------------

func TestPolicy_Classify(t *testing.T) {
	policy := newTestPolicy(t, &fakeOwnershipChecker{})

	tests := []struct {
		name           string
		method         string
		path           string
		wantMatch      bool
		wantPattern    string
		wantResourceID string
	}{
		{
			name:        "exact_match",
			method:      "POST",
			path:        "/api/auth/login",
			wantMatch:   true,
			wantPattern: "/api/auth/login",
		},
		{
			name:           "placeholder_captures_id",
			method:         "GET",
			path:           "/api/movies/42",
			wantMatch:      true,
			wantPattern:    "/api/movies/{id}",
			wantResourceID: "42",
		},
		{
			name:           "owner_route_with_suffix",
			method:         "PUT",
			path:           "/api/me/movies/7/publish",
			wantMatch:      true,
			wantPattern:    "/api/me/movies/{id}/publish",
			wantResourceID: "7",
		},
		{
			name:      "method_mismatch",
			method:    "DELETE",
			path:      "/api/movies/42",
			wantMatch: false,
		},
		{
			name:      "unknown_path",
			method:    "GET",
			path:      "/api/internal/debug",
			wantMatch: false,
		},
		{
			name:      "extra_segment",
			method:    "GET",
			path:      "/api/movies/42/extra",
			wantMatch: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule, resourceID, matched := policy.Classify(tt.method, tt.path)
			assert.Equal(t, tt.wantMatch, matched)
			if tt.wantMatch {
				assert.Equal(t, tt.wantPattern, rule.Pattern)
				assert.Equal(t, tt.wantResourceID, resourceID)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Authorize tests
// ---------------------------------------------------------------------------

func TestPolicy_Authorize_Public(t *testing.T) {
	policy := newTestPolicy(t, &fakeOwnershipChecker{})
	ctx := context.Background()

	// Public routes allow anonymous and authenticated callers alike.
	decision, err := policy.Authorize(ctx, "GET", "/api/movies", nil)
	require.NoError(t, err)
	assert.Equal(t, Allow, decision)

	p := Principal{Subject: "alice", Role: RoleUser}
	decision, err = policy.Authorize(ctx, "GET", "/api/movies", &p)
	require.NoError(t, err)
	assert.Equal(t, Allow, decision)
}

func TestPolicy_Authorize_Authenticated(t *testing.T) {
	policy := newTestPolicy(t, &fakeOwnershipChecker{})
	ctx := context.Background()

	decision, err := policy.Authorize(ctx, "GET", "/api/me/members", nil)
	require.NoError(t, err)
	assert.Equal(t, DenyUnauthenticated, decision)

	p := Principal{Subject: "alice", Role: RoleUser}
	decision, err = policy.Authorize(ctx, "GET", "/api/me/members", &p)
	require.NoError(t, err)
	assert.Equal(t, Allow, decision)
}

func TestPolicy_Authorize_UnmatchedRouteRequiresAuth(t *testing.T) {
	policy := newTestPolicy(t, &fakeOwnershipChecker{})
	ctx := context.Background()

	decision, err := policy.Authorize(ctx, "GET", "/api/not/registered", nil)
	require.NoError(t, err)
	assert.Equal(t, DenyUnauthenticated, decision,
		"routes missing from the table must not default to public")

	p := Principal{Subject: "alice", Role: RoleUser}
	decision, err = policy.Authorize(ctx, "GET", "/api/not/registered", &p)
	require.NoError(t, err)
	assert.Equal(t, Allow, decision)
}

func TestPolicy_Authorize_OwnerMatrix(t *testing.T) {
	checker := &fakeOwnershipChecker{owners: map[string]string{"42": "alice"}}
	policy := newTestPolicy(t, checker)
	ctx := context.Background()

	alice := Principal{Subject: "alice", Role: RoleUser}
	bob := Principal{Subject: "bob", Role: RoleUser}

	tests := []struct {
		name      string
		path      string
		principal *Principal
		want      Decision
	}{
		{name: "owner_allowed", path: "/api/me/movies/42", principal: &alice, want: Allow},
		{name: "non_owner_forbidden", path: "/api/me/movies/42", principal: &bob, want: DenyForbidden},
		{name: "nonexistent_resource_forbidden", path: "/api/me/movies/9999", principal: &alice, want: DenyForbidden},
		{name: "anonymous_unauthenticated", path: "/api/me/movies/42", principal: nil, want: DenyUnauthenticated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision, err := policy.Authorize(ctx, "PUT", tt.path, tt.principal)
			require.NoError(t, err)
			assert.Equal(t, tt.want, decision)
		})
	}
}

func TestPolicy_Authorize_OwnerLookupOncePerRequest(t *testing.T) {
	checker := &fakeOwnershipChecker{owners: map[string]string{"42": "alice"}}
	policy := newTestPolicy(t, checker)

	p := Principal{Subject: "alice", Role: RoleUser}
	_, err := policy.Authorize(context.Background(), "PUT", "/api/me/movies/42", &p)
	require.NoError(t, err)
	assert.Equal(t, 1, checker.calls)
}

func TestPolicy_Authorize_CheckerFailureIsError(t *testing.T) {
	checker := &fakeOwnershipChecker{err: errors.New("connection refused")}
	policy := newTestPolicy(t, checker)

	p := Principal{Subject: "alice", Role: RoleUser}
	_, err := policy.Authorize(context.Background(), "PUT", "/api/me/movies/42", &p)
	require.Error(t, err, "a store failure must surface as an error, not a deny")
	assert.True(t, vherr.IsServerError(err))
}
