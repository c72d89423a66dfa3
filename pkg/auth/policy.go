package auth

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	vherr "github.com/vidhive/vidhive-server/pkg/errors"
)

// ---------------------------------------------------------------------------
// Requirement — what a route demands of its caller
// ---------------------------------------------------------------------------

// Requirement is the access level a route demands.
type Requirement int

const (
	// RequirePublic routes accept anonymous callers.
	RequirePublic Requirement = iota

	// RequireAuthenticated routes demand a verified access token.
	RequireAuthenticated

	// RequireOwner routes demand a verified access token whose subject
	// owns the resource addressed by the route's id segment.
	RequireOwner
)

// String returns a human-readable name for the requirement.
func (r Requirement) String() string {
	switch r {
	case RequirePublic:
		return "public"
	case RequireAuthenticated:
		return "authenticated"
	case RequireOwner:
		return "owner"
	default:
		return "unknown"
	}
}

// ResourceKind names a class of owned resources for ownership lookups.
type ResourceKind string

// ResourceKindVideo is the resource kind for videos.
const ResourceKindVideo ResourceKind = "video"

// ---------------------------------------------------------------------------
// Rule — one route's access requirement
// ---------------------------------------------------------------------------

// Rule binds an HTTP method and path pattern to an access requirement.
// Patterns are literal path segments with "{name}" placeholders, e.g.
// "/api/me/movies/{id}". For RequireOwner rules the first placeholder
// segment is the resource id and ResourceKind must be set.
type Rule struct {
	Method       string
	Pattern      string
	Requirement  Requirement
	ResourceKind ResourceKind
}

// compiledRule is a Rule with its pattern split into segments, prepared
// once at policy construction.
type compiledRule struct {
	Rule
	segments []string
	// idIndex is the segment index of the resource id placeholder, or
	// -1 when the pattern has no placeholder.
	idIndex int
}

// ---------------------------------------------------------------------------
// Decision — the outcome of an authorization check
// ---------------------------------------------------------------------------

// Decision is the outcome of [Policy.Authorize].
type Decision int

const (
	// Allow grants the request.
	Allow Decision = iota

	// DenyUnauthenticated rejects the request because no principal was
	// presented. Maps to HTTP 401.
	DenyUnauthenticated

	// DenyForbidden rejects the request because the principal does not
	// own the addressed resource. Maps to HTTP 403.
	DenyForbidden
)

// String returns a human-readable name for the decision.
func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case DenyUnauthenticated:
		return "deny_unauthenticated"
	case DenyForbidden:
		return "deny_forbidden"
	default:
		return "unknown"
	}
}

// ---------------------------------------------------------------------------
// OwnershipChecker — resolves resource ownership
// ---------------------------------------------------------------------------

// OwnershipChecker resolves whether a subject owns a resource. The
// store-backed implementation lives in pkg/store; the policy calls it
// once per owner-protected request, with no caching.
//
// IsOwner returns (false, nil) for a resource that does not exist, so
// callers cannot distinguish missing resources from resources owned by
// someone else. Infrastructure failures are returned as errors and
// must never be reported as a deny.
type OwnershipChecker interface {
	IsOwner(ctx context.Context, kind ResourceKind, resourceID, subject string) (bool, error)
}

// ---------------------------------------------------------------------------
// Policy — the route access table
// ---------------------------------------------------------------------------

// Policy is a fixed table of access rules consulted by the HTTP
// middleware for every request. Routes that match no rule default to
// RequireAuthenticated, so forgetting to register a route can never
// silently expose it.
//
// Policy is safe for concurrent use; the rule table is immutable after
// construction.
type Policy struct {
	rules   []compiledRule
	checker OwnershipChecker
	tracer  trace.Tracer
}

// NewPolicy builds a Policy from the given rules. The checker is
// consulted for RequireOwner rules and may be nil if the table has
// none.
func NewPolicy(rules []Rule, checker OwnershipChecker) (*Policy, error) {
	compiled := make([]compiledRule, 0, len(rules))
	for _, r := range rules {
		if r.Method == "" || r.Pattern == "" {
			return nil, vherr.New(vherr.CodeValidation, "auth: policy rule must have a method and pattern")
		}
		if !strings.HasPrefix(r.Pattern, "/") {
			return nil, vherr.Newf(vherr.CodeValidation, "auth: policy pattern %q must start with /", r.Pattern)
		}

		segments := splitPath(r.Pattern)
		idIndex := -1
		for i, seg := range segments {
			if isPlaceholder(seg) {
				idIndex = i
				break
			}
		}

		if r.Requirement == RequireOwner {
			if idIndex < 0 {
				return nil, vherr.Newf(vherr.CodeValidation,
					"auth: owner rule %q has no id placeholder", r.Pattern)
			}
			if r.ResourceKind == "" {
				return nil, vherr.Newf(vherr.CodeValidation,
					"auth: owner rule %q has no resource kind", r.Pattern)
			}
		}

		compiled = append(compiled, compiledRule{
			Rule:     r,
			segments: segments,
			idIndex:  idIndex,
		})
	}

	if checker == nil {
		for _, cr := range compiled {
			if cr.Requirement == RequireOwner {
				return nil, vherr.New(vherr.CodeValidation,
					"auth: policy has owner rules but no ownership checker")
			}
		}
	}

	return &Policy{
		rules:   compiled,
		checker: checker,
		tracer:  otel.Tracer(tracerName),
	}, nil
}

// Classify finds the rule matching the given method and path. Returns
// the rule, the value of its id placeholder segment (empty when the
// pattern has none), and whether a rule matched. Unmatched routes are
// the caller's responsibility; [Policy.Authorize] treats them as
// RequireAuthenticated.
func (p *Policy) Classify(method, path string) (Rule, string, bool) {
	segments := splitPath(path)

	for _, cr := range p.rules {
		if cr.Method != method {
			continue
		}
		if !matchSegments(cr.segments, segments) {
			continue
		}
		resourceID := ""
		if cr.idIndex >= 0 && cr.idIndex < len(segments) {
			resourceID = segments[cr.idIndex]
		}
		return cr.Rule, resourceID, true
	}
	return Rule{}, "", false
}

// Authorize evaluates the access rule for the route against the given
// principal. A nil principal means the request carried no (valid)
// credential.
//
// An error return means the decision could not be made (the ownership
// store failed); it is never a deny and must surface as a server
// error, not a 401 or 403.
func (p *Policy) Authorize(ctx context.Context, method, path string, principal *Principal) (Decision, error) {
	ctx, span := startSpan(ctx, p.tracer, "auth.Authorize")
	defer span.End()

	rule, resourceID, matched := p.Classify(method, path)
	requirement := rule.Requirement
	if !matched {
		// Unregistered routes demand authentication. A route can only
		// be public by appearing in the table.
		requirement = RequireAuthenticated
	}

	span.SetAttributes(
		attribute.String("auth.requirement", requirement.String()),
		attribute.String("http.method", method),
	)

	switch requirement {
	case RequirePublic:
		return Allow, nil

	case RequireAuthenticated:
		if principal == nil {
			return DenyUnauthenticated, nil
		}
		return Allow, nil

	case RequireOwner:
		if principal == nil {
			return DenyUnauthenticated, nil
		}
		owner, err := p.checker.IsOwner(ctx, rule.ResourceKind, resourceID, principal.Subject)
		if err != nil {
			finishSpan(span, err)
			return DenyForbidden, vherr.Wrap(err, vherr.CodeInternal, "auth: ownership check failed")
		}
		if !owner {
			span.SetAttributes(attribute.String("auth.decision", DenyForbidden.String()))
			return DenyForbidden, nil
		}
		return Allow, nil

	default:
		return DenyUnauthenticated, vherr.Newf(vherr.CodeInternal,
			"auth: unknown requirement %d for %s %s", requirement, method, path)
	}
}

// ---------------------------------------------------------------------------
// Pattern matching helpers
// ---------------------------------------------------------------------------

// splitPath splits a URL path into its non-empty segments.
func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

// isPlaceholder reports whether a pattern segment is a "{name}"
// placeholder.
func isPlaceholder(seg string) bool {
	return len(seg) > 2 && seg[0] == '{' && seg[len(seg)-1] == '}'
}

// matchSegments reports whether the path segments match the pattern
// segments. Placeholders match any single non-empty segment.
func matchSegments(pattern, path []string) bool {
	if len(pattern) != len(path) {
		return false
	}
	for i, seg := range pattern {
		if isPlaceholder(seg) {
			if path[i] == "" {
				return false
			}
			continue
		}
		if seg != path[i] {
			return false
		}
	}
	return true
}
