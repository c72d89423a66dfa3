package auth

import (
	"encoding/json"
	"log/slog"
	"net/http"

	vherr "github.com/vidhive/vidhive-server/pkg/errors"
)

// HeaderAuthorization is the HTTP header carrying the bearer token.
const HeaderAuthorization = "Authorization"

// ErrorRenderer writes an authentication or authorization failure to
// the response. The API layer supplies its envelope renderer so auth
// failures look like every other error; [defaultRenderError] is used
// when none is given.
type ErrorRenderer func(w http.ResponseWriter, r *http.Request, err *vherr.Error)

// MiddlewareOption configures [Middleware].
type MiddlewareOption func(*middlewareOptions)

type middlewareOptions struct {
	render ErrorRenderer
}

// WithErrorRenderer sets the function used to write auth failures to
// the response.
func WithErrorRenderer(render ErrorRenderer) MiddlewareOption {
	return func(o *middlewareOptions) {
		o.render = render
	}
}

// Middleware returns an HTTP middleware that authenticates every
// request from its bearer token and authorizes it against the policy
// table.
//
// The per-request flow:
//
//  1. No Authorization header: the request proceeds anonymously and is
//     allowed only if the policy classifies the route public;
//     otherwise 401.
//  2. Header present: the token is parsed. Any failure (malformed,
//     bad signature, expired, wrong issuer) is 401 immediately, even
//     on public routes. A present credential is never ignored.
//  3. A refresh-kind token on an API route is 401; refresh tokens are
//     only accepted by the session refresh operation, which reads
//     them from its own header.
//  4. With a verified access token the Principal is attached to the
//     context and the policy decides: owner mismatch is 403, and an
//     ownership store failure is 500, never a deny.
//
// Token values are never logged; failures log the route and error
// code only.
func Middleware(codec *Codec, policy *Policy, opts ...MiddlewareOption) func(http.Handler) http.Handler {
	options := middlewareOptions{render: defaultRenderError}
	for _, opt := range opts {
		opt(&options)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			authHeader := r.Header.Get(HeaderAuthorization)
			if authHeader == "" {
				// Anonymous request: only public routes pass.
				decision, err := policy.Authorize(ctx, r.Method, r.URL.Path, nil)
				if err != nil {
					slog.ErrorContext(ctx, "auth: authorization check failed",
						"method", r.Method,
						"path", r.URL.Path,
						"error", err,
					)
					options.render(w, r, vherr.FromError(err))
					return
				}
				if decision != Allow {
					slog.DebugContext(ctx, "auth: missing credential on protected route",
						"method", r.Method,
						"path", r.URL.Path,
					)
					options.render(w, r, vherr.New(vherr.CodeAuthenticationMissing,
						"authentication required"))
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			token := ExtractBearerToken(authHeader)
			if token == "" {
				options.render(w, r, vherr.New(vherr.CodeAuthenticationInvalid,
					"authorization header is not a bearer token"))
				return
			}

			claims, err := codec.Parse(ctx, token)
			if err != nil {
				vhErr := vherr.FromError(err)
				slog.WarnContext(ctx, "auth: token rejected",
					"method", r.Method,
					"path", r.URL.Path,
					"code", vhErr.Code,
				)
				options.render(w, r, vhErr)
				return
			}

			if claims.Kind != TokenKindAccess {
				slog.WarnContext(ctx, "auth: non-access token presented on api route",
					"method", r.Method,
					"path", r.URL.Path,
					"kind", string(claims.Kind),
				)
				options.render(w, r, vherr.New(vherr.CodeAuthenticationInvalid,
					"token kind is not valid for api requests"))
				return
			}

			principal := PrincipalFromClaims(claims)
			ctx = ContextWithPrincipal(ctx, principal)

			decision, err := policy.Authorize(ctx, r.Method, r.URL.Path, &principal)
			if err != nil {
				slog.ErrorContext(ctx, "auth: authorization check failed",
					"method", r.Method,
					"path", r.URL.Path,
					"subject", principal.Subject,
					"error", err,
				)
				options.render(w, r, vherr.FromError(err))
				return
			}

			switch decision {
			case Allow:
				next.ServeHTTP(w, r.WithContext(ctx))

			case DenyForbidden:
				_, resourceID, _ := policy.Classify(r.Method, r.URL.Path)
				slog.WarnContext(ctx, "auth: owner requirement not met",
					"method", r.Method,
					"path", r.URL.Path,
					"subject", principal.Subject,
					"resource_id", resourceID,
				)
				options.render(w, r, vherr.New(vherr.CodeAuthorizationNotOwner,
					"you do not have access to this resource"))

			default:
				options.render(w, r, vherr.New(vherr.CodeAuthenticationMissing,
					"authentication required"))
			}
		})
	}
}

// defaultRenderError writes the error as a minimal JSON body with the
// status derived from the error code.
func defaultRenderError(w http.ResponseWriter, r *http.Request, err *vherr.Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.HTTPStatus())
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"code":    err.Code,
		"message": err.Message,
	})
}
