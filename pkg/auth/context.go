package auth

import (
	"context"

	"go.opentelemetry.io/otel/trace"
)

// contextKey is an unexported type used for context keys in this package.
// Using a distinct type prevents collisions with keys from other packages.
type contextKey int

const (
	// principalKey stores the authenticated Principal in the context.
	principalKey contextKey = iota
)

// ContextWithPrincipal returns a new context with the given Principal
// attached. The principal can later be retrieved with
// [PrincipalFromContext].
//
// This is called by the HTTP middleware and the gRPC interceptor after
// successfully verifying an access token.
func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext retrieves the Principal from the context.
// Returns the principal and true if present, or a zero Principal and
// false if the request was not authenticated.
//
// Example:
//
//	p, ok := auth.PrincipalFromContext(ctx)
//	if !ok {
//	    return vherr.New(vherr.CodeAuthenticationMissing, "no principal in context")
//	}
//	slog.InfoContext(ctx, "request", "subject", p.Subject, "role", p.Role)
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok
}

// MustPrincipalFromContext retrieves the Principal from the context,
// panicking if none is present. Use only in code paths that run after
// the authentication middleware has guaranteed a principal, such as
// handlers behind an authenticated route.
func MustPrincipalFromContext(ctx context.Context) Principal {
	p, ok := PrincipalFromContext(ctx)
	if !ok {
		panic("auth: no principal in context; ensure authentication middleware is configured")
	}
	return p
}

// TraceIDFromContext extracts the OpenTelemetry trace ID from the context.
// Returns the trace ID as a hex string and true if a valid trace is active,
// or an empty string and false if no trace is present.
//
// This lets authentication events be correlated with distributed traces.
func TraceIDFromContext(ctx context.Context) (string, bool) {
	spanCtx := trace.SpanFromContext(ctx).SpanContext()
	if !spanCtx.HasTraceID() {
		return "", false
	}
	return spanCtx.TraceID().String(), true
}
