package auth

// Role classifies what a principal is allowed to do at the coarsest
// level. The platform currently defines a single role; the type is a
// string so future roles can be added without a schema change.
type Role string

// RoleUser is the role assigned to every registered member.
const RoleUser Role = "USER"

// Principal is the authenticated caller of a request, built from the
// claims of a verified access token. No database lookup is involved:
// whatever the token asserts is trusted, bounded by the signing key.
type Principal struct {
	// Subject is the member id the token was issued for.
	Subject string

	// Role is the role claim of the access token.
	Role Role
}

// PrincipalFromClaims builds a Principal from verified token claims.
// Only access tokens carry a usable principal; passing refresh claims
// returns a principal with an empty role, which the middleware rejects
// before it reaches handlers.
func PrincipalFromClaims(claims *Claims) Principal {
	return Principal{
		Subject: claims.Subject,
		Role:    claims.Role,
	}
}
