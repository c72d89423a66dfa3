// Package errors defines the coded error type shared by every vidhive
// service package. Each error carries a stable machine-readable code
// (e.g. "AUTH_002"), a human-readable message, an optional cause, and
// optional structured details.
//
// Codes are grouped into categories that map one-to-one onto HTTP status
// codes, so transport handlers can translate any error produced anywhere
// in the stack without inspecting messages:
//
//	VAL_xxx     validation failures        400
//	AUTH_xxx    authentication failures    401
//	AUTHZ_xxx   authorization failures     403
//	NF_xxx      missing resources          404
//	CONF_xxx    state conflicts            409
//	RATE_xxx    rate limiting              429
//	INT_xxx     internal failures          500
//	UNAVAIL_xxx dependency outages         503
//	TIMEOUT_xxx exceeded deadlines         504
//
// Create errors with [New], [Newf], [Wrap], or [Wrapf]; classify them
// with the Is* helpers or [GetCode]. Messages may reach end users and
// must never contain credentials, tokens, or file-system paths.
package errors
