package errors

// Code is a stable, machine-readable error code in CATEGORY_NNN form.
// Codes never change or get reused once assigned; clients and alerting
// rules may depend on them.
type Code string

const (
	// Validation errors (VAL_xxx) - HTTP 400.

	// CodeValidation indicates a general validation failure.
	CodeValidation Code = "VAL_001"

	// CodeValidationRequired indicates a required field is missing.
	CodeValidationRequired Code = "VAL_002"

	// CodeValidationFileSize indicates an uploaded file exceeds the
	// size limit for its class.
	CodeValidationFileSize Code = "VAL_003"

	// CodeValidationFileType indicates an uploaded file has an
	// extension that is not allowed for its class.
	CodeValidationFileType Code = "VAL_004"

	// Authentication errors (AUTH_xxx) - HTTP 401.

	// CodeAuthentication indicates a general authentication failure,
	// including rejected login credentials. The message must stay
	// generic so it does not reveal which part of the credentials
	// was wrong.
	CodeAuthentication Code = "AUTH_001"

	// CodeAuthenticationExpired indicates the presented token has expired.
	CodeAuthenticationExpired Code = "AUTH_002"

	// CodeAuthenticationInvalid indicates the presented token is
	// malformed or its signature does not verify.
	CodeAuthenticationInvalid Code = "AUTH_003"

	// CodeAuthenticationMissing indicates a protected route was called
	// without any credential. Kept distinct from CodeAuthentication for
	// diagnostics; the external status is the same 401.
	CodeAuthenticationMissing Code = "AUTH_004"

	// Authorization errors (AUTHZ_xxx) - HTTP 403.

	// CodeAuthorization indicates a general authorization failure.
	CodeAuthorization Code = "AUTHZ_001"

	// CodeAuthorizationNotOwner indicates the authenticated principal
	// does not own the addressed resource.
	CodeAuthorizationNotOwner Code = "AUTHZ_002"

	// Not found errors (NF_xxx) - HTTP 404.

	// CodeNotFound indicates a general not found error.
	CodeNotFound Code = "NF_001"

	// CodeNotFoundMember indicates the requested member does not exist.
	CodeNotFoundMember Code = "NF_002"

	// CodeNotFoundVideo indicates the requested video does not exist
	// or is not visible to the caller.
	CodeNotFoundVideo Code = "NF_003"

	// Conflict errors (CONF_xxx) - HTTP 409.

	// CodeConflict indicates a general conflict with current state.
	CodeConflict Code = "CONF_001"

	// CodeConflictAlreadyExists indicates the resource already exists,
	// e.g. a member id taken at registration.
	CodeConflictAlreadyExists Code = "CONF_002"

	// Rate limit errors (RATE_xxx) - HTTP 429.

	// CodeRateLimited indicates the caller exceeded a request budget,
	// e.g. too many login attempts for one member id.
	CodeRateLimited Code = "RATE_001"

	// Internal errors (INT_xxx) - HTTP 500.

	// CodeInternal indicates a general internal error.
	CodeInternal Code = "INT_001"

	// CodeInternalDatabase indicates a database operation failed.
	CodeInternalDatabase Code = "INT_002"

	// CodeInternalStorage indicates a file-storage operation failed.
	CodeInternalStorage Code = "INT_003"

	// CodeInternalConfiguration indicates invalid or unloadable
	// configuration.
	CodeInternalConfiguration Code = "INT_004"

	// Unavailable errors (UNAVAIL_xxx) - HTTP 503.

	// CodeUnavailable indicates a general service unavailable error.
	CodeUnavailable Code = "UNAVAIL_001"

	// CodeUnavailableDependency indicates a dependency (database,
	// object store, redis) is unreachable.
	CodeUnavailableDependency Code = "UNAVAIL_002"

	// Timeout errors (TIMEOUT_xxx) - HTTP 504.

	// CodeTimeout indicates a general timeout error.
	CodeTimeout Code = "TIMEOUT_001"

	// CodeTimeoutDatabase indicates a database operation timed out.
	CodeTimeoutDatabase Code = "TIMEOUT_002"
)

// String returns the string representation of the error code.
func (c Code) String() string {
	return string(c)
}

// Category returns the category prefix of the code (e.g. "AUTH", "NF").
func (c Code) Category() string {
	s := string(c)
	for i, r := range s {
		if r == '_' {
			return s[:i]
		}
	}
	return s
}
