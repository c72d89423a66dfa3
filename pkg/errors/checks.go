package errors

import (
	"errors"
)

// AsError extracts an *Error from err's chain. Returns the Error and
// true on success, nil and false otherwise.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// GetCode returns the code of the *Error in err's chain, or "" if none.
func GetCode(err error) Code {
	if e, ok := AsError(err); ok {
		return e.Code
	}
	return ""
}

// HasCode reports whether err carries exactly the given code.
func HasCode(err error, code Code) bool {
	return GetCode(err) == code
}

// isCategory reports whether err carries a code in the given category.
func isCategory(err error, category string) bool {
	e, ok := AsError(err)
	return ok && e.Code.Category() == category
}

// IsValidation reports whether err is a validation error (VAL_xxx).
func IsValidation(err error) bool {
	return isCategory(err, "VAL")
}

// IsAuthentication reports whether err is an authentication error (AUTH_xxx).
func IsAuthentication(err error) bool {
	return isCategory(err, "AUTH")
}

// IsAuthorization reports whether err is an authorization error (AUTHZ_xxx).
func IsAuthorization(err error) bool {
	return isCategory(err, "AUTHZ")
}

// IsNotFound reports whether err is a not found error (NF_xxx).
func IsNotFound(err error) bool {
	return isCategory(err, "NF")
}

// IsConflict reports whether err is a conflict error (CONF_xxx).
func IsConflict(err error) bool {
	return isCategory(err, "CONF")
}

// IsRateLimited reports whether err is a rate limit error (RATE_xxx).
func IsRateLimited(err error) bool {
	return isCategory(err, "RATE")
}

// IsInternal reports whether err is an internal error (INT_xxx).
func IsInternal(err error) bool {
	return isCategory(err, "INT")
}

// IsUnavailable reports whether err is an unavailable error (UNAVAIL_xxx).
func IsUnavailable(err error) bool {
	return isCategory(err, "UNAVAIL")
}

// IsTimeout reports whether err is a timeout error (TIMEOUT_xxx).
func IsTimeout(err error) bool {
	return isCategory(err, "TIMEOUT")
}

// IsServerError reports whether err maps to a 5xx HTTP status.
// Authentication and authorization failures are client errors and
// return false.
func IsServerError(err error) bool {
	e, ok := AsError(err)
	if !ok {
		return false
	}
	switch e.Code.Category() {
	case "INT", "UNAVAIL", "TIMEOUT":
		return true
	default:
		return false
	}
}
