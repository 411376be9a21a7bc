package auth

import (
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// Text codes surfaced to API clients alongside categorized errors
const (
	TextCodeInvalidCreds     = "INVALID_CREDENTIALS"
	TextCodeTokenExpired     = "TOKEN_EXPIRED"
	TextCodeTokenMalformed   = "TOKEN_MALFORMED"
	TextCodeTokenSignature   = "TOKEN_INVALID_SIGNATURE"
	TextCodeTokenUnsupported = "TOKEN_UNSUPPORTED"
	TextCodeDuplicateEmail   = "DUPLICATE_EMAIL"
	TextCodeDuplicateNinea   = "DUPLICATE_REGISTRATION_NUMBER"
	TextCodeResetInvalid     = "RESET_TOKEN_INVALID"
)

// ErrIdentityNotFound is the error we return for non found identities.
// Inactive domain accounts surface this same error on purpose so callers
// cannot tell them apart from unknown usernames.
var ErrIdentityNotFound = goerrors.New("identity not found", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized)

// ErrMismatchedHashAndPassword covers bad credentials without saying which field was wrong
var ErrMismatchedHashAndPassword = goerrors.New("the credentials provided are invalid", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode(TextCodeInvalidCreds)

// ErrNoEmptyString rejects empty passwords before they reach bcrypt
var ErrNoEmptyString = goerrors.New("password must not be empty", goerrors.CategoryValidation)

// ErrTokenExpired is returned when a bearer token is past its expiry claim
var ErrTokenExpired = goerrors.New("authentication token has expired", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode(TextCodeTokenExpired)

// ErrTokenMalformed is returned when a bearer token cannot be parsed
var ErrTokenMalformed = goerrors.New("authentication token is malformed", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode(TextCodeTokenMalformed)

// ErrTokenSignature is returned when the token signature does not verify
var ErrTokenSignature = goerrors.New("authentication token signature is invalid", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode(TextCodeTokenSignature)

// ErrTokenUnsupported is returned for token shapes or algorithms we do not issue
var ErrTokenUnsupported = goerrors.New("authentication token is not supported", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode(TextCodeTokenUnsupported)

// ErrUnknownUser is returned when a password operation targets a username
// with no credential record
var ErrUnknownUser = goerrors.New("unknown user", goerrors.CategoryNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrResetTokenInvalid covers absent, expired, and already consumed reset tokens
var ErrResetTokenInvalid = goerrors.New("password reset token is invalid or expired", goerrors.CategoryValidation).
	WithTextCode(TextCodeResetInvalid)

// ErrDuplicateEmail is returned when a registration email is already taken
// in either identity store
var ErrDuplicateEmail = goerrors.New("email already in use", goerrors.CategoryConflict).
	WithCode(goerrors.CodeConflict).
	WithTextCode(TextCodeDuplicateEmail)

// ErrDuplicateNinea is returned when the company registration number is taken
var ErrDuplicateNinea = goerrors.New("registration number already in use", goerrors.CategoryConflict).
	WithCode(goerrors.CodeConflict).
	WithTextCode(TextCodeDuplicateNinea)

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr.TextCode == TextCodeTokenExpired {
		return true
	}

	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr.TextCode == TextCodeTokenMalformed {
		return true
	}

	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}

// IsDuplicateError reports whether err is one of our duplicate resource errors
func IsDuplicateError(err error) bool {
	if err == nil {
		return false
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr.Category == goerrors.CategoryConflict
	}

	return false
}

// IsUniqueViolation detects store-level unique constraint failures. The
// duplicate pre-checks in registration are advisory only; under concurrency
// the constraint is the actual guard, so its violation must map to a
// duplicate error instead of an internal fault.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}

	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value violates unique constraint") ||
		strings.Contains(msg, "constraint failed")
}
