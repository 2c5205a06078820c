package auth

import (
	"strings"

	"github.com/goliatone/go-errors"
)

// Text codes surfaced to transport layers alongside categories.
const (
	TextCodeInvalidCreds       = "INVALID_CREDENTIALS"
	TextCodeTokenExpired       = "TOKEN_EXPIRED"
	TextCodeTokenMalformed     = "TOKEN_MALFORMED"
	TextCodeTokenUntrusted     = "TOKEN_UNTRUSTED"
	TextCodeIdentityNotFound   = "IDENTITY_NOT_FOUND"
	TextCodeIdentityUnresolved = "IDENTITY_UNRESOLVED"
	TextCodeAccountInactive    = "ACCOUNT_INACTIVE"
	TextCodeAdminRequired      = "ADMIN_REQUIRED"
	TextCodeAccessDenied       = "ACCESS_DENIED"
	TextCodeSelfDeactivation   = "SELF_DEACTIVATION"
	TextCodeDuplicateUsername  = "DUPLICATE_USERNAME"
	TextCodeDuplicateEmail     = "DUPLICATE_EMAIL"
	TextCodeDuplicateFederated = "DUPLICATE_FEDERATED_ID"
	TextCodeTooManyAttempts    = "TOO_MANY_LOGIN_ATTEMPTS"
	TextCodeEmptyPassword      = "EMPTY_PASSWORD"
	TextCodeMissingBearer      = "MISSING_BEARER_TOKEN"
)

// ErrIdentityNotFound is the error we return for non found identities
var ErrIdentityNotFound = errors.New("identity not found", errors.CategoryNotFound).
	WithTextCode(TextCodeIdentityNotFound)

// ErrMismatchedHashAndPassword covers every failed credential comparison,
// including malformed stored hashes. Callers never learn which.
var ErrMismatchedHashAndPassword = errors.New("the credentials provided are invalid", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCreds)

// ErrNoEmptyString rejects empty plaintext passwords before hashing
var ErrNoEmptyString = errors.New("password must not be empty", errors.CategoryValidation).
	WithTextCode(TextCodeEmptyPassword)

// ErrTokenExpired is terminal: no other signing secret can rescue an
// expired token.
var ErrTokenExpired = errors.New("token is expired", errors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired)

// ErrTokenMalformed covers undecodable token strings
var ErrTokenMalformed = errors.New("token is malformed", errors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed)

// ErrTokenUntrusted is returned when a token decodes but no configured
// secret verifies its signature.
var ErrTokenUntrusted = errors.New("token signature did not match a trusted secret", errors.CategoryAuth).
	WithTextCode(TextCodeTokenUntrusted)

// ErrIdentityUnresolved collapses every resolution and provisioning
// failure so storage-layer detail never reaches an unauthenticated caller.
var ErrIdentityUnresolved = errors.New("could not resolve an account for the token", errors.CategoryAuth).
	WithTextCode(TextCodeIdentityUnresolved)

// ErrAccountInactive blocks deactivated accounts regardless of role
var ErrAccountInactive = errors.New("account is inactive", errors.CategoryBadInput).
	WithTextCode(TextCodeAccountInactive)

// ErrAdminRequired is the role failure for admin-only operations
var ErrAdminRequired = errors.New("admin access required", errors.CategoryAuthz).
	WithTextCode(TextCodeAdminRequired)

// ErrAccessDenied is the self-or-admin ownership failure
var ErrAccessDenied = errors.New("not enough permissions to access this resource", errors.CategoryAuthz).
	WithTextCode(TextCodeAccessDenied)

// ErrSelfDeactivation blocks an admin from deactivating their own account
var ErrSelfDeactivation = errors.New("cannot deactivate your own account", errors.CategoryBadInput).
	WithTextCode(TextCodeSelfDeactivation)

// ErrDuplicateUsername is surfaced during explicit admin-initiated
// account creation, never during auto-provisioning retries.
var ErrDuplicateUsername = errors.New("an account with this username already exists", errors.CategoryConflict).
	WithTextCode(TextCodeDuplicateUsername)

// ErrDuplicateEmail mirrors ErrDuplicateUsername for admin-supplied emails
var ErrDuplicateEmail = errors.New("an account with this email already exists", errors.CategoryConflict).
	WithTextCode(TextCodeDuplicateEmail)

// ErrDuplicateFederatedID is surfaced when an explicit creation collides
// on the federated subject.
var ErrDuplicateFederatedID = errors.New("an account with this federated id already exists", errors.CategoryConflict).
	WithTextCode(TextCodeDuplicateFederated)

// ErrTooManyLoginAttempts enforces the login cool-down window
var ErrTooManyLoginAttempts = errors.New("too many login attempts, try again later", errors.CategoryRateLimit).
	WithTextCode(TextCodeTooManyAttempts)

// ErrMissingBearerToken is returned when the Authorization header is
// absent or does not carry the expected scheme.
var ErrMissingBearerToken = errors.New("missing or malformed bearer token", errors.CategoryAuth).
	WithTextCode(TextCodeMissingBearer)

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTokenExpired) {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}

// IsUntrustedError reports signature failures, including the raw jwt
// library error text for validators that do not wrap.
func IsUntrustedError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTokenUntrusted) {
		return true
	}
	return strings.Contains(err.Error(), "signature is invalid")
}

// IsConflictError reports duplicate username/email/federated-id failures.
func IsConflictError(err error) bool {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		return false
	}
	return richErr.Category == errors.CategoryConflict
}
