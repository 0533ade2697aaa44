package accounts

import (
	"strings"

	"github.com/goliatone/go-errors"
)

// ErrUnableToFindSession is the error when the request has no cookie
var ErrUnableToFindSession = errors.New("unable to find session", errors.CategoryAuth).
	WithTextCode("SESSION_NOT_FOUND").
	WithCode(errors.CodeUnauthorized)

// ErrUnableToDecodeSession unable to decode JWT from session cookie
var ErrUnableToDecodeSession = errors.New("unable to decode session", errors.CategoryAuth).
	WithTextCode("SESSION_DECODE_FAILED").
	WithCode(errors.CodeUnauthorized)

// ErrUnableToMapClaims unable to get claims from token
var ErrUnableToMapClaims = errors.New("unable to map claims", errors.CategoryAuth).
	WithTextCode("CLAIMS_UNMAPPABLE").
	WithCode(errors.CodeUnauthorized)

// ErrUnableToParseData unable to read registered claims from the token
var ErrUnableToParseData = errors.New("unable to parse claims data", errors.CategoryAuth).
	WithTextCode("CLAIMS_UNPARSABLE").
	WithCode(errors.CodeUnauthorized)

// ErrTokenExpired is returned when a session credential is past its expiry
var ErrTokenExpired = errors.New("token is expired", errors.CategoryAuth).
	WithTextCode("TOKEN_EXPIRED").
	WithCode(errors.CodeUnauthorized)

// ErrTokenMalformed is returned for credentials we cannot parse
var ErrTokenMalformed = errors.New("token is malformed", errors.CategoryAuth).
	WithTextCode("TOKEN_MALFORMED").
	WithCode(errors.CodeUnauthorized)

// ErrNoEmptyString rejects empty passwords before hashing
var ErrNoEmptyString = errors.New("password must not be empty", errors.CategoryValidation).
	WithTextCode("EMPTY_PASSWORD").
	WithCode(errors.CodeBadRequest)

// ErrMismatchedHashAndPassword is the uniform rejection for a failed
// password comparison.
var ErrMismatchedHashAndPassword = errors.New("invalid credentials", errors.CategoryAuth).
	WithTextCode("INVALID_CREDENTIALS").
	WithCode(errors.CodeUnauthorized)

// ErrNotRegistered is returned when login finds no account for the email.
// We do not create accounts implicitly.
var ErrNotRegistered = errors.New("account is not registered", errors.CategoryNotFound).
	WithTextCode("NOT_REGISTERED").
	WithCode(errors.CodeNotFound)

// ErrIdentityNotFound is returned when a provider yields no usable identity
var ErrIdentityNotFound = errors.New("identity not found", errors.CategoryAuth).
	WithTextCode("IDENTITY_NOT_FOUND").
	WithCode(errors.CodeUnauthorized)

// ErrAccountBlocked rejects logins and terminates sessions for blocked accounts
var ErrAccountBlocked = errors.New("account blocked", errors.CategoryAuth).
	WithTextCode("ACCOUNT_BLOCKED").
	WithCode(errors.CodeUnauthorized)

// ErrAccountDeleted is surfaced after a deleted account is purged. The email
// is free again, so the message invites re-registration.
var ErrAccountDeleted = errors.New("account deleted, please re-register", errors.CategoryAuth).
	WithTextCode("ACCOUNT_DELETED").
	WithCode(errors.CodeUnauthorized)

// ErrAccountGone is returned when a session credential references an account
// that no longer exists in the store.
var ErrAccountGone = errors.New("account no longer exists", errors.CategoryAuth).
	WithTextCode("ACCOUNT_GONE").
	WithCode(errors.CodeUnauthorized)

// ErrInvalidAccountStatus signals a persisted status outside the known enum,
// either data corruption or a forward-incompatible schema change.
var ErrInvalidAccountStatus = errors.New("invalid account status", errors.CategoryInternal).
	WithTextCode("INVALID_ACCOUNT_STATUS").
	WithCode(errors.CodeInternal)

// ErrEmailTaken rejects registrations against an email held by a stored account
var ErrEmailTaken = errors.New("email already registered", errors.CategoryConflict).
	WithTextCode("EMAIL_TAKEN").
	WithCode(errors.CodeConflict)

// ErrNoAccountsSelected rejects bulk operations with an empty id set before
// any storage access happens.
var ErrNoAccountsSelected = errors.New("no accounts selected", errors.CategoryValidation).
	WithTextCode("NO_ACCOUNTS_SELECTED").
	WithCode(errors.CodeBadRequest)

// ErrStorageUnavailable is the fail-closed surface for exhausted storage
// retries during login, registration, and bulk mutation.
var ErrStorageUnavailable = errors.New("storage unavailable, please try again", errors.CategoryInternal).
	WithTextCode("STORAGE_UNAVAILABLE").
	WithCode(errors.CodeInternal)

// statusAuthError maps a persisted status to the login admission error for
// that status, nil for active accounts.
func statusAuthError(status AccountStatus) error {
	switch status {
	case StatusActive:
		return nil
	case StatusBlocked:
		return ErrAccountBlocked
	case StatusDeleted:
		return ErrAccountDeleted
	default:
		return ErrInvalidAccountStatus.WithMetadata(map[string]any{
			"status": string(status),
		})
	}
}

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
