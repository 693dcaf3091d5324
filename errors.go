package auth

import (
	"net/http"

	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeInvalidCredentials       = "invalid_credentials"
	TextCodeEmailNotVerified         = "email_not_verified"
	TextCodeUserConflict             = "user_conflict"
	TextCodeInvalidRefreshToken      = "invalid_refresh_token"
	TextCodeMissingRefreshToken      = "missing_refresh_token"
	TextCodeTokenExpired             = "token_expired"
	TextCodeTokenNotYetValid         = "token_not_yet_valid"
	TextCodeTokenMalformed           = "token_malformed"
	TextCodeAccessTokenExpired       = "access_token_expired"
	TextCodeAccessTokenNotYetValid   = "access_token_not_yet_valid"
	TextCodeInvalidAccessToken       = "invalid_access_token"
	TextCodeNotAuthorized            = "not_authorized"
	TextCodeInvalidVerificationToken = "invalid_verification_token"
	TextCodeVerificationTokenExpired = "verification_token_expired"
	TextCodeUserNotFound             = "user_not_found"
	TextCodeAlreadyVerified          = "already_verified"
	TextCodeExhaustedRetries         = "exhausted_retries"
	TextCodeInternalError            = "internal_error"
	TextCodeInvalidPayload           = "invalid_payload"
	TextCodeInvalidConfig            = "invalid_config"
	TextCodeRecordConflict           = "record_conflict"
	TextCodeRecordNotFound           = "record_not_found"
)

// Error contexts rendered in the error envelope next to each message.
const (
	ContextAuth     = "auth"
	ContextRefresh  = "auth:refresh"
	ContextActivate = "auth:activate"
	ContextUser     = "user"
	ContextServer   = "server"
)

// MetaContext is the metadata key holding the error context.
const MetaContext = "context"

// MetaExpired flags token expiry errors so clients can force a new login.
const MetaExpired = "expired"

// ErrInvalidCredentials is returned when the email/password pair does not match.
var ErrInvalidCredentials = newKind("Authorization failed", goerrors.CategoryAuth,
	TextCodeInvalidCredentials, goerrors.CodeUnauthorized, ContextAuth)

// ErrEmailNotVerified blocks session issuance for inactive accounts.
var ErrEmailNotVerified = newKind("User's email is not verified", goerrors.CategoryAuthz,
	TextCodeEmailNotVerified, goerrors.CodeForbidden, ContextAuth)

// ErrUserConflict is returned on signup when the email is taken.
var ErrUserConflict = newKind("User is already exists", goerrors.CategoryConflict,
	TextCodeUserConflict, http.StatusUnprocessableEntity, ContextUser)

var ErrInvalidRefreshToken = newKind("Invalid refresh token", goerrors.CategoryAuth,
	TextCodeInvalidRefreshToken, goerrors.CodeUnauthorized, ContextRefresh)

var ErrMissingRefreshToken = newKind("Missing refresh token", goerrors.CategoryAuth,
	TextCodeMissingRefreshToken, goerrors.CodeUnauthorized, ContextRefresh)

// ErrTokenExpired is the generic expiry error produced by the token verifier.
var ErrTokenExpired = newKind("Token is expired", goerrors.CategoryAuth,
	TextCodeTokenExpired, goerrors.CodeUnauthorized, ContextAuth).
	WithMetadata(map[string]any{MetaContext: ContextAuth, MetaExpired: true})

// ErrRefreshTokenExpired tells the client to login again instead of retrying.
var ErrRefreshTokenExpired = newKind("Refresh token expired, please login again", goerrors.CategoryAuth,
	TextCodeTokenExpired, goerrors.CodeUnauthorized, ContextRefresh).
	WithMetadata(map[string]any{MetaContext: ContextRefresh, MetaExpired: true})

var ErrTokenNotYetValid = newKind("Token is not valid yet", goerrors.CategoryAuth,
	TextCodeTokenNotYetValid, goerrors.CodeUnauthorized, ContextAuth)

var ErrTokenMalformed = newKind("Token is malformed", goerrors.CategoryAuth,
	TextCodeTokenMalformed, goerrors.CodeUnauthorized, ContextAuth)

var ErrAccessTokenExpired = newKind("Access token is expired", goerrors.CategoryAuth,
	TextCodeAccessTokenExpired, goerrors.CodeUnauthorized, ContextAuth).
	WithMetadata(map[string]any{MetaContext: ContextAuth, MetaExpired: true})

var ErrAccessTokenNotYetValid = newKind("Access token is not valid yet", goerrors.CategoryAuth,
	TextCodeAccessTokenNotYetValid, goerrors.CodeUnauthorized, ContextAuth)

var ErrInvalidAccessToken = newKind("Invalid access token", goerrors.CategoryAuth,
	TextCodeInvalidAccessToken, goerrors.CodeUnauthorized, ContextAuth)

// ErrNotAuthorized is returned by the guard when no identity was attached.
var ErrNotAuthorized = newKind("Not authorized", goerrors.CategoryAuth,
	TextCodeNotAuthorized, goerrors.CodeUnauthorized, ContextAuth)

var ErrInvalidVerificationToken = newKind("Invalid verification token", goerrors.CategoryBadInput,
	TextCodeInvalidVerificationToken, goerrors.CodeBadRequest, ContextActivate)

var ErrVerificationTokenExpired = newKind("Verification token is expired", goerrors.CategoryBadInput,
	TextCodeVerificationTokenExpired, http.StatusGone, ContextActivate)

var ErrUserNotFound = newKind("User not found", goerrors.CategoryNotFound,
	TextCodeUserNotFound, goerrors.CodeNotFound, ContextUser)

// ErrResendUserNotFound is the resend variant of ErrUserNotFound, answered with 400.
var ErrResendUserNotFound = newKind("User with given email does not exist", goerrors.CategoryNotFound,
	TextCodeUserNotFound, goerrors.CodeBadRequest, ContextUser)

var ErrAlreadyVerified = newKind("User is already active and verified", goerrors.CategoryValidation,
	TextCodeAlreadyVerified, http.StatusUnprocessableEntity, ContextUser)

// ErrExhaustedRetries means the verification token store kept reporting
// collisions. At 256 bits of entropy this points to a store bug.
var ErrExhaustedRetries = newKind("Failed to generate unique verification token", goerrors.CategoryInternal,
	TextCodeExhaustedRetries, goerrors.CodeInternal, ContextServer)

var ErrInternal = newKind("Internal server error", goerrors.CategoryInternal,
	TextCodeInternalError, goerrors.CodeInternal, ContextServer)

var ErrInvalidPayload = newKind("Invalid request payload", goerrors.CategoryValidation,
	TextCodeInvalidPayload, goerrors.CodeBadRequest, ContextServer)

var ErrInvalidConfig = newKind("Invalid auth configuration", goerrors.CategoryInternal,
	TextCodeInvalidConfig, goerrors.CodeInternal, ContextServer)

// ErrRecordConflict is returned by stores on unique constraint violations.
var ErrRecordConflict = newKind("Record already exists", goerrors.CategoryConflict,
	TextCodeRecordConflict, goerrors.CodeConflict, ContextServer)

// ErrRecordNotFound is returned by stores when a keyed row is missing.
var ErrRecordNotFound = newKind("Record not found", goerrors.CategoryNotFound,
	TextCodeRecordNotFound, goerrors.CodeNotFound, ContextServer)

func newKind(msg string, category goerrors.Category, textCode string, code int, errCtx string) *goerrors.Error {
	return goerrors.New(msg, category).
		WithTextCode(textCode).
		WithCode(code).
		WithMetadata(map[string]any{MetaContext: errCtx})
}

// HasTextCode reports whether err is a rich error carrying the given text code.
func HasTextCode(err error, textCode string) bool {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	return richErr.TextCode == textCode
}

// IsConflict reports store level unique violations.
func IsConflict(err error) bool {
	return hasCategory(err, goerrors.CategoryConflict)
}

// IsNotFound reports store level missing rows.
func IsNotFound(err error) bool {
	return hasCategory(err, goerrors.CategoryNotFound)
}

// IsTokenExpired reports any of the expiry errors, which all carry the
// expired metadata flag.
func IsTokenExpired(err error) bool {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	expired, _ := richErr.Metadata[MetaExpired].(bool)
	return expired
}

// ErrorContext returns the envelope context attached to err.
func ErrorContext(err error) string {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		if c, ok := richErr.Metadata[MetaContext].(string); ok && c != "" {
			return c
		}
	}
	return ContextServer
}

func hasCategory(err error, category goerrors.Category) bool {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	return richErr.Category == category
}

// wrapInternal keeps rich errors intact and wraps everything else as an
// internal failure.
func wrapInternal(err error, msg string) error {
	if err == nil {
		return nil
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr
	}
	return goerrors.Wrap(err, goerrors.CategoryInternal, msg).
		WithTextCode(TextCodeInternalError).
		WithCode(goerrors.CodeInternal).
		WithMetadata(map[string]any{MetaContext: ContextServer})
}
