package apperrors

import (
	"errors"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")
	ErrEmailTaken        = errors.New("user with this email already exists")
	ErrUsernameTaken     = errors.New("user with this username already exists")

	// Credential verification. Not found and mismatch must look the same to clients
	ErrCredentialNotFound = errors.New("no user with this email")
	ErrCredentialMismatch = errors.New("password does not match")
	ErrUserDisabled       = errors.New("user account is disabled")

	// Token codec
	ErrTokenMalformed        = errors.New("token is malformed")
	ErrTokenSignatureInvalid = errors.New("token signature is invalid")
	ErrTokenExpired          = errors.New("token is expired")
	ErrTokenWrongType        = errors.New("token has wrong type")

	// Token transport and revocation
	ErrTokenMissing          = errors.New("token not provided")
	ErrTokenRevoked          = errors.New("token is revoked")
	ErrRevocationUnavailable = errors.New("revocation store unavailable")
	ErrUnauthorized          = errors.New("unauthorized")

	ErrTaskNotFound        = errors.New("task not found")
	ErrTaskTitleBlank      = errors.New("title cannot be empty or whitespace only")
	ErrTaskInvalidStatus   = errors.New("task status is invalid")
	ErrTaskInvalidPriority = errors.New("task priority is invalid")
)

// IsUnauthorized reports whether err has to be answered with 401 at the auth boundary
func IsUnauthorized(err error) bool {
	for _, target := range []error{
		ErrTokenMalformed,
		ErrTokenSignatureInvalid,
		ErrTokenExpired,
		ErrTokenWrongType,
		ErrTokenMissing,
		ErrTokenRevoked,
		ErrRevocationUnavailable,
		ErrUnauthorized,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
