// Package account defines the wallet account record bound to a passkey credential.
package account

import (
	"regexp"
	"strings"
	"time"

	apperrors "github.com/soniclabs/passkey-wallet/internal/platform/errors"
)

var (
	// ErrEmptyCredentialID indicates a missing credential identifier.
	ErrEmptyCredentialID = apperrors.New(apperrors.CodeValidationCredentialIDEmpty, "credential id is required")
	// ErrEmptyUsername indicates a missing username.
	ErrEmptyUsername = apperrors.New(apperrors.CodeValidationUsernameEmpty, "username is required")
	// ErrInvalidAddress indicates a malformed blockchain address.
	ErrInvalidAddress = apperrors.New(apperrors.CodeValidationAddressInvalid, "address must be 0x-prefixed 20-byte hex")

	addressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)
)

// RecoveredUsername is adopted when a record is synthesized for a credential
// the registry has never seen before.
const RecoveredUsername = "recovered"

// Account binds a passkey credential identifier to a derived chain address.
//
// Address is a pure function of the credential id for a fixed chain, so the
// stored value is a cache of the derivation output, never independently
// assigned.
type Account struct {
	CredentialID string
	Address      string
	Username     string
	CreatedAt    time.Time
	LastAccess   time.Time
	Recovered    bool
}

// ValidateCredentialID enforces the non-empty credential id constraint shared
// by every registry and relay operation.
func ValidateCredentialID(credentialID string) error {
	if strings.TrimSpace(credentialID) == "" {
		return ErrEmptyCredentialID
	}
	return nil
}

// ValidateUsername enforces the non-empty username constraint for creation.
func ValidateUsername(username string) error {
	if strings.TrimSpace(username) == "" {
		return ErrEmptyUsername
	}
	return nil
}

// ValidateAddress reports whether s is a well-formed 0x-prefixed address.
func ValidateAddress(s string) error {
	if !addressPattern.MatchString(s) {
		return ErrInvalidAddress
	}
	return nil
}
