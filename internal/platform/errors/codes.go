// Package errors provides structured error handling for the wallet services.
package errors

import "net/http"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Validation errors
	CodeValidationCredentialIDEmpty Code = "VALIDATION_CREDENTIAL_ID_EMPTY"
	CodeValidationUsernameEmpty     Code = "VALIDATION_USERNAME_EMPTY"
	CodeValidationAddressInvalid    Code = "VALIDATION_ADDRESS_INVALID"
	CodeValidationAmountInvalid     Code = "VALIDATION_AMOUNT_INVALID"
	CodeValidationChainIDInvalid    Code = "VALIDATION_CHAIN_ID_INVALID"

	// Ceremony errors
	CodeCeremonyFailed      Code = "CEREMONY_FAILED"
	CodeCeremonyUnsupported Code = "CEREMONY_UNSUPPORTED"

	// Relay errors
	CodeInsufficientFunds Code = "INSUFFICIENT_FUNDS"
	CodeRelayFailed       Code = "RELAY_FAILED"

	// Session errors
	CodeSessionInvalid Code = "SESSION_INVALID"
	CodeSessionExpired Code = "SESSION_EXPIRED"

	// Storage errors
	CodeNotFound Code = "NOT_FOUND"
)

// HTTPStatus maps domain codes to HTTP status codes.
func (c Code) HTTPStatus() int {
	switch c {
	// Bad request - validation failures, bad input
	case CodeValidationCredentialIDEmpty,
		CodeValidationUsernameEmpty,
		CodeValidationAddressInvalid,
		CodeValidationAmountInvalid,
		CodeValidationChainIDInvalid,
		CodeInsufficientFunds,
		CodeSessionInvalid,
		CodeSessionExpired:
		return http.StatusBadRequest

	case CodeNotFound:
		return http.StatusNotFound

	case CodeCeremonyFailed, CodeCeremonyUnsupported:
		return http.StatusUnprocessableEntity

	case CodeRelayFailed:
		return http.StatusInternalServerError
	}
	return http.StatusInternalServerError
}
