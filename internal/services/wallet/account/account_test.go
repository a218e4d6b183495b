package account

import (
	"errors"
	"testing"
)

func TestValidateCredentialID(t *testing.T) {
	t.Parallel()

	if err := ValidateCredentialID("cred-1"); err != nil {
		t.Fatalf("valid credential id: %v", err)
	}
	if err := ValidateCredentialID("   "); !errors.Is(err, ErrEmptyCredentialID) {
		t.Fatalf("blank credential id error = %v, want %v", err, ErrEmptyCredentialID)
	}
}

func TestValidateUsername(t *testing.T) {
	t.Parallel()

	if err := ValidateUsername("alice"); err != nil {
		t.Fatalf("valid username: %v", err)
	}
	if err := ValidateUsername(""); !errors.Is(err, ErrEmptyUsername) {
		t.Fatalf("empty username error = %v, want %v", err, ErrEmptyUsername)
	}
}

func TestValidateAddress(t *testing.T) {
	t.Parallel()

	valid := "0x52908400098527886e0f7030069857d2e4169ee7"
	if err := ValidateAddress(valid); err != nil {
		t.Fatalf("valid address: %v", err)
	}

	invalid := []string{
		"",
		"not-an-address",
		"0x1234",
		"52908400098527886e0f7030069857d2e4169ee7",
		"0x52908400098527886e0f7030069857d2e4169ezz",
	}
	for _, addr := range invalid {
		if err := ValidateAddress(addr); !errors.Is(err, ErrInvalidAddress) {
			t.Fatalf("address %q error = %v, want %v", addr, err, ErrInvalidAddress)
		}
	}
}
