// Package storage defines persistence interfaces for the account registry.
package storage

import (
	"context"
	"time"

	apperrors "github.com/soniclabs/passkey-wallet/internal/platform/errors"
	"github.com/soniclabs/passkey-wallet/internal/services/wallet/account"
)

// ErrNotFound indicates a requested record is missing.
var ErrNotFound = apperrors.New(apperrors.CodeNotFound, "record not found")

// AccountStore persists account records keyed by credential id.
//
// Implementations must preserve insertion order in ListAccounts and treat
// PutAccount as an upsert: the registry relies on last-writer-wins username
// overwrites and on re-inserting recovered records.
type AccountStore interface {
	PutAccount(ctx context.Context, record account.Account) error
	GetAccount(ctx context.Context, credentialID string) (account.Account, error)
	TouchAccount(ctx context.Context, credentialID string, lastAccess time.Time) error
	ListAccounts(ctx context.Context) ([]account.Account, error)
}
