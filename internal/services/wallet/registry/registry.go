// Package registry maintains the credential-to-account records behind the
// wallet API.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/soniclabs/passkey-wallet/internal/services/wallet/account"
	"github.com/soniclabs/passkey-wallet/internal/services/wallet/derive"
	"github.com/soniclabs/passkey-wallet/internal/services/wallet/storage"
)

// Outcome reports how Retrieve resolved a credential id.
type Outcome string

const (
	// OutcomeFound means an existing record answered the lookup.
	OutcomeFound Outcome = "found"
	// OutcomeRecovered means the record was synthesized on first sight,
	// re-deriving the address from the credential id alone.
	OutcomeRecovered Outcome = "recovered"
)

// Registry coordinates account creation, lookup, and recovery over a store.
//
// Operations on the same credential id are serialized so a concurrent create
// and recover cannot interleave their read-modify-write cycles. Operations on
// distinct credential ids proceed independently.
type Registry struct {
	store   storage.AccountStore
	deriver *derive.Deriver
	chainID uint64
	clock   func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New builds a registry over the given store and deriver. The chain id pins
// which network derived addresses belong to.
func New(store storage.AccountStore, deriver *derive.Deriver, chainID uint64) (*Registry, error) {
	if store == nil {
		return nil, fmt.Errorf("account store is required")
	}
	if deriver == nil {
		return nil, fmt.Errorf("deriver is required")
	}
	if chainID == 0 {
		return nil, derive.ErrInvalidChainID
	}
	return &Registry{
		store:   store,
		deriver: deriver,
		chainID: chainID,
		clock:   time.Now,
		locks:   make(map[string]*sync.Mutex),
	}, nil
}

// lockCredential returns the mutex serializing work on one credential id.
func (r *Registry) lockCredential(credentialID string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	lock, ok := r.locks[credentialID]
	if !ok {
		lock = &sync.Mutex{}
		r.locks[credentialID] = lock
	}
	return lock
}

// Create derives the address for a credential id and stores the record.
//
// Re-creating an existing credential overwrites the username and clears any
// recovered marker; the derived address cannot change, so the binding stays
// stable across overwrites.
func (r *Registry) Create(ctx context.Context, credentialID, username string) (account.Account, error) {
	if err := account.ValidateCredentialID(credentialID); err != nil {
		return account.Account{}, err
	}
	if err := account.ValidateUsername(username); err != nil {
		return account.Account{}, err
	}

	key, err := r.deriver.Derive(credentialID, r.chainID)
	if err != nil {
		return account.Account{}, fmt.Errorf("derive account key: %w", err)
	}

	lock := r.lockCredential(credentialID)
	lock.Lock()
	defer lock.Unlock()

	now := r.clock().UTC()
	record := account.Account{
		CredentialID: credentialID,
		Address:      key.Address(),
		Username:     username,
		CreatedAt:    now,
		LastAccess:   now,
		Recovered:    false,
	}
	if existing, err := r.store.GetAccount(ctx, credentialID); err == nil {
		record.CreatedAt = existing.CreatedAt
	} else if !errors.Is(err, storage.ErrNotFound) {
		return account.Account{}, fmt.Errorf("look up account: %w", err)
	}
	if err := r.store.PutAccount(ctx, record); err != nil {
		return account.Account{}, fmt.Errorf("store account: %w", err)
	}
	return record, nil
}

// Retrieve resolves a credential id to its account record.
//
// A known credential id answers with the stored record and a bumped
// last-access timestamp. An unknown credential id is recovered: because the
// address is a pure function of the credential id, the registry can rebuild
// the record with a placeholder username and persist it as recovered.
func (r *Registry) Retrieve(ctx context.Context, credentialID string) (account.Account, Outcome, error) {
	if err := account.ValidateCredentialID(credentialID); err != nil {
		return account.Account{}, "", err
	}

	lock := r.lockCredential(credentialID)
	lock.Lock()
	defer lock.Unlock()

	now := r.clock().UTC()
	record, err := r.store.GetAccount(ctx, credentialID)
	switch {
	case err == nil:
		record.LastAccess = now
		if err := r.store.TouchAccount(ctx, credentialID, now); err != nil {
			return account.Account{}, "", fmt.Errorf("touch account: %w", err)
		}
		return record, OutcomeFound, nil
	case errors.Is(err, storage.ErrNotFound):
		key, err := r.deriver.Derive(credentialID, r.chainID)
		if err != nil {
			return account.Account{}, "", fmt.Errorf("derive account key: %w", err)
		}
		record = account.Account{
			CredentialID: credentialID,
			Address:      key.Address(),
			Username:     account.RecoveredUsername,
			CreatedAt:    now,
			LastAccess:   now,
			Recovered:    true,
		}
		if err := r.store.PutAccount(ctx, record); err != nil {
			return account.Account{}, "", fmt.Errorf("store recovered account: %w", err)
		}
		return record, OutcomeRecovered, nil
	default:
		return account.Account{}, "", fmt.Errorf("look up account: %w", err)
	}
}

// List returns all known accounts in first-insertion order.
func (r *Registry) List(ctx context.Context) ([]account.Account, error) {
	records, err := r.store.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return records, nil
}
