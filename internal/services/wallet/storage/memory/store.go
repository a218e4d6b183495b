// Package memory provides an in-memory account store for tests and
// ephemeral runs. Records live exactly as long as the process.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/soniclabs/passkey-wallet/internal/services/wallet/account"
	"github.com/soniclabs/passkey-wallet/internal/services/wallet/storage"
)

// Store keeps account records in a mutex-guarded map. Insertion order is
// tracked separately so ListAccounts matches the durable store's behavior.
type Store struct {
	mu      sync.RWMutex
	records map[string]account.Account
	order   []string
}

// NewStore builds an empty in-memory account store.
func NewStore() *Store {
	return &Store{records: make(map[string]account.Account)}
}

// PutAccount inserts or overwrites the record for its credential id.
func (s *Store) PutAccount(ctx context.Context, record account.Account) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(record.CredentialID) == "" {
		return account.ErrEmptyCredentialID
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[record.CredentialID]; !exists {
		s.order = append(s.order, record.CredentialID)
	}
	s.records[record.CredentialID] = record
	return nil
}

// GetAccount returns the record for a credential id.
func (s *Store) GetAccount(ctx context.Context, credentialID string) (account.Account, error) {
	if err := ctx.Err(); err != nil {
		return account.Account{}, err
	}
	if strings.TrimSpace(credentialID) == "" {
		return account.Account{}, account.ErrEmptyCredentialID
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[credentialID]
	if !ok {
		return account.Account{}, storage.ErrNotFound
	}
	return record, nil
}

// TouchAccount bumps the last-access timestamp for a known credential id.
func (s *Store) TouchAccount(ctx context.Context, credentialID string, lastAccess time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(credentialID) == "" {
		return account.ErrEmptyCredentialID
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[credentialID]
	if !ok {
		return storage.ErrNotFound
	}
	record.LastAccess = lastAccess.UTC()
	s.records[credentialID] = record
	return nil
}

// ListAccounts returns every record in insertion order.
func (s *Store) ListAccounts(ctx context.Context) ([]account.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	records := make([]account.Account, 0, len(s.order))
	for _, credentialID := range s.order {
		records = append(records, s.records[credentialID])
	}
	return records, nil
}
