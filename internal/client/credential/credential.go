// Package credential manages the client-side passkey credential slot.
//
// The manager holds at most one cached credential and drives ceremonies
// through an injected platform authenticator. It never verifies assertions;
// the server trusts presented credential ids by design, so the client's job
// is only to run the browser-equivalent create/get ceremonies and remember
// the resulting credential.
package credential

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"

	apperrors "github.com/soniclabs/passkey-wallet/internal/platform/errors"
	"github.com/soniclabs/passkey-wallet/internal/platform/id"
	"github.com/soniclabs/passkey-wallet/internal/platform/timeouts"
	"github.com/soniclabs/passkey-wallet/internal/services/wallet/account"
)

// Credential is the cached credential slot contents.
type Credential struct {
	ID        string    `json:"id"`
	RawID     []byte    `json:"rawId"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"createdAt"`
}

// Authenticator is the platform authenticator collaborator. Implementations
// bridge to whatever performs the actual WebAuthn ceremony: a browser, an OS
// prompt, or a test fake.
type Authenticator interface {
	// Create runs a registration ceremony for the given creation options.
	Create(ctx context.Context, options protocol.CredentialCreation) (Credential, error)
	// Get runs an assertion ceremony. An empty allow list in the options
	// asks the authenticator to discover any resident credential.
	Get(ctx context.Context, options protocol.CredentialAssertion) (Credential, error)
}

// Manager drives passkey ceremonies and persists the credential slot.
type Manager struct {
	webAuthn      *webauthn.WebAuthn
	authenticator Authenticator
	cachePath     string
	clock         func() time.Time

	mu     sync.Mutex
	cached *Credential
}

// NewManager builds a manager for the given relying party configuration.
func NewManager(cfg Config, authenticator Authenticator) (*Manager, error) {
	if authenticator == nil {
		return nil, fmt.Errorf("authenticator is required")
	}
	webAuthn, err := webauthn.New(&webauthn.Config{
		RPDisplayName: cfg.RPDisplayName,
		RPID:          cfg.RPID,
		RPOrigins:     cfg.RPOrigins,
	})
	if err != nil {
		return nil, fmt.Errorf("configure webauthn: %w", err)
	}

	m := &Manager{
		webAuthn:      webAuthn,
		authenticator: authenticator,
		cachePath:     cfg.CachePath,
		clock:         time.Now,
	}
	if err := m.loadCache(); err != nil {
		return nil, err
	}
	return m, nil
}

// Register runs a registration ceremony and caches the new credential.
// Each call builds fresh creation options, so the challenge is never reused.
func (m *Manager) Register(ctx context.Context, username string) (Credential, error) {
	if err := account.ValidateUsername(username); err != nil {
		return Credential{}, err
	}

	userID, err := id.NewID()
	if err != nil {
		return Credential{}, fmt.Errorf("generate user id: %w", err)
	}
	user := &ceremonyUser{id: []byte(userID), name: username}

	creation, _, err := m.webAuthn.BeginRegistration(user,
		webauthn.WithResidentKeyRequirement(protocol.ResidentKeyRequirementRequired),
	)
	if err != nil {
		return Credential{}, apperrors.Wrap(apperrors.CodeCeremonyFailed, "begin registration", err)
	}

	ctx, cancel := context.WithTimeout(ctx, timeouts.Ceremony)
	defer cancel()
	created, err := m.authenticator.Create(ctx, *creation)
	if err != nil {
		return Credential{}, apperrors.Wrap(apperrors.CodeCeremonyFailed, "registration ceremony failed", err)
	}

	created = normalize(created)
	created.Username = username
	created.CreatedAt = m.clock().UTC()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.cached = &created
	if err := m.saveCacheLocked(); err != nil {
		return Credential{}, err
	}
	return created, nil
}

// Authenticate proves possession of a credential. A cached credential gets a
// scoped assertion first; when nothing is cached or the scoped attempt fails,
// the manager falls back to credential discovery and adopts whatever resident
// credential the authenticator presents.
func (m *Manager) Authenticate(ctx context.Context) (Credential, error) {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Ceremony)
	defer cancel()

	m.mu.Lock()
	cached := m.cached
	m.mu.Unlock()

	if cached != nil {
		presented, err := m.assertScoped(ctx, *cached)
		if err == nil {
			return presented, nil
		}
	}

	discovered, err := m.assertDiscovered(ctx)
	if err != nil {
		return Credential{}, err
	}
	return discovered, nil
}

func (m *Manager) assertScoped(ctx context.Context, cached Credential) (Credential, error) {
	user := &ceremonyUser{
		id:   cached.RawID,
		name: cached.Username,
		credentials: []webauthn.Credential{
			{ID: cached.RawID},
		},
	}
	assertion, _, err := m.webAuthn.BeginLogin(user)
	if err != nil {
		return Credential{}, apperrors.Wrap(apperrors.CodeCeremonyFailed, "begin login", err)
	}
	presented, err := m.authenticator.Get(ctx, *assertion)
	if err != nil {
		return Credential{}, apperrors.Wrap(apperrors.CodeCeremonyFailed, "assertion ceremony failed", err)
	}

	presented = normalize(presented)
	presented.Username = cached.Username
	presented.CreatedAt = cached.CreatedAt
	return presented, nil
}

func (m *Manager) assertDiscovered(ctx context.Context) (Credential, error) {
	assertion, _, err := m.webAuthn.BeginDiscoverableLogin()
	if err != nil {
		return Credential{}, apperrors.Wrap(apperrors.CodeCeremonyFailed, "begin discoverable login", err)
	}
	discovered, err := m.authenticator.Get(ctx, *assertion)
	if err != nil {
		return Credential{}, apperrors.Wrap(apperrors.CodeCeremonyFailed, "credential discovery failed", err)
	}

	discovered = normalize(discovered)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cached != nil && m.cached.ID == discovered.ID {
		discovered.Username = m.cached.Username
		discovered.CreatedAt = m.cached.CreatedAt
		return discovered, nil
	}

	// A credential this client has never seen: adopt it with the
	// placeholder the registry uses for recovered accounts.
	discovered.Username = account.RecoveredUsername
	discovered.CreatedAt = m.clock().UTC()
	m.cached = &discovered
	if err := m.saveCacheLocked(); err != nil {
		return Credential{}, err
	}
	return discovered, nil
}

// HasCached reports whether a credential occupies the slot.
func (m *Manager) HasCached() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cached != nil
}

// Cached returns the slot contents.
func (m *Manager) Cached() (Credential, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cached == nil {
		return Credential{}, false
	}
	return *m.cached, true
}

// Clear empties the slot. Clearing an empty slot is a no-op.
func (m *Manager) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cached = nil
	if m.cachePath == "" {
		return nil
	}
	if err := os.Remove(m.cachePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove credential cache: %w", err)
	}
	return nil
}

// normalize fills the encoded id from the raw id when the authenticator
// returned only one of the two.
func normalize(c Credential) Credential {
	if c.ID == "" && len(c.RawID) > 0 {
		c.ID = base64.RawURLEncoding.EncodeToString(c.RawID)
	}
	if len(c.RawID) == 0 && c.ID != "" {
		if raw, err := base64.RawURLEncoding.DecodeString(c.ID); err == nil {
			c.RawID = raw
		}
	}
	return c
}

func (m *Manager) loadCache() error {
	if m.cachePath == "" {
		return nil
	}
	data, err := os.ReadFile(m.cachePath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read credential cache: %w", err)
	}
	var cached Credential
	if err := json.Unmarshal(data, &cached); err != nil {
		return fmt.Errorf("decode credential cache: %w", err)
	}
	m.cached = &cached
	return nil
}

func (m *Manager) saveCacheLocked() error {
	if m.cachePath == "" || m.cached == nil {
		return nil
	}
	data, err := json.Marshal(m.cached)
	if err != nil {
		return fmt.Errorf("encode credential cache: %w", err)
	}
	if dir := filepath.Dir(m.cachePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create cache dir: %w", err)
		}
	}
	if err := os.WriteFile(m.cachePath, data, 0o600); err != nil {
		return fmt.Errorf("write credential cache: %w", err)
	}
	return nil
}

// ceremonyUser adapts slot state to the webauthn user contract.
type ceremonyUser struct {
	id          []byte
	name        string
	credentials []webauthn.Credential
}

func (u *ceremonyUser) WebAuthnID() []byte {
	return u.id
}

func (u *ceremonyUser) WebAuthnName() string {
	return u.name
}

func (u *ceremonyUser) WebAuthnDisplayName() string {
	return u.name
}

func (u *ceremonyUser) WebAuthnIcon() string {
	return ""
}

func (u *ceremonyUser) WebAuthnCredentials() []webauthn.Credential {
	return u.credentials
}
