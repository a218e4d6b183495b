package credential

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/go-webauthn/webauthn/protocol"

	apperrors "github.com/soniclabs/passkey-wallet/internal/platform/errors"
	"github.com/soniclabs/passkey-wallet/internal/services/wallet/account"
)

// fakeAuthenticator scripts ceremony outcomes and records the options it saw.
type fakeAuthenticator struct {
	createFunc func(ctx context.Context, options protocol.CredentialCreation) (Credential, error)
	getFunc    func(ctx context.Context, options protocol.CredentialAssertion) (Credential, error)

	createChallenges []protocol.URLEncodedBase64
	getOptions       []protocol.CredentialAssertion
}

func (f *fakeAuthenticator) Create(ctx context.Context, options protocol.CredentialCreation) (Credential, error) {
	f.createChallenges = append(f.createChallenges, options.Response.Challenge)
	if f.createFunc != nil {
		return f.createFunc(ctx, options)
	}
	return Credential{RawID: []byte("raw-credential-1")}, nil
}

func (f *fakeAuthenticator) Get(ctx context.Context, options protocol.CredentialAssertion) (Credential, error) {
	f.getOptions = append(f.getOptions, options)
	if f.getFunc != nil {
		return f.getFunc(ctx, options)
	}
	return Credential{RawID: []byte("raw-credential-1")}, nil
}

func testConfig(t *testing.T) Config {
	t.Helper()
	return Config{
		RPDisplayName: "Sonic Passkey Wallet",
		RPID:          "localhost",
		RPOrigins:     []string{"http://localhost:3000"},
		CachePath:     filepath.Join(t.TempDir(), "credential.json"),
	}
}

func TestRegisterCachesCredential(t *testing.T) {
	t.Parallel()

	auth := &fakeAuthenticator{}
	m, err := NewManager(testConfig(t), auth)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	created, err := m.Register(context.Background(), "alice")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if created.Username != "alice" {
		t.Fatalf("username = %q, want %q", created.Username, "alice")
	}
	if created.ID == "" {
		t.Fatal("credential id is empty")
	}
	if !m.HasCached() {
		t.Fatal("credential not cached after registration")
	}
}

func TestRegisterChallengeFreshness(t *testing.T) {
	t.Parallel()

	auth := &fakeAuthenticator{}
	m, err := NewManager(testConfig(t), auth)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	for i := range 3 {
		if _, err := m.Register(context.Background(), fmt.Sprintf("user-%d", i)); err != nil {
			t.Fatalf("register %d: %v", i, err)
		}
	}
	if len(auth.createChallenges) != 3 {
		t.Fatalf("challenges seen = %d, want 3", len(auth.createChallenges))
	}
	for i := range auth.createChallenges {
		for j := i + 1; j < len(auth.createChallenges); j++ {
			if bytes.Equal(auth.createChallenges[i], auth.createChallenges[j]) {
				t.Fatalf("challenge %d reused at %d", i, j)
			}
		}
	}
}

func TestAuthenticateChallengeFreshness(t *testing.T) {
	t.Parallel()

	auth := &fakeAuthenticator{}
	m, err := NewManager(testConfig(t), auth)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	if _, err := m.Register(context.Background(), "alice"); err != nil {
		t.Fatalf("register: %v", err)
	}

	for i := range 2 {
		if _, err := m.Authenticate(context.Background()); err != nil {
			t.Fatalf("authenticate %d: %v", i, err)
		}
	}
	if len(auth.getOptions) != 2 {
		t.Fatalf("assertions run = %d, want 2", len(auth.getOptions))
	}
	if bytes.Equal(auth.getOptions[0].Response.Challenge, auth.getOptions[1].Response.Challenge) {
		t.Fatal("consecutive assertions reused a challenge")
	}
}

func TestRegisterCeremonyFailure(t *testing.T) {
	t.Parallel()

	auth := &fakeAuthenticator{
		createFunc: func(ctx context.Context, options protocol.CredentialCreation) (Credential, error) {
			return Credential{}, fmt.Errorf("user cancelled")
		},
	}
	m, err := NewManager(testConfig(t), auth)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	_, err = m.Register(context.Background(), "alice")
	if apperrors.GetCode(err) != apperrors.CodeCeremonyFailed {
		t.Fatalf("error code = %q, want %q", apperrors.GetCode(err), apperrors.CodeCeremonyFailed)
	}
	if m.HasCached() {
		t.Fatal("failed ceremony left a cached credential")
	}
}

func TestAuthenticateScopedForCachedCredential(t *testing.T) {
	t.Parallel()

	auth := &fakeAuthenticator{}
	m, err := NewManager(testConfig(t), auth)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	if _, err := m.Register(context.Background(), "alice"); err != nil {
		t.Fatalf("register: %v", err)
	}

	presented, err := m.Authenticate(context.Background())
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if presented.Username != "alice" {
		t.Fatalf("username = %q, want %q", presented.Username, "alice")
	}
	if len(auth.getOptions) != 1 {
		t.Fatalf("assertions run = %d, want 1", len(auth.getOptions))
	}
	if len(auth.getOptions[0].Response.AllowedCredentials) == 0 {
		t.Fatal("cached credential assertion was not scoped")
	}
}

func TestAuthenticateFallsBackToDiscovery(t *testing.T) {
	t.Parallel()

	calls := 0
	auth := &fakeAuthenticator{
		getFunc: func(ctx context.Context, options protocol.CredentialAssertion) (Credential, error) {
			calls++
			if len(options.Response.AllowedCredentials) > 0 {
				return Credential{}, fmt.Errorf("credential not on this device")
			}
			return Credential{RawID: []byte("resident-credential")}, nil
		},
	}
	m, err := NewManager(testConfig(t), auth)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	if _, err := m.Register(context.Background(), "alice"); err != nil {
		t.Fatalf("register: %v", err)
	}

	discovered, err := m.Authenticate(context.Background())
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if calls != 2 {
		t.Fatalf("ceremonies run = %d, want scoped then discovery", calls)
	}
	if discovered.Username != account.RecoveredUsername {
		t.Fatalf("adopted username = %q, want %q", discovered.Username, account.RecoveredUsername)
	}
}

func TestAuthenticateDiscoveryWithoutCache(t *testing.T) {
	t.Parallel()

	auth := &fakeAuthenticator{
		getFunc: func(ctx context.Context, options protocol.CredentialAssertion) (Credential, error) {
			if len(options.Response.AllowedCredentials) > 0 {
				t.Error("expected discovery options with no allow list")
			}
			return Credential{RawID: []byte("resident-credential")}, nil
		},
	}
	m, err := NewManager(testConfig(t), auth)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	discovered, err := m.Authenticate(context.Background())
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if discovered.Username != account.RecoveredUsername {
		t.Fatalf("username = %q, want %q", discovered.Username, account.RecoveredUsername)
	}
	if !m.HasCached() {
		t.Fatal("discovered credential was not adopted")
	}
}

func TestAuthenticateFailsAfterBothPaths(t *testing.T) {
	t.Parallel()

	auth := &fakeAuthenticator{
		getFunc: func(ctx context.Context, options protocol.CredentialAssertion) (Credential, error) {
			return Credential{}, fmt.Errorf("no credentials available")
		},
	}
	m, err := NewManager(testConfig(t), auth)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	_, err = m.Authenticate(context.Background())
	if apperrors.GetCode(err) != apperrors.CodeCeremonyFailed {
		t.Fatalf("error code = %q, want %q", apperrors.GetCode(err), apperrors.CodeCeremonyFailed)
	}
}

func TestCachePersistsAcrossManagers(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	auth := &fakeAuthenticator{}
	m, err := NewManager(cfg, auth)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	created, err := m.Register(context.Background(), "alice")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	reopened, err := NewManager(cfg, auth)
	if err != nil {
		t.Fatalf("reopen manager: %v", err)
	}
	cached, ok := reopened.Cached()
	if !ok {
		t.Fatal("cache did not survive reopen")
	}
	if cached.ID != created.ID {
		t.Fatalf("cached id = %q, want %q", cached.ID, created.ID)
	}
}

func TestClearIsIdempotent(t *testing.T) {
	t.Parallel()

	m, err := NewManager(testConfig(t), &fakeAuthenticator{})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	if _, err := m.Register(context.Background(), "alice"); err != nil {
		t.Fatalf("register: %v", err)
	}

	if err := m.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if m.HasCached() {
		t.Fatal("credential survived clear")
	}
	if err := m.Clear(); err != nil {
		t.Fatalf("second clear: %v", err)
	}
}
