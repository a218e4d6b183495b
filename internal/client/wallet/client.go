// Package wallet orchestrates the client side of the passkey wallet: it runs
// credential ceremonies, talks to the wallet HTTP API, and keeps a local
// account cache and transaction history.
package wallet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/soniclabs/passkey-wallet/internal/client/credential"
	"github.com/soniclabs/passkey-wallet/internal/platform/timeouts"
	"github.com/soniclabs/passkey-wallet/internal/services/wallet/derive"
)

// Config controls the client connection and local state location.
type Config struct {
	ServerURL string `env:"PASSKEY_WALLET_SERVER_URL" envDefault:"http://localhost:3000"`
	StatePath string `env:"PASSKEY_WALLET_CLIENT_STATE"`
	ChainID   uint64 `env:"PASSKEY_WALLET_CHAIN_ID"   envDefault:"14601"`
}

// LoadConfigFromEnv returns client configuration with defaults.
func LoadConfigFromEnv() Config {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{ServerURL: "http://localhost:3000", ChainID: 14601}
	}
	return cfg
}

// Account is the client's view of a registered wallet account.
type Account struct {
	CredentialID string    `json:"credentialId"`
	Address      string    `json:"address"`
	Username     string    `json:"username"`
	CreatedAt    time.Time `json:"createdAt"`
	Recovered    bool      `json:"recovered,omitempty"`
}

// TransactionRecord is one entry of the local send history.
type TransactionRecord struct {
	Hash        string    `json:"hash"`
	ExplorerURL string    `json:"explorerUrl"`
	From        string    `json:"from"`
	To          string    `json:"to"`
	Value       string    `json:"value"`
	Timestamp   time.Time `json:"timestamp"`
}

// clientState is the JSON document persisted between runs.
type clientState struct {
	Account      *Account            `json:"account,omitempty"`
	SessionToken string              `json:"sessionToken,omitempty"`
	History      []TransactionRecord `json:"history,omitempty"`
}

// Client drives wallet operations against a server.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	credentials *credential.Manager
	statePath   string
	chainID     uint64
	clock       func() time.Time

	mu    sync.Mutex
	state clientState
}

// NewClient builds a client over the given credential manager.
func NewClient(cfg Config, credentials *credential.Manager) (*Client, error) {
	if credentials == nil {
		return nil, fmt.Errorf("credential manager is required")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.ServerURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("server url is required")
	}

	chainID := cfg.ChainID
	if chainID == 0 {
		chainID = 14601
	}
	c := &Client{
		baseURL:     baseURL,
		httpClient:  &http.Client{Timeout: timeouts.RPCRequest},
		credentials: credentials,
		statePath:   cfg.StatePath,
		chainID:     chainID,
		clock:       time.Now,
	}
	if err := c.loadState(); err != nil {
		return nil, err
	}
	return c, nil
}

// CreateAccount registers a new passkey and a matching server-side account.
func (c *Client) CreateAccount(ctx context.Context, username string) (Account, error) {
	created, err := c.credentials.Register(ctx, username)
	if err != nil {
		return Account{}, err
	}

	var resp struct {
		Account      Account `json:"account"`
		SessionToken string  `json:"sessionToken"`
	}
	err = c.postJSON(ctx, "/api/account/create", map[string]string{
		"credentialId": created.ID,
		"username":     username,
	}, &resp)
	if err != nil {
		return Account{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Account = &resp.Account
	c.state.SessionToken = resp.SessionToken
	if err := c.saveStateLocked(); err != nil {
		return Account{}, err
	}
	return resp.Account, nil
}

// ConnectAccount authenticates with an existing passkey and resolves its
// account. The second result reports whether the server had to recover the
// record from the credential id alone.
func (c *Client) ConnectAccount(ctx context.Context) (Account, bool, error) {
	presented, err := c.credentials.Authenticate(ctx)
	if err != nil {
		return Account{}, false, err
	}

	var resp struct {
		Account       Account `json:"account"`
		IsNewRecovery bool    `json:"isNewRecovery"`
		SessionToken  string  `json:"sessionToken"`
	}
	err = c.postJSON(ctx, "/api/account/retrieve", map[string]string{
		"credentialId": presented.ID,
	}, &resp)
	if err != nil {
		return Account{}, false, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Account = &resp.Account
	c.state.SessionToken = resp.SessionToken
	if err := c.saveStateLocked(); err != nil {
		return Account{}, false, err
	}
	return resp.Account, resp.IsNewRecovery, nil
}

// Disconnect clears the local account, history, and credential slot.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	c.state = clientState{}
	err := c.saveStateLocked()
	c.mu.Unlock()
	if err != nil {
		return err
	}
	return c.credentials.Clear()
}

// Account returns the connected account.
func (c *Client) Account() (Account, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Account == nil {
		return Account{}, false
	}
	return *c.state.Account, true
}

// DisplayAddress returns the address to show for the active credential. It
// prefers the server-registered account address and falls back to the
// client-side pseudo-address derived from the cached credential, so a wallet
// can still render an address before the server has been reached.
func (c *Client) DisplayAddress() (string, error) {
	if account, ok := c.Account(); ok {
		return account.Address, nil
	}
	cached, ok := c.credentials.Cached()
	if !ok {
		return "", fmt.Errorf("no credential cached")
	}
	return derive.PseudoAddress(cached.ID, c.chainID)
}

// Balance fetches the connected account's balance and currency symbol.
func (c *Client) Balance(ctx context.Context) (string, string, error) {
	account, ok := c.Account()
	if !ok {
		return "", "", fmt.Errorf("no account connected")
	}

	var resp struct {
		Balance string `json:"balance"`
		Symbol  string `json:"symbol"`
	}
	err := c.postJSON(ctx, "/api/balance", map[string]string{
		"address": account.Address,
	}, &resp)
	if err != nil {
		return "", "", err
	}
	return resp.Balance, resp.Symbol, nil
}

// EstimateGas quotes fees for a prospective transfer.
func (c *Client) EstimateGas(ctx context.Context, to, amount string) (map[string]any, error) {
	var resp map[string]any
	err := c.postJSON(ctx, "/api/estimate-gas", map[string]string{
		"to":     to,
		"amount": amount,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// Send re-authenticates the passkey, relays a transfer through the server,
// and prepends the result to the newest-first local history.
func (c *Client) Send(ctx context.Context, to, amount string) (TransactionRecord, error) {
	account, ok := c.Account()
	if !ok {
		return TransactionRecord{}, fmt.Errorf("no account connected")
	}

	presented, err := c.credentials.Authenticate(ctx)
	if err != nil {
		return TransactionRecord{}, err
	}
	if presented.ID != account.CredentialID {
		return TransactionRecord{}, fmt.Errorf("presented credential does not match the connected account")
	}

	c.mu.Lock()
	token := c.state.SessionToken
	c.mu.Unlock()

	var resp struct {
		Hash        string `json:"transactionHash"`
		ExplorerURL string `json:"explorerUrl"`
		From        string `json:"from"`
		To          string `json:"to"`
		Value       string `json:"value"`
	}
	err = c.postJSON(ctx, "/api/send-transaction", map[string]string{
		"to":           to,
		"amount":       amount,
		"credentialId": presented.ID,
		"sessionToken": token,
	}, &resp)
	if err != nil {
		return TransactionRecord{}, err
	}

	record := TransactionRecord{
		Hash:        resp.Hash,
		ExplorerURL: resp.ExplorerURL,
		From:        resp.From,
		To:          resp.To,
		Value:       resp.Value,
		Timestamp:   c.clock().UTC(),
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.History = append([]TransactionRecord{record}, c.state.History...)
	if err := c.saveStateLocked(); err != nil {
		return TransactionRecord{}, err
	}
	return record, nil
}

// History returns the local send history, newest first.
func (c *Client) History() []TransactionRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	history := make([]TransactionRecord, len(c.state.History))
	copy(history, c.state.History)
	return history
}

// postJSON posts a payload and decodes the response, surfacing the server's
// {"error": ...} body on failure statuses.
func (c *Client) postJSON(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("call %s: %w", path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		var failure struct {
			Error string `json:"error"`
		}
		if err := json.Unmarshal(data, &failure); err == nil && failure.Error != "" {
			return fmt.Errorf("%s: %s", path, failure.Error)
		}
		return fmt.Errorf("%s: unexpected status %d", path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) loadState() error {
	if c.statePath == "" {
		return nil
	}
	data, err := os.ReadFile(c.statePath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read client state: %w", err)
	}
	if err := json.Unmarshal(data, &c.state); err != nil {
		return fmt.Errorf("decode client state: %w", err)
	}
	return nil
}

func (c *Client) saveStateLocked() error {
	if c.statePath == "" {
		return nil
	}
	data, err := json.Marshal(c.state)
	if err != nil {
		return fmt.Errorf("encode client state: %w", err)
	}
	if dir := filepath.Dir(c.statePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create state dir: %w", err)
		}
	}
	if err := os.WriteFile(c.statePath, data, 0o600); err != nil {
		return fmt.Errorf("write client state: %w", err)
	}
	return nil
}
