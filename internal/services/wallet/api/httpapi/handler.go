// Package httpapi exposes the wallet operations over HTTP+JSON.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	apperrors "github.com/soniclabs/passkey-wallet/internal/platform/errors"
	"github.com/soniclabs/passkey-wallet/internal/services/wallet/chain"
	"github.com/soniclabs/passkey-wallet/internal/services/wallet/derive"
	"github.com/soniclabs/passkey-wallet/internal/services/wallet/registry"
	"github.com/soniclabs/passkey-wallet/internal/services/wallet/relay"
	"github.com/soniclabs/passkey-wallet/internal/services/wallet/session"
)

// Config toggles optional API surfaces.
type Config struct {
	// RequireSession makes send requests carry a valid session grant.
	RequireSession bool
	// ExposePrivateKeys enables the development-only key export endpoint.
	ExposePrivateKeys bool
}

// Handler serves the wallet HTTP API.
type Handler struct {
	registry *registry.Registry
	relay    *relay.Relay
	client   chain.Client
	network  chain.Network
	deriver  *derive.Deriver
	sessions *session.Minter
	config   Config
}

// New builds the API handler. sessions may be nil when grants are disabled.
func New(reg *registry.Registry, rel *relay.Relay, client chain.Client, network chain.Network, deriver *derive.Deriver, sessions *session.Minter, config Config) (*Handler, error) {
	if reg == nil {
		return nil, fmt.Errorf("registry is required")
	}
	if rel == nil {
		return nil, fmt.Errorf("relay is required")
	}
	if client == nil {
		return nil, fmt.Errorf("chain client is required")
	}
	if deriver == nil {
		return nil, fmt.Errorf("deriver is required")
	}
	if config.RequireSession && sessions == nil {
		return nil, fmt.Errorf("session minter is required when sessions are enforced")
	}
	return &Handler{
		registry: reg,
		relay:    rel,
		client:   client,
		network:  network,
		deriver:  deriver,
		sessions: sessions,
		config:   config,
	}, nil
}

// Routes registers every endpoint on a fresh mux.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/account/create", h.handleAccountCreate)
	mux.HandleFunc("/api/account/retrieve", h.handleAccountRetrieve)
	mux.HandleFunc("/api/accounts/debug", h.handleAccountsDebug)
	mux.HandleFunc("/api/network", h.handleNetwork)
	mux.HandleFunc("/api/network/status", h.handleNetworkStatus)
	mux.HandleFunc("/api/balance", h.handleBalance)
	mux.HandleFunc("/api/estimate-gas", h.handleEstimateGas)
	mux.HandleFunc("/api/send-transaction", h.handleSendTransaction)
	mux.HandleFunc("/api/validate-address", h.handleValidateAddress)
	if h.config.ExposePrivateKeys {
		mux.HandleFunc("/api/account/private-key", h.handlePrivateKey)
	}
	mux.HandleFunc("/healthz", h.handleHealthz)
	return mux
}

func (h *Handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

// writeJSON serializes payload with a Content-Type header set.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("write json response: %v", err)
	}
}

// writeJSONError reports a failure as {"error": message}.
func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeDomainError maps a domain error to its HTTP status with metadata
// folded into the body.
func writeDomainError(w http.ResponseWriter, err error) {
	code := apperrors.GetCode(err)
	body := map[string]any{"error": err.Error()}
	var domainErr *apperrors.Error
	if errors.As(err, &domainErr) {
		for key, value := range domainErr.Metadata {
			body[key] = value
		}
	}
	writeJSON(w, code.HTTPStatus(), body)
}
