package httpapi

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/soniclabs/passkey-wallet/internal/services/wallet/account"
	"github.com/soniclabs/passkey-wallet/internal/services/wallet/registry"
)

// accountPayload is the JSON shape of an account record.
type accountPayload struct {
	CredentialID string `json:"credentialId"`
	Address      string `json:"address"`
	Username     string `json:"username"`
	CreatedAt    string `json:"createdAt"`
	LastAccess   string `json:"lastAccess"`
	Recovered    bool   `json:"recovered,omitempty"`
}

func toAccountPayload(record account.Account) accountPayload {
	return accountPayload{
		CredentialID: record.CredentialID,
		Address:      record.Address,
		Username:     record.Username,
		CreatedAt:    record.CreatedAt.UTC().Format(time.RFC3339),
		LastAccess:   record.LastAccess.UTC().Format(time.RFC3339),
		Recovered:    record.Recovered,
	}
}

// mintGrant attaches a session token when grants are configured. Minting
// failures degrade to a response without a token rather than failing the
// operation that already succeeded.
func (h *Handler) mintGrant(body map[string]any, record account.Account) {
	if h.sessions == nil {
		return
	}
	token, err := h.sessions.Mint(record.CredentialID, record.Address)
	if err != nil {
		log.Printf("mint session grant: %v", err)
		return
	}
	body["sessionToken"] = token
}

func (h *Handler) handleAccountCreate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var payload struct {
		CredentialID string `json:"credentialId"`
		Username     string `json:"username"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	record, err := h.registry.Create(r.Context(), payload.CredentialID, payload.Username)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	body := map[string]any{
		"success": true,
		"account": toAccountPayload(record),
	}
	h.mintGrant(body, record)
	writeJSON(w, http.StatusOK, body)
}

func (h *Handler) handleAccountRetrieve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var payload struct {
		CredentialID string `json:"credentialId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	record, outcome, err := h.registry.Retrieve(r.Context(), payload.CredentialID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	body := map[string]any{
		"success":       true,
		"account":       toAccountPayload(record),
		"isNewRecovery": outcome == registry.OutcomeRecovered,
	}
	h.mintGrant(body, record)
	writeJSON(w, http.StatusOK, body)
}

func (h *Handler) handleAccountsDebug(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	records, err := h.registry.List(r.Context())
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "list accounts failed")
		return
	}

	accounts := make([]accountPayload, 0, len(records))
	for _, record := range records {
		accounts = append(accounts, toAccountPayload(record))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"accounts": accounts,
		"total":    len(accounts),
	})
}

// handlePrivateKey exports a derived private key for wallet import tooling.
// Registered only when ExposePrivateKeys is set; never enable it outside a
// development deployment.
func (h *Handler) handlePrivateKey(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var payload struct {
		CredentialID string `json:"credentialId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if strings.TrimSpace(payload.CredentialID) == "" {
		writeJSONError(w, http.StatusBadRequest, "credentialId is required")
		return
	}

	// Only known credentials export keys; the derivation itself would
	// happily produce one for any string.
	record, err := h.registry.List(r.Context())
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "list accounts failed")
		return
	}
	known := false
	for _, candidate := range record {
		if candidate.CredentialID == payload.CredentialID {
			known = true
			break
		}
	}
	if !known {
		writeJSONError(w, http.StatusNotFound, "unknown credential id")
		return
	}

	key, err := h.deriver.Derive(payload.CredentialID, h.network.ChainID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"address":    key.Address(),
		"privateKey": key.PrivateKeyHex(),
	})
}
