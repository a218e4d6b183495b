package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/soniclabs/passkey-wallet/internal/services/wallet/account"
	"github.com/soniclabs/passkey-wallet/internal/services/wallet/chain"
)

func (h *Handler) handleNetwork(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, h.network)
}

func (h *Handler) handleNetworkStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	status, err := h.client.Status(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"connected": false,
			"error":     err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"connected": true,
		"network": map[string]any{
			"name":        h.network.Name,
			"chainId":     status.ChainID,
			"blockNumber": status.BlockNumber,
		},
	})
}

func (h *Handler) handleBalance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var payload struct {
		Address string `json:"address"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if err := account.ValidateAddress(payload.Address); err != nil {
		writeDomainError(w, err)
		return
	}

	balance, err := h.client.BalanceAt(r.Context(), payload.Address)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "fetch balance failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"address": payload.Address,
		"balance": chain.FormatEther(balance),
		"symbol":  h.network.Currency,
	})
}

// handleValidateAddress reports on-chain facts about an address so clients
// can warn before sending to contracts or untouched accounts.
func (h *Handler) handleValidateAddress(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var payload struct {
		Address string `json:"address"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if err := account.ValidateAddress(payload.Address); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"isValid": false})
		return
	}

	ctx := r.Context()
	balance, err := h.client.BalanceAt(ctx, payload.Address)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "inspect address failed")
		return
	}
	nonce, err := h.client.NonceAt(ctx, payload.Address)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "inspect address failed")
		return
	}
	code, err := h.client.CodeAt(ctx, payload.Address)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "inspect address failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"isValid":          true,
		"balance":          chain.FormatEther(balance),
		"transactionCount": nonce,
		"isContract":       len(code) > 0,
		"hasActivity":      nonce > 0 || !balance.IsZero(),
	})
}
