package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/holiman/uint256"

	"github.com/soniclabs/passkey-wallet/internal/services/wallet/chain"
)

func (h *Handler) handleEstimateGas(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var payload struct {
		To     string `json:"to"`
		Amount string `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	quote, err := h.relay.EstimateFee(r.Context(), payload.To, payload.Amount)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"gasLimit":             quote.GasLimit,
		"gasPrice":             formatWei(quote.GasPrice),
		"maxFeePerGas":         formatWei(quote.MaxFeePerGas),
		"maxPriorityFeePerGas": formatWei(quote.MaxPriorityFeePerGas),
		"estimatedFee":         chain.FormatEther(quote.EstimatedFee),
	})
}

func (h *Handler) handleSendTransaction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var payload struct {
		To           string `json:"to"`
		Amount       string `json:"amount"`
		CredentialID string `json:"credentialId"`
		SessionToken string `json:"sessionToken"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	if h.config.RequireSession {
		if _, err := h.sessions.Validate(payload.SessionToken, payload.CredentialID); err != nil {
			writeDomainError(w, err)
			return
		}
	}

	result, err := h.relay.Send(r.Context(), payload.To, payload.Amount, payload.CredentialID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":         true,
		"transactionHash": result.Hash,
		"explorerUrl":     result.ExplorerURL,
		"from":            result.From,
		"to":              result.To,
		"value":           result.Value,
		"gasUsed":         result.GasLimit,
		"gasLimit":        result.GasLimit,
	})
}

// formatWei renders a wei figure as a decimal string, tolerating nil quotes.
func formatWei(value *uint256.Int) string {
	if value == nil {
		return "0"
	}
	return value.Dec()
}
