// Package relay signs and broadcasts value transfers on behalf of passkey
// credentials.
package relay

import (
	"context"
	"fmt"

	"github.com/holiman/uint256"

	apperrors "github.com/soniclabs/passkey-wallet/internal/platform/errors"
	"github.com/soniclabs/passkey-wallet/internal/services/wallet/account"
	"github.com/soniclabs/passkey-wallet/internal/services/wallet/chain"
	"github.com/soniclabs/passkey-wallet/internal/services/wallet/derive"
	"github.com/soniclabs/passkey-wallet/internal/services/wallet/txsign"
)

// Result describes a broadcast transaction.
type Result struct {
	Hash        string
	ExplorerURL string
	From        string
	To          string
	Value       string
	GasLimit    uint64
}

// Quote is a fee estimate for a prospective transfer.
type Quote struct {
	GasLimit             uint64
	GasPrice             *uint256.Int
	MaxFeePerGas         *uint256.Int
	MaxPriorityFeePerGas *uint256.Int
	EstimatedFee         *uint256.Int
}

// Relay turns send requests into signed transactions on the configured
// network. The signer key is re-derived from the credential id on every send,
// with the same derivation the registry used at account creation, so the
// sending address always matches the registered one.
type Relay struct {
	client  chain.Client
	deriver *derive.Deriver
	network chain.Network
}

// New builds a relay over the given RPC client and deriver.
func New(client chain.Client, deriver *derive.Deriver, network chain.Network) (*Relay, error) {
	if client == nil {
		return nil, fmt.Errorf("chain client is required")
	}
	if deriver == nil {
		return nil, fmt.Errorf("deriver is required")
	}
	if network.ChainID == 0 {
		return nil, derive.ErrInvalidChainID
	}
	return &Relay{client: client, deriver: deriver, network: network}, nil
}

// Send validates, signs, and broadcasts a transfer of amount (a decimal
// string in whole currency units) to the given address.
//
// The balance check runs before any signing: when funds are short the
// transaction is never broadcast and the error carries the current balance so
// callers can report it. Broadcast failures surface as relay errors wrapping
// the provider's message; the relay never retries or re-prices a failed send.
func (r *Relay) Send(ctx context.Context, to, amount, credentialID string) (Result, error) {
	if err := account.ValidateAddress(to); err != nil {
		return Result{}, err
	}
	value, err := chain.ParseEther(amount)
	if err != nil {
		return Result{}, err
	}
	key, err := r.deriver.Derive(credentialID, r.network.ChainID)
	if err != nil {
		return Result{}, err
	}
	from := key.Address()

	balance, err := r.client.BalanceAt(ctx, from)
	if err != nil {
		return Result{}, apperrors.Wrap(apperrors.CodeRelayFailed, "fetch balance", err)
	}
	if balance.Cmp(value) < 0 {
		return Result{}, apperrors.WithMetadata(
			apperrors.CodeInsufficientFunds,
			"insufficient funds",
			map[string]string{
				"balance":   chain.FormatEther(balance),
				"requested": chain.FormatEther(value),
				"currency":  r.network.Currency,
			},
		)
	}

	nonce, err := r.client.NonceAt(ctx, from)
	if err != nil {
		return Result{}, apperrors.Wrap(apperrors.CodeRelayFailed, "fetch nonce", err)
	}
	gasLimit, err := r.client.EstimateGas(ctx, chain.CallMsg{From: from, To: to, Value: value})
	if err != nil {
		return Result{}, apperrors.Wrap(apperrors.CodeRelayFailed, "estimate gas", err)
	}
	fees, err := r.client.FeeData(ctx)
	if err != nil {
		return Result{}, apperrors.Wrap(apperrors.CodeRelayFailed, "fetch fee data", err)
	}
	maxFee, tip := resolveFees(fees)

	signed, err := txsign.Sign(txsign.Tx{
		ChainID:              r.network.ChainID,
		Nonce:                nonce,
		MaxPriorityFeePerGas: tip,
		MaxFeePerGas:         maxFee,
		Gas:                  gasLimit,
		To:                   to,
		Value:                value,
	}, key.PrivateKey())
	if err != nil {
		return Result{}, apperrors.Wrap(apperrors.CodeRelayFailed, "sign transaction", err)
	}

	hash, err := r.client.SendRawTransaction(ctx, signed.Raw)
	if err != nil {
		return Result{}, apperrors.Wrap(apperrors.CodeRelayFailed, "broadcast transaction", err)
	}

	return Result{
		Hash:        hash,
		ExplorerURL: r.network.TxURL(hash),
		From:        from,
		To:          to,
		Value:       chain.FormatEther(value),
		GasLimit:    gasLimit,
	}, nil
}

// EstimateFee quotes gas and fee figures for a prospective transfer without
// touching any key material.
func (r *Relay) EstimateFee(ctx context.Context, to, amount string) (Quote, error) {
	if err := account.ValidateAddress(to); err != nil {
		return Quote{}, err
	}
	value, err := chain.ParseEther(amount)
	if err != nil {
		return Quote{}, err
	}

	gasLimit, err := r.client.EstimateGas(ctx, chain.CallMsg{To: to, Value: value})
	if err != nil {
		return Quote{}, apperrors.Wrap(apperrors.CodeRelayFailed, "estimate gas", err)
	}
	fees, err := r.client.FeeData(ctx)
	if err != nil {
		return Quote{}, apperrors.Wrap(apperrors.CodeRelayFailed, "fetch fee data", err)
	}
	maxFee, tip := resolveFees(fees)

	estimated := new(uint256.Int).Mul(maxFee, uint256.NewInt(gasLimit))
	return Quote{
		GasLimit:             gasLimit,
		GasPrice:             fees.GasPrice,
		MaxFeePerGas:         maxFee,
		MaxPriorityFeePerGas: tip,
		EstimatedFee:         estimated,
	}, nil
}

// resolveFees picks 1559 pricing when the provider reports it and falls back
// to the legacy gas price for both fee caps otherwise.
func resolveFees(fees chain.FeeData) (maxFee, tip *uint256.Int) {
	maxFee = fees.MaxFeePerGas
	tip = fees.MaxPriorityFeePerGas
	if maxFee == nil {
		maxFee = fees.GasPrice
	}
	if tip == nil {
		tip = fees.GasPrice
	}
	if maxFee == nil {
		maxFee = uint256.NewInt(0)
	}
	if tip == nil {
		tip = uint256.NewInt(0)
	}
	return maxFee, tip
}
