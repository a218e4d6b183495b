package chain

import (
	"context"

	"github.com/holiman/uint256"
)

// CallMsg describes a contract-less value transfer for gas estimation.
type CallMsg struct {
	From  string
	To    string
	Value *uint256.Int
}

// FeeData bundles the provider's current fee quotes. Any field may be nil
// when the provider does not report it.
type FeeData struct {
	GasPrice             *uint256.Int
	MaxFeePerGas         *uint256.Int
	MaxPriorityFeePerGas *uint256.Int
}

// Status reports provider reachability and chain head.
type Status struct {
	ChainID     uint64
	BlockNumber uint64
}

// Client is the blockchain RPC collaborator the wallet depends on. The relay
// and API layers accept this interface so tests can substitute fakes and so
// the provider handle is constructed once and passed in rather than reached
// for as a process-wide singleton.
type Client interface {
	Status(ctx context.Context) (Status, error)
	BalanceAt(ctx context.Context, address string) (*uint256.Int, error)
	NonceAt(ctx context.Context, address string) (uint64, error)
	CodeAt(ctx context.Context, address string) ([]byte, error)
	EstimateGas(ctx context.Context, msg CallMsg) (uint64, error)
	FeeData(ctx context.Context) (FeeData, error)
	SendRawTransaction(ctx context.Context, rawTx []byte) (string, error)
}
