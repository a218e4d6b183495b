// Package chain talks to the blockchain JSON-RPC provider and carries the
// network configuration the wallet is pinned to.
package chain

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Network describes the chain the wallet operates against.
type Network struct {
	Name     string `env:"PASSKEY_WALLET_NETWORK_NAME"     envDefault:"Sonic Testnet"           json:"name"`
	RPCURL   string `env:"PASSKEY_WALLET_RPC_URL"          envDefault:"https://rpc.testnet.soniclabs.com" json:"rpcUrl"`
	ChainID  uint64 `env:"PASSKEY_WALLET_CHAIN_ID"         envDefault:"14601"                   json:"chainId"`
	Currency string `env:"PASSKEY_WALLET_CURRENCY_SYMBOL"  envDefault:"S"                       json:"currency"`
	Explorer string `env:"PASSKEY_WALLET_EXPLORER_URL"     envDefault:"https://testnet.sonicscan.org" json:"explorer"`
	Faucet   string `env:"PASSKEY_WALLET_FAUCET_URL"       envDefault:"https://testnet.soniclabs.com/account" json:"faucet"`
}

// LoadNetworkFromEnv returns network configuration with Sonic Testnet defaults.
func LoadNetworkFromEnv() Network {
	var n Network
	if err := env.Parse(&n); err != nil {
		return DefaultNetwork()
	}
	return n
}

// DefaultNetwork returns the Sonic Testnet configuration.
func DefaultNetwork() Network {
	return Network{
		Name:     "Sonic Testnet",
		RPCURL:   "https://rpc.testnet.soniclabs.com",
		ChainID:  14601,
		Currency: "S",
		Explorer: "https://testnet.sonicscan.org",
		Faucet:   "https://testnet.soniclabs.com/account",
	}
}

// TxURL returns the block-explorer link for a transaction hash.
func (n Network) TxURL(hash string) string {
	return fmt.Sprintf("%s/tx/%s", strings.TrimRight(n.Explorer, "/"), hash)
}
