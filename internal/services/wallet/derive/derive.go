// Package derive maps passkey credential identifiers to chain signing keys.
//
// The mapping is a pure function: the same credential id always resolves to
// the same private key and address, which is what lets the registry recover
// an account from nothing but a presented credential id. The private key is
// a hash over the credential id and a fixed application salt. The credential
// id is public, so anyone holding the salt can recompute any key; this is
// only tolerable on a non-value test network and is deliberately isolated
// behind this package boundary.
package derive

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"golang.org/x/crypto/sha3"

	"github.com/soniclabs/passkey-wallet/internal/services/wallet/account"
	apperrors "github.com/soniclabs/passkey-wallet/internal/platform/errors"
)

// DefaultSalt matches the seed constant the original deployment shipped with.
const DefaultSalt = "sonic-wallet-seed"

// ErrInvalidChainID indicates a non-positive chain id.
var ErrInvalidChainID = apperrors.New(apperrors.CodeValidationChainIDInvalid, "chain id must be a positive integer")

// Config controls key derivation inputs.
type Config struct {
	Salt string `env:"PASSKEY_WALLET_DERIVATION_SALT"`
}

// LoadConfigFromEnv returns derivation configuration with defaults.
func LoadConfigFromEnv() Config {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{Salt: DefaultSalt}
	}
	if strings.TrimSpace(cfg.Salt) == "" {
		cfg.Salt = DefaultSalt
	}
	return cfg
}

// Key is a derived secp256k1 signing key and its cached address.
type Key struct {
	priv    *secp256k1.PrivateKey
	address string
}

// Address returns the lowercase 0x-prefixed 20-byte account address.
func (k Key) Address() string {
	return k.address
}

// PrivateKey returns the underlying secp256k1 private key.
func (k Key) PrivateKey() *secp256k1.PrivateKey {
	return k.priv
}

// PrivateKeyHex returns the 0x-prefixed 32-byte private key encoding used by
// the development export endpoint and by wallet import tools.
func (k Key) PrivateKeyHex() string {
	return "0x" + hex.EncodeToString(k.priv.Serialize())
}

// Deriver computes deterministic signing keys from credential identifiers.
type Deriver struct {
	salt string
}

// NewDeriver builds a Deriver with the given application salt. An empty salt
// falls back to DefaultSalt so account creation and transaction signing can
// never diverge on a misconfigured instance.
func NewDeriver(salt string) *Deriver {
	if strings.TrimSpace(salt) == "" {
		salt = DefaultSalt
	}
	return &Deriver{salt: salt}
}

// Derive maps a credential id and chain id to a signing key.
//
// The computation is side-effect free and idempotent: both the registry (at
// account creation) and the relay (at signing time) call this same function,
// and any divergence between the two call sites breaks the credential-to-
// account binding.
func (d *Deriver) Derive(credentialID string, chainID uint64) (Key, error) {
	if err := account.ValidateCredentialID(credentialID); err != nil {
		return Key{}, err
	}
	if chainID == 0 {
		return Key{}, ErrInvalidChainID
	}

	digest := sha256.Sum256([]byte(credentialID + d.salt))
	var scalar secp256k1.ModNScalar
	if overflow := scalar.SetByteSlice(digest[:]); overflow {
		return Key{}, fmt.Errorf("derived scalar overflows the curve order")
	}
	if scalar.IsZero() {
		return Key{}, fmt.Errorf("derived scalar is zero")
	}

	priv := secp256k1.NewPrivateKey(&scalar)
	return Key{priv: priv, address: addressFromKey(priv)}, nil
}

// PseudoAddress computes the weaker hash-only variant the browser client used
// for offline display: the trailing 20 bytes of SHA-256 over the credential
// id and decimal chain id, with no key pair behind it. Server paths must
// never use it.
func PseudoAddress(credentialID string, chainID uint64) (string, error) {
	if err := account.ValidateCredentialID(credentialID); err != nil {
		return "", err
	}
	if chainID == 0 {
		return "", ErrInvalidChainID
	}
	digest := sha256.Sum256([]byte(fmt.Sprintf("%s%d", credentialID, chainID)))
	return "0x" + hex.EncodeToString(digest[len(digest)-20:]), nil
}

// addressFromKey derives the Ethereum-style account address: the trailing 20
// bytes of the Keccak-256 hash over the uncompressed public key.
func addressFromKey(priv *secp256k1.PrivateKey) string {
	pub := priv.PubKey().SerializeUncompressed()
	hasher := sha3.NewLegacyKeccak256()
	hasher.Write(pub[1:])
	digest := hasher.Sum(nil)
	return "0x" + hex.EncodeToString(digest[12:])
}
