// Package txsign builds and signs EIP-1559 dynamic fee transactions.
package txsign

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	secpecdsa "github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/holiman/uint256"
	"golang.org/x/crypto/sha3"
)

// dynamicFeeTxType is the typed transaction envelope marker for EIP-1559.
const dynamicFeeTxType = 0x02

// Tx holds the fields of an unsigned dynamic fee transaction.
type Tx struct {
	ChainID              uint64
	Nonce                uint64
	MaxPriorityFeePerGas *uint256.Int
	MaxFeePerGas         *uint256.Int
	Gas                  uint64
	To                   string
	Value                *uint256.Int
	Data                 []byte
}

// Signed is a fully signed transaction ready for broadcast.
type Signed struct {
	// Raw is the typed envelope bytes accepted by eth_sendRawTransaction.
	Raw []byte
	// Hash is the keccak-256 of Raw, hex encoded with a 0x prefix.
	Hash string
}

// Sign produces the signed envelope for tx using the given key. The
// signature commits to the chain id as part of the payload, so a signed
// transaction cannot be replayed on another network.
func Sign(tx Tx, key *secp256k1.PrivateKey) (Signed, error) {
	if key == nil {
		return Signed{}, fmt.Errorf("private key is required")
	}
	if tx.ChainID == 0 {
		return Signed{}, fmt.Errorf("chain id is required")
	}
	to, err := decodeAddress(tx.To)
	if err != nil {
		return Signed{}, err
	}

	fields := []([]byte){
		rlpUint(tx.ChainID),
		rlpUint(tx.Nonce),
		rlpUint256(tx.MaxPriorityFeePerGas),
		rlpUint256(tx.MaxFeePerGas),
		rlpUint(tx.Gas),
		rlpBytes(to),
		rlpUint256(tx.Value),
		rlpBytes(tx.Data),
		rlpList(), // access list
	}

	sighash := keccak256(append([]byte{dynamicFeeTxType}, rlpList(fields...)...))

	// Compact signatures carry the recovery id in the header byte as
	// 27 + id for uncompressed keys.
	compact := secpecdsa.SignCompact(key, sighash, false)
	yParity := uint64(compact[0] - 27)
	r := strip(compact[1:33])
	s := strip(compact[33:65])

	fields = append(fields, rlpUint(yParity), rlpBytes(r), rlpBytes(s))
	raw := append([]byte{dynamicFeeTxType}, rlpList(fields...)...)

	return Signed{
		Raw:  raw,
		Hash: "0x" + hex.EncodeToString(keccak256(raw)),
	}, nil
}

func decodeAddress(address string) ([]byte, error) {
	hexPart, ok := strings.CutPrefix(address, "0x")
	if !ok {
		return nil, fmt.Errorf("address %q misses the 0x prefix", address)
	}
	raw, err := hex.DecodeString(hexPart)
	if err != nil || len(raw) != 20 {
		return nil, fmt.Errorf("address %q is not 20 hex bytes", address)
	}
	return raw, nil
}

// strip drops leading zero bytes so the value encodes as a minimal RLP
// integer.
func strip(b []byte) []byte {
	for len(b) > 0 && b[0] == 0 {
		b = b[1:]
	}
	return b
}

func keccak256(data []byte) []byte {
	hash := sha3.NewLegacyKeccak256()
	hash.Write(data)
	return hash.Sum(nil)
}
