package txsign

import (
	"bytes"
	"encoding/hex"
	"regexp"
	"testing"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/holiman/uint256"
)

var hashPattern = regexp.MustCompile(`^0x[0-9a-f]{64}$`)

func testKey(t *testing.T) *secp256k1.PrivateKey {
	t.Helper()
	raw, err := hex.DecodeString("4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318")
	if err != nil {
		t.Fatalf("decode key: %v", err)
	}
	return secp256k1.PrivKeyFromBytes(raw)
}

func testTx() Tx {
	return Tx{
		ChainID:              14601,
		Nonce:                7,
		MaxPriorityFeePerGas: uint256.NewInt(1_000_000_000),
		MaxFeePerGas:         uint256.NewInt(3_000_000_000),
		Gas:                  21000,
		To:                   "0x8617e340b3d01fa5f11f306f4090fd50e238070d",
		Value:                uint256.NewInt(1_000_000_000_000_000_000),
	}
}

func TestSignProducesTypedEnvelope(t *testing.T) {
	t.Parallel()

	signed, err := Sign(testTx(), testKey(t))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if len(signed.Raw) == 0 || signed.Raw[0] != dynamicFeeTxType {
		t.Fatalf("raw transaction misses the 0x02 type byte: % x", signed.Raw[:1])
	}
	if !hashPattern.MatchString(signed.Hash) {
		t.Fatalf("hash %q is not a 32-byte hex hash", signed.Hash)
	}
}

func TestSignIsDeterministic(t *testing.T) {
	t.Parallel()

	key := testKey(t)
	first, err := Sign(testTx(), key)
	if err != nil {
		t.Fatalf("first sign: %v", err)
	}
	second, err := Sign(testTx(), key)
	if err != nil {
		t.Fatalf("second sign: %v", err)
	}
	if !bytes.Equal(first.Raw, second.Raw) {
		t.Fatal("signing the same transaction twice produced different bytes")
	}
	if first.Hash != second.Hash {
		t.Fatalf("hash mismatch: %q vs %q", first.Hash, second.Hash)
	}
}

func TestSignCommitsToChainID(t *testing.T) {
	t.Parallel()

	key := testKey(t)
	onSonic, err := Sign(testTx(), key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	other := testTx()
	other.ChainID = 1
	onMainnet, err := Sign(other, key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if bytes.Equal(onSonic.Raw, onMainnet.Raw) {
		t.Fatal("different chain ids produced identical raw transactions")
	}
}

func TestSignRejectsBadInput(t *testing.T) {
	t.Parallel()

	key := testKey(t)

	missingChain := testTx()
	missingChain.ChainID = 0
	if _, err := Sign(missingChain, key); err == nil {
		t.Fatal("expected error for missing chain id")
	}

	badTo := testTx()
	badTo.To = "8617e340b3d01fa5f11f306f4090fd50e238070d"
	if _, err := Sign(badTo, key); err == nil {
		t.Fatal("expected error for address without 0x prefix")
	}

	shortTo := testTx()
	shortTo.To = "0x8617"
	if _, err := Sign(shortTo, key); err == nil {
		t.Fatal("expected error for truncated address")
	}

	if _, err := Sign(testTx(), nil); err == nil {
		t.Fatal("expected error for missing key")
	}
}

func TestRLPKnownVectors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		got  []byte
		want string
	}{
		{"empty string", rlpBytes(nil), "80"},
		{"single low byte", rlpBytes([]byte{0x0f}), "0f"},
		{"dog", rlpBytes([]byte("dog")), "83646f67"},
		{"zero uint", rlpUint(0), "80"},
		{"uint 1024", rlpUint(1024), "820400"},
		{"empty list", rlpList(), "c0"},
		{"cat dog list", rlpList(rlpBytes([]byte("cat")), rlpBytes([]byte("dog"))), "c88363617483646f67"},
		{"nil uint256", rlpUint256(nil), "80"},
	}
	for _, test := range tests {
		if got := hex.EncodeToString(test.got); got != test.want {
			t.Errorf("%s = %s, want %s", test.name, got, test.want)
		}
	}
}
