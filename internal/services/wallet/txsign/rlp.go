package txsign

import "github.com/holiman/uint256"

// Recursive length prefix encoding, limited to the byte strings and flat
// lists a typed transaction payload needs.

func rlpBytes(b []byte) []byte {
	if len(b) == 1 && b[0] < 0x80 {
		return b
	}
	return append(rlpLength(len(b), 0x80), b...)
}

func rlpUint(v uint64) []byte {
	if v == 0 {
		return []byte{0x80}
	}
	var buf [8]byte
	n := 0
	for shift := 56; shift >= 0; shift -= 8 {
		octet := byte(v >> shift)
		if n == 0 && octet == 0 {
			continue
		}
		buf[n] = octet
		n++
	}
	return rlpBytes(buf[:n])
}

func rlpUint256(v *uint256.Int) []byte {
	if v == nil || v.IsZero() {
		return []byte{0x80}
	}
	return rlpBytes(v.Bytes())
}

func rlpList(items ...[]byte) []byte {
	var payload []byte
	for _, item := range items {
		payload = append(payload, item...)
	}
	return append(rlpLength(len(payload), 0xc0), payload...)
}

func rlpLength(n int, offset byte) []byte {
	if n < 56 {
		return []byte{offset + byte(n)}
	}
	var size []byte
	for v := n; v > 0; v >>= 8 {
		size = append([]byte{byte(v)}, size...)
	}
	return append([]byte{offset + 55 + byte(len(size))}, size...)
}
