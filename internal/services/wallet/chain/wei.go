package chain

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/holiman/uint256"

	apperrors "github.com/soniclabs/passkey-wallet/internal/platform/errors"
)

// ErrInvalidAmount indicates a malformed or negative decimal amount.
var ErrInvalidAmount = apperrors.New(apperrors.CodeValidationAmountInvalid, "amount must be a positive decimal number")

// weiPerEther is 10^18.
var weiPerEther = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// ParseEther converts a decimal token amount ("1.5") into wei. Amounts are
// carried as decimal strings end to end to avoid float precision loss, so
// this is the only place a user amount becomes an integer.
func ParseEther(amount string) (*uint256.Int, error) {
	s := strings.TrimSpace(amount)
	if s == "" || strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		return nil, ErrInvalidAmount
	}

	intPart := s
	fracPart := ""
	if idx := strings.IndexByte(s, '.'); idx >= 0 {
		intPart, fracPart = s[:idx], s[idx+1:]
	}
	if intPart == "" && fracPart == "" {
		return nil, ErrInvalidAmount
	}
	if intPart == "" {
		intPart = "0"
	}
	if !isDigits(intPart) || (fracPart != "" && !isDigits(fracPart)) {
		return nil, ErrInvalidAmount
	}
	if len(fracPart) > 18 {
		return nil, ErrInvalidAmount
	}
	fracPart += strings.Repeat("0", 18-len(fracPart))

	combined, ok := new(big.Int).SetString(intPart+fracPart, 10)
	if !ok {
		return nil, ErrInvalidAmount
	}
	wei, overflow := uint256.FromBig(combined)
	if overflow {
		return nil, fmt.Errorf("amount %s overflows 256 bits", amount)
	}
	return wei, nil
}

// FormatEther converts wei into a decimal token string with trailing zeros
// trimmed, e.g. 1500000000000000000 -> "1.5".
func FormatEther(wei *uint256.Int) string {
	if wei == nil {
		return "0"
	}
	quo, rem := new(big.Int).QuoRem(wei.ToBig(), weiPerEther, new(big.Int))
	if rem.Sign() == 0 {
		return quo.String()
	}
	frac := strings.TrimRight(fmt.Sprintf("%018s", rem.String()), "0")
	return quo.String() + "." + frac
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
