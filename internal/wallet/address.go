// Package wallet handles canonicalization of Ethereum wallet addresses.
// Directory and relay rows are keyed by address, so every address crossing
// the API boundary is normalized to its EIP-55 checksum form first; two
// spellings of the same account always collapse to one row.
package wallet

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

var ErrInvalidAddress = errors.New("invalid wallet address")

// Normalize validates a 0x-prefixed hex address and returns the EIP-55
// checksum-cased form.
func Normalize(address string) (string, error) {
	if !common.IsHexAddress(address) {
		return "", fmt.Errorf("%w: %q", ErrInvalidAddress, address)
	}
	return common.HexToAddress(address).Hex(), nil
}

// Equal reports whether two addresses refer to the same account regardless
// of casing. Invalid addresses never compare equal.
func Equal(a, b string) bool {
	if !common.IsHexAddress(a) || !common.IsHexAddress(b) {
		return false
	}
	return common.HexToAddress(a) == common.HexToAddress(b)
}

// Short renders an address as 0x1234...abcd for logs and CLI output.
func Short(address string) string {
	if len(address) <= 10 {
		return address
	}
	return address[:6] + "..." + address[len(address)-4:]
}
