package solana

import (
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// DecodeAddress decodes a base58 address and verifies it is 32 bytes.
func DecodeAddress(address string) ([]byte, error) {
	if address == "" {
		return nil, fmt.Errorf("empty address")
	}
	raw, err := base58.Decode(address)
	if err != nil {
		return nil, fmt.Errorf("decode address: %w", err)
	}
	if len(raw) != 32 {
		return nil, fmt.Errorf("address must be 32 bytes, got %d", len(raw))
	}
	return raw, nil
}

// ValidateAddress reports whether address is a well-formed Solana address.
func ValidateAddress(address string) error {
	_, err := DecodeAddress(address)
	return err
}

// IsOnCurve reports whether the address is a point on the ed25519 curve.
// Wallet addresses that sign transactions are on-curve; program-derived
// addresses are off-curve by construction.
func IsOnCurve(address string) (bool, error) {
	raw, err := DecodeAddress(address)
	if err != nil {
		return false, err
	}
	_, err = new(edwards25519.Point).SetBytes(raw)
	return err == nil, nil
}
