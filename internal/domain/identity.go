package domain

import (
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// Address is a base58-encoded 32-byte account identity, matching the
// on-chain deployment's public keys. Vaults and signers share the same form.
type Address = string

// DecodeAddress decodes a base58 address and validates its length.
func DecodeAddress(addr Address) ([]byte, error) {
	raw, err := base58.Decode(addr)
	if err != nil {
		return nil, fmt.Errorf("decode address %q: %w", addr, err)
	}
	if len(raw) != 32 {
		return nil, fmt.Errorf("address %q: expected 32 bytes, got %d", addr, len(raw))
	}
	return raw, nil
}

// ValidAddress reports whether addr is a well-formed 32-byte base58 address.
func ValidAddress(addr Address) bool {
	_, err := DecodeAddress(addr)
	return err == nil
}

// OnCurve reports whether a 32-byte public key is a valid ed25519 curve
// point. Program-derived vault addresses are intentionally off-curve, so
// this distinguishes signing identities from derived vaults.
func OnCurve(pubkey []byte) bool {
	if len(pubkey) != 32 {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(pubkey)
	return err == nil
}
