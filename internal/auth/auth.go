// Package auth verifies detached ed25519 signatures at the call boundary.
// Engines assume authorization was already checked; this package is how the
// service binary checks it, including the two-independent-signers rule for
// rebate claims.
package auth

import (
	"crypto/ed25519"
	"errors"
	"fmt"

	"github.com/jackiewangjingchun-cpu/wattcoin/internal/domain"
)

// Authorization errors.
var (
	// ErrBadSignature is returned when a signature does not verify against
	// the claimed signer.
	ErrBadSignature = errors.New("signature verification failed")

	// ErrNotASigningKey is returned when a signer address is not a valid
	// ed25519 curve point (e.g. a program-derived vault address).
	ErrNotASigningKey = errors.New("address is not a signing key")

	// ErrMissingSigner is returned when a required signer did not sign.
	ErrMissingSigner = errors.New("required signer missing")

	// ErrDuplicateSigner is returned when one identity is presented for
	// both required signer slots.
	ErrDuplicateSigner = errors.New("owner and authority must be distinct signers")
)

// Signature is one detached signature over an operation payload.
type Signature struct {
	Signer domain.Address
	Sig    []byte
}

// Verify checks one signature over payload.
func Verify(payload []byte, s Signature) error {
	pub, err := domain.DecodeAddress(s.Signer)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadSignature, err)
	}
	if !domain.OnCurve(pub) {
		return fmt.Errorf("%w: %s", ErrNotASigningKey, s.Signer)
	}
	if len(s.Sig) != ed25519.SignatureSize {
		return fmt.Errorf("%w: signature is %d bytes", ErrBadSignature, len(s.Sig))
	}
	if !ed25519.Verify(ed25519.PublicKey(pub), payload, s.Sig) {
		return fmt.Errorf("%w: signer %s", ErrBadSignature, s.Signer)
	}
	return nil
}

// VerifySigner checks that the expected identity appears among sigs and its
// signature verifies.
func VerifySigner(payload []byte, expected domain.Address, sigs []Signature) error {
	for _, s := range sigs {
		if s.Signer != expected {
			continue
		}
		return Verify(payload, s)
	}
	return fmt.Errorf("%w: %s", ErrMissingSigner, expected)
}

// VerifyClaim enforces the claim rule: two independent verified identities,
// the stake owner and the administrative authority.
func VerifyClaim(payload []byte, owner, authority domain.Address, sigs []Signature) error {
	if owner == authority {
		return ErrDuplicateSigner
	}
	if err := VerifySigner(payload, owner, sigs); err != nil {
		return fmt.Errorf("owner: %w", err)
	}
	if err := VerifySigner(payload, authority, sigs); err != nil {
		return fmt.Errorf("authority: %w", err)
	}
	return nil
}
