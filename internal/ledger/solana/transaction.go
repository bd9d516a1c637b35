// Package solana implements the ledger adapter over the Solana SPL token
// program. Transfer batches are packed into a single legacy transaction, so
// the cluster's all-or-nothing execution provides the adapter's atomicity.
package solana

import (
	"crypto/ed25519"
	"encoding/binary"
	"fmt"

	"github.com/mr-tron/base58"
)

// TokenProgramID is the SPL token program address.
const TokenProgramID = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"

// tokenTransferTag is the SPL token program's Transfer instruction
// discriminator.
const tokenTransferTag = 3

// transfer is one SPL token movement between token accounts. The authority
// signs for the source account.
type transfer struct {
	Source      []byte // 32-byte token account
	Destination []byte // 32-byte token account
	Amount      uint64
}

// buildTransferTransaction packs all transfers into one signed legacy
// transaction. The operator key is fee payer and transfer authority for
// every leg; the returned bytes are the wire-format transaction and the
// base58 signature is its identity on the cluster.
func buildTransferTransaction(operator ed25519.PrivateKey, transfers []transfer, recentBlockhash []byte) (tx []byte, signature string, err error) {
	if len(transfers) == 0 {
		return nil, "", fmt.Errorf("no transfers")
	}
	if len(recentBlockhash) != 32 {
		return nil, "", fmt.Errorf("blockhash: expected 32 bytes, got %d", len(recentBlockhash))
	}

	operatorPub := operator.Public().(ed25519.PublicKey)

	programID, err := base58.Decode(TokenProgramID)
	if err != nil {
		return nil, "", fmt.Errorf("decode program id: %w", err)
	}

	// Account table: operator (writable signer, fee payer) first, then
	// writable token accounts in first-use order, token program last
	// (readonly). One required signature, one readonly unsigned account.
	keys := newAccountTable(operatorPub)
	for _, t := range transfers {
		keys.add(t.Source)
		keys.add(t.Destination)
	}
	programIdx := keys.add(programID)

	msg := make([]byte, 0, 256)
	msg = append(msg, 1, 0, 1) // header: signatures, readonly signed, readonly unsigned
	msg = appendCompactU16(msg, uint16(keys.len()))
	msg = append(msg, keys.bytes()...)
	msg = append(msg, recentBlockhash...)

	msg = appendCompactU16(msg, uint16(len(transfers)))
	for _, t := range transfers {
		data := make([]byte, 9)
		data[0] = tokenTransferTag
		binary.LittleEndian.PutUint64(data[1:], t.Amount)

		msg = append(msg, programIdx)
		msg = appendCompactU16(msg, 3)
		msg = append(msg, keys.index(t.Source), keys.index(t.Destination), 0)
		msg = appendCompactU16(msg, uint16(len(data)))
		msg = append(msg, data...)
	}

	sig := ed25519.Sign(operator, msg)

	tx = make([]byte, 0, 1+len(sig)+len(msg))
	tx = appendCompactU16(tx, 1)
	tx = append(tx, sig...)
	tx = append(tx, msg...)

	return tx, base58.Encode(sig), nil
}

// accountTable assigns stable indexes to the distinct account keys of a
// transaction message.
type accountTable struct {
	order   [][]byte
	indexes map[string]uint8
}

func newAccountTable(feePayer []byte) *accountTable {
	t := &accountTable{indexes: make(map[string]uint8)}
	t.add(feePayer)
	return t
}

// add registers a key if unseen and returns its index.
func (t *accountTable) add(key []byte) uint8 {
	if idx, ok := t.indexes[string(key)]; ok {
		return idx
	}
	idx := uint8(len(t.order))
	t.order = append(t.order, key)
	t.indexes[string(key)] = idx
	return idx
}

func (t *accountTable) index(key []byte) uint8 {
	return t.indexes[string(key)]
}

func (t *accountTable) len() int {
	return len(t.order)
}

func (t *accountTable) bytes() []byte {
	out := make([]byte, 0, 32*len(t.order))
	for _, k := range t.order {
		out = append(out, k...)
	}
	return out
}

// appendCompactU16 appends v in the compact-u16 wire encoding: seven bits
// per byte, little-endian, high bit set on continuation bytes.
func appendCompactU16(b []byte, v uint16) []byte {
	for {
		if v < 0x80 {
			return append(b, byte(v))
		}
		b = append(b, byte(v)|0x80)
		v >>= 7
	}
}

// parseMessage extracts the message portion of a serialized transaction,
// used by tests to verify signatures.
func parseMessage(tx []byte) ([]byte, []byte, error) {
	if len(tx) < 1 {
		return nil, nil, fmt.Errorf("empty transaction")
	}
	numSigs := int(tx[0])
	if numSigs > 0x7f {
		return nil, nil, fmt.Errorf("unsupported signature count encoding")
	}
	offset := 1 + numSigs*ed25519.SignatureSize
	if len(tx) < offset {
		return nil, nil, fmt.Errorf("truncated transaction")
	}
	return tx[1 : 1+ed25519.SignatureSize], tx[offset:], nil
}
