package solana

import "context"

// RPCClient defines the Solana RPC HTTP interface used for submitting
// transfer transactions and reading token balances.
type RPCClient interface {
	// GetLatestBlockhash retrieves a recent blockhash for transaction signing.
	GetLatestBlockhash(ctx context.Context) (*Blockhash, error)

	// SendTransaction submits a signed, base64-encoded transaction and
	// returns its signature.
	SendTransaction(ctx context.Context, txBase64 string) (string, error)

	// GetSignatureStatuses retrieves confirmation status for signatures.
	// Entries are nil for unknown signatures.
	GetSignatureStatuses(ctx context.Context, signatures []string) ([]*SignatureStatus, error)

	// GetTokenAccountBalance retrieves the SPL token balance of an account.
	GetTokenAccountBalance(ctx context.Context, account string) (*TokenAmount, error)
}

// Blockhash is a recent blockhash together with the last block height at
// which a transaction referencing it is still valid.
type Blockhash struct {
	Blockhash            string
	LastValidBlockHeight uint64
}

// SignatureStatus describes the cluster-side state of a submitted
// transaction signature.
type SignatureStatus struct {
	Slot               int64
	Confirmations      *int64
	ConfirmationStatus string // "processed", "confirmed" or "finalized"
	Err                interface{}
}

// TokenAmount is an SPL token balance in raw base units.
type TokenAmount struct {
	Amount   uint64
	Decimals uint8
}
