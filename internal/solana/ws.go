package solana

import "context"

// WSClient defines the Solana WebSocket subscription interface used to
// confirm submitted transaction signatures.
type WSClient interface {
	// SubscribeSignature subscribes to confirmation of a single signature.
	// The channel delivers exactly one result and is then closed; the
	// cluster cancels the subscription automatically after notifying.
	SubscribeSignature(ctx context.Context, signature string) (<-chan SignatureResult, error)

	// Close closes the WebSocket connection.
	Close() error
}

// SignatureResult reports the outcome of a signature subscription.
type SignatureResult struct {
	Signature string
	Slot      int64
	// Err is non-nil when the transaction failed on-chain.
	Err interface{}
}
