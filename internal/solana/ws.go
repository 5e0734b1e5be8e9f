package solana

import "context"

// WSClient defines Solana WebSocket subscription interface.
type WSClient interface {
	// SubscribeSignature subscribes to the confirmation of a transaction signature.
	// The channel receives exactly one notification and is then closed.
	SubscribeSignature(ctx context.Context, signature string) (<-chan SignatureNotification, error)

	// Unsubscribe cancels a pending signature subscription.
	Unsubscribe(signature string) error

	// Close closes the WebSocket connection.
	Close() error
}

// SignatureNotification reports that a signature reached the subscribed commitment.
type SignatureNotification struct {
	Signature string
	Slot      int64
	Err       interface{} // non-nil if the transaction failed
}
