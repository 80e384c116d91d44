package chain

import "context"

// WSClient defines the head subscription interface.
type WSClient interface {
	// SubscribeHeads streams new chain heads until Close.
	SubscribeHeads(ctx context.Context) (<-chan Head, error)

	// Close closes the WebSocket connection.
	Close() error
}
