package solana

import "context"

// BalanceNotification is delivered when a watched account's lamports change.
type BalanceNotification struct {
	Address  string
	Lamports uint64
	Slot     int64
}

// WSClient defines the WebSocket subscription interface for balance wakeups.
type WSClient interface {
	// SubscribeAccount subscribes to lamports changes for an address.
	// The returned channel is closed when the client is closed.
	SubscribeAccount(ctx context.Context, address string) (<-chan BalanceNotification, error)

	// UnsubscribeAccount removes the subscription for an address.
	UnsubscribeAccount(ctx context.Context, address string) error

	// Close shuts down the connection and all subscriptions.
	Close() error
}
