package domain

import "context"

// Prober attempts password authentication against a single address.
// A nil error means the credential was accepted; any error is the failure
// reason (connection, handshake or authentication).
type Prober interface {
	Probe(ctx context.Context, address, username, password string) error
}

// ProberFunc adapts a function to the Prober interface.
type ProberFunc func(ctx context.Context, address, username, password string) error

func (f ProberFunc) Probe(ctx context.Context, address, username, password string) error {
	return f(ctx, address, username, password)
}
