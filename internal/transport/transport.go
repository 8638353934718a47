// Package transport defines the interface for message delivery backends.
package transport

import (
	"context"

	"github.com/shineum/emailer/internal/email"
)

// Transport delivers a composed envelope. Each call is one complete,
// synchronous delivery attempt; implementations do not retry.
type Transport interface {
	// Send delivers env.Data to every address in env.Recipients.
	Send(ctx context.Context, env *email.Envelope) error

	// Name returns the human-readable name of this transport.
	Name() string
}
