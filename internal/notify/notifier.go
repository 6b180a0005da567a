package notify

import "context"

// Notifier delivers a text notification to a channel-specific recipient
// address (a phone number, an email address).
type Notifier interface {
	// Send delivers text to the recipient.
	Send(ctx context.Context, recipient, text string) error
	// Name returns the notifier type name (for logging)
	Name() string
	// IsConfigured returns true if the notifier has server-side config
	IsConfigured() bool
}
