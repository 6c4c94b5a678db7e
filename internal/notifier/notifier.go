// Package notifier delivers one-time tokens to users out-of-band.
package notifier

import (
	"context"
)

// Message is an outbound email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Notifier defines the interface for delivering messages to users.
type Notifier interface {
	Name() string
	Send(ctx context.Context, msg Message) error
}
