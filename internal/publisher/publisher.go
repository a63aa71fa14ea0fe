// Package publisher defines the interface for publishing board progress
// notifications to a message bus.
package publisher

import "context"

// Publisher delivers a payload to a named topic and returns the broker's
// message ID.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}
