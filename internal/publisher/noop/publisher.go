// Package noop provides a publisher that discards all messages.
package noop

import "context"

// Publisher discards every message.
type Publisher struct{}

// New creates a no-op publisher.
func New() Publisher { return Publisher{} }

// Publish discards the payload.
func (Publisher) Publish(context.Context, string, any) (string, error) {
	return "", nil
}
