// Package publisher delivers the composed text to public channels.
package publisher

import "context"

// Publisher posts text and returns the identifier the remote service assigned to it.
type Publisher interface {
	Publish(ctx context.Context, text string) (string, error)
	Name() string
}
