package messaging

import (
	"context"
)

// Broker publishes application events to external consumers. The decision
// log uses it as a side channel; a broker failure never fails the action
// that produced the event.
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Close() error
}
