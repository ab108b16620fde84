package events

import "context"

// NoopPublisher drops every event. It stands in for NATS when no external
// stream is configured, so the forwarder never needs a nil check.
type NoopPublisher struct{}

func (n *NoopPublisher) Publish(ctx context.Context, topic string, event any) error {
	return nil
}

func (n *NoopPublisher) Close() error {
	return nil
}
