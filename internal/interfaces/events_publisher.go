package interfaces

import "context"

// EventPublisher sends one event to a topic.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, event any) error
}
