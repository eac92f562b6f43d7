package event

import (
	"context"

	"github.com/rs/zerolog/log"
)

type noopPublisher struct{}

// NewNoopPublisher returns a publisher that drops events. Used when no
// broker is configured.
func NewNoopPublisher() Publisher {
	return noopPublisher{}
}

func (noopPublisher) Publish(_ context.Context, topic string, key string, _ any) error {
	log.Debug().Str("topic", topic).Str("key", key).Msg("event: no broker configured, dropping event")
	return nil
}

func (noopPublisher) Close() error {
	return nil
}
