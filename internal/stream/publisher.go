package stream

import (
	"context"
	"fmt"

	"github.com/RishiKendai/textscan/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const maxStreamLen = 10000

// Publisher appends file events to a Redis stream.
type Publisher struct {
	client    *redis.Client
	streamKey string
}

func NewPublisher(client *redis.Client, streamKey string) *Publisher {
	return &Publisher{client: client, streamKey: streamKey}
}

func (p *Publisher) Publish(ctx context.Context, ev models.FileEvent) error {
	id, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.streamKey,
		MaxLen: maxStreamLen,
		Approx: true,
		Values: EncodeEvent(ev),
	}).Result()
	if err != nil {
		return fmt.Errorf("failed to publish %s event for %s: %w", ev.Type, ev.FileID, err)
	}

	log.Debug().
		Str("message_id", id).
		Str("type", string(ev.Type)).
		Str("file_id", ev.FileID).
		Msg("File event published")
	return nil
}
