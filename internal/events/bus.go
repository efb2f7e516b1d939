package events

import (
	"context"

	goredis "github.com/redis/go-redis/v9"

	"courier-engine/pkg/logger"
)

// Handler consumes one raw inbound message. The payload is an aggregation
// command batch; decoding belongs to the processor.
type Handler func(ctx context.Context, payload []byte)

// Bus is the inbound transport for aggregation command batches, a redis
// pub/sub channel. Queue semantics beyond at-least-once handoff live outside
// this engine.
type Bus struct {
	client  *goredis.Client
	channel string
	log     *logger.Logger
}

func NewBus(client *goredis.Client, channel string, log *logger.Logger) *Bus {
	return &Bus{client: client, channel: channel, log: log}
}

// Publish pushes one command batch onto the channel. The scheduler that emits
// commands lives outside this engine, so in-repo only tests publish.
func (b *Bus) Publish(ctx context.Context, payload []byte) error {
	return b.client.Publish(ctx, b.channel, payload).Err()
}

// Subscribe consumes messages until the context is cancelled, invoking the
// handler for each. The handler is called synchronously so a blocked worker
// queue applies backpressure to the subscription.
func (b *Bus) Subscribe(ctx context.Context, handler Handler) error {
	pubsub := b.client.Subscribe(ctx, b.channel)

	// Force the subscription to be established before returning.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return err
	}

	go func() {
		defer pubsub.Close()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				handler(ctx, []byte(msg.Payload))
			}
		}
	}()

	return nil
}
