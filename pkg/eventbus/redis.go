package eventbus

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
)

const ChannelDocumentEvents = "docuflow:events:document"

type RedisSender struct {
	client  redis.UniversalClient
	channel string
}

// RedisDialer publishes on a pub/sub channel of an already connected client.
// The client is owned by the caller and is not closed by the sender.
func RedisDialer(client redis.UniversalClient, channel string) DialFunc {
	return func(ctx context.Context) (Sender, error) {
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, err
		}
		return &RedisSender{client: client, channel: channel}, nil
	}
}

func (s *RedisSender) Send(ctx context.Context, key string, payload []byte) error {
	return s.client.Publish(ctx, s.channel, payload).Err()
}

func (s *RedisSender) Close() error {
	return nil
}

// Subscribe decodes events published on channel until ctx is done.
func Subscribe(ctx context.Context, client redis.UniversalClient, channel string) <-chan WorkflowEvent {
	sub := client.Subscribe(ctx, channel)
	ch := make(chan WorkflowEvent, 100)

	go func() {
		defer close(ch)
		for msg := range sub.Channel() {
			var event WorkflowEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				continue
			}
			select {
			case ch <- event:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		<-ctx.Done()
		_ = sub.Close()
	}()

	return ch
}
