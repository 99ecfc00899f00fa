package eventbus

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/docuflow/docuflow/pkg/config"
)

// Open builds the process-wide publisher for the configured driver and dials
// it. A driver that cannot be reached yields a publisher that drops events.
func Open(ctx context.Context, cfg *config.Config, rdb redis.UniversalClient, logger *zap.Logger) *BestEffort {
	opts := Options{Timeout: cfg.Publisher.Timeout, Async: cfg.Publisher.Async}

	var dial DialFunc
	switch cfg.Publisher.Driver {
	case "kafka":
		dial = KafkaDialer(cfg.Kafka)
	case "redis":
		if rdb == nil {
			dial = unavailable(errors.New("redis client is not configured"))
		} else {
			dial = RedisDialer(rdb, ChannelDocumentEvents)
		}
	default:
		dial = unavailable(fmt.Errorf("publisher driver %q is disabled", cfg.Publisher.Driver))
	}

	publisher := NewBestEffort(cfg.Publisher.Driver, dial, opts, logger)
	publisher.Start(ctx)
	return publisher
}

func unavailable(err error) DialFunc {
	return func(context.Context) (Sender, error) {
		return nil, err
	}
}
