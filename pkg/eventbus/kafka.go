package eventbus

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/docuflow/docuflow/pkg/config"
)

const kafkaDialTimeout = 5 * time.Second

type KafkaSender struct {
	writer *kafka.Writer
}

// KafkaDialer checks that at least one broker is reachable before building
// the writer. The writer makes a single attempt per message.
func KafkaDialer(cfg config.KafkaConfig) DialFunc {
	return func(ctx context.Context) (Sender, error) {
		if cfg.EventTopic == "" {
			return nil, errors.New("kafka event topic is not configured")
		}
		if err := probeBrokers(ctx, cfg); err != nil {
			return nil, err
		}

		writer := &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.EventTopic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			MaxAttempts:  1,
			Transport: &kafka.Transport{
				ClientID:    cfg.ClientID,
				DialTimeout: kafkaDialTimeout,
			},
		}
		return &KafkaSender{writer: writer}, nil
	}
}

func probeBrokers(ctx context.Context, cfg config.KafkaConfig) error {
	if len(cfg.Brokers) == 0 {
		return errors.New("no kafka brokers configured")
	}

	dialer := &kafka.Dialer{
		ClientID: cfg.ClientID,
		Timeout:  kafkaDialTimeout,
	}

	var errs []error
	for _, broker := range cfg.Brokers {
		conn, err := dialer.DialContext(ctx, "tcp", broker)
		if err != nil {
			errs = append(errs, fmt.Errorf("dial %s: %w", broker, err))
			continue
		}
		_ = conn.Close()
		return nil
	}
	return errors.Join(errs...)
}

// Send keys messages by document id so one document's events share a partition.
func (s *KafkaSender) Send(ctx context.Context, key string, payload []byte) error {
	return s.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Time:  time.Now(),
	})
}

func (s *KafkaSender) Close() error {
	return s.writer.Close()
}
