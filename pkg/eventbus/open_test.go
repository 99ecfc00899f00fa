package eventbus

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/docuflow/docuflow/pkg/config"
)

func TestOpenUnavailableDriversDropEvents(t *testing.T) {
	for _, driver := range []string{"none", "redis", "bogus"} {
		t.Run(driver, func(t *testing.T) {
			cfg := &config.Config{Publisher: config.PublisherConfig{Driver: driver}}
			p := Open(context.Background(), cfg, nil, zap.NewNop())
			defer p.Close(context.Background())

			assert.False(t, p.Available())
			assert.NotPanics(t, func() { p.Publish(context.Background(), testEvent) })
		})
	}
}

func TestOpenKafkaWithoutBrokersDropsEvents(t *testing.T) {
	cfg := &config.Config{
		Publisher: config.PublisherConfig{Driver: "kafka"},
		Kafka:     config.KafkaConfig{EventTopic: "docuflow.document.events"},
	}
	p := Open(context.Background(), cfg, nil, zap.NewNop())
	defer p.Close(context.Background())

	assert.False(t, p.Available())
}
