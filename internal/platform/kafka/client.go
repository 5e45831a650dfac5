package kafka

import (
	"context"
	"fmt"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"

	"flightsurety/internal/platform/config"
)

// Client wraps a franz-go client configured to produce to the events topic.
type Client struct {
	*kgo.Client
	Topic string
}

// New creates a Kafka client from the provided configuration.
// Returns nil if no brokers are configured.
func New(ctx context.Context, cfg config.KafkaConfig) (*Client, error) {
	if len(cfg.Brokers) == 0 {
		return nil, nil
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ClientID(cfg.ClientID),
		kgo.DefaultProduceTopic(cfg.Topic),
		kgo.ProducerLinger(cfg.Linger),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	if err := client.Ping(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("kafka ping failed: %w", err)
	}

	return &Client{Client: client, Topic: cfg.Topic}, nil
}

// Admin returns an admin client sharing the connection.
func (c *Client) Admin() *kadm.Client {
	return kadm.NewClient(c.Client)
}

// Health checks that a broker is reachable.
func (c *Client) Health(ctx context.Context) error {
	return c.Ping(ctx)
}
