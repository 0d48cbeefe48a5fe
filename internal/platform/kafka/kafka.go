package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"caseflow/internal/platform/config"
)

// Client wraps a franz-go client used by the event outbox worker.
type Client struct {
	kc *kgo.Client
}

// New connects to the configured brokers. Returns nil if no brokers are
// configured (Kafka publishing disabled).
func New(cfg config.KafkaConfig) (*Client, error) {
	if len(cfg.Brokers) == 0 {
		return nil, nil
	}

	kc, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ProducerLinger(5*time.Millisecond),
		kgo.RecordRetries(3),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := kc.Ping(pingCtx); err != nil {
		kc.Close()
		return nil, fmt.Errorf("kafka ping failed: %w", err)
	}

	return &Client{kc: kc}, nil
}

// EnsureTopic creates the topic if it does not already exist.
func (c *Client) EnsureTopic(ctx context.Context, topic string) error {
	adm := kadm.NewClient(c.kc)
	resp, err := adm.CreateTopics(ctx, 3, 1, nil, topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", topic, err)
	}
	for _, res := range resp {
		if res.Err != nil && !errors.Is(res.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create topic %s: %w", res.Topic, res.Err)
		}
	}
	return nil
}

// ProduceSync publishes one record and waits for the broker acknowledgment.
// The outbox worker relies on the synchronous ack to mark rows published.
func (c *Client) ProduceSync(ctx context.Context, topic string, key, value []byte) error {
	record := &kgo.Record{Topic: topic, Key: key, Value: value}
	if err := c.kc.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce to %s: %w", topic, err)
	}
	return nil
}

// Close flushes buffered records and closes the connection.
func (c *Client) Close() {
	c.kc.Close()
}
