// Package events publishes ingest reports to Kafka for downstream
// consumers. Publication is optional; the pipeline runs without it.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/rssai/internal/config"
	"github.com/rssai/pkg/models"
)

// ErrProducerClosed is returned when publishing after Close.
var ErrProducerClosed = errors.New("events: producer closed")

// Producer publishes ingest reports keyed by feed URL
type Producer struct {
	writer  *kafka.Writer
	timeout time.Duration
	mu      sync.Mutex
	closed  bool
}

// NewProducer creates a Kafka-backed report producer. It returns nil
// when no brokers are configured, which disables publication.
func NewProducer(cfg config.EventsConfig) *Producer {
	if len(cfg.Brokers) == 0 {
		return nil
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = config.Duration(10 * time.Second)
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Compression:  kafka.Gzip,
		RequiredAcks: kafka.RequireAll,
	}
	return &Producer{writer: writer, timeout: cfg.Timeout.Std()}
}

// Publish sends one feed report, keyed by the feed URL so reports for
// the same feed stay ordered within a partition.
func (p *Producer) Publish(ctx context.Context, report models.FeedReport) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrProducerClosed
	}
	p.mu.Unlock()

	value, err := json.Marshal(report)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(report.FeedURL),
		Value: value,
	})
}

// Close closes the underlying writer.
func (p *Producer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.writer.Close()
}
