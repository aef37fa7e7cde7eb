package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/brojonat/solscope/service/metrics"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// Publisher defines the interface for publishing block events to NATS.
type Publisher interface {
	// PublishBlock publishes a single block event to JetStream.
	// The event is published to the subject "blocks.{slot}".
	PublishBlock(ctx context.Context, event *BlockEvent) error

	// Close closes the connection to NATS.
	Close() error
}

// streamPublisher is the part of jetstream.JetStream the publisher uses.
type streamPublisher interface {
	Publish(ctx context.Context, subject string, payload []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// JetStreamPublisher publishes block events to NATS JetStream.
type JetStreamPublisher struct {
	nc      *nats.Conn
	js      streamPublisher
	metrics *metrics.Metrics
	logger  *slog.Logger
}

const (
	// StreamName is the name of the JetStream stream for block summaries.
	StreamName = "BLOCKS"

	// StreamSubjects is the subject pattern for the stream.
	StreamSubjects = "blocks.*"

	// StreamRetention is how long messages are retained (7 days by default).
	StreamRetention = 7 * 24 * time.Hour
)

// NewPublisher creates a new JetStream publisher.
// It connects to NATS and ensures the stream exists.
// If metrics is nil, no metrics will be recorded.
func NewPublisher(natsURL string, m *metrics.Metrics, logger *slog.Logger) (*JetStreamPublisher, error) {
	nc, err := nats.Connect(natsURL,
		nats.Name("solscope-publisher"),
		nats.Timeout(10*time.Second),
		nats.ReconnectWait(1*time.Second),
		nats.MaxReconnects(5),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	if err := ensureStream(js, logger); err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to ensure stream exists: %w", err)
	}

	logger.Info("NATS publisher initialized",
		"url", natsURL,
		"stream", StreamName,
	)

	return &JetStreamPublisher{nc: nc, js: js, metrics: m, logger: logger}, nil
}

// ensureStream creates the JetStream stream if it doesn't exist.
func ensureStream(js jetstream.JetStream, logger *slog.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stream, err := js.Stream(ctx, StreamName)
	if err == nil {
		if info, err := stream.Info(ctx); err == nil {
			logger.Debug("JetStream stream already exists",
				"stream", StreamName,
				"messages", info.State.Msgs,
			)
		}
		return nil
	}

	logger.Info("creating JetStream stream", "stream", StreamName)

	_, err = js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Description: "Block summaries produced by slot scans",
		Subjects:    []string{StreamSubjects},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      StreamRetention,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}
	return nil
}

// PublishBlock publishes a single block event.
func (p *JetStreamPublisher) PublishBlock(ctx context.Context, event *BlockEvent) error {
	subject := event.Subject()

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal block event: %w", err)
	}

	status := "success"
	defer metrics.Timer(time.Now(), func(duration float64) {
		p.metrics.RecordNATSPublish(StreamSubjects, status, duration)
	})()

	if _, err := p.js.Publish(ctx, subject, data); err != nil {
		status = "error"
		return fmt.Errorf("failed to publish block %d: %w", event.Slot, err)
	}

	p.logger.Debug("published block event",
		"subject", subject,
		"slot", event.Slot,
	)
	return nil
}

// Close closes the connection to NATS.
func (p *JetStreamPublisher) Close() error {
	if p.nc != nil {
		p.nc.Close()
		p.logger.Info("NATS publisher closed")
	}
	return nil
}
