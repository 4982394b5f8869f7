// Package events announces data source changes to ingestion workers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Op names the change a ChangeEvent reports.
type Op string

const (
	OpCreated Op = "created"
	OpUpdated Op = "updated"
	OpDeleted Op = "deleted"
)

// ChangeEvent is published after a data source mutation has committed.
type ChangeEvent struct {
	Op           Op        `json:"op"`
	DataSourceID int64     `json:"id"`
	At           time.Time `json:"at"`
}

// Publisher delivers change events. Delivery is best effort.
type Publisher interface {
	Publish(ctx context.Context, event ChangeEvent) error
	Close()
}

// conn is the subset of *nats.Conn the publisher needs.
type conn interface {
	Publish(subject string, data []byte) error
	Drain() error
}

// NATSPublisher publishes change events as JSON on <prefix>.<op>.
type NATSPublisher struct {
	conn   conn
	prefix string
	logger *zap.Logger
}

var _ Publisher = (*NATSPublisher)(nil)

// ConnectNATS dials url and returns a publisher for subjectPrefix.
// The connection reconnects forever in the background.
func ConnectNATS(url, subjectPrefix string, logger *zap.Logger) (*NATSPublisher, error) {
	logger = logger.Named("events")

	nc, err := nats.Connect(url,
		nats.Name("ingestion-catalog"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.Warn("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	logger.Info("NATS connection established", zap.String("url", url))
	return newNATSPublisher(nc, subjectPrefix, logger), nil
}

func newNATSPublisher(c conn, prefix string, logger *zap.Logger) *NATSPublisher {
	return &NATSPublisher{conn: c, prefix: prefix, logger: logger}
}

// Subject returns the subject an event with op is published on.
func (p *NATSPublisher) Subject(op Op) string {
	return p.prefix + "." + string(op)
}

func (p *NATSPublisher) Publish(ctx context.Context, event ChangeEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal change event: %w", err)
	}

	subject := p.Subject(event.Op)
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish %s: %w", subject, err)
	}

	p.logger.Debug("Published change event",
		zap.String("subject", subject),
		zap.Int64("data_source_id", event.DataSourceID))
	return nil
}

// Close flushes pending messages and closes the connection.
func (p *NATSPublisher) Close() {
	if err := p.conn.Drain(); err != nil {
		p.logger.Warn("Failed to drain NATS connection", zap.Error(err))
	}
}

// NoopPublisher discards events. Used when no broker is configured.
type NoopPublisher struct{}

var _ Publisher = NoopPublisher{}

func (NoopPublisher) Publish(context.Context, ChangeEvent) error { return nil }
func (NoopPublisher) Close()                                     {}
