package events

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/saxenasajal03/ConnectX/pkg/config"
	"go.uber.org/zap"
)

// NATSPublisher publishes events on <prefix>.<event type>.
type NATSPublisher struct {
	conn   *nats.Conn
	prefix string
	logger *zap.Logger
}

func NewNATSPublisher(cfg config.NATSConfig, logger *zap.Logger) (*NATSPublisher, error) {
	opts := []nats.Option{
		nats.Name("connectx"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.Warn("Disconnected from NATS", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("Reconnected to NATS", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logger.Info("NATS connection closed")
		}),
		nats.Timeout(5 * time.Second),
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSPublisher{
		conn:   conn,
		prefix: cfg.SubjectPrefix,
		logger: logger,
	}, nil
}

// Subject returns the subject an event type is published on.
func Subject(prefix string, t Type) string {
	if prefix == "" {
		return string(t)
	}
	return prefix + "." + string(t)
}

func (p *NATSPublisher) Publish(ctx context.Context, event Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := event.Encode()
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	subject := Subject(p.prefix, event.Type)
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish %s: %w", subject, err)
	}
	p.logger.Debug("Event published", zap.String("subject", subject), zap.String("request_id", event.RequestID))
	return nil
}

func (p *NATSPublisher) Close() {
	if p.conn == nil {
		return
	}
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
	}
}

// New returns a NATS publisher when a URL is configured and a no-op
// publisher otherwise.
func New(cfg config.NATSConfig, logger *zap.Logger) (Publisher, error) {
	if cfg.URL == "" {
		logger.Info("NATS_URL not set, relationship events disabled")
		return NoopPublisher{}, nil
	}
	return NewNATSPublisher(cfg, logger)
}
