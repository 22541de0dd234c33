// Package nats publishes scan lifecycle events to a NATS subject.
package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/ochairo/roaster/internal/domain/entities"
	"github.com/ochairo/roaster/internal/domain/interfaces"
)

// DefaultSubject receives one message per finished scan
const DefaultSubject = "roaster.scan.completed"

// ErrNotConnected is returned when publishing after Close
var ErrNotConnected = errors.New("nats publisher is not connected")

type publishFunc func(subject string, data []byte) error

// Publisher implements gateways.EventPublisher
type Publisher struct {
	conn    *nats.Conn
	subject string
	publish publishFunc
	logger  interfaces.Logger
}

// NewPublisher connects to natsURL. The connection retries in the background,
// so a broker that starts later is picked up without restarting the service.
func NewPublisher(natsURL, subject string, logger interfaces.Logger) (*Publisher, error) {
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}
	conn, err := nats.Connect(natsURL,
		nats.Name("roaster"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(10),
		nats.ReconnectWait(2*time.Second))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}

	logger.Info("connected to NATS", interfaces.F("url", natsURL))

	p := newPublisher(conn.Publish, subject, logger)
	p.conn = conn
	return p, nil
}

func newPublisher(publish publishFunc, subject string, logger interfaces.Logger) *Publisher {
	if subject == "" {
		subject = DefaultSubject
	}
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}
	return &Publisher{
		subject: subject,
		publish: publish,
		logger:  logger,
	}
}

// PublishScanCompleted encodes event as JSON and publishes it
func (p *Publisher) PublishScanCompleted(ctx context.Context, event *entities.ScanCompletedEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.publish == nil {
		return ErrNotConnected
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal scan event: %w", err)
	}

	if err := p.publish(p.subject, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", p.subject, err)
	}

	p.logger.Debug("published scan event",
		interfaces.F("subject", p.subject),
		interfaces.F("scan_id", event.ScanID))
	return nil
}

// Close drains pending messages and disconnects
func (p *Publisher) Close() {
	if p.conn != nil {
		if err := p.conn.Drain(); err != nil {
			p.conn.Close()
		}
		p.conn = nil
	}
	p.publish = nil
}

// IsConnected reports whether the broker connection is up
func (p *Publisher) IsConnected() bool {
	return p.conn != nil && p.conn.IsConnected()
}
