package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/yash1732/gigguard/internal/core/domain"
)

// Stream and subject names for SOS lifecycle events.
const (
	StreamSOSEvents = "SOS_EVENTS"

	SubjectAll          = "sos.>"
	subjectTriggered    = "sos.triggered."
	subjectAcknowledged = "sos.acknowledged."
	subjectEscalated    = "sos.escalated."
)

// TriggeredSubject is the subject a worker's SOS is published on.
func TriggeredSubject(workerID string) string { return subjectTriggered + workerID }

// AcknowledgedSubject is the subject an acknowledgement is published on.
func AcknowledgedSubject(sosID string) string { return subjectAcknowledged + sosID }

// EscalatedSubject is the subject an escalation is published on.
func EscalatedSubject(sosID string) string { return subjectEscalated + sosID }

// AckMessage is the payload of an acknowledgement event.
type AckMessage struct {
	SOSID          string    `json:"sos_id"`
	AcknowledgedAt time.Time `json:"acknowledged_at"`
}

// Publisher implements ports.EventPublisher using NATS JetStream.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS and ensures the SOS stream exists.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	cfg := nats.StreamConfig{
		Name:      StreamSOSEvents,
		Subjects:  []string{SubjectAll},
		Retention: nats.LimitsPolicy,
		MaxAge:    7 * 24 * time.Hour,
		Storage:   nats.FileStorage,
	}
	if _, err := js.AddStream(&cfg); err != nil {
		// Stream may already exist; try update
		if _, err := js.UpdateStream(&cfg); err != nil {
			conn.Close()
			return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
		}
	}

	return &Publisher{conn: conn, js: js}, nil
}

// PublishTriggered publishes the resolved bundle on sos.triggered.<worker_id>.
func (p *Publisher) PublishTriggered(ctx context.Context, bundle *domain.EmergencyBundle) error {
	data, err := json.Marshal(bundle)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(TriggeredSubject(bundle.WorkerID), data,
		nats.Context(ctx), nats.MsgId(bundle.SOSID))
	return err
}

// PublishAcknowledged publishes on sos.acknowledged.<sos_id>.
func (p *Publisher) PublishAcknowledged(ctx context.Context, sosID string) error {
	data, err := json.Marshal(AckMessage{SOSID: sosID, AcknowledgedAt: time.Now().UTC()})
	if err != nil {
		return err
	}
	_, err = p.js.Publish(AcknowledgedSubject(sosID), data, nats.Context(ctx))
	return err
}

// PublishEscalated publishes the escalated event on sos.escalated.<sos_id>.
func (p *Publisher) PublishEscalated(ctx context.Context, event *domain.SOSEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(EscalatedSubject(event.ID), data,
		nats.Context(ctx), nats.MsgId("escalated-"+event.ID))
	return err
}

// Connected reports whether the underlying connection is up.
func (p *Publisher) Connected() bool {
	return p.conn.IsConnected()
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

// RawConn creates a plain NATS connection for subscribing (e.g. WebSocket relay).
func RawConn(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.Name("gigguard"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}
