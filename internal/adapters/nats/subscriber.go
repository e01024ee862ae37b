package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/yash1732/gigguard/internal/core/domain"
)

// Subscriber consumes SOS lifecycle events with durable JetStream consumers.
type Subscriber struct {
	conn *nats.Conn
	js   nats.JetStreamContext
	subs []*nats.Subscription
}

// NewSubscriber connects to NATS for durable consumption.
func NewSubscriber(url string) (*Subscriber, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}
	return &Subscriber{conn: conn, js: js}, nil
}

// SubscribeTriggered delivers every resolved SOS bundle to handler. A
// handler error or undecodable payload is redelivered up to 3 times.
func (s *Subscriber) SubscribeTriggered(ctx context.Context, durable string, handler func(ctx context.Context, bundle *domain.EmergencyBundle) error) error {
	sub, err := s.js.Subscribe(subjectTriggered+">", func(msg *nats.Msg) {
		var b domain.EmergencyBundle
		if err := json.Unmarshal(msg.Data, &b); err != nil {
			_ = msg.Term()
			return
		}
		if err := handler(ctx, &b); err != nil {
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	},
		nats.Durable(durable),
		nats.ManualAck(),
		nats.MaxDeliver(3),
		nats.DeliverNew(),
	)
	if err != nil {
		return err
	}
	s.subs = append(s.subs, sub)
	return nil
}

// SubscribeAcknowledged delivers SOS ids as they are acknowledged.
func (s *Subscriber) SubscribeAcknowledged(ctx context.Context, durable string, handler func(ctx context.Context, sosID string) error) error {
	sub, err := s.js.Subscribe(subjectAcknowledged+">", func(msg *nats.Msg) {
		var ack AckMessage
		if err := json.Unmarshal(msg.Data, &ack); err != nil || ack.SOSID == "" {
			_ = msg.Term()
			return
		}
		if err := handler(ctx, ack.SOSID); err != nil {
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	},
		nats.Durable(durable),
		nats.ManualAck(),
		nats.MaxDeliver(3),
		nats.DeliverNew(),
	)
	if err != nil {
		return err
	}
	s.subs = append(s.subs, sub)
	return nil
}

// Close unsubscribes and drains.
func (s *Subscriber) Close() {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	_ = s.conn.Drain()
}
