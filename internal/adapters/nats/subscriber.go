package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/crimestat/crimestat/internal/core/ports"
)

// RecorderDurable is the durable consumer name of the query recorder.
const RecorderDurable = "query-recorder"

// Subscriber implements ports.EventSubscriber using NATS JetStream.
type Subscriber struct {
	conn *nats.Conn
	js   nats.JetStreamContext
	subs []*nats.Subscription
}

// NewSubscriber creates a subscriber with its own NATS connection.
func NewSubscriber(url string) (*Subscriber, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}
	return &Subscriber{conn: conn, js: js}, nil
}

// SubscribeFetchOutcomes delivers every fetch outcome to handler. Messages
// are acked only when handler succeeds; undecodable ones are terminated.
func (s *Subscriber) SubscribeFetchOutcomes(ctx context.Context, handler func(ctx context.Context, o *ports.FetchOutcome) error) error {
	sub, err := s.js.Subscribe(FetchSubjectPrefix+">", func(msg *nats.Msg) {
		var o ports.FetchOutcome
		if err := json.Unmarshal(msg.Data, &o); err != nil {
			slog.Warn("undecodable fetch outcome", "subject", msg.Subject, "error", err)
			_ = msg.Term()
			return
		}
		if err := handler(ctx, &o); err != nil {
			slog.Warn("fetch outcome handler", "subject", msg.Subject, "error", err)
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	},
		nats.Durable(RecorderDurable),
		nats.ManualAck(),
		nats.MaxDeliver(3),
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
