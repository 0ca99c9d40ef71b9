package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/crimestat/crimestat/internal/core/ports"
)

// Subjects.
const (
	FetchSubjectPrefix   = "crimestat.fetch."
	SessionSubjectPrefix = "crimestat.session."
	fetchStream          = "CRIMESTAT_FETCHES"
)

// SessionSubject is the core-NATS subject carrying a session's render events.
func SessionSubject(id string) string {
	return SessionSubjectPrefix + id
}

// FetchSubject is the JetStream subject a fetch outcome is published on.
func FetchSubject(status string) string {
	return FetchSubjectPrefix + status
}

// Publisher implements ports.EventPublisher on JetStream and ports.MapSurface
// on plain NATS subjects.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS and enables JetStream.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	cfg := &nats.StreamConfig{
		Name:      fetchStream,
		Subjects:  []string{FetchSubjectPrefix + ">"},
		Retention: nats.WorkQueuePolicy,
		MaxAge:    24 * time.Hour,
		Storage:   nats.FileStorage,
	}
	if _, err := js.AddStream(cfg); err != nil {
		// Stream may already exist, try update
		if _, err := js.UpdateStream(cfg); err != nil {
			return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
		}
	}

	return &Publisher{conn: conn, js: js}, nil
}

// PublishFetchOutcome persists an outcome on the fetch stream.
func (p *Publisher) PublishFetchOutcome(ctx context.Context, o *ports.FetchOutcome) error {
	data, err := json.Marshal(o)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(FetchSubject(o.Status), data, nats.Context(ctx))
	return err
}

// Render fans a session render event out to WebSocket relays.
func (p *Publisher) Render(_ context.Context, ev ports.RenderEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return p.conn.Publish(SessionSubject(ev.Session), data)
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

// RawConn creates a plain NATS connection for subscribing (e.g. WebSocket relay).
func RawConn(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.Name("crimestat"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}
