package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

const envelopeSource = "guildbank"

// Envelope wraps a committed event for delivery to external consumers
type Envelope struct {
	EventID   string          `json:"event_id"`
	EventType EventType       `json:"event_type"`
	Timestamp time.Time       `json:"timestamp"`
	Source    string          `json:"source"`
	Payload   json.RawMessage `json:"payload"`
}

// NewEnvelope serializes event into a fresh envelope
func NewEnvelope(event Event) (*Envelope, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event payload: %w", err)
	}
	return &Envelope{
		EventID:   uuid.New().String(),
		EventType: event.Type(),
		Timestamp: time.Now().UTC(),
		Source:    envelopeSource,
		Payload:   payload,
	}, nil
}

type subjectPublisher interface {
	Publish(subject string, data []byte) error
}

// NATSForwarder republishes bus events to NATS subjects "<prefix>.<event_type>".
// Delivery is best effort; failures are logged and dropped.
type NATSForwarder struct {
	conn      *nats.Conn
	publisher subjectPublisher
	prefix    string
}

// ConnectNATSForwarder dials servers and returns a forwarder publishing under prefix
func ConnectNATSForwarder(servers, prefix string) (*NATSForwarder, error) {
	nc, err := nats.Connect(servers,
		nats.Name("guildbank"),
		nats.MaxReconnects(10),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				log.WithError(err).Error("NATS disconnected with error")
			} else {
				log.Warn("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	log.WithField("servers", servers).Info("Connected to NATS")
	f := newNATSForwarder(nc, prefix)
	f.conn = nc
	return f, nil
}

func newNATSForwarder(publisher subjectPublisher, prefix string) *NATSForwarder {
	return &NATSForwarder{
		publisher: publisher,
		prefix:    prefix,
	}
}

// Attach subscribes the forwarder to every event type on bus
func (f *NATSForwarder) Attach(bus *Bus) {
	bus.SubscribeAll(f.forward)
}

// Subject returns the NATS subject for an event type
func (f *NATSForwarder) Subject(eventType EventType) string {
	return fmt.Sprintf("%s.%s", f.prefix, eventType)
}

func (f *NATSForwarder) forward(ctx context.Context, event Event) {
	envelope, err := NewEnvelope(event)
	if err != nil {
		log.WithError(err).WithField("eventType", event.Type()).Error("Failed to build event envelope")
		return
	}

	data, err := json.Marshal(envelope)
	if err != nil {
		log.WithError(err).WithField("eventType", event.Type()).Error("Failed to marshal event envelope")
		return
	}

	subject := f.Subject(event.Type())
	if err := f.publisher.Publish(subject, data); err != nil {
		log.WithFields(log.Fields{
			"eventType": event.Type(),
			"subject":   subject,
			"error":     err,
		}).Warn("Failed to forward event to NATS")
		return
	}

	log.WithFields(log.Fields{
		"eventId": envelope.EventID,
		"subject": subject,
	}).Debug("Forwarded event to NATS")
}

// Close flushes buffered messages and closes the connection
func (f *NATSForwarder) Close() {
	if f.conn == nil {
		return
	}
	if err := f.conn.Drain(); err != nil {
		log.WithError(err).Warn("Failed to drain NATS connection")
		f.conn.Close()
	}
}
