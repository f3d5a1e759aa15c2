// Package activity publishes storefront activity events and consumes them
// on the other side of the topic.
package activity

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	kafkax "github.com/ariefcatur/mobirepair-storefront/internal/kafka"
	"github.com/ariefcatur/mobirepair-storefront/internal/storefront"
)

// Publisher is fire-and-forget: it has no error to return and must not
// block the state transition that produced the event.
type Publisher interface {
	Publish(ctx context.Context, eventType, correlationID string, payload any)
}

type Nop struct{}

func (Nop) Publish(context.Context, string, string, any) {}

// Sink is the subset of *kafka.Producer used here.
type Sink interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

type KafkaPublisher struct {
	sink     Sink
	producer string
	log      *zap.Logger
	now      func() time.Time
}

func NewKafkaPublisher(sink Sink, producer string, log *zap.Logger) *KafkaPublisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &KafkaPublisher{sink: sink, producer: producer, log: log, now: time.Now}
}

func (p *KafkaPublisher) Publish(_ context.Context, eventType, correlationID string, payload any) {
	env, err := NewEnvelope(eventType, p.producer, correlationID, payload, p.now())
	if err != nil {
		p.log.Warn("activity envelope", zap.String("event_type", eventType), zap.Error(err))
		return
	}
	p.sink.Publish(storefront.PartitionKey(correlationID), kafkax.MustMarshal(env),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

func NewEnvelope(eventType, producer, correlationID string, payload any, at time.Time) (storefront.Envelope, error) {
	raw, err := marshal(payload)
	if err != nil {
		return storefront.Envelope{}, err
	}
	return storefront.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    at.UTC(),
		Producer:      producer,
		CorrelationID: correlationID,
		Payload:       raw,
	}, nil
}

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []storefront.Envelope
}

func (r *Recorder) Publish(_ context.Context, eventType, correlationID string, payload any) {
	env, err := NewEnvelope(eventType, "recorder", correlationID, payload, time.Now())
	if err != nil {
		return
	}
	r.mu.Lock()
	r.events = append(r.events, env)
	r.mu.Unlock()
}

func (r *Recorder) Events() []storefront.Envelope {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]storefront.Envelope(nil), r.events...)
}

// Types returns the recorded event types in publish order.
func (r *Recorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.EventType
	}
	return out
}
