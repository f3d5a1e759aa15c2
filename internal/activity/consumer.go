package activity

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	kafkax "github.com/ariefcatur/mobirepair-storefront/internal/kafka"
	"github.com/ariefcatur/mobirepair-storefront/internal/redisx"
	"github.com/ariefcatur/mobirepair-storefront/internal/storefront"
)

// Service is the consumer side of the activity topic.
type Service struct {
	Redis *redis.Client
	Log   *zap.Logger
	Name  string // dedup namespace
}

// HandleActivity is installed as the kafka.Handler. Malformed messages are
// logged and acknowledged so they do not block the partition.
func (s *Service) HandleActivity(ctx context.Context, m kafkago.Message) error {
	log := s.Log
	if log == nil {
		log = zap.NewNop()
	}

	var env storefront.Envelope
	if err := kafkax.UnmarshalEnvelope(m.Value, &env); err != nil {
		log.Warn("dropping malformed activity", zap.Int64("offset", m.Offset), zap.Error(err))
		return nil
	}
	if env.EventID == "" {
		log.Warn("dropping activity without event id", zap.String("event_type", env.EventType))
		return nil
	}

	ns := s.Name
	if ns == "" {
		ns = "activity"
	}
	first, err := redisx.MarkOnce(ctx, s.Redis, fmt.Sprintf(redisx.KeyDedup, ns, env.EventID), redisx.TTLDedup)
	if err != nil {
		return fmt.Errorf("dedup %s: %w", env.EventID, err)
	}
	if !first {
		log.Debug("duplicate activity", zap.String("event_id", env.EventID))
		return nil
	}

	log.Info("activity",
		zap.String("event_id", env.EventID),
		zap.String("event_type", env.EventType),
		zap.String("producer", env.Producer),
		zap.String("correlation_id", env.CorrelationID),
		zap.Time("occurred_at", env.OccurredAt),
		zap.ByteString("payload", env.Payload),
	)
	return nil
}
