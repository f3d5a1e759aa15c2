package kafka

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Handler returns nil only when the message is done and its offset may be committed.
type Handler func(ctx context.Context, m kafka.Message) error

// MessageReader is the part of *kafka.Reader the consumer uses.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Consumer struct {
	r       MessageReader
	workers int
	log     *zap.Logger
	backoff time.Duration
}

func NewConsumer(brokers []string, group, topic string, workers int, log *zap.Logger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		GroupID:        group,
		Topic:          topic,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0, // commit per message
	})
	return NewConsumerWithReader(r, workers, log)
}

func NewConsumerWithReader(r MessageReader, workers int, log *zap.Logger) *Consumer {
	if workers <= 0 {
		workers = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Consumer{r: r, workers: workers, log: log, backoff: 200 * time.Millisecond}
}

// Start fetches until ctx is done or the reader fails. Worker goroutines
// have all returned by the time Start does.
func (c *Consumer) Start(ctx context.Context, h Handler) error {
	defer func() {
		if err := c.r.Close(); err != nil {
			c.log.Warn("kafka reader close", zap.Error(err))
		}
	}()

	jobs := make(chan kafka.Message, c.workers*4)
	var wg sync.WaitGroup
	for i := 0; i < c.workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for m := range jobs {
				c.handle(ctx, id, h, m)
			}
		}(i)
	}
	defer wg.Wait()
	defer close(jobs)

	for {
		m, err := c.r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		select {
		case jobs <- m:
		case <-ctx.Done():
			return nil
		}
	}
}

func (c *Consumer) handle(ctx context.Context, worker int, h Handler, m kafka.Message) {
	if err := h(ctx, m); err != nil {
		c.log.Warn("handler failed",
			zap.Int("worker", worker), zap.Int("partition", m.Partition), zap.Int64("offset", m.Offset), zap.Error(err))
		select {
		case <-time.After(c.backoff):
		case <-ctx.Done():
		}
		return
	}
	if err := c.r.CommitMessages(ctx, m); err != nil && ctx.Err() == nil {
		c.log.Warn("commit failed", zap.Int64("offset", m.Offset), zap.Error(err))
	}
}
