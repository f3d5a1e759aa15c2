package kafka

import (
	"context"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// MessageWriter is the part of *kafka.Writer the producer uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer queues messages and writes them from a single goroutine.
// Publish never blocks: a full inbox drops the message with a warning.
type Producer struct {
	w       MessageWriter
	log     *zap.Logger
	inbox   chan kafka.Message
	closeCh chan struct{}

	mu     sync.RWMutex
	closed bool
	once   sync.Once
}

func NewProducer(brokers []string, topic string, buf int, log *zap.Logger) *Producer {
	return NewProducerWithWriter(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 50 * time.Millisecond,
	}, buf, log)
}

func NewProducerWithWriter(w MessageWriter, buf int, log *zap.Logger) *Producer {
	if buf <= 0 {
		buf = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Producer{
		w:       w,
		log:     log,
		inbox:   make(chan kafka.Message, buf),
		closeCh: make(chan struct{}),
	}
}

// Start runs the write loop until ctx is done or Close is called, then
// flushes whatever is still queued.
func (p *Producer) Start(ctx context.Context) {
	go func() {
		defer close(p.closeCh)
		for {
			select {
			case <-ctx.Done():
				p.Close()
				p.drain()
				return
			case m, ok := <-p.inbox:
				if !ok {
					p.shutdown()
					return
				}
				p.write(context.Background(), m)
			}
		}
	}()
}

func (p *Producer) Publish(key, value []byte, headers ...kafka.Header) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.log.Warn("kafka producer closed, message dropped")
		return
	}
	m := kafka.Message{Key: key, Value: value, Time: time.Now(), Headers: headers}
	select {
	case p.inbox <- m:
	default:
		p.log.Warn("kafka inbox full, message dropped", zap.Int("capacity", cap(p.inbox)))
	}
}

// Close stops accepting messages. Safe to call more than once.
func (p *Producer) Close() {
	p.once.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.inbox)
		p.mu.Unlock()
	})
}

// WaitClosed blocks until the write loop has flushed and closed the writer.
func (p *Producer) WaitClosed() { <-p.closeCh }

func (p *Producer) drain() {
	for m := range p.inbox {
		p.write(context.Background(), m)
	}
	p.shutdown()
}

func (p *Producer) shutdown() {
	if err := p.w.Close(); err != nil {
		p.log.Warn("kafka writer close", zap.Error(err))
	}
}

func (p *Producer) write(ctx context.Context, m kafka.Message) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := p.w.WriteMessages(ctx, m); err != nil {
		p.log.Warn("kafka write failed", zap.Error(err), zap.ByteString("key", m.Key))
	}
}
