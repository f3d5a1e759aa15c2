package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func (w *fakeWriter) snapshot() ([]kafka.Message, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]kafka.Message(nil), w.msgs...), w.closed
}

func TestProducer_FlushesOnClose(t *testing.T) {
	w := &fakeWriter{}
	p := NewProducerWithWriter(w, 16, nil)
	p.Start(context.Background())

	p.Publish([]byte("k1"), []byte("v1"), kafka.Header{Key: "x-event-type", Value: []byte("A")})
	p.Publish([]byte("k2"), []byte("v2"))
	p.Close()
	p.WaitClosed()

	msgs, closed := w.snapshot()
	require.Len(t, msgs, 2)
	assert.Equal(t, "v1", string(msgs[0].Value))
	assert.Equal(t, "x-event-type", msgs[0].Headers[0].Key)
	assert.True(t, closed)

	// no panic after close
	p.Publish([]byte("k3"), []byte("v3"))
	p.Close()
}

func TestProducer_FlushesOnContextCancel(t *testing.T) {
	w := &fakeWriter{}
	p := NewProducerWithWriter(w, 16, nil)
	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx)

	p.Publish(nil, []byte("v1"))
	cancel()
	p.WaitClosed()

	_, closed := w.snapshot()
	assert.True(t, closed)
}

func TestProducer_WriteErrorsAreSwallowed(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	p := NewProducerWithWriter(w, 4, nil)
	p.Start(context.Background())
	p.Publish(nil, []byte("v"))
	p.Close()
	p.WaitClosed()

	msgs, _ := w.snapshot()
	assert.Empty(t, msgs)
}

func TestProducer_FullInboxDrops(t *testing.T) {
	w := &fakeWriter{}
	p := NewProducerWithWriter(w, 1, nil)
	// not started: the single slot fills, the rest are dropped without blocking
	p.Publish(nil, []byte("1"))
	p.Publish(nil, []byte("2"))
	p.Publish(nil, []byte("3"))

	p.Start(context.Background())
	p.Close()
	p.WaitClosed()

	msgs, _ := w.snapshot()
	require.Len(t, msgs, 1)
	assert.Equal(t, "1", string(msgs[0].Value))
}

type fakeReader struct {
	mu        sync.Mutex
	queue     chan kafka.Message
	committed []int64
	closed    bool
}

func newFakeReader(msgs ...kafka.Message) *fakeReader {
	q := make(chan kafka.Message, len(msgs))
	for _, m := range msgs {
		q <- m
	}
	return &fakeReader{queue: q}
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	select {
	case m := <-r.queue:
		return m, nil
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	}
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *fakeReader) commits() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.committed...)
}

func TestConsumer_CommitsOnlyHandledMessages(t *testing.T) {
	r := newFakeReader(
		kafka.Message{Offset: 1, Value: []byte("ok")},
		kafka.Message{Offset: 2, Value: []byte("fail")},
		kafka.Message{Offset: 3, Value: []byte("ok")},
	)
	c := NewConsumerWithReader(r, 2, nil)
	c.backoff = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	var seen sync.WaitGroup
	seen.Add(3)
	done := make(chan error, 1)
	go func() {
		done <- c.Start(ctx, func(_ context.Context, m kafka.Message) error {
			defer seen.Done()
			if string(m.Value) == "fail" {
				return errors.New("boom")
			}
			return nil
		})
	}()

	seen.Wait()
	require.Eventually(t, func() bool { return len(r.commits()) == 2 }, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.ElementsMatch(t, []int64{1, 3}, r.commits())
	assert.True(t, r.closed)
}
