package consumer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/fitoclin/fitoclin/services/scheduling-service/internal/outbox"
)

type scriptedReader struct {
	msgs   chan kafka.Message
	errs   chan error
	closed chan struct{}
}

func newScriptedReader() *scriptedReader {
	return &scriptedReader{msgs: make(chan kafka.Message, 4), errs: make(chan error, 4), closed: make(chan struct{})}
}

func (r *scriptedReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	select {
	case m := <-r.msgs:
		return m, nil
	case err := <-r.errs:
		return kafka.Message{}, err
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	}
}

func (r *scriptedReader) Close() error {
	close(r.closed)
	return nil
}

type recordingCache struct {
	mu      sync.Mutex
	evicted []string
	signal  chan struct{}
}

func (c *recordingCache) Invalidate(doctorID string) {
	c.mu.Lock()
	c.evicted = append(c.evicted, doctorID)
	c.mu.Unlock()
	c.signal <- struct{}{}
}

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestRunInvalidatesOnScheduleChange(t *testing.T) {
	ev, err := outbox.ScheduleChangedEvent("doc-1", time.Now())
	if err != nil {
		t.Fatalf("event: %v", err)
	}
	r := newScriptedReader()
	cache := &recordingCache{signal: make(chan struct{}, 4)}
	c := &Consumer{reader: r, logger: discard(), handler: ScheduleChanged(cache, discard()), backoff: time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()

	r.errs <- errors.New("broker restarting")
	r.msgs <- kafka.Message{Topic: outbox.TopicScheduleChanged, Value: []byte("not json")}
	r.msgs <- kafka.Message{Topic: outbox.TopicScheduleChanged, Key: []byte(ev.AggregateID), Value: ev.Payload}

	select {
	case <-cache.signal:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for invalidation")
	}
	cancel()
	<-done

	if len(cache.evicted) != 1 || cache.evicted[0] != "doc-1" {
		t.Fatalf("unexpected evictions %v", cache.evicted)
	}
	select {
	case <-r.closed:
	default:
		t.Fatal("reader must be closed when Run returns")
	}
}

func TestScheduleChangedFallsBackToKey(t *testing.T) {
	cache := &recordingCache{signal: make(chan struct{}, 1)}
	h := ScheduleChanged(cache, discard())
	if err := h(context.Background(), kafka.Message{Key: []byte("doc-2"), Value: []byte(`{}`)}); err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if len(cache.evicted) != 1 || cache.evicted[0] != "doc-2" {
		t.Fatalf("unexpected evictions %v", cache.evicted)
	}
	if err := h(context.Background(), kafka.Message{Value: []byte(`{}`)}); err == nil {
		t.Fatal("expected error without a doctor id")
	}
}
