package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
)

type fakeWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func TestNewEnvelope(t *testing.T) {
	env, err := NewEnvelope(TypeSaleRecorded, "9780000000002", SaleRecordedPayload{
		OrderNumber: "1-2", Identifier: "9780000000002", Quantity: 2, Price: decimal.RequireFromString("7.50"),
	})
	if err != nil {
		t.Fatalf("NewEnvelope: %v", err)
	}
	if env.EventID == "" || env.EventVersion != 1 || env.Producer != Producer {
		t.Errorf("unexpected envelope %+v", env)
	}

	p, err := Decode[SaleRecordedPayload](env)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if p.Quantity != 2 || !p.Price.Equal(decimal.RequireFromString("7.5")) {
		t.Errorf("unexpected payload %+v", p)
	}
}

func TestKafkaPublisherFlushesOnClose(t *testing.T) {
	w := &fakeWriter{}
	p := newKafkaPublisher(w, 8)
	p.Start()

	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		if err := Emit(ctx, p, TypeScanEnriched, id, ScanEnrichedPayload{Identifier: id}); err != nil {
			t.Fatalf("Emit(%s): %v", id, err)
		}
	}
	p.Close()

	if !w.closed {
		t.Error("writer should be closed")
	}
	if len(w.msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(w.msgs))
	}
	if string(w.msgs[1].Key) != "b" {
		t.Errorf("expected key b, got %q", w.msgs[1].Key)
	}
	var env Envelope
	if err := json.Unmarshal(w.msgs[0].Value, &env); err != nil {
		t.Fatalf("decoding message: %v", err)
	}
	if env.EventType != TypeScanEnriched {
		t.Errorf("expected %s, got %s", TypeScanEnriched, env.EventType)
	}
	if string(w.msgs[0].Headers[0].Value) != TypeScanEnriched {
		t.Errorf("unexpected header %+v", w.msgs[0].Headers[0])
	}

	if err := p.Publish(ctx, env); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed after Close, got %v", err)
	}
}

func TestKafkaPublisherBufferFull(t *testing.T) {
	p := newKafkaPublisher(&fakeWriter{}, 1)

	env, _ := NewEnvelope(TypeScanEnriched, "x", struct{}{})
	if err := p.Publish(context.Background(), env); err != nil {
		t.Fatalf("first Publish: %v", err)
	}
	if err := p.Publish(context.Background(), env); !errors.Is(err, ErrBufferFull) {
		t.Errorf("expected ErrBufferFull, got %v", err)
	}
}

func TestKafkaPublisherCloseWithoutStart(t *testing.T) {
	w := &fakeWriter{}
	p := newKafkaPublisher(w, 4)

	env, _ := NewEnvelope(TypeScanEnriched, "x", struct{}{})
	if err := p.Publish(context.Background(), env); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	done := make(chan struct{})
	go func() {
		p.Close()
		p.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Close blocked without a running writer loop")
	}

	w.mu.Lock()
	closed := w.closed
	w.mu.Unlock()
	if !closed {
		t.Error("expected the writer to be closed")
	}
	if err := p.Publish(context.Background(), env); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}

	// Start after Close must not spin up a loop.
	p.Start()
	if len(w.msgs) != 0 {
		t.Errorf("expected no messages written, got %d", len(w.msgs))
	}
}

func TestEmitNilPublisher(t *testing.T) {
	if err := Emit(context.Background(), nil, TypeSaleRecorded, "", nil); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
}
