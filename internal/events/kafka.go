package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// ErrClosed is returned by Publish after Close.
var ErrClosed = errors.New("publisher closed")

// ErrBufferFull is returned when the outgoing buffer has no room.
var ErrBufferFull = errors.New("event buffer full")

// messageWriter is the part of *kafka.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes envelopes to a topic from a background goroutine.
type KafkaPublisher struct {
	w     messageWriter
	inbox chan kafka.Message
	done  chan struct{}

	mu      sync.Mutex
	started bool
	closed  bool
}

// NewKafkaPublisher returns a publisher for topic with room for buf pending
// messages. Call Start before publishing.
func NewKafkaPublisher(brokers []string, topic string, buf int) *KafkaPublisher {
	return newKafkaPublisher(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		WriteTimeout: 10 * time.Second,
	}, buf)
}

func newKafkaPublisher(w messageWriter, buf int) *KafkaPublisher {
	return &KafkaPublisher{
		w:     w,
		inbox: make(chan kafka.Message, buf),
		done:  make(chan struct{}),
	}
}

// Start runs the writer loop until Close is called. Only the first call
// has an effect.
func (p *KafkaPublisher) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.closed {
		return
	}
	p.started = true
	go func() {
		defer close(p.done)
		for m := range p.inbox {
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			if err := p.w.WriteMessages(ctx, m); err != nil {
				slog.Warn("publishing event", "key", string(m.Key), "error", err)
			}
			cancel()
		}
		if err := p.w.Close(); err != nil {
			slog.Warn("closing event writer", "error", err)
		}
	}()
}

// Publish queues env for delivery.
func (p *KafkaPublisher) Publish(ctx context.Context, env Envelope) error {
	b, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encoding envelope: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(env.Key),
		Value: b,
		Time:  env.OccurredAt,
		Headers: []kafka.Header{
			{Key: "x-event-type", Value: []byte(env.EventType)},
			{Key: "x-event-version", Value: []byte(strconv.Itoa(env.EventVersion))},
		},
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	select {
	case p.inbox <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrBufferFull
	}
}

// Close stops accepting events, flushes the queue and waits for the writer
// loop to exit. Without a running loop, queued events are dropped.
func (p *KafkaPublisher) Close() {
	p.mu.Lock()
	first := !p.closed
	if first {
		p.closed = true
		close(p.inbox)
	}
	started := p.started
	p.mu.Unlock()

	if started {
		<-p.done
		return
	}
	if !first {
		return
	}
	if n := len(p.inbox); n > 0 {
		slog.Warn("dropping unpublished events", "count", n)
	}
	if err := p.w.Close(); err != nil {
		slog.Warn("closing event writer", "error", err)
	}
}
