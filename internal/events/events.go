// Package events publishes pipeline milestones to a message broker.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event types.
const (
	TypeScanEnriched     = "ScanEnriched"
	TypeListingsExported = "ListingsExported"
	TypeSaleRecorded     = "SaleRecorded"
)

// Producer names the service in every envelope.
const Producer = "bookbin"

// Envelope wraps every published payload.
type Envelope struct {
	EventID      string          `json:"event_id"`
	EventType    string          `json:"event_type"`
	EventVersion int             `json:"event_version"`
	OccurredAt   time.Time       `json:"occurred_at"`
	Producer     string          `json:"producer"`
	Key          string          `json:"key,omitempty"`
	Payload      json.RawMessage `json:"payload"`
}

// NewEnvelope marshals payload into a fresh envelope. key is the partition
// key, usually an identifier.
func NewEnvelope(eventType, key string, payload any) (Envelope, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("encoding %s payload: %w", eventType, err)
	}
	return Envelope{
		EventID:      uuid.NewString(),
		EventType:    eventType,
		EventVersion: 1,
		OccurredAt:   time.Now().UTC(),
		Producer:     Producer,
		Key:          key,
		Payload:      b,
	}, nil
}

// Decode unmarshals the payload of env into T.
func Decode[T any](env Envelope) (T, error) {
	var t T
	if err := json.Unmarshal(env.Payload, &t); err != nil {
		return t, fmt.Errorf("decoding %s payload: %w", env.EventType, err)
	}
	return t, nil
}

type ScanEnrichedPayload struct {
	Identifier string          `json:"identifier"`
	ScanIDs    []int64         `json:"scan_ids"`
	Sources    []string        `json:"sources"`
	Title      string          `json:"title"`
	ListPrice  decimal.Decimal `json:"list_price"`
}

type ListingsExportedPayload struct {
	Path     string  `json:"path"`
	Rows     int     `json:"rows"`
	Quantity int     `json:"quantity"`
	ScanIDs  []int64 `json:"scan_ids"`
}

type SaleRecordedPayload struct {
	OrderNumber string          `json:"order_number"`
	Identifier  string          `json:"identifier"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	SoldAt      time.Time       `json:"sold_at"`
}

// Publisher delivers envelopes. Publish must not block on the broker.
type Publisher interface {
	Publish(ctx context.Context, env Envelope) error
}

// Nop drops every event. It is used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, Envelope) error { return nil }

// Emit builds an envelope and publishes it. Failures are returned but
// callers treat events as best-effort.
func Emit(ctx context.Context, p Publisher, eventType, key string, payload any) error {
	if p == nil {
		return nil
	}
	env, err := NewEnvelope(eventType, key, payload)
	if err != nil {
		return err
	}
	return p.Publish(ctx, env)
}
