// Package notify carries conflict and readiness events out of the allocation
// engine. The engine decides WHEN to notify; delivery is the sink's problem.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Event kinds.
const (
	KindReadinessChanged  = "readiness.changed"
	KindReservationStolen = "reservation.stolen"
)

// Event is a typed notification emitted by the allocation engine.
type Event interface {
	Kind() string
	OccurredAt() time.Time
}

// ReadinessChanged fires when a case's readiness verdict moves.
type ReadinessChanged struct {
	CaseID   uuid.UUID `json:"case_id"`
	Previous string    `json:"previous"`
	Current  string    `json:"current"`
	At       time.Time `json:"at"`
}

func (e ReadinessChanged) Kind() string          { return KindReadinessChanged }
func (e ReadinessChanged) OccurredAt() time.Time { return e.At }

// ReservationStolen fires when committed stock moves from one case's
// reservation to another case.
type ReservationStolen struct {
	SourceCaseID        uuid.UUID `json:"source_case_id"`
	TargetCaseID        uuid.UUID `json:"target_case_id"`
	LotID               uuid.UUID `json:"lot_id"`
	SourceReservationID uuid.UUID `json:"source_reservation_id"`
	NewReservationID    uuid.UUID `json:"new_reservation_id"`
	Quantity            int       `json:"quantity"`
	Reason              string    `json:"reason"`
	At                  time.Time `json:"at"`
}

func (e ReservationStolen) Kind() string          { return KindReservationStolen }
func (e ReservationStolen) OccurredAt() time.Time { return e.At }

// Sink receives events. Publish must not block the caller on delivery; a
// failed delivery is the sink's to log and retry.
type Sink interface {
	Publish(ctx context.Context, event Event) error
}

// -- Memory Sink --

// MemorySink collects events in memory. Used in tests and as a safe default
// when no webhook is configured.
type MemorySink struct {
	mu     sync.Mutex
	events []Event
}

func NewMemorySink() *MemorySink { return &MemorySink{} }

func (s *MemorySink) Publish(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// Events returns a snapshot of everything published so far.
func (s *MemorySink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

// ByKind filters the snapshot to one event kind.
func (s *MemorySink) ByKind(kind string) []Event {
	var out []Event
	for _, e := range s.Events() {
		if e.Kind() == kind {
			out = append(out, e)
		}
	}
	return out
}

// -- Webhook Sink --

type envelope struct {
	Kind       string      `json:"kind"`
	OccurredAt time.Time   `json:"occurred_at"`
	Payload    interface{} `json:"payload"`
}

// WebhookSink POSTs events to a configured URL, asynchronously, with bounded
// retry. Events that still fail after the last attempt are logged and
// dropped.
type WebhookSink struct {
	url        string
	client     *http.Client
	logger     zerolog.Logger
	maxRetries int
	retryDelay time.Duration
}

func NewWebhookSink(url string, logger zerolog.Logger) *WebhookSink {
	return &WebhookSink{
		url:        url,
		client:     &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
		maxRetries: 3,
		retryDelay: 2 * time.Second,
	}
}

func (s *WebhookSink) Publish(_ context.Context, event Event) error {
	body, err := json.Marshal(envelope{Kind: event.Kind(), OccurredAt: event.OccurredAt(), Payload: event})
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", event.Kind(), err)
	}
	go s.deliver(event.Kind(), body)
	return nil
}

func (s *WebhookSink) deliver(kind string, body []byte) {
	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		resp, err := s.client.Post(s.url, "application/json", bytes.NewReader(body))
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode < 300 {
				return
			}
			err = fmt.Errorf("webhook returned %d", resp.StatusCode)
		}
		s.logger.Warn().Err(err).Str("kind", kind).Int("attempt", attempt).Msg("event delivery failed")
		if attempt < s.maxRetries {
			time.Sleep(s.retryDelay)
		}
	}
	s.logger.Error().Str("kind", kind).Msg("event dropped after retries")
}
