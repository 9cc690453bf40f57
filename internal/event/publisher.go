// Package event delivers appointment state changes to the notification
// service. Delivery is best-effort, at-most-once: a committed mutation is
// never rolled back because its event could not be delivered, and there is
// no retry queue. Callers that need notifications for correctness must not
// rely on this pipeline.
package event

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	TypeAppointmentCreated   = "appointment.created"
	TypeAppointmentApproved  = "appointment.approved"
	TypeAppointmentRejected  = "appointment.rejected"
	TypeAppointmentCompleted = "appointment.completed"
	TypeAppointmentCancelled = "appointment.cancelled"
)

// Envelope is the message handed from the appointment service to the
// notification ingest endpoint.
type Envelope struct {
	EventType string         `json:"eventType"`
	Data      map[string]any `json:"data"`
	Timestamp string         `json:"timestamp"`
}

// Publisher posts envelopes to the notification ingest endpoint.
type Publisher interface {
	Publish(eventType string, data map[string]any)
}

type HTTPPublisher struct {
	ingestURL string
	client    *http.Client
	log       zerolog.Logger
}

func NewHTTPPublisher(baseURL string, timeout time.Duration, log zerolog.Logger) *HTTPPublisher {
	return &HTTPPublisher{
		ingestURL: strings.TrimRight(baseURL, "/") + "/api/events",
		client:    &http.Client{Timeout: timeout},
		log:       log,
	}
}

// Publish dispatches delivery on its own goroutine so the triggering HTTP
// response never waits on it. Failures are logged and dropped.
func (p *HTTPPublisher) Publish(eventType string, data map[string]any) {
	env := Envelope{
		EventType: eventType,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	go func() {
		if err := p.deliver(env); err != nil {
			p.log.Error().Err(err).Str("event_type", eventType).Msg("event delivery failed, dropping")
			return
		}
		p.log.Debug().Str("event_type", eventType).Msg("event delivered")
	}()
}

func (p *HTTPPublisher) deliver(env Envelope) error {
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.client.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.ingestURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build event request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("post event: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("ingest endpoint returned %d", resp.StatusCode)
	}

	return nil
}
