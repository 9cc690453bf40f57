package event

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishDeliversEnvelope(t *testing.T) {
	received := make(chan Envelope, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/events", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var env Envelope
		require.NoError(t, json.NewDecoder(r.Body).Decode(&env))
		received <- env

		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	pub := NewHTTPPublisher(srv.URL, 2*time.Second, zerolog.Nop())
	pub.Publish(TypeAppointmentCreated, map[string]any{"appointmentId": "a-1", "doctorId": "d-1"})

	select {
	case env := <-received:
		assert.Equal(t, TypeAppointmentCreated, env.EventType)
		assert.Equal(t, "a-1", env.Data["appointmentId"])
		assert.Equal(t, "d-1", env.Data["doctorId"])

		_, err := time.Parse(time.RFC3339, env.Timestamp)
		assert.NoError(t, err, "timestamp must be RFC3339")
	case <-time.After(3 * time.Second):
		t.Fatal("envelope never arrived")
	}
}

func TestDeliverRejectsNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	pub := NewHTTPPublisher(srv.URL, 2*time.Second, zerolog.Nop())
	err := pub.deliver(Envelope{EventType: TypeAppointmentApproved, Data: map[string]any{}})
	assert.Error(t, err)
}

func TestDeliverFailsOnUnreachableEndpoint(t *testing.T) {
	pub := NewHTTPPublisher("http://127.0.0.1:1", 500*time.Millisecond, zerolog.Nop())
	err := pub.deliver(Envelope{EventType: TypeAppointmentApproved, Data: map[string]any{}})
	assert.Error(t, err)
}

func TestPublishSwallowsDeliveryFailure(t *testing.T) {
	// Nothing to observe directly: Publish must not panic or block when the
	// ingest endpoint is down.
	pub := NewHTTPPublisher("http://127.0.0.1:1", 100*time.Millisecond, zerolog.Nop())

	done := make(chan struct{})
	go func() {
		pub.Publish(TypeAppointmentCancelled, map[string]any{"appointmentId": "a-1"})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on delivery")
	}
}
