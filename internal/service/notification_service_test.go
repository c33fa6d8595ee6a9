package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/forgecomply/forgecomply360/internal/config"
	"github.com/forgecomply/forgecomply360/internal/domain"
	"github.com/forgecomply/forgecomply360/internal/events"
)

func TestNotificationWebhookDelivery(t *testing.T) {
	type delivery struct {
		header string
		event  events.Event
	}
	received := make(chan delivery, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var ev events.Event
		if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		received <- delivery{header: r.Header.Get("X-ForgeComply-Event"), event: ev}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	dispatcher := events.NewInMemoryDispatcher(nil)
	NewNotificationService(dispatcher, nil, config.NotificationConfig{WebhookURL: srv.URL}, srv.Client()).RegisterHandlers()

	require.NoError(t, dispatcher.Publish(context.Background(), events.Event{
		Type:         events.EventPOAMStatusChanged,
		OrgID:        "org-1",
		ResourceType: "poam",
		ResourceID:   "p-1",
		Payload:      events.POAMStatusChangedPayload{OldStatus: domain.POAMStatusOpen, NewStatus: domain.POAMStatusInProgress, Title: "Patch"},
	}))

	got := <-received
	assert.Equal(t, "poam_status_changed", got.header)
	assert.Equal(t, "p-1", got.event.ResourceID)
	assert.NotEmpty(t, got.event.ID)
	assert.False(t, got.event.Timestamp.IsZero())
}

func TestNotificationWebhookFailureIsLogged(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	core, logs := observer.New(zapcore.WarnLevel)
	dispatcher := events.NewInMemoryDispatcher(zap.New(core))
	NewNotificationService(dispatcher, nil, config.NotificationConfig{WebhookURL: srv.URL}, srv.Client()).RegisterHandlers()

	err := dispatcher.Publish(context.Background(), events.Event{Type: events.EventCheckDue, OrgID: "org-1"})
	require.NoError(t, err, "handler failures do not fail the publisher")

	entries := logs.FilterMessage("event handler failed").All()
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].ContextMap()["error"], "webhook responded 502")
}

func TestNotificationWithoutWebhookOnlyLogs(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	dispatcher := events.NewInMemoryDispatcher(nil)
	NewNotificationService(dispatcher, zap.New(core), config.NotificationConfig{}, nil).RegisterHandlers()

	require.NoError(t, dispatcher.Publish(context.Background(), events.Event{Type: events.EventUserCreated, OrgID: "org-1"}))
	entries := logs.FilterMessage("domain event").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "user_created", entries[0].ContextMap()["event_type"])
}
