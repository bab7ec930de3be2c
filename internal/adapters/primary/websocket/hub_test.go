package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beaconlabs/statuspage-backend/internal/core/domain"
)

type envelope struct {
	EventType string          `json:"event_type"`
	Payload   json.RawMessage `json:"payload"`
}

func startHub(t *testing.T, cfg Config) (*Hub, *Registry) {
	t.Helper()
	registry := NewRegistry()
	hub := NewHub(registry, cfg, slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	return hub, registry
}

// receiveFrame reads one queued frame from a client's send channel.
func receiveFrame(t *testing.T, client *Client) envelope {
	t.Helper()
	select {
	case frame := <-client.send:
		var env envelope
		require.NoError(t, json.Unmarshal(frame, &env))
		return env
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for frame")
		return envelope{}
	}
}

func TestHub_BroadcastReachesOnlyTheEventsOrganization(t *testing.T) {
	hub, _ := startHub(t, DefaultConfig())
	acme := uuid.New()
	other := uuid.New()

	a := NewClient(hub, nil, acme, slog.Default())
	b := NewClient(hub, nil, acme, slog.Default())
	c := NewClient(hub, nil, other, slog.Default())
	hub.Attach(a)
	hub.Attach(b)
	hub.Attach(c)

	svc := &domain.Service{ID: uuid.New(), OrganizationID: acme, Name: "API", Status: domain.StatusMajorOutage}
	require.NoError(t, hub.Broadcast(domain.NewServiceUpdatedEvent(svc)))

	for _, client := range []*Client{a, b} {
		env := receiveFrame(t, client)
		assert.Equal(t, string(domain.EventServiceUpdated), env.EventType)
		assert.Contains(t, string(env.Payload), svc.ID.String())
	}

	select {
	case frame := <-c.send:
		t.Fatalf("viewer of another organization received %s", frame)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_BroadcastWithNoViewersIsDropped(t *testing.T) {
	hub, _ := startHub(t, DefaultConfig())

	svc := &domain.Service{ID: uuid.New(), OrganizationID: uuid.New(), Name: "API"}
	assert.NoError(t, hub.Broadcast(domain.NewServiceCreatedEvent(svc)))
}

func TestHub_PerOrganizationOrderingIsPreserved(t *testing.T) {
	hub, _ := startHub(t, DefaultConfig())
	orgID := uuid.New()

	viewer := NewClient(hub, nil, orgID, slog.Default())
	hub.Attach(viewer)

	first := &domain.Service{ID: uuid.New(), OrganizationID: orgID, Name: "first"}
	second := &domain.Service{ID: uuid.New(), OrganizationID: orgID, Name: "second"}
	require.NoError(t, hub.Broadcast(domain.NewServiceUpdatedEvent(first)))
	require.NoError(t, hub.Broadcast(domain.NewServiceUpdatedEvent(second)))

	env1 := receiveFrame(t, viewer)
	env2 := receiveFrame(t, viewer)
	assert.Contains(t, string(env1.Payload), "first")
	assert.Contains(t, string(env2.Payload), "second")
}

func TestHub_SlowViewerDoesNotBlockOthers(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SendBuffer = 1
	hub, _ := startHub(t, cfg)
	orgID := uuid.New()

	slow := NewClient(hub, nil, orgID, slog.Default())
	healthy := NewClient(hub, nil, orgID, slog.Default())
	hub.Attach(slow)
	hub.Attach(healthy)

	// Fill the slow viewer's buffer so the next delivery to it fails.
	slow.send <- []byte(`{"event_type":"service_updated","payload":{}}`)

	svc := &domain.Service{ID: uuid.New(), OrganizationID: orgID, Name: "API"}
	require.NoError(t, hub.Broadcast(domain.NewServiceUpdatedEvent(svc)))

	env := receiveFrame(t, healthy)
	assert.Equal(t, string(domain.EventServiceUpdated), env.EventType)

	// The broadcaster never reaps the slow viewer; that is the lifecycle
	// handler's job.
	assert.Equal(t, 2, hub.Registry().ConnectionsInOrg(orgID))
}

func TestHub_UnregisteredViewerReceivesNothing(t *testing.T) {
	hub, registry := startHub(t, DefaultConfig())
	orgID := uuid.New()

	gone := NewClient(hub, nil, orgID, slog.Default())
	stays := NewClient(hub, nil, orgID, slog.Default())
	hub.Attach(gone)
	hub.Attach(stays)

	hub.unregister <- gone
	require.Eventually(t, func() bool {
		return registry.ConnectionsInOrg(orgID) == 1
	}, time.Second, 5*time.Millisecond)

	svc := &domain.Service{ID: uuid.New(), OrganizationID: orgID, Name: "API"}
	require.NoError(t, hub.Broadcast(domain.NewServiceUpdatedEvent(svc)))

	env := receiveFrame(t, stays)
	assert.Equal(t, string(domain.EventServiceUpdated), env.EventType)

	// The unregistered client's channel is closed without further frames.
	frame, open := <-gone.send
	assert.False(t, open, "expected closed send channel, got frame %s", frame)
}

// upgradeHandler mirrors what the HTTP websocket handler does after the
// handshake is validated: build the client, attach it, start the pumps.
func upgradeHandler(hub *Hub, orgID uuid.UUID) http.HandlerFunc {
	upgrader := websocket.Upgrader{}
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		client := NewClient(hub, conn, orgID, slog.Default())
		hub.Attach(client)
		go client.WritePump()
		go client.ReadPump()
	}
}

func TestHub_CleanCloseUnregistersViewer(t *testing.T) {
	hub, registry := startHub(t, DefaultConfig())
	orgID := uuid.New()

	srv := httptest.NewServer(upgradeHandler(hub, orgID))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return registry.ConnectionsInOrg(orgID) == 1
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	_ = conn.Close()

	require.Eventually(t, func() bool {
		return registry.ConnectionsInOrg(orgID) == 0
	}, time.Second, 5*time.Millisecond)
}

func TestClient_TeardownDoesNotBlockAfterHubStops(t *testing.T) {
	registry := NewRegistry()
	hub := NewHub(registry, DefaultConfig(), slog.Default())
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	orgID := uuid.New()
	clients := make(chan *Client, 1)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		client := NewClient(hub, conn, orgID, slog.Default())
		hub.Attach(client)
		clients <- client
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	client := <-clients
	require.Eventually(t, func() bool {
		return registry.ConnectionsInOrg(orgID) == 1
	}, time.Second, 5*time.Millisecond)

	// Stop the run loop first, then tear the client down the way its pump
	// goroutines would while the process is shutting down.
	cancel()
	<-hub.done

	finished := make(chan struct{})
	go func() {
		client.teardown()
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("teardown blocked after the hub stopped")
	}
}

func TestHub_HeartbeatReapsSilentViewer(t *testing.T) {
	cfg := Config{
		PingInterval: 50 * time.Millisecond,
		PongWait:     150 * time.Millisecond,
	}
	hub, registry := startHub(t, cfg)
	orgID := uuid.New()

	srv := httptest.NewServer(upgradeHandler(hub, orgID))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool {
		return registry.ConnectionsInOrg(orgID) == 1
	}, time.Second, 5*time.Millisecond)

	// The peer never reads, so it never answers pings: the heartbeat must
	// reap it within interval + grace without any close frame arriving.
	require.Eventually(t, func() bool {
		return registry.ConnectionsInOrg(orgID) == 0
	}, 2*time.Second, 10*time.Millisecond)
}
