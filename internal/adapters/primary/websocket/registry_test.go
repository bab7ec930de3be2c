package websocket

import (
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func newTestClient(t *testing.T, hub *Hub, orgID uuid.UUID) *Client {
	t.Helper()
	return NewClient(hub, nil, orgID, slog.Default())
}

func TestRegistry_RegisterIsIdempotent(t *testing.T) {
	registry := NewRegistry()
	hub := NewHub(registry, DefaultConfig(), slog.Default())
	orgID := uuid.New()

	client := newTestClient(t, hub, orgID)
	registry.Register(client)
	registry.Register(client)

	assert.Equal(t, 1, registry.ConnectionsInOrg(orgID))
	assert.Equal(t, 1, registry.ConnectionCount())
}

func TestRegistry_UnregisterIsIdempotent(t *testing.T) {
	registry := NewRegistry()
	hub := NewHub(registry, DefaultConfig(), slog.Default())
	orgID := uuid.New()

	client := newTestClient(t, hub, orgID)
	registry.Register(client)

	registry.Unregister(client)
	stateAfterFirst := registry.ConnectionCount()

	// Double cleanup must be safe: close frame, read error and heartbeat
	// timeout can all race to unregister the same connection.
	registry.Unregister(client)

	assert.Equal(t, 0, stateAfterFirst)
	assert.Equal(t, 0, registry.ConnectionCount())
}

func TestRegistry_UnregisterUnknownClientIsNoOp(t *testing.T) {
	registry := NewRegistry()
	hub := NewHub(registry, DefaultConfig(), slog.Default())

	assert.NotPanics(t, func() {
		registry.Unregister(newTestClient(t, hub, uuid.New()))
	})
}

func TestRegistry_PrunesEmptyOrganizations(t *testing.T) {
	registry := NewRegistry()
	hub := NewHub(registry, DefaultConfig(), slog.Default())
	orgID := uuid.New()

	client := newTestClient(t, hub, orgID)
	registry.Register(client)
	assert.Equal(t, 1, registry.OrgCount())

	registry.Unregister(client)

	// An organization with zero viewers must not retain a phantom entry.
	assert.Equal(t, 0, registry.OrgCount())
}

func TestRegistry_ConnectionsForReturnsSnapshot(t *testing.T) {
	registry := NewRegistry()
	hub := NewHub(registry, DefaultConfig(), slog.Default())
	orgID := uuid.New()

	a := newTestClient(t, hub, orgID)
	b := newTestClient(t, hub, orgID)
	registry.Register(a)
	registry.Register(b)

	snapshot := registry.ConnectionsFor(orgID)
	registry.Unregister(a)
	registry.Unregister(b)

	// The snapshot is unaffected by later mutation.
	assert.Len(t, snapshot, 2)
	assert.Empty(t, registry.ConnectionsFor(orgID))
}

func TestRegistry_SeparatesOrganizations(t *testing.T) {
	registry := NewRegistry()
	hub := NewHub(registry, DefaultConfig(), slog.Default())
	acme := uuid.New()
	other := uuid.New()

	registry.Register(newTestClient(t, hub, acme))
	registry.Register(newTestClient(t, hub, acme))
	registry.Register(newTestClient(t, hub, other))

	assert.Equal(t, 2, registry.ConnectionsInOrg(acme))
	assert.Equal(t, 1, registry.ConnectionsInOrg(other))
	assert.Len(t, registry.ConnectionsFor(acme), 2)
	assert.Len(t, registry.ConnectionsFor(other), 1)
}
