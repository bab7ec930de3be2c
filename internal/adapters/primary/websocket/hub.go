package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/beaconlabs/statuspage-backend/internal/core/domain"
	"github.com/beaconlabs/statuspage-backend/internal/core/ports"
)

// Config tunes the hub's heartbeat and buffering behavior.
type Config struct {
	// PingInterval is how often the server pings each viewer. Must be less
	// than PongWait.
	PingInterval time.Duration

	// PongWait is how long a connection may stay silent before the heartbeat
	// declares it dead.
	PongWait time.Duration

	// SendBuffer is the per-connection outbound frame buffer.
	SendBuffer int

	// BroadcastBuffer is the capacity of the hub's inbound event channel.
	BroadcastBuffer int
}

// DefaultConfig returns the hub defaults: 30s pings with a 60s timeout.
func DefaultConfig() Config {
	return Config{
		PingInterval:    30 * time.Second,
		PongWait:        60 * time.Second,
		SendBuffer:      64,
		BroadcastBuffer: 256,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.PingInterval <= 0 {
		c.PingInterval = d.PingInterval
	}
	if c.PongWait <= 0 {
		c.PongWait = d.PongWait
	}
	if c.SendBuffer <= 0 {
		c.SendBuffer = d.SendBuffer
	}
	if c.BroadcastBuffer <= 0 {
		c.BroadcastBuffer = d.BroadcastBuffer
	}
	return c
}

// Hub fans domain events out to the connections subscribed to each event's
// organization. A single run-loop goroutine drains the broadcast channel in
// FIFO order and each connection's send channel is FIFO, so every subscriber
// observes one organization's events in emission order.
type Hub struct {
	registry *Registry
	cfg      Config

	broadcast  chan domain.Event
	register   chan *Client
	unregister chan *Client

	// done is closed when the run loop exits so clients tearing down after
	// shutdown never block on the unregister channel.
	done chan struct{}

	logger *slog.Logger
}

// Ensure Hub implements the EventBroadcaster port.
var _ ports.EventBroadcaster = (*Hub)(nil)

// NewHub creates a hub around an injected registry.
func NewHub(registry *Registry, cfg Config, logger *slog.Logger) *Hub {
	cfg = cfg.withDefaults()
	return &Hub{
		registry:   registry,
		cfg:        cfg,
		broadcast:  make(chan domain.Event, cfg.BroadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger.With("component", "websocket_hub"),
	}
}

// Registry exposes the hub's subscription registry for observability.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// Broadcast queues an event for fan-out. It is the collaborator-facing publish
// call: cheap, non-blocking, fire-and-forget. If the hub cannot keep up the
// event is dropped with a warning (at-most-once semantics).
func (h *Hub) Broadcast(event domain.Event) error {
	select {
	case h.broadcast <- event:
		return nil
	default:
		h.logger.Warn("broadcast channel full, dropping event",
			"event_type", event.Type,
			"org_id", event.OrganizationID,
		)
		return nil
	}
}

// Attach registers a freshly accepted connection with the run loop. After the
// hub has stopped the client is not registered; its pumps tear it down through
// the usual lifecycle.
func (h *Hub) Attach(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
	}
}

// Run drives registration, deregistration and fan-out until ctx is cancelled.
// This MUST be run as a goroutine.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.registry.Register(client)
			h.logger.Info("viewer connected",
				"connection_id", client.ID,
				"org_id", client.OrgID,
				"org_viewers", h.registry.ConnectionsInOrg(client.OrgID),
			)

		case client := <-h.unregister:
			h.registry.Unregister(client)
			client.closeSend()
			h.logger.Info("viewer disconnected",
				"connection_id", client.ID,
				"org_id", client.OrgID,
			)

		case event := <-h.broadcast:
			h.broadcastEvent(event)
		}
	}
}

// broadcastEvent delivers one event to every connection subscribed to its
// organization. Delivery is attempted per connection independently: a slow or
// broken viewer is skipped and logged, never unregistered here — reaping dead
// connections is the lifecycle handler's job, driven by the transport's own
// close and heartbeat signals.
func (h *Hub) broadcastEvent(event domain.Event) {
	clients := h.registry.ConnectionsFor(event.OrganizationID)
	if len(clients) == 0 {
		return
	}

	// Serialize the envelope once for all recipients.
	frame, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("failed to serialize event",
			"event_type", event.Type,
			"org_id", event.OrganizationID,
			"error", err,
		)
		return
	}

	h.logger.Debug("broadcasting event",
		"event_type", event.Type,
		"org_id", event.OrganizationID,
		"viewer_count", len(clients),
	)

	for _, client := range clients {
		select {
		case client.send <- frame:
			// Queued for the write pump.
		default:
			h.logger.Warn("viewer send buffer full, skipping delivery",
				"connection_id", client.ID,
				"org_id", client.OrgID,
				"event_type", event.Type,
			)
		}
	}
}
