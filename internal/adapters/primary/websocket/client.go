package websocket

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Maximum message size allowed from peer. Viewers only listen; anything
	// beyond control frames is ignored, so the limit is tight.
	maxMessageSize = 512
)

// Client is one live viewer connection, bound to a single organization for its
// whole lifetime. A viewer switching organizations opens a new connection.
type Client struct {
	// ID uniquely identifies this connection.
	ID uuid.UUID

	// OrgID is the organization whose status page this viewer is watching.
	// Fixed at connect time from the request path.
	OrgID uuid.UUID

	hub  *Hub
	conn *websocket.Conn

	// send carries pre-serialized frames from the hub to the write pump.
	send chan []byte

	// closeOnce guarantees teardown runs exactly once no matter which trigger
	// fired first: close frame, protocol error, or heartbeat timeout.
	closeOnce sync.Once

	// sendOnce guards closing the send channel.
	sendOnce sync.Once

	logger *slog.Logger
}

// NewClient creates a client for an accepted connection. The caller is
// expected to register it with the hub and start both pumps.
func NewClient(hub *Hub, conn *websocket.Conn, orgID uuid.UUID, logger *slog.Logger) *Client {
	id := uuid.New()
	return &Client{
		ID:     id,
		OrgID:  orgID,
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, hub.cfg.SendBuffer),
		logger: logger.With("connection_id", id.String(), "org_id", orgID.String()),
	}
}

// closeSend closes the send channel exactly once. Called by the hub when the
// client is unregistered.
func (c *Client) closeSend() {
	c.sendOnce.Do(func() {
		close(c.send)
	})
}

// teardown funnels every disconnect trigger into a single idempotent cleanup:
// unregister from the hub, then close the transport. If the hub's run loop has
// already stopped there is nothing to unregister from; the send must not block
// the pump goroutines during shutdown.
func (c *Client) teardown() {
	c.closeOnce.Do(func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		_ = c.conn.Close()
	})
}

// ReadPump drains inbound frames so pong handlers run and close frames are
// seen. It is also the heartbeat authority: the read deadline is pushed
// forward on every pong, and a silent peer times out here.
// This method runs in its own goroutine.
func (c *Client) ReadPump() {
	defer c.teardown()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(c.hub.cfg.PongWait)); err != nil {
		c.logger.Error("failed to set read deadline", "error", err)
		return
	}

	c.conn.SetPongHandler(func(string) error {
		if err := c.conn.SetReadDeadline(time.Now().Add(c.hub.cfg.PongWait)); err != nil {
			c.logger.Error("failed to set read deadline in pong handler", "error", err)
		}
		return nil
	})

	for {
		// Viewers have no inbound protocol beyond connect/heartbeat/close;
		// message payloads are discarded.
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.logger.Warn("websocket read error", "error", err)
			}
			return
		}
	}
}

// WritePump forwards broadcast frames to the connection and pings the peer on
// the heartbeat interval. Frames for one connection are delivered in the order
// the hub queued them.
// This method runs in its own goroutine.
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.hub.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		c.teardown()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error("failed to set write deadline", "error", err)
				return
			}

			if !ok {
				// The hub closed the channel. Send close message.
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.logger.Debug("failed to write frame", "error", err)
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error("failed to set write deadline for ping", "error", err)
				return
			}

			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Debug("failed to send ping", "error", err)
				return
			}
		}
	}
}
