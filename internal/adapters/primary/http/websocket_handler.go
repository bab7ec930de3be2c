package http

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	wsAdapter "github.com/beaconlabs/statuspage-backend/internal/adapters/primary/websocket"
	"github.com/beaconlabs/statuspage-backend/internal/config"
	"github.com/beaconlabs/statuspage-backend/internal/core/ports"
)

// WebSocketHandler upgrades status-page viewers onto the real-time feed. The
// endpoint is public: the organization is bound once at handshake time from
// the URL path, never from anything the peer sends later.
type WebSocketHandler struct {
	hub      *wsAdapter.Hub
	orgs     ports.PublicService
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(
	hub *wsAdapter.Hub,
	orgs ports.PublicService,
	cfg *config.Config,
	logger *slog.Logger,
) *WebSocketHandler {
	handler := &WebSocketHandler{
		hub:    hub,
		orgs:   orgs,
		logger: logger,
	}

	handler.upgrader = websocket.Upgrader{
		ReadBufferSize:  cfg.WebSocket.ReadBufferSize,
		WriteBufferSize: cfg.WebSocket.WriteBufferSize,
		CheckOrigin:     handler.makeOriginChecker(cfg),
	}

	return handler
}

// makeOriginChecker creates an origin checking function based on configuration
func (h *WebSocketHandler) makeOriginChecker(cfg *config.Config) func(r *http.Request) bool {
	allowedOrigins := cfg.WebSocket.AllowedOrigins

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")

		// In development mode, allow all origins (but log a warning)
		if cfg.IsDevelopment() {
			if origin != "" {
				h.logger.Warn("allowing websocket connection in development mode",
					"origin", origin,
					"remote_addr", r.RemoteAddr,
				)
			}
			return true
		}

		// No origin header (same-origin request or non-browser client)
		if origin == "" {
			return true
		}

		parsedOrigin, err := url.Parse(origin)
		if err != nil {
			h.logger.Warn("failed to parse websocket origin",
				"origin", origin,
				"error", err,
			)
			return false
		}

		originHost := parsedOrigin.Host

		for _, allowed := range allowedOrigins {
			// Support wildcard subdomains like "*.example.com"
			if strings.HasPrefix(allowed, "*.") {
				suffix := allowed[1:] // Remove the "*", keep ".example.com"
				if strings.HasSuffix(originHost, suffix) || originHost == allowed[2:] {
					return true
				}
			} else if originHost == allowed {
				return true
			}
		}

		h.logger.Warn("websocket connection rejected due to origin",
			"origin", origin,
			"remote_addr", r.RemoteAddr,
			"allowed_origins", allowedOrigins,
		)
		return false
	}
}

// ServeHTTP handles GET /ws/{orgID}: validates the organization, upgrades the
// connection and hands the client to the hub.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())

	orgID, err := uuid.Parse(chi.URLParam(r, "orgID"))
	if err != nil {
		h.logger.Warn("websocket connection rejected: malformed organization id",
			"request_id", requestID,
			"remote_addr", r.RemoteAddr,
		)
		http.Error(w, "Invalid organization ID", http.StatusBadRequest)
		return
	}

	// Reject before upgrading so the client sees a plain HTTP error.
	if _, err := h.orgs.OrganizationByID(r.Context(), orgID); err != nil {
		h.logger.Warn("websocket connection rejected: unknown organization",
			"request_id", requestID,
			"org_id", orgID.String(),
			"remote_addr", r.RemoteAddr,
		)
		http.Error(w, "Organization not found", http.StatusNotFound)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("failed to upgrade websocket connection",
			"request_id", requestID,
			"org_id", orgID.String(),
			"error", err,
		)
		return
	}

	h.logger.Info("websocket connection established",
		"request_id", requestID,
		"org_id", orgID.String(),
		"remote_addr", r.RemoteAddr,
	)

	client := wsAdapter.NewClient(h.hub, conn, orgID, h.logger)
	h.hub.Attach(client)

	go client.WritePump()
	go client.ReadPump()
}
