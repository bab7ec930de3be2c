package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/beaconlabs/statuspage-backend/internal/adapters/primary/validation"
	"github.com/beaconlabs/statuspage-backend/internal/core/ports"
)

// PublicHandler serves the unauthenticated status-page endpoints: the page
// snapshot, uptime figures and email subscription management.
type PublicHandler struct {
	publicService  ports.PublicService
	serviceService ports.ServiceService
	errorHandler   *ErrorHandler
	logger         *slog.Logger
}

// NewPublicHandler creates a new public status-page handler
func NewPublicHandler(
	publicService ports.PublicService,
	serviceService ports.ServiceService,
	errorHandler *ErrorHandler,
	logger *slog.Logger,
) *PublicHandler {
	return &PublicHandler{
		publicService:  publicService,
		serviceService: serviceService,
		errorHandler:   errorHandler,
		logger:         logger.With("handler", "public"),
	}
}

// RegisterRoutes sets up the routing for the public status-page endpoints.
// subscribeLimiter guards the unauthenticated write endpoints.
func (h *PublicHandler) RegisterRoutes(r chi.Router, subscribeLimiter func(http.Handler) http.Handler) {
	r.Route("/{slug}", func(r chi.Router) {
		r.Get("/", h.HandleSnapshot)
		r.Get("/uptime", h.HandleUptime)

		r.Group(func(r chi.Router) {
			if subscribeLimiter != nil {
				r.Use(subscribeLimiter)
			}
			r.Post("/subscribers", h.HandleSubscribe)
			r.Delete("/subscribers", h.HandleUnsubscribe)
		})
	})
}

// --- Request/Response DTOs ---

// SubscribeRequest defines the expected JSON body for subscribing to a page
type SubscribeRequest struct {
	Email string `json:"email"`
}

// Validate validates the subscribe request
func (r *SubscribeRequest) Validate() error {
	v := validation.NewValidator()

	v.Required("email", r.Email).
		Email("email", r.Email)

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// SnapshotResponse is the initial page state a viewer renders before
// attaching the real-time feed.
type SnapshotResponse struct {
	Organization OrganizationDTO `json:"organization"`
	Services     []ServiceDTO    `json:"services"`
	Incidents    []IncidentDTO   `json:"incidents"`
}

// OrganizationDTO defines the JSON response for organizations.
type OrganizationDTO struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// --- Handlers ---

// HandleSnapshot handles GET /status/{slug}
func (h *PublicHandler) HandleSnapshot(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	snap, err := h.publicService.Snapshot(r.Context(), slug)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, SnapshotResponse{
		Organization: OrganizationDTO{
			ID:   snap.Organization.ID.String(),
			Name: snap.Organization.Name,
			Slug: snap.Organization.Slug,
		},
		Services:  toServiceDTOs(snap.Services),
		Incidents: toIncidentDTOs(snap.Incidents),
	})
}

// HandleUptime handles GET /status/{slug}/uptime?days=N
func (h *PublicHandler) HandleUptime(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	org, err := h.publicService.OrganizationBySlug(r.Context(), slug)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	days := validation.ParseDays(r, "days", maxUptimeWindowDays)

	report, err := h.serviceService.Uptime(r.Context(), org.ID, days)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteList(w, report)
}

// HandleSubscribe handles POST /status/{slug}/subscribers
func (h *PublicHandler) HandleSubscribe(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	req, err := validation.DecodeAndValidate[SubscribeRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	sub, err := h.publicService.Subscribe(r.Context(), slug, req.Email)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("subscriber added",
		"org_id", sub.OrganizationID.String(),
		"slug", slug,
	)

	WriteCreated(w, SuccessResponse{Message: "Subscribed"})
}

// HandleUnsubscribe handles DELETE /status/{slug}/subscribers
func (h *PublicHandler) HandleUnsubscribe(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	req, err := validation.DecodeAndValidate[SubscribeRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := h.publicService.Unsubscribe(r.Context(), slug, req.Email); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteNoContent(w)
}
