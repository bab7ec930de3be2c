package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/beaconlabs/statuspage-backend/internal/adapters/primary/validation"
	"github.com/beaconlabs/statuspage-backend/internal/core/domain"
	apperrors "github.com/beaconlabs/statuspage-backend/internal/core/errors"
	"github.com/beaconlabs/statuspage-backend/internal/core/ports"
)

const (
	maxIncidentTitleLength       = 255
	maxIncidentDescriptionLength = 2000
	maxUpdateMessageLength       = 2000
)

var (
	incidentStatusValues = []string{
		string(domain.IncidentInvestigating),
		string(domain.IncidentIdentified),
		string(domain.IncidentMonitoring),
		string(domain.IncidentResolved),
	}
	incidentSeverityValues = []string{
		string(domain.SeverityMinor),
		string(domain.SeverityMajor),
		string(domain.SeverityCritical),
	}
)

// IncidentHandler handles HTTP requests for incidents
type IncidentHandler struct {
	incidentService ports.IncidentService
	errorHandler    *ErrorHandler
	logger          *slog.Logger
}

// NewIncidentHandler creates a new incident handler
func NewIncidentHandler(
	incidentService ports.IncidentService,
	errorHandler *ErrorHandler,
	logger *slog.Logger,
) *IncidentHandler {
	return &IncidentHandler{
		incidentService: incidentService,
		errorHandler:    errorHandler,
		logger:          logger.With("handler", "incident"),
	}
}

// RegisterRoutes sets up the routing for all incident endpoints.
func (h *IncidentHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.HandleListIncidents)
	r.Post("/", h.HandleCreateIncident)

	r.Route("/{incidentID}", func(r chi.Router) {
		r.Get("/", h.HandleGetIncident)
		r.Patch("/", h.HandleUpdateIncident)
		r.Delete("/", h.HandleDeleteIncident)
	})
}

// --- Request/Response DTOs ---

// CreateIncidentRequest defines the expected JSON body for opening an incident
type CreateIncidentRequest struct {
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	Severity         string   `json:"severity"`
	AffectedServices []string `json:"affectedServices"`
	Message          string   `json:"message"`
}

// Validate validates the create incident request
func (r *CreateIncidentRequest) Validate() error {
	v := validation.NewValidator()

	v.Required("title", r.Title).
		MaxLength("title", r.Title, maxIncidentTitleLength)

	v.MaxLength("description", r.Description, maxIncidentDescriptionLength)

	v.OneOf("severity", r.Severity, incidentSeverityValues)

	v.MaxLength("message", r.Message, maxUpdateMessageLength)

	for _, id := range r.AffectedServices {
		if _, err := uuid.Parse(id); err != nil {
			v.Custom("affectedServices", false, "Must be a list of valid service IDs")
			break
		}
	}

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// UpdateIncidentRequest defines the expected JSON body for updating an
// incident. Omitted fields are left untouched; a non-empty message appends a
// timeline entry.
type UpdateIncidentRequest struct {
	Title            *string  `json:"title"`
	Description      *string  `json:"description"`
	Status           *string  `json:"status"`
	Severity         *string  `json:"severity"`
	AffectedServices []string `json:"affectedServices"`
	Message          string   `json:"message"`
}

// Validate validates the update incident request
func (r *UpdateIncidentRequest) Validate() error {
	v := validation.NewValidator()

	if r.Title != nil {
		v.Required("title", *r.Title).
			MaxLength("title", *r.Title, maxIncidentTitleLength)
	}
	if r.Description != nil {
		v.MaxLength("description", *r.Description, maxIncidentDescriptionLength)
	}
	if r.Status != nil {
		v.Required("status", *r.Status).
			OneOf("status", *r.Status, incidentStatusValues)
	}
	if r.Severity != nil {
		v.Required("severity", *r.Severity).
			OneOf("severity", *r.Severity, incidentSeverityValues)
	}
	v.MaxLength("message", r.Message, maxUpdateMessageLength)

	for _, id := range r.AffectedServices {
		if _, err := uuid.Parse(id); err != nil {
			v.Custom("affectedServices", false, "Must be a list of valid service IDs")
			break
		}
	}

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// IncidentUpdateDTO defines the JSON response for timeline entries.
type IncidentUpdateDTO struct {
	ID         int64  `json:"id"`
	Message    string `json:"message"`
	PostedByID string `json:"postedById"`
	PostedAt   string `json:"postedAt"`
}

// IncidentDTO defines the JSON response for incidents.
type IncidentDTO struct {
	ID               string              `json:"id"`
	OrganizationID   string              `json:"organizationId"`
	Title            string              `json:"title"`
	Description      string              `json:"description"`
	Status           string              `json:"status"`
	Severity         string              `json:"severity"`
	AffectedServices []string            `json:"affectedServices"`
	Updates          []IncidentUpdateDTO `json:"updates"`
	CreatedAt        string              `json:"createdAt"`
	UpdatedAt        *string             `json:"updatedAt"`
	ResolvedAt       *string             `json:"resolvedAt"`
}

func toIncidentDTO(inc *domain.Incident) IncidentDTO {
	affected := make([]string, 0, len(inc.AffectedServices))
	for _, id := range inc.AffectedServices {
		affected = append(affected, id.String())
	}

	updates := make([]IncidentUpdateDTO, 0, len(inc.Updates))
	for _, u := range inc.Updates {
		updates = append(updates, IncidentUpdateDTO{
			ID:         u.ID,
			Message:    u.Message,
			PostedByID: u.PostedByID.String(),
			PostedAt:   u.PostedAt.Format(time.RFC3339),
		})
	}

	var updatedAt *string
	if inc.UpdatedAt != nil {
		value := inc.UpdatedAt.Format(time.RFC3339)
		updatedAt = &value
	}

	var resolvedAt *string
	if inc.ResolvedAt != nil {
		value := inc.ResolvedAt.Format(time.RFC3339)
		resolvedAt = &value
	}

	return IncidentDTO{
		ID:               inc.ID.String(),
		OrganizationID:   inc.OrganizationID.String(),
		Title:            inc.Title,
		Description:      inc.Description,
		Status:           string(inc.Status),
		Severity:         string(inc.Severity),
		AffectedServices: affected,
		Updates:          updates,
		CreatedAt:        inc.CreatedAt.Format(time.RFC3339),
		UpdatedAt:        updatedAt,
		ResolvedAt:       resolvedAt,
	}
}

func toIncidentDTOs(incidents []*domain.Incident) []IncidentDTO {
	response := make([]IncidentDTO, 0, len(incidents))
	for _, inc := range incidents {
		response = append(response, toIncidentDTO(inc))
	}
	return response
}

func parseServiceIDs(raw []string) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		if id, err := uuid.Parse(s); err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}

// --- Handlers ---

// HandleListIncidents handles GET /incidents?open=true
func (h *IncidentHandler) HandleListIncidents(w http.ResponseWriter, r *http.Request) {
	claims, ok := getClaims(w, r)
	if !ok {
		return
	}

	openOnly := r.URL.Query().Get("open") == "true"

	incidents, err := h.incidentService.ListIncidents(r.Context(), claims.OrgID, openOnly)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteList(w, toIncidentDTOs(incidents))
}

// HandleCreateIncident handles POST /incidents
func (h *IncidentHandler) HandleCreateIncident(w http.ResponseWriter, r *http.Request) {
	claims, ok := getClaims(w, r)
	if !ok {
		return
	}

	req, err := validation.DecodeAndValidate[CreateIncidentRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	inc, err := h.incidentService.CreateIncident(r.Context(), ports.CreateIncidentParams{
		OrganizationID:   claims.OrgID,
		Title:            req.Title,
		Description:      req.Description,
		Severity:         domain.IncidentSeverity(req.Severity),
		AffectedServices: parseServiceIDs(req.AffectedServices),
		InitialMessage:   req.Message,
		ActorID:          claims.UserID,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("incident created",
		"incident_id", inc.ID.String(),
		"org_id", claims.OrgID.String(),
		"severity", string(inc.Severity),
	)

	WriteCreated(w, toIncidentDTO(inc))
}

// HandleGetIncident handles GET /incidents/{incidentID}
func (h *IncidentHandler) HandleGetIncident(w http.ResponseWriter, r *http.Request) {
	claims, ok := getClaims(w, r)
	if !ok {
		return
	}

	incidentID, err := h.parseIncidentID(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	inc, err := h.incidentService.GetIncident(r.Context(), incidentID, claims.OrgID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, toIncidentDTO(inc))
}

// HandleUpdateIncident handles PATCH /incidents/{incidentID}
func (h *IncidentHandler) HandleUpdateIncident(w http.ResponseWriter, r *http.Request) {
	claims, ok := getClaims(w, r)
	if !ok {
		return
	}

	incidentID, err := h.parseIncidentID(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	req, err := validation.DecodeAndValidate[UpdateIncidentRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	params := ports.UpdateIncidentParams{
		IncidentID:     incidentID,
		OrganizationID: claims.OrgID,
		Title:          req.Title,
		Description:    req.Description,
		Message:        req.Message,
		ActorID:        claims.UserID,
	}
	if req.Status != nil {
		status := domain.IncidentStatus(*req.Status)
		params.Status = &status
	}
	if req.Severity != nil {
		severity := domain.IncidentSeverity(*req.Severity)
		params.Severity = &severity
	}
	if req.AffectedServices != nil {
		params.AffectedServices = parseServiceIDs(req.AffectedServices)
	}

	inc, err := h.incidentService.UpdateIncident(r.Context(), params)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, toIncidentDTO(inc))
}

// HandleDeleteIncident handles DELETE /incidents/{incidentID}
func (h *IncidentHandler) HandleDeleteIncident(w http.ResponseWriter, r *http.Request) {
	claims, ok := getClaims(w, r)
	if !ok {
		return
	}

	incidentID, err := h.parseIncidentID(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := h.incidentService.DeleteIncident(r.Context(), incidentID, claims.OrgID); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("incident deleted",
		"incident_id", incidentID.String(),
		"org_id", claims.OrgID.String(),
	)

	WriteNoContent(w)
}

// parseIncidentID extracts and validates the incident ID from the URL
func (h *IncidentHandler) parseIncidentID(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "incidentID")
	incidentID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperrors.NewBadRequestError(err, "Invalid incident ID")
	}
	return incidentID, nil
}
