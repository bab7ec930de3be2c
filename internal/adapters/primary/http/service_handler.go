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
	maxServiceNameLength        = 255
	maxServiceDescriptionLength = 1000
	maxUptimeWindowDays         = 365
)

var serviceStatusValues = []string{
	string(domain.StatusOperational),
	string(domain.StatusDegraded),
	string(domain.StatusPartialOutage),
	string(domain.StatusMajorOutage),
	string(domain.StatusMaintenance),
}

// ServiceHandler handles HTTP requests for status-page services
type ServiceHandler struct {
	serviceService ports.ServiceService
	errorHandler   *ErrorHandler
	logger         *slog.Logger
}

// NewServiceHandler creates a new service handler
func NewServiceHandler(
	serviceService ports.ServiceService,
	errorHandler *ErrorHandler,
	logger *slog.Logger,
) *ServiceHandler {
	return &ServiceHandler{
		serviceService: serviceService,
		errorHandler:   errorHandler,
		logger:         logger.With("handler", "service"),
	}
}

// RegisterRoutes sets up the routing for all service endpoints.
func (h *ServiceHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.HandleListServices)
	r.Post("/", h.HandleCreateService)
	r.Get("/uptime", h.HandleUptime)

	r.Route("/{serviceID}", func(r chi.Router) {
		r.Get("/", h.HandleGetService)
		r.Patch("/", h.HandleUpdateService)
		r.Delete("/", h.HandleDeleteService)
	})
}

// --- Request/Response DTOs ---

// CreateServiceRequest defines the expected JSON body for creating a service
type CreateServiceRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Status      string `json:"status"`
}

// Validate validates the create service request
func (r *CreateServiceRequest) Validate() error {
	v := validation.NewValidator()

	v.Required("name", r.Name).
		MaxLength("name", r.Name, maxServiceNameLength)

	v.MaxLength("description", r.Description, maxServiceDescriptionLength)

	v.OneOf("status", r.Status, serviceStatusValues)

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// UpdateServiceRequest defines the expected JSON body for updating a service.
// Omitted fields are left untouched.
type UpdateServiceRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
}

// Validate validates the update service request
func (r *UpdateServiceRequest) Validate() error {
	v := validation.NewValidator()

	if r.Name != nil {
		v.Required("name", *r.Name).
			MaxLength("name", *r.Name, maxServiceNameLength)
	}
	if r.Description != nil {
		v.MaxLength("description", *r.Description, maxServiceDescriptionLength)
	}
	if r.Status != nil {
		v.Required("status", *r.Status).
			OneOf("status", *r.Status, serviceStatusValues)
	}

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// ServiceDTO defines the JSON response for services.
type ServiceDTO struct {
	ID             string  `json:"id"`
	OrganizationID string  `json:"organizationId"`
	Name           string  `json:"name"`
	Description    string  `json:"description"`
	Status         string  `json:"status"`
	CreatedAt      string  `json:"createdAt"`
	UpdatedAt      *string `json:"updatedAt"`
}

func toServiceDTO(svc *domain.Service) ServiceDTO {
	var updatedAt *string
	if svc.UpdatedAt != nil {
		value := svc.UpdatedAt.Format(time.RFC3339)
		updatedAt = &value
	}

	return ServiceDTO{
		ID:             svc.ID.String(),
		OrganizationID: svc.OrganizationID.String(),
		Name:           svc.Name,
		Description:    svc.Description,
		Status:         string(svc.Status),
		CreatedAt:      svc.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      updatedAt,
	}
}

func toServiceDTOs(svcs []*domain.Service) []ServiceDTO {
	response := make([]ServiceDTO, 0, len(svcs))
	for _, svc := range svcs {
		response = append(response, toServiceDTO(svc))
	}
	return response
}

// --- Handlers ---

// HandleListServices handles GET /services
func (h *ServiceHandler) HandleListServices(w http.ResponseWriter, r *http.Request) {
	claims, ok := getClaims(w, r)
	if !ok {
		return
	}

	svcs, err := h.serviceService.ListServices(r.Context(), claims.OrgID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteList(w, toServiceDTOs(svcs))
}

// HandleCreateService handles POST /services
func (h *ServiceHandler) HandleCreateService(w http.ResponseWriter, r *http.Request) {
	claims, ok := getClaims(w, r)
	if !ok {
		return
	}

	req, err := validation.DecodeAndValidate[CreateServiceRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	svc, err := h.serviceService.CreateService(r.Context(), ports.CreateServiceParams{
		OrganizationID: claims.OrgID,
		Name:           req.Name,
		Description:    req.Description,
		Status:         domain.ServiceStatus(req.Status),
		ActorID:        claims.UserID,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("service created",
		"service_id", svc.ID.String(),
		"org_id", claims.OrgID.String(),
	)

	WriteCreated(w, toServiceDTO(svc))
}

// HandleGetService handles GET /services/{serviceID}
func (h *ServiceHandler) HandleGetService(w http.ResponseWriter, r *http.Request) {
	claims, ok := getClaims(w, r)
	if !ok {
		return
	}

	serviceID, err := h.parseServiceID(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	svc, err := h.serviceService.GetService(r.Context(), serviceID, claims.OrgID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, toServiceDTO(svc))
}

// HandleUpdateService handles PATCH /services/{serviceID}
func (h *ServiceHandler) HandleUpdateService(w http.ResponseWriter, r *http.Request) {
	claims, ok := getClaims(w, r)
	if !ok {
		return
	}

	serviceID, err := h.parseServiceID(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	req, err := validation.DecodeAndValidate[UpdateServiceRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	params := ports.UpdateServiceParams{
		ServiceID:      serviceID,
		OrganizationID: claims.OrgID,
		Name:           req.Name,
		Description:    req.Description,
		ActorID:        claims.UserID,
	}
	if req.Status != nil {
		status := domain.ServiceStatus(*req.Status)
		params.Status = &status
	}

	svc, err := h.serviceService.UpdateService(r.Context(), params)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, toServiceDTO(svc))
}

// HandleDeleteService handles DELETE /services/{serviceID}
func (h *ServiceHandler) HandleDeleteService(w http.ResponseWriter, r *http.Request) {
	claims, ok := getClaims(w, r)
	if !ok {
		return
	}

	serviceID, err := h.parseServiceID(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := h.serviceService.DeleteService(r.Context(), serviceID, claims.OrgID); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("service deleted",
		"service_id", serviceID.String(),
		"org_id", claims.OrgID.String(),
	)

	WriteNoContent(w)
}

// HandleUptime handles GET /services/uptime?days=N
func (h *ServiceHandler) HandleUptime(w http.ResponseWriter, r *http.Request) {
	claims, ok := getClaims(w, r)
	if !ok {
		return
	}

	days := validation.ParseDays(r, "days", maxUptimeWindowDays)

	report, err := h.serviceService.Uptime(r.Context(), claims.OrgID, days)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteList(w, report)
}

// parseServiceID extracts and validates the service ID from the URL
func (h *ServiceHandler) parseServiceID(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "serviceID")
	serviceID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperrors.NewBadRequestError(err, "Invalid service ID")
	}
	return serviceID, nil
}
