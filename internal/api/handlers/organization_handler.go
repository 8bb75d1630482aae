package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/MaclennanMah/MediQ/internal/application/services"
	"github.com/MaclennanMah/MediQ/internal/domain/entities"
	"github.com/MaclennanMah/MediQ/internal/domain/repositories"
	apperrors "github.com/MaclennanMah/MediQ/pkg/errors"
)

// FacilityService is the part of services.FacilityService the handlers use
type FacilityService interface {
	Create(ctx context.Context, in services.FacilityInput) (*entities.Facility, error)
	Update(ctx context.Context, id string, patch services.FacilityPatch) (*entities.Facility, error)
	GetByID(ctx context.Context, id string) (*entities.Facility, error)
	List(ctx context.Context, filter repositories.FacilityFilter) ([]*entities.Facility, error)
	FindNear(ctx context.Context, point entities.Location, maxDistanceMeters int) ([]*entities.Facility, error)
}

// OrganizationHandler serves facility CRUD and proximity search
type OrganizationHandler struct {
	service FacilityService
}

// NewOrganizationHandler creates a new organization handler
func NewOrganizationHandler(service FacilityService) *OrganizationHandler {
	return &OrganizationHandler{service: service}
}

type createOrganizationRequest struct {
	Name         string             `json:"name"`
	Address      string             `json:"address"`
	PhoneNumber  string             `json:"phone_number"`
	FacilityType string             `json:"facility_type"`
	Location     *entities.Location `json:"location"`
}

type updateOrganizationRequest struct {
	Name         *string            `json:"name"`
	Address      *string            `json:"address"`
	PhoneNumber  *string            `json:"phone_number"`
	FacilityType *string            `json:"facility_type"`
	Location     *entities.Location `json:"location"`
}

// ListOrganizations handles GET /organizations
func (h *OrganizationHandler) ListOrganizations(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pagination(r)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	facilities, err := h.service.List(r.Context(), repositories.FacilityFilter{
		FacilityType: entities.FacilityType(r.URL.Query().Get("type")),
		Limit:        limit,
		Offset:       offset,
	})
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"organizations": facilities,
		"count":         len(facilities),
	})
}

// GetOrganization handles GET /organizations/{id}
func (h *OrganizationHandler) GetOrganization(w http.ResponseWriter, r *http.Request) {
	facility, err := h.service.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, facility)
}

// CreateOrganization handles POST /organizations
func (h *OrganizationHandler) CreateOrganization(w http.ResponseWriter, r *http.Request) {
	var req createOrganizationRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	facility, err := h.service.Create(r.Context(), services.FacilityInput{
		Name:         req.Name,
		Address:      req.Address,
		PhoneNumber:  req.PhoneNumber,
		FacilityType: entities.FacilityType(req.FacilityType),
		Location:     req.Location,
	})
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	w.Header().Set("Location", "/organizations/"+facility.ID)
	respondWithJSON(w, http.StatusCreated, facility)
}

// UpdateOrganization handles PUT /organizations/{id}
func (h *OrganizationHandler) UpdateOrganization(w http.ResponseWriter, r *http.Request) {
	var req updateOrganizationRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	patch := services.FacilityPatch{
		Name:        req.Name,
		Address:     req.Address,
		PhoneNumber: req.PhoneNumber,
		Location:    req.Location,
	}
	if req.FacilityType != nil {
		t := entities.FacilityType(*req.FacilityType)
		patch.FacilityType = &t
	}

	facility, err := h.service.Update(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, facility)
}

// SearchNear handles GET /organizations/search/near?lat&lng&max
func (h *OrganizationHandler) SearchNear(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	lat, err := strconv.ParseFloat(query.Get("lat"), 64)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "lat is required and must be a number")
		return
	}
	lng, err := strconv.ParseFloat(query.Get("lng"), 64)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "lng is required and must be a number")
		return
	}

	maxDistance := repositories.DefaultNearDistanceMeters
	if raw := query.Get("max"); raw != "" {
		maxDistance, err = strconv.Atoi(raw)
		if err != nil || maxDistance <= 0 {
			respondWithAppError(w, r, apperrors.NewValidationError("max must be a positive integer number of meters"))
			return
		}
	}

	facilities, err := h.service.FindNear(r.Context(), entities.Location{Latitude: lat, Longitude: lng}, maxDistance)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"organizations": facilities,
		"count":         len(facilities),
	})
}
