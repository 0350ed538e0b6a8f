package handler

import (
	"net/http"

	"github.com/dangerclosesec/portal/internal/model"
	"github.com/dangerclosesec/portal/internal/service"
)

type OrganizationHandler struct {
	service *service.OrganizationService
}

func NewOrganizationHandler(service *service.OrganizationService) *OrganizationHandler {
	return &OrganizationHandler{service: service}
}

type OrganizationResponse struct {
	BaseResponse
	Organization *model.Organization `json:"organization"`
}

type OrganizationsResponse struct {
	BaseResponse
	Organizations []*model.Organization `json:"organizations"`
}

func (h *OrganizationHandler) List(w http.ResponseWriter, r *http.Request) {
	orgs, err := h.service.List(r.Context())
	if err != nil {
		respondWithServiceError(w, r, "Organization list error", err)
		return
	}

	if orgs == nil {
		orgs = []*model.Organization{}
	}
	respondWithJSON(w, http.StatusOK, OrganizationsResponse{BaseResponse{Ok: true}, orgs})
}

func (h *OrganizationHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	org, err := h.service.Get(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, r, "Organization lookup error", err)
		return
	}

	respondWithJSON(w, http.StatusOK, OrganizationResponse{BaseResponse{Ok: true}, org})
}

func (h *OrganizationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input service.OrganizationInput
	if !decodeJSON(w, r, &input) {
		return
	}

	org, err := h.service.Create(r.Context(), input)
	if err != nil {
		respondWithServiceError(w, r, "Organization create error", err)
		return
	}

	respondWithJSON(w, http.StatusCreated, OrganizationResponse{BaseResponse{Ok: true}, org})
}

func (h *OrganizationHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var input service.OrganizationInput
	if !decodeJSON(w, r, &input) {
		return
	}

	org, err := h.service.Update(r.Context(), id, input)
	if err != nil {
		respondWithServiceError(w, r, "Organization update error", err)
		return
	}

	respondWithJSON(w, http.StatusOK, OrganizationResponse{BaseResponse{Ok: true}, org})
}

func (h *OrganizationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		respondWithServiceError(w, r, "Organization delete error", err)
		return
	}

	respondWithJSON(w, http.StatusOK, MessageResponse{BaseResponse{Ok: true}, "Organization deleted successfully"})
}
