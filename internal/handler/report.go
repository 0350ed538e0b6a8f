package handler

import (
	"net/http"

	"github.com/dangerclosesec/portal/internal/model"
	"github.com/dangerclosesec/portal/internal/service"
)

type ReportHandler struct {
	service *service.ReportService
}

func NewReportHandler(service *service.ReportService) *ReportHandler {
	return &ReportHandler{service: service}
}

type ReportResponse struct {
	BaseResponse
	Report *model.Report `json:"report"`
}

type ReportsResponse struct {
	BaseResponse
	Reports []*model.Report `json:"reports"`
}

type ReportHistoryResponse struct {
	BaseResponse
	Events []*model.ReportEvent `json:"events"`
}

// List returns the reports visible to the caller. ?status= narrows the set.
func (h *ReportHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	reports, err := h.service.List(r.Context(), actor, service.ListReportsInput{
		Status: r.URL.Query().Get("status"),
	})
	if err != nil {
		respondWithServiceError(w, r, "Report list error", err)
		return
	}

	if reports == nil {
		reports = []*model.Report{}
	}
	respondWithJSON(w, http.StatusOK, ReportsResponse{BaseResponse{Ok: true}, reports})
}

func (h *ReportHandler) Submit(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	var input service.SubmitReportInput
	if !decodeJSON(w, r, &input) {
		return
	}

	report, err := h.service.Submit(r.Context(), actor, input)
	if err != nil {
		respondWithServiceError(w, r, "Report submit error", err)
		return
	}

	respondWithJSON(w, http.StatusCreated, ReportResponse{BaseResponse{Ok: true}, report})
}

func (h *ReportHandler) Approve(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var input service.ApproveReportInput
	if !decodeJSON(w, r, &input) {
		return
	}

	report, err := h.service.Approve(r.Context(), actor, id, input)
	if err != nil {
		respondWithServiceError(w, r, "Report approve error", err)
		return
	}

	respondWithJSON(w, http.StatusOK, ReportResponse{BaseResponse{Ok: true}, report})
}

func (h *ReportHandler) Reject(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	report, err := h.service.Reject(r.Context(), actor, id)
	if err != nil {
		respondWithServiceError(w, r, "Report reject error", err)
		return
	}

	respondWithJSON(w, http.StatusOK, ReportResponse{BaseResponse{Ok: true}, report})
}

func (h *ReportHandler) History(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	events, err := h.service.History(r.Context(), actor, id)
	if err != nil {
		respondWithServiceError(w, r, "Report history error", err)
		return
	}

	if events == nil {
		events = []*model.ReportEvent{}
	}
	respondWithJSON(w, http.StatusOK, ReportHistoryResponse{BaseResponse{Ok: true}, events})
}

func (h *ReportHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		respondWithServiceError(w, r, "Report delete error", err)
		return
	}

	respondWithJSON(w, http.StatusOK, MessageResponse{BaseResponse{Ok: true}, "Report deleted successfully"})
}
