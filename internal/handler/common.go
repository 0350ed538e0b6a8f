package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dangerclosesec/portal/internal/domain"
	"github.com/dangerclosesec/portal/internal/middleware"
	"github.com/dangerclosesec/portal/internal/service"
	"github.com/go-chi/chi/v5"
	chmw "github.com/go-chi/chi/v5/middleware"
)

type ErrorResponse struct { // TypeGen: ErrorResponse
	BaseResponse
	Error string `json:"error"`
}

type BaseResponse struct { // TypeGen: DefaultResponse
	Ok bool `json:"ok"`
}

type MessageResponse struct {
	BaseResponse
	Message string `json:"message"`
}

// respondWithError sends an error response with a message
func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, ErrorResponse{Error: message})
}

// respondWithJSON sends a JSON response
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	// Sets content type header
	w.Header().Set("Content-Type", "application/json")

	// Sets the HTTP status code
	w.WriteHeader(code)

	// Encodes the response
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("Failed to encode response", "error", err)
		return
	}
}

// respondWithServiceError maps a domain error onto the HTTP taxonomy and
// logs it. Unclassified errors are reported as a bare 500.
func respondWithServiceError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	code, message := classify(err)
	if code >= http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), msg, "error", err, "requestID", chmw.GetReqID(r.Context()))
	} else {
		slog.InfoContext(r.Context(), msg, "error", err, "status", code, "requestID", chmw.GetReqID(r.Context()))
	}
	respondWithError(w, code, message)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid credentials"
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, "Insufficient permissions"
	case errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound, "User not found"
	case errors.Is(err, domain.ErrOrganizationNotFound):
		return http.StatusNotFound, "Organization not found"
	case errors.Is(err, domain.ErrReportNotFound):
		return http.StatusNotFound, "Report not found"
	case errors.Is(err, domain.ErrUsernameTaken):
		return http.StatusBadRequest, "Username already exists"
	case errors.Is(err, domain.ErrEmailTaken):
		return http.StatusBadRequest, "Email already exists"
	case errors.Is(err, domain.ErrInvalidApprovalType):
		return http.StatusBadRequest, "Invalid approval type"
	case errors.Is(err, domain.ErrNoOrganization):
		return http.StatusBadRequest, "User must belong to an organization to submit reports"
	case errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrInvalidReference),
		errors.Is(err, domain.ErrInvalidRole),
		errors.Is(err, domain.ErrSelfParent),
		errors.Is(err, domain.ErrUserInUse):
		return http.StatusBadRequest, err.Error()
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return false
	}
	return true
}

// pathID parses the {id} URL parameter.
func pathID(w http.ResponseWriter, r *http.Request) (uint, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		respondWithError(w, http.StatusBadRequest, "Invalid id")
		return 0, false
	}
	return uint(id), true
}

func actorFrom(w http.ResponseWriter, r *http.Request) (service.Actor, bool) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Access token required")
		return service.Actor{}, false
	}
	return service.Actor{
		UserID:    claims.UserID,
		RequestID: chmw.GetReqID(r.Context()),
	}, true
}
