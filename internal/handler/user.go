package handler

import (
	"net/http"

	"github.com/dangerclosesec/portal/internal/model"
	"github.com/dangerclosesec/portal/internal/service"
)

type UserHandler struct {
	service *service.UserService
}

func NewUserHandler(service *service.UserService) *UserHandler {
	return &UserHandler{service: service}
}

type UserResponse struct {
	BaseResponse
	User *model.User `json:"user"`
}

type UsersResponse struct {
	BaseResponse
	Users []*model.User `json:"users"`
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.List(r.Context())
	if err != nil {
		respondWithServiceError(w, r, "User list error", err)
		return
	}

	if users == nil {
		users = []*model.User{}
	}
	respondWithJSON(w, http.StatusOK, UsersResponse{BaseResponse{Ok: true}, users})
}

func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input service.CreateUserInput
	if !decodeJSON(w, r, &input) {
		return
	}

	user, err := h.service.Create(r.Context(), input)
	if err != nil {
		respondWithServiceError(w, r, "User create error", err)
		return
	}

	respondWithJSON(w, http.StatusCreated, UserResponse{BaseResponse{Ok: true}, user})
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var input service.UpdateUserInput
	if !decodeJSON(w, r, &input) {
		return
	}

	user, err := h.service.Update(r.Context(), id, input)
	if err != nil {
		respondWithServiceError(w, r, "User update error", err)
		return
	}

	respondWithJSON(w, http.StatusOK, UserResponse{BaseResponse{Ok: true}, user})
}

func (h *UserHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var input service.ResetPasswordInput
	if !decodeJSON(w, r, &input) {
		return
	}

	if err := h.service.ResetPassword(r.Context(), id, input); err != nil {
		respondWithServiceError(w, r, "Password reset error", err)
		return
	}

	respondWithJSON(w, http.StatusOK, MessageResponse{BaseResponse{Ok: true}, "Password reset successfully"})
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		respondWithServiceError(w, r, "User delete error", err)
		return
	}

	respondWithJSON(w, http.StatusOK, MessageResponse{BaseResponse{Ok: true}, "User deleted successfully"})
}
