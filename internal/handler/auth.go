// internal/handler/auth.go
package handler

import (
	"net/http"

	"github.com/dangerclosesec/portal/internal/model"
	"github.com/dangerclosesec/portal/internal/service"
)

type AuthHandler struct {
	authService *service.AuthService
}

func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

type LoginResponse struct {
	BaseResponse
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

type ProfileResponse struct {
	BaseResponse
	User *model.User `json:"user"`
}

func (h *AuthHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var input service.LoginInput
	if !decodeJSON(w, r, &input) {
		return
	}

	output, err := h.authService.Login(r.Context(), input)
	if err != nil {
		respondWithServiceError(w, r, "User login error", err)
		return
	}

	respondWithJSON(w, http.StatusOK, LoginResponse{
		BaseResponse: BaseResponse{Ok: true},
		Token:        output.Token,
		User:         output.User,
	})
}

func (h *AuthHandler) MeHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	user, err := h.authService.Me(r.Context(), actor.UserID)
	if err != nil {
		respondWithServiceError(w, r, "Profile lookup error", err)
		return
	}

	respondWithJSON(w, http.StatusOK, ProfileResponse{
		BaseResponse: BaseResponse{Ok: true},
		User:         user,
	})
}
