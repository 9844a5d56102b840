package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/fjod/azura/internal/auth"
	"github.com/fjod/azura/internal/domain"
)

type UserService interface {
	Register(ctx context.Context, name, email, password string) (*domain.User, string, error)
	Login(ctx context.Context, email, password string) (*domain.User, string, error)
	Get(ctx context.Context, id string) (*domain.User, error)
}

type AuthHandler struct {
	users   UserService
	maxBody int64
	log     *slog.Logger
}

func NewAuthHandler(users UserService, maxBody int64, log *slog.Logger) *AuthHandler {
	return &AuthHandler{users: users, maxBody: maxBody, log: log}
}

type RegisterRequestDTO struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequestDTO struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponseDTO struct {
	Token string  `json:"token"`
	User  UserDTO `json:"user"`
}

// POST /api/v1/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequestDTO
	if !decodeJSON(w, r, h.maxBody, &req) {
		return
	}

	user, token, err := h.users.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusCreated, AuthResponseDTO{Token: token, User: convertUser(*user)})
}

// POST /api/v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequestDTO
	if !decodeJSON(w, r, h.maxBody, &req) {
		return
	}

	user, token, err := h.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, AuthResponseDTO{Token: token, User: convertUser(*user)})
}

// GET /api/v1/auth/profile
func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	p := auth.PrincipalFrom(r.Context())
	user, err := h.users.Get(r.Context(), p.ID)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, convertUser(*user))
}
