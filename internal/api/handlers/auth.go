package handlers

import (
	"net/http"

	"github.com/dvloznov/lifeledger/internal/api/middleware"
	"github.com/dvloznov/lifeledger/internal/auth"
	"github.com/dvloznov/lifeledger/internal/users"
)

// AuthHandler handles sign-up, sign-in and sign-out.
type AuthHandler struct {
	auth *auth.Service
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(a *auth.Service) *AuthHandler {
	return &AuthHandler{auth: a}
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// Register handles POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if !decode(w, r, &req) {
		return
	}
	session, err := h.auth.Register(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		writeServiceError(w, r, err, "Failed to register")
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, session)
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if !decode(w, r, &req) {
		return
	}
	session, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, r, err, "Failed to log in")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, session)
}

// Logout handles POST /api/auth/logout. Logging out twice is not an error.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := middleware.BearerToken(r)
	if token == "" {
		middleware.WriteError(w, http.StatusUnauthorized, "missing token")
		return
	}
	if err := h.auth.Logout(r.Context(), token); err != nil {
		writeServiceError(w, r, err, "Failed to log out")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.auth.Me(r.Context(), userID(r))
	if err != nil {
		writeServiceError(w, r, err, "Failed to load user")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, user)
}

// UsersHandler handles profile and preference endpoints.
type UsersHandler struct {
	users *users.Service
}

// NewUsersHandler creates a new users handler.
func NewUsersHandler(u *users.Service) *UsersHandler {
	return &UsersHandler{users: u}
}

// Get handles GET /api/users/me
func (h *UsersHandler) Get(w http.ResponseWriter, r *http.Request) {
	profile, err := h.users.GetUserData(r.Context(), userID(r))
	if err != nil {
		writeServiceError(w, r, err, "Failed to load profile")
		return
	}
	if profile == nil {
		middleware.WriteError(w, http.StatusNotFound, "Not found")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, profile)
}

// UpdateProfile handles PUT /api/users/me/profile
func (h *UsersHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if !decode(w, r, &req) {
		return
	}
	user, err := h.users.UpdateProfile(r.Context(), userID(r), req.Name)
	if err != nil {
		writeServiceError(w, r, err, "Failed to update profile")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, user)
}

// UpdatePreferences handles PUT /api/users/me/preferences
func (h *UsersHandler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	var prefs map[string]bool
	if !decode(w, r, &prefs) {
		return
	}
	if err := h.users.UpdatePreferences(r.Context(), userID(r), prefs); err != nil {
		writeServiceError(w, r, err, "Failed to update preferences")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
