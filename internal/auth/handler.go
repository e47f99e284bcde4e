package auth

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"unicode/utf8"
)

// Display names show up in live session presence, so they are trimmed
// and capped here rather than trusting the frontend.
const maxDisplayNameLen = 40

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type credentials struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName,omitempty"`
}

// Register handles POST /auth/register and signs the new user in.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "request body is not valid JSON")
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	displayName := strings.TrimSpace(req.DisplayName)

	switch {
	case email == "" || req.Password == "" || displayName == "":
		respondError(w, http.StatusBadRequest, "email, password and displayName are required")
		return
	case !strings.Contains(email, "@"):
		respondError(w, http.StatusBadRequest, "email does not look like an address")
		return
	case len(req.Password) < 8:
		respondError(w, http.StatusBadRequest, "password needs at least 8 characters")
		return
	case utf8.RuneCountInString(displayName) > maxDisplayNameLen:
		respondError(w, http.StatusBadRequest, "display name is too long")
		return
	}

	result, err := h.service.Register(r.Context(), email, req.Password, displayName)
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			respondError(w, http.StatusConflict, "an account with this email already exists")
			return
		}
		slog.Error("register user", "error", err)
		respondError(w, http.StatusInternalServerError, "registration failed")
		return
	}

	slog.Info("user registered", "user", result.User.ID)
	respond(w, http.StatusCreated, result)
}

// Login handles POST /auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "request body is not valid JSON")
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	result, err := h.service.Login(r.Context(), email, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			respondError(w, http.StatusUnauthorized, "wrong email or password")
			return
		}
		slog.Error("login user", "error", err)
		respondError(w, http.StatusInternalServerError, "login failed")
		return
	}

	respond(w, http.StatusOK, result)
}

// Me handles GET /api/me behind the auth middleware; the frontend uses it
// to restore a session from a stored token.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userID := UserIDFromContext(r.Context())
	user, err := h.service.GetUser(r.Context(), userID)
	if err != nil {
		respondError(w, http.StatusNotFound, "account no longer exists")
		return
	}
	respond(w, http.StatusOK, user)
}

func respond(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respond(w, status, map[string]string{"error": msg})
}
