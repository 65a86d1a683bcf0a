package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	accounts "coldwatch/internal/accounts/domain"
	"coldwatch/internal/auth"

	"go.uber.org/zap"
)

// Handler serves account registration, login and profile endpoints.
type Handler struct {
	users    accounts.UserRepository
	secret   []byte
	tokenTTL time.Duration
	logger   *zap.Logger
}

// NewHandler constructs an account handler.
func NewHandler(users accounts.UserRepository, secret []byte, tokenTTL time.Duration, logger *zap.Logger) (*Handler, error) {
	if users == nil {
		return nil, errors.New("accounts handler: nil user repository")
	}
	if len(secret) == 0 {
		return nil, errors.New("accounts handler: empty secret")
	}
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{users: users, secret: secret, tokenTTL: tokenTTL, logger: logger}, nil
}

// ServeHTTP routes account requests.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/api/auth/register" && r.Method == http.MethodPost:
		h.handleRegister(w, r)
	case r.URL.Path == "/api/auth/login" && r.Method == http.MethodPost:
		h.handleLogin(w, r)
	case r.URL.Path == "/api/auth/profile" && r.Method == http.MethodGet:
		h.handleProfileGet(w, r)
	case r.URL.Path == "/api/auth/profile" && r.Method == http.MethodPut:
		h.handleProfilePut(w, r)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	WhatsApp string `json:"whatsapp"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		http.Error(w, "username and password are required", http.StatusBadRequest)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		http.Error(w, "invalid password", http.StatusBadRequest)
		return
	}
	created, err := h.users.Create(r.Context(), accounts.User{
		Username:     req.Username,
		PasswordHash: hash,
		WhatsApp:     strings.TrimSpace(req.WhatsApp),
	})
	if errors.Is(err, accounts.ErrUsernameTaken) {
		http.Error(w, "username already taken", http.StatusBadRequest)
		return
	}
	if err != nil {
		h.logger.Error("register: create user failed", zap.Error(err))
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"id":       created.ID,
		"username": created.Username,
	})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	user, err := h.users.GetByUsername(r.Context(), strings.TrimSpace(req.Username))
	if errors.Is(err, accounts.ErrNotFound) {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	if err != nil {
		h.logger.Error("login: lookup failed", zap.Error(err))
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}
	if err := auth.CheckPassword(user.PasswordHash, req.Password); err != nil {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	token, err := auth.IssueJWT(user.ID, user.Username, h.secret, h.tokenTTL)
	if err != nil {
		h.logger.Error("login: token issue failed", zap.Error(err))
		http.Error(w, "token error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"token":    token,
		"username": user.Username,
	})
}

func (h *Handler) handleProfileGet(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	user, err := h.users.GetByID(r.Context(), userID)
	if errors.Is(err, accounts.ErrNotFound) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("profile: lookup failed", zap.Error(err))
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"id":       user.ID,
		"username": user.Username,
		"whatsapp": user.WhatsApp,
	})
}

type profileUpdateRequest struct {
	WhatsApp    string `json:"whatsapp"`
	Password    string `json:"password"`
	OldPassword string `json:"oldPassword"`
}

func (h *Handler) handleProfilePut(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	var req profileUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	user, err := h.users.GetByID(r.Context(), userID)
	if errors.Is(err, accounts.ErrNotFound) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("profile update: lookup failed", zap.Error(err))
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}

	newHash := ""
	if req.Password != "" {
		// A password change requires proving knowledge of the current one.
		if err := auth.CheckPassword(user.PasswordHash, req.OldPassword); err != nil {
			http.Error(w, "old password does not match", http.StatusUnauthorized)
			return
		}
		newHash, err = auth.HashPassword(req.Password)
		if err != nil {
			http.Error(w, "invalid password", http.StatusBadRequest)
			return
		}
	}

	if err := h.users.UpdateProfile(r.Context(), userID, strings.TrimSpace(req.WhatsApp), newHash); err != nil {
		h.logger.Error("profile update failed", zap.Error(err))
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "updated"})
}
