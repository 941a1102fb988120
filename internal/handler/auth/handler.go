package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/projecthub/backend/internal/middleware"
	"github.com/zhouzirui/projecthub/backend/internal/model/reset"
	"github.com/zhouzirui/projecthub/backend/internal/model/user"
	authservice "github.com/zhouzirui/projecthub/backend/internal/service/auth"
	"github.com/zhouzirui/projecthub/backend/pkg/utils"
)

// Handler 认证相关的HTTP处理器
type Handler struct {
	svc *authservice.Service
}

// New 创建认证处理器
func New(svc *authservice.Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes 注册无需登录的认证路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/auth/register", h.handleRegister)
	r.Post("/auth/login", h.handleLogin)
	r.Post("/auth/password-reset-request", h.handleResetRequest)
	r.Post("/auth/password-reset", h.handleReset)
}

// RegisterProtected 注册需要登录的认证路由
func (h *Handler) RegisterProtected(r chi.Router) {
	r.Get("/auth/me", h.handleMe)
}

type tokenResponse struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	User        user.Public `json:"user"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	payload.Username = strings.TrimSpace(payload.Username)
	if payload.Username == "" || payload.Password == "" {
		utils.RespondError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	u, token, err := h.svc.Register(r.Context(), payload.Username, strings.TrimSpace(payload.Email), payload.Password)
	if err != nil {
		switch {
		case errors.Is(err, user.ErrUsernameTaken), errors.Is(err, user.ErrEmailTaken):
			utils.RespondError(w, http.StatusBadRequest, err.Error())
		default:
			utils.RespondError(w, http.StatusInternalServerError, "registration failed")
		}
		return
	}

	utils.RespondJSON(w, http.StatusOK, tokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		User:        u.Public(),
	})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	u, token, err := h.svc.Login(r.Context(), payload.Username, payload.Password)
	if err != nil {
		if errors.Is(err, authservice.ErrInvalidCredentials) {
			utils.RespondError(w, http.StatusUnauthorized, "incorrect username or password")
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, "login failed")
		return
	}

	utils.RespondJSON(w, http.StatusOK, tokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		User:        u.Public(),
	})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	u, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "could not validate credentials")
		return
	}
	utils.RespondJSON(w, http.StatusOK, u.Public())
}

func (h *Handler) handleResetRequest(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		UsernameOrEmail string `json:"username_or_email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	outcome, err := h.svc.RequestReset(r.Context(), payload.UsernameOrEmail)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			utils.RespondError(w, http.StatusNotFound, "user not found")
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, "reset request failed")
		return
	}

	if outcome.HasEmail {
		utils.RespondJSON(w, http.StatusOK, map[string]any{
			"message":    "Reset code sent to your email",
			"has_email":  true,
			"email_sent": outcome.EmailSent,
		})
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"message":   "Reset request sent to administrator",
		"has_email": false,
	})
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		UsernameOrEmail string `json:"username_or_email"`
		ResetCode       string `json:"reset_code"`
		NewPassword     string `json:"new_password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.NewPassword == "" {
		utils.RespondError(w, http.StatusBadRequest, "new password is required")
		return
	}

	err := h.svc.ResetPassword(r.Context(), payload.UsernameOrEmail, payload.ResetCode, payload.NewPassword)
	switch {
	case err == nil:
		utils.RespondJSON(w, http.StatusOK, map[string]string{"message": "Password reset successful"})
	case errors.Is(err, user.ErrNotFound):
		utils.RespondError(w, http.StatusNotFound, "user not found")
	case errors.Is(err, reset.ErrCodeExpired):
		utils.RespondError(w, http.StatusBadRequest, "reset code expired")
	case errors.Is(err, reset.ErrCodeNotFound):
		utils.RespondError(w, http.StatusBadRequest, "invalid reset code")
	default:
		utils.RespondError(w, http.StatusInternalServerError, "password reset failed")
	}
}
