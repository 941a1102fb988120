package admin

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/projecthub/backend/internal/model/reset"
	"github.com/zhouzirui/projecthub/backend/internal/model/user"
	authservice "github.com/zhouzirui/projecthub/backend/internal/service/auth"
	"github.com/zhouzirui/projecthub/backend/pkg/utils"
)

// Handler 管理后台的HTTP处理器，全部路由仅管理员可用。
type Handler struct {
	users    user.Store
	requests reset.RequestStore
	auth     *authservice.Service
}

// New 创建管理处理器
func New(users user.Store, requests reset.RequestStore, auth *authservice.Service) *Handler {
	return &Handler{users: users, requests: requests, auth: auth}
}

// RegisterRoutes 注册管理路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/admin/users", h.handleListUsers)
	r.Get("/admin/reset-requests", h.handleListResetRequests)
	r.Post("/admin/reset-password/{userID}", h.handleResetPassword)
	r.Put("/admin/users/{userID}/role", h.handleUpdateRole)
}

func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "failed to list users")
		return
	}

	out := make([]user.Public, 0, len(users))
	for _, u := range users {
		out = append(out, u.Public())
	}
	utils.RespondJSON(w, http.StatusOK, out)
}

func (h *Handler) handleListResetRequests(w http.ResponseWriter, r *http.Request) {
	pending, err := h.requests.ListPending(r.Context())
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "failed to list reset requests")
		return
	}
	utils.RespondJSON(w, http.StatusOK, pending)
}

func (h *Handler) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	temp, err := h.auth.AdminResetPassword(r.Context(), userID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			utils.RespondError(w, http.StatusNotFound, "user not found")
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, "failed to reset password")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]string{
		"message":            fmt.Sprintf("Password reset to %s", temp),
		"temporary_password": temp,
	})
}

func (h *Handler) handleUpdateRole(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	role := r.URL.Query().Get("role")
	if role != user.RoleUser && role != user.RoleAdmin {
		utils.RespondError(w, http.StatusBadRequest, "invalid role")
		return
	}

	if err := h.users.UpdateRole(r.Context(), userID, role); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			utils.RespondError(w, http.StatusNotFound, "user not found")
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, "failed to update role")
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]string{"message": "Role updated"})
}
