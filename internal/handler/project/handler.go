package project

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/zhouzirui/projecthub/backend/internal/middleware"
	filemodel "github.com/zhouzirui/projecthub/backend/internal/model/file"
	projectmodel "github.com/zhouzirui/projecthub/backend/internal/model/project"
	"github.com/zhouzirui/projecthub/backend/pkg/utils"
)

// Handler 项目资源的HTTP处理器
type Handler struct {
	projects projectmodel.Store
	files    filemodel.Store
}

// New 创建项目处理器
func New(projects projectmodel.Store, files filemodel.Store) *Handler {
	return &Handler{projects: projects, files: files}
}

// RegisterRoutes 注册读取路由（登录即可访问）
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/projects", h.handleList)
	r.Get("/projects/{projectID}", h.handleGet)
}

// RegisterAdminRoutes 注册写入路由（仅管理员）
func (h *Handler) RegisterAdminRoutes(r chi.Router) {
	r.Post("/projects", h.handleCreate)
	r.Put("/projects/{projectID}", h.handleUpdate)
	r.Delete("/projects/{projectID}", h.handleDelete)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	projects, err := h.projects.List(r.Context())
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "failed to list projects")
		return
	}
	utils.RespondJSON(w, http.StatusOK, projects)
}

type projectWithFiles struct {
	projectmodel.Project
	Files []filemodel.File `json:"files"`
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "projectID")

	p, err := h.projects.FindByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, projectmodel.ErrNotFound) {
			utils.RespondError(w, http.StatusNotFound, "project not found")
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, "failed to load project")
		return
	}

	files, err := h.files.ListByProject(r.Context(), id)
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "failed to load project files")
		return
	}

	utils.RespondJSON(w, http.StatusOK, projectWithFiles{Project: p, Files: files})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.Name == "" {
		utils.RespondError(w, http.StatusBadRequest, "name is required")
		return
	}

	identity, _ := middleware.IdentityFrom(r.Context())
	p := projectmodel.Project{
		ID:          uuid.NewString(),
		Name:        payload.Name,
		Description: payload.Description,
		CreatedBy:   identity.ID,
		CreatedAt:   time.Now().UTC(),
	}
	if err := h.projects.Create(r.Context(), p); err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "failed to create project")
		return
	}
	utils.RespondJSON(w, http.StatusOK, p)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "projectID")

	var payload struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	upd := projectmodel.Update{Name: payload.Name, Description: payload.Description}
	if upd.Empty() {
		utils.RespondError(w, http.StatusBadRequest, "no fields to update")
		return
	}

	p, err := h.projects.Update(r.Context(), id, upd)
	if err != nil {
		if errors.Is(err, projectmodel.ErrNotFound) {
			utils.RespondError(w, http.StatusNotFound, "project not found")
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, "failed to update project")
		return
	}
	utils.RespondJSON(w, http.StatusOK, p)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "projectID")

	if err := h.projects.Delete(r.Context(), id); err != nil {
		if errors.Is(err, projectmodel.ErrNotFound) {
			utils.RespondError(w, http.StatusNotFound, "project not found")
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, "failed to delete project")
		return
	}

	// Files belonging to the project go with it.
	if err := h.files.DeleteByProject(r.Context(), id); err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "failed to delete project files")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]string{"message": "Project deleted"})
}
