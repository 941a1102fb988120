package file

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	filemodel "github.com/zhouzirui/projecthub/backend/internal/model/file"
	"github.com/zhouzirui/projecthub/backend/pkg/utils"
)

// 上传大小上限：与前端约定保持一致。
const maxUploadBytes = 32 << 20

// binaryExtensions 直接按扩展名判定为二进制的已知媒体类型。
var binaryExtensions = map[string]struct{}{
	"png": {}, "jpg": {}, "jpeg": {}, "gif": {}, "webp": {},
	"mp4": {}, "avi": {}, "mov": {}, "webm": {},
}

// Handler 文件资源的HTTP处理器
type Handler struct {
	files filemodel.Store
}

// New 创建文件处理器
func New(files filemodel.Store) *Handler {
	return &Handler{files: files}
}

// RegisterRoutes 注册读取路由（登录即可访问）
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/files/{fileID}", h.handleGet)
}

// RegisterAdminRoutes 注册写入路由（仅管理员）
func (h *Handler) RegisterAdminRoutes(r chi.Router) {
	r.Post("/files", h.handleCreate)
	r.Post("/files/upload", h.handleUpload)
	r.Put("/files/{fileID}", h.handleUpdate)
	r.Delete("/files/{fileID}", h.handleDelete)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "fileID")

	f, err := h.files.FindByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, filemodel.ErrNotFound) {
			utils.RespondError(w, http.StatusNotFound, "file not found")
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, "failed to load file")
		return
	}
	utils.RespondJSON(w, http.StatusOK, f)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		ProjectID string `json:"project_id"`
		Name      string `json:"name"`
		Content   string `json:"content"`
		FileType  string `json:"file_type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.ProjectID == "" || payload.Name == "" {
		utils.RespondError(w, http.StatusBadRequest, "project_id and name are required")
		return
	}

	now := time.Now().UTC()
	f := filemodel.File{
		ID:        uuid.NewString(),
		ProjectID: payload.ProjectID,
		Name:      payload.Name,
		Content:   payload.Content,
		FileType:  payload.FileType,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.files.Create(r.Context(), f); err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "failed to create file")
		return
	}
	utils.RespondJSON(w, http.StatusOK, f)
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	projectID := r.FormValue("project_id")
	if projectID == "" {
		utils.RespondError(w, http.StatusBadRequest, "project_id is required")
		return
	}

	upload, header, err := r.FormFile("file")
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer upload.Close()

	content, err := io.ReadAll(io.LimitReader(upload, maxUploadBytes))
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "failed to read upload")
		return
	}

	fileType := extensionOf(header.Filename)
	contentStr, isBinary := encodeContent(fileType, content)

	now := time.Now().UTC()
	f := filemodel.File{
		ID:           uuid.NewString(),
		ProjectID:    projectID,
		Name:         header.Filename,
		Content:      contentStr,
		FileType:     fileType,
		IsBinary:     isBinary,
		DetectedMIME: mimetype.Detect(content).String(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := h.files.Create(r.Context(), f); err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "failed to store upload")
		return
	}
	utils.RespondJSON(w, http.StatusOK, f)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "fileID")

	var payload struct {
		Name    *string `json:"name"`
		Content *string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	upd := filemodel.Update{Name: payload.Name, Content: payload.Content}
	if upd.Empty() {
		utils.RespondError(w, http.StatusBadRequest, "no fields to update")
		return
	}

	f, err := h.files.Update(r.Context(), id, upd)
	if err != nil {
		if errors.Is(err, filemodel.ErrNotFound) {
			utils.RespondError(w, http.StatusNotFound, "file not found")
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, "failed to update file")
		return
	}
	utils.RespondJSON(w, http.StatusOK, f)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "fileID")

	if err := h.files.Delete(r.Context(), id); err != nil {
		if errors.Is(err, filemodel.ErrNotFound) {
			utils.RespondError(w, http.StatusNotFound, "file not found")
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, "failed to delete file")
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]string{"message": "File deleted"})
}

// extensionOf returns the lower-cased extension without the dot, or
// "txt" when the name has none.
func extensionOf(name string) string {
	ext := strings.TrimPrefix(filepath.Ext(name), ".")
	if ext == "" {
		return "txt"
	}
	return strings.ToLower(ext)
}

// encodeContent stores known media extensions and undecodable bytes as
// base64 with the binary flag; everything else is kept as UTF-8 text.
func encodeContent(fileType string, content []byte) (string, bool) {
	if _, ok := binaryExtensions[fileType]; ok {
		return base64.StdEncoding.EncodeToString(content), true
	}
	if utf8.Valid(content) {
		return string(content), false
	}
	return base64.StdEncoding.EncodeToString(content), true
}
