package handler

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"raindrive/internal/auth"
	"raindrive/internal/domain"
	"raindrive/internal/service"
	"raindrive/internal/weather"
)

// maxUploadMemory bounds the multipart parse buffer; larger parts spill to
// temporary files.
const maxUploadMemory = 32 << 20

type FileHandler struct {
	drive   *service.DriveService
	weather *weather.Service
}

func NewFileHandler(drive *service.DriveService, weather *weather.Service) *FileHandler {
	return &FileHandler{drive: drive, weather: weather}
}

// UploadFile accepts a multipart upload. folder_id absent or empty places
// the file at the root.
func (h *FileHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.Principal(r)

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		log.Printf("Failed to parse multipart form: %v", err)
		http.Error(w, "Invalid multipart form", http.StatusBadRequest)
		return
	}

	part, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "Missing file part", http.StatusBadRequest)
		return
	}
	defer part.Close()

	data, err := io.ReadAll(part)
	if err != nil {
		log.Printf("Failed to read upload: %v", err)
		http.Error(w, "Failed to read upload", http.StatusBadRequest)
		return
	}

	var folderID *int64
	if raw := r.FormValue("folder_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			http.Error(w, "Invalid folder ID", http.StatusBadRequest)
			return
		}
		folderID = &id
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	file, err := h.drive.UploadFile(r.Context(), principal, header.Filename, mimeType, data, folderID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, file)
}

// RegisterFile records a file whose bytes already reached the object store
// through a direct upload.
func (h *FileHandler) RegisterFile(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.Principal(r)

	var req struct {
		Name       string `json:"name"`
		SizeBytes  int64  `json:"size_bytes"`
		MIMEType   string `json:"mime_type"`
		StorageKey string `json:"storage_key"`
		FolderID   *int64 `json:"folder_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("Failed to decode request: %v", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	file, err := h.drive.RegisterFile(r.Context(), principal, req.Name, req.SizeBytes, req.MIMEType, req.StorageKey, req.FolderID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, file)
}

// RenameFile handles file renames.
func (h *FileHandler) RenameFile(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.Principal(r)

	var req struct {
		NewName string `json:"new_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("Failed to decode request: %v", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	renamed, err := h.drive.RenameItem(r.Context(), principal, chi.URLParam(r, "fileID"), domain.KindFile, req.NewName)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, renamed)
}

// MoveFile relocates a file. target_id null or absent moves it to the root.
func (h *FileHandler) MoveFile(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.Principal(r)

	var req struct {
		TargetID *int64 `json:"target_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("Failed to decode request: %v", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	moved, err := h.drive.MoveItem(r.Context(), principal, chi.URLParam(r, "fileID"), domain.KindFile, req.TargetID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, moved)
}

// CopyFile duplicates a file's metadata row. target_id absent keeps the
// copy beside the source; an explicit null sends it to the root.
func (h *FileHandler) CopyFile(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.Principal(r)

	var req struct {
		TargetID optionalInt64 `json:"target_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("Failed to decode request: %v", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	copied, err := h.drive.CopyItem(r.Context(), principal, chi.URLParam(r, "fileID"), domain.KindFile, req.TargetID.Set, req.TargetID.Value)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, copied)
}

// GetRecentFiles returns the most recently touched files, newest first.
func (h *FileHandler) GetRecentFiles(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.Principal(r)

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	files, err := h.drive.RecentFiles(r.Context(), principal, limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, files)
}

// DownloadFile redirects to the object store, but only while it is raining
// at the configured location. Dry weather gets a refusal, not an error.
func (h *FileHandler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.Principal(r)

	fileID, err := uuid.Parse(chi.URLParam(r, "fileID"))
	if err != nil {
		http.Error(w, "Invalid file ID", http.StatusBadRequest)
		return
	}

	// Authorization and ownership come first; the weather gate only
	// applies to a download the caller is otherwise allowed to make.
	url, err := h.drive.DownloadURL(r.Context(), principal, fileID)
	if err != nil {
		writeError(w, err)
		return
	}

	if state := h.weather.Check(r.Context()); state != weather.Raining {
		writeJSON(w, http.StatusForbidden, map[string]string{
			"error":   "downloads are only available while it is raining",
			"weather": string(state),
		})
		return
	}

	http.Redirect(w, r, url, http.StatusFound)
}
