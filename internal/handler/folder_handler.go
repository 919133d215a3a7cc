package handler

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"raindrive/internal/auth"
	"raindrive/internal/domain"
	"raindrive/internal/service"
)

type FolderHandler struct {
	drive *service.DriveService
}

func NewFolderHandler(drive *service.DriveService) *FolderHandler {
	return &FolderHandler{drive: drive}
}

// CreateFolder handles folder creation. parent_id null or absent creates
// at the root.
func (h *FolderHandler) CreateFolder(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.Principal(r)

	var req struct {
		Name     string `json:"name"`
		ParentID *int64 `json:"parent_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("Failed to decode request: %v", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	folder, err := h.drive.CreateFolder(r.Context(), principal, req.Name, req.ParentID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, folder)
}

// GetRootContent lists the top-level folders and files.
func (h *FolderHandler) GetRootContent(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.Principal(r)

	content, err := h.drive.FolderContent(r.Context(), principal, nil)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, content)
}

// GetFolderContent lists a folder's children along with the folder itself.
func (h *FolderHandler) GetFolderContent(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.Principal(r)

	folderID, err := strconv.ParseInt(chi.URLParam(r, "folderID"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid folder ID", http.StatusBadRequest)
		return
	}

	content, err := h.drive.FolderContent(r.Context(), principal, &folderID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, content)
}

// GetFolderPath returns the root-to-folder chain for breadcrumbs.
func (h *FolderHandler) GetFolderPath(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.Principal(r)

	folderID, err := strconv.ParseInt(chi.URLParam(r, "folderID"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid folder ID", http.StatusBadRequest)
		return
	}

	path, err := h.drive.FolderPath(r.Context(), principal, folderID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, path)
}

// RenameFolder handles folder renames.
func (h *FolderHandler) RenameFolder(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.Principal(r)

	var req struct {
		NewName string `json:"new_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("Failed to decode request: %v", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	renamed, err := h.drive.RenameItem(r.Context(), principal, chi.URLParam(r, "folderID"), domain.KindFolder, req.NewName)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, renamed)
}

// MoveFolder reparents a folder. target_id null or absent moves it to the
// root.
func (h *FolderHandler) MoveFolder(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.Principal(r)

	var req struct {
		TargetID *int64 `json:"target_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("Failed to decode request: %v", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	moved, err := h.drive.MoveItem(r.Context(), principal, chi.URLParam(r, "folderID"), domain.KindFolder, req.TargetID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, moved)
}

// CopyFolder creates an empty copy of a folder. target_id absent keeps the
// copy beside the source; an explicit null sends it to the root.
func (h *FolderHandler) CopyFolder(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.Principal(r)

	var req struct {
		TargetID optionalInt64 `json:"target_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("Failed to decode request: %v", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	copied, err := h.drive.CopyItem(r.Context(), principal, chi.URLParam(r, "folderID"), domain.KindFolder, req.TargetID.Set, req.TargetID.Value)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, copied)
}

// DeleteFolder removes an empty folder immediately, bypassing the trash.
func (h *FolderHandler) DeleteFolder(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.Principal(r)

	folderID, err := strconv.ParseInt(chi.URLParam(r, "folderID"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid folder ID", http.StatusBadRequest)
		return
	}

	if err := h.drive.HardDeleteFolder(r.Context(), principal, folderID); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
