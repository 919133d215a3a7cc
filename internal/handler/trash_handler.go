package handler

import (
	"encoding/json"
	"log"
	"net/http"

	"raindrive/internal/auth"
	"raindrive/internal/domain"
	"raindrive/internal/service"
)

type TrashHandler struct {
	drive *service.DriveService
}

func NewTrashHandler(drive *service.DriveService) *TrashHandler {
	return &TrashHandler{drive: drive}
}

type trashItemRequest struct {
	ItemID   string `json:"item_id"`
	ItemType string `json:"item_type"`
}

func decodeTrashItem(w http.ResponseWriter, r *http.Request) (string, domain.ItemKind, bool) {
	var req trashItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("Failed to decode request: %v", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return "", "", false
	}

	kind := domain.ItemKind(req.ItemType)
	if !kind.Valid() {
		http.Error(w, "Invalid item type", http.StatusBadRequest)
		return "", "", false
	}

	return req.ItemID, kind, true
}

// GetTrashItems lists everything currently in the caller's trash.
func (h *TrashHandler) GetTrashItems(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.Principal(r)

	items, err := h.drive.ListTrash(r.Context(), principal)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, items)
}

// MoveToTrash soft-deletes an item.
func (h *TrashHandler) MoveToTrash(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.Principal(r)

	itemID, kind, ok := decodeTrashItem(w, r)
	if !ok {
		return
	}

	if err := h.drive.SoftDelete(r.Context(), principal, itemID, kind); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// RestoreItem brings a trashed item back to its previous location.
func (h *TrashHandler) RestoreItem(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.Principal(r)

	itemID, kind, ok := decodeTrashItem(w, r)
	if !ok {
		return
	}

	if err := h.drive.RestoreItem(r.Context(), principal, itemID, kind); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// DeletePermanently destroys a trashed item and its stored objects.
func (h *TrashHandler) DeletePermanently(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.Principal(r)

	itemID, kind, ok := decodeTrashItem(w, r)
	if !ok {
		return
	}

	if err := h.drive.PermanentlyDelete(r.Context(), principal, itemID, kind); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// EmptyTrash destroys everything in the caller's trash.
func (h *TrashHandler) EmptyTrash(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.Principal(r)

	count, err := h.drive.EmptyTrash(r.Context(), principal)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"deleted": count})
}
