package handler

import (
	"net/http"

	"raindrive/internal/auth"
	"raindrive/internal/service"
)

type QuotaHandler struct {
	drive *service.DriveService
}

func NewQuotaHandler(drive *service.DriveService) *QuotaHandler {
	return &QuotaHandler{drive: drive}
}

// GetQuota reports the caller's storage ceiling and current usage.
func (h *QuotaHandler) GetQuota(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.Principal(r)

	info, err := h.drive.QuotaInfo(r.Context(), principal)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, info)
}
