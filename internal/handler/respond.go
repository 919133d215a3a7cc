package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"raindrive/internal/domain"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			log.Printf("Failed to encode response: %v", err)
		}
	}
}

// writeError maps domain sentinels to HTTP statuses. Ownership misses are
// reported as not-found so foreign ids are indistinguishable from absent
// ones.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrAccessDenied):
		http.Error(w, "Not found", http.StatusNotFound)
	case errors.Is(err, domain.ErrInvalidOperation):
		http.Error(w, "Invalid operation", http.StatusBadRequest)
	case errors.Is(err, domain.ErrFolderNotEmpty):
		http.Error(w, "Folder is not empty", http.StatusBadRequest)
	case errors.Is(err, domain.ErrFileTooLarge):
		http.Error(w, "File exceeds the single-upload limit", http.StatusRequestEntityTooLarge)
	case errors.Is(err, domain.ErrQuotaExceeded):
		http.Error(w, "Storage quota exceeded", http.StatusInsufficientStorage)
	default:
		log.Printf("Internal error: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// optionalInt64 distinguishes an absent JSON field from an explicit null.
// Both decode to a nil pointer with encoding/json alone.
type optionalInt64 struct {
	Set   bool
	Value *int64
}

func (o *optionalInt64) UnmarshalJSON(data []byte) error {
	o.Set = true
	return json.Unmarshal(data, &o.Value)
}
