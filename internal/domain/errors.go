package domain

import "errors"

var (
	// ErrUnauthorized signals that no authenticated principal accompanied
	// the request. Always checked first, never recovered.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound signals a missing entity. Lookups scoped to a different
	// owner also report ErrNotFound so ids are never revealed across users.
	ErrNotFound = errors.New("not found")
	// ErrAccessDenied signals an ownership violation, e.g. attaching an
	// entity under another user's folder. Conflated with ErrNotFound in
	// user-facing responses but kept distinct for logging.
	ErrAccessDenied = errors.New("access denied")
	// ErrInvalidOperation signals a structural violation such as moving a
	// folder into itself or into one of its own descendants.
	ErrInvalidOperation = errors.New("invalid operation")
	// ErrQuotaExceeded signals that admitting an upload would push the
	// owner past the storage ceiling.
	ErrQuotaExceeded = errors.New("storage quota exceeded")
	// ErrFileTooLarge signals a single upload above the per-file cap.
	ErrFileTooLarge = errors.New("file too large")
	// ErrFolderNotEmpty signals a quick (non-trash) delete of a folder
	// that still has children.
	ErrFolderNotEmpty = errors.New("folder is not empty")
	// ErrTreeCorrupted signals that an upward parent walk revisited a
	// node, i.e. the persisted forest already contains a cycle.
	ErrTreeCorrupted = errors.New("folder tree corrupted")
)
