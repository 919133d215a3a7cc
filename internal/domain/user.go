package domain

import "time"

// User is the identity anchor for every folder and file. Credential
// management lives in the external auth service; the storage engine only
// resolves principals to rows.
type User struct {
	ID           string    `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
