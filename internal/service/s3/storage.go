package s3

// Storage is the slice of the object store the storage engine consumes:
// append-only puts, deletes tolerant of missing keys, and URL derivation for
// download redirects. Objects are never mutated in place, which is why
// several file rows may safely alias one key.
type Storage interface {
	UploadBytes(key string, data []byte) error
	DeleteObject(key string) error
	ObjectURL(key string) string
}
