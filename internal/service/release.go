package service

import (
	"log"

	"raindrive/internal/service/s3"
)

// releaseBestEffort asks the object store to drop a blob and swallows any
// failure by contract: an orphaned blob is recoverable by a reconciliation
// sweep, while a metadata row pointing at nothing is a phantom file the user
// can see. Every deletion path funnels through here so the swallow is a
// policy, not an accident.
func releaseBestEffort(store s3.Storage, key string) {
	if key == "" {
		return
	}
	if err := store.DeleteObject(key); err != nil {
		log.Printf("warning: failed to release blob %s: %v", key, err)
	}
}
