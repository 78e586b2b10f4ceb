package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ImageRef addresses an uploaded image in the blob store.
type ImageRef string

func (r ImageRef) String() string { return string(r) }

// NewImageKey derives a blob key, relative to the store root, from the uploader
// and the upload time. The nanosecond timestamp keeps keys ordered; the uuid
// makes same-instant uploads distinct.
func NewImageKey(userID int64, at time.Time) string {
	return fmt.Sprintf("%d/%d-%s.jpg", userID, at.UnixNano(), uuid.NewString())
}
