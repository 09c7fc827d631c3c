package object

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"
	"time"

	"boneai-backend/internal/shared/util"
)

var (
	// ErrObjectExists is returned by PutNew when the key is already taken.
	ErrObjectExists = errors.New("object already exists")
	ErrNotFound     = errors.New("object not found")
)

// ImageStore is the bucket-scoped contract used to keep analysed images.
// Buckets are created on demand and serve their objects publicly.
type ImageStore interface {
	// EnsureBucket creates the bucket when it does not exist yet. Safe to call repeatedly.
	EnsureBucket(ctx context.Context) error
	// PutNew stores data under key and never overwrites an existing object.
	PutNew(ctx context.Context, key, contentType string, data []byte) error
	PublicURL(ctx context.Context, key string) (string, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// ImageKey builds the "<user>/<task>/<unix millis>.<ext>" key for an uploaded image.
func ImageKey(userID, taskID string, at time.Time, ext string) (string, error) {
	user, err := util.SanitizeFileName(userID)
	if err != nil {
		return "", fmt.Errorf("user segment: %w", err)
	}
	task, err := util.SanitizeFileName(taskID)
	if err != nil {
		return "", fmt.Errorf("task segment: %w", err)
	}
	if ext == "" {
		ext = "bin"
	}
	name := strconv.FormatInt(at.UTC().UnixMilli(), 10) + "." + ext
	return path.Join(user, task, name), nil
}
