package analyses

import (
	"context"
	"errors"
	"path"
	"time"

	"github.com/google/uuid"

	"boneai-backend/internal/imagedata"
	"boneai-backend/internal/shared/metrics"
	"boneai-backend/internal/shared/storage/object"
	"boneai-backend/internal/shared/telemetry"
	"boneai-backend/internal/shared/util"
)

// Gateway stores the analysed image and the result record. Every step is
// best effort: failures are logged and the remaining steps still run.
type Gateway struct {
	Store object.ImageStore
	Repo  Repo
	Now   func() time.Time
	NewID func() string
}

// Persist runs the bucket, upload, URL and record steps in order and never returns an error.
func (g *Gateway) Persist(ctx context.Context, in PersistInput) PersistResult {
	var out PersistResult
	now := g.now()
	fields := map[string]any{
		"request_id": telemetry.RequestID(ctx),
		"user_key":   util.Pseudonymize(in.UserID),
		"task_id":    in.TaskID,
	}

	if g.Store != nil && len(in.Image) > 0 {
		out.ImageURL = g.storeImage(ctx, in, now, fields)
	}

	if g.Repo == nil {
		return out
	}
	rec := Record{
		ID:         g.newID(),
		UserID:     in.UserID,
		TaskID:     in.TaskID,
		TaskName:   in.TaskTitle,
		ResultText: in.ResultText,
		CreatedAt:  now,
	}
	if out.ImageURL != "" {
		url := out.ImageURL
		rec.ImageURL = &url
	}
	if err := g.Repo.Create(ctx, rec); err != nil {
		degraded("persist.record_failed", fields, err)
		return out
	}
	out.AnalysisID = rec.ID
	return out
}

func (g *Gateway) storeImage(ctx context.Context, in PersistInput, now time.Time, fields map[string]any) string {
	if err := g.Store.EnsureBucket(ctx); err != nil {
		// The upload is still attempted; the bucket may exist but be unreadable to us.
		degraded("persist.bucket_failed", fields, err)
	}

	key, err := object.ImageKey(in.UserID, in.TaskID, now, imagedata.Extension(in.MediaType))
	if err != nil {
		degraded("persist.key_invalid", fields, err)
		return ""
	}
	if err := g.Store.PutNew(ctx, key, in.MediaType, in.Image); err != nil {
		event := "persist.upload_failed"
		if errors.Is(err, object.ErrObjectExists) {
			event = "persist.upload_collision"
		}
		degraded(event, withKey(fields, key), err)
		return ""
	}

	url, err := g.Store.PublicURL(ctx, key)
	if err != nil {
		degraded("persist.url_failed", withKey(fields, key), err)
		return ""
	}
	return url
}

func (g *Gateway) now() time.Time {
	if g.Now != nil {
		return g.Now().UTC()
	}
	return time.Now().UTC()
}

func (g *Gateway) newID() string {
	if g.NewID != nil {
		return g.NewID()
	}
	return uuid.NewString()
}

func degraded(event string, fields map[string]any, err error) {
	metrics.IncPersistDegraded()
	logged := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		logged[k] = v
	}
	logged["error"] = err.Error()
	telemetry.Warn(event, logged)
}

func withKey(fields map[string]any, key string) map[string]any {
	out := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		out[k] = v
	}
	// The key's first segment is the raw user id.
	out["object_name"] = path.Base(key)
	return out
}
