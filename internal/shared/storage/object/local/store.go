package local

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"boneai-backend/internal/shared/storage/object"
)

// Store implements ImageStore on the local filesystem. Each bucket is a
// directory under baseDir; objects are served by the API under /images/.
type Store struct {
	baseDir       string
	bucket        string
	publicBaseURL string
}

// New creates a local image store rooted at baseDir.
func New(baseDir, bucket, publicBaseURL string) *Store {
	return &Store{
		baseDir:       baseDir,
		bucket:        bucket,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
	}
}

func (s *Store) bucketDir() string {
	return filepath.Join(s.baseDir, s.bucket)
}

// EnsureBucket creates the bucket directory if missing.
func (s *Store) EnsureBucket(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	info, err := os.Stat(s.bucketDir())
	if err == nil {
		if !info.IsDir() {
			return fmt.Errorf("bucket path %s is not a directory", s.bucketDir())
		}
		return nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat bucket: %w", err)
	}
	if err := os.MkdirAll(s.bucketDir(), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	return nil
}

// PutNew writes data at key, failing with ErrObjectExists if the file is already there.
func (s *Store) PutNew(ctx context.Context, key, contentType string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fullPath, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	f, err := os.OpenFile(fullPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return object.ErrObjectExists
		}
		return fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write body: %w", err)
	}
	_ = contentType
	return nil
}

// PublicURL returns the URL the API serves the object from.
func (s *Store) PublicURL(ctx context.Context, key string) (string, error) {
	if _, err := s.resolve(key); err != nil {
		return "", err
	}
	segments := strings.Split(filepath.ToSlash(filepath.Clean(key)), "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return s.publicBaseURL + "/images/" + strings.Join(segments, "/"), nil
}

// Open opens a stored object for reading.
func (s *Store) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fullPath, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(fullPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, object.ErrNotFound
		}
		return nil, err
	}
	return f, nil
}

func (s *Store) resolve(key string) (string, error) {
	clean := filepath.Clean(strings.TrimLeft(key, "/"))
	if clean == "." || strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("invalid storage key")
	}
	return filepath.Join(s.bucketDir(), clean), nil
}

var _ object.ImageStore = (*Store)(nil)
