// Package storage holds the object-storage backends used for product photos.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"time"

	"ecommerce-backend/config"
)

// Storage uploads public objects and deletes them again by their public URL.
type Storage interface {
	Upload(ctx context.Context, content io.Reader, filename, contentType string) (string, error)
	Delete(ctx context.Context, url string) error
}

// ErrForeignURL is returned by Delete for URLs this backend did not issue.
var ErrForeignURL = errors.New("url does not belong to this storage backend")

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// sanitizeFilename replaces path separators and other unsafe characters and
// caps the length at 100 characters.
func sanitizeFilename(filename string) string {
	sanitized := unsafeFilenameChars.ReplaceAllString(filename, "_")
	if len(sanitized) > 100 {
		sanitized = sanitized[:100]
	}
	if sanitized == "" || sanitized == "." || sanitized == ".." {
		sanitized = "file"
	}
	return sanitized
}

var now = time.Now

func objectKey(filename string) string {
	return fmt.Sprintf("products/%d_%s", now().UnixNano(), sanitizeFilename(filename))
}

// New builds the backend selected by cfg.Provider.
func New(ctx context.Context, cfg config.StorageConfig) (Storage, error) {
	switch cfg.Provider {
	case "firebase":
		return NewFirebaseStorage(ctx, cfg.FirebaseBucket, cfg.GoogleCredentials)
	case "s3":
		return NewS3Storage(ctx, S3Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			PublicURL: cfg.S3PublicURL,
		})
	case "local", "":
		return NewLocalStorage(cfg.LocalPath, cfg.LocalURL)
	default:
		return nil, fmt.Errorf("unknown storage provider %q", cfg.Provider)
	}
}
