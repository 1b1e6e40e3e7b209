package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
)

var (
	ErrBlobNotFound = errors.New("blob not found")
	ErrInvalidKey   = errors.New("invalid blob key")
)

// PublicPrefix is the URL path uploaded blobs are served under.
const PublicPrefix = "/uploads/"

// BlobStore keeps uploaded files addressed by slash-separated keys.
type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader) (string, error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// ProfilePicKey is the key of a user's uploaded picture.
func ProfilePicKey(userID, ext string, at time.Time) string {
	return fmt.Sprintf("users/%s/profile-%d%s", userID, at.UnixMilli(), strings.ToLower(ext))
}

// PublicURL maps a key to the path it is served from.
func PublicURL(key string) string {
	return PublicPrefix + strings.TrimPrefix(key, "/")
}

// CleanKey rejects keys that escape the store root.
func CleanKey(key string) (string, error) {
	key = strings.TrimPrefix(strings.ReplaceAll(key, "\\", "/"), "/")
	if key == "" {
		return "", ErrInvalidKey
	}
	cleaned := path.Clean(key)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("%w: %s", ErrInvalidKey, key)
	}
	return cleaned, nil
}
