package image

import (
	"context"
	"errors"
	"strings"
	"time"
)

// RefPrefix marks references produced by a Repository. Anything else passed
// around as an image reference is treated as an external URL or data URI.
const RefPrefix = "img:"

var (
	ErrEmpty    = errors.New("empty image data")
	ErrNotImage = errors.New("not an image")
	ErrNotFound = errors.New("image not found")
)

// Image is a stored upload.
type Image struct {
	Data        []byte
	ContentType string
}

// Repository keeps uploaded images for a limited time.
type Repository interface {
	// Save stores image bytes and returns a reference of the form img:<uuid>.
	Save(ctx context.Context, data []byte, ttl time.Duration) (string, error)
	// Get returns a copy of the image by reference.
	Get(ctx context.Context, ref string) (Image, bool)
	// Delete removes an image before its TTL expires.
	Delete(ctx context.Context, ref string) error
}

// IsRef reports whether s is a repository reference.
func IsRef(s string) bool {
	return strings.HasPrefix(s, RefPrefix)
}
