package image

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"stylegenie/pkg/metrics"
)

type entry struct {
	img   Image
	timer *time.Timer
}

// MemoryRepository is an in-memory Repository with TTL based eviction.
type MemoryRepository struct {
	mu   sync.RWMutex
	data map[string]*entry
	reg  *metrics.Registry
}

func NewMemoryRepository(reg *metrics.Registry) *MemoryRepository {
	return &MemoryRepository{data: make(map[string]*entry), reg: reg}
}

// Save sniffs the content type, rejects non-images and stores a private copy.
func (r *MemoryRepository) Save(ctx context.Context, b []byte, ttl time.Duration) (string, error) {
	if len(b) == 0 {
		return "", ErrEmpty
	}
	ct := http.DetectContentType(b)
	if !strings.HasPrefix(ct, "image/") {
		return "", fmt.Errorf("%w: %s", ErrNotImage, ct)
	}

	ref := RefPrefix + uuid.NewString()
	e := &entry{img: Image{Data: append([]byte(nil), b...), ContentType: ct}}
	if ttl > 0 {
		e.timer = time.AfterFunc(ttl, func() {
			_ = r.Delete(context.Background(), ref)
		})
	}

	r.mu.Lock()
	r.data[ref] = e
	r.mu.Unlock()

	log.Ctx(ctx).Info().Str("image_ref", ref).Str("content_type", ct).Int("bytes", len(b)).Msg("image stored")
	r.reg.Inc(ctx, "images_saved_total", nil, 1)
	return ref, nil
}

func (r *MemoryRepository) Get(_ context.Context, ref string) (Image, bool) {
	r.mu.RLock()
	e, ok := r.data[ref]
	r.mu.RUnlock()
	if !ok {
		return Image{}, false
	}
	return Image{Data: append([]byte(nil), e.img.Data...), ContentType: e.img.ContentType}, true
}

func (r *MemoryRepository) Delete(ctx context.Context, ref string) error {
	r.mu.Lock()
	e, ok := r.data[ref]
	if ok {
		delete(r.data, ref)
	}
	r.mu.Unlock()

	if !ok {
		return nil
	}
	if e.timer != nil {
		e.timer.Stop()
	}
	log.Ctx(ctx).Info().Str("image_ref", ref).Int("bytes", len(e.img.Data)).Msg("image evicted")
	r.reg.Inc(ctx, "images_deleted_total", nil, 1)
	return nil
}

// Resolver turns image references into something a remote service can fetch.
type Resolver struct {
	repo Repository
}

func NewResolver(repo Repository) *Resolver {
	return &Resolver{repo: repo}
}

// Resolve returns a data URI for repository references and passes any other
// non-empty value through unchanged.
func (r *Resolver) Resolve(ctx context.Context, ref string) (string, error) {
	if ref == "" || !IsRef(ref) {
		return ref, nil
	}
	if r == nil || r.repo == nil {
		return "", fmt.Errorf("%w: %s", ErrNotFound, ref)
	}
	img, ok := r.repo.Get(ctx, ref)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotFound, ref)
	}
	return "data:" + img.ContentType + ";base64," + base64.StdEncoding.EncodeToString(img.Data), nil
}
