package marketplace

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"stylegenie/pkg/models"
)

// customPrefix marks generated ids; seed ids never carry it.
const customPrefix = "custom-"

var validate = validator.New()

// Defaults returns the built-in marketplaces, all enabled.
func Defaults() []models.Marketplace {
	return []models.Marketplace{
		{ID: "lamoda", Name: "Lamoda", BaseURL: "https://www.lamoda.ru", Enabled: true},
		{ID: "tsum", Name: "ЦУМ", BaseURL: "https://www.tsum.ru", Enabled: true},
		{ID: "wildberries", Name: "Wildberries", BaseURL: "https://www.wildberries.ru", Enabled: true},
		{ID: "ozon", Name: "Ozon", BaseURL: "https://www.ozon.ru", Enabled: true},
	}
}

// Registry is the in-process list of marketplaces. Reads return copies so a
// search started before a write keeps the set it started with.
type Registry struct {
	mu    sync.RWMutex
	items []models.Marketplace
	seq   uint64
}

// NewRegistry creates a registry seeded with the given marketplaces.
func NewRegistry(seed []models.Marketplace) *Registry {
	items := make([]models.Marketplace, len(seed))
	copy(items, seed)
	return &Registry{items: items}
}

// NewDefaultRegistry creates a registry seeded with Defaults.
func NewDefaultRegistry() *Registry {
	return NewRegistry(Defaults())
}

// List returns all marketplaces in insertion order.
func (r *Registry) List() []models.Marketplace {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.Marketplace, len(r.items))
	copy(out, r.items)
	return out
}

// ListEnabled returns enabled marketplaces in insertion order.
func (r *Registry) ListEnabled() []models.Marketplace {
	return models.FilterEnabled(r.List())
}

// Marketplaces implements Lister.
func (r *Registry) Marketplaces(_ context.Context) ([]models.Marketplace, error) {
	return r.List(), nil
}

// Add appends a new enabled marketplace with a fresh id.
func (r *Registry) Add(ctx context.Context, name, baseURL string) (models.Marketplace, error) {
	m := models.Marketplace{
		Name:    strings.TrimSpace(name),
		BaseURL: strings.TrimSpace(baseURL),
		Enabled: true,
	}
	if err := validate.Struct(m); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return models.Marketplace{}, &ValidationError{Field: strings.ToLower(verrs[0].Field())}
		}
		return models.Marketplace{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	r.mu.Lock()
	m.ID = r.nextIDLocked()
	r.items = append(r.items, m)
	r.mu.Unlock()

	log.Ctx(ctx).Info().Str("marketplace_id", m.ID).Str("name", m.Name).Msg("marketplace added")
	return m, nil
}

// SetEnabled toggles a marketplace in place.
func (r *Registry) SetEnabled(ctx context.Context, id string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.items {
		if r.items[i].ID == id {
			r.items[i].Enabled = enabled
			log.Ctx(ctx).Info().Str("marketplace_id", id).Bool("enabled", enabled).Msg("marketplace toggled")
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Remove deletes a marketplace. Removing an unknown id is a no-op.
func (r *Registry) Remove(ctx context.Context, id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.items {
		if r.items[i].ID == id {
			r.items = append(r.items[:i:i], r.items[i+1:]...)
			log.Ctx(ctx).Info().Str("marketplace_id", id).Msg("marketplace removed")
			return
		}
	}
}

func (r *Registry) nextIDLocked() string {
	for {
		r.seq++
		id := fmt.Sprintf("%s%d", customPrefix, r.seq)
		if !r.hasLocked(id) {
			return id
		}
	}
}

func (r *Registry) hasLocked(id string) bool {
	for i := range r.items {
		if r.items[i].ID == id {
			return true
		}
	}
	return false
}
