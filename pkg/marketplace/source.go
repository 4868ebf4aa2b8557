package marketplace

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"stylegenie/pkg/models"
)

// Lister is anything that can report the current marketplace list.
type Lister interface {
	Marketplaces(ctx context.Context) ([]models.Marketplace, error)
}

// RemoteSource reads the marketplace list from another registry over HTTP.
// The endpoint must answer with {"marketplaces": [...]}.
type RemoteSource struct {
	url    string
	client *http.Client
}

func NewRemoteSource(url string, timeout time.Duration) *RemoteSource {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &RemoteSource{url: url, client: &http.Client{Timeout: timeout}}
}

type listResponse struct {
	Marketplaces []models.Marketplace `json:"marketplaces"`
}

func (s *RemoteSource) Marketplaces(ctx context.Context) ([]models.Marketplace, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch marketplaces: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch marketplaces: unexpected status %d", resp.StatusCode)
	}

	var body listResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode marketplaces: %w", err)
	}
	return body.Marketplaces, nil
}

// WithDefaults wraps src so that any failure yields the built-in list instead.
func WithDefaults(src Lister) Lister {
	return fallbackSource{src: src}
}

type fallbackSource struct {
	src Lister
}

func (f fallbackSource) Marketplaces(ctx context.Context) ([]models.Marketplace, error) {
	list, err := f.src.Marketplaces(ctx)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("marketplace source unavailable, using built-in list")
		return Defaults(), nil
	}
	return list, nil
}
