package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"stylegenie/pkg/models"
	"stylegenie/pkg/search"
)

const (
	searchPath       = "/api/v1/search"
	placeholderImage = "https://via.placeholder.com/400x533/f3f4f6/9ca3af?text=No+photo"
)

// ErrNotConfigured is returned by a client built without a base URL.
var ErrNotConfigured = errors.New("search gateway is not configured")

// ImageResolver maps image references to URLs the gateway can fetch.
type ImageResolver interface {
	Resolve(ctx context.Context, ref string) (string, error)
}

// Client is a search.Provider backed by the search gateway.
type Client struct {
	baseURL    string
	httpClient *http.Client
	images     ImageResolver
}

// NewClient builds a gateway client. An empty url yields a client whose every
// call fails, which makes the aggregator serve fallback products.
func NewClient(url string, timeout time.Duration, images ImageResolver) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimSuffix(url, "/"),
		httpClient: &http.Client{Timeout: timeout},
		images:     images,
	}
}

type searchRequest struct {
	ImageURL     string             `json:"imageUrl,omitempty"`
	Query        string             `json:"query,omitempty"`
	Marketplace  string             `json:"marketplace"`
	MaxResults   int                `json:"max_results"`
	BudgetFilter *float64           `json:"budget_filter,omitempty"`
	Occasion     string             `json:"occasion,omitempty"`
	Attributes   *search.Attributes `json:"attributes,omitempty"`
}

type searchResponse struct {
	Products []gatewayProduct `json:"products"`
}

type gatewayProduct struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Price      float64  `json:"price"`
	Image      string   `json:"image"`
	Images     []string `json:"images"`
	URL        string   `json:"url"`
	Brand      string   `json:"brand"`
	Similarity *float64 `json:"similarity"`
}

// Search implements search.Provider.
func (c *Client) Search(ctx context.Context, q search.Query, marketplaceID string, limit int) ([]models.Product, error) {
	if c.baseURL == "" {
		return nil, ErrNotConfigured
	}

	payload := searchRequest{
		Query:       q.Text,
		Marketplace: marketplaceID,
		MaxResults:  limit,
		Occasion:    string(q.Filters.Occasion),
		Attributes:  q.Attributes,
	}
	if q.ImageRef != "" && c.images != nil {
		url, err := c.images.Resolve(ctx, q.ImageRef)
		if err != nil {
			return nil, fmt.Errorf("resolve image: %w", err)
		}
		payload.ImageURL = url
	}
	if r, ok := q.Filters.PriceRange(); ok && r.Max > 0 {
		budget := float64(r.Max)
		payload.BudgetFilter = &budget
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+searchPath, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode, snippet)
	}

	var out searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	products := make([]models.Product, 0, len(out.Products))
	for _, p := range out.Products {
		products = append(products, p.toModel())
	}
	return products, nil
}

func (p gatewayProduct) toModel() models.Product {
	images := p.Images
	if len(images) == 0 {
		images = []string{p.Image}
	}
	if images[0] == "" {
		images = []string{placeholderImage}
	}
	price := int64(p.Price)
	if price < 0 {
		price = 0
	}
	return models.Product{
		ID:         p.ID,
		Name:       p.Name,
		Price:      price,
		Images:     images,
		URL:        p.URL,
		Brand:      p.Brand,
		Similarity: clampSimilarity(p.Similarity),
	}
}

func clampSimilarity(s *float64) *float64 {
	if s == nil {
		return nil
	}
	v := min(max(*s, 0), 1)
	return &v
}
