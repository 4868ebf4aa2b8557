package search

import (
	"context"
	"fmt"

	"stylegenie/pkg/models"
)

// Query is what the user asked for.
type Query struct {
	Text       string
	ImageRef   string
	Filters    models.Filters
	Attributes *Attributes
}

// Attributes is a normalized description of the wanted item, produced by a Classifier.
type Attributes struct {
	Category  string   `json:"category,omitempty"`
	Style     string   `json:"style,omitempty"`
	Formality string   `json:"formality,omitempty"`
	Gender    string   `json:"gender,omitempty"`
	Season    string   `json:"season,omitempty"`
	Colors    []string `json:"colors,omitempty"`
	Materials []string `json:"materials,omitempty"`
}

// Provider searches one marketplace.
type Provider interface {
	Search(ctx context.Context, q Query, marketplaceID string, limit int) ([]models.Product, error)
}

// Classifier turns a free-form query into Attributes.
type Classifier interface {
	Classify(ctx context.Context, text, imageRef string) (*Attributes, error)
}

// Error is a failed search against a single marketplace.
type Error struct {
	Marketplace string
	Err         error
}

func (e *Error) Error() string {
	return fmt.Sprintf("search %s: %v", e.Marketplace, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
