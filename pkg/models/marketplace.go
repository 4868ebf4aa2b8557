package models

// Marketplace is an external product source that can be toggled in and out of search.
type Marketplace struct {
	ID      string `json:"id"`
	Name    string `json:"name" validate:"required"`
	BaseURL string `json:"url" validate:"required"`
	Enabled bool   `json:"enabled"`
}

// FilterEnabled returns the enabled subset of list, order preserved.
func FilterEnabled(list []Marketplace) []Marketplace {
	out := make([]Marketplace, 0, len(list))
	for i := range list {
		if list[i].Enabled {
			out = append(out, list[i])
		}
	}
	return out
}
