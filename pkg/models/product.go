package models

// Product is a single search hit. Price is in whole rubles.
type Product struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Price       int64    `json:"price"`
	Images      []string `json:"images"`
	URL         string   `json:"url"`
	Marketplace string   `json:"marketplace"`
	Similarity  *float64 `json:"similarity,omitempty"`
	Brand       string   `json:"brand,omitempty"`
}

// Image returns the cover image of the product.
func (p Product) Image() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

// Score is the similarity used for ranking; missing similarity ranks as zero.
func (p Product) Score() float64 {
	if p.Similarity == nil {
		return 0
	}
	return *p.Similarity
}

// ProductGroup is a run of products sharing one marketplace, used for display.
type ProductGroup struct {
	Marketplace string    `json:"marketplace"`
	Products    []Product `json:"products"`
}

// GroupByMarketplace groups products by marketplace name. Groups appear in the
// order their first product appears and keep the relative product order.
func GroupByMarketplace(products []Product) []ProductGroup {
	var groups []ProductGroup
	index := make(map[string]int)
	for _, p := range products {
		name := p.Marketplace
		if name == "" {
			name = "Другие"
		}
		i, ok := index[name]
		if !ok {
			i = len(groups)
			index[name] = i
			groups = append(groups, ProductGroup{Marketplace: name})
		}
		groups[i].Products = append(groups[i].Products, p)
	}
	return groups
}

// Master is a tailor or atelier offered when nothing suitable was found.
type Master struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Image     string `json:"image"`
	PriceFrom int64  `json:"priceFrom"`
	PriceTo   *int64 `json:"priceTo,omitempty"`
}
