package search

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"strings"

	"stylegenie/pkg/models"
)

var dressImages = []string{
	"https://images.unsplash.com/photo-1595777457583-95e059d581b8?w=400&h=533&fit=crop",
	"https://images.unsplash.com/photo-1566174053879-31528523f8ae?w=400&h=533&fit=crop",
	"https://images.unsplash.com/photo-1572804013309-59a88b7e92f1?w=400&h=533&fit=crop",
	"https://images.unsplash.com/photo-1515372039744-b8f02a3ae446?w=400&h=533&fit=crop",
	"https://images.unsplash.com/photo-1496747611176-843222e1e57c?w=400&h=533&fit=crop",
	"https://images.unsplash.com/photo-1585487000143-668a2d34c32f?w=400&h=533&fit=crop",
}

type fallbackTemplate struct {
	prefix  string
	images  []int
	simBase float64
	brand   string
}

var fallbackTemplates = []fallbackTemplate{
	{prefix: "Элегантное платье", images: []int{0, 3, 4}, simBase: 0.85, brand: "Fashion Brand"},
	{prefix: "Стильное платье", images: []int{1, 4}, simBase: 0.75, brand: "Style Brand"},
	{prefix: "Классическое платье", images: []int{2, 5, 0}, simBase: 0.65},
}

const (
	defaultFallbackQuery = "платье"
	fallbackMinPrice     = 5000
	fallbackMaxPrice     = 55000
)

// FallbackProducts synthesizes placeholder results for a marketplace. The
// output depends only on the marketplace, the query text and the price filter.
func FallbackProducts(m models.Marketplace, q Query) []models.Product {
	text := strings.TrimSpace(q.Text)
	if text == "" {
		text = defaultFallbackQuery
	}

	lo, hi := int64(fallbackMinPrice), int64(fallbackMaxPrice)
	if r, ok := q.Filters.PriceRange(); ok {
		lo = r.Min
		if r.Max > 0 {
			hi = r.Max
		} else {
			hi = r.Min * 2
		}
	}

	base := strings.TrimSuffix(m.BaseURL, "/")
	out := make([]models.Product, 0, len(fallbackTemplates))
	for i, t := range fallbackTemplates {
		h := seed(m.ID, text, i)
		sim := t.simBase + float64(h%1000)/10000
		price := lo
		if hi > lo {
			price = lo + int64((h>>16)%uint64(hi-lo))
		}
		images := make([]string, 0, len(t.images))
		for _, idx := range t.images {
			images = append(images, dressImages[idx])
		}
		out = append(out, models.Product{
			ID:          fmt.Sprintf("%s-%d", m.ID, i+1),
			Name:        t.prefix + " " + text,
			Price:       price,
			Images:      images,
			URL:         fmt.Sprintf("%s/product/%d", base, i+1),
			Marketplace: m.Name,
			Similarity:  &sim,
			Brand:       t.brand,
		})
	}
	return out
}

func seed(marketplaceID, text string, index int) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(marketplaceID))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(text))
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(index))
	_, _ = h.Write(buf[:])
	return h.Sum64()
}
