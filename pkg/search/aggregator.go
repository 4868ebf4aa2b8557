package search

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"stylegenie/pkg/marketplace"
	"stylegenie/pkg/metrics"
	"stylegenie/pkg/models"
)

const (
	DefaultPerMarketplace  = 10
	DefaultDisplayBudget   = 6
	DefaultClassifyTimeout = 10 * time.Second
)

// ErrNoMarketplaces is returned when there is nothing enabled to search.
var ErrNoMarketplaces = errors.New("no marketplaces enabled")

// AggregationError is a search that produced nothing at all.
type AggregationError struct {
	Err error
}

func (e *AggregationError) Error() string {
	return "aggregate search: " + e.Err.Error()
}

func (e *AggregationError) Unwrap() error {
	return e.Err
}

// Result is the merged, ranked and truncated output of one search.
type Result struct {
	Products     []models.Product     `json:"products"`
	Total        int                  `json:"total"`
	Marketplaces []models.Marketplace `json:"marketplaces"`
	Fallbacks    int                  `json:"fallbacks"`
}

// Groups returns the products grouped by marketplace for display.
func (r Result) Groups() []models.ProductGroup {
	return models.GroupByMarketplace(r.Products)
}

// Summary is the human readable headline of the result.
func (r Result) Summary() string {
	return fmt.Sprintf("Найдено %d товаров на %d маркетплейсах. Посмотри, есть ли то, что искал.",
		r.Total, len(r.Marketplaces))
}

// Options tunes an Aggregator.
type Options struct {
	PerMarketplace  int
	DisplayBudget   int
	Classifier      Classifier
	// ClassifyTimeout bounds the classifier call made before the fan-out.
	ClassifyTimeout time.Duration
	Metrics         *metrics.Registry
}

// Aggregator fans a query out to every enabled marketplace and merges the answers.
type Aggregator struct {
	source     marketplace.Lister
	provider   Provider
	classifier Classifier
	reg        *metrics.Registry
	perMarket  int
	budget     int
	classifyTO time.Duration
}

func NewAggregator(source marketplace.Lister, provider Provider, opts Options) *Aggregator {
	if opts.PerMarketplace <= 0 {
		opts.PerMarketplace = DefaultPerMarketplace
	}
	if opts.DisplayBudget <= 0 {
		opts.DisplayBudget = DefaultDisplayBudget
	}
	if opts.ClassifyTimeout <= 0 {
		opts.ClassifyTimeout = DefaultClassifyTimeout
	}
	return &Aggregator{
		source:     source,
		provider:   provider,
		classifier: opts.Classifier,
		reg:        opts.Metrics,
		perMarket:  opts.PerMarketplace,
		budget:     opts.DisplayBudget,
		classifyTO: opts.ClassifyTimeout,
	}
}

// Search snapshots the enabled marketplaces and runs Aggregate over them.
func (a *Aggregator) Search(ctx context.Context, q Query) (Result, error) {
	list, err := a.source.Marketplaces(ctx)
	if err != nil {
		return Result{}, &AggregationError{Err: err}
	}
	return a.Aggregate(ctx, q, models.FilterEnabled(list))
}

// Aggregate queries every marketplace concurrently. A marketplace that fails is
// replaced by fallback products; only an empty marketplace set or a cancelled
// context fail the whole call.
func (a *Aggregator) Aggregate(ctx context.Context, q Query, marketplaces []models.Marketplace) (Result, error) {
	logger := log.Ctx(ctx)
	if len(marketplaces) == 0 {
		a.count(ctx, "searches_total", map[string]string{"outcome": "no_marketplaces"})
		return Result{}, &AggregationError{Err: ErrNoMarketplaces}
	}

	if q.Attributes == nil && a.classifier != nil {
		q.Attributes = a.classify(ctx, q)
	}

	batches := make([][]models.Product, len(marketplaces))
	fallback := make([]bool, len(marketplaces))

	var g errgroup.Group
	for i := range marketplaces {
		m := marketplaces[i]
		g.Go(func() error {
			batches[i], fallback[i] = a.searchOne(ctx, q, m)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		a.count(ctx, "searches_total", map[string]string{"outcome": "cancelled"})
		return Result{}, &AggregationError{Err: err}
	}

	var merged []models.Product
	fallbacks := 0
	for i := range batches {
		merged = append(merged, batches[i]...)
		if fallback[i] {
			fallbacks++
		}
	}
	merged = uniqueIDs(merged)

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Score() > merged[j].Score()
	})

	total := len(merged)
	if len(merged) > a.budget {
		merged = merged[:a.budget]
	}

	snapshot := make([]models.Marketplace, len(marketplaces))
	copy(snapshot, marketplaces)

	a.count(ctx, "searches_total", map[string]string{"outcome": "ok"})
	logger.Info().
		Int("marketplaces", len(marketplaces)).
		Int("found", total).
		Int("fallbacks", fallbacks).
		Msg("search aggregated")

	return Result{
		Products:     merged,
		Total:        total,
		Marketplaces: snapshot,
		Fallbacks:    fallbacks,
	}, nil
}

// searchOne never fails: errors turn into fallback products.
func (a *Aggregator) searchOne(ctx context.Context, q Query, m models.Marketplace) ([]models.Product, bool) {
	products, err := a.callProvider(ctx, q, m)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("marketplace_id", m.ID).Msg("marketplace search failed, using fallback")
		a.count(ctx, "marketplace_search_total", map[string]string{"marketplace": m.ID, "outcome": "fallback"})
		return FallbackProducts(m, q), true
	}
	a.count(ctx, "marketplace_search_total", map[string]string{"marketplace": m.ID, "outcome": "ok"})

	if len(products) > a.perMarket {
		products = products[:a.perMarket]
	}
	out := make([]models.Product, len(products))
	for i := range products {
		out[i] = products[i]
		out[i].Marketplace = m.Name
	}
	return out, false
}

func (a *Aggregator) callProvider(ctx context.Context, q Query, m models.Marketplace) (products []models.Product, err error) {
	if a.provider == nil {
		return nil, &Error{Marketplace: m.ID, Err: errors.New("no provider configured")}
	}
	defer func() {
		if r := recover(); r != nil {
			err = &Error{Marketplace: m.ID, Err: fmt.Errorf("provider panic: %v", r)}
		}
	}()
	products, err = a.provider.Search(ctx, q, m.ID, a.perMarket)
	if err != nil {
		var serr *Error
		if !errors.As(err, &serr) {
			err = &Error{Marketplace: m.ID, Err: err}
		}
		return nil, err
	}
	return products, nil
}

// classify asks the classifier for attributes within classifyTO. Failures and
// timeouts leave the query unclassified.
func (a *Aggregator) classify(ctx context.Context, q Query) *Attributes {
	ctx, cancel := context.WithTimeout(ctx, a.classifyTO)
	defer cancel()

	attrs, err := a.classifier.Classify(ctx, q.Text, q.ImageRef)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("query classification failed")
		return nil
	}
	return attrs
}

func (a *Aggregator) count(ctx context.Context, name string, labels map[string]string) {
	if a.reg != nil {
		a.reg.Inc(ctx, name, labels, 1)
	}
}

// uniqueIDs renames products whose id was already used by an earlier product.
func uniqueIDs(products []models.Product) []models.Product {
	seen := make(map[string]struct{}, len(products))
	for i := range products {
		id := products[i].ID
		for n := 2; ; n++ {
			if _, dup := seen[id]; !dup {
				break
			}
			id = fmt.Sprintf("%s~%d", products[i].ID, n)
		}
		products[i].ID = id
		seen[id] = struct{}{}
	}
	return products
}
