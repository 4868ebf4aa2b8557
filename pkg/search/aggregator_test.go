package search_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"stylegenie/pkg/marketplace"
	"stylegenie/pkg/metrics"
	"stylegenie/pkg/models"
	"stylegenie/pkg/search"
)

type providerFunc func(ctx context.Context, q search.Query, marketplaceID string, limit int) ([]models.Product, error)

func (f providerFunc) Search(ctx context.Context, q search.Query, marketplaceID string, limit int) ([]models.Product, error) {
	return f(ctx, q, marketplaceID, limit)
}

type staticClassifier struct {
	attrs *search.Attributes
	err   error
}

func (c staticClassifier) Classify(context.Context, string, string) (*search.Attributes, error) {
	return c.attrs, c.err
}

func sim(v float64) *float64 { return &v }

func product(id string, s float64) models.Product {
	return models.Product{ID: id, Name: id, Price: 1000, Images: []string{"img"}, URL: "u", Similarity: sim(s)}
}

func mp(id string) models.Marketplace {
	return models.Marketplace{ID: id, Name: "Name " + id, BaseURL: "https://" + id + ".example", Enabled: true}
}

func TestAggregate_RanksBySimilarity(t *testing.T) {
	scores := map[string]float64{"a": 0.5, "b": 0.9, "c": 0.7}
	provider := providerFunc(func(_ context.Context, _ search.Query, id string, _ int) ([]models.Product, error) {
		return []models.Product{product(id+"-1", scores[id])}, nil
	})
	agg := search.NewAggregator(nil, provider, search.Options{})

	res, err := agg.Aggregate(context.Background(), search.Query{Text: "платье"}, []models.Marketplace{mp("a"), mp("b"), mp("c")})
	require.NoError(t, err)
	require.Len(t, res.Products, 3)
	require.Equal(t, "Name b", res.Products[0].Marketplace)
	require.Equal(t, "Name c", res.Products[1].Marketplace)
	require.Equal(t, "Name a", res.Products[2].Marketplace)
	require.Equal(t, 3, res.Total)
	require.Zero(t, res.Fallbacks)
	require.Equal(t, "Найдено 3 товаров на 3 маркетплейсах. Посмотри, есть ли то, что искал.", res.Summary())
}

func TestAggregate_FailureBecomesFallback(t *testing.T) {
	reg := metrics.NewRegistry()
	provider := providerFunc(func(_ context.Context, _ search.Query, id string, _ int) ([]models.Product, error) {
		if id == "b" {
			return nil, errors.New("timeout")
		}
		return []models.Product{product(id+"-x", 0.1)}, nil
	})
	agg := search.NewAggregator(nil, provider, search.Options{DisplayBudget: 10, Metrics: reg})

	res, err := agg.Aggregate(context.Background(), search.Query{Text: "платье"}, []models.Marketplace{mp("a"), mp("b")})
	require.NoError(t, err)
	require.Equal(t, 1, res.Fallbacks)
	require.Len(t, res.Products, 4)

	fromB := 0
	for _, p := range res.Products {
		if p.Marketplace == "Name b" {
			fromB++
		}
	}
	require.Equal(t, 3, fromB)
	require.Equal(t, int64(1), reg.Value("marketplace_search_total", map[string]string{"marketplace": "b", "outcome": "fallback"}))
	require.Equal(t, int64(1), reg.Value("marketplace_search_total", map[string]string{"marketplace": "a", "outcome": "ok"}))
}

func TestAggregate_PanicBecomesFallback(t *testing.T) {
	provider := providerFunc(func(context.Context, search.Query, string, int) ([]models.Product, error) {
		panic("broken parser")
	})
	agg := search.NewAggregator(nil, provider, search.Options{})

	res, err := agg.Aggregate(context.Background(), search.Query{}, []models.Marketplace{mp("a")})
	require.NoError(t, err)
	require.Equal(t, 1, res.Fallbacks)
	require.Len(t, res.Products, 3)
}

func TestAggregate_TruncatesToDisplayBudget(t *testing.T) {
	provider := providerFunc(func(_ context.Context, _ search.Query, id string, _ int) ([]models.Product, error) {
		return []models.Product{product(id+"-1", 0.3), product(id+"-2", 0.2), product(id+"-3", 0.1)}, nil
	})
	agg := search.NewAggregator(nil, provider, search.Options{})
	list := []models.Marketplace{mp("a"), mp("b"), mp("c"), mp("d")}

	res, err := agg.Aggregate(context.Background(), search.Query{Text: "платье"}, list)
	require.NoError(t, err)
	require.Len(t, res.Products, search.DefaultDisplayBudget)
	require.Equal(t, 12, res.Total)
	for i := 1; i < len(res.Products); i++ {
		require.GreaterOrEqual(t, res.Products[i-1].Score(), res.Products[i].Score())
	}
	// equal scores keep marketplace order
	require.Equal(t, []string{"a-1", "b-1", "c-1", "d-1", "a-2", "b-2"}, ids(res.Products))
}

func TestAggregate_PerMarketplaceLimit(t *testing.T) {
	var gotLimit int
	provider := providerFunc(func(_ context.Context, _ search.Query, id string, limit int) ([]models.Product, error) {
		gotLimit = limit
		out := make([]models.Product, 0, 5)
		for i := range 5 {
			out = append(out, product(fmt.Sprintf("%s-%d", id, i), 0.5))
		}
		return out, nil
	})
	agg := search.NewAggregator(nil, provider, search.Options{PerMarketplace: 2, DisplayBudget: 100})

	res, err := agg.Aggregate(context.Background(), search.Query{}, []models.Marketplace{mp("a")})
	require.NoError(t, err)
	require.Equal(t, 2, gotLimit)
	require.Len(t, res.Products, 2)
}

func TestAggregate_DuplicateIDsAreRenamed(t *testing.T) {
	provider := providerFunc(func(context.Context, search.Query, string, int) ([]models.Product, error) {
		return []models.Product{product("same", 0.5)}, nil
	})
	agg := search.NewAggregator(nil, provider, search.Options{})

	res, err := agg.Aggregate(context.Background(), search.Query{}, []models.Marketplace{mp("a"), mp("b")})
	require.NoError(t, err)
	require.Equal(t, []string{"same", "same~2"}, ids(res.Products))
}

func TestAggregate_NoMarketplaces(t *testing.T) {
	agg := search.NewAggregator(nil, providerFunc(func(context.Context, search.Query, string, int) ([]models.Product, error) {
		t.Fatal("provider must not be called")
		return nil, nil
	}), search.Options{})

	_, err := agg.Aggregate(context.Background(), search.Query{Text: "платье"}, nil)
	var aggErr *search.AggregationError
	require.ErrorAs(t, err, &aggErr)
	require.ErrorIs(t, err, search.ErrNoMarketplaces)
}

func TestAggregate_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	provider := providerFunc(func(ctx context.Context, _ search.Query, _ string, _ int) ([]models.Product, error) {
		cancel()
		return nil, ctx.Err()
	})
	agg := search.NewAggregator(nil, provider, search.Options{})

	_, err := agg.Aggregate(ctx, search.Query{}, []models.Marketplace{mp("a")})
	var aggErr *search.AggregationError
	require.ErrorAs(t, err, &aggErr)
	require.ErrorIs(t, err, context.Canceled)
}

func TestAggregate_ClassifierAttributesReachProvider(t *testing.T) {
	attrs := &search.Attributes{Category: "dress", Colors: []string{"red"}}
	var seen *search.Attributes
	provider := providerFunc(func(_ context.Context, q search.Query, id string, _ int) ([]models.Product, error) {
		seen = q.Attributes
		return []models.Product{product(id, 0.5)}, nil
	})
	agg := search.NewAggregator(nil, provider, search.Options{Classifier: staticClassifier{attrs: attrs}})

	_, err := agg.Aggregate(context.Background(), search.Query{Text: "красное платье"}, []models.Marketplace{mp("a")})
	require.NoError(t, err)
	require.Equal(t, attrs, seen)
}

func TestAggregate_ClassifierFailureIsIgnored(t *testing.T) {
	seen := &search.Attributes{}
	provider := providerFunc(func(_ context.Context, q search.Query, id string, _ int) ([]models.Product, error) {
		seen = q.Attributes
		return []models.Product{product(id, 0.5)}, nil
	})
	agg := search.NewAggregator(nil, provider, search.Options{Classifier: staticClassifier{err: errors.New("quota")}})

	res, err := agg.Aggregate(context.Background(), search.Query{Text: "платье"}, []models.Marketplace{mp("a")})
	require.NoError(t, err)
	require.Zero(t, res.Fallbacks)
	require.Nil(t, seen)
}

func TestSearch_UsesOnlyEnabledMarketplaces(t *testing.T) {
	reg := marketplace.NewDefaultRegistry()
	require.NoError(t, reg.SetEnabled(context.Background(), "tsum", false))

	var called []string
	provider := providerFunc(func(_ context.Context, _ search.Query, id string, _ int) ([]models.Product, error) {
		return []models.Product{product(id, 0.5)}, nil
	})
	agg := search.NewAggregator(reg, provider, search.Options{DisplayBudget: 10})

	res, err := agg.Search(context.Background(), search.Query{Text: "платье"})
	require.NoError(t, err)
	for _, m := range res.Marketplaces {
		called = append(called, m.ID)
	}
	require.Equal(t, []string{"lamoda", "wildberries", "ozon"}, called)
}

func TestResult_Groups(t *testing.T) {
	res := search.Result{Products: []models.Product{
		{ID: "1", Marketplace: "Ozon"},
		{ID: "2", Marketplace: "Lamoda"},
		{ID: "3", Marketplace: "Ozon"},
		{ID: "4"},
	}}
	groups := res.Groups()
	require.Len(t, groups, 3)
	require.Equal(t, "Ozon", groups[0].Marketplace)
	require.Equal(t, []string{"1", "3"}, ids(groups[0].Products))
	require.Equal(t, "Lamoda", groups[1].Marketplace)
	require.Equal(t, "Другие", groups[2].Marketplace)
}

func ids(products []models.Product) []string {
	out := make([]string, 0, len(products))
	for _, p := range products {
		out = append(out, p.ID)
	}
	return out
}

type blockingClassifier struct{}

func (blockingClassifier) Classify(ctx context.Context, _, _ string) (*search.Attributes, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestAggregate_ClassifierIsBoundedByTimeout(t *testing.T) {
	provider := providerFunc(func(_ context.Context, q search.Query, id string, _ int) ([]models.Product, error) {
		return []models.Product{product(id, 0.5)}, nil
	})
	agg := search.NewAggregator(nil, provider, search.Options{
		Classifier:      blockingClassifier{},
		ClassifyTimeout: 20 * time.Millisecond,
	})

	// the caller context never ends, as in a session search
	ctx := context.WithoutCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := agg.Aggregate(ctx, search.Query{Text: "платье"}, []models.Marketplace{mp("a")})
		done <- err
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("aggregate did not return after the classifier timeout")
	}
}
