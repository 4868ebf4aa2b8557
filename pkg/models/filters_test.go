package models_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"stylegenie/pkg/models"
)

func TestLookupPrice(t *testing.T) {
	o, ok := models.LookupPrice("10 000 – 30 000 ₽")
	require.True(t, ok)
	require.Equal(t, models.PriceMid, o.Value)

	o, ok = models.LookupPrice("premium")
	require.True(t, ok)
	require.Equal(t, int64(50000), o.Min)
	require.Zero(t, o.Max)

	_, ok = models.LookupPrice("дёшево")
	require.False(t, ok)
}

func TestLookupOccasion(t *testing.T) {
	o, ok := models.LookupOccasion("Вечеринка / выход")
	require.True(t, ok)
	require.Equal(t, models.OccasionParty, o.Value)

	_, ok = models.LookupOccasion("party ")
	require.False(t, ok)
}

func TestFilters(t *testing.T) {
	require.True(t, models.Filters{}.IsZero())

	_, ok := models.Filters{}.PriceRange()
	require.False(t, ok)

	r, ok := models.Filters{PriceSegment: models.PriceBudget}.PriceRange()
	require.True(t, ok)
	require.Equal(t, int64(10000), r.Max)
}

func TestFilterEnabled(t *testing.T) {
	list := []models.Marketplace{{ID: "a", Enabled: true}, {ID: "b"}, {ID: "c", Enabled: true}}
	out := models.FilterEnabled(list)
	require.Len(t, out, 2)
	require.Equal(t, "c", out[1].ID)
}
