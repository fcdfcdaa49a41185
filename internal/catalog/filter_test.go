package catalog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func sampleProducts() []Product {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	return []Product{
		{ID: "p1", Name: "Batik Shirt", Description: "hand drawn", Price: 250000, Category: "Fashion", Stock: 4, IsActive: true, IsFeatured: true, CreatedAt: base},
		{ID: "p2", Name: "Rice Cooker", Description: "1.8L", Price: 450000, Category: "Home", Stock: 10, IsActive: true, CreatedAt: base.Add(time.Hour)},
		{ID: "p3", Name: "Arabica Beans", Description: "Gayo batik blend", Price: 120000, Category: "Food", Stock: 0, IsActive: true, CreatedAt: base.Add(2 * time.Hour)},
		{ID: "p4", Name: "Old Lamp", Price: 90000, Category: "Home", Stock: 2, IsActive: false, CreatedAt: base.Add(3 * time.Hour)},
	}
}

func ids(ps []Product) []string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.ID)
	}
	return out
}

func TestFilter_DefaultNewestActiveOnly(t *testing.T) {
	got := Filter{}.Apply(sampleProducts())
	assert.Equal(t, []string{"p3", "p2", "p1"}, ids(got))
}

func TestFilter_Search_NameAndDescription(t *testing.T) {
	got := Filter{Search: "BATIK"}.Apply(sampleProducts())
	assert.ElementsMatch(t, []string{"p1", "p3"}, ids(got))
}

func TestFilter_CategoryAndPriceRange(t *testing.T) {
	min, max := int64(100000), int64(300000)
	got := Filter{MinPrice: &min, MaxPrice: &max}.Apply(sampleProducts())
	assert.ElementsMatch(t, []string{"p1", "p3"}, ids(got))

	got = Filter{Category: "home", IncludeInactive: true}.Apply(sampleProducts())
	assert.Equal(t, []string{"p4", "p2"}, ids(got))
}

func TestFilter_Sorts(t *testing.T) {
	ps := sampleProducts()
	assert.Equal(t, []string{"p3", "p1", "p2"}, ids(Filter{Sort: SortPriceLow}.Apply(ps)))
	assert.Equal(t, []string{"p2", "p1", "p3"}, ids(Filter{Sort: SortPriceHigh}.Apply(ps)))
	assert.Equal(t, []string{"p3", "p1", "p2"}, ids(Filter{Sort: SortName}.Apply(ps)))
}

func TestFilter_FeaturedAndPaging(t *testing.T) {
	ps := sampleProducts()
	assert.Equal(t, []string{"p1"}, ids(Filter{FeaturedOnly: true}.Apply(ps)))
	assert.Equal(t, []string{"p2"}, ids(Filter{Limit: 1, Offset: 1}.Apply(ps)))
	assert.Empty(t, Filter{Offset: 10}.Apply(ps))
}

func TestFilter_ApplyDoesNotModifyInput(t *testing.T) {
	ps := sampleProducts()
	_ = Filter{Sort: SortPriceHigh}.Apply(ps)
	assert.Equal(t, []string{"p1", "p2", "p3", "p4"}, ids(ps))
}

func TestParseSort(t *testing.T) {
	s, ok := ParseSort("created_at")
	assert.True(t, ok)
	assert.Equal(t, SortNewest, s)

	s, ok = ParseSort("price_high")
	assert.True(t, ok)
	assert.Equal(t, SortPriceHigh, s)

	_, ok = ParseSort("random")
	assert.False(t, ok)
}
