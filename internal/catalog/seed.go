package catalog

import (
	"context"
	"errors"
	"fmt"
)

// CategoryWriter is implemented by both repositories.
type CategoryWriter interface {
	CreateCategory(ctx context.Context, c *Category) error
}

func DemoCategories() []Category {
	return []Category{
		{ID: "cat-fashion", Name: "Fashion", Description: "Batik, tenun and everyday wear", SortOrder: 1, IsActive: true},
		{ID: "cat-kitchen", Name: "Kitchen", Description: "Cookware and appliances", SortOrder: 2, IsActive: true},
		{ID: "cat-food", Name: "Food", Description: "Coffee, tea and snacks", SortOrder: 3, IsActive: true},
		{ID: "cat-home", Name: "Home", Description: "Decor and furniture", SortOrder: 4, IsActive: true},
	}
}

func DemoProducts() []Product {
	return []Product{
		{ID: "prd-batik-shirt", Name: "Batik Shirt", Slug: "batik-shirt", Description: "Hand-stamped cotton batik",
			Price: 100000, ComparePrice: 150000, SKU: "FSH-001", WeightGrams: 300, CategoryID: "cat-fashion",
			Category: "Fashion", Stock: 50, IsActive: true, IsFeatured: true},
		{ID: "prd-tenun-scarf", Name: "Tenun Scarf", Slug: "tenun-scarf", Description: "Woven scarf from Sumba",
			Price: 275000, SKU: "FSH-002", WeightGrams: 200, CategoryID: "cat-fashion",
			Category: "Fashion", Stock: 20, IsActive: true},
		{ID: "prd-rice-cooker", Name: "Rice Cooker", Slug: "rice-cooker", Description: "1.8 L digital rice cooker",
			Price: 300000, SKU: "KIT-001", WeightGrams: 2500, CategoryID: "cat-kitchen",
			Category: "Kitchen", Stock: 15, IsActive: true, IsFeatured: true},
		{ID: "prd-wok", Name: "Carbon Steel Wok", Slug: "carbon-steel-wok", Description: "32 cm wajan",
			Price: 185000, SKU: "KIT-002", WeightGrams: 1800, CategoryID: "cat-kitchen",
			Category: "Kitchen", Stock: 30, IsActive: true},
		{ID: "prd-kopi-toraja", Name: "Kopi Toraja 250g", Slug: "kopi-toraja", Description: "Single origin arabica",
			Price: 85000, SKU: "FOD-001", WeightGrams: 250, CategoryID: "cat-food",
			Category: "Food", Stock: 100, IsActive: true, IsFeatured: true},
		{ID: "prd-teh-tubruk", Name: "Teh Tubruk", Slug: "teh-tubruk", Description: "Jasmine tea leaves",
			Price: 25000, SKU: "FOD-002", CategoryID: "cat-food",
			Category: "Food", Stock: 200, IsActive: true},
		{ID: "prd-rattan-lamp", Name: "Rattan Lamp", Slug: "rattan-lamp", Description: "Handwoven pendant lamp",
			Price: 450000, SKU: "HOM-001", WeightGrams: 1200, CategoryID: "cat-home",
			Category: "Home", Stock: 8, IsActive: true},
	}
}

// Seed writes the demo catalog. Products that already exist are left alone,
// so it is safe to run repeatedly.
func Seed(ctx context.Context, repo Repository, cats CategoryWriter) (int, error) {
	for _, c := range DemoCategories() {
		if err := cats.CreateCategory(ctx, &c); err != nil {
			return 0, fmt.Errorf("seed category %s: %w", c.ID, err)
		}
	}
	created := 0
	for _, p := range DemoProducts() {
		_, err := repo.Get(ctx, p.ID)
		if err == nil {
			continue
		}
		if !errors.Is(err, ErrNotFound) {
			return created, err
		}
		if err := repo.Create(ctx, &p); err != nil {
			return created, fmt.Errorf("seed product %s: %w", p.ID, err)
		}
		created++
	}
	return created, nil
}
