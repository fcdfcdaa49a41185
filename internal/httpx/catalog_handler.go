package httpx

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ariefcatur/go-storefront/internal/catalog"
	"github.com/ariefcatur/go-storefront/internal/checkout"
	"github.com/ariefcatur/go-storefront/internal/validate"
	"github.com/go-chi/chi/v5"
)

type CatalogHandler struct {
	Products catalog.Repository
	Methods  *checkout.Methods
	Log      *slog.Logger
}

func (h *CatalogHandler) Register(r chi.Router) {
	r.Get("/api/products", h.listProducts)
	r.Get("/api/products/{id}", h.getProduct)
	r.Get("/api/products/category/{category}", h.listByCategory)
	r.Get("/api/search", h.search)
	r.Get("/api/categories", h.categories)
	r.Get("/api/shipping-methods", h.shippingMethods)
	r.Get("/api/payment-methods", h.paymentMethods)

	r.Post("/api/admin/products", h.createProduct)
	r.Put("/api/admin/products/{id}", h.updateProduct)
	r.Delete("/api/admin/products/{id}", h.deleteProduct)
}

func parseFilter(r *http.Request) (catalog.Filter, error) {
	q := r.URL.Query()
	f := catalog.Filter{
		Category: q.Get("category"),
		Search:   q.Get("q"),
	}
	if s := q.Get("sort"); s != "" {
		sort, ok := catalog.ParseSort(s)
		if !ok {
			return f, validate.Field("sort", "must be one of newest, price_low, price_high, name")
		}
		f.Sort = sort
	}
	if s := q.Get("featured"); s != "" {
		b, err := strconv.ParseBool(s)
		if err != nil {
			return f, validate.Field("featured", "must be true or false")
		}
		f.FeaturedOnly = b
	}
	var err error
	if f.MinPrice, err = queryInt64Ptr(r, "min_price"); err != nil {
		return f, err
	}
	if f.MaxPrice, err = queryInt64Ptr(r, "max_price"); err != nil {
		return f, err
	}
	if f.Limit, err = queryInt(r, "limit"); err != nil {
		return f, err
	}
	if f.Offset, err = queryInt(r, "offset"); err != nil {
		return f, err
	}
	return f, nil
}

func (h *CatalogHandler) list(w http.ResponseWriter, r *http.Request, f catalog.Filter) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	ps, err := h.Products.List(ctx, f)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

func (h *CatalogHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	h.list(w, r, f)
}

func (h *CatalogHandler) listByCategory(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	f.Category = chi.URLParam(r, "category")
	h.list(w, r, f)
}

func (h *CatalogHandler) search(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	if strings.TrimSpace(f.Search) == "" {
		writeError(w, r, h.Log, validate.Field("q", "is required"))
		return
	}
	h.list(w, r, f)
}

func (h *CatalogHandler) getProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	p, err := h.Products.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *CatalogHandler) categories(w http.ResponseWriter, r *http.Request) {
	cs, err := h.Products.Categories(r.Context())
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, cs)
}

func (h *CatalogHandler) shippingMethods(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Methods.AvailableShipping(r.URL.Query().Get("payment")))
}

func (h *CatalogHandler) paymentMethods(w http.ResponseWriter, r *http.Request) {
	total, err := queryInt64Ptr(r, "total")
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	var amount int64
	if total != nil {
		amount = *total
	}
	writeJSON(w, http.StatusOK, h.Methods.AvailablePayments(amount))
}

func (h *CatalogHandler) createProduct(w http.ResponseWriter, r *http.Request) {
	var p catalog.Product
	if err := decodeJSON(r, &p); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	if err := h.Products.Create(r.Context(), &p); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *CatalogHandler) updateProduct(w http.ResponseWriter, r *http.Request) {
	var p catalog.Product
	if err := decodeJSON(r, &p); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	p.ID = chi.URLParam(r, "id")
	if err := h.Products.Update(r.Context(), &p); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *CatalogHandler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.Products.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
