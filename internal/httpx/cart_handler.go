package httpx

import (
	"log/slog"
	"net/http"

	"github.com/ariefcatur/go-storefront/internal/cart"
	"github.com/ariefcatur/go-storefront/internal/catalog"
	"github.com/ariefcatur/go-storefront/internal/orders"
	"github.com/ariefcatur/go-storefront/internal/validate"
	"github.com/go-chi/chi/v5"
)

type CartHandler struct {
	Carts    cart.Store
	Products catalog.Repository
	Orders   *orders.Service
	Log      *slog.Logger
}

type cartView struct {
	*cart.Cart
	Subtotal      int64 `json:"subtotal"`
	TotalQuantity int   `json:"total_quantity"`
}

type addItemReq struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"gte=1"`
}

type updateItemReq struct {
	Quantity int `json:"quantity"`
}

type quoteReq struct {
	ShippingMethod string `json:"shipping_method" validate:"required"`
	PaymentMethod  string `json:"payment_method" validate:"required"`
	Discount       int64  `json:"discount" validate:"gte=0"`
}

func (h *CartHandler) Register(r chi.Router) {
	r.Get("/api/cart/{userID}", h.get)
	r.Delete("/api/cart/{userID}", h.clear)
	r.Post("/api/cart/{userID}/items", h.addItem)
	r.Put("/api/cart/{userID}/items/{productID}", h.updateItem)
	r.Delete("/api/cart/{userID}/items/{productID}", h.removeItem)
	r.Post("/api/cart/{userID}/quote", h.quote)
}

func view(c *cart.Cart) cartView {
	return cartView{Cart: c, Subtotal: c.Subtotal(), TotalQuantity: c.TotalQuantity()}
}

// mutate loads the cart, applies fn and saves it back.
func (h *CartHandler) mutate(w http.ResponseWriter, r *http.Request, fn func(c *cart.Cart) error) {
	c, err := h.Carts.Load(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	if err := fn(c); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	if err := h.Carts.Save(r.Context(), c); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, view(c))
}

func (h *CartHandler) get(w http.ResponseWriter, r *http.Request) {
	c, err := h.Carts.Load(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, view(c))
}

func (h *CartHandler) clear(w http.ResponseWriter, r *http.Request) {
	if err := h.Carts.Delete(r.Context(), chi.URLParam(r, "userID")); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, view(cart.New(chi.URLParam(r, "userID"))))
}

func (h *CartHandler) addItem(w http.ResponseWriter, r *http.Request) {
	var req addItemReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	p, err := h.Products.Get(r.Context(), req.ProductID)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	h.mutate(w, r, func(c *cart.Cart) error {
		_, err := c.Add(*p, req.Quantity)
		return err
	})
}

func (h *CartHandler) updateItem(w http.ResponseWriter, r *http.Request) {
	var req updateItemReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	h.mutate(w, r, func(c *cart.Cart) error {
		_, err := c.UpdateQuantity(chi.URLParam(r, "productID"), req.Quantity)
		return err
	})
}

func (h *CartHandler) removeItem(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(c *cart.Cart) error {
		return c.Remove(chi.URLParam(r, "productID"))
	})
}

func (h *CartHandler) quote(w http.ResponseWriter, r *http.Request) {
	var req quoteReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	c, err := h.Carts.Load(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	b, err := h.Orders.Quote(r.Context(), c, req.ShippingMethod, req.PaymentMethod, req.Discount)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}
