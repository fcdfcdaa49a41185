package httpx

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/ariefcatur/go-storefront/internal/cart"
	"github.com/ariefcatur/go-storefront/internal/orders"
	"github.com/go-chi/chi/v5"
)

type OrdersHandler struct {
	Service *orders.Service
	Carts   cart.Store
	Log     *slog.Logger
}

type transitionReq struct {
	Status orders.Status `json:"status"`
}

type paymentReq struct {
	PaymentStatus orders.PaymentStatus `json:"payment_status"`
	Reference     string               `json:"reference"`
}

func (h *OrdersHandler) Register(r chi.Router) {
	r.Post("/api/orders", h.createOrder)
	r.Get("/api/orders/{id}", h.getOrder)
	r.Get("/api/orders/{id}/status", h.getStatus)
	r.Get("/api/users/{userID}/orders", h.userOrders)

	r.Get("/api/admin/orders", h.listOrders)
	r.Put("/api/admin/orders/{id}/status", h.setStatus)
	r.Post("/api/admin/orders/{id}/advance", h.advance)
	r.Post("/api/admin/orders/{id}/cancel", h.cancel)
	r.Put("/api/admin/orders/{id}/payment-status", h.setPayment)
	r.Get("/api/admin/stats", h.stats)
}

func (h *OrdersHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req orders.CheckoutRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	req.IdempotencyKey = r.Header.Get("Idempotency-Key")

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	c, err := h.Carts.Load(ctx, req.UserID)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	o, replay, err := h.Service.Checkout(ctx, req, c)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	code := http.StatusCreated
	if replay {
		code = http.StatusOK
	}
	writeJSON(w, code, o)
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	o, err := h.Service.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// getStatus: 1) coba cache, 2) fallback DB. The service does both.
func (h *OrdersHandler) getStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	e, err := h.Service.Status(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (h *OrdersHandler) userOrders(w http.ResponseWriter, r *http.Request) {
	list, err := h.Service.ListForUser(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *OrdersHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := orders.ListFilter{
		Status:        orders.Status(q.Get("status")),
		PaymentMethod: q.Get("payment_method"),
		PaymentStatus: orders.PaymentStatus(q.Get("payment_status")),
	}
	var err error
	if f.Limit, err = queryInt(r, "limit"); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	if f.Offset, err = queryInt(r, "offset"); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	list, err := h.Service.ListAll(r.Context(), f)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *OrdersHandler) respondOrder(w http.ResponseWriter, r *http.Request, o *orders.Order, err error) {
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) setStatus(w http.ResponseWriter, r *http.Request) {
	var req transitionReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	o, err := h.Service.Transition(r.Context(), chi.URLParam(r, "id"), req.Status)
	h.respondOrder(w, r, o, err)
}

func (h *OrdersHandler) advance(w http.ResponseWriter, r *http.Request) {
	o, err := h.Service.Advance(r.Context(), chi.URLParam(r, "id"))
	h.respondOrder(w, r, o, err)
}

func (h *OrdersHandler) cancel(w http.ResponseWriter, r *http.Request) {
	o, err := h.Service.Cancel(r.Context(), chi.URLParam(r, "id"))
	h.respondOrder(w, r, o, err)
}

func (h *OrdersHandler) setPayment(w http.ResponseWriter, r *http.Request) {
	var req paymentReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	o, err := h.Service.SetPaymentStatus(r.Context(), chi.URLParam(r, "id"), req.PaymentStatus, req.Reference)
	h.respondOrder(w, r, o, err)
}

func (h *OrdersHandler) stats(w http.ResponseWriter, r *http.Request) {
	s, err := h.Service.Stats(r.Context())
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}
