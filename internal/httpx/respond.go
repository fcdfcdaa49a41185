package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/ariefcatur/go-storefront/internal/cart"
	"github.com/ariefcatur/go-storefront/internal/catalog"
	"github.com/ariefcatur/go-storefront/internal/checkout"
	"github.com/ariefcatur/go-storefront/internal/orders"
	"github.com/ariefcatur/go-storefront/internal/validate"
	"github.com/go-chi/chi/v5/middleware"
)

var errBadJSON = errors.New("invalid json")

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadJSON),
		errors.Is(err, validate.ErrInvalid),
		errors.Is(err, catalog.ErrInvalidProduct),
		errors.Is(err, orders.ErrInvalidStatus),
		errors.Is(err, checkout.ErrEmptyCart),
		errors.Is(err, checkout.ErrInvalidLine),
		errors.Is(err, cart.ErrInvalidQuantity):
		return http.StatusBadRequest
	case errors.Is(err, catalog.ErrNotFound),
		errors.Is(err, orders.ErrNotFound),
		errors.Is(err, cart.ErrLineNotFound):
		return http.StatusNotFound
	case errors.Is(err, catalog.ErrInsufficientStock),
		errors.Is(err, catalog.ErrDuplicateProduct),
		errors.Is(err, orders.ErrInvalidTransition),
		errors.Is(err, orders.ErrStatusConflict),
		errors.Is(err, checkout.ErrMethodUnavailable),
		errors.Is(err, cart.ErrOutOfStock),
		errors.Is(err, cart.ErrInactive):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps domain errors to HTTP. Internal errors are logged and
// hidden from the client.
func writeError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	code := statusFor(err)
	body := map[string]any{"error": err.Error()}
	if code == http.StatusInternalServerError {
		log.Error("request failed", "request_id", middleware.GetReqID(r.Context()), "path", r.URL.Path, "err", err)
		body["error"] = "internal error"
	}
	var ve *validate.Error
	if errors.As(err, &ve) {
		body["fields"] = ve.Fields
	}
	var se *catalog.ShortageError
	if errors.As(err, &se) {
		body["shortages"] = se.Items
	}
	writeJSON(w, code, body)
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadJSON, err)
	}
	return nil
}

func queryInt(r *http.Request, key string) (int, error) {
	s := r.URL.Query().Get(key)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, validate.Field(key, "must be a whole number")
	}
	return n, nil
}

func queryInt64Ptr(r *http.Request, key string) (*int64, error) {
	s := r.URL.Query().Get(key)
	if s == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return nil, validate.Field(key, "must be a non-negative number")
	}
	return &n, nil
}
