// Package handler exposes the engine state over a small read-only JSON API.
package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/fenro-storefront/internal/account"
	"github.com/xenking/fenro-storefront/internal/catalog"
	"github.com/xenking/fenro-storefront/internal/domain/cart"
	"github.com/xenking/fenro-storefront/internal/domain/checkout"
	"github.com/xenking/fenro-storefront/internal/domain/favorites"
	"github.com/xenking/fenro-storefront/internal/domain/product"
	"github.com/xenking/fenro-storefront/internal/kv"
	"github.com/xenking/fenro-storefront/internal/notify"
)

// Handler serves catalog queries and store snapshots. All endpoints are
// read-only: mutations go through the engine API, not HTTP.
type Handler struct {
	catalog   *catalog.SyncStore
	cart      *cart.Store
	favorites *favorites.Store
	checkout  *checkout.Service
	account   *account.Store
	notify    *notify.Store
}

func New(cat *catalog.SyncStore, c *cart.Store, f *favorites.Store, co *checkout.Service, a *account.Store, n *notify.Store) *Handler {
	return &Handler{
		catalog:   cat,
		cart:      c,
		favorites: f,
		checkout:  co,
		account:   a,
		notify:    n,
	}
}

// Routes registers all endpoints on mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/products", h.listProducts)
	mux.HandleFunc("GET /api/products/{id}", h.getProduct)
	mux.HandleFunc("GET /api/cart", h.getCart)
	mux.HandleFunc("GET /api/favorites", h.getFavorites)
	mux.HandleFunc("GET /api/order", h.getLastOrder)
	mux.HandleFunc("GET /api/account", h.getAccount)
	mux.HandleFunc("GET /api/products/{id}/notifications", h.getNotifications)
	mux.HandleFunc("GET /api/sync", h.getSyncStatus)
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	q, err := queryFromRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result := catalog.Execute(h.catalog.Products(), q)
	writeJSON(r, w, http.StatusOK, productsResponse{
		Items:      result.Items,
		Total:      result.Total,
		Page:       result.Page,
		PageSize:   result.PageSize,
		TotalPages: result.TotalPages,
	})
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	for _, p := range h.catalog.Products() {
		if string(p.ID) == id {
			writeJSON(r, w, http.StatusOK, p)
			return
		}
	}
	writeError(w, http.StatusNotFound, "product not found")
}

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	writeJSON(r, w, http.StatusOK, cartResponse{
		Items:     h.cart.Lines(),
		ItemCount: h.cart.ItemCount(),
		Total:     h.cart.Total(),
	})
}

func (h *Handler) getFavorites(w http.ResponseWriter, r *http.Request) {
	writeJSON(r, w, http.StatusOK, map[string]any{
		"items": h.favorites.Entries(),
	})
}

func (h *Handler) getLastOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.checkout.LastOrder(r.Context())
	if errors.Is(err, kv.ErrNotFound) {
		writeError(w, http.StatusNotFound, "no order placed")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "load last order")
		return
	}
	writeJSON(r, w, http.StatusOK, order)
}

func (h *Handler) getAccount(w http.ResponseWriter, r *http.Request) {
	resp := accountResponse{
		Authenticated:     h.account.IsAuthenticated(),
		HasSeenNewsletter: h.account.HasSeenNewsletter(r.Context()),
	}
	if u := h.account.User(); u != nil {
		resp.Email = u.Email
		resp.Name = u.Name
	}
	writeJSON(r, w, http.StatusOK, resp)
}

func (h *Handler) getNotifications(w http.ResponseWriter, r *http.Request) {
	id := product.ParseID(r.PathValue("id"))
	writeJSON(r, w, http.StatusOK, map[string]any{
		"productId": id,
		"types":     h.notify.Types(id),
	})
}

func (h *Handler) getSyncStatus(w http.ResponseWriter, r *http.Request) {
	status := syncStatusResponse{
		Ready:    h.catalog.Ready(),
		Products: len(h.catalog.Products()),
	}
	if t := h.catalog.LastSync(); !t.IsZero() {
		status.LastSync = t.UTC().Format(time.RFC3339)
	}
	if err := h.catalog.Err(); err != nil {
		status.Error = err.Error()
	}
	writeJSON(r, w, http.StatusOK, status)
}

type productsResponse struct {
	Items      []product.Product `json:"items"`
	Total      int               `json:"total"`
	Page       int               `json:"page"`
	PageSize   int               `json:"pageSize"`
	TotalPages int               `json:"totalPages"`
}

type cartResponse struct {
	Items     []cart.Line     `json:"items"`
	ItemCount int             `json:"itemCount"`
	Total     decimal.Decimal `json:"total"`
}

type accountResponse struct {
	Authenticated     bool   `json:"authenticated"`
	Email             string `json:"email,omitempty"`
	Name              string `json:"name,omitempty"`
	HasSeenNewsletter bool   `json:"hasSeenNewsletter"`
}

type syncStatusResponse struct {
	Ready    bool   `json:"ready"`
	Products int    `json:"products"`
	LastSync string `json:"lastSync,omitempty"`
	Error    string `json:"error,omitempty"`
}

// queryFromRequest maps URL parameters onto a catalog query.
func queryFromRequest(r *http.Request) (catalog.Query, error) {
	params := r.URL.Query()
	q := catalog.Query{
		Search:     params.Get("q"),
		Categories: params["category"],
		Gender:     params.Get("gender"),
		Collection: params.Get("collection"),
		Sort:       catalog.Sort(params.Get("sort")),
	}

	var err error
	if q.PriceMin, err = parseDecimal(params.Get("price_min")); err != nil {
		return q, errors.Wrap(err, "price_min")
	}
	if q.PriceMax, err = parseDecimal(params.Get("price_max")); err != nil {
		return q, errors.Wrap(err, "price_max")
	}
	if v := params.Get("min_rating"); v != "" {
		if q.MinRating, err = strconv.ParseFloat(v, 64); err != nil {
			return q, errors.Wrap(err, "min_rating")
		}
	}
	if v := params.Get("in_stock"); v != "" {
		if q.InStockOnly, err = strconv.ParseBool(v); err != nil {
			return q, errors.Wrap(err, "in_stock")
		}
	}
	if q.Page, err = parseInt(params.Get("page")); err != nil {
		return q, errors.Wrap(err, "page")
	}
	if q.PageSize, err = parseInt(params.Get("page_size")); err != nil {
		return q, errors.Wrap(err, "page_size")
	}
	return q, nil
}

func parseDecimal(v string) (*decimal.Decimal, error) {
	if v == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func parseInt(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}

func writeJSON(r *http.Request, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zctx.From(r.Context()).Warn("encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
