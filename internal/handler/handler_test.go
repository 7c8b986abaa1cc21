package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/fenro-storefront/internal/account"
	"github.com/xenking/fenro-storefront/internal/catalog"
	"github.com/xenking/fenro-storefront/internal/domain/cart"
	"github.com/xenking/fenro-storefront/internal/domain/checkout"
	"github.com/xenking/fenro-storefront/internal/domain/favorites"
	"github.com/xenking/fenro-storefront/internal/domain/product"
	"github.com/xenking/fenro-storefront/internal/fenro"
	"github.com/xenking/fenro-storefront/internal/kv"
	"github.com/xenking/fenro-storefront/internal/notify"
)

type staticFetcher struct {
	page fenro.ProductsPage
}

func (f *staticFetcher) ListProducts(context.Context, fenro.ProductQuery) (*fenro.ProductsPage, error) {
	page := f.page
	return &page, nil
}

func testServer(t *testing.T) (*httptest.Server, *cart.Store) {
	t.Helper()

	ctx := context.Background()
	store := kv.NewMemory()

	cat := catalog.NewSyncStore(&staticFetcher{page: fenro.ProductsPage{
		Products: []product.Product{
			{ID: "1", Name: "Wool Sweater", Price: decimal.NewFromInt(699), Category: "Knitwear", Stock: 3, Active: true},
			{ID: "2", Name: "Linen Shirt", Price: decimal.NewFromInt(499), Category: "Shirts", Stock: 0, Active: true},
		},
		Meta: fenro.Meta{Total: 2, Timestamp: "2026-01-10T12:00:00Z"},
	}}, catalog.Scope{})
	require.NoError(t, cat.Initialize(ctx))

	c := cart.New(ctx, store)
	f := favorites.New(ctx, store)
	co := checkout.NewService(store)
	a := account.New(ctx, store)
	n := notify.New(ctx, store)

	mux := http.NewServeMux()
	New(cat, c, f, co, a, n).Routes(mux)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, c
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()

	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	return resp.StatusCode
}

func TestListProducts(t *testing.T) {
	srv, _ := testServer(t)

	var body struct {
		Items []product.Product `json:"items"`
		Total int               `json:"total"`
	}
	code := getJSON(t, srv.URL+"/api/products", &body)

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, 2, body.Total)
	require.Len(t, body.Items, 2)
}

func TestListProductsFiltered(t *testing.T) {
	srv, _ := testServer(t)

	var body struct {
		Items []product.Product `json:"items"`
		Total int               `json:"total"`
	}
	code := getJSON(t, srv.URL+"/api/products?category=Knitwear&in_stock=true", &body)

	assert.Equal(t, http.StatusOK, code)
	require.Len(t, body.Items, 1)
	assert.Equal(t, "Wool Sweater", body.Items[0].Name)
}

func TestListProductsBadParam(t *testing.T) {
	srv, _ := testServer(t)

	var body map[string]string
	code := getJSON(t, srv.URL+"/api/products?price_min=abc", &body)

	assert.Equal(t, http.StatusBadRequest, code)
	assert.NotEmpty(t, body["error"])
}

func TestGetProduct(t *testing.T) {
	srv, _ := testServer(t)

	var p product.Product
	code := getJSON(t, srv.URL+"/api/products/2", &p)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Linen Shirt", p.Name)

	var body map[string]string
	code = getJSON(t, srv.URL+"/api/products/404", &body)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestGetCart(t *testing.T) {
	srv, c := testServer(t)

	p := product.Product{ID: "1", Name: "Wool Sweater", Price: decimal.NewFromInt(699)}
	require.NoError(t, c.Add(context.Background(), p, "M", "", ""))
	require.NoError(t, c.Add(context.Background(), p, "M", "", ""))

	var body struct {
		Items     []cart.Line `json:"items"`
		ItemCount int         `json:"itemCount"`
		Total     string      `json:"total"`
	}
	code := getJSON(t, srv.URL+"/api/cart", &body)

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, 2, body.ItemCount)
	require.Len(t, body.Items, 1)
	assert.Equal(t, "1398", body.Total)
}

func TestGetLastOrderNotFound(t *testing.T) {
	srv, _ := testServer(t)

	var body map[string]string
	code := getJSON(t, srv.URL+"/api/order", &body)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestGetAccountAnonymous(t *testing.T) {
	srv, _ := testServer(t)

	var body struct {
		Authenticated bool   `json:"authenticated"`
		Email         string `json:"email"`
	}
	code := getJSON(t, srv.URL+"/api/account", &body)

	assert.Equal(t, http.StatusOK, code)
	assert.False(t, body.Authenticated)
	assert.Empty(t, body.Email)
}

func TestGetNotificationsEmpty(t *testing.T) {
	srv, _ := testServer(t)

	var body struct {
		ProductID string   `json:"productId"`
		Types     []string `json:"types"`
	}
	code := getJSON(t, srv.URL+"/api/products/1/notifications", &body)

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "1", body.ProductID)
	assert.Empty(t, body.Types)
}

func TestGetSyncStatus(t *testing.T) {
	srv, _ := testServer(t)

	var body struct {
		Ready    bool   `json:"ready"`
		Products int    `json:"products"`
		LastSync string `json:"lastSync"`
	}
	code := getJSON(t, srv.URL+"/api/sync", &body)

	assert.Equal(t, http.StatusOK, code)
	assert.True(t, body.Ready)
	assert.Equal(t, 2, body.Products)
	assert.NotEmpty(t, body.LastSync)
}
