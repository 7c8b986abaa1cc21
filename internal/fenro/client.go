// Package fenro is the HTTP client for the remote Fenro catalog service.
// The service is consumed as an opaque collaborator: products, categories,
// collections, and size guides for a single shop.
package fenro

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/xenking/fenro-storefront/internal/domain/product"
)

// ErrNotConfigured is returned when the catalog base URL or shop ID is
// missing. This is a configuration error: fatal, never retried.
var ErrNotConfigured = errors.New("fenro: API URL or shop ID missing")

// StatusError is returned for non-2xx catalog responses.
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fenro: API error: %d %s", e.Code, e.Status)
}

// Status filters product listings by lifecycle state.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusAll      Status = "all"
)

// ProductQuery scopes a product listing request.
type ProductQuery struct {
	Status     Status
	Limit      int
	Offset     int
	Collection string
	Category   string
	// UpdatedSince requests only records changed after the given sync
	// cursor. Empty means a full fetch.
	UpdatedSince string
}

// Meta is the paging envelope returned with every product listing. Timestamp
// is the opaque sync cursor for the next incremental request.
type Meta struct {
	Total     int    `json:"total"`
	Limit     int    `json:"limit"`
	Offset    int    `json:"offset"`
	Timestamp string `json:"timestamp"`
}

// ProductsPage is one page of catalog products.
type ProductsPage struct {
	Products []product.Product `json:"products"`
	Meta     Meta              `json:"meta"`
}

// Category is a catalog category with its product count.
type Category struct {
	Name         string `json:"name"`
	ProductCount int    `json:"product_count"`
}

// Collection is a curated product grouping.
type Collection struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Description     string `json:"description"`
	DescriptionHTML string `json:"description_html"`
	ImageURL        string `json:"image_url"`
	ProductCount    int    `json:"product_count"`
}

// Cell is one cell of a size guide table.
type Cell struct {
	Value string `json:"value"`
	Bold  bool   `json:"bold"`
}

// SizeGuide is a measurement table attached to products.
type SizeGuide struct {
	ID   string   `json:"id"`
	Name string   `json:"name"`
	Unit string   `json:"unit"`
	Rows [][]Cell `json:"rows"`
}

// Client talks to the Fenro API for one shop.
type Client struct {
	baseURL string
	shopID  string
	http    *http.Client
}

// NewClient validates the configuration and returns a Client. The transport
// is instrumented with otelhttp.
func NewClient(baseURL, shopID string) (*Client, error) {
	if baseURL == "" || shopID == "" {
		return nil, ErrNotConfigured
	}
	return &Client{
		baseURL: baseURL,
		shopID:  shopID,
		http: &http.Client{
			Timeout:   30 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}, nil
}

// ListProducts fetches one page of products for the shop.
func (c *Client) ListProducts(ctx context.Context, q ProductQuery) (*ProductsPage, error) {
	status := q.Status
	if status == "" {
		status = StatusActive
	}

	params := url.Values{}
	params.Set("status", string(status))
	params.Set("limit", strconv.Itoa(q.Limit))
	params.Set("offset", strconv.Itoa(q.Offset))
	if q.Collection != "" {
		params.Set("collection", q.Collection)
	}
	if q.Category != "" {
		params.Set("category", q.Category)
	}
	if q.UpdatedSince != "" {
		params.Set("updated_since", q.UpdatedSince)
	}

	var page ProductsPage
	if err := c.get(ctx, "products", params, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Categories fetches the shop's categories.
func (c *Client) Categories(ctx context.Context) ([]Category, error) {
	var out struct {
		Categories []Category `json:"categories"`
	}
	if err := c.get(ctx, "categories", nil, &out); err != nil {
		return nil, err
	}
	return out.Categories, nil
}

// Collections fetches the shop's collections.
func (c *Client) Collections(ctx context.Context, includeProducts bool) ([]Collection, error) {
	params := url.Values{}
	params.Set("include_products", strconv.FormatBool(includeProducts))

	var out struct {
		Collections []Collection `json:"collections"`
	}
	if err := c.get(ctx, "collections", params, &out); err != nil {
		return nil, err
	}
	return out.Collections, nil
}

// SizeGuide fetches one size guide by ID.
func (c *Client) SizeGuide(ctx context.Context, id string) (*SizeGuide, error) {
	params := url.Values{}
	params.Set("id", id)

	var out struct {
		SizeGuide *SizeGuide `json:"size_guide"`
	}
	if err := c.get(ctx, "size-guides", params, &out); err != nil {
		return nil, err
	}
	if out.SizeGuide == nil {
		return nil, errors.Errorf("size guide %q not found", id)
	}
	return out.SizeGuide, nil
}

func (c *Client) get(ctx context.Context, resource string, params url.Values, out any) error {
	u := fmt.Sprintf("%s/api/shop/%s/%s", c.baseURL, url.PathEscape(c.shopID), resource)
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return errors.Wrap(err, "build request")
	}

	res, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "get %s", resource)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return &StatusError{Code: res.StatusCode, Status: res.Status}
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "decode %s response", resource)
	}
	return nil
}
