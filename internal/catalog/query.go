package catalog

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/xenking/fenro-storefront/internal/domain/product"
)

// DefaultPageSize is used when a query does not set one.
const DefaultPageSize = 12

// Sort enumerates the supported result orderings.
type Sort string

const (
	// SortRelevance keeps the collection order (stable no-op).
	SortRelevance  Sort = "relevance"
	SortPriceAsc   Sort = "price-asc"
	SortPriceDesc  Sort = "price-desc"
	SortRatingDesc Sort = "rating-desc"
	SortNameAsc    Sort = "name-asc"
	SortNameDesc   Sort = "name-desc"
)

// Query describes one view over the product collection. Filters compose by
// logical AND; a zero field means "no constraint".
type Query struct {
	// Search matches case-insensitively against name, description,
	// category, keywords, and manufacturer. Any single hit qualifies.
	Search string
	// Categories passes products whose category is in the set. Empty set
	// means no category filter.
	Categories []string
	// Gender requires an exact match, but a product without a gender
	// classification always passes: unclassified items stay visible.
	Gender string
	// Collection behaves like Gender for the collection scope.
	Collection string
	// PriceMin and PriceMax are inclusive bounds when set.
	PriceMin *decimal.Decimal
	PriceMax *decimal.Decimal
	// MinRating is an inclusive lower bound; unrated products count as 0.
	MinRating float64
	// InStockOnly drops products that cannot be purchased.
	InStockOnly bool

	Sort     Sort
	Page     int
	PageSize int
}

// Result is one page of the filtered and sorted collection.
type Result struct {
	Items      []product.Product
	Total      int
	Page       int
	PageSize   int
	TotalPages int
}

// Execute derives a result page from the collection. It is a pure function:
// the input slice is never mutated and no state is carried between calls.
func Execute(products []product.Product, q Query) Result {
	filtered := make([]product.Product, 0, len(products))
	for _, p := range products {
		if q.matches(p) {
			filtered = append(filtered, p)
		}
	}

	sortProducts(filtered, q.Sort)

	pageSize := q.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	page := q.Page
	if page < 1 {
		page = 1
	}

	total := len(filtered)
	totalPages := (total + pageSize - 1) / pageSize

	start := (page - 1) * pageSize
	end := start + pageSize
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	return Result{
		Items:      filtered[start:end],
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
}

func (q Query) matches(p product.Product) bool {
	if q.Search != "" && !matchesSearch(p, q.Search) {
		return false
	}
	if len(q.Categories) > 0 && !containsFold(q.Categories, p.Category) {
		return false
	}
	if q.Gender != "" && p.Gender != "" && p.Gender != q.Gender {
		return false
	}
	if q.Collection != "" && p.CollectionID != "" && p.CollectionID != q.Collection {
		return false
	}
	if q.PriceMin != nil && p.Price.LessThan(*q.PriceMin) {
		return false
	}
	if q.PriceMax != nil && p.Price.GreaterThan(*q.PriceMax) {
		return false
	}
	if q.MinRating > 0 && p.Rating < q.MinRating {
		return false
	}
	if q.InStockOnly && !p.Available() {
		return false
	}
	return true
}

func matchesSearch(p product.Product, search string) bool {
	needle := strings.ToLower(search)
	for _, hay := range []string{p.Name, p.Description, p.Category, p.Manufacturer} {
		if hay != "" && strings.Contains(strings.ToLower(hay), needle) {
			return true
		}
	}
	for _, kw := range p.Keywords {
		if strings.Contains(strings.ToLower(kw), needle) {
			return true
		}
	}
	return false
}

func containsFold(set []string, v string) bool {
	for _, s := range set {
		if strings.EqualFold(s, v) {
			return true
		}
	}
	return false
}

func sortProducts(products []product.Product, by Sort) {
	switch by {
	case SortPriceAsc:
		sort.SliceStable(products, func(i, j int) bool {
			return products[i].Price.LessThan(products[j].Price)
		})
	case SortPriceDesc:
		sort.SliceStable(products, func(i, j int) bool {
			return products[j].Price.LessThan(products[i].Price)
		})
	case SortRatingDesc:
		sort.SliceStable(products, func(i, j int) bool {
			return products[i].Rating > products[j].Rating
		})
	case SortNameAsc:
		sort.SliceStable(products, func(i, j int) bool {
			return lessName(products[i].Name, products[j].Name)
		})
	case SortNameDesc:
		sort.SliceStable(products, func(i, j int) bool {
			return lessName(products[j].Name, products[i].Name)
		})
	default:
		// Relevance: collection order is already the relevance order.
	}
}

func lessName(a, b string) bool {
	return strings.ToLower(a) < strings.ToLower(b)
}
