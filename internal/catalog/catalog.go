// Package catalog lists products, filtering and sorting on the client
// after the API returns them.
package catalog

import (
	"context"
	"net/url"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ariefcatur/mobirepair-storefront/internal/apiclient"
	"github.com/ariefcatur/mobirepair-storefront/internal/logging"
	"github.com/ariefcatur/mobirepair-storefront/internal/notify"
	"github.com/ariefcatur/mobirepair-storefront/internal/storefront"
)

type Sort string

const (
	SortFeatured  Sort = "featured"
	SortPriceLow  Sort = "price_low"
	SortPriceHigh Sort = "price_high"
	SortRating    Sort = "rating"
	SortNewest    Sort = "newest"
)

type Filters struct {
	Search   string
	Category string
	Brand    string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	Sort     Sort
}

// ParseFilters reads filters from query parameters. Unparseable prices are ignored.
func ParseFilters(q url.Values) Filters {
	f := Filters{
		Search:   q.Get("search"),
		Category: q.Get("category"),
		Brand:    q.Get("brand"),
		Sort:     Sort(q.Get("sort")),
	}
	if d, err := decimal.NewFromString(q.Get("minPrice")); err == nil {
		f.MinPrice = &d
	}
	if d, err := decimal.NewFromString(q.Get("maxPrice")); err == nil {
		f.MaxPrice = &d
	}
	return f
}

func (f Filters) Query() url.Values {
	q := url.Values{}
	set := func(k, v string) {
		if v != "" {
			q.Set(k, v)
		}
	}
	set("search", f.Search)
	set("category", f.Category)
	set("brand", f.Brand)
	set("sort", string(f.Sort))
	if f.MinPrice != nil {
		q.Set("minPrice", f.MinPrice.String())
	}
	if f.MaxPrice != nil {
		q.Set("maxPrice", f.MaxPrice.String())
	}
	return q
}

// Apply filters ps and returns a sorted copy.
func Apply(ps []storefront.Product, f Filters) []storefront.Product {
	search := strings.ToLower(f.Search)
	brand := strings.ToLower(f.Brand)

	out := make([]storefront.Product, 0, len(ps))
	for _, p := range ps {
		if search != "" &&
			!strings.Contains(strings.ToLower(p.Name), search) &&
			!strings.Contains(strings.ToLower(p.Description), search) {
			continue
		}
		if f.Category != "" && p.Category != f.Category {
			continue
		}
		if brand != "" && !strings.Contains(strings.ToLower(p.Brand), brand) {
			continue
		}
		if f.MinPrice != nil && p.Price.LessThan(*f.MinPrice) {
			continue
		}
		if f.MaxPrice != nil && p.Price.GreaterThan(*f.MaxPrice) {
			continue
		}
		out = append(out, p)
	}

	var less func(a, b storefront.Product) bool
	switch f.Sort {
	case SortPriceLow:
		less = func(a, b storefront.Product) bool { return a.Price.LessThan(b.Price) }
	case SortPriceHigh:
		less = func(a, b storefront.Product) bool { return a.Price.GreaterThan(b.Price) }
	case SortRating:
		less = func(a, b storefront.Product) bool { return rating(a) > rating(b) }
	case SortNewest:
		less = func(a, b storefront.Product) bool { return a.CreatedAt.After(b.CreatedAt) }
	default:
		less = func(a, b storefront.Product) bool { return a.IsFeatured && !b.IsFeatured }
	}
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func rating(p storefront.Product) float64 {
	if p.Rating == nil {
		return 0
	}
	return p.Rating.Average
}

type Getter interface {
	Get(ctx context.Context, path string, out any, opts ...apiclient.CallOption) error
}

type Catalog struct {
	API      Getter
	Notifier notify.Notifier
	Log      *zap.Logger
}

func (c *Catalog) List(ctx context.Context, f Filters) ([]storefront.Product, error) {
	path := "/products"
	if q := f.Query().Encode(); q != "" {
		path += "?" + q
	}
	var res struct {
		Products []storefront.Product `json:"products"`
	}
	if err := c.API.Get(ctx, path, &res); err != nil {
		c.log().Warn("list products", zap.Error(err))
		notify.OrNop(c.Notifier).Error("Failed to load products")
		return nil, err
	}
	return Apply(res.Products, f), nil
}

// Categories never fails; an unreachable API yields an empty list.
func (c *Catalog) Categories(ctx context.Context) []string {
	var res struct {
		Categories []string `json:"categories"`
	}
	if err := c.API.Get(ctx, "/products/categories", &res); err != nil {
		c.log().Warn("list categories", zap.Error(err))
		return []string{}
	}
	if res.Categories == nil {
		return []string{}
	}
	return res.Categories
}

// Brands never fails; an unreachable API yields an empty list.
func (c *Catalog) Brands(ctx context.Context) []string {
	var res struct {
		Brands []string `json:"brands"`
	}
	if err := c.API.Get(ctx, "/products/brands", &res); err != nil {
		c.log().Warn("list brands", zap.Error(err))
		return []string{}
	}
	if res.Brands == nil {
		return []string{}
	}
	return res.Brands
}

func (c *Catalog) log() *zap.Logger { return logging.OrNop(c.Log) }
