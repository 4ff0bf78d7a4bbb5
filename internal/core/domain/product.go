package domain

import (
	"net/url"
	"strings"
)

// CategoryAll selects every product.
const CategoryAll = "All"

// ProductsFragment is the page fragment the product grid lives under.
const ProductsFragment = "#products"

// Product is a catalog entry.
type Product struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       int64  `json:"price"`
	Image       string `json:"image"`
	Category    string `json:"category"`
}

// CartItem converts the product to a cart line snapshot with quantity 1.
func (p Product) CartItem() CartItem {
	return CartItem{
		ProductID: p.ID,
		Name:      p.Name,
		Price:     p.Price,
		Image:     p.Image,
		Category:  p.Category,
		Quantity:  1,
	}
}

// DefaultCatalog returns the storefront's product list.
func DefaultCatalog() []Product {
	return []Product{
		{ID: "1", Name: "PEP Board (1 m²)", Description: "Pressed panel made from post-consumer packaging waste.", Price: 425, Image: "/images/pep-board.jpg", Category: "Boards"},
		{ID: "2", Name: "Pencil Box", Description: "Desk organiser cut from a single PEP board offcut.", Price: 129, Image: "/images/pencil-box.jpg", Category: "Stationery"},
		{ID: "3", Name: "Wave Dining Table", Description: "Six-seat table with a wave-profile recycled top.", Price: 12500, Image: "/images/eco-table.jpg", Category: "Furniture"},
		{ID: "4", Name: "Bookshelf", Description: "Five-tier modular shelf, flat-packed.", Price: 4800, Image: "/images/eco-shelf.jpg", Category: "Furniture"},
		{ID: "5", Name: "Garden Bench", Description: "Weatherproof two-seater for outdoor use.", Price: 3200, Image: "/images/eco-bench.jpg", Category: "Outdoor"},
		{ID: "6", Name: "Chair", Description: "Stackable chair with a moulded seat.", Price: 800, Image: "/images/chair.jpg", Category: "Furniture"},
	}
}

// Categories returns CategoryAll followed by each distinct product category in
// first-seen order.
func Categories(products []Product) []string {
	out := []string{CategoryAll}
	seen := map[string]bool{}
	for _, p := range products {
		if !seen[p.Category] {
			seen[p.Category] = true
			out = append(out, p.Category)
		}
	}
	return out
}

// CategoryFromFragment extracts the category filter from a page fragment such as
// "#products?category=Stationery", falling back to a raw query string
// ("category=Stationery"). It returns "" when no known category is present.
func CategoryFromFragment(fragment, rawQuery string, known []string) string {
	candidate := ""
	if _, q, ok := strings.Cut(fragment, "?"); ok {
		if v, err := url.ParseQuery(q); err == nil {
			candidate = v.Get("category")
		}
	}
	if candidate == "" && rawQuery != "" {
		if v, err := url.ParseQuery(strings.TrimPrefix(rawQuery, "?")); err == nil {
			candidate = v.Get("category")
		}
	}
	for _, k := range known {
		if k == candidate {
			return candidate
		}
	}
	return ""
}

// FragmentForCategory builds the fragment written when a filter is selected.
// The base fragment (before any "?") is kept; "All" drops the parameter.
func FragmentForCategory(current, category string) string {
	base, _, _ := strings.Cut(current, "?")
	if base == "" || base == "#" {
		base = ProductsFragment
	}
	if category == "" || category == CategoryAll {
		return base
	}
	return base + "?category=" + url.QueryEscape(category)
}
