package service

import (
	"github.com/pepcraft/storefront/internal/core/domain"
)

// CatalogService serves a fixed product list.
type CatalogService struct {
	products   []domain.Product
	byID       map[string]domain.Product
	categories []string
}

func NewCatalogService(products []domain.Product) *CatalogService {
	byID := make(map[string]domain.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	return &CatalogService{
		products:   products,
		byID:       byID,
		categories: domain.Categories(products),
	}
}

// List returns the products in category; "" or "All" returns everything.
func (s *CatalogService) List(category string) []domain.Product {
	out := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		if category == "" || category == domain.CategoryAll || p.Category == category {
			out = append(out, p)
		}
	}
	return out
}

func (s *CatalogService) Get(id string) (domain.Product, error) {
	p, ok := s.byID[id]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return p, nil
}

func (s *CatalogService) Categories() []string {
	out := make([]string, len(s.categories))
	copy(out, s.categories)
	return out
}

func (s *CatalogService) ResolveCategory(fragment, rawQuery string) string {
	return domain.CategoryFromFragment(fragment, rawQuery, s.categories)
}
