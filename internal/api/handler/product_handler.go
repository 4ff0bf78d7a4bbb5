package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/pepcraft/storefront/internal/core/domain"
	"github.com/pepcraft/storefront/internal/core/ports"
)

type ProductHandler struct {
	catalog ports.CatalogService
}

func NewProductHandler(catalog ports.CatalogService) *ProductHandler {
	return &ProductHandler{catalog: catalog}
}

// List returns the product grid. The category comes from ?category= or from
// a deep-link fragment such as "#products?category=Furniture".
//
// @Summary      List products
// @Tags         products
// @Produce      json
// @Param        category  query     string  false  "Category filter"
// @Param        fragment  query     string  false  "Page fragment carrying the category"
// @Success      200       {object}  productListResponse
// @Router       /products [get]
func (h *ProductHandler) List(c echo.Context) error {
	category := c.QueryParam("category")
	if category != "" && category != domain.CategoryAll && !h.known(category) {
		category = ""
	}
	if category == "" {
		category = h.catalog.ResolveCategory(c.QueryParam("fragment"), "")
	}
	if category == "" {
		category = domain.CategoryAll
	}

	return c.JSON(http.StatusOK, productListResponse{
		Category:   category,
		Categories: h.catalog.Categories(),
		Fragment:   domain.FragmentForCategory(c.QueryParam("fragment"), category),
		Products:   h.catalog.List(category),
	})
}

// Get returns a single product.
//
// @Summary      Get product
// @Tags         products
// @Produce      json
// @Param        id   path      string  true  "Product id"
// @Success      200  {object}  domain.Product
// @Failure      404  {object}  errorResponse
// @Router       /products/{id} [get]
func (h *ProductHandler) Get(c echo.Context) error {
	p, err := h.catalog.Get(c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (h *ProductHandler) known(category string) bool {
	for _, cat := range h.catalog.Categories() {
		if cat == category {
			return true
		}
	}
	return false
}
