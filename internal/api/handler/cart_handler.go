package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/pepcraft/storefront/internal/api/metrics"
	"github.com/pepcraft/storefront/internal/core/ports"
)

// CartHandler exposes the caller's cart store. Product details always come
// from the catalog, never from the request.
type CartHandler struct {
	catalog ports.CatalogService
}

func NewCartHandler(catalog ports.CatalogService) *CartHandler {
	return &CartHandler{catalog: catalog}
}

// Get returns the cart with its totals.
//
// @Summary      Get cart
// @Tags         cart
// @Produce      json
// @Param        X-Client-ID  header    string  false  "Client id"
// @Success      200          {object}  cartResponse
// @Router       /cart [get]
func (h *CartHandler) Get(c echo.Context) error {
	ws, err := ctxWorkspace(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toCartResponse(ws.Cart().View()))
}

// Add puts one unit of a product in the cart and opens the cart panel.
//
// @Summary      Add to cart
// @Tags         cart
// @Accept       json
// @Produce      json
// @Param        X-Client-ID  header    string          false  "Client id"
// @Param        body         body      addItemRequest  true   "Product to add"
// @Success      200          {object}  cartResponse
// @Failure      404          {object}  errorResponse
// @Failure      422          {object}  errorResponse
// @Router       /cart/items [post]
func (h *CartHandler) Add(c echo.Context) error {
	ws, err := ctxWorkspace(c)
	if err != nil {
		return err
	}
	var req addItemRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	product, err := h.catalog.Get(req.ProductID)
	if err != nil {
		return err
	}
	ws.Cart().AddToCart(product.CartItem())
	metrics.CartMutationsTotal.WithLabelValues("add").Inc()
	return c.JSON(http.StatusOK, toCartResponse(ws.Cart().View()))
}

// UpdateQuantity sets a line's quantity; zero or less removes the line.
//
// @Summary      Update quantity
// @Tags         cart
// @Accept       json
// @Produce      json
// @Param        X-Client-ID  header    string                 false  "Client id"
// @Param        id           path      string                 true   "Product id"
// @Param        body         body      updateQuantityRequest  true   "New quantity"
// @Success      200          {object}  cartResponse
// @Failure      422          {object}  errorResponse
// @Router       /cart/items/{id} [patch]
func (h *CartHandler) UpdateQuantity(c echo.Context) error {
	ws, err := ctxWorkspace(c)
	if err != nil {
		return err
	}
	var req updateQuantityRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	ws.Cart().UpdateQuantity(c.Param("id"), *req.Quantity)
	metrics.CartMutationsTotal.WithLabelValues("update").Inc()
	return c.JSON(http.StatusOK, toCartResponse(ws.Cart().View()))
}

// Remove deletes a line. Removing an absent product is a no-op.
//
// @Summary      Remove from cart
// @Tags         cart
// @Produce      json
// @Param        X-Client-ID  header    string  false  "Client id"
// @Param        id           path      string  true   "Product id"
// @Success      200          {object}  cartResponse
// @Router       /cart/items/{id} [delete]
func (h *CartHandler) Remove(c echo.Context) error {
	ws, err := ctxWorkspace(c)
	if err != nil {
		return err
	}
	ws.Cart().RemoveFromCart(c.Param("id"))
	metrics.CartMutationsTotal.WithLabelValues("remove").Inc()
	return c.JSON(http.StatusOK, toCartResponse(ws.Cart().View()))
}

// Clear empties the cart.
//
// @Summary      Clear cart
// @Tags         cart
// @Produce      json
// @Param        X-Client-ID  header    string  false  "Client id"
// @Success      200          {object}  cartResponse
// @Router       /cart [delete]
func (h *CartHandler) Clear(c echo.Context) error {
	ws, err := ctxWorkspace(c)
	if err != nil {
		return err
	}
	ws.Cart().ClearCart()
	metrics.CartMutationsTotal.WithLabelValues("clear").Inc()
	return c.JSON(http.StatusOK, toCartResponse(ws.Cart().View()))
}

// SetPanel opens or closes the cart panel.
//
// @Summary      Toggle cart panel
// @Tags         cart
// @Accept       json
// @Produce      json
// @Param        X-Client-ID  header    string            false  "Client id"
// @Param        body         body      cartPanelRequest  true   "Panel state"
// @Success      200          {object}  cartResponse
// @Router       /cart/panel [put]
func (h *CartHandler) SetPanel(c echo.Context) error {
	ws, err := ctxWorkspace(c)
	if err != nil {
		return err
	}
	var req cartPanelRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	ws.Cart().SetPanelOpen(req.Open)
	return c.JSON(http.StatusOK, toCartResponse(ws.Cart().View()))
}
