package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/pepcraft/storefront/internal/core/domain"
	"github.com/pepcraft/storefront/internal/core/service"
)

func newCartHandler() *CartHandler {
	return NewCartHandler(service.NewCatalogService(domain.DefaultCatalog()))
}

func decodeCart(t *testing.T, body []byte) cartResponse {
	t.Helper()
	var resp cartResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	return resp
}

func TestCartHandler_GetEmpty(t *testing.T) {
	c, rec := newContext(http.MethodGet, "/cart", "", newStubWorkspace())

	if err := newCartHandler().Get(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	resp := decodeCart(t, rec.Body.Bytes())
	if resp.Items == nil || len(resp.Items) != 0 || resp.TotalItems != 0 || resp.TotalPrice != 0 {
		t.Fatalf("expected an empty cart, got %+v", resp)
	}
}

func TestCartHandler_AddUsesCatalogPrice(t *testing.T) {
	ws := newStubWorkspace()
	h := newCartHandler()

	for i := 0; i < 2; i++ {
		c, _ := newContext(http.MethodPost, "/cart/items", `{"product_id":"1","price":1}`, ws)
		if err := h.Add(c); err != nil {
			t.Fatalf("handler error: %v", err)
		}
	}

	c, rec := newContext(http.MethodGet, "/cart", "", ws)
	if err := h.Get(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	resp := decodeCart(t, rec.Body.Bytes())
	if len(resp.Items) != 1 || resp.Items[0].Quantity != 2 {
		t.Fatalf("expected one line with quantity 2, got %+v", resp.Items)
	}
	if resp.TotalPrice != 850 || !resp.PanelOpen {
		t.Fatalf("expected total 850 with the panel open, got %+v", resp)
	}
}

func TestCartHandler_AddUnknownProduct(t *testing.T) {
	c, _ := newContext(http.MethodPost, "/cart/items", `{"product_id":"999"}`, newStubWorkspace())

	err := newCartHandler().Add(c)
	if !errors.Is(err, domain.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
}

func TestCartHandler_AddMissingProductID(t *testing.T) {
	c, _ := newContext(http.MethodPost, "/cart/items", `{}`, newStubWorkspace())
	wantHTTPError(t, newCartHandler().Add(c), http.StatusUnprocessableEntity)
}

func TestCartHandler_UpdateRemoveClear(t *testing.T) {
	ws := newStubWorkspace()
	h := newCartHandler()
	for _, id := range []string{"1", "2"} {
		c, _ := newContext(http.MethodPost, "/cart/items", `{"product_id":"`+id+`"}`, ws)
		if err := h.Add(c); err != nil {
			t.Fatalf("handler error: %v", err)
		}
	}

	c, rec := newContext(http.MethodPatch, "/cart/items/2", `{"quantity":3}`, ws)
	c.SetParamNames("id")
	c.SetParamValues("2")
	if err := h.UpdateQuantity(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if resp := decodeCart(t, rec.Body.Bytes()); resp.TotalItems != 4 || resp.TotalPrice != 425+3*129 {
		t.Fatalf("unexpected totals after update: %+v", resp)
	}

	c, rec = newContext(http.MethodDelete, "/cart/items/1", "", ws)
	c.SetParamNames("id")
	c.SetParamValues("1")
	if err := h.Remove(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if resp := decodeCart(t, rec.Body.Bytes()); len(resp.Items) != 1 || resp.Items[0].ProductID != "2" {
		t.Fatalf("unexpected cart after remove: %+v", resp.Items)
	}

	c, rec = newContext(http.MethodDelete, "/cart", "", ws)
	if err := h.Clear(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if resp := decodeCart(t, rec.Body.Bytes()); len(resp.Items) != 0 || resp.TotalPrice != 0 {
		t.Fatalf("expected empty cart, got %+v", resp)
	}
}

func TestCartHandler_UpdateRequiresQuantity(t *testing.T) {
	c, _ := newContext(http.MethodPatch, "/cart/items/1", `{}`, newStubWorkspace())
	c.SetParamNames("id")
	c.SetParamValues("1")
	wantHTTPError(t, newCartHandler().UpdateQuantity(c), http.StatusUnprocessableEntity)
}

func TestCartHandler_UpdateRejectsQuantityAboveCap(t *testing.T) {
	ws := newStubWorkspace()
	ws.cart.AddToCart(domain.CartItem{ProductID: "1", Price: 425})
	c, _ := newContext(http.MethodPatch, "/cart/items/1", `{"quantity":9223372036854775807}`, ws)
	c.SetParamNames("id")
	c.SetParamValues("1")

	wantHTTPError(t, newCartHandler().UpdateQuantity(c), http.StatusUnprocessableEntity)
	if items := ws.cart.View().Items; len(items) != 1 || items[0].Quantity != 1 {
		t.Fatalf("cart changed on a rejected update: %+v", items)
	}
}

func TestCartHandler_SetPanel(t *testing.T) {
	ws := newStubWorkspace()
	ws.cart.panel = true
	c, rec := newContext(http.MethodPut, "/cart/panel", `{"open":false}`, ws)

	if err := newCartHandler().SetPanel(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if decodeCart(t, rec.Body.Bytes()).PanelOpen {
		t.Fatal("expected the panel to be closed")
	}
}
