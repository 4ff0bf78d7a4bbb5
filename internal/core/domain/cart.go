package domain

import "time"

// MaxQuantity caps a single cart line, keeping price*quantity well inside int64.
const MaxQuantity = 99

// CartItem is one cart line. Price is a non-negative amount in the smallest
// currency unit; Quantity is always positive while the line exists.
type CartItem struct {
	ProductID string `json:"id"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Image     string `json:"image"`
	Category  string `json:"category"`
	Quantity  int    `json:"quantity"`
}

// Subtotal is Price*Quantity.
func (i CartItem) Subtotal() int64 {
	return i.Price * int64(i.Quantity)
}

// Cart holds at most one line per product id, in insertion order.
// The zero value is an empty cart. Cart is not safe for concurrent use.
type Cart struct {
	items []CartItem
}

// NewCart builds a cart from stored lines, merging duplicate product ids and
// dropping lines whose quantity is not positive.
func NewCart(items []CartItem) *Cart {
	c := &Cart{}
	for _, it := range items {
		if it.Quantity <= 0 {
			continue
		}
		if i := c.index(it.ProductID); i >= 0 {
			c.items[i].Quantity = clampQuantity(c.items[i].Quantity + it.Quantity)
			continue
		}
		it.Quantity = clampQuantity(it.Quantity)
		c.items = append(c.items, it)
	}
	return c
}

func (c *Cart) index(productID string) int {
	for i := range c.items {
		if c.items[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// Add increments the line for item.ProductID, or appends it with quantity 1.
// The quantity carried by item is ignored; a line already at MaxQuantity stays there.
func (c *Cart) Add(item CartItem) {
	if i := c.index(item.ProductID); i >= 0 {
		c.items[i].Quantity = clampQuantity(c.items[i].Quantity + 1)
		return
	}
	item.Quantity = 1
	c.items = append(c.items, item)
}

// Remove deletes the line for productID. It reports whether a line existed.
func (c *Cart) Remove(productID string) bool {
	i := c.index(productID)
	if i < 0 {
		return false
	}
	c.items = append(c.items[:i], c.items[i+1:]...)
	return true
}

// SetQuantity replaces a line's quantity; quantity <= 0 removes the line and
// anything above MaxQuantity is capped. It reports whether the cart changed.
func (c *Cart) SetQuantity(productID string, quantity int) bool {
	if quantity <= 0 {
		return c.Remove(productID)
	}
	i := c.index(productID)
	if i < 0 {
		return false
	}
	c.items[i].Quantity = clampQuantity(quantity)
	return true
}

func clampQuantity(q int) int {
	if q > MaxQuantity {
		return MaxQuantity
	}
	return q
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.items = nil
}

// Get returns the line for productID.
func (c *Cart) Get(productID string) (CartItem, bool) {
	if i := c.index(productID); i >= 0 {
		return c.items[i], true
	}
	return CartItem{}, false
}

// Items returns a copy of the lines.
func (c *Cart) Items() []CartItem {
	out := make([]CartItem, len(c.items))
	copy(out, c.items)
	return out
}

// Len is the number of distinct lines.
func (c *Cart) Len() int { return len(c.items) }

// TotalItems is the sum of quantities, computed on every call.
func (c *Cart) TotalItems() int {
	n := 0
	for _, it := range c.items {
		n += it.Quantity
	}
	return n
}

// TotalPrice is the sum of price*quantity, computed on every call.
func (c *Cart) TotalPrice() int64 {
	var total int64
	for _, it := range c.items {
		total += it.Subtotal()
	}
	return total
}

// CartSnapshot is the full state pushed to the backend for one user.
// Version is monotonic per user; the backend rejects snapshots older than
// the one it already holds.
type CartSnapshot struct {
	UserID  string     `json:"user_id"`
	Version int64      `json:"version"`
	Items   []CartItem `json:"items"`
	TakenAt time.Time  `json:"taken_at"`
}

// ProductSnapshot is the denormalized copy of a product's display fields
// stored with each remote cart row at the time of the write.
type ProductSnapshot struct {
	Name     string `json:"name" bson:"name"`
	Price    int64  `json:"price" bson:"price"`
	Image    string `json:"image" bson:"image"`
	Category string `json:"category" bson:"category"`
}
