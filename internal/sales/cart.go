package sales

import (
	"context"
	"slices"
	"strconv"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/saripos/saripos/internal/inventory"
	"github.com/saripos/saripos/internal/shared"
)

// StockReader looks up a product's current stock.
type StockReader interface {
	Get(ctx context.Context, name string) (inventory.Product, error)
}

// Cart is the in-progress sale at the terminal. It is discarded after
// checkout or cancel.
type Cart struct {
	mu    sync.Mutex
	items []inventory.LineItem
	stock StockReader
}

// NewCart builds an empty cart.
func NewCart(stock StockReader) *Cart {
	return &Cart{stock: stock}
}

// Add appends a line. The product's quantity already in the cart counts
// against stock so the cart never holds more than is on hand.
func (c *Cart) Add(ctx context.Context, name string, qty decimal.Decimal) (inventory.LineItem, error) {
	if !qty.IsPositive() {
		return inventory.LineItem{}, shared.Invalid("quantity", "quantity must be > 0")
	}
	product, err := c.stock.Get(ctx, name)
	if err != nil {
		return inventory.LineItem{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	inCart := decimal.Zero
	for _, item := range c.items {
		if item.Name == product.Name {
			inCart = inCart.Add(item.Quantity)
		}
	}
	if inCart.Add(qty).GreaterThan(product.Stock) {
		return inventory.LineItem{}, &shared.InsufficientStockError{
			Product:   product.Name,
			Requested: inCart.Add(qty),
			Available: product.Stock,
		}
	}
	item := inventory.LineItem{Name: product.Name, Quantity: qty}
	c.items = append(c.items, item)
	return item, nil
}

// Remove drops the line at index.
func (c *Cart) Remove(index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if index < 0 || index >= len(c.items) {
		return &shared.NotFoundError{Kind: "cart line", Key: strconv.Itoa(index)}
	}
	c.items = slices.Delete(c.items, index, index+1)
	return nil
}

// Items returns a copy of the cart lines.
func (c *Cart) Items() []inventory.LineItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.items)
}

// Checkout hands the cart lines to fn while holding the cart, so lines added
// meanwhile wait for it. The cart is emptied only when fn succeeds.
func (c *Cart) Checkout(fn func([]inventory.LineItem) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := fn(slices.Clone(c.items)); err != nil {
		return err
	}
	c.items = nil
	return nil
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = nil
}
