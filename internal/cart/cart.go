// Package cart models the client-held shopping cart. The server uses it to
// normalise the cart sent at checkout; prices and names in it are advisory.
package cart

import (
	"errors"
	"fmt"
	"strings"
)

// MaxQuantity caps a single cart line, merged duplicates included.
const MaxQuantity = 1000

var (
	ErrInvalidQuantity = errors.New("quantity must be positive")
	ErrItemNotFound    = errors.New("cart item not found")
	ErrMissingProduct  = errors.New("cart item has no product or color")
)

// SubVariant selects a sub-variant of the chosen color.
type SubVariant struct {
	Specification string `json:"specification" validate:"required"`
	Value         string `json:"value" validate:"required"`
}

// Item is one cart line.
type Item struct {
	ProductID  string      `json:"productId" validate:"required"`
	Name       string      `json:"name,omitempty"`
	Price      int64       `json:"price,omitempty"`
	Img        string      `json:"img,omitempty"`
	Quantity   int         `json:"quantity" validate:"required,gt=0,lte=1000"`
	Color      string      `json:"color" validate:"required"`
	SubVariant *SubVariant `json:"subVariant,omitempty" validate:"omitempty"`
}

// Key identifies the stock counter a line draws from.
func (i Item) Key() string {
	k := i.ProductID + "|" + i.Color
	if i.SubVariant != nil {
		k += "|" + i.SubVariant.Specification + "=" + i.SubVariant.Value
	}
	return k
}

// Cart is an ordered list of lines with at most one line per Key.
type Cart struct {
	Items []Item `json:"items"`
}

// Add appends item or, if a line with the same key exists, adds to its quantity.
func (c *Cart) Add(item Item) error {
	if strings.TrimSpace(item.ProductID) == "" || strings.TrimSpace(item.Color) == "" {
		return ErrMissingProduct
	}
	if item.Quantity <= 0 || item.Quantity > MaxQuantity {
		return fmt.Errorf("%w: %d", ErrInvalidQuantity, item.Quantity)
	}
	if i := c.index(item.Key()); i >= 0 {
		if c.Items[i].Quantity > MaxQuantity-item.Quantity {
			return fmt.Errorf("%w: %d + %d exceeds %d", ErrInvalidQuantity, c.Items[i].Quantity, item.Quantity, MaxQuantity)
		}
		c.Items[i].Quantity += item.Quantity
		return nil
	}
	c.Items = append(c.Items, item)
	return nil
}

// Increase adds one to the line with the given key, up to MaxQuantity.
func (c *Cart) Increase(key string) error {
	i := c.index(key)
	if i < 0 {
		return ErrItemNotFound
	}
	if c.Items[i].Quantity >= MaxQuantity {
		return fmt.Errorf("%w: already at %d", ErrInvalidQuantity, MaxQuantity)
	}
	c.Items[i].Quantity++
	return nil
}

// Decrease removes one from the line with the given key, never below 1.
// Use Remove to drop the line.
func (c *Cart) Decrease(key string) error {
	i := c.index(key)
	if i < 0 {
		return ErrItemNotFound
	}
	if c.Items[i].Quantity > 1 {
		c.Items[i].Quantity--
	}
	return nil
}

// Remove drops the line with the given key.
func (c *Cart) Remove(key string) error {
	i := c.index(key)
	if i < 0 {
		return ErrItemNotFound
	}
	c.Items = append(c.Items[:i], c.Items[i+1:]...)
	return nil
}

// Total is the sum of the snapshot prices. Display only.
func (c *Cart) Total() int64 {
	var t int64
	for _, it := range c.Items {
		t += it.Price * int64(it.Quantity)
	}
	return t
}

// Normalize builds a cart from raw lines, merging duplicates. The first
// invalid line aborts with its index.
func Normalize(items []Item) (*Cart, error) {
	c := &Cart{}
	for n, it := range items {
		if err := c.Add(it); err != nil {
			return nil, fmt.Errorf("item %d: %w", n, err)
		}
	}
	return c, nil
}

func (c *Cart) index(key string) int {
	for i := range c.Items {
		if c.Items[i].Key() == key {
			return i
		}
	}
	return -1
}
