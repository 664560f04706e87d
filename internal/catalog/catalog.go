// Package catalog holds the products a shopper can put in the cart.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/imrishuroy/fishly-storefront/internal/cart"
)

// ErrUnknownProduct is returned by Lookup for ids not in the catalog.
var ErrUnknownProduct = errors.New("unknown product")

// Product is one catalog entry.
type Product struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Image    string          `json:"image"`
	Price    decimal.Decimal `json:"price"`
	Quantity string          `json:"quantity"`
	Pieces   string          `json:"pieces"`
	Servings string          `json:"servings"`
}

// LineItem converts the product into a cart line item with no count set.
func (p Product) LineItem() cart.LineItem {
	return cart.LineItem{
		ID:        p.ID,
		Name:      p.Name,
		Image:     p.Image,
		UnitPrice: p.Price,
		Packaging: p.Quantity,
		Servings:  p.Servings,
	}
}

type fileProduct struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Image    string `yaml:"image"`
	Price    string `yaml:"price"`
	Quantity string `yaml:"quantity"`
	Pieces   string `yaml:"pieces"`
	Servings string `yaml:"servings"`
}

type fileCatalog struct {
	Products []fileProduct `yaml:"products"`
}

// Catalog is an immutable, ordered set of products.
type Catalog struct {
	products []Product
	byID     map[string]int
}

// Load reads a YAML catalog file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML catalog. Ids must be unique and prices non-negative.
func Parse(data []byte) (*Catalog, error) {
	var fc fileCatalog
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	c := &Catalog{byID: make(map[string]int, len(fc.Products))}
	for i, fp := range fc.Products {
		if fp.ID == "" {
			return nil, fmt.Errorf("product %d: missing id", i)
		}
		if _, dup := c.byID[fp.ID]; dup {
			return nil, fmt.Errorf("product %q: duplicate id", fp.ID)
		}
		price, err := decimal.NewFromString(fp.Price)
		if err != nil {
			return nil, fmt.Errorf("product %q: invalid price %q: %w", fp.ID, fp.Price, err)
		}
		if price.IsNegative() {
			return nil, fmt.Errorf("product %q: negative price", fp.ID)
		}
		c.byID[fp.ID] = len(c.products)
		c.products = append(c.products, Product{
			ID:       fp.ID,
			Name:     fp.Name,
			Image:    fp.Image,
			Price:    price,
			Quantity: fp.Quantity,
			Pieces:   fp.Pieces,
			Servings: fp.Servings,
		})
	}
	return c, nil
}

// Lookup returns the product with id.
func (c *Catalog) Lookup(id string) (Product, error) {
	i, ok := c.byID[id]
	if !ok {
		return Product{}, fmt.Errorf("%w: %s", ErrUnknownProduct, id)
	}
	return c.products[i], nil
}

// Products returns all products in file order.
func (c *Catalog) Products() []Product {
	out := make([]Product, len(c.products))
	copy(out, c.products)
	return out
}
