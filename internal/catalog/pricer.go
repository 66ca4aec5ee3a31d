package catalog

// Package catalog provides price calculation functionality.

import "fmt"

type Pricer struct{}

func NewPricer() *Pricer {
	return &Pricer{}
}

// LinePrice prices a single order line from the catalog. Client-sent prices
// are never trusted; the catalog is the only source of unit prices.
func (p *Pricer) LinePrice(catalog *Catalog, productID, variant string, quantity int) (int64, error) {
	product := catalog.FindProduct(productID)
	if product == nil {
		return 0, fmt.Errorf("product %s not found", productID)
	}

	if !product.Active {
		return 0, fmt.Errorf("product %s is not active", productID)
	}

	if !product.HasVariant(variant) {
		return 0, fmt.Errorf("product %s has no variant %q", productID, variant)
	}

	if quantity <= 0 {
		return 0, fmt.Errorf("quantity must be positive")
	}

	return product.UnitPriceCents * int64(quantity), nil
}

// Currency returns the catalog's display currency, defaulting to eur.
func (p *Pricer) Currency(catalog *Catalog) string {
	if catalog == nil || catalog.Shop.Currency == "" {
		return "eur"
	}
	return catalog.Shop.Currency
}
