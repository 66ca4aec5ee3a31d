package catalog

// Package catalog provides catalog.yaml parsing functionality.

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Catalog struct {
	Shop     ShopConfig `yaml:"shop"`
	Products []Product  `yaml:"products"`
}

type ShopConfig struct {
	Name     string `yaml:"name"`
	Currency string `yaml:"currency"`
}

type Product struct {
	ID             string   `yaml:"id"`
	Name           string   `yaml:"name"`
	Description    string   `yaml:"description"`
	UnitPriceCents int64    `yaml:"unit_price_cents"`
	Active         bool     `yaml:"active"`
	Variants       []string `yaml:"variants"`
}

type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

func (p *Parser) Parse(content []byte) (*Catalog, error) {
	var catalog Catalog
	if err := yaml.Unmarshal(content, &catalog); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return &catalog, nil
}

func (p *Parser) ParseFile(path string) (*Catalog, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	return p.Parse(content)
}

// FindProduct returns the product with the given id, or nil.
func (c *Catalog) FindProduct(productID string) *Product {
	if c == nil {
		return nil
	}
	for i := range c.Products {
		if c.Products[i].ID == productID {
			return &c.Products[i]
		}
	}
	return nil
}

// HasVariant reports whether variant is one of the product's declared
// variants. Products without variants accept only the empty variant.
func (p *Product) HasVariant(variant string) bool {
	if variant == "" {
		return len(p.Variants) == 0
	}
	for _, v := range p.Variants {
		if v == variant {
			return true
		}
	}
	return false
}
