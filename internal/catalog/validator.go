package catalog

// Package catalog provides catalog validation.

import (
	"fmt"
	"regexp"
	"strings"
)

type Validator struct{}

func NewValidator() *Validator {
	return &Validator{}
}

var currencyRegex = regexp.MustCompile(`^[a-z]{3}$`)

func (v *Validator) Validate(catalog *Catalog) error {
	if catalog == nil {
		return fmt.Errorf("catalog is required")
	}

	if err := v.validateShop(&catalog.Shop); err != nil {
		return fmt.Errorf("shop validation failed: %w", err)
	}

	if len(catalog.Products) == 0 {
		return fmt.Errorf("at least one product is required")
	}

	ids := make(map[string]bool)
	for i, product := range catalog.Products {
		if err := v.validateProduct(&product); err != nil {
			return fmt.Errorf("product %d validation failed: %w", i, err)
		}

		if ids[product.ID] {
			return fmt.Errorf("duplicate product id: %s", product.ID)
		}
		ids[product.ID] = true
	}

	return nil
}

func (v *Validator) validateShop(shop *ShopConfig) error {
	if strings.TrimSpace(shop.Name) == "" {
		return fmt.Errorf("shop name is required")
	}

	if shop.Currency != "" && !currencyRegex.MatchString(shop.Currency) {
		return fmt.Errorf("currency must be a lowercase ISO 4217 code")
	}

	return nil
}

func (v *Validator) validateProduct(product *Product) error {
	if strings.TrimSpace(product.ID) == "" {
		return fmt.Errorf("product id is required")
	}
	if strings.TrimSpace(product.Name) == "" {
		return fmt.Errorf("product name is required")
	}
	if product.UnitPriceCents <= 0 {
		return fmt.Errorf("unit price must be positive")
	}

	seen := make(map[string]bool)
	for _, variant := range product.Variants {
		if strings.TrimSpace(variant) == "" {
			return fmt.Errorf("variant values must not be empty")
		}
		if seen[variant] {
			return fmt.Errorf("duplicate variant: %s", variant)
		}
		seen[variant] = true
	}

	return nil
}
