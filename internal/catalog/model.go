package catalog

import "github.com/andreasstove999/storefront-go/internal/money"

// Product is a read-only catalog record. Stock is informational; nothing
// in the storefront core decrements it.
type Product struct {
	ID        string      `json:"productId"`
	Name      string      `json:"name"`
	UnitPrice money.Cents `json:"unitPriceCents"`
	Stock     int         `json:"stock"`
}
