// Package catalog resolves stores, products and variants from the locally
// synced storefront catalog. Syncing the catalog is done elsewhere.
package catalog

import (
	"context"
	"errors"
	"time"
)

var (
	ErrStoreNotFound   = errors.New("store not found")
	ErrProductNotFound = errors.New("product not found")
	ErrVariantNotFound = errors.New("variant not found")
	ErrDuplicateStore  = errors.New("store already registered")
	ErrInvalidStore    = errors.New("invalid store")
)

type Store struct {
	ID           string    `json:"id" yaml:"id"`
	Name         string    `json:"name" yaml:"name"`
	Domain       string    `json:"domain" yaml:"domain"`
	PayToAddress string    `json:"payToAddress" yaml:"payToAddress"`
	Currency     string    `json:"currency" yaml:"currency"`
	CreatedAt    time.Time `json:"createdAt" yaml:"-"`
}

type Product struct {
	ID          string    `json:"id" yaml:"id"`
	StoreID     string    `json:"storeId" yaml:"-"`
	Title       string    `json:"title" yaml:"title"`
	Description string    `json:"description,omitempty" yaml:"description"`
	Variants    []Variant `json:"variants" yaml:"variants"`
}

type Variant struct {
	ID        string `json:"id" yaml:"id"`
	ProductID string `json:"productId" yaml:"-"`
	Title     string `json:"title" yaml:"title"`
	SKU       string `json:"sku,omitempty" yaml:"sku"`
	Price     string `json:"price" yaml:"price"`
	Available bool   `json:"available" yaml:"available"`
}

type Catalog interface {
	ListStores(ctx context.Context) ([]Store, error)
	GetStore(ctx context.Context, storeID string) (*Store, error)
	ListProducts(ctx context.Context, storeID, query string, limit int) ([]Product, error)
	GetVariant(ctx context.Context, storeID, productID, variantID string) (*Product, *Variant, error)
}
