package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"go-agentcommerce/payment/chain"
	"go-agentcommerce/payment/db"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

type GormCatalog struct {
	db      *gorm.DB
	network string // deployment settlement network, for payTo validation
}

func NewGormCatalog(gdb *gorm.DB, network string) *GormCatalog {
	return &GormCatalog{db: gdb, network: network}
}

func (c *GormCatalog) ListStores(ctx context.Context) ([]Store, error) {
	var rows []db.Store
	if err := c.db.WithContext(ctx).Order("name asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	stores := make([]Store, 0, len(rows))
	for _, r := range rows {
		stores = append(stores, storeFromRow(r))
	}
	return stores, nil
}

func (c *GormCatalog) GetStore(ctx context.Context, storeID string) (*Store, error) {
	var row db.Store
	err := c.db.WithContext(ctx).First(&row, "id = ?", storeID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrStoreNotFound
	}
	if err != nil {
		return nil, err
	}
	s := storeFromRow(row)
	return &s, nil
}

// RegisterStore adds a store. The id and the domain must both be unused.
func (c *GormCatalog) RegisterStore(ctx context.Context, s Store) (*Store, error) {
	s.ID = strings.TrimSpace(s.ID)
	s.Domain = strings.ToLower(strings.TrimSpace(s.Domain))
	s.Currency = strings.ToUpper(strings.TrimSpace(s.Currency))
	if s.ID == "" || s.Name == "" || s.Domain == "" || s.Currency == "" {
		return nil, fmt.Errorf("%w: id, name, domain and currency are required", ErrInvalidStore)
	}
	if err := chain.ValidateAddress(c.network, s.PayToAddress); err != nil {
		return nil, fmt.Errorf("%w: payToAddress: %v", ErrInvalidStore, err)
	}

	row := db.Store{
		ID:           s.ID,
		Name:         s.Name,
		Domain:       s.Domain,
		PayToAddress: s.PayToAddress,
		Currency:     s.Currency,
	}
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&db.Store{}).Where("id = ? OR domain = ?", s.ID, s.Domain).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrDuplicateStore
		}
		return tx.Create(&row).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, ErrDuplicateStore
	}
	if err != nil {
		return nil, err
	}
	out := storeFromRow(row)
	return &out, nil
}

func (c *GormCatalog) ListProducts(ctx context.Context, storeID, query string, limit int) ([]Product, error) {
	if _, err := c.GetStore(ctx, storeID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	tx := c.db.WithContext(ctx).Preload("Variants").Where("store_id = ?", storeID)
	if q := strings.TrimSpace(query); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		tx = tx.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", like, like)
	}

	var rows []db.Product
	if err := tx.Order("title asc").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	products := make([]Product, 0, len(rows))
	for _, r := range rows {
		products = append(products, productFromRow(r))
	}
	return products, nil
}

func (c *GormCatalog) GetVariant(ctx context.Context, storeID, productID, variantID string) (*Product, *Variant, error) {
	var row db.Product
	err := c.db.WithContext(ctx).Preload("Variants").
		Where("id = ? AND store_id = ?", productID, storeID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, ErrProductNotFound
	}
	if err != nil {
		return nil, nil, err
	}

	p := productFromRow(row)
	for i := range p.Variants {
		if p.Variants[i].ID == variantID {
			return &p, &p.Variants[i], nil
		}
	}
	return &p, nil, ErrVariantNotFound
}

// UpsertProduct writes a product and its variants, replacing earlier values.
func (c *GormCatalog) UpsertProduct(ctx context.Context, storeID string, p Product) error {
	row := db.Product{
		ID:          p.ID,
		StoreID:     storeID,
		Title:       p.Title,
		Description: p.Description,
	}
	return c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&row).Error; err != nil {
			return err
		}
		for _, v := range p.Variants {
			vr := db.Variant{
				ID:        v.ID,
				ProductID: p.ID,
				Title:     v.Title,
				SKU:       v.SKU,
				Price:     v.Price,
				Available: v.Available,
			}
			if err := tx.Save(&vr).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func storeFromRow(r db.Store) Store {
	return Store{
		ID:           r.ID,
		Name:         r.Name,
		Domain:       r.Domain,
		PayToAddress: r.PayToAddress,
		Currency:     r.Currency,
		CreatedAt:    r.CreatedAt,
	}
}

func productFromRow(r db.Product) Product {
	p := Product{
		ID:          r.ID,
		StoreID:     r.StoreID,
		Title:       r.Title,
		Description: r.Description,
		Variants:    make([]Variant, 0, len(r.Variants)),
	}
	for _, v := range r.Variants {
		p.Variants = append(p.Variants, Variant{
			ID:        v.ID,
			ProductID: v.ProductID,
			Title:     v.Title,
			SKU:       v.SKU,
			Price:     v.Price,
			Available: v.Available,
		})
	}
	return p
}
