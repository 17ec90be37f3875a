package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

type seedFile struct {
	Stores []seedStore `yaml:"stores"`
}

type seedStore struct {
	Store    `yaml:",inline"`
	Products []Product `yaml:"products"`
}

// Seed loads stores and products from a YAML document. Stores that already
// exist are kept and their products updated.
func (c *GormCatalog) Seed(ctx context.Context, r io.Reader) (stores, products int, err error) {
	var f seedFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		return 0, 0, fmt.Errorf("decode seed: %w", err)
	}

	for _, s := range f.Stores {
		if _, err := c.RegisterStore(ctx, s.Store); err != nil {
			if !errors.Is(err, ErrDuplicateStore) {
				return stores, products, fmt.Errorf("store %s: %w", s.ID, err)
			}
		} else {
			stores++
		}
		for _, p := range s.Products {
			for _, v := range p.Variants {
				if _, err := decimal.NewFromString(v.Price); err != nil {
					return stores, products, fmt.Errorf("product %s variant %s: bad price %q", p.ID, v.ID, v.Price)
				}
			}
			if err := c.UpsertProduct(ctx, s.ID, p); err != nil {
				return stores, products, fmt.Errorf("product %s: %w", p.ID, err)
			}
			products++
		}
	}
	return stores, products, nil
}
