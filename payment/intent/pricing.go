// Fixed-rate conversion from catalog prices to the settlement asset. Rates
// are deployment configuration; there is no price oracle.

package intent

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

var defaultRates = map[string]string{
	"USD":  "1",
	"USDC": "1",
	"USDT": "1",
}

type Pricing struct {
	Network  string
	Asset    string
	Currency string
	Decimals int32

	rates map[string]decimal.Decimal
}

// NewPricing builds the converter. rates maps a display currency to the
// amount of settlement asset one unit of it buys; missing entries fall back to
// the stablecoin defaults.
func NewPricing(network, asset, currency string, decimals int32, rates map[string]string) (*Pricing, error) {
	if network == "" || asset == "" {
		return nil, fmt.Errorf("settlement network and asset are required")
	}
	p := &Pricing{
		Network:  network,
		Asset:    asset,
		Currency: strings.ToUpper(currency),
		Decimals: decimals,
		rates:    make(map[string]decimal.Decimal),
	}
	for k, v := range defaultRates {
		p.rates[k] = decimal.RequireFromString(v)
	}
	for k, v := range rates {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return nil, fmt.Errorf("rate for %s: %w", k, err)
		}
		if !d.IsPositive() {
			return nil, fmt.Errorf("rate for %s must be positive", k)
		}
		p.rates[strings.ToUpper(k)] = d
	}
	return p, nil
}

// ToSmallestUnit converts a decimal price in currency into the settlement
// asset's smallest unit, rounding up to a whole unit.
func (p *Pricing) ToSmallestUnit(price, currency string) (*big.Int, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(price))
	if err != nil {
		return nil, fmt.Errorf("bad price %q", price)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("negative price %q", price)
	}
	rate, ok := p.rates[strings.ToUpper(strings.TrimSpace(currency))]
	if !ok {
		return nil, fmt.Errorf("no settlement rate for currency %q", currency)
	}
	return d.Mul(rate).Shift(p.Decimals).Ceil().BigInt(), nil
}

// Display formats a smallest-unit amount as a decimal string of the asset.
func (p *Pricing) Display(amount *big.Int) string {
	return decimal.NewFromBigInt(amount, -p.Decimals).StringFixed(p.Decimals)
}
