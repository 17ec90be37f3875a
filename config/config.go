// Package config loads the checkout service settings from the environment.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"go-agentcommerce/utils"
)

type Settlement struct {
	Network  string            // CAIP-2 style id, e.g. eip155:84532
	Asset    string            // token contract address
	Currency string            // ticker of the settlement asset, e.g. USDC
	Decimals int32             // smallest-unit exponent of the asset
	Rates    map[string]string // display currency -> asset units per 1 display unit
}

type Facilitator struct {
	URL     string
	APIKey  string
	Timeout time.Duration
}

type Storefront struct {
	URL   string
	Token string
}

type TronGrid struct {
	URL    string
	APIKey string
}

type Config struct {
	Port     string
	DBDriver string
	DBDSN    string
	LogLevel string
	LogDir   string

	Settlement    Settlement
	IntentTTL     time.Duration
	FinalizeLease time.Duration
	SweepInterval time.Duration
	PublicURL     string

	Facilitator Facilitator
	Storefront  Storefront
	ChainRPCURL string
	TronGrid    TronGrid

	NATSURL            string
	FulfillmentSubject string

	Secret            string
	AdminPasswordHash string
	RateLimit         int
	CatalogSeed       string
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	utils.LoadEnv()

	cfg := &Config{
		Port:     utils.Getenv("CHECKOUT_PORT", "8080"),
		DBDriver: utils.Getenv("DB_DRIVER", ""),
		DBDSN:    utils.Getenv("DB_DSN", "file:checkout.db?cache=shared"),
		LogLevel: utils.Getenv("LOG_LEVEL", "4"),
		LogDir:   utils.Getenv("LOG_DIR", ""),
		Settlement: Settlement{
			Network:  utils.Getenv("SETTLEMENT_NETWORK", "eip155:84532"),
			Asset:    utils.Getenv("SETTLEMENT_ASSET", "0x036CbD53842c5426634e7929541eC2318f3dCF7e"),
			Currency: strings.ToUpper(utils.Getenv("SETTLEMENT_CURRENCY", "USDC")),
		},
		PublicURL: strings.TrimRight(utils.Getenv("PUBLIC_URL", ""), "/"),
		Facilitator: Facilitator{
			URL:    utils.Getenv("FACILITATOR_URL", "https://x402.org/facilitator"),
			APIKey: utils.Getenv("FACILITATOR_API_KEY", ""),
		},
		Storefront: Storefront{
			URL:   utils.Getenv("STOREFRONT_URL", ""),
			Token: utils.Getenv("STOREFRONT_TOKEN", ""),
		},
		ChainRPCURL: utils.Getenv("CHAIN_RPC_URL", ""),
		TronGrid: TronGrid{
			URL:    utils.Getenv("TRONGRID_URL", "https://api.shasta.trongrid.io"),
			APIKey: utils.Getenv("TRONGRID_API_KEY", ""),
		},
		NATSURL:            utils.Getenv("NATS_URL", ""),
		FulfillmentSubject: utils.Getenv("FULFILLMENT_SUBJECT", "checkout.fulfillment"),
		Secret:             utils.Getenv("SECRET", ""),
		AdminPasswordHash:  utils.Getenv("ADMIN_PASSWORD_HASH", ""),
		CatalogSeed:        utils.Getenv("CATALOG_SEED", ""),
	}

	var err error
	if cfg.Settlement.Decimals, err = parseDecimals("SETTLEMENT_DECIMALS", "6"); err != nil {
		return nil, err
	}
	if cfg.Settlement.Rates, err = ParseRates(utils.Getenv("SETTLEMENT_RATES", "USD=1")); err != nil {
		return nil, fmt.Errorf("SETTLEMENT_RATES: %w", err)
	}
	if cfg.IntentTTL, err = parseDuration("INTENT_TTL", "15m"); err != nil {
		return nil, err
	}
	if cfg.FinalizeLease, err = parseDuration("FINALIZE_LEASE", "2m"); err != nil {
		return nil, err
	}
	if cfg.SweepInterval, err = parseDuration("SWEEP_INTERVAL", "0s"); err != nil {
		return nil, err
	}
	if cfg.Facilitator.Timeout, err = parseDuration("FACILITATOR_TIMEOUT", "30s"); err != nil {
		return nil, err
	}
	if cfg.RateLimit, err = strconv.Atoi(utils.Getenv("RATE_LIMIT", "60")); err != nil {
		return nil, fmt.Errorf("RATE_LIMIT: %w", err)
	}

	if cfg.DBDriver == "" {
		cfg.DBDriver = DriverFor(cfg.DBDSN)
	}
	if cfg.IntentTTL <= 0 {
		return nil, fmt.Errorf("INTENT_TTL must be positive")
	}
	// verify and settle both run inside one finalize lease
	if cfg.FinalizeLease <= 2*cfg.Facilitator.Timeout {
		return nil, fmt.Errorf("FINALIZE_LEASE (%s) must exceed twice FACILITATOR_TIMEOUT (%s)", cfg.FinalizeLease, cfg.Facilitator.Timeout)
	}

	return cfg, nil
}

// DriverFor guesses the gorm dialector from a DSN: sqlite for file: and
// :memory: style DSNs, mysql for everything else.
func DriverFor(dsn string) string {
	if strings.HasPrefix(dsn, "file:") || strings.HasSuffix(dsn, ".db") || strings.Contains(dsn, ":memory:") {
		return "sqlite"
	}
	return "mysql"
}

// ParseRates parses "USD=1,EUR=1.08" into a currency -> rate table.
func ParseRates(s string) (map[string]string, error) {
	rates := make(map[string]string)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		cur, rate, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("malformed rate %q", part)
		}
		cur = strings.ToUpper(strings.TrimSpace(cur))
		rate = strings.TrimSpace(rate)
		d, err := decimal.NewFromString(rate)
		if err != nil {
			return nil, fmt.Errorf("rate for %s: %w", cur, err)
		}
		if !d.IsPositive() {
			return nil, fmt.Errorf("rate for %s must be positive", cur)
		}
		rates[cur] = rate
	}
	if len(rates) == 0 {
		return nil, fmt.Errorf("no rates configured")
	}
	return rates, nil
}

func parseDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(utils.Getenv(key, def))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func parseDecimals(key, def string) (int32, error) {
	n, err := strconv.ParseInt(utils.Getenv(key, def), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if n < 0 || n > 36 {
		return 0, fmt.Errorf("%s out of range: %d", key, n)
	}
	return int32(n), nil
}
