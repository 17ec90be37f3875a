package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-agentcommerce/config"
)

func TestParseRates(t *testing.T) {
	rates, err := config.ParseRates("usd=1, EUR=1.08,")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"USD": "1", "EUR": "1.08"}, rates)

	_, err = config.ParseRates("USD")
	assert.Error(t, err)

	_, err = config.ParseRates("USD=-1")
	assert.Error(t, err)

	_, err = config.ParseRates("")
	assert.Error(t, err)
}

func TestDriverFor(t *testing.T) {
	assert.Equal(t, "sqlite", config.DriverFor("file:checkout.db?cache=shared"))
	assert.Equal(t, "sqlite", config.DriverFor("checkout.db"))
	assert.Equal(t, "mysql", config.DriverFor("user:pass@tcp(127.0.0.1:3306)/checkout?parseTime=true"))
}

func TestLoad(t *testing.T) {
	t.Setenv("INTENT_TTL", "10m")
	t.Setenv("SETTLEMENT_DECIMALS", "8")
	t.Setenv("SETTLEMENT_RATES", "USD=1")
	t.Setenv("DB_DSN", "file:test.db")
	t.Setenv("DB_DRIVER", "")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, 10*time.Minute, cfg.IntentTTL)
	assert.Equal(t, int32(8), cfg.Settlement.Decimals)
	assert.Equal(t, "sqlite", cfg.DBDriver)

	t.Setenv("FINALIZE_LEASE", "1m")
	t.Setenv("FACILITATOR_TIMEOUT", "30s")
	_, err = config.Load()
	assert.ErrorContains(t, err, "FINALIZE_LEASE")

	t.Setenv("FACILITATOR_TIMEOUT", "20s")
	cfg, err = config.Load()
	require.NoError(t, err)
	assert.Equal(t, time.Minute, cfg.FinalizeLease)

	t.Setenv("INTENT_TTL", "soon")
	_, err = config.Load()
	assert.ErrorContains(t, err, "INTENT_TTL")
}
