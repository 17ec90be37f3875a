package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"gorm.io/gorm"

	"go-agentcommerce/catalog"
	"go-agentcommerce/config"
	"go-agentcommerce/fulfillment"
	"go-agentcommerce/logger"
	"go-agentcommerce/mcp"
	"go-agentcommerce/metrics"
	"go-agentcommerce/payment/chain"
	"go-agentcommerce/payment/db"
	"go-agentcommerce/payment/facilitator"
	"go-agentcommerce/payment/intent"
	"go-agentcommerce/service"
	"go-agentcommerce/tools"
	"go-agentcommerce/web"
)

type app struct {
	cfg      *config.Config
	gdb      *gorm.DB
	cat      *catalog.GormCatalog
	svc      *intent.Service
	conn     fulfillment.Connector
	nc       *nats.Conn
	reg      *prometheus.Registry
	metrics  *metrics.Metrics
	balances chain.BalanceReader
}

// newApp loads the configuration, opens and migrates the database and wires
// the checkout service.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger.Init(cfg.LogLevel)
	if cfg.LogDir != "" {
		if err := logger.AddFileLogger(cfg.LogDir); err != nil {
			return nil, fmt.Errorf("file logger: %w", err)
		}
	}

	gdb, err := db.Open(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(gdb); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	a := &app{cfg: cfg, gdb: gdb, reg: prometheus.NewRegistry()}
	a.reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.metrics = metrics.New(a.reg)
	a.cat = catalog.NewGormCatalog(gdb, cfg.Settlement.Network)

	pricing, err := intent.NewPricing(cfg.Settlement.Network, cfg.Settlement.Asset, cfg.Settlement.Currency,
		cfg.Settlement.Decimals, cfg.Settlement.Rates)
	if err != nil {
		return nil, err
	}

	a.conn = fulfillment.NoopConnector{}
	if cfg.Storefront.URL != "" {
		a.conn = fulfillment.NewStorefrontConnector(cfg.Storefront.URL, cfg.Storefront.Token)
	}

	var dispatcher intent.Dispatcher = fulfillment.NewDirect(a.conn)
	if cfg.NATSURL != "" {
		if a.nc, err = fulfillment.Connect(cfg.NATSURL); err != nil {
			return nil, err
		}
		dispatcher = fulfillment.NewQueue(a.nc, cfg.FulfillmentSubject)
	}

	fac := facilitator.NewClient(cfg.Facilitator.URL,
		facilitator.WithTimeout(cfg.Facilitator.Timeout),
		facilitator.WithAPIKey(cfg.Facilitator.APIKey))

	a.svc = intent.NewService(intent.NewGormStore(gdb), a.cat, fac, dispatcher, pricing,
		intent.WithTTL(cfg.IntentTTL),
		intent.WithLease(cfg.FinalizeLease),
		intent.WithMetrics(a.metrics),
		intent.WithPublicURL(cfg.PublicURL))

	a.balances = a.balanceReader(ctx)
	return a, nil
}

// balanceReader returns nil when no chain endpoint is configured; the
// get_balance tool then reports the balance as unavailable.
func (a *app) balanceReader(ctx context.Context) chain.BalanceReader {
	s := a.cfg.Settlement
	switch chain.FamilyOf(s.Network) {
	case chain.FamilyEVM:
		if a.cfg.ChainRPCURL == "" {
			return nil
		}
		b, err := chain.DialEVM(ctx, a.cfg.ChainRPCURL, s.Network, s.Asset)
		if err != nil {
			logger.Logger.Warn().Err(err).Msg("Balance reader disabled")
			return nil
		}
		return b
	case chain.FamilyTron:
		b, err := chain.NewTronBalances(a.cfg.TronGrid.URL, a.cfg.TronGrid.APIKey, s.Network, s.Asset)
		if err != nil {
			logger.Logger.Warn().Err(err).Msg("Balance reader disabled")
			return nil
		}
		return b
	}
	return nil
}

func (a *app) Serve(ctx context.Context) error {
	if a.cfg.CatalogSeed != "" {
		if err := a.Seed(ctx, a.cfg.CatalogSeed); err != nil {
			return err
		}
	}

	if a.nc != nil {
		sub, err := fulfillment.NewWorker(a.conn, a.svc).Subscribe(a.nc, a.cfg.FulfillmentSubject)
		if err != nil {
			return fmt.Errorf("subscribe fulfillment worker: %w", err)
		}
		defer func() { _ = sub.Unsubscribe() }()
	}

	if a.cfg.SweepInterval > 0 {
		go func() {
			if err := a.svc.RunSweeper(ctx, a.cfg.SweepInterval); err != nil && !errors.Is(err, context.Canceled) {
				logger.Logger.Error().Err(err).Msg("Sweeper stopped")
			}
		}()
	}

	srv := mcp.NewServer(appName, Version, mcp.WithMetrics(a.metrics))
	if err := tools.Register(srv, a.svc, a.cat, a.balances); err != nil {
		return err
	}

	router := web.NewRouter(ctx, web.Deps{
		Service:           a.svc,
		Catalog:           a.cat,
		Registry:          a.cat,
		MCP:               srv,
		Gatherer:          a.reg,
		Secret:            a.cfg.Secret,
		AdminPasswordHash: a.cfg.AdminPasswordHash,
		RateLimit:         a.cfg.RateLimit,
		Logger:            logger.Logger,
	})

	done := service.Start(ctx, ":"+a.cfg.Port, router)
	<-done.Done()
	logger.Logger.Info().Msg("Checkout service stopped")
	return nil
}

func (a *app) Seed(ctx context.Context, path string) error {
	if path == "" {
		return errors.New("no catalog file given")
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	stores, products, err := a.cat.Seed(ctx, f)
	if err != nil {
		return fmt.Errorf("seed %s: %w", path, err)
	}
	logger.Logger.Info().Int("stores", stores).Int("products", products).Str("file", path).Msg("Catalog seeded")
	return nil
}

func (a *app) Close() {
	if a.nc != nil {
		a.nc.Close()
	}
	if sqlDB, err := a.gdb.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
