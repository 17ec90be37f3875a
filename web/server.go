// Package web exposes the checkout HTTP API, the MCP transports and the
// operational endpoints on one gin engine.
package web

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"go-agentcommerce/catalog"
	"go-agentcommerce/mcp"
	"go-agentcommerce/payment/intent"
	"go-agentcommerce/web/controllers"
	"go-agentcommerce/web/middleware"
)

type Deps struct {
	Service  *intent.Service
	Catalog  catalog.Catalog
	Registry controllers.StoreRegistry // optional
	MCP      *mcp.Server               // optional
	Gatherer prometheus.Gatherer       // optional, /metrics is off when nil

	Secret            string
	AdminPasswordHash string
	RateLimit         int // requests per minute per IP, 0 disables
	Logger            zerolog.Logger
}

// NewRouter builds the engine. The rate limiter's cleanup loop stops with
// ctx.
func NewRouter(ctx context.Context, d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(d.Logger))
	r.Use(cors.New(cors.Config{
		AllowAllOrigins:  true,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Authorization", "Accept", "Origin", "Cache-Control", "X-Requested-With", "X-PAYMENT"},
		ExposeHeaders:    []string{"X-PAYMENT-RESPONSE"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	limiter := middleware.NewRateLimiter(d.RateLimit, time.Minute)
	limiter.StartCleanup(ctx, 10*time.Minute)
	limited := r.Group("/", limiter.Middleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	checkout := controllers.NewCheckout(d.Service, d.Catalog)
	limited.POST("/checkout/initiate", checkout.Initiate)
	limited.POST("/checkout/finalize", checkout.Finalize)
	limited.POST("/checkout/:id/cancel", checkout.Cancel)
	limited.GET("/checkout/:id/requirements", checkout.Requirements)
	limited.GET("/orders/:id", checkout.Order)

	stores := controllers.NewStores(d.Catalog, d.Registry)
	limited.GET("/stores", stores.List)
	limited.GET("/stores/:id/products", stores.Products)

	admin := controllers.NewAdmin(d.AdminPasswordHash, d.Secret)
	limited.POST("/admin/login", admin.Login)
	limited.POST("/admin/stores", middleware.AdminAuth(d.Secret), stores.Register)

	if d.MCP != nil {
		d.MCP.Mount(limited)
	}
	return r
}
