package controllers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"go-agentcommerce/catalog"
)

// StoreRegistry admits new stores into the catalog.
type StoreRegistry interface {
	RegisterStore(ctx context.Context, s catalog.Store) (*catalog.Store, error)
}

type Stores struct {
	cat      catalog.Catalog
	registry StoreRegistry
}

func NewStores(cat catalog.Catalog, registry StoreRegistry) *Stores {
	return &Stores{cat: cat, registry: registry}
}

func (h *Stores) List(c *gin.Context) {
	stores, err := h.cat.ListStores(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to list stores"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"stores": stores})
}

func (h *Stores) Products(c *gin.Context) {
	limit := 20
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	products, err := h.cat.ListProducts(c.Request.Context(), c.Param("id"), c.Query("q"), limit)
	if errors.Is(err, catalog.ErrStoreNotFound) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		_ = c.Error(err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to list products"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

func (h *Stores) Register(c *gin.Context) {
	if h.registry == nil {
		c.AbortWithStatusJSON(http.StatusNotImplemented, gin.H{"error": "store registration is not available"})
		return
	}
	var body catalog.Store
	if err := c.ShouldBindJSON(&body); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Failed to read body"})
		return
	}

	st, err := h.registry.RegisterStore(c.Request.Context(), body)
	switch {
	case errors.Is(err, catalog.ErrDuplicateStore):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, catalog.ErrInvalidStore):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case err != nil:
		_ = c.Error(err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to register store"})
	default:
		c.JSON(http.StatusCreated, gin.H{"store": st})
	}
}
