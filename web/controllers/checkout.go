package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"go-agentcommerce/catalog"
	"go-agentcommerce/payment/facilitator"
	"go-agentcommerce/payment/intent"
)

const (
	paymentHeader         = "X-PAYMENT"
	paymentResponseHeader = "X-PAYMENT-RESPONSE"
)

type Checkout struct {
	svc *intent.Service
	cat catalog.Catalog
}

func NewCheckout(svc *intent.Service, cat catalog.Catalog) *Checkout {
	return &Checkout{svc: svc, cat: cat}
}

type initiateBody struct {
	StoreID string `json:"storeId" binding:"required"`
	Items   []struct {
		ProductID string `json:"productId" binding:"required"`
		VariantID string `json:"variantId" binding:"required"`
		Quantity  int    `json:"quantity" binding:"required,min=1"`
	} `json:"items" binding:"required,min=1,dive"`
	ShippingAddress *intent.Address `json:"shippingAddress"`
	Description     string          `json:"description"`
}

// Initiate answers with 402 and the payment requirements for a new intent.
func (h *Checkout) Initiate(c *gin.Context) {
	var body initiateBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "Failed to read body: "+err.Error())
		return
	}

	req := intent.InitiateRequest{
		StoreRef:        body.StoreID,
		ShippingAddress: body.ShippingAddress,
		Description:     body.Description,
	}
	for _, it := range body.Items {
		req.Items = append(req.Items, intent.LineRequest{
			ProductRef: it.ProductID,
			VariantRef: it.VariantID,
			Quantity:   it.Quantity,
		})
	}

	in, reqs, err := h.svc.Initiate(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusPaymentRequired, gin.H{
		"x402Version": facilitator.Version,
		"error":       "payment required",
		"intent":      in,
		"accepts":     []*facilitator.Requirements{reqs},
	})
}

// Finalize settles a signed payment. The payment header may come in the
// body or in X-PAYMENT.
func (h *Checkout) Finalize(c *gin.Context) {
	var body struct {
		IntentID      string `json:"intentId" binding:"required"`
		PaymentHeader string `json:"paymentHeader"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "Failed to read body: "+err.Error())
		return
	}
	header := strings.TrimSpace(body.PaymentHeader)
	if header == "" {
		header = strings.TrimSpace(c.GetHeader(paymentHeader))
	}
	if header == "" {
		badRequest(c, "payment header is required")
		return
	}

	in, err := h.svc.Finalize(c.Request.Context(), body.IntentID, header)
	if err != nil {
		abortWithError(c, err)
		return
	}
	if in.PaymentProof != nil {
		c.Header(paymentResponseHeader, facilitator.EncodeSettlement(&facilitator.SettleResult{
			Success:     true,
			Transaction: in.PaymentProof.Transaction,
			Network:     in.Network,
			Payer:       in.PaymentProof.Payer,
		}))
	}
	c.JSON(http.StatusOK, gin.H{"intent": in})
}

func (h *Checkout) Cancel(c *gin.Context) {
	in, err := h.svc.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"intent": in})
}

func (h *Checkout) Requirements(c *gin.Context) {
	reqs, err := h.svc.Requirements(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"x402Version": facilitator.Version,
		"accepts":     []*facilitator.Requirements{reqs},
	})
}

type orderLine struct {
	Item    intent.Item      `json:"item"`
	Product *catalog.Product `json:"product,omitempty"`
	Variant *catalog.Variant `json:"variant,omitempty"`
}

// Order returns the intent with its store and catalog entries. Lookups that
// fail leave the corresponding field empty; the intent snapshot is always
// present.
func (h *Checkout) Order(c *gin.Context) {
	ctx := c.Request.Context()
	in, err := h.svc.Get(ctx, c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	resp := gin.H{"intent": in, "products": h.lines(ctx, in)}
	if st, err := h.cat.GetStore(ctx, in.StoreRef); err == nil {
		resp["store"] = st
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Checkout) lines(ctx context.Context, in *intent.Intent) []orderLine {
	out := make([]orderLine, 0, len(in.Items))
	for _, it := range in.Items {
		line := orderLine{Item: it}
		if p, v, err := h.cat.GetVariant(ctx, in.StoreRef, it.ProductRef, it.VariantRef); err == nil {
			line.Product, line.Variant = p, v
		}
		out = append(out, line)
	}
	return out
}
