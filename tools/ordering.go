// Package tools registers the agent-facing checkout tools on an mcp.Server.
package tools

import (
	"context"
	"errors"

	"go-agentcommerce/catalog"
	"go-agentcommerce/mcp"
	"go-agentcommerce/payment/facilitator"
	"go-agentcommerce/payment/intent"
)

type Ordering struct {
	svc     *intent.Service
	catalog catalog.Catalog
}

func NewOrdering(svc *intent.Service, cat catalog.Catalog) *Ordering {
	return &Ordering{svc: svc, catalog: cat}
}

type listProductsInput struct {
	StoreID string `json:"storeId" validate:"required"`
	Query   string `json:"query"`
	Limit   int    `json:"limit" validate:"gte=0,lte=100"`
}

type lineInput struct {
	ProductID string `json:"productId" validate:"required"`
	VariantID string `json:"variantId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"gte=1,lte=1000"`
}

type addressInput struct {
	Name       string `json:"name"`
	Line1      string `json:"line1" validate:"required"`
	Line2      string `json:"line2"`
	City       string `json:"city" validate:"required"`
	Province   string `json:"province"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country" validate:"required"`
	Phone      string `json:"phone"`
	Email      string `json:"email" validate:"omitempty,email"`
}

type initiateInput struct {
	StoreID         string        `json:"storeId" validate:"required"`
	Items           []lineInput   `json:"items" validate:"required,min=1,dive"`
	ShippingAddress *addressInput `json:"shippingAddress"`
	Description     string        `json:"description"`
}

type finalizeInput struct {
	IntentID      string `json:"intentId" validate:"required"`
	PaymentHeader string `json:"paymentHeader" validate:"required"`
}

type intentInput struct {
	IntentID string `json:"intentId" validate:"required"`
}

var (
	intentSchema = mcp.Object(map[string]*mcp.Schema{
		"intentId": mcp.String("Order intent id returned by initiate_checkout."),
	}, "intentId")

	addressSchema = mcp.Object(map[string]*mcp.Schema{
		"name":       mcp.String("Recipient name."),
		"line1":      mcp.String("Street address."),
		"line2":      mcp.String("Apartment, suite, etc."),
		"city":       mcp.String("City."),
		"province":   mcp.String("State or province."),
		"postalCode": mcp.String("Postal code."),
		"country":    mcp.String("ISO country code."),
		"phone":      mcp.String("Phone number."),
		"email":      mcp.String("Email for order updates."),
	}, "line1", "city", "country")
)

func (o *Ordering) Tools() []mcp.Tool {
	return []mcp.Tool{
		mcp.NewTool("list_stores", "List the stores that accept agent checkout.", nil, o.listStores),
		mcp.NewTool("list_products", "Search a store's products and their variants with prices.",
			mcp.Object(map[string]*mcp.Schema{
				"storeId": mcp.String("Store id from list_stores."),
				"query":   mcp.String("Optional text matched against title and description."),
				"limit":   mcp.Integer("Maximum number of products, default 20.", 0, 100),
			}, "storeId"), o.listProducts),
		mcp.NewTool("initiate_checkout", "Create an order intent. Returns the intent and the payment requirements the payer must satisfy.",
			mcp.Object(map[string]*mcp.Schema{
				"storeId": mcp.String("Store id."),
				"items": mcp.Array(mcp.Object(map[string]*mcp.Schema{
					"productId": mcp.String("Product id."),
					"variantId": mcp.String("Variant id."),
					"quantity":  mcp.Integer("Quantity to buy.", 1, 1000),
				}, "productId", "variantId", "quantity"), "Line items."),
				"shippingAddress": addressSchema,
				"description":     mcp.String("Optional note shown to the payer."),
			}, "storeId", "items"), o.initiate),
		mcp.NewTool("finalize_checkout", "Submit a signed payment for an order intent. Verifies and settles the payment, then places the order.",
			mcp.Object(map[string]*mcp.Schema{
				"intentId":      mcp.String("Order intent id."),
				"paymentHeader": mcp.String("Base64 encoded signed payment payload."),
			}, "intentId", "paymentHeader"), o.finalize),
		mcp.NewTool("get_order", "Get the current state of an order intent.", intentSchema, o.getOrder),
		mcp.NewTool("cancel_checkout", "Cancel a pending order intent.", intentSchema, o.cancel),
	}
}

func (o *Ordering) listStores(ctx context.Context, _ struct{}) (any, error) {
	stores, err := o.catalog.ListStores(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]any{"stores": stores}, nil
}

func (o *Ordering) listProducts(ctx context.Context, in listProductsInput) (any, error) {
	products, err := o.catalog.ListProducts(ctx, in.StoreID, in.Query, in.Limit)
	if errors.Is(err, catalog.ErrStoreNotFound) {
		return nil, &intent.Error{Kind: intent.KindNotFound, Message: "store " + in.StoreID + " not found"}
	}
	if err != nil {
		return nil, err
	}
	return map[string]any{"products": products}, nil
}

func (o *Ordering) initiate(ctx context.Context, in initiateInput) (any, error) {
	req := intent.InitiateRequest{
		StoreRef:    in.StoreID,
		Description: in.Description,
	}
	for _, it := range in.Items {
		req.Items = append(req.Items, intent.LineRequest{
			ProductRef: it.ProductID,
			VariantRef: it.VariantID,
			Quantity:   it.Quantity,
		})
	}
	if a := in.ShippingAddress; a != nil {
		req.ShippingAddress = &intent.Address{
			Name:       a.Name,
			Line1:      a.Line1,
			Line2:      a.Line2,
			City:       a.City,
			Province:   a.Province,
			PostalCode: a.PostalCode,
			Country:    a.Country,
			Phone:      a.Phone,
			Email:      a.Email,
		}
	}

	created, reqs, err := o.svc.Initiate(ctx, req)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"x402Version":         facilitator.Version,
		"intent":              created,
		"paymentRequirements": reqs,
	}, nil
}

func (o *Ordering) finalize(ctx context.Context, in finalizeInput) (any, error) {
	paid, err := o.svc.Finalize(ctx, in.IntentID, in.PaymentHeader)
	if err != nil {
		return nil, err
	}
	return map[string]any{"intent": paid}, nil
}

func (o *Ordering) getOrder(ctx context.Context, in intentInput) (any, error) {
	got, err := o.svc.Get(ctx, in.IntentID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"intent": got}, nil
}

func (o *Ordering) cancel(ctx context.Context, in intentInput) (any, error) {
	out, err := o.svc.Cancel(ctx, in.IntentID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"intent": out}, nil
}
