// Package fulfillment creates the storefront order for a paid intent. It is
// best effort: a failure here is logged by the caller and never undoes the
// payment.
package fulfillment

import (
	"context"
	"errors"
	"fmt"

	"go-agentcommerce/payment/intent"
)

var ErrNoStorefront = errors.New("no storefront configured")

type LineItem struct {
	ProductID string `json:"productId"`
	VariantID string `json:"variantId"`
	Title     string `json:"title"`
	Quantity  int    `json:"quantity"`
	Price     string `json:"price"` // display price in the store currency
}

type Request struct {
	IntentID         string          `json:"intentId"`
	StoreID          string          `json:"storeId"`
	Items            []LineItem      `json:"items"`
	ShippingAddress  *intent.Address `json:"shippingAddress,omitempty"`
	Note             string          `json:"note,omitempty"`
	PaymentReference string          `json:"paymentReference"`
}

type Result struct {
	ExternalOrderID     string `json:"externalOrderId"`
	ExternalOrderNumber string `json:"externalOrderNumber"`
	ExternalOrderLabel  string `json:"externalOrderLabel"`
}

// Connector creates orders in the external storefront.
type Connector interface {
	CreateOrder(ctx context.Context, req Request) (*Result, error)
}

// RequestFor builds the order request of a paid intent.
func RequestFor(in *intent.Intent) (Request, error) {
	if in.Status != intent.StatusPaid || in.PaymentProof == nil {
		return Request{}, fmt.Errorf("intent %s is %s, not paid", in.ID, in.Status)
	}
	req := Request{
		IntentID:         in.ID,
		StoreID:          in.StoreRef,
		ShippingAddress:  in.ShippingAddress,
		Note:             fmt.Sprintf("Paid with %s on %s, intent %s", in.Currency, in.Network, in.ID),
		PaymentReference: in.PaymentProof.Transaction,
	}
	for _, it := range in.Items {
		req.Items = append(req.Items, LineItem{
			ProductID: it.ProductRef,
			VariantID: it.VariantRef,
			Title:     it.Title,
			Quantity:  it.Quantity,
			Price:     it.DisplayPrice,
		})
	}
	return req, nil
}

func (r *Result) Ref() *intent.FulfillmentRef {
	return &intent.FulfillmentRef{
		ExternalOrderID:     r.ExternalOrderID,
		ExternalOrderNumber: r.ExternalOrderNumber,
		ExternalOrderLabel:  r.ExternalOrderLabel,
	}
}

// Direct calls the connector synchronously from finalize.
type Direct struct {
	conn Connector
}

func NewDirect(conn Connector) *Direct {
	return &Direct{conn: conn}
}

func (d *Direct) Dispatch(ctx context.Context, in *intent.Intent) (*intent.FulfillmentRef, error) {
	req, err := RequestFor(in)
	if err != nil {
		return nil, err
	}
	res, err := d.conn.CreateOrder(ctx, req)
	if err != nil {
		return nil, err
	}
	if res.ExternalOrderID == "" {
		return nil, fmt.Errorf("storefront returned no order id")
	}
	return res.Ref(), nil
}

// NoopConnector is used when no storefront is configured.
type NoopConnector struct{}

func (NoopConnector) CreateOrder(context.Context, Request) (*Result, error) {
	return nil, ErrNoStorefront
}
