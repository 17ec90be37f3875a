package fulfillment

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/imroc/req/v3"
)

const ordersPath = "/admin/orders.json"

// StorefrontConnector posts orders to the storefront admin API.
type StorefrontConnector struct {
	client *req.Client
}

func NewStorefrontConnector(baseURL, token string) *StorefrontConnector {
	c := req.C().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(20*time.Second).
		SetCommonHeader("Accept", "application/json")
	if token != "" {
		c.SetCommonBearerAuthToken(token)
	}
	return &StorefrontConnector{client: c}
}

type orderEnvelope struct {
	Order order `json:"order"`
}

type order struct {
	LineItems       []orderLine     `json:"line_items"`
	ShippingAddress *orderAddress   `json:"shipping_address,omitempty"`
	Email           string          `json:"email,omitempty"`
	Note            string          `json:"note,omitempty"`
	FinancialStatus string          `json:"financial_status"`
	Tags            string          `json:"tags"`
	NoteAttributes  []noteAttribute `json:"note_attributes"`
}

type orderLine struct {
	VariantID string `json:"variant_id"`
	Quantity  int    `json:"quantity"`
	Title     string `json:"title,omitempty"`
	Price     string `json:"price,omitempty"`
}

type orderAddress struct {
	Name     string `json:"name,omitempty"`
	Address1 string `json:"address1"`
	Address2 string `json:"address2,omitempty"`
	City     string `json:"city"`
	Province string `json:"province,omitempty"`
	Zip      string `json:"zip,omitempty"`
	Country  string `json:"country"`
	Phone    string `json:"phone,omitempty"`
}

type noteAttribute struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type createdOrder struct {
	Order struct {
		ID          json.Number `json:"id"`
		OrderNumber json.Number `json:"order_number"`
		Name        string      `json:"name"`
	} `json:"order"`
}

type apiError struct {
	Errors json.RawMessage `json:"errors"`
}

func (c *StorefrontConnector) CreateOrder(ctx context.Context, r Request) (*Result, error) {
	body := orderEnvelope{Order: order{
		Note:            r.Note,
		FinancialStatus: "paid",
		Tags:            "agent-checkout",
		NoteAttributes: []noteAttribute{
			{Name: "intent_id", Value: r.IntentID},
			{Name: "payment_reference", Value: r.PaymentReference},
		},
	}}
	for _, it := range r.Items {
		body.Order.LineItems = append(body.Order.LineItems, orderLine{
			VariantID: it.VariantID,
			Quantity:  it.Quantity,
			Title:     it.Title,
			Price:     it.Price,
		})
	}
	if a := r.ShippingAddress; a != nil {
		body.Order.Email = a.Email
		body.Order.ShippingAddress = &orderAddress{
			Name:     a.Name,
			Address1: a.Line1,
			Address2: a.Line2,
			City:     a.City,
			Province: a.Province,
			Zip:      a.PostalCode,
			Country:  a.Country,
			Phone:    a.Phone,
		}
	}

	var created createdOrder
	var failed apiError
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(body).
		SetSuccessResult(&created).
		SetErrorResult(&failed).
		Post(ordersPath)
	if err != nil {
		return nil, fmt.Errorf("storefront: %w", err)
	}
	if resp.IsErrorState() {
		if len(failed.Errors) > 0 {
			return nil, fmt.Errorf("storefront: %s: %s", resp.Status, failed.Errors)
		}
		return nil, fmt.Errorf("storefront: %s", resp.Status)
	}

	return &Result{
		ExternalOrderID:     created.Order.ID.String(),
		ExternalOrderNumber: created.Order.OrderNumber.String(),
		ExternalOrderLabel:  created.Order.Name,
	}, nil
}
