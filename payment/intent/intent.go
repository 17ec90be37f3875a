// Package intent owns the order intent lifecycle: a priced, time-boxed
// purchase quote that is paid through a facilitator and then fulfilled in the
// storefront.
//
//	pending --finalize ok--------> paid
//	pending --verify/settle fail--> failed
//	pending --finalize after TTL--> expired
//	pending --cancel-------------> cancelled
//
// Every state but pending is terminal.
package intent

import (
	"encoding/json"
	"time"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusFailed    Status = "failed"
	StatusExpired   Status = "expired"
	StatusCancelled Status = "cancelled"
)

func (s Status) Terminal() bool {
	return s != StatusPending
}

type Item struct {
	ProductRef   string `json:"productRef"`
	VariantRef   string `json:"variantRef"`
	Quantity     int    `json:"quantity"`
	UnitPrice    string `json:"unitPrice"`    // smallest unit of the settlement asset
	DisplayPrice string `json:"displayPrice"` // catalog price in the store currency
	Title        string `json:"title"`
}

type Address struct {
	Name       string `json:"name"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	Province   string `json:"province,omitempty"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
	Phone      string `json:"phone,omitempty"`
	Email      string `json:"email,omitempty"`
}

type PaymentProof struct {
	Transaction         string          `json:"transaction"`
	Payload             string          `json:"payload"`
	Payer               string          `json:"payer,omitempty"`
	VerifiedAt          time.Time       `json:"verifiedAt"`
	FacilitatorResponse json.RawMessage `json:"facilitatorResponse,omitempty"`
}

type FulfillmentRef struct {
	ExternalOrderID     string `json:"externalOrderId"`
	ExternalOrderNumber string `json:"externalOrderNumber,omitempty"`
	ExternalOrderLabel  string `json:"externalOrderLabel,omitempty"`
}

type Intent struct {
	ID              string          `json:"id"`
	StoreRef        string          `json:"storeRef"`
	Items           []Item          `json:"items"`
	TotalAmount     string          `json:"totalAmount"`
	Currency        string          `json:"currency"`
	Network         string          `json:"network"`
	Asset           string          `json:"asset"`
	PayToAddress    string          `json:"payToAddress"`
	Description     string          `json:"description,omitempty"`
	Status          Status          `json:"status"`
	PaymentProof    *PaymentProof   `json:"paymentProof,omitempty"`
	ShippingAddress *Address        `json:"shippingAddress,omitempty"`
	Fulfillment     *FulfillmentRef `json:"fulfillmentRef,omitempty"`
	FailureReason   string          `json:"failureReason,omitempty"`
	ExpiresAt       time.Time       `json:"expiresAt"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`

	// finalize claim, internal to the store
	claimToken string
	claimedAt  *time.Time
}

// claimActive reports whether a finalize holds the intent at now.
func (in *Intent) claimActive(now time.Time, lease time.Duration) bool {
	if in.claimToken == "" || in.claimedAt == nil {
		return false
	}
	return !in.claimedAt.Before(now.Add(-lease))
}

func (in *Intent) clone() *Intent {
	out := *in
	out.Items = append([]Item(nil), in.Items...)
	if in.PaymentProof != nil {
		p := *in.PaymentProof
		p.FacilitatorResponse = append(json.RawMessage(nil), in.PaymentProof.FacilitatorResponse...)
		out.PaymentProof = &p
	}
	if in.ShippingAddress != nil {
		a := *in.ShippingAddress
		out.ShippingAddress = &a
	}
	if in.Fulfillment != nil {
		f := *in.Fulfillment
		out.Fulfillment = &f
	}
	if in.claimedAt != nil {
		t := *in.claimedAt
		out.claimedAt = &t
	}
	return &out
}
