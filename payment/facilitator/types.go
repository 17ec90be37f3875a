package facilitator

import "encoding/json"

const Version = 1

// Requirements is the contract handed to a payer; the signed payment must
// satisfy it. Amounts are integer strings in the asset's smallest unit.
type Requirements struct {
	Scheme            string `json:"scheme"`
	Network           string `json:"network"`
	MaxAmountRequired string `json:"maxAmountRequired"`
	Resource          string `json:"resource,omitempty"`
	Description       string `json:"description"`
	MimeType          string `json:"mimeType"`
	PayTo             string `json:"payTo"`
	MaxTimeoutSeconds int    `json:"maxTimeoutSeconds"`
	Asset             string `json:"asset"`
}

// PaymentPayload is the decoded form of a signed-payment header.
type PaymentPayload struct {
	Version int           `json:"x402Version"`
	Scheme  string        `json:"scheme"`
	Network string        `json:"network"`
	Payload SignedPayment `json:"payload"`
}

type SignedPayment struct {
	Signature   string `json:"signature"`
	Transaction string `json:"transaction"`
}

type VerifyResult struct {
	IsValid       bool            `json:"isValid"`
	InvalidReason string          `json:"invalidReason,omitempty"`
	Payer         string          `json:"payer,omitempty"`
	Raw           json.RawMessage `json:"-"`
}

type SettleResult struct {
	Success     bool            `json:"success"`
	ErrorReason string          `json:"errorReason,omitempty"`
	Transaction string          `json:"transaction"`
	Network     string          `json:"network"`
	Payer       string          `json:"payer,omitempty"`
	Raw         json.RawMessage `json:"-"`
}

type request struct {
	Version             int             `json:"x402Version"`
	PaymentPayload      *PaymentPayload `json:"paymentPayload"`
	PaymentRequirements Requirements    `json:"paymentRequirements"`
}
